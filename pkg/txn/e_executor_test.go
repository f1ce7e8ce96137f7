package txn

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueIsFIFO(t *testing.T) {
	q := newCommandQueue()
	for i := 0; i < 3; i++ {
		require.True(t, q.push(&request{typ: requestType(i)}))
	}
	for i := 0; i < 3; i++ {
		assert.Equal(t, requestType(i), q.pop().typ)
	}
}

func TestQueuePopWaitsForPush(t *testing.T) {
	q := newCommandQueue()
	got := make(chan *request)
	go func() { got <- q.pop() }()

	req := &request{typ: Collect}
	q.push(req)
	assert.Same(t, req, <-got)
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := newCommandQueue()
	const producers, each = 8, 100

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				q.push(&request{typ: Stats})
			}
		}()
	}

	for i := 0; i < producers*each; i++ {
		assert.Equal(t, Stats, q.pop().typ)
	}
	wg.Wait()
}

func TestQueueCloseReturnsLeftovers(t *testing.T) {
	q := newCommandQueue()
	q.push(&request{typ: Get})
	q.push(&request{typ: Put})

	rest := q.close()
	assert.Len(t, rest, 2)
	assert.False(t, q.push(&request{typ: Commit}))
}

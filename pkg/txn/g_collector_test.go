package txn

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chainOf reads worker-owned state. Only call it after a future has
// resolved and with no command in flight.
func chainOf(e *Engine, key string) []*Version {
	return e.store.getChain([]byte(key)).versions
}

func TestCollectCollapsesWhenNothingPending(t *testing.T) {
	e := newTestEngine(t, WithCollectPolicy(CollectDeferred))

	for _, v := range []string{"a", "b"} {
		tx := begin(t, e)
		require.True(t, await(t, tx.Put([]byte("k"), []byte(v))))
		require.True(t, await(t, tx.Commit()))
	}
	loser := begin(t, e)
	require.True(t, await(t, loser.Put([]byte("k"), []byte("c"))))
	await(t, loser.Abort())
	require.Equal(t, 4, drain(t, e).Versions)

	await(t, e.Collect())
	stats := drain(t, e)
	assert.Equal(t, 1, stats.Versions)
	assert.Equal(t, 0, stats.Records)

	versions := chainOf(e, "k")
	require.Len(t, versions, 1)
	assert.Equal(t, "b", string(versions[0].Content))
	assert.Equal(t, BaselineID, versions[0].Writer)
	assert.Equal(t, TxnID(0), versions[0].ReadTs)
}

func TestCollectKeepsWhatLiveTxnsNeed(t *testing.T) {
	e := newTestEngine(t, WithCollectPolicy(CollectDeferred))
	key := []byte("k")

	t1 := begin(t, e)
	require.True(t, await(t, t1.Put(key, []byte("a"))))
	require.True(t, await(t, t1.Commit()))

	old := begin(t, e)

	t3 := begin(t, e)
	require.True(t, await(t, t3.Put(key, []byte("b"))))
	require.True(t, await(t, t3.Commit()))

	t4 := begin(t, e)
	require.True(t, await(t, t4.Put(key, []byte("c"))))

	t5 := begin(t, e)
	require.True(t, await(t, t5.Put(key, []byte("d"))))
	await(t, t5.Abort())

	require.Len(t, chainOf(e, "k"), 5)
	await(t, e.Collect())
	drain(t, e)

	versions := chainOf(e, "k")
	require.Len(t, versions, 3)
	assert.Equal(t, "a", string(versions[0].Content))
	assert.Equal(t, BaselineID, versions[0].Writer)
	assert.Equal(t, "b", string(versions[1].Content))
	assert.Equal(t, "c", string(versions[2].Content))

	assert.Equal(t, "a", string(await(t, old.Get(key)).Content))
	assert.Equal(t, "c", string(await(t, t4.Get(key)).Content))
	assert.True(t, await(t, old.Commit()))
	assert.True(t, await(t, t4.Commit()))
}

func TestCollectNeverDropsVersionsOfThePendingOldest(t *testing.T) {
	e := newTestEngine(t, WithCollectPolicy(CollectDeferred))
	key := []byte("k")

	committed := begin(t, e)
	require.True(t, await(t, committed.Put(key, []byte("committed"))))
	require.True(t, await(t, committed.Commit()))

	oldest := begin(t, e)
	require.True(t, await(t, oldest.Put(key, []byte("pending"))))
	reader := begin(t, e)

	await(t, e.Collect())
	await(t, oldest.Abort())

	assert.Equal(t, "committed", string(await(t, reader.Get(key)).Content))
}

func TestEagerPolicyReclaimsAfterEveryTermination(t *testing.T) {
	e := newTestEngine(t)

	for i := 0; i < 5; i++ {
		tx := begin(t, e)
		require.True(t, await(t, tx.Put([]byte("k"), []byte(strconv.Itoa(i)))))
		require.True(t, await(t, tx.Commit()))
	}

	stats := drain(t, e)
	assert.Equal(t, 1, stats.Versions)
	assert.Equal(t, 0, stats.Records)
	assert.Equal(t, 0, stats.Pending)
	assert.Equal(t, TxnID(6), stats.NextID)

	reader := begin(t, e)
	assert.Equal(t, "4", string(await(t, reader.Get([]byte("k"))).Content))
}

func TestReleasedHandleIsRejected(t *testing.T) {
	e := newTestEngine(t)

	tx := begin(t, e)
	require.True(t, await(t, tx.Put([]byte("k"), []byte("v"))))
	require.True(t, await(t, tx.Commit()))
	require.Equal(t, 0, drain(t, e).Records)

	assert.False(t, await(t, tx.Get([]byte("k"))).Succeeded)
	assert.False(t, await(t, tx.Commit()))
}

// Every pending transaction must read the same content before and after a
// pass, whatever the history looked like.
func TestCollectorPreservesReadsOfPendingTxns(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))

	for round := 0; round < 20; round++ {
		e := newTestEngine(t, WithCollectPolicy(CollectDeferred))
		keys := [][]byte{[]byte("a"), []byte("b"), []byte("c")}

		var live []*Txn
		for i := 0; i < 30; i++ {
			tx := begin(t, e)
			key := keys[rnd.Intn(len(keys))]
			await(t, tx.Put(key, []byte(strconv.Itoa(i))))
			switch rnd.Intn(3) {
			case 0:
				await(t, tx.Commit())
			case 1:
				await(t, tx.Abort())
			default:
				live = append(live, tx)
			}
		}

		before := make(map[TxnID][]string)
		for _, tx := range live {
			for _, key := range keys {
				res := await(t, tx.Get(key))
				if res.Succeeded {
					before[tx.ID()] = append(before[tx.ID()], string(res.Content))
				}
			}
		}

		await(t, e.Collect())

		for _, tx := range live {
			var after []string
			for _, key := range keys {
				res := await(t, tx.Get(key))
				if res.Succeeded {
					after = append(after, string(res.Content))
				}
			}
			assert.Equal(t, before[tx.ID()], after, "round %d txn %d", round, tx.ID())
		}

		for _, key := range keys {
			assert.NotEmpty(t, chainOf(e, string(key)))
		}
		await(t, e.Shutdown())
	}
}

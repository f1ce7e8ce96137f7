package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"

	"tiny_mvto/pkg/txn"
)

const (
	fieldSize = 10
	ball      = "ball"
)

var abortedErr = errors.New("transaction aborted")

type passingResult struct {
	moves   int
	idle    int
	aborted int
	balls   int
}

func (r *passingResult) add(o passingResult) {
	r.moves += o.moves
	r.idle += o.idle
	r.aborted += o.aborted
}

func position(i int) []byte {
	return []byte(strconv.Itoa(i))
}

func begin(ctx context.Context, engine *txn.Engine) (*txn.Txn, error) {
	t := engine.NewTransaction()
	ok, err := t.Initialize().Await(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, abortedErr
	}
	return t, nil
}

// playPassing places a ball on every other position of the field and lets
// players move a ball onto a randomly chosen empty position. Moves never
// create or destroy balls, so the count at the end must match.
func playPassing(ctx context.Context, engine *txn.Engine, players, rounds int, seed uint64) (passingResult, error) {
	place, err := begin(ctx, engine)
	if err != nil {
		return passingResult{}, err
	}
	placed := 0
	for i := 0; i < fieldSize; i++ {
		content := ""
		if i%2 == 0 {
			content = ball
			placed++
		}
		if ok, err := place.Put(position(i), []byte(content)).Await(ctx); err != nil || !ok {
			return passingResult{}, errors.Join(abortedErr, err)
		}
	}
	if ok, err := place.Commit().Await(ctx); err != nil || !ok {
		return passingResult{}, errors.Join(abortedErr, err)
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		total passingResult
		errs  []error
	)
	for p := 0; p < players; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			res, err := play(ctx, engine, rounds, rand.New(rand.NewPCG(seed, uint64(p))))
			mu.Lock()
			defer mu.Unlock()
			total.add(res)
			if err != nil {
				errs = append(errs, err)
			}
		}(p)
	}
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return total, err
	}

	check, err := begin(ctx, engine)
	if err != nil {
		return total, err
	}
	for i := 0; i < fieldSize; i++ {
		res, err := check.Get(position(i)).Await(ctx)
		if err != nil {
			return total, err
		}
		if !res.Succeeded {
			return total, abortedErr
		}
		if len(res.Content) != 0 {
			total.balls++
		}
	}
	if ok, err := check.Commit().Await(ctx); err != nil || !ok {
		return total, errors.Join(abortedErr, err)
	}
	if total.balls != placed {
		return total, fmt.Errorf("ball count changed: placed %d, found %d", placed, total.balls)
	}
	return total, nil
}

func play(ctx context.Context, engine *txn.Engine, rounds int, rng *rand.Rand) (passingResult, error) {
	var res passingResult
	for i := 0; i < rounds; i++ {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		moved, err := playRound(ctx, engine, rng)
		switch {
		case errors.Is(err, abortedErr):
			res.aborted++
		case err != nil:
			return res, err
		case moved:
			res.moves++
		default:
			res.idle++
		}
	}
	return res, nil
}

func playRound(ctx context.Context, engine *txn.Engine, rng *rand.Rand) (bool, error) {
	t, err := begin(ctx, engine)
	if err != nil {
		return false, err
	}
	from, to := rng.IntN(fieldSize), rng.IntN(fieldSize)
	for from == to {
		from, to = rng.IntN(fieldSize), rng.IntN(fieldSize)
	}

	fromRes, err := t.Get(position(from)).Await(ctx)
	if err != nil {
		return false, err
	}
	toRes, err := t.Get(position(to)).Await(ctx)
	if err != nil {
		return false, err
	}
	if !fromRes.Succeeded || !toRes.Succeeded {
		return false, abortedErr
	}

	hasFrom, hasTo := len(fromRes.Content) != 0, len(toRes.Content) != 0
	if hasFrom == hasTo {
		_, err := t.Abort().Await(ctx)
		return false, err
	}

	fromValue, toValue := "", ball
	if hasTo {
		fromValue, toValue = ball, ""
	}
	for _, w := range []struct {
		key   []byte
		value string
	}{{position(from), fromValue}, {position(to), toValue}} {
		ok, err := t.Put(w.key, []byte(w.value)).Await(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, abortedErr
		}
	}

	ok, err := t.Commit().Await(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, abortedErr
	}
	return true, nil
}

// helloWorld runs three overlapping transactions on one key: the second
// writer aborts, so the third reads the first writer's value.
func helloWorld(ctx context.Context, engine *txn.Engine) (string, error) {
	key := []byte("Hello")
	t1, err := begin(ctx, engine)
	if err != nil {
		return "", err
	}
	t2, err := begin(ctx, engine)
	if err != nil {
		return "", err
	}
	t3, err := begin(ctx, engine)
	if err != nil {
		return "", err
	}

	if ok, err := t1.Put(key, []byte("World")).Await(ctx); err != nil || !ok {
		return "", errors.Join(abortedErr, err)
	}
	if ok, err := t2.Put(key, []byte("Cruel")).Await(ctx); err != nil || !ok {
		return "", errors.Join(abortedErr, err)
	}
	if _, err := t2.Abort().Await(ctx); err != nil {
		return "", err
	}

	res, err := t3.Get(key).Await(ctx)
	if err != nil {
		return "", err
	}
	if !res.Succeeded {
		return "", abortedErr
	}

	for _, t := range []*txn.Txn{t1, t3} {
		if ok, err := t.Commit().Await(ctx); err != nil || !ok {
			return "", errors.Join(abortedErr, err)
		}
	}
	return string(res.Content), nil
}

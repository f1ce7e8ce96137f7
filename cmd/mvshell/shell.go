package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"tiny_mvto/pkg/txn"
)

const usage = `begin                      start a transaction and print its id
get <id> <key>             read key as transaction id
put <id> <key> <value>     write key as transaction id
commit <id>                request commit; the outcome is printed when known
abort <id>                 abort transaction id
collect                    run a collector pass
stats                      print store and table sizes
quit                       shut the engine down and exit`

var (
	usageErr      = errors.New("bad arguments, type help")
	unknownTxnErr = errors.New("unknown transaction id")
	unknownCmdErr = errors.New("unknown command, type help")
)

// shell keeps the handles of the transactions begun in this session. Commit
// outcomes arrive on their own goroutine, so writes to out are serialized.
type shell struct {
	engine *txn.Engine

	mu   sync.Mutex
	out  io.Writer
	txns map[txn.TxnID]*txn.Txn

	commits sync.WaitGroup
}

func newShell(engine *txn.Engine, out io.Writer) *shell {
	return &shell{engine: engine, out: out, txns: make(map[txn.TxnID]*txn.Txn)}
}

func (s *shell) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format+"\n", args...)
}

func (s *shell) lookup(arg string) (*txn.Txn, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return nil, usageErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txns[txn.TxnID(id)]
	if !ok {
		return nil, unknownTxnErr
	}
	return t, nil
}

func (s *shell) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help":
		s.printf("%s", usage)
	case "quit", "exit":
		return true, nil
	case "begin":
		t := s.engine.NewTransaction()
		ok, err := t.Initialize().Await(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, errors.New("initialize failed")
		}
		s.mu.Lock()
		s.txns[t.ID()] = t
		s.mu.Unlock()
		s.printf("txn %d", t.ID())
	case "get":
		if len(args) != 2 {
			return false, usageErr
		}
		t, err := s.lookup(args[0])
		if err != nil {
			return false, err
		}
		res, err := t.Get([]byte(args[1])).Await(ctx)
		if err != nil {
			return false, err
		}
		if !res.Succeeded {
			s.printf("txn %d is not pending", t.ID())
			return false, nil
		}
		s.printf("%q", res.Content)
	case "put":
		if len(args) < 3 {
			return false, usageErr
		}
		t, err := s.lookup(args[0])
		if err != nil {
			return false, err
		}
		ok, err := t.Put([]byte(args[1]), []byte(strings.Join(args[2:], " "))).Await(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			s.printf("ok")
		} else {
			s.printf("txn %d aborted", t.ID())
		}
	case "commit":
		if len(args) != 1 {
			return false, usageErr
		}
		t, err := s.lookup(args[0])
		if err != nil {
			return false, err
		}
		fut := t.Commit()
		s.commits.Add(1)
		go func() {
			defer s.commits.Done()
			ok, err := fut.Wait()
			switch {
			case err != nil:
				s.printf("txn %d: %v", t.ID(), err)
			case ok:
				s.printf("txn %d committed", t.ID())
			default:
				s.printf("txn %d aborted", t.ID())
			}
		}()
	case "abort":
		if len(args) != 1 {
			return false, usageErr
		}
		t, err := s.lookup(args[0])
		if err != nil {
			return false, err
		}
		if _, err := t.Abort().Await(ctx); err != nil {
			return false, err
		}
		s.printf("txn %d aborted", t.ID())
	case "collect":
		if _, err := s.engine.Collect().Await(ctx); err != nil {
			return false, err
		}
		s.printf("collected")
	case "stats":
		stats, err := s.engine.Stats().Await(ctx)
		if err != nil {
			return false, err
		}
		s.printf("keys=%d versions=%d pending=%d records=%d next=%d",
			stats.Keys, stats.Versions, stats.Pending, stats.Records, stats.NextID)
	default:
		return false, unknownCmdErr
	}
	return false, nil
}

// close shuts the engine down; deferred commits still waiting resolve with
// an engine-stopped error and are printed before close returns.
func (s *shell) close() {
	_, _ = s.engine.Shutdown().Wait()
	s.commits.Wait()
}

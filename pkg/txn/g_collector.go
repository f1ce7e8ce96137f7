package txn

import (
	"context"

	"go.uber.org/zap"
)

// collect drops every version no live transaction can still observe and
// frees the arena slots nothing refers to any more.
func (e *Engine) collect() int {
	reclaimed := 0
	oldest, live := e.table.oldestPending()

	e.store.scan(func(chain *keyChain) bool {
		if live {
			reclaimed += e.pruneChain(chain, oldest)
		} else {
			reclaimed += e.collapseChain(chain)
		}
		e.invariant(len(chain.versions) > 0, "chain emptied by collector", zap.ByteString("key", chain.key))
		return true
	})

	referenced := make(map[TxnID]struct{})
	e.store.scan(func(chain *keyChain) bool {
		for _, v := range chain.versions {
			if v.Writer != BaselineID {
				referenced[v.Writer] = struct{}{}
			}
		}
		return true
	})
	freed := e.table.release(referenced)

	ctx := context.Background()
	e.metrics.collections.Add(ctx, 1)
	e.metrics.reclaimed.Add(ctx, int64(reclaimed))
	if ce := e.logger.Check(zap.DebugLevel, "collected"); ce != nil {
		ce.Write(zap.Bool("live", live), zap.Uint64("oldest", uint64(oldest)),
			zap.Int("versions", reclaimed), zap.Int("records", freed))
	}
	return reclaimed
}

// collapseChain runs when no transaction is pending: only the newest
// committed version survives, as a fresh baseline.
func (e *Engine) collapseChain(chain *keyChain) int {
	before := len(chain.versions)

	var keep *Version
	for i := len(chain.versions) - 1; i >= 0; i-- {
		v := chain.versions[i]
		if v.Writer == BaselineID || e.stateOf(v.Writer) == Committed {
			keep = v
			break
		}
	}
	if keep == nil {
		keep = baselineVersion()
		before++
	}
	keep.Writer = BaselineID
	keep.ReadTs = 0
	chain.versions = []*Version{keep}
	return before - 1
}

// pruneChain runs while transactions are pending. Aborted versions go; the
// newest committed version at or below oldest is the frontier and
// everything older than it goes.
func (e *Engine) pruneChain(chain *keyChain, oldest TxnID) int {
	before := len(chain.versions)

	frontier := 0
	for i := len(chain.versions) - 1; i >= 0; i-- {
		v := chain.versions[i]
		if v.Writer <= oldest && e.stateOf(v.Writer) == Committed {
			frontier = i
			break
		}
	}

	kept := chain.versions[:0]
	for i, v := range chain.versions {
		if i < frontier || e.stateOf(v.Writer) == Aborted {
			continue
		}
		kept = append(kept, v)
	}
	for i := len(kept); i < len(chain.versions); i++ {
		chain.versions[i] = nil
	}
	chain.versions = kept

	// every live txn sees the frontier as committed history
	if len(kept) > 0 && kept[0].Writer <= oldest && e.stateOf(kept[0].Writer) == Committed {
		kept[0].Writer = BaselineID
	}
	if len(chain.versions) == 0 {
		chain.reseed()
	}
	return before - len(chain.versions)
}

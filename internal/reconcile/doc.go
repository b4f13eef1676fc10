// Package reconcile merges the remote copy of haven's collections into the
// local one.
//
// Overview
//
// A reconciliation pass fetches the three remote tables concurrently,
// translates their rows into local types and merges each collection with a
// single last-writer-wins rule at record granularity:
//
//	local records        ──┐
//	  (stamped local)      ├──► Merge ──► new snapshot ──► Local Store (one tx)
//	remote records       ──┘                                     │
//	  (stamped cloud, win on key clash)                           ▼
//	                                                       in-memory state
//
// Records that exist only locally are kept, so edits that never reached the
// remote survive a pass. Applying the same remote snapshot twice is a no-op.
//
// Atomicity
//
// Any fetch error aborts the pass before anything is merged or written. The
// merge runs against the caller's state at commit time, under the caller's
// writer lock, and the write-back to the Local Store is a single
// transaction; nothing observes a half-merged state.
//
// Ordering
//
// Every pass takes a sequence number when it starts. A pass that finishes
// after a later-started pass has already committed is discarded with
// ErrSuperseded instead of overwriting the newer result.
//
// Usage
//
//	engine := reconcile.NewEngine(store, tracker, nil)
//	res, err := engine.Pass(ctx, adapter, core)
//	if err != nil {
//	    return err
//	}
//	log.Printf("recipes: %d cloud, %d local", res.Stats.Recipes.Cloud, res.Stats.Recipes.Local)
package reconcile

package engine

import (
	"context"
	"fmt"

	"query-engine/internal/dbexec"
	"query-engine/internal/mutaction"
	"query-engine/internal/query"
	"query-engine/internal/sqlconnector"
)

// mutationScope runs the root fields of one mutation operation on a shared
// transaction. The first failed field marks the scope so finish rolls every
// field back.
type mutationScope struct {
	tx       dbexec.TxExecutor
	store    *sqlconnector.Transaction
	failed   bool
	finished bool
}

func newMutationScope(tx dbexec.TxExecutor) *mutationScope {
	return &mutationScope{tx: tx, store: sqlconnector.NewTransaction(tx)}
}

// run executes one root field against the shared transaction.
func (s *mutationScope) run(ctx context.Context, x *mutaction.Executor, w query.WriteQuery) (FieldResult, error) {
	if s.failed {
		return FieldResult{}, fmt.Errorf("%s: skipped after an earlier failure", w.QueryName())
	}
	res, err := x.Execute(ctx, s.store, w)
	if err != nil {
		s.failed = true
		return FieldResult{}, fmt.Errorf("%s: %w", w.QueryName(), err)
	}
	return FieldResult{Key: keyOf(w.QueryAlias(), w.QueryName()), Result: res}, nil
}

// abort marks the scope failed without running anything.
func (s *mutationScope) abort() {
	s.failed = true
}

// finish commits when every field succeeded and rolls back otherwise. Later
// calls are no-ops.
func (s *mutationScope) finish() error {
	if s.finished {
		return nil
	}
	s.finished = true
	if s.failed {
		return s.tx.Rollback()
	}
	return s.tx.Commit()
}

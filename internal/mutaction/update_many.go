package mutaction

import (
	"context"

	"query-engine/internal/query"
	"query-engine/internal/schema"
)

// DefaultBatchSize bounds the number of ids in one update or delete statement.
const DefaultBatchSize = 10000

// UpdateMany assigns args and replaces listArgs on every row of model that
// matches filter. It returns the number of matched rows.
func UpdateMany(ctx context.Context, tx Transaction, model *schema.Model, filter query.Filter, args query.Args, listArgs []query.ListArg, batchSize int) (int, error) {
	ids, err := tx.FilterIDs(ctx, model, filter)
	if err != nil {
		return 0, err
	}
	return updateIDs(ctx, tx, model, ids, args, listArgs, batchSize)
}

// UpdateManyNested is UpdateMany restricted to rows linked to parentID
// through field. The updated rows belong to the related model.
func UpdateManyNested(ctx context.Context, tx Transaction, parentID query.ID, filter query.Filter, field *schema.RelationField, args query.Args, listArgs []query.ListArg, batchSize int) (int, error) {
	ids, err := tx.FilterIDsByParents(ctx, field, []query.ID{parentID}, filter)
	if err != nil {
		return 0, err
	}
	return updateIDs(ctx, tx, field.RelatedModel(), ids, args, listArgs, batchSize)
}

func updateIDs(ctx context.Context, tx Transaction, model *schema.Model, ids []query.ID, args query.Args, listArgs []query.ListArg, batchSize int) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if len(args) > 0 {
		for _, batch := range chunk(ids, batchSize) {
			if err := tx.Update(ctx, UpdateRows{Model: model, IDs: batch, Args: args}); err != nil {
				return 0, err
			}
		}
	}
	for _, list := range listArgs {
		for _, batch := range chunk(ids, batchSize) {
			if err := tx.ReplaceList(ctx, ListUpdate{Field: list.Field, IDs: batch, Values: list.Values}); err != nil {
				return 0, err
			}
		}
	}
	return len(ids), nil
}

// chunk splits ids into consecutive batches of at most size elements.
func chunk(ids []query.ID, size int) [][]query.ID {
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][]query.ID, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}

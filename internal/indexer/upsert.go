package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/fitscat/internal/storage"
	"github.com/dshills/fitscat/pkg/types"
)

// upsertRecord writes one record in its own transaction. The existence check
// and the write share the transaction so the created/updated decision
// matches what was committed.
func upsertRecord(ctx context.Context, store storage.Storage, rec *storage.FitsFile) (types.Outcome, error) {
	tx, err := store.BeginTx(ctx)
	if err != nil {
		return types.OutcomeStoreError, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	outcome := types.OutcomeUpdated
	if _, err := tx.GetFile(ctx, rec.FilePath); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return types.OutcomeStoreError, fmt.Errorf("failed to look up record: %w", err)
		}
		outcome = types.OutcomeCreated
	}

	if err := tx.UpsertFile(ctx, rec); err != nil {
		return types.OutcomeStoreError, fmt.Errorf("failed to upsert record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.OutcomeStoreError, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return outcome, nil
}

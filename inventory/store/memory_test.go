package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/caseledger/inventory"
	"github.com/warp/caseledger/inventory/store"
)

func seed(t *testing.T, m *store.Memory) inventory.RowKey {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	var key inventory.RowKey
	require.NoError(t, m.WithTx(ctx, func(tx inventory.Tx) error {
		loc, err := tx.InsertLocation(ctx, "Mesa", now)
		if err != nil {
			return err
		}
		ref := inventory.NewReceipts(loc.ID)
		if err := tx.InsertCase(ctx, inventory.Case{Ref: ref, Virtual: true, Active: true}); err != nil {
			return err
		}
		if err := tx.PutProduct(ctx, inventory.Product{UPC: "A", CreatedAt: now}); err != nil {
			return err
		}
		key = inventory.RowKey{Case: ref, UPC: "A", Sub: inventory.SubCase}
		return tx.AddQuantity(ctx, key, 3)
	}))
	return key
}

func TestMemory_WithTx_RollbackRestoresState(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	key := seed(t, m)

	// WHEN: A transaction mutates, then fails
	boom := errors.New("boom")
	err := m.WithTx(ctx, func(tx inventory.Tx) error {
		if _, err := tx.SubtractQuantity(ctx, key, 3); err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, &inventory.HistoryEvent{Action: inventory.ActionMissing}); err != nil {
			return err
		}
		return boom
	})

	// THEN: Nothing persisted
	assert.ErrorIs(t, err, boom)
	qty, err := m.Quantity(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 3, qty)
	events, err := m.QueryEvents(ctx, inventory.HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestMemory_SubtractToZero_DeletesRow(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	key := seed(t, m)

	require.NoError(t, m.WithTx(ctx, func(tx inventory.Tx) error {
		remaining, err := tx.SubtractQuantity(ctx, key, 3)
		assert.Equal(t, 0, remaining)
		return err
	}))

	rows, err := m.Rows(ctx, inventory.RowFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMemory_AddQuantity_UnknownProduct(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	key := seed(t, m)
	key.UPC = "nope"

	err := m.WithTx(ctx, func(tx inventory.Tx) error { return tx.AddQuantity(ctx, key, 1) })

	assert.ErrorIs(t, err, inventory.ErrInvalidUPC)
}

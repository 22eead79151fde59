package store

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"payanchor/internal/db"
	"payanchor/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real database only when TEST_DATABASE_URL is set, e.g.
// postgres://postgres:@localhost/payanchor_test?sslmode=disable
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../../migrations/001_init.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)

	return New(pool)
}

func TestDefinitionLifecycle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	def := &models.PaymentDefinition{
		ID:                       uuid.NewString(),
		Name:                     "D1",
		Author:                   "0x0000000000000000000000000000000000000001",
		DescriptionSchema:        json.RawMessage(`{"type":"object"}`),
		DescriptionSchemaAddress: "QmAddr",
		DescriptionSchemaHash:    "0x1111111111111111111111111111111111111111111111111111111111111111",
		Status:                   models.StatusSubmitted,
		Timestamp:                1000,
	}
	require.NoError(t, st.CreateDefinition(ctx, def))

	got, err := st.GetDefinition(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, got.Status)
	assert.Nil(t, got.LedgerRef)
	assert.JSONEq(t, `{"type":"object"}`, string(got.DescriptionSchema))

	defs, err := st.ListDefinitions(ctx)
	require.NoError(t, err)
	found := false
	for _, d := range defs {
		if d.ID == def.ID {
			found = true
		}
	}
	assert.True(t, found)

	conf := models.Confirmation{Timestamp: 1630000000, BlockNumber: 123, TransactionHash: "0xabc"}
	res, err := st.ConfirmDefinition(ctx, def.ID, conf)
	require.NoError(t, err)
	assert.Equal(t, Applied, res)

	got, err = st.GetDefinition(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, int64(1630000000), got.Timestamp)
	require.NotNil(t, got.LedgerRef)
	assert.Equal(t, int64(123), got.LedgerRef.BlockNumber)
	assert.Equal(t, "0xabc", got.LedgerRef.TransactionHash)

	// Second confirmation is a no-op that leaves metadata untouched.
	res, err = st.ConfirmDefinition(ctx, def.ID, models.Confirmation{Timestamp: 9, BlockNumber: 999, TransactionHash: "0xother"})
	require.NoError(t, err)
	assert.Equal(t, AlreadyConfirmed, res)

	again, err := st.GetDefinition(ctx, def.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(123), again.LedgerRef.BlockNumber)
	assert.Equal(t, "0xabc", again.LedgerRef.TransactionHash)
}

func TestConfirmMissingDefinition(t *testing.T) {
	st := testStore(t)

	res, err := st.ConfirmDefinition(context.Background(), uuid.NewString(), models.Confirmation{})
	require.NoError(t, err)
	assert.Equal(t, NoRecord, res)
}

func TestGetMissingDefinition(t *testing.T) {
	st := testStore(t)

	_, err := st.GetDefinition(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInstanceLifecycle(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	def := &models.PaymentDefinition{
		ID:        uuid.NewString(),
		Name:      "D1",
		Author:    "0x0000000000000000000000000000000000000001",
		Status:    models.StatusSubmitted,
		Timestamp: 1000,
	}
	require.NoError(t, st.CreateDefinition(ctx, def))

	inst := &models.PaymentInstance{
		ID:           uuid.NewString(),
		DefinitionID: def.ID,
		Author:       "0x0000000000000000000000000000000000000001",
		Recipient:    "0x0000000000000000000000000000000000000002",
		Amount:       decimal.RequireFromString("10.5"),
		Status:       models.StatusSubmitted,
		Timestamp:    1000,
	}
	require.NoError(t, st.CreateInstance(ctx, inst))

	got, err := st.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("10.5")))
	assert.Equal(t, def.ID, got.DefinitionID)
	assert.Nil(t, got.LedgerRef)

	res, err := st.ConfirmInstance(ctx, inst.ID, models.Confirmation{Timestamp: 1630000000, BlockNumber: 123, TransactionHash: "0xabc"})
	require.NoError(t, err)
	assert.Equal(t, Applied, res)

	got, err = st.GetInstance(ctx, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	require.NotNil(t, got.LedgerRef)
	assert.Equal(t, int64(123), got.LedgerRef.BlockNumber)
}

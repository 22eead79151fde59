package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"payanchor/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by lookups for ids with no stored record.
var ErrNotFound = errors.New("record not found")

// ConfirmResult reports the outcome of a conditional confirmation update.
type ConfirmResult int

const (
	// Applied means this call performed the submitted -> confirmed transition.
	Applied ConfirmResult = iota
	// AlreadyConfirmed means the record was confirmed by an earlier call.
	// Callers treat it as a no-op, not an error.
	AlreadyConfirmed
	// NoRecord means no record exists for the id.
	NoRecord
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

func (s *Store) CreateDefinition(ctx context.Context, def *models.PaymentDefinition) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO payment_definitions (
			id, name, author, description_schema, description_schema_address,
			description_schema_hash, status, ts
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		def.ID,
		def.Name,
		def.Author,
		nullJSON(def.DescriptionSchema),
		nullString(def.DescriptionSchemaAddress),
		nullString(def.DescriptionSchemaHash),
		def.Status,
		def.Timestamp,
	)
	return err
}

func (s *Store) GetDefinition(ctx context.Context, id string) (*models.PaymentDefinition, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, name, author, description_schema, description_schema_address,
			description_schema_hash, status, ts, block_number, transaction_hash,
			created_at, updated_at
		FROM payment_definitions WHERE id=$1
	`, id)
	def, err := scanDefinition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return def, nil
}

func (s *Store) ListDefinitions(ctx context.Context) ([]*models.PaymentDefinition, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, name, author, description_schema, description_schema_address,
			description_schema_hash, status, ts, block_number, transaction_hash,
			created_at, updated_at
		FROM payment_definitions
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []*models.PaymentDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// ConfirmDefinition applies the submitted -> confirmed transition. The
// conditional WHERE is what makes confirmation idempotent under concurrent
// deliveries: exactly one update wins, the rest observe AlreadyConfirmed.
func (s *Store) ConfirmDefinition(ctx context.Context, id string, conf models.Confirmation) (ConfirmResult, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE payment_definitions
		SET status='confirmed', ts=$2, block_number=$3, transaction_hash=$4, updated_at=now()
		WHERE id=$1 AND status='submitted'
	`, id, conf.Timestamp, conf.BlockNumber, conf.TransactionHash)
	if err != nil {
		return NoRecord, err
	}
	if res.RowsAffected() > 0 {
		return Applied, nil
	}
	return s.confirmMiss(ctx, "payment_definitions", id)
}

func (s *Store) CreateInstance(ctx context.Context, inst *models.PaymentInstance) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO payment_instances (
			id, definition_id, author, recipient, amount, description,
			description_address, description_hash, status, ts
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		inst.ID,
		inst.DefinitionID,
		inst.Author,
		inst.Recipient,
		inst.Amount.String(),
		nullJSON(inst.Description),
		nullString(inst.DescriptionAddress),
		nullString(inst.DescriptionHash),
		inst.Status,
		inst.Timestamp,
	)
	return err
}

func (s *Store) GetInstance(ctx context.Context, id string) (*models.PaymentInstance, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, definition_id, author, recipient, amount, description,
			description_address, description_hash, status, ts, block_number,
			transaction_hash, created_at, updated_at
		FROM payment_instances WHERE id=$1
	`, id)
	inst, err := scanInstance(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return inst, nil
}

func (s *Store) ListInstances(ctx context.Context) ([]*models.PaymentInstance, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, definition_id, author, recipient, amount, description,
			description_address, description_hash, status, ts, block_number,
			transaction_hash, created_at, updated_at
		FROM payment_instances
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var insts []*models.PaymentInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		insts = append(insts, inst)
	}
	return insts, rows.Err()
}

func (s *Store) ConfirmInstance(ctx context.Context, id string, conf models.Confirmation) (ConfirmResult, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE payment_instances
		SET status='confirmed', ts=$2, block_number=$3, transaction_hash=$4, updated_at=now()
		WHERE id=$1 AND status='submitted'
	`, id, conf.Timestamp, conf.BlockNumber, conf.TransactionHash)
	if err != nil {
		return NoRecord, err
	}
	if res.RowsAffected() > 0 {
		return Applied, nil
	}
	return s.confirmMiss(ctx, "payment_instances", id)
}

func (s *Store) confirmMiss(ctx context.Context, table, id string) (ConfirmResult, error) {
	var exists bool
	row := s.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id=$1)`, id)
	if err := row.Scan(&exists); err != nil {
		return NoRecord, err
	}
	if exists {
		return AlreadyConfirmed, nil
	}
	return NoRecord, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanDefinition(row scannable) (*models.PaymentDefinition, error) {
	var def models.PaymentDefinition
	var schema []byte
	var schemaAddress sql.NullString
	var schemaHash sql.NullString
	var blockNumber sql.NullInt64
	var txHash sql.NullString

	err := row.Scan(
		&def.ID,
		&def.Name,
		&def.Author,
		&schema,
		&schemaAddress,
		&schemaHash,
		&def.Status,
		&def.Timestamp,
		&blockNumber,
		&txHash,
		&def.CreatedAt,
		&def.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(schema) > 0 {
		def.DescriptionSchema = json.RawMessage(schema)
	}
	if schemaAddress.Valid {
		def.DescriptionSchemaAddress = schemaAddress.String
	}
	if schemaHash.Valid {
		def.DescriptionSchemaHash = schemaHash.String
	}
	if blockNumber.Valid && txHash.Valid {
		def.LedgerRef = &models.LedgerRef{
			BlockNumber:     blockNumber.Int64,
			TransactionHash: txHash.String,
		}
	}
	return &def, nil
}

func scanInstance(row scannable) (*models.PaymentInstance, error) {
	var inst models.PaymentInstance
	var amount string
	var description []byte
	var descriptionAddress sql.NullString
	var descriptionHash sql.NullString
	var blockNumber sql.NullInt64
	var txHash sql.NullString

	err := row.Scan(
		&inst.ID,
		&inst.DefinitionID,
		&inst.Author,
		&inst.Recipient,
		&amount,
		&description,
		&descriptionAddress,
		&descriptionHash,
		&inst.Status,
		&inst.Timestamp,
		&blockNumber,
		&txHash,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	inst.Amount = amt

	if len(description) > 0 {
		inst.Description = json.RawMessage(description)
	}
	if descriptionAddress.Valid {
		inst.DescriptionAddress = descriptionAddress.String
	}
	if descriptionHash.Valid {
		inst.DescriptionHash = descriptionHash.String
	}
	if blockNumber.Valid && txHash.Valid {
		inst.LedgerRef = &models.LedgerRef{
			BlockNumber:     blockNumber.Int64,
			TransactionHash: txHash.String,
		}
	}
	return &inst, nil
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullJSON(v json.RawMessage) any {
	if len(v) == 0 {
		return nil
	}
	return []byte(v)
}

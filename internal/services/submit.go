package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"payanchor/internal/ledger"
	"payanchor/internal/models"
	"payanchor/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrMissingName       = errors.New("missing name")
	ErrInvalidAuthor     = errors.New("invalid author address")
	ErrInvalidRecipient  = errors.New("invalid recipient address")
	ErrInvalidAmount     = errors.New("amount must be non-negative")
	ErrReferenceNotFound = errors.New("payment definition not found")
	ErrLedgerSubmission  = errors.New("ledger submission failed")
)

// Records is the Record Store surface the coordinator writes through.
type Records interface {
	CreateDefinition(ctx context.Context, def *models.PaymentDefinition) error
	GetDefinition(ctx context.Context, id string) (*models.PaymentDefinition, error)
	ListDefinitions(ctx context.Context) ([]*models.PaymentDefinition, error)
	CreateInstance(ctx context.Context, inst *models.PaymentInstance) error
	GetInstance(ctx context.Context, id string) (*models.PaymentInstance, error)
	ListInstances(ctx context.Context) ([]*models.PaymentInstance, error)
}

type ContentStore interface {
	Store(ctx context.Context, doc json.RawMessage) (address string, hash string, err error)
}

type LedgerGateway interface {
	Invoke(ctx context.Context, operation, from string, args any) error
}

// Submitter is the submission coordinator: it persists the local
// submitted record, pushes optional content, and broadcasts the ledger
// transaction. Confirmation arrives later via the reconciler.
type Submitter struct {
	Records Records
	Content ContentStore
	Ledger  LedgerGateway
}

type SubmitDefinitionRequest struct {
	Name              string
	Author            string
	DescriptionSchema json.RawMessage
}

type SubmitInstanceRequest struct {
	DefinitionID string
	Author       string
	Recipient    string
	Amount       decimal.Decimal
	Description  json.RawMessage
}

func (s *Submitter) SubmitDefinition(ctx context.Context, req SubmitDefinitionRequest) (*models.PaymentDefinition, error) {
	if req.Name == "" {
		return nil, ErrMissingName
	}
	if !ledger.ValidAddress(req.Author) {
		return nil, ErrInvalidAuthor
	}

	var address, hash string
	if len(req.DescriptionSchema) > 0 {
		var err error
		address, hash, err = s.Content.Store(ctx, req.DescriptionSchema)
		if err != nil {
			return nil, err
		}
	}

	def := &models.PaymentDefinition{
		ID:                       uuid.NewString(),
		Name:                     req.Name,
		Author:                   req.Author,
		DescriptionSchema:        req.DescriptionSchema,
		DescriptionSchemaAddress: address,
		DescriptionSchemaHash:    hash,
		Status:                   models.StatusSubmitted,
		Timestamp:                time.Now().UTC().Unix(),
	}
	if err := s.Records.CreateDefinition(ctx, def); err != nil {
		return nil, err
	}

	ledgerID, err := ledger.UUIDToHex(def.ID)
	if err != nil {
		return nil, err
	}
	operation := "createPaymentDefinition"
	args := map[string]any{
		"paymentDefinitionID": ledgerID,
		"name":                def.Name,
	}
	if hash != "" {
		operation = "createDescribedPaymentDefinition"
		args["descriptionSchemaHash"] = hash
	}
	// No rollback on broadcast failure: the record stays submitted and is
	// reconciled externally (accepted failure mode).
	if err := s.Ledger.Invoke(ctx, operation, def.Author, args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerSubmission, err)
	}
	return def, nil
}

func (s *Submitter) SubmitInstance(ctx context.Context, req SubmitInstanceRequest) (*models.PaymentInstance, error) {
	if !ledger.ValidAddress(req.Author) {
		return nil, ErrInvalidAuthor
	}
	if !ledger.ValidAddress(req.Recipient) {
		return nil, ErrInvalidRecipient
	}
	if req.Amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	if _, err := s.Records.GetDefinition(ctx, req.DefinitionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrReferenceNotFound
		}
		return nil, err
	}

	var address, hash string
	if len(req.Description) > 0 {
		var err error
		address, hash, err = s.Content.Store(ctx, req.Description)
		if err != nil {
			return nil, err
		}
	}

	inst := &models.PaymentInstance{
		ID:                 uuid.NewString(),
		DefinitionID:       req.DefinitionID,
		Author:             req.Author,
		Recipient:          req.Recipient,
		Amount:             req.Amount,
		Description:        req.Description,
		DescriptionAddress: address,
		DescriptionHash:    hash,
		Status:             models.StatusSubmitted,
		Timestamp:          time.Now().UTC().Unix(),
	}
	if err := s.Records.CreateInstance(ctx, inst); err != nil {
		return nil, err
	}

	ledgerID, err := ledger.UUIDToHex(inst.ID)
	if err != nil {
		return nil, err
	}
	ledgerDefID, err := ledger.UUIDToHex(inst.DefinitionID)
	if err != nil {
		return nil, err
	}
	operation := "createPaymentInstance"
	args := map[string]any{
		"paymentInstanceID":   ledgerID,
		"paymentDefinitionID": ledgerDefID,
		"recipient":           inst.Recipient,
		"amount":              inst.Amount.String(),
	}
	if hash != "" {
		operation = "createDescribedPaymentInstance"
		args["descriptionHash"] = hash
	}
	if err := s.Ledger.Invoke(ctx, operation, inst.Author, args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerSubmission, err)
	}
	return inst, nil
}

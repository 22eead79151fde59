package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusConfirmed Status = "confirmed"
)

// LedgerRef is the block metadata attached when a record is confirmed.
// Present iff Status == StatusConfirmed.
type LedgerRef struct {
	BlockNumber     int64
	TransactionHash string
}

type PaymentDefinition struct {
	ID                       string
	Name                     string
	Author                   string
	DescriptionSchema        json.RawMessage
	DescriptionSchemaAddress string
	DescriptionSchemaHash    string
	Status                   Status
	Timestamp                int64
	LedgerRef                *LedgerRef
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

type PaymentInstance struct {
	ID                 string
	DefinitionID       string
	Author             string
	Recipient          string
	Amount             decimal.Decimal
	Description        json.RawMessage
	DescriptionAddress string
	DescriptionHash    string
	Status             Status
	Timestamp          int64
	LedgerRef          *LedgerRef
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Confirmation carries the ledger-reported fields applied on the
// submitted -> confirmed transition.
type Confirmation struct {
	Timestamp       int64
	BlockNumber     int64
	TransactionHash string
}

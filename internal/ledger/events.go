package ledger

import (
	"encoding/json"
	"errors"
	"strconv"
)

// Contract event signatures carried by the event stream. The signature
// string is the routing key for the payload variant.
const (
	SigPaymentDefinitionCreated          = "PaymentDefinitionCreated(bytes32,address,string,uint256)"
	SigDescribedPaymentDefinitionCreated = "DescribedPaymentDefinitionCreated(bytes32,address,string,bytes32,uint256)"
	SigPaymentInstanceCreated            = "PaymentInstanceCreated(bytes32,bytes32,address,address,uint256,uint256)"
	SigDescribedPaymentInstanceCreated   = "DescribedPaymentInstanceCreated(bytes32,bytes32,address,address,uint256,bytes32,uint256)"
)

// RawEvent is one entry of a stream batch.
type RawEvent struct {
	Signature       string          `json:"signature"`
	Data            json.RawMessage `json:"data"`
	BlockNumber     string          `json:"blockNumber"`
	TransactionHash string          `json:"transactionHash"`
}

type DefinitionCreated struct {
	PaymentDefinitionID   string `json:"paymentDefinitionID"`
	Author                string `json:"author"`
	Name                  string `json:"name"`
	DescriptionSchemaHash string `json:"descriptionSchemaHash,omitempty"`
	Timestamp             string `json:"timestamp"`
}

type InstanceCreated struct {
	PaymentInstanceID   string `json:"paymentInstanceID"`
	PaymentDefinitionID string `json:"paymentDefinitionID"`
	Author              string `json:"author"`
	Recipient           string `json:"recipient"`
	Amount              string `json:"amount"`
	DescriptionHash     string `json:"descriptionHash,omitempty"`
	Timestamp           string `json:"timestamp"`
}

// Decode routes the payload by signature and validates the variant's
// required fields. Unknown signatures return ok=false and are skippable.
func Decode(ev RawEvent) (any, bool, error) {
	switch ev.Signature {
	case SigPaymentDefinitionCreated, SigDescribedPaymentDefinitionCreated:
		var data DefinitionCreated
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return nil, false, err
		}
		if data.PaymentDefinitionID == "" || data.Timestamp == "" {
			return nil, false, errors.New("definition event missing required fields")
		}
		if ev.Signature == SigDescribedPaymentDefinitionCreated && data.DescriptionSchemaHash == "" {
			return nil, false, errors.New("described definition event missing schema hash")
		}
		return &data, true, nil

	case SigPaymentInstanceCreated, SigDescribedPaymentInstanceCreated:
		var data InstanceCreated
		if err := json.Unmarshal(ev.Data, &data); err != nil {
			return nil, false, err
		}
		if data.PaymentInstanceID == "" || data.Timestamp == "" {
			return nil, false, errors.New("instance event missing required fields")
		}
		if ev.Signature == SigDescribedPaymentInstanceCreated && data.DescriptionHash == "" {
			return nil, false, errors.New("described instance event missing description hash")
		}
		return &data, true, nil
	}
	return nil, false, nil
}

func ParseInt64(v string) (int64, error) {
	if v == "" {
		return 0, errors.New("empty int string")
	}
	return strconv.ParseInt(v, 10, 64)
}

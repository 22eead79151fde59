package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"payanchor/internal/models"
	"payanchor/internal/services"
	"payanchor/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type Submitter interface {
	SubmitDefinition(ctx context.Context, req services.SubmitDefinitionRequest) (*models.PaymentDefinition, error)
	SubmitInstance(ctx context.Context, req services.SubmitInstanceRequest) (*models.PaymentInstance, error)
}

type Query interface {
	ListDefinitions(ctx context.Context) ([]*models.PaymentDefinition, error)
	GetDefinition(ctx context.Context, id string) (*models.PaymentDefinition, error)
	ListInstances(ctx context.Context) ([]*models.PaymentInstance, error)
	GetInstance(ctx context.Context, id string) (*models.PaymentInstance, error)
}

type Handler struct {
	Submit Submitter
	Query  Query
}

func NewHandler(submit Submitter, query Query) *Handler {
	return &Handler{Submit: submit, Query: query}
}

type createDefinitionRequest struct {
	Name              string          `json:"name"`
	Author            string          `json:"author"`
	DescriptionSchema json.RawMessage `json:"descriptionSchema,omitempty"`
}

type createInstanceRequest struct {
	PaymentDefinitionID string          `json:"paymentDefinitionID"`
	Author              string          `json:"author"`
	Recipient           string          `json:"recipient"`
	Amount              decimal.Decimal `json:"amount"`
	Description         json.RawMessage `json:"description,omitempty"`
}

type blockchainData struct {
	BlockNumber     int64  `json:"blockNumber"`
	TransactionHash string `json:"transactionHash"`
}

type definitionResponse struct {
	PaymentDefinitionID      string          `json:"paymentDefinitionID"`
	Name                     string          `json:"name"`
	Author                   string          `json:"author"`
	DescriptionSchema        json.RawMessage `json:"descriptionSchema,omitempty"`
	DescriptionSchemaAddress string          `json:"descriptionSchemaAddress,omitempty"`
	DescriptionSchemaHash    string          `json:"descriptionSchemaHash,omitempty"`
	Status                   string          `json:"status"`
	Confirmed                bool            `json:"confirmed"`
	Timestamp                int64           `json:"timestamp"`
	BlockchainData           *blockchainData `json:"blockchainData,omitempty"`
}

type instanceResponse struct {
	PaymentInstanceID   string          `json:"paymentInstanceID"`
	PaymentDefinitionID string          `json:"paymentDefinitionID"`
	Author              string          `json:"author"`
	Recipient           string          `json:"recipient"`
	Amount              decimal.Decimal `json:"amount"`
	Description         json.RawMessage `json:"description,omitempty"`
	DescriptionAddress  string          `json:"descriptionAddress,omitempty"`
	DescriptionHash     string          `json:"descriptionHash,omitempty"`
	Status              string          `json:"status"`
	Confirmed           bool            `json:"confirmed"`
	Timestamp           int64           `json:"timestamp"`
	BlockchainData      *blockchainData `json:"blockchainData,omitempty"`
}

func (h *Handler) CreateDefinition(w http.ResponseWriter, r *http.Request) {
	var req createDefinitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	def, err := h.Submit.SubmitDefinition(r.Context(), services.SubmitDefinitionRequest{
		Name:              req.Name,
		Author:            req.Author,
		DescriptionSchema: req.DescriptionSchema,
	})
	if err != nil {
		writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"paymentDefinitionID": def.ID,
		"status":              string(def.Status),
	})
}

func (h *Handler) ListDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := h.Query.ListDefinitions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list definitions failed")
		return
	}
	out := make([]definitionResponse, 0, len(defs))
	for _, def := range defs {
		out = append(out, toDefinitionResponse(def))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetDefinition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "definitionID")
	def, err := h.Query.GetDefinition(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "payment definition not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get definition failed")
		return
	}
	writeJSON(w, http.StatusOK, toDefinitionResponse(def))
}

func (h *Handler) CreateInstance(w http.ResponseWriter, r *http.Request) {
	var req createInstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	inst, err := h.Submit.SubmitInstance(r.Context(), services.SubmitInstanceRequest{
		DefinitionID: req.PaymentDefinitionID,
		Author:       req.Author,
		Recipient:    req.Recipient,
		Amount:       req.Amount,
		Description:  req.Description,
	})
	if err != nil {
		writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"paymentInstanceID": inst.ID,
		"status":            string(inst.Status),
	})
}

func (h *Handler) ListInstances(w http.ResponseWriter, r *http.Request) {
	insts, err := h.Query.ListInstances(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list instances failed")
		return
	}
	out := make([]instanceResponse, 0, len(insts))
	for _, inst := range insts {
		out = append(out, toInstanceResponse(inst))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetInstance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "instanceID")
	inst, err := h.Query.GetInstance(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "payment instance not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get instance failed")
		return
	}
	writeJSON(w, http.StatusOK, toInstanceResponse(inst))
}

func writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrMissingName),
		errors.Is(err, services.ErrInvalidAuthor),
		errors.Is(err, services.ErrInvalidRecipient),
		errors.Is(err, services.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrReferenceNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrLedgerSubmission):
		writeError(w, http.StatusBadGateway, "ledger submission failed")
	default:
		writeError(w, http.StatusInternalServerError, "submission failed")
	}
}

func toDefinitionResponse(def *models.PaymentDefinition) definitionResponse {
	resp := definitionResponse{
		PaymentDefinitionID:      def.ID,
		Name:                     def.Name,
		Author:                   def.Author,
		DescriptionSchema:        def.DescriptionSchema,
		DescriptionSchemaAddress: def.DescriptionSchemaAddress,
		DescriptionSchemaHash:    def.DescriptionSchemaHash,
		Status:                   string(def.Status),
		Confirmed:                def.Status == models.StatusConfirmed,
		Timestamp:                def.Timestamp,
	}
	if def.LedgerRef != nil {
		resp.BlockchainData = &blockchainData{
			BlockNumber:     def.LedgerRef.BlockNumber,
			TransactionHash: def.LedgerRef.TransactionHash,
		}
	}
	return resp
}

func toInstanceResponse(inst *models.PaymentInstance) instanceResponse {
	resp := instanceResponse{
		PaymentInstanceID:   inst.ID,
		PaymentDefinitionID: inst.DefinitionID,
		Author:              inst.Author,
		Recipient:           inst.Recipient,
		Amount:              inst.Amount,
		Description:         inst.Description,
		DescriptionAddress:  inst.DescriptionAddress,
		DescriptionHash:     inst.DescriptionHash,
		Status:              string(inst.Status),
		Confirmed:           inst.Status == models.StatusConfirmed,
		Timestamp:           inst.Timestamp,
	}
	if inst.LedgerRef != nil {
		resp.BlockchainData = &blockchainData{
			BlockNumber:     inst.LedgerRef.BlockNumber,
			TransactionHash: inst.LedgerRef.TransactionHash,
		}
	}
	return resp
}

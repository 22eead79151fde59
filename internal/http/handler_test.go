package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"payanchor/internal/models"
	"payanchor/internal/services"
	"payanchor/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	defs  map[string]*models.PaymentDefinition
	insts map[string]*models.PaymentInstance
	err   error
}

func newFakeService() *fakeService {
	return &fakeService{
		defs:  map[string]*models.PaymentDefinition{},
		insts: map[string]*models.PaymentInstance{},
	}
}

func (f *fakeService) SubmitDefinition(ctx context.Context, req services.SubmitDefinitionRequest) (*models.PaymentDefinition, error) {
	if f.err != nil {
		return nil, f.err
	}
	def := &models.PaymentDefinition{
		ID:                "4bda1f1c-6ab7-4f0f-9a1a-b1c0e02dbd21",
		Name:              req.Name,
		Author:            req.Author,
		DescriptionSchema: req.DescriptionSchema,
		Status:            models.StatusSubmitted,
		Timestamp:         1630000000,
	}
	f.defs[def.ID] = def
	return def, nil
}

func (f *fakeService) SubmitInstance(ctx context.Context, req services.SubmitInstanceRequest) (*models.PaymentInstance, error) {
	if f.err != nil {
		return nil, f.err
	}
	inst := &models.PaymentInstance{
		ID:           "e9971f7c-867b-488a-9c2b-3b0ce2a4bd4f",
		DefinitionID: req.DefinitionID,
		Author:       req.Author,
		Recipient:    req.Recipient,
		Amount:       req.Amount,
		Status:       models.StatusSubmitted,
		Timestamp:    1630000000,
	}
	f.insts[inst.ID] = inst
	return inst, nil
}

func (f *fakeService) ListDefinitions(ctx context.Context) ([]*models.PaymentDefinition, error) {
	out := make([]*models.PaymentDefinition, 0, len(f.defs))
	for _, def := range f.defs {
		out = append(out, def)
	}
	return out, nil
}

func (f *fakeService) GetDefinition(ctx context.Context, id string) (*models.PaymentDefinition, error) {
	def, ok := f.defs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return def, nil
}

func (f *fakeService) ListInstances(ctx context.Context) ([]*models.PaymentInstance, error) {
	out := make([]*models.PaymentInstance, 0, len(f.insts))
	for _, inst := range f.insts {
		out = append(out, inst)
	}
	return out, nil
}

func (f *fakeService) GetInstance(ctx context.Context, id string) (*models.PaymentInstance, error) {
	inst, ok := f.insts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return inst, nil
}

func newTestServer() (*fakeService, *httptest.Server) {
	svc := newFakeService()
	srv := NewServer(NewHandler(svc, svc))
	return svc, httptest.NewServer(srv.Router)
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestCreateDefinition(t *testing.T) {
	_, srv := newTestServer()
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/v1/payments/definitions", map[string]any{
		"name":   "D1",
		"author": "0x0000000000000000000000000000000000000001",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "submitted", body["status"])
	assert.NotEmpty(t, body["paymentDefinitionID"])
}

func TestGetDefinitionSubmitted(t *testing.T) {
	svc, srv := newTestServer()
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/v1/payments/definitions", map[string]any{
		"name":   "D1",
		"author": "0x0000000000000000000000000000000000000001",
	})
	resp.Body.Close()
	require.Len(t, svc.defs, 1)

	var id string
	for k := range svc.defs {
		id = k
	}
	resp, err := http.Get(srv.URL + "/api/v1/payments/definitions/" + id)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body definitionResponse
	decodeBody(t, resp, &body)
	assert.Equal(t, "D1", body.Name)
	assert.False(t, body.Confirmed)
	assert.Equal(t, "submitted", body.Status)
	assert.Nil(t, body.BlockchainData)
}

func TestGetDefinitionConfirmed(t *testing.T) {
	svc, srv := newTestServer()
	defer srv.Close()

	svc.defs["4bda1f1c-6ab7-4f0f-9a1a-b1c0e02dbd21"] = &models.PaymentDefinition{
		ID:        "4bda1f1c-6ab7-4f0f-9a1a-b1c0e02dbd21",
		Name:      "D1",
		Author:    "0x0000000000000000000000000000000000000001",
		Status:    models.StatusConfirmed,
		Timestamp: 1630000000,
		LedgerRef: &models.LedgerRef{BlockNumber: 123, TransactionHash: "0xabc"},
	}

	resp, err := http.Get(srv.URL + "/api/v1/payments/definitions/4bda1f1c-6ab7-4f0f-9a1a-b1c0e02dbd21")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body definitionResponse
	decodeBody(t, resp, &body)
	assert.True(t, body.Confirmed)
	require.NotNil(t, body.BlockchainData)
	assert.Equal(t, int64(123), body.BlockchainData.BlockNumber)
	assert.Equal(t, "0xabc", body.BlockchainData.TransactionHash)
}

func TestGetDefinitionNotFound(t *testing.T) {
	_, srv := newTestServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/payments/definitions/unknown")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateInstanceReferenceNotFound(t *testing.T) {
	svc, srv := newTestServer()
	defer srv.Close()
	svc.err = services.ErrReferenceNotFound

	resp := postJSON(t, srv.URL+"/api/v1/payments/instances", map[string]any{
		"paymentDefinitionID": "missing",
		"author":              "0x0000000000000000000000000000000000000001",
		"recipient":           "0x0000000000000000000000000000000000000002",
		"amount":              10,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateInstance(t *testing.T) {
	_, srv := newTestServer()
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/api/v1/payments/instances", map[string]any{
		"paymentDefinitionID": "4bda1f1c-6ab7-4f0f-9a1a-b1c0e02dbd21",
		"author":              "0x0000000000000000000000000000000000000001",
		"recipient":           "0x0000000000000000000000000000000000000002",
		"amount":              10,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "submitted", body["status"])
	assert.NotEmpty(t, body["paymentInstanceID"])
}

func TestListInstances(t *testing.T) {
	svc, srv := newTestServer()
	defer srv.Close()

	svc.insts["e9971f7c-867b-488a-9c2b-3b0ce2a4bd4f"] = &models.PaymentInstance{
		ID:           "e9971f7c-867b-488a-9c2b-3b0ce2a4bd4f",
		DefinitionID: "4bda1f1c-6ab7-4f0f-9a1a-b1c0e02dbd21",
		Author:       "0x0000000000000000000000000000000000000001",
		Recipient:    "0x0000000000000000000000000000000000000002",
		Amount:       decimal.NewFromInt(10),
		Status:       models.StatusSubmitted,
	}

	resp, err := http.Get(srv.URL + "/api/v1/payments/instances")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body []instanceResponse
	decodeBody(t, resp, &body)
	require.Len(t, body, 1)
	assert.True(t, body[0].Amount.Equal(decimal.NewFromInt(10)))
	assert.False(t, body[0].Confirmed)
}

func TestCreateDefinitionBadRequests(t *testing.T) {
	svc, srv := newTestServer()
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/payments/definitions", "application/json", bytes.NewReader([]byte("{broken")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	svc.err = services.ErrInvalidAuthor
	resp = postJSON(t, srv.URL+"/api/v1/payments/definitions", map[string]any{"name": "D1", "author": "nope"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	svc.err = services.ErrLedgerSubmission
	resp = postJSON(t, srv.URL+"/api/v1/payments/definitions", map[string]any{"name": "D1", "author": "0x0000000000000000000000000000000000000001"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

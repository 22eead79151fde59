package services

import (
	"context"

	"payanchor/internal/models"
)

// Query is the read-only projection over the Record Store.
type Query struct {
	Records Records
}

func (q *Query) ListDefinitions(ctx context.Context) ([]*models.PaymentDefinition, error) {
	return q.Records.ListDefinitions(ctx)
}

func (q *Query) GetDefinition(ctx context.Context, id string) (*models.PaymentDefinition, error) {
	return q.Records.GetDefinition(ctx, id)
}

func (q *Query) ListInstances(ctx context.Context) ([]*models.PaymentInstance, error) {
	return q.Records.ListInstances(ctx)
}

func (q *Query) GetInstance(ctx context.Context, id string) (*models.PaymentInstance, error) {
	return q.Records.GetInstance(ctx, id)
}

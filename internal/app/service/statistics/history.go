package statistics

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/fatflowers/lifecycle/internal/models"
	"github.com/fatflowers/lifecycle/pkg/types"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type ListTransactionsRequest struct {
	Filters types.CommonFilters `json:"filters"`
	Offset  int                 `json:"offset"`
	Limit   int                 `json:"limit"`
}

type ListTransactionsResponse struct {
	Items []*models.TransactionHistory `json:"items"`
	Total int64                        `json:"total"`
}

// ListTransactions pages through the ledger newest first.
func (s *Service) ListTransactions(ctx context.Context, req *ListTransactionsRequest) (*ListTransactionsResponse, error) {
	if err := req.Filters.Validate(FilterFields); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)
	offset := max(req.Offset, 0)

	resp := &ListTransactionsResponse{}
	if err := s.ledger(ctx, req.Filters).Count(&resp.Total).Error; err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}
	err := s.ledger(ctx, req.Filters).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Offset(offset).Limit(limit).
		Find(&resp.Items).Error
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return resp, nil
}

package statistics

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/lifecycle/internal/models"
	"github.com/fatflowers/lifecycle/pkg/config"
	"github.com/fatflowers/lifecycle/pkg/types"
)

type StatisticType string

const (
	StatisticTypeDailyTransactionCount StatisticType = "daily_transaction_count"
	StatisticTypeDailyRevenue          StatisticType = "daily_revenue"
	StatisticTypeTotalRevenue          StatisticType = "total_revenue"
	StatisticTypeRevenueByType         StatisticType = "revenue_by_type"
	StatisticTypeDailyRenewalCount     StatisticType = "daily_renewal_count"
)

// FilterFields are the transaction_histories columns a request may filter on.
var FilterFields = []string{
	"user_email", "user_type", "plan_name", "billing_cycle", "transaction_type",
	"currency", "payment_method", "status", "created_at",
}

type StatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type StatisticRequest struct {
	Filters   types.CommonFilters  `json:"filters"`
	DataItems []*StatisticDataItem `json:"data_items"`
}

func (r *StatisticRequest) Validate() error {
	if len(r.DataItems) == 0 {
		return fmt.Errorf("data_items is empty")
	}
	for _, di := range r.DataItems {
		if di == nil || !lo.Contains(statisticTypes, di.ID) {
			return fmt.Errorf("invalid data item id: %v", di)
		}
	}
	return r.Filters.Validate(FilterFields)
}

var statisticTypes = []StatisticType{
	StatisticTypeDailyTransactionCount,
	StatisticTypeDailyRevenue,
	StatisticTypeTotalRevenue,
	StatisticTypeRevenueByType,
	StatisticTypeDailyRenewalCount,
}

// StatisticResponseDataItem is one row of a statistic. Date is empty for
// totals; Label is the grouping key (transaction type or currency).
type StatisticResponseDataItem struct {
	Date     string          `json:"date,omitempty"`
	Label    string          `json:"label,omitempty"`
	Currency string          `json:"currency,omitempty"`
	Count    int64           `json:"count"`
	Amount   decimal.Decimal `json:"amount"`
}

type StatisticResponse struct {
	DataItems map[StatisticType][]StatisticResponseDataItem `json:"data_items"`
}

// Service reads revenue statistics and payment history from the ledger.
type Service struct {
	db       *gorm.DB
	timezone string
}

func New(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{db: db, timezone: cfg.Location().String()}
}

// revenue excludes refunds and anything the gateway did not complete.
func (s *Service) revenue(ctx context.Context, filters types.CommonFilters) *gorm.DB {
	return s.ledger(ctx, filters).
		Where("status = ?", "completed").
		Where("transaction_type <> ?", models.TransactionTypeRefund)
}

func (s *Service) ledger(ctx context.Context, filters types.CommonFilters) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.TransactionHistory{}).
		Where(clause.Where{Exprs: []clause.Expression{filters}})
}

const day = "TO_CHAR(created_at AT TIME ZONE ?, 'YYYY-MM-DD')"

func (s *Service) getDailyTransactionCount(ctx context.Context, req *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	err := s.ledger(ctx, req.Filters).
		Select(day+" AS date, transaction_type AS label, count(*) AS count", s.timezone).
		Group("date").Group("transaction_type").
		Order("date DESC").
		Find(&results).Error
	return results, err
}

func (s *Service) getDailyRevenue(ctx context.Context, req *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	err := s.revenue(ctx, req.Filters).
		Select(day+" AS date, currency, count(*) AS count, sum(amount) AS amount", s.timezone).
		Group("date").Group("currency").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true}).
		Find(&results).Error
	return results, err
}

func (s *Service) getTotalRevenue(ctx context.Context, req *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	err := s.revenue(ctx, req.Filters).
		Select("currency, count(*) AS count, sum(amount) AS amount").
		Group("currency").
		Order("currency").
		Find(&results).Error
	return results, err
}

func (s *Service) getRevenueByType(ctx context.Context, req *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	err := s.revenue(ctx, req.Filters).
		Select("transaction_type AS label, currency, count(*) AS count, sum(amount) AS amount").
		Group("transaction_type").Group("currency").
		Order("transaction_type").Order("currency").
		Find(&results).Error
	return results, err
}

func (s *Service) getDailyRenewalCount(ctx context.Context, req *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	err := s.revenue(ctx, req.Filters).
		Where("transaction_type = ?", models.TransactionTypeRecurringPayment).
		Select(day+" AS date, count(*) AS count, sum(amount) AS amount", s.timezone).
		Group("date").
		Order("date DESC").
		Find(&results).Error
	return results, err
}

func (s *Service) getStatistic(ctx context.Context, req *StatisticRequest, item *StatisticDataItem) ([]StatisticResponseDataItem, error) {
	switch item.ID {
	case StatisticTypeDailyTransactionCount:
		return s.getDailyTransactionCount(ctx, req)
	case StatisticTypeDailyRevenue:
		return s.getDailyRevenue(ctx, req)
	case StatisticTypeTotalRevenue:
		return s.getTotalRevenue(ctx, req)
	case StatisticTypeRevenueByType:
		return s.getRevenueByType(ctx, req)
	case StatisticTypeDailyRenewalCount:
		return s.getDailyRenewalCount(ctx, req)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", item.ID)
	}
}

// GetStatistics computes every requested data item concurrently.
func (s *Service) GetStatistics(ctx context.Context, req *StatisticRequest) (*StatisticResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	results := make([][]StatisticResponseDataItem, len(req.DataItems))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range req.DataItems {
		g.Go(func() error {
			res, err := s.getStatistic(gctx, req, item)
			if err != nil {
				return fmt.Errorf("%s: %w", item.ID, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := &StatisticResponse{DataItems: make(map[StatisticType][]StatisticResponseDataItem, len(req.DataItems))}
	for i, item := range req.DataItems {
		out.DataItems[item.ID] = results[i]
	}
	return out, nil
}

var Module = fx.Options(
	fx.Provide(New),
)

package services

import (
	"context"
	"time"

	"livebid/models"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// revenueStatuses are the order states that count as realized sales.
var revenueStatuses = []any{
	models.OrderStatusPaid,
	models.OrderStatusShipped,
	models.OrderStatusCompleted,
}

type AnalyticsService struct {
	App core.App
}

func NewAnalyticsService(app core.App) *AnalyticsService {
	return &AnalyticsService{App: app}
}

type salesRow struct {
	SellerUID string  `db:"seller_uid"`
	Sales     float64 `db:"sales"`
	Items     int     `db:"items"`
}

// GetSellerAnalytics aggregates the seller's realized sales, lifetime and
// for the current calendar month.
func (s *AnalyticsService) GetSellerAnalytics(ctx context.Context, sellerUID string) (*models.SellerAnalytics, error) {
	out := &models.SellerAnalytics{
		SellerUID:    sellerUID,
		TotalSales:   decimal.Zero,
		MonthlySales: decimal.Zero,
	}

	var total salesRow
	err := s.App.DB().
		Select("COALESCE(SUM(amount), 0) AS sales", "COUNT(*) AS items").
		From("orders").
		Where(dbx.HashExp{"seller_uid": sellerUID}).
		AndWhere(dbx.In("status", revenueStatuses...)).
		One(&total)
	if err != nil {
		return nil, err
	}
	out.TotalSales = decimal.NewFromFloat(total.Sales)
	out.ItemsSold = total.Items

	var monthly salesRow
	err = s.App.DB().
		Select("COALESCE(SUM(amount), 0) AS sales", "COUNT(*) AS items").
		From("orders").
		Where(dbx.HashExp{"seller_uid": sellerUID}).
		AndWhere(dbx.In("status", revenueStatuses...)).
		AndWhere(dbx.NewExp("created >= {:start}", dbx.Params{"start": monthStart(time.Now())})).
		One(&monthly)
	if err != nil {
		return nil, err
	}
	out.MonthlySales = decimal.NewFromFloat(monthly.Sales)
	out.MonthlyItems = monthly.Items

	return out, nil
}

// GetMonthlyLeaderboard ranks sellers by realized sales this month.
func (s *AnalyticsService) GetMonthlyLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	var rows []salesRow
	err := s.App.DB().
		Select("seller_uid", "COALESCE(SUM(amount), 0) AS sales", "COUNT(*) AS items").
		From("orders").
		Where(dbx.In("status", revenueStatuses...)).
		AndWhere(dbx.NewExp("created >= {:start}", dbx.Params{"start": monthStart(time.Now())})).
		GroupBy("seller_uid").
		OrderBy("sales DESC").
		Limit(int64(limit)).
		All(&rows)
	if err != nil {
		return nil, err
	}

	entries := make([]*models.LeaderboardEntry, len(rows))
	for i, row := range rows {
		entries[i] = &models.LeaderboardEntry{
			Rank:      i + 1,
			SellerUID: row.SellerUID,
			Sales:     decimal.NewFromFloat(row.Sales),
			ItemsSold: row.Items,
		}
	}
	return entries, nil
}

func monthStart(now time.Time) string {
	t := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return t.Format("2006-01-02 15:04:05.000Z")
}

package models

import "github.com/shopspring/decimal"

// SellerAnalytics summarizes a seller's realized sales. Only orders that
// reached paid or beyond count toward revenue.
type SellerAnalytics struct {
	SellerUID    string          `json:"seller_uid"`
	TotalSales   decimal.Decimal `json:"total_sales"`
	ItemsSold    int             `json:"items_sold"`
	MonthlySales decimal.Decimal `json:"monthly_sales"`
	MonthlyItems int             `json:"monthly_items"`
}

type LeaderboardEntry struct {
	Rank      int             `json:"rank"`
	SellerUID string          `json:"seller_uid"`
	Sales     decimal.Decimal `json:"sales"`
	ItemsSold int             `json:"items_sold"`
}

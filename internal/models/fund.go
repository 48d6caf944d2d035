package models

import (
	"time"
)

// Row is one record flattened into an ordered column list ready for a table write.
// Columns and Values are parallel slices.
type Row struct {
	Columns []string
	Values  []any
}

// Value returns the value stored for column, or false when the row has no such column.
func (r Row) Value(column string) (any, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// FundCatalogEntry is one fund of the upstream catalog (table fund_catalog).
type FundCatalogEntry struct {
	AllfundsID          string     `json:"allfunds_id"`
	ISIN                string     `json:"isin"`
	Currency            *string    `json:"currency"`
	CompanyID           *string    `json:"company_id"`
	CompanyName         *string    `json:"company_name"`
	ProductStatus       *string    `json:"product_status"`
	LastPortfolioUpdate *time.Time `json:"last_updated_portfolio_date"`
	CreatedAt           *time.Time `json:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at"`
}

// ToRow flattens the entry in fund_catalog column order.
func (f FundCatalogEntry) ToRow() Row {
	return Row{
		Columns: []string{"allfunds_id", "isin", "currency", "company_id", "company_name",
			"product_status", "last_updated_portfolio_date", "created_at", "updated_at"},
		Values: []any{f.AllfundsID, f.ISIN, f.Currency, f.CompanyID, f.CompanyName,
			f.ProductStatus, f.LastPortfolioUpdate, f.CreatedAt, f.UpdatedAt},
	}
}

// FundOverview is the descriptive record for one ISIN (table fund_overview).
// InvestmentObjective holds the English text only.
type FundOverview struct {
	ISIN                string     `json:"isin"`
	Name                *string    `json:"name"`
	FundCompany         *string    `json:"fund_company"`
	AssetClass          *string    `json:"asset_class"`
	SubassetClass       *string    `json:"subasset_class"`
	Category            *string    `json:"category"`
	InceptionDate       *time.Time `json:"inception_date"`
	RiskRewardIndicator *int32     `json:"risk_reward_indicator"`
	FundBenchmark       *string    `json:"fund_benchmark"`
	InvestmentObjective *string    `json:"investment_objective"`
	FundAUM             *float64   `json:"fund_aum"`
	NAV                 *float64   `json:"nav"`
	AUMCurrency         *string    `json:"aum_currency"`
}

// ToRow flattens the overview in fund_overview column order.
func (f FundOverview) ToRow() Row {
	return Row{
		Columns: []string{"isin", "name", "fund_company", "asset_class", "subasset_class",
			"category", "inception_date", "risk_reward_indicator", "fund_benchmark",
			"investment_objective", "fund_aum", "nav", "aum_currency"},
		Values: []any{f.ISIN, f.Name, f.FundCompany, f.AssetClass, f.SubassetClass,
			f.Category, f.InceptionDate, f.RiskRewardIndicator, f.FundBenchmark,
			f.InvestmentObjective, f.FundAUM, f.NAV, f.AUMCurrency},
	}
}

// NavObservation is one closing value of a fund on a date (table nav).
type NavObservation struct {
	ISIN  string    `json:"isin"`
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// ToRow flattens the observation in nav column order.
func (n NavObservation) ToRow() Row {
	return Row{
		Columns: []string{"isin", "date", "close"},
		Values:  []any{n.ISIN, n.Date, n.Close},
	}
}

// PerformanceSnapshot holds the trailing returns of one ISIN as of the fetch
// (table performance). Each refresh replaces the whole snapshot.
type PerformanceSnapshot struct {
	ISIN        string   `json:"isin"`
	Inception   *float64 `json:"inception"`
	OneDay      *float64 `json:"one_day"`
	OneWeek     *float64 `json:"one_week"`
	OneMonth    *float64 `json:"one_month"`
	ThreeMonths *float64 `json:"three_months"`
	SixMonths   *float64 `json:"six_months"`
	OneYear     *float64 `json:"one_year"`
	TwoYears    *float64 `json:"two_years"`
	ThreeYears  *float64 `json:"three_years"`
	FiveYears   *float64 `json:"five_years"`
	TenYears    *float64 `json:"ten_years"`
}

// PerformanceHorizons lists the trailing-return fields in column order.
var PerformanceHorizons = []string{
	"inception", "one_day", "one_week", "one_month", "three_months", "six_months",
	"one_year", "two_years", "three_years", "five_years", "ten_years",
}

// ToRow flattens the snapshot in performance column order.
func (p PerformanceSnapshot) ToRow() Row {
	cols := append([]string{"isin"}, PerformanceHorizons...)
	return Row{
		Columns: cols,
		Values: []any{p.ISIN, p.Inception, p.OneDay, p.OneWeek, p.OneMonth, p.ThreeMonths,
			p.SixMonths, p.OneYear, p.TwoYears, p.ThreeYears, p.FiveYears, p.TenYears},
	}
}

// SetHorizon assigns the trailing return for a named horizon. Unknown names are ignored.
func (p *PerformanceSnapshot) SetHorizon(name string, v *float64) {
	switch name {
	case "inception":
		p.Inception = v
	case "one_day":
		p.OneDay = v
	case "one_week":
		p.OneWeek = v
	case "one_month":
		p.OneMonth = v
	case "three_months":
		p.ThreeMonths = v
	case "six_months":
		p.SixMonths = v
	case "one_year":
		p.OneYear = v
	case "two_years":
		p.TwoYears = v
	case "three_years":
		p.ThreeYears = v
	case "five_years":
		p.FiveYears = v
	case "ten_years":
		p.TenYears = v
	}
}

package repository

import "slices"

// Fund table names.
const (
	TableFundCatalog  = "fund_catalog"
	TableFundOverview = "fund_overview"
	TableNav          = "nav"
	TablePerformance  = "performance"
)

// Table describes a writable table. Only identifiers listed here are ever
// interpolated into SQL.
type Table struct {
	Name    string
	Columns []string
	Key     []string
}

// HasColumn reports whether col belongs to the table.
func (t Table) HasColumn(col string) bool {
	return slices.Contains(t.Columns, col)
}

var knownTables = map[string]Table{
	TableFundCatalog: {
		Name: TableFundCatalog,
		Columns: []string{"allfunds_id", "isin", "currency", "company_id", "company_name",
			"product_status", "last_updated_portfolio_date", "created_at", "updated_at"},
		Key: []string{"allfunds_id"},
	},
	TableFundOverview: {
		Name: TableFundOverview,
		Columns: []string{"isin", "name", "fund_company", "asset_class", "subasset_class",
			"category", "inception_date", "risk_reward_indicator", "fund_benchmark",
			"investment_objective", "fund_aum", "nav", "aum_currency"},
		Key: []string{"isin"},
	},
	TableNav: {
		Name:    TableNav,
		Columns: []string{"isin", "date", "close"},
		Key:     []string{"isin", "date"},
	},
	TablePerformance: {
		Name: TablePerformance,
		Columns: []string{"isin", "inception", "one_day", "one_week", "one_month",
			"three_months", "six_months", "one_year", "two_years", "three_years",
			"five_years", "ten_years"},
		Key: []string{"isin"},
	},
}

// LookupTable returns the description of a known table.
func LookupTable(name string) (Table, bool) {
	t, ok := knownTables[name]
	return t, ok
}

// FundTables lists the fund tables in ingestion order.
func FundTables() []string {
	return []string{TableFundOverview, TableFundCatalog, TableNav, TablePerformance}
}

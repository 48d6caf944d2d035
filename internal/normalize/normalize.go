// Package normalize reshapes raw fund API payloads into the typed records
// written to the fund tables. Inputs are never modified.
package normalize

import (
	"fmt"

	"github.com/epeers/fundsync/internal/allfunds"
	"github.com/epeers/fundsync/internal/models"
)

// Catalog converts catalog fund objects into fund_catalog entries. The nested
// company object is split into company_id and company_name.
func Catalog(funds []allfunds.Payload) ([]models.FundCatalogEntry, error) {
	entries := make([]models.FundCatalogEntry, 0, len(funds))
	for i, fund := range funds {
		entry, err := catalogEntry(fund, fmt.Sprintf("funds[%d]", i))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func catalogEntry(fund map[string]any, prefix string) (models.FundCatalogEntry, error) {
	var e models.FundCatalogEntry
	var err error

	if e.AllfundsID, err = requiredString(fund, "allfunds_id", join(prefix, "allfunds_id")); err != nil {
		return e, err
	}
	if e.ISIN, err = requiredString(fund, "isin", join(prefix, "isin")); err != nil {
		return e, err
	}
	if e.Currency, err = optString(fund, "currency", join(prefix, "currency")); err != nil {
		return e, err
	}

	companyPath := join(prefix, "company")
	company, err := object(fund, "company", companyPath)
	if err != nil {
		return e, err
	}
	if company != nil {
		if e.CompanyID, err = optString(company, "allfunds_id", join(companyPath, "allfunds_id")); err != nil {
			return e, err
		}
		if e.CompanyName, err = optString(company, "name", join(companyPath, "name")); err != nil {
			return e, err
		}
	}

	if e.ProductStatus, err = optString(fund, "product_status", join(prefix, "product_status")); err != nil {
		return e, err
	}
	if e.LastPortfolioUpdate, err = optTime(fund, "last_updated_portfolio_date", join(prefix, "last_updated_portfolio_date")); err != nil {
		return e, err
	}
	if e.CreatedAt, err = optTime(fund, "created_at", join(prefix, "created_at")); err != nil {
		return e, err
	}
	if e.UpdatedAt, err = optTime(fund, "updated_at", join(prefix, "updated_at")); err != nil {
		return e, err
	}
	return e, nil
}

// Overview converts one overview data object. The localized
// investment_objective is reduced to its English text.
func Overview(data allfunds.Payload) (models.FundOverview, error) {
	var o models.FundOverview
	var err error

	if o.ISIN, err = requiredString(data, "isin", "isin"); err != nil {
		return o, err
	}

	strs := []struct {
		key string
		dst **string
	}{
		{"name", &o.Name},
		{"asset_class", &o.AssetClass},
		{"subasset_class", &o.SubassetClass},
		{"category", &o.Category},
		{"fund_benchmark", &o.FundBenchmark},
		{"aum_currency", &o.AUMCurrency},
	}
	for _, f := range strs {
		if *f.dst, err = optString(data, f.key, f.key); err != nil {
			return o, withISIN(err, o.ISIN)
		}
	}

	if o.FundCompany, err = companyName(data); err != nil {
		return o, withISIN(err, o.ISIN)
	}
	if o.InceptionDate, err = optDate(data, "inception_date", "inception_date"); err != nil {
		return o, withISIN(err, o.ISIN)
	}
	if o.RiskRewardIndicator, err = optInt32(data, "risk_reward_indicator", "risk_reward_indicator"); err != nil {
		return o, withISIN(err, o.ISIN)
	}
	if o.InvestmentObjective, err = englishText(data, "investment_objective"); err != nil {
		return o, withISIN(err, o.ISIN)
	}
	if o.FundAUM, err = optFloat(data, "fund_aum", "fund_aum"); err != nil {
		return o, withISIN(err, o.ISIN)
	}
	if o.NAV, err = optFloat(data, "nav", "nav"); err != nil {
		return o, withISIN(err, o.ISIN)
	}
	return o, nil
}

// companyName accepts fund_company either as plain text or as a company object.
func companyName(data map[string]any) (*string, error) {
	v, err := lookup(data, "fund_company", "fund_company")
	if err != nil {
		return nil, err
	}
	if m, ok := v.(map[string]any); ok {
		return optString(m, "name", "fund_company.name")
	}
	return optString(data, "fund_company", "fund_company")
}

// englishText unwraps a {"en": ..., "es": ...} object to its "en" entry.
// A plain string is taken as already localized.
func englishText(data map[string]any, key string) (*string, error) {
	v, err := lookup(data, key, key)
	if err != nil || v == nil {
		return nil, err
	}
	if s, ok := v.(string); ok {
		return &s, nil
	}
	localized, err := object(data, key, key)
	if err != nil {
		return nil, err
	}
	return optString(localized, "en", join(key, "en"))
}

// Nav converts a close_prices data object into NAV observations for isin.
// The upstream "value" becomes Close. Entries with a null value carry no
// observation and are dropped.
func Nav(isin string, data allfunds.Payload) ([]models.NavObservation, error) {
	raw, err := lookup(data, "close_prices", "close_prices")
	if err != nil {
		return nil, withISIN(err, isin)
	}
	if raw == nil {
		return nil, nil
	}
	prices, ok := raw.([]any)
	if !ok {
		return nil, withISIN(invalid("close_prices", fmt.Errorf("expected array, got %T", raw)), isin)
	}

	navs := make([]models.NavObservation, 0, len(prices))
	for i, p := range prices {
		prefix := fmt.Sprintf("close_prices[%d]", i)
		point, ok := p.(map[string]any)
		if !ok {
			return nil, withISIN(invalid(prefix, fmt.Errorf("expected object, got %T", p)), isin)
		}

		date, err := optDate(point, "date", join(prefix, "date"))
		if err != nil {
			return nil, withISIN(err, isin)
		}
		if date == nil {
			return nil, withISIN(missing(join(prefix, "date")), isin)
		}
		value, err := optFloat(point, "value", join(prefix, "value"))
		if err != nil {
			return nil, withISIN(err, isin)
		}
		if value == nil {
			continue
		}

		navs = append(navs, models.NavObservation{ISIN: isin, Date: *date, Close: *value})
	}
	return navs, nil
}

// Performance converts a performance data object into a snapshot for isin.
// Only the scalar trailing returns are read; the quartile and periodic
// return tables next to them are ignored.
func Performance(isin string, data allfunds.Payload) (models.PerformanceSnapshot, error) {
	snap := models.PerformanceSnapshot{ISIN: isin}

	perf, err := object(data, "performance", "performance")
	if err != nil {
		return snap, withISIN(err, isin)
	}
	if perf == nil {
		return snap, withISIN(missing("performance"), isin)
	}

	for _, h := range models.PerformanceHorizons {
		v, err := optFloat(perf, h, join("performance", h))
		if err != nil {
			return snap, withISIN(err, isin)
		}
		snap.SetHorizon(h, v)
	}
	return snap, nil
}

package provider

import (
	"context"
	"strings"

	"dealscout/internal/model"
)

// PropertySource is the property-data collaborator boundary. Search
// returns records matching the criteria in provider order, or a provider
// error when the upstream is unavailable. An empty result is not an error.
type PropertySource interface {
	Name() string
	Search(ctx context.Context, criteria model.SearchCriteria) ([]model.Property, error)
}

// matchesCriteria applies the numeric and category filters a raw feed
// cannot apply server-side. Absent property fields pass: a record is not
// excluded for data the provider failed to report.
func matchesCriteria(p model.Property, c model.SearchCriteria) bool {
	price := propertyPrice(p)
	if c.MinPrice != nil && price != nil && *price < *c.MinPrice {
		return false
	}
	if c.MaxPrice != nil && price != nil && *price > *c.MaxPrice {
		return false
	}

	if p.Bedrooms != nil {
		beds := float64(*p.Bedrooms)
		if c.MinBeds != nil && beds < *c.MinBeds {
			return false
		}
		if c.MaxBeds != nil && beds > *c.MaxBeds {
			return false
		}
	}
	if p.Bathrooms != nil {
		if c.MinBaths != nil && *p.Bathrooms < *c.MinBaths {
			return false
		}
		if c.MaxBaths != nil && *p.Bathrooms > *c.MaxBaths {
			return false
		}
	}
	if p.SquareFeet != nil {
		if c.MinSquareFeet != nil && *p.SquareFeet < *c.MinSquareFeet {
			return false
		}
		if c.MaxSquareFeet != nil && *p.SquareFeet > *c.MaxSquareFeet {
			return false
		}
	}

	return true
}

// propertyPrice picks the best available price for filtering, in the same
// priority order the market signal uses.
func propertyPrice(p model.Property) *float64 {
	if p.MarketValue != nil && *p.MarketValue > 0 {
		return p.MarketValue
	}
	if p.LastSalePrice != nil && *p.LastSalePrice > 0 {
		return p.LastSalePrice
	}
	if p.AssessedValue != nil && *p.AssessedValue > 0 {
		return p.AssessedValue
	}
	return nil
}

// typePatterns maps category tags to the provider-side descriptions they
// match. Feeds describe buildings ("Single Family", "Duplex"), not intents,
// so only the structural categories can be filtered on.
func typePatterns(types []model.PropertyType) []string {
	var patterns []string
	for _, t := range types {
		switch t {
		case model.TypeMultiFamily:
			patterns = append(patterns, "multi", "duplex", "triplex", "apartment")
		}
	}
	return patterns
}

// matchesType reports whether the provider's property description fits
// the requested categories. No structural pattern means no restriction.
func matchesType(p model.Property, types []model.PropertyType) bool {
	patterns := typePatterns(types)
	if len(patterns) == 0 {
		return true
	}
	if p.PropertyType == nil {
		return true
	}
	desc := strings.ToLower(*p.PropertyType)
	for _, pat := range patterns {
		if strings.Contains(desc, pat) {
			return true
		}
	}
	return false
}

package model

// Property is a provider-agnostic property record. Pointer fields are
// absent when the data source did not report them.
type Property struct {
	ID                 string   `json:"id" db:"id"`
	Address            string   `json:"address" db:"address"`
	City               string   `json:"city" db:"city"`
	State              string   `json:"state" db:"state"`
	ZipCode            string   `json:"zip_code" db:"zip_code"`
	PropertyType       *string  `json:"property_type,omitempty" db:"property_type"`
	Bedrooms           *int     `json:"bedrooms,omitempty" db:"bedrooms"`
	Bathrooms          *float64 `json:"bathrooms,omitempty" db:"bathrooms"`
	SquareFeet         *float64 `json:"square_feet,omitempty" db:"square_feet"`
	LotSize            *float64 `json:"lot_size,omitempty" db:"lot_size"`
	YearBuilt          *int     `json:"year_built,omitempty" db:"year_built"`
	MarketValue        *float64 `json:"market_value,omitempty" db:"market_value"`
	AssessedValue      *float64 `json:"assessed_value,omitempty" db:"assessed_value"`
	ThirdPartyEstimate *float64 `json:"third_party_estimate,omitempty" db:"third_party_estimate"`
	LastSalePrice      *float64 `json:"last_sale_price,omitempty" db:"last_sale_price"`
	LastSaleDate       *string  `json:"last_sale_date,omitempty" db:"last_sale_date"`
	PropertyTaxes      *float64 `json:"property_taxes,omitempty" db:"property_taxes"`
	RentEstimate       *float64 `json:"rent_estimate,omitempty" db:"rent_estimate"`
}

// SearchCriteria is the provider-agnostic search request shape. Absent
// fields are omitted rather than defaulted to zero, since zero can be a
// meaningful bound.
type SearchCriteria struct {
	ZipCodes      []string       `json:"zip_codes,omitempty"`
	City          string         `json:"city,omitempty"`
	State         string         `json:"state,omitempty"`
	MinPrice      *float64       `json:"min_price,omitempty"`
	MaxPrice      *float64       `json:"max_price,omitempty"`
	MinBeds       *float64       `json:"min_beds,omitempty"`
	MaxBeds       *float64       `json:"max_beds,omitempty"`
	MinBaths      *float64       `json:"min_baths,omitempty"`
	MaxBaths      *float64       `json:"max_baths,omitempty"`
	MinSquareFeet *float64       `json:"min_square_feet,omitempty"`
	MaxSquareFeet *float64       `json:"max_square_feet,omitempty"`
	PropertyTypes []PropertyType `json:"property_types,omitempty"`
	MaxResults    int            `json:"max_results,omitempty"`
}

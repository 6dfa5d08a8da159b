package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"

	"dealscout/internal/model"
)

var (
	mockStreets = []string{
		"Oak Street", "Pine Avenue", "Maple Drive", "Elm Boulevard",
		"Cedar Lane", "Birch Road", "Willow Court", "Main Street", "Park Avenue",
	}
	mockTypes = []string{"Single Family", "Condo", "Townhouse", "Multi-Family"}
	mockBaths = []float64{1.0, 1.5, 2.0, 2.5, 3.0, 3.5}
)

// Mock generates plausible sample properties, used for demos and local
// development without a data provider. Results are deterministic for a
// given ZIP so conversations and tests are reproducible.
type Mock struct{}

// NewMock creates the sample property source.
func NewMock() *Mock { return &Mock{} }

func (m *Mock) Name() string { return "mock" }

// Search fabricates up to five properties per candidate ZIP, filtered by
// the same criteria rules the real providers apply.
func (m *Mock) Search(ctx context.Context, criteria model.SearchCriteria) ([]model.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	zips := criteria.ZipCodes
	if len(zips) == 0 {
		zips = []string{"00000"}
	}

	max := criteria.MaxResults
	if max <= 0 {
		max = 10
	}

	var results []model.Property
	for _, zip := range zips {
		for _, p := range m.propertiesForZip(zip, criteria.City, criteria.State) {
			if matchesCriteria(p, criteria) && matchesType(p, criteria.PropertyTypes) {
				results = append(results, p)
			}
			if len(results) >= max {
				return results, nil
			}
		}
	}
	return results, nil
}

func (m *Mock) propertiesForZip(zip, city, state string) []model.Property {
	rng := rand.New(rand.NewSource(int64(seedFor(zip))))
	if city == "" {
		city, state = "Sample City", "ST"
	}

	props := make([]model.Property, 0, 5)
	for i := 0; i < 5; i++ {
		streetNum := 100 + rng.Intn(9900)
		street := mockStreets[rng.Intn(len(mockStreets))]
		beds := 2 + rng.Intn(4)
		baths := mockBaths[rng.Intn(len(mockBaths))]
		sqft := float64(1200 + rng.Intn(2300))
		yearBuilt := 1990 + rng.Intn(34)
		lotSize := float64(5000 + rng.Intn(10000))

		basePrice := sqft * float64(150+rng.Intn(200))
		marketValue := float64(int(basePrice/1000)) * 1000
		assessed := marketValue * 0.85
		thirdParty := marketValue * (0.97 + rng.Float64()*0.08)
		lastSale := marketValue * 0.9
		saleDate := "2024-06-15"
		rent := marketValue * 0.006
		taxes := marketValue * 0.015
		propType := mockTypes[rng.Intn(len(mockTypes))]

		props = append(props, model.Property{
			ID:                 fmt.Sprintf("mock-%s-%d", zip, i+1),
			Address:            fmt.Sprintf("%d %s", streetNum, street),
			City:               city,
			State:              state,
			ZipCode:            zip,
			PropertyType:       &propType,
			Bedrooms:           &beds,
			Bathrooms:          &baths,
			SquareFeet:         &sqft,
			LotSize:            &lotSize,
			YearBuilt:          &yearBuilt,
			MarketValue:        &marketValue,
			AssessedValue:      &assessed,
			ThirdPartyEstimate: &thirdParty,
			LastSalePrice:      &lastSale,
			LastSaleDate:       &saleDate,
			PropertyTaxes:      &taxes,
			RentEstimate:       &rent,
		})
	}
	return props
}

func seedFor(zip string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(zip))
	return h.Sum32()
}

package provider

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealscout/internal/model"
)

func TestBuildSearchQueryZipCodes(t *testing.T) {
	maxPrice := 400000.0
	minBeds := 3.0
	criteria := model.SearchCriteria{
		ZipCodes:   []string{"78701", "78702"},
		MaxPrice:   &maxPrice,
		MinBeds:    &minBeds,
		MaxResults: 10,
	}

	query, args := buildSearchQuery(criteria)

	assert.Contains(t, query, "zip_code = ANY($1)")
	assert.Contains(t, query, "market_value <= $2")
	assert.Contains(t, query, "bedrooms >= $3")
	assert.Contains(t, query, "LIMIT $4")
	require.Len(t, args, 4)
	assert.Equal(t, pq.Array([]string{"78701", "78702"}), args[0])
	assert.Equal(t, 400000.0, args[1])
	assert.Equal(t, 3.0, args[2])
	assert.Equal(t, 10, args[3])
}

func TestBuildSearchQueryCityStateFallback(t *testing.T) {
	criteria := model.SearchCriteria{City: "Austin", State: "tx"}

	query, args := buildSearchQuery(criteria)

	assert.Contains(t, query, "city ILIKE $1")
	assert.Contains(t, query, "state = $2")
	assert.NotContains(t, query, "zip_code = ANY")
	require.Len(t, args, 3)
	assert.Equal(t, "Austin", args[0])
	assert.Equal(t, "TX", args[1])
}

func TestBuildSearchQueryZipWinsOverCity(t *testing.T) {
	criteria := model.SearchCriteria{
		ZipCodes: []string{"78701"},
		City:     "Austin",
		State:    "TX",
	}

	query, _ := buildSearchQuery(criteria)

	assert.Contains(t, query, "zip_code = ANY($1)")
	assert.NotContains(t, query, "city ILIKE")
}

func TestBuildSearchQueryAbsentFieldsProduceNoClauses(t *testing.T) {
	query, args := buildSearchQuery(model.SearchCriteria{})

	assert.Contains(t, query, "WHERE 1=1")
	assert.NotContains(t, query, "market_value >=")
	assert.NotContains(t, query, "market_value <=")
	assert.NotContains(t, query, "bedrooms >=")
	assert.NotContains(t, query, "bathrooms >=")
	assert.NotContains(t, query, "square_feet >=")
	// Only the default limit remains.
	require.Len(t, args, 1)
	assert.Equal(t, 50, args[0])
}

func TestBuildSearchQueryTypePatterns(t *testing.T) {
	criteria := model.SearchCriteria{
		PropertyTypes: []model.PropertyType{model.TypeMultiFamily},
	}

	query, args := buildSearchQuery(criteria)

	assert.Contains(t, query, "property_type ILIKE $1")
	assert.Contains(t, query, " OR ")
	// Patterns land as %wrapped% ILIKE arguments ahead of the limit.
	require.Greater(t, len(args), 2)
	assert.Equal(t, "%multi%", args[0])
}

func TestBuildSearchQueryIntentTypesUnrestricted(t *testing.T) {
	criteria := model.SearchCriteria{
		PropertyTypes: []model.PropertyType{model.TypeRental, model.TypeFixFlip},
	}

	query, args := buildSearchQuery(criteria)

	// Intent-flavored categories carry no structural filter.
	assert.NotContains(t, query, "property_type ILIKE")
	require.Len(t, args, 1)
}

package valuation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealscout/internal/model"
)

func sampleProperty() model.Property {
	return model.Property{
		ID:      "prop-1",
		Address: "123 Main St",
		City:    "Austin",
		State:   "TX",
		ZipCode: "78701",
	}
}

func stubEstimate(sig model.PriceSignal, err error) EstimateFunc {
	return func(ctx context.Context, prop model.Property) (model.PriceSignal, error) {
		return sig, err
	}
}

func TestAggregateGenerativeHighConfidenceWins(t *testing.T) {
	a := NewAggregator(time.Second, nil)
	market := model.PriceSignal{Source: model.SourceMarketAVM, Amount: 450000}
	gen := model.PriceSignal{
		Source:     model.SourceGenerative,
		Amount:     478000,
		Confidence: model.ConfidenceHigh,
		Reasoning:  "strong comparables",
	}

	got := a.Aggregate(context.Background(), sampleProperty(), market, nil, stubEstimate(gen, nil))

	assert.Equal(t, 478000.0, got.ReconciledValue)
	assert.Equal(t, model.ConfidenceHigh, got.ReconciledConfidence)
	assert.Equal(t, 28000.0, got.DeltaFromMarket)
	assert.True(t, got.IsUndervalued)
	require.Len(t, got.Signals, 2)
	assert.Equal(t, model.SourceMarketAVM, got.Signals[0].Source)
	assert.Equal(t, model.SourceGenerative, got.Signals[1].Source)
}

func TestAggregateLowConfidenceFallsBackToMarket(t *testing.T) {
	a := NewAggregator(time.Second, nil)
	market := model.PriceSignal{Source: model.SourceMarketAVM, Amount: 450000}
	gen := model.PriceSignal{Source: model.SourceGenerative, Amount: 600000, Confidence: model.ConfidenceLow}

	got := a.Aggregate(context.Background(), sampleProperty(), market, nil, stubEstimate(gen, nil))

	assert.Equal(t, 450000.0, got.ReconciledValue)
	assert.Equal(t, model.ConfidenceMedium, got.ReconciledConfidence)
	assert.Equal(t, 0.0, got.DeltaFromMarket)
	assert.False(t, got.IsUndervalued)
	// The low-confidence signal still appears in the signal list.
	assert.Len(t, got.Signals, 2)
}

func TestAggregateEstimatorFailureDegrades(t *testing.T) {
	a := NewAggregator(time.Second, nil)
	market := model.PriceSignal{Source: model.SourceMarketAVM, Amount: 450000}

	got := a.Aggregate(context.Background(), sampleProperty(), market, nil,
		stubEstimate(model.PriceSignal{}, fmt.Errorf("service down")))

	assert.Equal(t, 450000.0, got.ReconciledValue)
	assert.Equal(t, model.ConfidenceMedium, got.ReconciledConfidence)
	assert.Len(t, got.Signals, 1)
}

func TestAggregateEstimatorTimeoutDegrades(t *testing.T) {
	a := NewAggregator(20*time.Millisecond, nil)
	market := model.PriceSignal{Source: model.SourceMarketAVM, Amount: 450000}

	slow := func(ctx context.Context, prop model.Property) (model.PriceSignal, error) {
		select {
		case <-ctx.Done():
			return model.PriceSignal{}, ctx.Err()
		case <-time.After(5 * time.Second):
			return model.PriceSignal{Source: model.SourceGenerative, Amount: 999999, Confidence: model.ConfidenceHigh}, nil
		}
	}

	start := time.Now()
	got := a.Aggregate(context.Background(), sampleProperty(), market, nil, slow)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 450000.0, got.ReconciledValue)
	assert.Equal(t, model.ConfidenceMedium, got.ReconciledConfidence)
}

func TestAggregateThirdPartySignalIncluded(t *testing.T) {
	a := NewAggregator(time.Second, nil)
	market := model.PriceSignal{Source: model.SourceMarketAVM, Amount: 450000}
	third := model.PriceSignal{Source: model.SourceThirdParty, Amount: 462000}

	got := a.Aggregate(context.Background(), sampleProperty(), market, &third, nil)

	require.Len(t, got.Signals, 2)
	assert.Equal(t, model.SourceThirdParty, got.Signals[1].Source)
	// Third-party estimates never drive the reconciled value.
	assert.Equal(t, 450000.0, got.ReconciledValue)
}

func TestAggregateMalformedSignalDiscarded(t *testing.T) {
	a := NewAggregator(time.Second, nil)
	market := model.PriceSignal{Source: model.SourceMarketAVM, Amount: 450000}

	// Wrong source tag and non-positive amount both read as absent.
	for _, bad := range []model.PriceSignal{
		{Source: model.SourceMarketAVM, Amount: 470000, Confidence: model.ConfidenceHigh},
		{Source: model.SourceGenerative, Amount: 0, Confidence: model.ConfidenceHigh},
	} {
		got := a.Aggregate(context.Background(), sampleProperty(), market, nil, stubEstimate(bad, nil))
		assert.Equal(t, 450000.0, got.ReconciledValue)
		assert.Len(t, got.Signals, 1)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	a := NewAggregator(time.Second, nil)
	market := model.PriceSignal{Source: model.SourceMarketAVM, Amount: 450000}
	third := model.PriceSignal{Source: model.SourceThirdParty, Amount: 455000}
	gen := model.PriceSignal{Source: model.SourceGenerative, Amount: 478000, Confidence: model.ConfidenceMedium}

	first := a.Aggregate(context.Background(), sampleProperty(), market, &third, stubEstimate(gen, nil))
	second := a.Aggregate(context.Background(), sampleProperty(), market, &third, stubEstimate(gen, nil))

	assert.Equal(t, first, second)
}

func TestMarketSignalPriority(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("market value first", func(t *testing.T) {
		p := sampleProperty()
		p.MarketValue = model.Float(450000)
		p.LastSalePrice = model.Float(300000)
		p.AssessedValue = model.Float(200000)

		sig, ok := MarketSignal(p, now)
		require.True(t, ok)
		assert.Equal(t, 450000.0, sig.Amount)
	})

	t.Run("recent sale second", func(t *testing.T) {
		p := sampleProperty()
		p.LastSalePrice = model.Float(300000)
		date := "2025-06-15"
		p.LastSaleDate = &date
		p.AssessedValue = model.Float(200000)

		sig, ok := MarketSignal(p, now)
		require.True(t, ok)
		assert.Equal(t, 300000.0, sig.Amount)
	})

	t.Run("stale sale skipped", func(t *testing.T) {
		p := sampleProperty()
		p.LastSalePrice = model.Float(300000)
		date := "2019-06-15"
		p.LastSaleDate = &date
		p.AssessedValue = model.Float(200000)

		sig, ok := MarketSignal(p, now)
		require.True(t, ok)
		assert.InDelta(t, 230000.0, sig.Amount, 0.01)
	})

	t.Run("assessed value grossed up", func(t *testing.T) {
		p := sampleProperty()
		p.AssessedValue = model.Float(200000)

		sig, ok := MarketSignal(p, now)
		require.True(t, ok)
		assert.InDelta(t, 230000.0, sig.Amount, 0.01)
	})

	t.Run("no usable signal", func(t *testing.T) {
		_, ok := MarketSignal(sampleProperty(), now)
		assert.False(t, ok)
	})
}

func TestThirdPartySignal(t *testing.T) {
	p := sampleProperty()
	assert.Nil(t, ThirdPartySignal(p))

	p.ThirdPartyEstimate = model.Float(462000)
	sig := ThirdPartySignal(p)
	require.NotNil(t, sig)
	assert.Equal(t, model.SourceThirdParty, sig.Source)
	assert.Equal(t, 462000.0, sig.Amount)
}

package valuation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"dealscout/internal/metrics"
	"dealscout/internal/model"
)

// EstimateFunc produces an independent generative fair-value signal for a
// property. Implementations must be idempotent and safe to retry; the
// aggregator bounds each call with its timeout.
type EstimateFunc func(ctx context.Context, prop model.Property) (model.PriceSignal, error)

// Aggregator reconciles heterogeneous price signals into one explainable
// valuation. It holds no per-property state and is safe to call
// concurrently across properties.
type Aggregator struct {
	timeout time.Duration
	log     *zap.Logger
}

// NewAggregator creates an aggregator. timeout bounds each estimator call;
// on expiry the aggregation degrades to the market signal.
func NewAggregator(timeout time.Duration, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{timeout: timeout, log: log}
}

// Aggregate merges the market signal, an optional third-party signal and
// the generative estimate into a ValuationResult. The estimator call is
// awaited with a bounded timeout; any failure, timeout or malformed signal
// degrades to "generative signal absent" so the aggregation always
// completes with at least the market signal. Inputs are never mutated.
func (a *Aggregator) Aggregate(ctx context.Context, prop model.Property, market model.PriceSignal, thirdParty *model.PriceSignal, estimate EstimateFunc) model.ValuationResult {
	signals := []model.PriceSignal{market}
	if thirdParty != nil {
		signals = append(signals, *thirdParty)
	}

	var generative *model.PriceSignal
	if estimate != nil {
		if sig, ok := a.callEstimator(ctx, prop, estimate); ok {
			generative = &sig
			signals = append(signals, sig)
		}
	}

	result := model.ValuationResult{
		PropertyID: prop.ID,
		Property:   &prop,
		Signals:    signals,
	}

	// A trusted generative estimate wins; anything else falls back to the
	// market signal at medium confidence, since public-record valuations
	// are lagging rather than live appraisals.
	if generative != nil &&
		(generative.Confidence == model.ConfidenceHigh || generative.Confidence == model.ConfidenceMedium) {
		result.ReconciledValue = generative.Amount
		result.ReconciledConfidence = generative.Confidence
	} else {
		result.ReconciledValue = market.Amount
		result.ReconciledConfidence = model.ConfidenceMedium
	}

	result.DeltaFromMarket = result.ReconciledValue - market.Amount
	result.IsUndervalued = result.DeltaFromMarket > 0

	return result
}

// callEstimator runs the estimate function under the aggregator's timeout.
// A failure or a malformed signal is reported as absent, never propagated.
func (a *Aggregator) callEstimator(ctx context.Context, prop model.Property, estimate EstimateFunc) (model.PriceSignal, bool) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	sig, err := estimate(ctx, prop)
	metrics.EstimateLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EstimateFailures.Inc()
		a.log.Warn("fair-value estimate unavailable, using market signal only",
			zap.String("property_id", prop.ID),
			zap.Error(err))
		return model.PriceSignal{}, false
	}

	if sig.Source != model.SourceGenerative || sig.Amount <= 0 {
		metrics.EstimateFailures.Inc()
		a.log.Warn("fair-value estimate malformed, discarding",
			zap.String("property_id", prop.ID),
			zap.Float64("amount", sig.Amount))
		return model.PriceSignal{}, false
	}
	if !sig.Confidence.Valid() {
		sig.Confidence = model.ConfidenceLow
	}
	return sig, true
}

// MarketSignal derives the primary market price signal from a property
// record. Priority: provider market value, then a recent sale price (two
// years or newer), then assessed value grossed up to an estimated market
// level. Returns false when no usable signal exists.
func MarketSignal(prop model.Property, now time.Time) (model.PriceSignal, bool) {
	if prop.MarketValue != nil && *prop.MarketValue > 0 {
		return model.PriceSignal{Source: model.SourceMarketAVM, Amount: *prop.MarketValue}, true
	}

	if prop.LastSalePrice != nil && *prop.LastSalePrice > 0 && recentSale(prop.LastSaleDate, now) {
		return model.PriceSignal{Source: model.SourceMarketAVM, Amount: *prop.LastSalePrice}, true
	}

	if prop.AssessedValue != nil && *prop.AssessedValue > 0 {
		// Assessed values trail market prices; the standard gross-up is 15%.
		return model.PriceSignal{Source: model.SourceMarketAVM, Amount: *prop.AssessedValue * 1.15}, true
	}

	return model.PriceSignal{}, false
}

// ThirdPartySignal derives the optional third-party estimate signal, or
// nil when the provider did not report one.
func ThirdPartySignal(prop model.Property) *model.PriceSignal {
	if prop.ThirdPartyEstimate == nil || *prop.ThirdPartyEstimate <= 0 {
		return nil
	}
	return &model.PriceSignal{Source: model.SourceThirdParty, Amount: *prop.ThirdPartyEstimate}
}

// recentSale reports whether the sale date is within two years of now.
// Unknown or unparseable dates do not count as recent.
func recentSale(date *string, now time.Time) bool {
	if date == nil || *date == "" {
		return false
	}
	t, err := time.Parse("2006-01-02", *date)
	if err != nil {
		return false
	}
	return now.Sub(t) <= 2*365*24*time.Hour
}

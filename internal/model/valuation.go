package model

// SignalSource identifies where a price signal came from
type SignalSource string

const (
	SourceMarketAVM  SignalSource = "market_avm"
	SourceThirdParty SignalSource = "third_party"
	SourceGenerative SignalSource = "generative"
)

// Confidence is the stated trust level attached to a price signal
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Valid reports whether the value is one of the closed confidence levels
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// PriceSignal is one independent valuation of a property. Confidence and
// Reasoning are absent for sources that do not state them.
type PriceSignal struct {
	Source     SignalSource `json:"source"`
	Amount     float64      `json:"amount"`
	Confidence Confidence   `json:"confidence,omitempty"`
	Reasoning  string       `json:"reasoning,omitempty"`
}

// ValuationResult is the reconciled view of all price signals for one
// property. It is derived, recomputed on every aggregation, and never
// mutated in place.
type ValuationResult struct {
	PropertyID           string        `json:"property_id"`
	Property             *Property     `json:"property,omitempty"`
	Signals              []PriceSignal `json:"signals"`
	ReconciledValue      float64       `json:"reconciled_value"`
	ReconciledConfidence Confidence    `json:"reconciled_confidence"`
	// DeltaFromMarket is reconciled value minus the primary market signal.
	// A positive delta means the property looks worth more than the market
	// says, i.e. undervalued.
	DeltaFromMarket float64 `json:"delta_from_market"`
	IsUndervalued   bool    `json:"is_undervalued"`
}

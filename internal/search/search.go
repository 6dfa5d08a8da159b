package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dealscout/internal/config"
	"dealscout/internal/geo"
	"dealscout/internal/model"
	"dealscout/internal/provider"
	"dealscout/internal/utils"
	"dealscout/internal/valuation"
)

// Orchestrator turns completed preferences into a provider search, values
// each result and formats the conversational reply.
type Orchestrator struct {
	source      provider.PropertySource
	aggregator  *valuation.Aggregator
	estimate    valuation.EstimateFunc
	gazetteer   *geo.Gazetteer
	maxResults  int
	concurrency int
	log         *zap.Logger
}

// NewOrchestrator wires the search pipeline. estimate may be nil when no
// generative estimator is configured; valuations then carry market
// signals only.
func NewOrchestrator(
	source provider.PropertySource,
	aggregator *valuation.Aggregator,
	estimate valuation.EstimateFunc,
	gazetteer *geo.Gazetteer,
	cfg *config.SearchConfig,
	log *zap.Logger,
) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}
	concurrency := cfg.EnrichConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Orchestrator{
		source:      source,
		aggregator:  aggregator,
		estimate:    estimate,
		gazetteer:   gazetteer,
		maxResults:  maxResults,
		concurrency: concurrency,
		log:         log,
	}
}

// ProviderName reports which property source backs this orchestrator.
func (o *Orchestrator) ProviderName() string {
	return o.source.Name()
}

// BuildCriteria maps preferences into the provider-agnostic criteria
// shape. A city/state location is resolved to its primary ZIP candidates;
// absent fields stay absent rather than defaulting to zero.
func (o *Orchestrator) BuildCriteria(prefs *model.Preferences) model.SearchCriteria {
	criteria := model.SearchCriteria{
		PropertyTypes: prefs.PropertyTypes,
		MaxResults:    o.maxResults,
	}

	if loc := prefs.Location; loc != nil {
		switch {
		case loc.Zip != "":
			criteria.ZipCodes = []string{loc.Zip}
		case loc.City != "":
			criteria.City = loc.City
			criteria.State = loc.State
			criteria.ZipCodes = o.gazetteer.PrimaryZips(loc.City, loc.State)
		}
	}

	if b := prefs.Budget; b != nil {
		criteria.MinPrice = b.Min
		criteria.MaxPrice = b.Max
	}
	if r := prefs.Specs.Bedrooms; r != nil {
		criteria.MinBeds = r.Min
		criteria.MaxBeds = r.Max
	}
	if r := prefs.Specs.Bathrooms; r != nil {
		criteria.MinBaths = r.Min
		criteria.MaxBaths = r.Max
	}
	if r := prefs.Specs.SquareFeet; r != nil {
		criteria.MinSquareFeet = r.Min
		criteria.MaxSquareFeet = r.Max
	}

	return criteria
}

// EnrichResults values every property concurrently, bounded by the
// configured limit. Output order always equals input order regardless of
// which estimator calls finish first; a failed estimate degrades that one
// property, never the batch. Properties with no usable market signal are
// dropped, since a valuation without a baseline cannot be reconciled.
func (o *Orchestrator) EnrichResults(ctx context.Context, props []model.Property) []model.ValuationResult {
	slots := make([]*model.ValuationResult, len(props))
	now := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, prop := range props {
		g.Go(func() error {
			market, ok := valuation.MarketSignal(prop, now)
			if !ok {
				o.log.Warn("property has no market signal, skipping",
					zap.String("property_id", prop.ID))
				return nil
			}
			result := o.aggregator.Aggregate(gctx, prop, market, valuation.ThirdPartySignal(prop), o.estimate)
			slots[i] = &result
			return nil
		})
	}
	// Workers only ever return nil; the group is used for bounded fan-out.
	_ = g.Wait()

	results := make([]model.ValuationResult, 0, len(props))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results
}

// Run executes the full pipeline for completed preferences. A provider
// failure degrades to a "no properties found" reply instead of
// propagating; the error is returned alongside for the caller's metrics.
func (o *Orchestrator) Run(ctx context.Context, prefs *model.Preferences) (string, []model.ValuationResult, error) {
	criteria := o.BuildCriteria(prefs)

	props, err := o.source.Search(ctx, criteria)
	if err != nil {
		o.log.Error("property search failed",
			zap.String("provider", o.source.Name()),
			zap.Error(err))
		return noResultsReply(prefs), nil, err
	}
	if len(props) > o.maxResults {
		props = props[:o.maxResults]
	}

	results := o.EnrichResults(ctx, props)
	o.log.Info("search pipeline finished",
		zap.String("provider", o.source.Name()),
		zap.Int("properties", len(props)),
		zap.Int("valuations", len(results)))

	return o.FormatReply(results, prefs), results, nil
}

// FormatReply renders the conversational summary: every price signal per
// property plus a call-out for undervalued finds. The structured results
// travel alongside this text; nothing should ever be parsed back out of it.
func (o *Orchestrator) FormatReply(results []model.ValuationResult, prefs *model.Preferences) string {
	if len(results) == 0 {
		return noResultsReply(prefs)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I found %d propert%s matching your search%s:\n",
		len(results), pluralY(len(results)), locationSuffix(prefs))

	for i, r := range results {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%d. %s\n", i+1, describeProperty(r.Property))

		for _, sig := range r.Signals {
			fmt.Fprintf(&b, "   %s: %s%s\n",
				signalLabel(sig.Source), utils.FormatMoney(sig.Amount), confidenceSuffix(sig))
		}

		fmt.Fprintf(&b, "   Reconciled value: %s (%s confidence)\n",
			utils.FormatMoney(r.ReconciledValue), r.ReconciledConfidence)

		if r.IsUndervalued {
			fmt.Fprintf(&b, "   *** Potentially undervalued by %s, worth a closer look. ***\n",
				utils.FormatMoney(r.DeltaFromMarket))
		}
	}

	b.WriteString("\nWant details on any of these? Just ask by number.")
	return b.String()
}

func describeProperty(p *model.Property) string {
	if p == nil {
		return "(property details unavailable)"
	}
	desc := p.Address
	if p.Address == "" {
		desc = fmt.Sprintf("%s, %s %s", p.City, p.State, p.ZipCode)
	}

	var traits []string
	if p.Bedrooms != nil {
		traits = append(traits, fmt.Sprintf("%d bed", *p.Bedrooms))
	}
	if p.Bathrooms != nil {
		traits = append(traits, strings.TrimSuffix(fmt.Sprintf("%.1f", *p.Bathrooms), ".0")+" bath")
	}
	if p.SquareFeet != nil {
		traits = append(traits, fmt.Sprintf("%.0f sqft", *p.SquareFeet))
	}
	if p.YearBuilt != nil {
		traits = append(traits, fmt.Sprintf("built %d", *p.YearBuilt))
	}
	if len(traits) > 0 {
		desc += " (" + strings.Join(traits, ", ") + ")"
	}
	return desc
}

func signalLabel(source model.SignalSource) string {
	switch source {
	case model.SourceMarketAVM:
		return "Market value"
	case model.SourceThirdParty:
		return "Third-party estimate"
	case model.SourceGenerative:
		return "Fair value estimate"
	}
	return string(source)
}

func confidenceSuffix(sig model.PriceSignal) string {
	if sig.Confidence == "" {
		return ""
	}
	return fmt.Sprintf(" (%s confidence)", sig.Confidence)
}

func noResultsReply(prefs *model.Preferences) string {
	where := ""
	if prefs.Location != nil {
		where = " in " + prefs.Location.String()
	}
	return fmt.Sprintf(
		"I couldn't find any properties matching your criteria%s right now. "+
			"You could widen the budget, relax the size requirements, or try a nearby area.", where)
}

func locationSuffix(prefs *model.Preferences) string {
	if prefs.Location == nil {
		return ""
	}
	return " in " + prefs.Location.String()
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

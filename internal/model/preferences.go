package model

// DialogueStep identifies a stage of the preference-collection conversation
type DialogueStep string

const (
	StepGreeting      DialogueStep = "greeting"
	StepLocation      DialogueStep = "location"
	StepPropertyType  DialogueStep = "property_type"
	StepPropertySpecs DialogueStep = "property_specs"
	StepBudget        DialogueStep = "budget"
	StepStrategy      DialogueStep = "strategy"
	StepTimeline      DialogueStep = "timeline"
	StepSummary       DialogueStep = "summary"
	StepHandoff       DialogueStep = "handoff"
)

// StepOrder is the fixed conversation flow. Strategy and Timeline are
// conditional (investor-type users only); Handoff is terminal.
var StepOrder = []DialogueStep{
	StepGreeting,
	StepLocation,
	StepPropertyType,
	StepPropertySpecs,
	StepBudget,
	StepStrategy,
	StepTimeline,
	StepSummary,
	StepHandoff,
}

// PropertyType is a closed category tag for the kind of deal a user wants
type PropertyType string

const (
	TypePrimaryResidence PropertyType = "primary-residence"
	TypeFixFlip          PropertyType = "fix-flip"
	TypeRental           PropertyType = "rental"
	TypeMultiFamily      PropertyType = "multi-family"
	TypeQuickDeal        PropertyType = "quick-deal"
)

// AllPropertyTypes lists every valid category tag
var AllPropertyTypes = []PropertyType{
	TypePrimaryResidence,
	TypeFixFlip,
	TypeRental,
	TypeMultiFamily,
	TypeQuickDeal,
}

// IsInvestment reports whether the tag is an investment-flavored category.
// Users with at least one investment tag get the Strategy and Timeline steps.
func (t PropertyType) IsInvestment() bool {
	switch t {
	case TypeFixFlip, TypeRental, TypeMultiFamily, TypeQuickDeal:
		return true
	}
	return false
}

// UserType classifies who we are talking to, detected from their wording
type UserType string

const (
	UserHomebuyer UserType = "homebuyer"
	UserRealtor   UserType = "realtor"
	UserInvestor  UserType = "investor"
	UserUnknown   UserType = "unknown"
)

// InvestmentStrategy is a closed investing-approach tag
type InvestmentStrategy string

const (
	StrategyBuyAndHold InvestmentStrategy = "buy-and-hold"
	StrategyFixAndFlip InvestmentStrategy = "fix-and-flip"
	StrategyBRRRR      InvestmentStrategy = "brrrr"
	StrategyWholesale  InvestmentStrategy = "wholesale"
)

// Timeline is a purchase-horizon bucket
type Timeline string

const (
	TimelineImmediate  Timeline = "immediate"
	TimelineQuarter    Timeline = "3_months"
	TimelineHalfYear   Timeline = "6_months"
	TimelineLongerTerm Timeline = "longer"
)

// Location is a resolved search area. Exactly one form is usually set:
// City+State, a 5-digit ZIP, or a free-text fallback the extractor could
// not structure.
type Location struct {
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
	Zip   string `json:"zip,omitempty"`
	Raw   string `json:"raw,omitempty"`
}

// IsZero reports whether nothing at all was resolved
func (l Location) IsZero() bool {
	return l.City == "" && l.State == "" && l.Zip == "" && l.Raw == ""
}

// String renders the location the way a user would say it
func (l Location) String() string {
	switch {
	case l.City != "" && l.State != "":
		return l.City + ", " + l.State
	case l.Zip != "":
		return l.Zip
	case l.City != "":
		return l.City
	default:
		return l.Raw
	}
}

// Range is a numeric interval; either bound may be absent
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Specs holds the numeric property requirements collected so far
type Specs struct {
	Bedrooms   *Range `json:"bedrooms,omitempty"`
	Bathrooms  *Range `json:"bathrooms,omitempty"`
	SquareFeet *Range `json:"square_feet,omitempty"`
}

// IsZero reports whether no spec field has been collected
func (s *Specs) IsZero() bool {
	return s == nil || (s.Bedrooms == nil && s.Bathrooms == nil && s.SquareFeet == nil)
}

// Preferences is everything learned about a user's search so far.
// One instance exists per conversation session; it is mutated exclusively
// by the dialogue machine and discarded with the session.
type Preferences struct {
	Location      *Location      `json:"location,omitempty"`
	PropertyTypes []PropertyType `json:"property_types,omitempty"`
	Specs         Specs          `json:"specs"`
	Budget        *Range         `json:"budget,omitempty"`
	// BudgetNote records an auto-correction of conflicting budget bounds so
	// the adjustment is surfaced in the next summary rather than dropped.
	BudgetNote string               `json:"budget_note,omitempty"`
	Strategies []InvestmentStrategy `json:"strategies,omitempty"`
	Timeline   Timeline             `json:"timeline,omitempty"`
	UserType   UserType             `json:"user_type,omitempty"`
	// CompletedSteps lists steps that have yielded usable data, in the order
	// they were satisfied. A step never un-completes, even if revisited.
	CompletedSteps []DialogueStep `json:"completed_steps,omitempty"`
}

// NewPreferences returns an empty preference model for a fresh session
func NewPreferences() *Preferences {
	return &Preferences{UserType: UserUnknown}
}

// StepCompleted reports whether a step has already yielded usable data
func (p *Preferences) StepCompleted(step DialogueStep) bool {
	for _, s := range p.CompletedSteps {
		if s == step {
			return true
		}
	}
	return false
}

// MarkCompleted records a step as satisfied; idempotent
func (p *Preferences) MarkCompleted(step DialogueStep) {
	if !p.StepCompleted(step) {
		p.CompletedSteps = append(p.CompletedSteps, step)
	}
}

// HasPropertyType reports whether the tag has already been observed
func (p *Preferences) HasPropertyType(t PropertyType) bool {
	for _, pt := range p.PropertyTypes {
		if pt == t {
			return true
		}
	}
	return false
}

// AddPropertyTypes unions new tags into the set
func (p *Preferences) AddPropertyTypes(types []PropertyType) {
	for _, t := range types {
		if !p.HasPropertyType(t) {
			p.PropertyTypes = append(p.PropertyTypes, t)
		}
	}
}

// IsInvestor reports whether the user should get the Strategy and Timeline
// steps: either an investment-flavored property type was selected or their
// wording identified them as an investor.
func (p *Preferences) IsInvestor() bool {
	if p.UserType == UserInvestor {
		return true
	}
	for _, t := range p.PropertyTypes {
		if t.IsInvestment() {
			return true
		}
	}
	return false
}

// Float is a convenience for building *float64 literals
func Float(v float64) *float64 { return &v }

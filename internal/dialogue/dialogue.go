package dialogue

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"dealscout/internal/extract"
	"dealscout/internal/model"
	"dealscout/internal/utils"
)

// Machine drives the preference-collection conversation. It is stateless
// itself; all per-session state lives in State. Calls for one session must
// be serialized by the caller, different sessions are independent.
type Machine struct {
	ex  *extract.Extractor
	log *zap.Logger
}

// New creates a dialogue machine around the given extractor.
func New(ex *extract.Extractor, log *zap.Logger) *Machine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Machine{ex: ex, log: log}
}

// State is one session's position in the conversation plus everything
// learned so far.
type State struct {
	Step        model.DialogueStep `json:"step"`
	Preferences *model.Preferences `json:"preferences"`
}

// NewState returns a fresh session state positioned at the greeting.
func NewState() *State {
	return &State{Step: model.StepGreeting, Preferences: model.NewPreferences()}
}

// ProcessUtterance consumes one user message, merges whatever it can
// extract into the preferences, and decides the next step and reply.
// complete becomes true once the session reaches handoff. The state is
// mutated in place.
func (m *Machine) ProcessUtterance(state *State, text string) (reply string, complete bool) {
	prefs := state.Preferences

	if state.Step == model.StepHandoff {
		return "Your search is already underway. Start a new conversation to change your criteria.", true
	}

	// The summary step only waits for acknowledgement. Any utterance,
	// confirming or not, moves to handoff; corrections at this point start
	// a search with whatever the recap showed.
	if state.Step == model.StepSummary {
		state.Step = model.StepHandoff
		prefs.MarkCompleted(model.StepSummary)
		prefs.MarkCompleted(model.StepHandoff)
		m.log.Info("session complete, handing off to search",
			zap.String("location", locationText(prefs)))
		return "Great, I'm on it. Searching for properties that match your criteria now.", true
	}

	// Every extractor runs on every utterance, so a field stated out of
	// turn (or a correction to an earlier answer) is captured immediately
	// without moving the user off their current step.
	captured := m.merge(prefs, text)

	if state.Step == model.StepGreeting {
		prefs.MarkCompleted(model.StepGreeting)
	}

	// An explicit "no preference" answer satisfies the optional steps so
	// the conversation cannot stall on a question the user has no answer to.
	if isNoPreference(text) && optionalStep(state.Step) {
		prefs.MarkCompleted(state.Step)
	}

	prev := state.Step
	state.Step = m.advance(state)

	if state.Step == model.StepSummary {
		return m.summaryReply(prefs), false
	}
	if state.Step == prev && prev != model.StepGreeting {
		return m.clarifyReply(state.Step, prefs, captured), false
	}
	return m.promptReply(state.Step, prefs), false
}

// merge runs every extractor over the utterance and folds the results
// into the preferences. Scalar fields overwrite, set fields union.
// Returns the names of fields that captured something, for reply wording.
func (m *Machine) merge(prefs *model.Preferences, text string) []string {
	var captured []string

	if loc := m.ex.Location(text); loc != nil {
		prefs.Location = loc
		prefs.MarkCompleted(model.StepLocation)
		captured = append(captured, "location")
	}

	if types := m.ex.PropertyTypes(text); len(types) > 0 {
		prefs.AddPropertyTypes(types)
		prefs.MarkCompleted(model.StepPropertyType)
		captured = append(captured, "property type")
	}

	if specs := m.ex.Specs(text); specs != nil {
		if specs.Bedrooms != nil {
			prefs.Specs.Bedrooms = specs.Bedrooms
		}
		if specs.Bathrooms != nil {
			prefs.Specs.Bathrooms = specs.Bathrooms
		}
		if specs.SquareFeet != nil {
			prefs.Specs.SquareFeet = specs.SquareFeet
		}
		prefs.MarkCompleted(model.StepPropertySpecs)
		captured = append(captured, "specs")
	}

	if budget := m.ex.Budget(text); budget != nil {
		mergeBudget(prefs, budget)
		prefs.MarkCompleted(model.StepBudget)
		captured = append(captured, "budget")
	}

	if strategies := m.ex.Strategies(text); len(strategies) > 0 {
		for _, s := range strategies {
			if !hasStrategy(prefs.Strategies, s) {
				prefs.Strategies = append(prefs.Strategies, s)
			}
		}
		prefs.MarkCompleted(model.StepStrategy)
		captured = append(captured, "strategy")
	}

	if tl := m.ex.Timeline(text); tl != "" {
		prefs.Timeline = tl
		prefs.MarkCompleted(model.StepTimeline)
		captured = append(captured, "timeline")
	}

	if ut := m.ex.UserType(text); ut != model.UserUnknown {
		prefs.UserType = ut
	}

	if len(captured) > 0 {
		m.log.Debug("extracted fields from utterance", zap.Strings("fields", captured))
	}
	return captured
}

// mergeBudget folds a newly stated budget into the existing one. The most
// recently stated bound is authoritative: when the merge would leave
// min > max, the stale opposing bound is dropped and the correction is
// recorded so the next summary shows it.
func mergeBudget(prefs *model.Preferences, r *model.Range) {
	if prefs.Budget == nil {
		prefs.Budget = &model.Range{Min: r.Min, Max: r.Max}
		return
	}

	b := prefs.Budget
	if r.Min != nil {
		b.Min = r.Min
	}
	if r.Max != nil {
		b.Max = r.Max
	}

	if b.Min == nil || b.Max == nil || *b.Min <= *b.Max {
		return
	}

	switch {
	case r.Max != nil && r.Min == nil:
		prefs.BudgetNote = fmt.Sprintf(
			"dropped the earlier %s minimum since you now want to stay under %s",
			utils.FormatMoney(*b.Min), utils.FormatMoney(*b.Max))
		b.Min = nil
	case r.Min != nil && r.Max == nil:
		prefs.BudgetNote = fmt.Sprintf(
			"dropped the earlier %s maximum since you now want at least %s",
			utils.FormatMoney(*b.Max), utils.FormatMoney(*b.Min))
		b.Max = nil
	default:
		b.Min, b.Max = b.Max, b.Min
	}
}

// advance moves to the first later step whose field is still missing,
// skipping the investor-only steps for non-investors. It never moves
// backwards.
func (m *Machine) advance(state *State) model.DialogueStep {
	prefs := state.Preferences
	idx := stepIndex(state.Step)
	for i := idx; i < len(model.StepOrder); i++ {
		step := model.StepOrder[i]
		if step == model.StepHandoff {
			break
		}
		if (step == model.StepStrategy || step == model.StepTimeline) && !prefs.IsInvestor() {
			continue
		}
		if !stepSatisfied(step, prefs) {
			return step
		}
	}
	return model.StepSummary
}

func stepIndex(step model.DialogueStep) int {
	for i, s := range model.StepOrder {
		if s == step {
			return i
		}
	}
	return 0
}

// stepSatisfied reports whether a step's required field is present, either
// as extracted data or via an explicit no-preference answer.
func stepSatisfied(step model.DialogueStep, prefs *model.Preferences) bool {
	if prefs.StepCompleted(step) {
		return true
	}
	switch step {
	case model.StepGreeting:
		return true
	case model.StepLocation:
		return prefs.Location != nil
	case model.StepPropertyType:
		return len(prefs.PropertyTypes) > 0
	case model.StepPropertySpecs:
		return !prefs.Specs.IsZero()
	case model.StepBudget:
		return prefs.Budget != nil
	case model.StepStrategy:
		return len(prefs.Strategies) > 0
	case model.StepTimeline:
		return prefs.Timeline != ""
	}
	return false
}

// optionalStep reports whether a step may be skipped with a no-preference
// answer. Location and property type always require real data.
func optionalStep(step model.DialogueStep) bool {
	switch step {
	case model.StepPropertySpecs, model.StepBudget, model.StepStrategy, model.StepTimeline:
		return true
	}
	return false
}

var noPreferenceVocab = []string{
	"no preference", "doesn't matter", "don't care", "don't mind",
	"anything works", "whatever works", "not sure", "skip", "flexible",
	"open to anything", "any is fine", "no limit",
}

func isNoPreference(text string) bool {
	lower := strings.ToLower(text)
	for _, v := range noPreferenceVocab {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}

func hasStrategy(list []model.InvestmentStrategy, s model.InvestmentStrategy) bool {
	for _, have := range list {
		if have == s {
			return true
		}
	}
	return false
}

// promptReply is the question asked on arriving at a step.
func (m *Machine) promptReply(step model.DialogueStep, prefs *model.Preferences) string {
	switch step {
	case model.StepLocation:
		return "Happy to help you find the right property. Where are you looking? A city and state works, or a ZIP code if you have one in mind."
	case model.StepPropertyType:
		return fmt.Sprintf("Got it, %s. What kind of property are you after? For example a place to live in, a rental, a fix and flip, or a multi-family building.", locationText(prefs))
	case model.StepPropertySpecs:
		return "What size are you thinking? Bedrooms, bathrooms, square footage, whatever matters to you. Say \"no preference\" if you're flexible."
	case model.StepBudget:
		return "What's your price range? A single number works too, like \"under 400k\" or \"at least 250,000\"."
	case model.StepStrategy:
		return "Since you're investing, what's your approach? Buy and hold, fix and flip, BRRRR, or wholesaling?"
	case model.StepTimeline:
		return "And when are you looking to buy? Right away, within a few months, this year, or no rush?"
	default:
		return m.summaryReply(prefs)
	}
}

// clarifyReply is sent when the current step's field is still missing
// after an utterance. Fields captured out of turn are acknowledged so the
// user knows they were heard.
func (m *Machine) clarifyReply(step model.DialogueStep, prefs *model.Preferences, captured []string) string {
	ack := ""
	if len(captured) > 0 {
		ack = fmt.Sprintf("I've noted your %s. ", strings.Join(captured, " and "))
	}
	switch step {
	case model.StepLocation:
		return ack + "I still need a location to search in. Could you give me a city and state, or a ZIP code?"
	case model.StepPropertyType:
		return ack + "I still need the kind of property: a home to live in, a rental, a flip, or a multi-family building?"
	case model.StepPropertySpecs:
		return ack + "Any size requirements? Bedrooms, bathrooms, or square footage. \"No preference\" is fine."
	case model.StepBudget:
		return ack + "And what's your budget? A range or a single upper or lower bound both work."
	case model.StepStrategy:
		return ack + "Which investing approach fits you best: buy and hold, fix and flip, BRRRR, or wholesaling?"
	case model.StepTimeline:
		return ack + "When would you like to buy? Right away, a few months out, this year, or no rush?"
	default:
		return ack + "Could you tell me a bit more?"
	}
}

// summaryReply synthesizes the recap shown before handoff.
func (m *Machine) summaryReply(prefs *model.Preferences) string {
	var b strings.Builder
	b.WriteString("Here's what I have so far:\n")

	fmt.Fprintf(&b, "- Location: %s\n", locationText(prefs))

	if len(prefs.PropertyTypes) > 0 {
		names := make([]string, len(prefs.PropertyTypes))
		for i, t := range prefs.PropertyTypes {
			names[i] = string(t)
		}
		fmt.Fprintf(&b, "- Property type: %s\n", strings.Join(names, ", "))
	}

	if !prefs.Specs.IsZero() {
		var parts []string
		if r := prefs.Specs.Bedrooms; r != nil {
			parts = append(parts, utils.FormatCountRange(r.Min, r.Max)+" bed")
		}
		if r := prefs.Specs.Bathrooms; r != nil {
			parts = append(parts, utils.FormatCountRange(r.Min, r.Max)+" bath")
		}
		if r := prefs.Specs.SquareFeet; r != nil {
			parts = append(parts, utils.FormatCountRange(r.Min, r.Max)+" sqft")
		}
		fmt.Fprintf(&b, "- Specs: %s\n", strings.Join(parts, ", "))
	}

	if prefs.Budget != nil {
		line := "- Budget: " + utils.FormatMoneyRange(prefs.Budget.Min, prefs.Budget.Max)
		if prefs.BudgetNote != "" {
			line += " (note: " + prefs.BudgetNote + ")"
		}
		b.WriteString(line + "\n")
	}

	if len(prefs.Strategies) > 0 {
		names := make([]string, len(prefs.Strategies))
		for i, s := range prefs.Strategies {
			names[i] = string(s)
		}
		fmt.Fprintf(&b, "- Strategy: %s\n", strings.Join(names, ", "))
	}
	if prefs.Timeline != "" {
		fmt.Fprintf(&b, "- Timeline: %s\n", timelineText(prefs.Timeline))
	}

	b.WriteString("\nShall I start the search? Reply with anything to continue.")
	return b.String()
}

func locationText(prefs *model.Preferences) string {
	if prefs.Location == nil {
		return "anywhere"
	}
	return prefs.Location.String()
}

func timelineText(tl model.Timeline) string {
	switch tl {
	case model.TimelineImmediate:
		return "as soon as possible"
	case model.TimelineQuarter:
		return "within 3 months"
	case model.TimelineHalfYear:
		return "within 6 months"
	case model.TimelineLongerTerm:
		return "no particular rush"
	}
	return string(tl)
}

package dialogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealscout/internal/extract"
	"dealscout/internal/model"
)

func testMachine() *Machine {
	ex := extract.New(map[string]model.Location{
		"austin": {City: "Austin", State: "TX"},
		"miami":  {City: "Miami", State: "FL"},
	})
	return New(ex, nil)
}

func TestHomebuyerFlow(t *testing.T) {
	m := testMachine()
	s := NewState()

	reply, complete := m.ProcessUtterance(s, "hi there")
	assert.False(t, complete)
	assert.Equal(t, model.StepLocation, s.Step)
	assert.Contains(t, reply, "Where are you looking")

	_, complete = m.ProcessUtterance(s, "Austin, TX")
	assert.False(t, complete)
	assert.Equal(t, model.StepPropertyType, s.Step)
	require.NotNil(t, s.Preferences.Location)
	assert.Equal(t, "Austin", s.Preferences.Location.City)

	_, complete = m.ProcessUtterance(s, "somewhere my family can live in")
	assert.False(t, complete)
	assert.Equal(t, model.StepPropertySpecs, s.Step)
	assert.Contains(t, s.Preferences.PropertyTypes, model.TypePrimaryResidence)

	_, complete = m.ProcessUtterance(s, "3 bedrooms and 2 baths")
	assert.False(t, complete)
	assert.Equal(t, model.StepBudget, s.Step)

	// Primary-residence users skip straight from budget to the summary.
	reply, complete = m.ProcessUtterance(s, "under $400,000")
	assert.False(t, complete)
	assert.Equal(t, model.StepSummary, s.Step)
	assert.Contains(t, reply, "Austin, TX")
	assert.Contains(t, reply, "$400,000")

	reply, complete = m.ProcessUtterance(s, "yes, go ahead")
	assert.True(t, complete)
	assert.Equal(t, model.StepHandoff, s.Step)
	assert.Contains(t, reply, "Searching")
}

func TestInvestorFlowIncludesStrategyAndTimeline(t *testing.T) {
	m := testMachine()
	s := NewState()

	m.ProcessUtterance(s, "hello")
	m.ProcessUtterance(s, "Miami, FL")
	_, _ = m.ProcessUtterance(s, "rental properties for cash flow")
	assert.Equal(t, model.StepPropertySpecs, s.Step)
	assert.True(t, s.Preferences.IsInvestor())

	m.ProcessUtterance(s, "2+ bedrooms")
	m.ProcessUtterance(s, "between 200k and 350k")
	assert.Equal(t, model.StepStrategy, s.Step)

	m.ProcessUtterance(s, "buy and hold")
	assert.Equal(t, model.StepTimeline, s.Step)

	_, complete := m.ProcessUtterance(s, "within 3 months")
	assert.False(t, complete)
	assert.Equal(t, model.StepSummary, s.Step)

	_, complete = m.ProcessUtterance(s, "looks right")
	assert.True(t, complete)
}

func TestLocationStepExtractsEverythingAtOnce(t *testing.T) {
	m := testMachine()
	s := NewState()
	m.ProcessUtterance(s, "hi")

	m.ProcessUtterance(s, "3 bed house in Miami, FL under $400,000")

	p := s.Preferences
	require.NotNil(t, p.Location)
	assert.Equal(t, "Miami", p.Location.City)
	assert.Equal(t, "FL", p.Location.State)

	require.NotNil(t, p.Specs.Bedrooms)
	assert.Equal(t, model.Float(3), p.Specs.Bedrooms.Min)
	assert.Equal(t, model.Float(3), p.Specs.Bedrooms.Max)

	require.NotNil(t, p.Budget)
	assert.Nil(t, p.Budget.Min)
	assert.Equal(t, model.Float(400000), p.Budget.Max)

	// Bare "house" is not a category; the property-type step still has to
	// be answered.
	assert.Empty(t, p.PropertyTypes)
	assert.Equal(t, model.StepPropertyType, s.Step)
}

func TestBudgetCorrectionDropsStaleBound(t *testing.T) {
	m := testMachine()
	s := NewState()
	m.ProcessUtterance(s, "hi")
	m.ProcessUtterance(s, "Austin, TX")
	m.ProcessUtterance(s, "a rental")
	m.ProcessUtterance(s, "no preference on size")

	m.ProcessUtterance(s, "at least 300k")
	require.NotNil(t, s.Preferences.Budget)
	assert.Equal(t, model.Float(300000), s.Preferences.Budget.Min)

	m.ProcessUtterance(s, "actually, under 250000")

	b := s.Preferences.Budget
	require.NotNil(t, b)
	assert.Nil(t, b.Min)
	assert.Equal(t, model.Float(250000), b.Max)
	assert.Contains(t, s.Preferences.BudgetNote, "$300,000")
}

func TestBudgetNoteShownInSummary(t *testing.T) {
	m := testMachine()
	s := NewState()
	m.ProcessUtterance(s, "hi")
	m.ProcessUtterance(s, "Austin, TX")
	m.ProcessUtterance(s, "a rental")
	m.ProcessUtterance(s, "doesn't matter")
	m.ProcessUtterance(s, "at least 300k")
	m.ProcessUtterance(s, "make that under 250k")
	m.ProcessUtterance(s, "buy and hold")
	reply, _ := m.ProcessUtterance(s, "asap")

	assert.Equal(t, model.StepSummary, s.Step)
	assert.Contains(t, reply, "note:")
	assert.Contains(t, reply, "$300,000")
}

func TestCorrectionDoesNotChangeStep(t *testing.T) {
	m := testMachine()
	s := NewState()
	m.ProcessUtterance(s, "hi")
	m.ProcessUtterance(s, "Austin, TX")
	m.ProcessUtterance(s, "a rental")
	assert.Equal(t, model.StepPropertySpecs, s.Step)

	// A new location mid-flow updates preferences but the conversation
	// stays on the open question.
	reply, _ := m.ProcessUtterance(s, "wait, make it Miami, FL instead")
	assert.Equal(t, model.StepPropertySpecs, s.Step)
	assert.Equal(t, "Miami", s.Preferences.Location.City)
	assert.Contains(t, reply, "noted your location")
}

func TestClarifyOnExtractionMiss(t *testing.T) {
	m := testMachine()
	s := NewState()
	m.ProcessUtterance(s, "hi")

	for i := 0; i < 3; i++ {
		reply, complete := m.ProcessUtterance(s, "hmm let me think")
		assert.False(t, complete)
		assert.Equal(t, model.StepLocation, s.Step)
		assert.Contains(t, reply, "city and state")
	}
}

func TestNoPreferenceSkipsOptionalStepsOnly(t *testing.T) {
	m := testMachine()
	s := NewState()
	m.ProcessUtterance(s, "hi")

	// Location is mandatory; a shrug does not advance.
	m.ProcessUtterance(s, "no preference")
	assert.Equal(t, model.StepLocation, s.Step)

	m.ProcessUtterance(s, "Austin, TX")
	m.ProcessUtterance(s, "a place for my family to live in")
	assert.Equal(t, model.StepPropertySpecs, s.Step)

	m.ProcessUtterance(s, "no preference")
	assert.Equal(t, model.StepBudget, s.Step)

	m.ProcessUtterance(s, "whatever works")
	assert.Equal(t, model.StepSummary, s.Step)
}

func TestStepsNeverRegress(t *testing.T) {
	m := testMachine()
	s := NewState()
	order := map[model.DialogueStep]int{}
	for i, step := range model.StepOrder {
		order[step] = i
	}

	utterances := []string{
		"hi", "Austin, TX", "a rental", "3 bed", "under 300k",
		"buy and hold", "Miami, FL actually", "asap", "go",
	}
	last := order[s.Step]
	for _, u := range utterances {
		m.ProcessUtterance(s, u)
		cur := order[s.Step]
		assert.GreaterOrEqual(t, cur, last, "step regressed after %q", u)
		last = cur
	}
	assert.Equal(t, model.StepHandoff, s.Step)
}

func TestBedroomRangeIsNotABudget(t *testing.T) {
	m := testMachine()
	s := NewState()

	m.ProcessUtterance(s, "hi")
	m.ProcessUtterance(s, "Austin, TX")
	m.ProcessUtterance(s, "somewhere my family can live in")

	// A bedroom range at the specs step must never read as a price range.
	_, complete := m.ProcessUtterance(s, "between 2 and 3 bedrooms")
	assert.False(t, complete)
	assert.Nil(t, s.Preferences.Budget)
	assert.False(t, s.Preferences.StepCompleted(model.StepBudget))
	assert.Equal(t, model.StepBudget, s.Step)
}

func TestCompletedStepsNeverReset(t *testing.T) {
	m := testMachine()
	s := NewState()
	m.ProcessUtterance(s, "hi")
	m.ProcessUtterance(s, "Austin, TX")
	assert.True(t, s.Preferences.StepCompleted(model.StepLocation))

	m.ProcessUtterance(s, "Miami, FL instead")
	assert.True(t, s.Preferences.StepCompleted(model.StepLocation))
	n := len(s.Preferences.CompletedSteps)
	m.ProcessUtterance(s, "Austin, TX again")
	assert.Len(t, s.Preferences.CompletedSteps, n)
}

func TestHandoffIsTerminal(t *testing.T) {
	m := testMachine()
	s := NewState()
	s.Step = model.StepHandoff

	reply, complete := m.ProcessUtterance(s, "more please")
	assert.True(t, complete)
	assert.Equal(t, model.StepHandoff, s.Step)
	assert.Contains(t, reply, "already underway")
}

package model

// Prefill carries structured inputs a hosting page already collected,
// used to seed a fresh session so the user is not asked twice.
type Prefill struct {
	Location      string   `json:"location,omitempty"`
	PropertyTypes []string `json:"property_types,omitempty"`
	BudgetMin     *float64 `json:"budget_min,omitempty"`
	BudgetMax     *float64 `json:"budget_max,omitempty"`
}

// ChatRequest is the inbound boundary shape for one utterance
type ChatRequest struct {
	SessionID string   `json:"session_id,omitempty"`
	Message   string   `json:"message" binding:"required"`
	Prefill   *Prefill `json:"prefill,omitempty"`
}

// ChatResponse is what the boundary returns for one utterance. Results is
// populated only once the conversation completes and a search has run; the
// rendering layer consumes it as data, never by re-parsing Reply.
type ChatResponse struct {
	SessionID   string            `json:"session_id"`
	Reply       string            `json:"reply"`
	Complete    bool              `json:"complete"`
	CurrentStep DialogueStep      `json:"current_step"`
	Preferences *Preferences      `json:"preferences"`
	Results     []ValuationResult `json:"results,omitempty"`
}

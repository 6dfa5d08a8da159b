package handler

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"dealscout/internal/dialogue"
	"dealscout/internal/extract"
	"dealscout/internal/metrics"
	"dealscout/internal/model"
	"dealscout/internal/search"
	"dealscout/internal/session"
)

// ChatHandler owns the conversational boundary: one POST per user
// utterance, session state persisted between turns.
type ChatHandler struct {
	machine  *dialogue.Machine
	extract  *extract.Extractor
	sessions session.Store
	search   *search.Orchestrator
	log      *zap.Logger
	locks    sessionLocks
}

// NewChatHandler creates the chat handler.
func NewChatHandler(
	machine *dialogue.Machine,
	ex *extract.Extractor,
	sessions session.Store,
	orchestrator *search.Orchestrator,
	log *zap.Logger,
) *ChatHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ChatHandler{
		machine:  machine,
		extract:  ex,
		sessions: sessions,
		search:   orchestrator,
		log:      log,
		locks:    sessionLocks{held: make(map[string]*lockEntry)},
	}
}

// Chat handles POST /api/v1/chat. Turns for the same session are
// serialized so concurrent messages cannot interleave state updates;
// different sessions proceed independently.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	unlock := h.locks.lock(sessionID)
	defer unlock()

	ctx := c.Request.Context()

	state, err := h.sessions.Get(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		state = dialogue.NewState()
		h.applyPrefill(state, req.Prefill)
		metrics.SessionsStarted.Inc()
	} else if err != nil {
		h.log.Error("session load failed", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session store unavailable"})
		return
	}

	prevStep := state.Step
	reply, complete := h.machine.ProcessUtterance(state, req.Message)
	metrics.ChatRequests.WithLabelValues(string(state.Step)).Inc()

	resp := model.ChatResponse{
		SessionID:   sessionID,
		Reply:       reply,
		Complete:    complete,
		CurrentStep: state.Step,
		Preferences: state.Preferences,
	}

	// The turn that crosses into handoff triggers the search. Later turns
	// on a finished session only get the terminal reply.
	if complete && prevStep != model.StepHandoff {
		searchReply, results, searchErr := h.search.Run(ctx, state.Preferences)
		outcome := "ok"
		if searchErr != nil {
			outcome = "error"
		}
		metrics.SearchesStarted.WithLabelValues(h.providerLabel(), outcome).Inc()
		for _, r := range results {
			if r.IsUndervalued {
				metrics.UndervaluedFound.Inc()
			}
		}
		resp.Reply = reply + "\n\n" + searchReply
		resp.Results = results
	}

	if err := h.sessions.Put(ctx, sessionID, state); err != nil {
		h.log.Error("session save failed", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session store unavailable"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetSession handles GET /api/v1/sessions/:id.
func (h *ChatHandler) GetSession(c *gin.Context) {
	id := c.Param("id")

	state, err := h.sessions.Get(c.Request.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session store unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":   id,
		"current_step": state.Step,
		"preferences":  state.Preferences,
	})
}

// DeleteSession handles DELETE /api/v1/sessions/:id.
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	id := c.Param("id")

	if err := h.sessions.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// applyPrefill seeds a fresh session with structured inputs the hosting
// page already collected, so the user is never asked for them again.
// Unresolvable prefill values are ignored rather than rejected.
func (h *ChatHandler) applyPrefill(state *dialogue.State, prefill *model.Prefill) {
	if prefill == nil {
		return
	}
	prefs := state.Preferences

	if prefill.Location != "" {
		if loc := h.extract.Location(prefill.Location); loc != nil {
			prefs.Location = loc
			prefs.MarkCompleted(model.StepLocation)
		}
	}

	for _, raw := range prefill.PropertyTypes {
		if t, ok := parsePropertyType(raw); ok {
			prefs.AddPropertyTypes([]model.PropertyType{t})
			prefs.MarkCompleted(model.StepPropertyType)
		}
	}

	if prefill.BudgetMin != nil || prefill.BudgetMax != nil {
		prefs.Budget = &model.Range{Min: prefill.BudgetMin, Max: prefill.BudgetMax}
		prefs.MarkCompleted(model.StepBudget)
	}
}

func parsePropertyType(raw string) (model.PropertyType, bool) {
	candidate := model.PropertyType(strings.ToLower(strings.TrimSpace(raw)))
	for _, t := range model.AllPropertyTypes {
		if t == candidate {
			return t, true
		}
	}
	return "", false
}

func (h *ChatHandler) providerLabel() string {
	if h.search == nil {
		return "none"
	}
	return h.search.ProviderName()
}

// sessionLocks serializes chat turns per session id. Entries are
// refcounted and removed once the last holder releases, so the map only
// ever holds sessions with a turn in flight.
type sessionLocks struct {
	mu   sync.Mutex
	held map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	e, ok := l.held[id]
	if !ok {
		e = &lockEntry{}
		l.held[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}

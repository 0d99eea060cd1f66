package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/wilds-engine/internal/journal"
	"github.com/jwebster45206/wilds-engine/internal/sim"
	"github.com/jwebster45206/wilds-engine/internal/storage"
	"github.com/jwebster45206/wilds-engine/pkg/engine"
	"github.com/jwebster45206/wilds-engine/pkg/state"
	"github.com/jwebster45206/wilds-engine/pkg/tension"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// RunFactory starts a run. sess is nil for a new run and a stored session
// when resuming.
type RunFactory func(seed int64, sess *engine.Session) (*sim.Runner, error)

// JournalReader lists recorded entries for a session.
type JournalReader interface {
	List(ctx context.Context, sessionID uuid.UUID, limit int) ([]journal.Entry, error)
}

type CreateSessionRequest struct {
	Seed *int64 `json:"seed,omitempty"`
}

type ChooseRequest struct {
	Choice int `json:"choice"`
}

// SessionView is a run as clients see it.
type SessionView struct {
	ID       uuid.UUID         `json:"id"`
	Seed     int64             `json:"seed"`
	Tick     int64             `json:"tick"`
	Day      int               `json:"day"`
	Minute   int               `json:"minute"`
	Phase    string            `json:"phase"`
	Alive    bool              `json:"alive"`
	Health   float64           `json:"health"`
	Location string            `json:"location"`
	Weather  state.Weather     `json:"weather"`
	Stats    state.Stats       `json:"stats"`
	Tensions []tension.Tension `json:"tensions"`
	Pending  *EncounterView    `json:"pending,omitempty"`
}

// EncounterView adds the labels of the offered choices. Option.Index is
// what ChooseRequest.Choice expects.
type EncounterView struct {
	*engine.Encounter
	Options []Option `json:"options"`
}

type Option struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

type TickResponse struct {
	Session   SessionView    `json:"session"`
	Encounter *EncounterView `json:"encounter,omitempty"`
}

type ChooseResponse struct {
	Session    SessionView        `json:"session"`
	Resolution *engine.Resolution `json:"resolution"`
}

// SessionHandler serves runs over HTTP. Live runs stay in memory; the
// store keeps the engine session so a run can be resumed after a restart.
// Routes:
// POST   /v1/sessions               - Start a run
// GET    /v1/sessions               - List stored session ids
// GET    /v1/sessions/{id}          - Read a run, resuming it if needed
// POST   /v1/sessions/{id}/tick     - Advance one tick
// POST   /v1/sessions/{id}/choose   - Answer the pending encounter
// GET    /v1/sessions/{id}/journal  - Recorded encounters and resolutions
// DELETE /v1/sessions/{id}          - Forget a run
type SessionHandler struct {
	newRun      RunFactory
	store       storage.Store
	journal     JournalReader
	defaultSeed int64
	logger      *slog.Logger

	mu   sync.Mutex // guards runs only
	runs map[uuid.UUID]*liveRun
}

// liveRun serializes requests for one run. runner is nil once the run has
// been forgotten or failed to resume.
type liveRun struct {
	mu     sync.Mutex
	runner *sim.Runner
}

func NewSessionHandler(newRun RunFactory, store storage.Store, journal JournalReader, defaultSeed int64, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		newRun:      newRun,
		store:       store,
		journal:     journal,
		defaultSeed: defaultSeed,
		logger:      logger,
		runs:        make(map[uuid.UUID]*liveRun),
	}
}

// Register adds the session routes to mux.
func (h *SessionHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/sessions", h.handleCreate)
	mux.HandleFunc("GET /v1/sessions", h.handleList)
	mux.HandleFunc("GET /v1/sessions/{id}", h.handleRead)
	mux.HandleFunc("POST /v1/sessions/{id}/tick", h.handleTick)
	mux.HandleFunc("POST /v1/sessions/{id}/choose", h.handleChoose)
	mux.HandleFunc("GET /v1/sessions/{id}/journal", h.handleJournal)
	mux.HandleFunc("DELETE /v1/sessions/{id}", h.handleDelete)
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
			return
		}
	}
	seed := h.defaultSeed
	if req.Seed != nil {
		seed = *req.Seed
	}

	runner, err := h.newRun(seed, nil)
	if err != nil {
		h.logger.Error("Failed to start run", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to start run")
		return
	}

	live := &liveRun{runner: runner}
	live.mu.Lock()
	h.mu.Lock()
	h.runs[runner.Session().ID] = live
	h.mu.Unlock()
	h.save(r.Context(), runner)
	v := view(runner)
	live.mu.Unlock()

	h.logger.Info("Run started", "session_id", runner.Session().ID.String(), "seed", seed)
	h.writeJSON(w, http.StatusCreated, v)
}

func (h *SessionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ids, err := h.store.ListSessions(r.Context())
	if err != nil {
		h.logger.Error("Failed to list sessions", "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	h.writeJSON(w, http.StatusOK, ids)
}

func (h *SessionHandler) handleRead(w http.ResponseWriter, r *http.Request) {
	runner, release, ok := h.runner(w, r)
	if !ok {
		return
	}
	defer release()
	h.writeJSON(w, http.StatusOK, view(runner))
}

func (h *SessionHandler) handleTick(w http.ResponseWriter, r *http.Request) {
	runner, release, ok := h.runner(w, r)
	if !ok {
		return
	}
	defer release()
	enc, err := runner.Tick(r.Context())
	if errors.Is(err, sim.ErrSurvivorDead) {
		h.writeError(w, http.StatusConflict, "The survivor is dead")
		return
	}
	if err != nil {
		h.logger.Error("Tick failed", "session_id", runner.Session().ID.String(), "error", err)
		h.writeError(w, http.StatusInternalServerError, "Tick failed")
		return
	}
	h.save(r.Context(), runner)
	h.writeJSON(w, http.StatusOK, TickResponse{Session: view(runner), Encounter: encounterView(enc)})
}

func (h *SessionHandler) handleChoose(w http.ResponseWriter, r *http.Request) {
	var req ChooseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	runner, release, ok := h.runner(w, r)
	if !ok {
		return
	}
	defer release()
	res, err := runner.Choose(r.Context(), req.Choice)
	switch {
	case errors.Is(err, engine.ErrNoEncounter):
		h.writeError(w, http.StatusConflict, "No encounter is waiting for a choice")
		return
	case errors.Is(err, engine.ErrChoiceUnavailable):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		h.logger.Error("Choice failed", "session_id", runner.Session().ID.String(), "error", err)
		h.writeError(w, http.StatusInternalServerError, "Choice failed")
		return
	}
	h.save(r.Context(), runner)
	h.writeJSON(w, http.StatusOK, ChooseResponse{Session: view(runner), Resolution: res})
}

func (h *SessionHandler) handleJournal(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		h.writeError(w, http.StatusNotFound, "Journal is not enabled")
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid session ID format")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			h.writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
	}
	entries, err := h.journal.List(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("Failed to read journal", "session_id", id.String(), "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to read journal")
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	h.mu.Lock()
	live := h.runs[id]
	delete(h.runs, id)
	h.mu.Unlock()
	if live != nil {
		// In-flight requests finish first so none saves the session back,
		// and waiters retry only once the store has forgotten it.
		live.mu.Lock()
		defer live.mu.Unlock()
		live.runner = nil
	}

	if err := h.store.DeleteSession(r.Context(), id); err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
		h.logger.Error("Failed to delete session", "session_id", id.String(), "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// runner finds the live run for the request, resuming a stored session
// when it is not in memory. The run stays locked until release is called;
// requests for other runs are not held up.
func (h *SessionHandler) runner(w http.ResponseWriter, r *http.Request) (*sim.Runner, func(), bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", r.PathValue("id"), "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid session ID format")
		return nil, nil, false
	}

	for {
		h.mu.Lock()
		live, ok := h.runs[id]
		if !ok {
			live = &liveRun{}
			live.mu.Lock()
			h.runs[id] = live
			h.mu.Unlock()
			return h.resume(w, r, id, live)
		}
		h.mu.Unlock()

		live.mu.Lock()
		if live.runner != nil {
			return live.runner, live.mu.Unlock, true
		}
		// Forgotten or failed to resume while we waited.
		live.mu.Unlock()
	}
}

// resume loads id into live, which the caller has locked and published.
func (h *SessionHandler) resume(w http.ResponseWriter, r *http.Request, id uuid.UUID, live *liveRun) (*sim.Runner, func(), bool) {
	fail := func(status int, msg string) (*sim.Runner, func(), bool) {
		h.mu.Lock()
		if h.runs[id] == live {
			delete(h.runs, id)
		}
		h.mu.Unlock()
		live.mu.Unlock()
		h.writeError(w, status, msg)
		return nil, nil, false
	}

	sess, err := h.store.LoadSession(r.Context(), id)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return fail(http.StatusNotFound, "Session not found")
	}
	if err != nil {
		h.logger.Error("Failed to load session", "session_id", id.String(), "error", err)
		return fail(http.StatusInternalServerError, "Failed to load session")
	}
	runner, err := h.newRun(sess.Seed, sess)
	if err != nil {
		h.logger.Error("Failed to resume run", "session_id", id.String(), "error", err)
		return fail(http.StatusInternalServerError, "Failed to resume run")
	}
	live.runner = runner
	h.logger.Info("Run resumed", "session_id", id.String())
	return runner, live.mu.Unlock, true
}

// save logs rather than fails: the in-memory run is still authoritative.
func (h *SessionHandler) save(ctx context.Context, runner *sim.Runner) {
	if err := h.store.SaveSession(ctx, runner.Session()); err != nil {
		h.logger.Error("Failed to save session", "session_id", runner.Session().ID.String(), "error", err)
	}
}

func view(r *sim.Runner) SessionView {
	w := r.World()
	snap := r.Snapshot()
	tensions := r.Session().Tensions.Active()
	if tensions == nil {
		tensions = []tension.Tension{}
	}
	return SessionView{
		ID:       r.Session().ID,
		Seed:     r.Session().Seed,
		Tick:     w.Tick(),
		Day:      w.Day(),
		Minute:   w.MinuteOfDay(),
		Phase:    w.Phase().String(),
		Alive:    r.Survivor().Alive(),
		Health:   r.Survivor().Health(),
		Location: snap.Location.Name,
		Weather:  snap.Weather,
		Stats:    snap.Stats,
		Tensions: tensions,
		Pending:  encounterView(r.Pending()),
	}
}

func encounterView(enc *engine.Encounter) *EncounterView {
	if enc == nil {
		return nil
	}
	v := &EncounterView{Encounter: enc, Options: []Option{}}
	for _, idx := range enc.Choices {
		o := Option{Index: idx}
		if enc.Event != nil && idx < len(enc.Event.Choices) {
			o.Label = enc.Event.Choices[idx].Label
		}
		v.Options = append(v.Options, o)
	}
	return v
}

func (h *SessionHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *SessionHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, ErrorResponse{Error: msg})
}

// Package web exposes the application core over a JSON API. It is the
// consumer boundary: the UI renders from these responses and never reaches
// into the core directly.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	stdsync "sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/d-lef/flashcard-webapp/internal/domain"
	"github.com/d-lef/flashcard-webapp/internal/gateway"
	"github.com/d-lef/flashcard-webapp/internal/stats"
	"github.com/d-lef/flashcard-webapp/internal/study"
	syncsvc "github.com/d-lef/flashcard-webapp/internal/sync"
)

// DeckCache is the offline fallback for deck reads.
type DeckCache interface {
	LoadDecks() ([]domain.Deck, error)
	SaveDeck(deck domain.Deck) error
}

// Server holds the dependencies for the HTTP surface.
type Server struct {
	router     *http.ServeMux
	gw         gateway.Gateway
	cache      DeckCache
	writer     *syncsvc.Service
	stats      *stats.Service
	logger     *slog.Logger
	validate   *validator.Validate
	studyLimit int
	rng        *rand.Rand

	mu       stdsync.Mutex
	decks    []domain.Deck
	sessions map[string]*session
}

// session pairs a running study drill with its scope.
type session struct {
	drill    *study.Session
	studyAll bool
}

// NewServer creates and configures the surface.
func NewServer(gw gateway.Gateway, cache DeckCache, writer *syncsvc.Service, st *stats.Service, studyLimit int, logger *slog.Logger) *Server {
	s := &Server{
		router:     http.NewServeMux(),
		gw:         gw,
		cache:      cache,
		writer:     writer,
		stats:      st,
		logger:     logger,
		validate:   validator.New(),
		studyLimit: studyLimit,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions:   make(map[string]*session),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /decks", s.handleListDecks)
	s.router.HandleFunc("POST /decks", s.handleCreateDeck)
	s.router.HandleFunc("PUT /decks/{id}", s.handleRenameDeck)
	s.router.HandleFunc("DELETE /decks/{id}", s.handleDeleteDeck)
	s.router.HandleFunc("POST /decks/{id}/cards", s.handleAddCard)
	s.router.HandleFunc("PUT /cards/{id}", s.handleEditCard)
	s.router.HandleFunc("DELETE /cards/{id}", s.handleDeleteCard)
	s.router.HandleFunc("POST /study/sessions", s.handleStartSession)
	s.router.HandleFunc("GET /study/sessions/{id}", s.handleSessionState)
	s.router.HandleFunc("POST /study/sessions/{id}/answer", s.handleAnswer)
	s.router.HandleFunc("GET /stats", s.handleStats)
}

// RefreshDecks pulls the deck list from the remote store, falling back to the
// local snapshot when the read fails. Call at startup and whenever the UI
// asks for a refresh.
func (s *Server) RefreshDecks(r *http.Request) {
	decks, err := s.gw.FetchDecks(r.Context())
	if err != nil {
		s.logger.Warn("remote deck fetch failed, using cache", "error", err)
		cached, cacheErr := s.cache.LoadDecks()
		if cacheErr != nil {
			s.logger.Warn("deck cache unavailable", "error", cacheErr)
			return
		}
		decks = cached
	} else {
		for _, d := range decks {
			if err := s.cache.SaveDeck(d); err != nil {
				s.logger.Warn("deck snapshot failed", "deck", d.ID, "error", err)
			}
		}
	}
	s.mu.Lock()
	s.decks = decks
	s.mu.Unlock()
}

// LoadInitialDecks is RefreshDecks without a request context, for startup.
func (s *Server) LoadInitialDecks() {
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	s.RefreshDecks(req)
}

func (s *Server) handleListDecks(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "true" {
		s.RefreshDecks(r)
	}
	s.mu.Lock()
	decks := make([]domain.Deck, len(s.decks))
	copy(decks, s.decks)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, decks)
}

type createDeckRequest struct {
	Name string `json:"name" validate:"required"`
}

func (s *Server) handleCreateDeck(w http.ResponseWriter, r *http.Request) {
	var req createDeckRequest
	if !s.readJSON(w, r, &req) {
		return
	}

	deck := domain.Deck{
		ID:        uuid.NewString(),
		Name:      req.Name,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.decks = append(s.decks, deck)
	s.mu.Unlock()

	if _, err := s.writer.SaveDeck(r.Context(), &deck, true); err != nil {
		s.logger.Error("create deck rejected", "error", err)
		http.Error(w, "failed to create deck", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, deck)
}

func (s *Server) handleRenameDeck(w http.ResponseWriter, r *http.Request) {
	var req createDeckRequest
	if !s.readJSON(w, r, &req) {
		return
	}

	s.mu.Lock()
	deck := s.findDeck(r.PathValue("id"))
	if deck != nil {
		deck.Name = req.Name
	}
	var snapshot domain.Deck
	if deck != nil {
		snapshot = *deck
	}
	s.mu.Unlock()

	if deck == nil {
		http.NotFound(w, r)
		return
	}
	if _, err := s.writer.SaveDeck(r.Context(), &snapshot, false); err != nil {
		s.logger.Error("rename deck rejected", "error", err)
		http.Error(w, "failed to rename deck", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleDeleteDeck(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	found := false
	for i := range s.decks {
		if s.decks[i].ID == id {
			s.decks = append(s.decks[:i], s.decks[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		http.NotFound(w, r)
		return
	}
	if _, err := s.writer.DeleteDeck(r.Context(), id); err != nil {
		s.logger.Error("delete deck rejected", "error", err)
		http.Error(w, "failed to delete deck", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cardRequest struct {
	Front string `json:"front" validate:"required"`
	Back  string `json:"back" validate:"required"`
	Type  string `json:"cardType" validate:"omitempty,oneof=flip flip_type"`
}

func (s *Server) handleAddCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if !s.readJSON(w, r, &req) {
		return
	}

	cardType := domain.CardType(req.Type)
	if cardType == "" {
		cardType = domain.CardTypeFlipType
	}
	now := time.Now()
	card := domain.Card{
		ID:        uuid.NewString(),
		Front:     req.Front,
		Back:      req.Back,
		Ease:      2.5,
		Interval:  1,
		Type:      cardType,
		CreatedAt: now,
		UpdatedAt: now,
		IsNew:     true,
	}

	s.mu.Lock()
	deck := s.findDeck(r.PathValue("id"))
	var snapshot domain.Deck
	if deck != nil {
		deck.Cards = append(deck.Cards, card)
		snapshot = *deck
	}
	s.mu.Unlock()

	if deck == nil {
		http.NotFound(w, r)
		return
	}
	if _, err := s.writer.SaveDeck(r.Context(), &snapshot, false); err != nil {
		s.logger.Error("add card rejected", "error", err)
		http.Error(w, "failed to add card", http.StatusInternalServerError)
		return
	}
	s.adoptDeck(snapshot)
	writeJSON(w, http.StatusCreated, card)
}

func (s *Server) handleEditCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	id := r.PathValue("id")

	s.mu.Lock()
	var snapshot domain.Deck
	var edited *domain.Card
	for i := range s.decks {
		if c := s.decks[i].FindCard(id); c != nil {
			c.Front = req.Front
			c.Back = req.Back
			if req.Type != "" {
				c.Type = domain.CardType(req.Type)
			}
			c.IsModified = true
			c.UpdatedAt = time.Now()
			snapshot = s.decks[i]
			edited = c
			break
		}
	}
	s.mu.Unlock()

	if edited == nil {
		http.NotFound(w, r)
		return
	}
	if _, err := s.writer.SaveDeck(r.Context(), &snapshot, false); err != nil {
		s.logger.Error("edit card rejected", "error", err)
		http.Error(w, "failed to edit card", http.StatusInternalServerError)
		return
	}
	s.adoptDeck(snapshot)
	writeJSON(w, http.StatusOK, *edited)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	found := false
	for i := range s.decks {
		if s.decks[i].RemoveCard(id) {
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		http.NotFound(w, r)
		return
	}
	if _, err := s.writer.DeleteCard(r.Context(), id); err != nil {
		s.logger.Error("delete card rejected", "error", err)
		http.Error(w, "failed to delete card", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type startSessionRequest struct {
	DeckID string `json:"deckId"`
	All    bool   `json:"all"`
}

type sessionResponse struct {
	ID        string      `json:"id"`
	Current   *study.Pair `json:"current,omitempty"`
	Completed int         `json:"completed"`
	Total     int         `json:"total"`
	Finished  bool        `json:"finished"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	if !req.All && req.DeckID == "" {
		http.Error(w, "deckId or all required", http.StatusBadRequest)
		return
	}

	today := time.Now()
	s.mu.Lock()
	var pool []domain.Card
	if req.All {
		for _, d := range s.decks {
			pool = append(pool, d.Cards...)
		}
	} else {
		deck := s.findDeck(req.DeckID)
		if deck == nil {
			s.mu.Unlock()
			http.NotFound(w, r)
			return
		}
		pool = append(pool, deck.Cards...)
	}
	batch := study.CardsForStudy(pool, today, s.studyLimit)
	drill := study.NewSession(batch, s.rng)
	id := uuid.NewString()
	s.sessions[id] = &session{drill: drill, studyAll: req.All}
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, s.sessionState(id, drill))
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sess, ok := s.sessions[r.PathValue("id")]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionState(r.PathValue("id"), sess.drill))
}

func (s *Server) sessionState(id string, drill *study.Session) sessionResponse {
	resp := sessionResponse{ID: id, Finished: drill.Finished()}
	resp.Completed, resp.Total = drill.Progress()
	if pair, ok := drill.Current(); ok {
		resp.Current = &pair
	}
	return resp
}

type answerRequest struct {
	Grade string `json:"grade" validate:"required"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !s.readJSON(w, r, &req) {
		return
	}
	grade, err := domain.ParseGrade(req.Grade)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := r.PathValue("id")
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	outcome, err := sess.drill.Answer(grade, time.Now())
	if errors.Is(err, study.ErrSessionFinished) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if outcome.Updated != nil {
		s.persistReview(r, *outcome.Updated, grade, outcome.FirstReviewToday)
	}

	if sess.drill.Finished() {
		s.finishSession(r, id, sess)
	}
	writeJSON(w, http.StatusOK, s.sessionState(id, sess.drill))
}

// persistReview folds a rescheduled card back into its deck, pushes the deck,
// and bumps the day's counters.
func (s *Server) persistReview(r *http.Request, card domain.Card, grade domain.Grade, firstToday bool) {
	s.mu.Lock()
	var snapshot domain.Deck
	var owned bool
	for i := range s.decks {
		if c := s.decks[i].FindCard(card.ID); c != nil {
			*c = card
			snapshot = s.decks[i]
			owned = true
			break
		}
	}
	s.mu.Unlock()

	if owned {
		if _, err := s.writer.SaveDeck(r.Context(), &snapshot, false); err != nil {
			s.logger.Error("review write rejected", "card", card.ID, "error", err)
		} else {
			s.adoptDeck(snapshot)
		}
	}

	correct := grade.Correct()
	day := domain.LocalDay(time.Now())
	if _, err := s.writer.UpdateReviewStats(r.Context(), day, &correct, nil, firstToday); err != nil {
		s.logger.Error("stat update rejected", "day", day, "error", err)
	}
}

// finishSession runs the end-of-session evaluation. Only study-all sessions
// decide the day's completion flag; single-deck drills never touch the
// calendar or the streak.
func (s *Server) finishSession(r *http.Request, id string, sess *session) {
	s.mu.Lock()
	delete(s.sessions, id)
	var pool []domain.Card
	for _, d := range s.decks {
		pool = append(pool, d.Cards...)
	}
	s.mu.Unlock()

	if !sess.studyAll {
		return
	}

	today := time.Now()
	remaining := len(study.DueToday(pool, today)) + len(study.Overdue(pool, today))
	completed := remaining == 0
	day := domain.LocalDay(today)
	if _, err := s.writer.UpdateReviewStats(r.Context(), day, nil, &completed, false); err != nil {
		s.logger.Error("completion write rejected", "day", day, "error", err)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Load(r.Context()))
}

// findDeck must be called with s.mu held.
func (s *Server) findDeck(id string) *domain.Deck {
	for i := range s.decks {
		if s.decks[i].ID == id {
			return &s.decks[i]
		}
	}
	return nil
}

// adoptDeck copies a snapshot (with cleared dirty flags) back into state.
func (s *Server) adoptDeck(deck domain.Deck) {
	s.mu.Lock()
	for i := range s.decks {
		if s.decks[i].ID == deck.ID {
			s.decks[i] = deck
			break
		}
	}
	s.mu.Unlock()
}

// readJSON decodes and validates a request body. Validation failures are
// rejected before any I/O happens.
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return false
	}
	if err := s.validate.Struct(dest); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Too late for a status change; just log.
		slog.Default().Warn("encode response failed", "error", err)
	}
}

// Package web serves the deck over a small JSON API for presentation layers.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/conorfennell/knoldeck/internal/deck"
	"github.com/conorfennell/knoldeck/internal/domain"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	deck   *deck.Deck
	router *http.ServeMux
	log    *slog.Logger

	mu    sync.Mutex
	shown map[int64]domain.Card
}

// NewServer creates and configures a new server.
func NewServer(d *deck.Deck, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		deck:   d,
		router: http.NewServeMux(),
		log:    log,
		shown:  make(map[int64]domain.Card),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("/counts", s.handleGetCounts())
	s.router.HandleFunc("/config", s.handleGetConfig())
	s.router.HandleFunc("/next", s.handleGetNext())
	s.router.HandleFunc("/answer", s.handlePostAnswer())
	s.router.HandleFunc("/check", s.handlePostCheck())
	s.router.HandleFunc("/rebuild", s.handlePostRebuild())
	s.router.HandleFunc("/verify", s.handlePostVerify())
}

type countsResponse struct {
	domain.Counts
	SessionLimitReached bool `json:"sessionLimitReached"`
	RepsToday           int  `json:"repsToday"`
}

type cardResponse struct {
	ID       int64   `json:"id"`
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Type     string  `json:"type"`
	Priority string  `json:"priority"`
	Due      float64 `json:"due"`
	Interval float64 `json:"interval"`
	Factor   float64 `json:"factor"`
	Reps     int     `json:"reps"`
}

type nextResponse struct {
	Card *cardResponse `json:"card"`
	// NextDue is set when no card is due yet.
	NextDue *time.Time `json:"nextDue,omitempty"`
}

type answerRequest struct {
	CardID int64       `json:"cardId"`
	Ease   domain.Ease `json:"ease"`
}

type verifyResponse struct {
	Consistent bool          `json:"consistent"`
	Counts     domain.Counts `json:"counts"`
}

func toCardResponse(c *domain.Card) *cardResponse {
	return &cardResponse{
		ID:       c.ID,
		Question: c.Question,
		Answer:   c.Answer,
		Type:     c.Type.String(),
		Priority: c.Priority.String(),
		Due:      c.Due,
		Interval: c.Interval,
		Factor:   c.Factor,
		Reps:     c.Reps,
	}
}

// handleGetCounts returns the cached queue counters.
func (s *Server) handleGetCounts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		s.writeJSON(w, http.StatusOK, countsResponse{
			Counts:              s.deck.Counts(),
			SessionLimitReached: s.deck.SessionLimitReached(),
			RepsToday:           s.deck.DailyStats().Reps,
		})
	}
}

// handleGetConfig returns the deck configuration.
func (s *Server) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		s.writeJSON(w, http.StatusOK, s.deck.Config())
	}
}

// handleGetNext hands out the next card and remembers when it was shown.
func (s *Server) handleGetNext() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodGet) {
			return
		}
		c, err := s.deck.GetCard(r.Context())
		if err != nil {
			s.serverError(w, "Error getting next card", err)
			return
		}
		if c == nil {
			resp := nextResponse{}
			if due, ok, err := s.deck.EarliestDue(r.Context()); err != nil {
				s.serverError(w, "Error getting earliest due card", err)
				return
			} else if ok {
				resp.NextDue = &due
			}
			s.writeJSON(w, http.StatusOK, resp)
			return
		}

		s.mu.Lock()
		s.shown[c.ID] = *c
		s.mu.Unlock()
		s.writeJSON(w, http.StatusOK, nextResponse{Card: toCardResponse(c)})
	}
}

// handlePostAnswer grades a card. Cards not handed out by /next are loaded
// from the store and recorded without thinking time.
func (s *Server) handlePostAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		c, ok := s.takeShown(req.CardID)
		if !ok {
			loaded, err := s.deck.Card(r.Context(), req.CardID)
			if err != nil {
				s.deckError(w, "Error loading card", err)
				return
			}
			c = *loaded
		}

		if err := s.deck.AnswerCard(r.Context(), &c, req.Ease); err != nil {
			s.deckError(w, "Error answering card", err)
			return
		}
		s.writeJSON(w, http.StatusOK, toCardResponse(&c))
	}
}

// takeShown removes and returns a copy of the card handed out by /next.
func (s *Server) takeShown(id int64) (domain.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.shown[id]
	delete(s.shown, id)
	return c, ok
}

// handlePostCheck moves newly due cards into their queues.
func (s *Server) handlePostCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		if err := s.deck.CheckDue(r.Context()); err != nil {
			s.serverError(w, "Error checking due cards", err)
			return
		}
		s.writeJSON(w, http.StatusOK, s.deck.Counts())
	}
}

// handlePostRebuild recomputes the counters and the queue parameters.
func (s *Server) handlePostRebuild() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		if err := s.deck.RebuildCounts(r.Context(), true); err != nil {
			s.serverError(w, "Error rebuilding counts", err)
			return
		}
		if err := s.deck.RebuildQueue(r.Context()); err != nil {
			s.serverError(w, "Error rebuilding queue", err)
			return
		}
		s.writeJSON(w, http.StatusOK, s.deck.Counts())
	}
}

// handlePostVerify checks the counters against the store and repairs them.
func (s *Server) handlePostVerify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allow(w, r, http.MethodPost) {
			return
		}
		ok, err := s.deck.Verify(r.Context())
		if err != nil {
			s.serverError(w, "Error verifying deck", err)
			return
		}
		s.writeJSON(w, http.StatusOK, verifyResponse{Consistent: ok, Counts: s.deck.Counts()})
	}
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("Failed to write response", "error", err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	s.log.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// deckError maps the deck's caller errors to client status codes.
func (s *Server) deckError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, deck.ErrInvalidEase):
		http.Error(w, "Invalid ease", http.StatusBadRequest)
	case errors.Is(err, deck.ErrCardNotFound):
		http.Error(w, "Card not found", http.StatusNotFound)
	default:
		s.serverError(w, msg, err)
	}
}

package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/conorfennell/knoldeck/internal/deck"
	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/storage"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, facts ...string) (*Server, *deck.Deck) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "deck.db"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	d, err := deck.Open(context.Background(), db, deck.Options{
		Logger: log,
		Clock:  func() time.Time { return t0 },
		Rand:   rand.New(rand.NewPCG(7, 7)).Float64,
	})
	if err != nil {
		t.Fatalf("deck.Open: %v", err)
	}
	for _, q := range facts {
		if _, err := d.AddCard(context.Background(), domain.Fact{Question: q, Answer: "a"}); err != nil {
			t.Fatalf("AddCard: %v", err)
		}
	}
	return NewServer(d, log), d
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestCounts(t *testing.T) {
	s, _ := newTestServer(t, "q1", "q2")
	rec := do(t, s, http.MethodGet, "/counts", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[countsResponse](t, rec)
	if got.New != 2 || got.NewToday != 2 || got.CardCount != 2 {
		t.Errorf("counts = %+v", got)
	}
	if got.SessionLimitReached {
		t.Error("fresh session should not be at its limit")
	}
}

func TestReviewLoop(t *testing.T) {
	s, d := newTestServer(t, "q1", "q2")

	seen := map[int64]bool{}
	for i := 0; i < 2; i++ {
		rec := do(t, s, http.MethodGet, "/next", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("GET /next status = %d", rec.Code)
		}
		next := decode[nextResponse](t, rec)
		if next.Card == nil {
			t.Fatalf("GET /next #%d returned no card", i)
		}
		if seen[next.Card.ID] {
			t.Fatalf("card %d handed out twice", next.Card.ID)
		}
		seen[next.Card.ID] = true

		rec = do(t, s, http.MethodPost, "/answer", fmt.Sprintf(`{"cardId":%d,"ease":3}`, next.Card.ID))
		if rec.Code != http.StatusOK {
			t.Fatalf("POST /answer status = %d: %s", rec.Code, rec.Body.String())
		}
		answered := decode[cardResponse](t, rec)
		if answered.Type != domain.Review.String() || answered.Reps != 1 {
			t.Errorf("answered card = %+v", answered)
		}
	}

	rec := do(t, s, http.MethodGet, "/next", "")
	next := decode[nextResponse](t, rec)
	if next.Card != nil {
		t.Fatalf("expected an empty queue, got %+v", next.Card)
	}
	if next.NextDue == nil || !next.NextDue.After(t0) {
		t.Errorf("NextDue = %v, want a time after now", next.NextDue)
	}
	if c := d.Counts(); c.New != 0 || c.NewToday != 0 {
		t.Errorf("counts after answering = %+v", c)
	}
}

func TestAnswerErrors(t *testing.T) {
	s, _ := newTestServer(t, "q1")
	testCases := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"invalid ease", `{"cardId":1,"ease":7}`, http.StatusBadRequest},
		{"unknown card", `{"cardId":999,"ease":3}`, http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := do(t, s, http.MethodPost, "/answer", tc.body); rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestShownCardTakenOnce(t *testing.T) {
	s, _ := newTestServer(t, "q1")
	next := decode[nextResponse](t, do(t, s, http.MethodGet, "/next", ""))
	if next.Card == nil {
		t.Fatal("GET /next returned no card")
	}

	rec := do(t, s, http.MethodPost, "/answer", fmt.Sprintf(`{"cardId":%d,"ease":7}`, next.Card.ID))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if _, ok := s.takeShown(next.Card.ID); ok {
		t.Error("shown card should be evicted by a failed answer")
	}
}

func TestConcurrentAnswersSameCard(t *testing.T) {
	s, _ := newTestServer(t, "q1")
	next := decode[nextResponse](t, do(t, s, http.MethodGet, "/next", ""))
	if next.Card == nil {
		t.Fatal("GET /next returned no card")
	}
	body := fmt.Sprintf(`{"cardId":%d,"ease":3}`, next.Card.ID)

	const n = 4
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = do(t, s, http.MethodPost, "/answer", body).Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("answer #%d status = %d", i, code)
		}
	}
	s.mu.Lock()
	left := len(s.shown)
	s.mu.Unlock()
	if left != 0 {
		t.Errorf("shown cards left = %d, want 0", left)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	testCases := []struct{ method, path string }{
		{http.MethodPost, "/counts"},
		{http.MethodGet, "/answer"},
		{http.MethodGet, "/verify"},
		{http.MethodDelete, "/config"},
	}
	for _, tc := range testCases {
		rec := do(t, s, tc.method, tc.path, "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s status = %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestMaintenanceEndpoints(t *testing.T) {
	s, _ := newTestServer(t, "q1", "q2", "q3")

	for _, path := range []string{"/check", "/rebuild"} {
		rec := do(t, s, http.MethodPost, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("POST %s status = %d", path, rec.Code)
		}
		if got := decode[domain.Counts](t, rec); got.New != 3 {
			t.Errorf("POST %s counts = %+v", path, got)
		}
	}

	rec := do(t, s, http.MethodPost, "/verify", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /verify status = %d", rec.Code)
	}
	if got := decode[verifyResponse](t, rec); !got.Consistent {
		t.Errorf("verify = %+v, want consistent", got)
	}
}

func TestConfig(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[domain.DeckConfig](t, rec)
	if got != domain.DefaultDeckConfig() {
		t.Errorf("config = %+v", got)
	}
}

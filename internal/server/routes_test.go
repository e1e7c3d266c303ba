package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wingo/internal/cache"
	"wingo/internal/database"
	"wingo/internal/game"
)

var now = time.Date(2026, 10, 18, 10, 0, 7, 0, time.UTC)

type brokenBets struct {
	game.Repository
}

func (brokenBets) CreateBet(context.Context, game.Bet) (*game.Bet, error) {
	return nil, errors.New("pq: connection reset by peer")
}

func newTestServer(t *testing.T, repo game.Repository) *FiberServer {
	t.Helper()
	return newTestServerAt(t, repo, now)
}

func newTestServerAt(t *testing.T, repo game.Repository, clock time.Time) *FiberServer {
	t.Helper()

	manager := game.NewManager(repo, game.Settings{Location: time.UTC}, nil,
		game.WithClock(func() time.Time { return clock }))
	for _, tr := range manager.Tracks() {
		if _, err := manager.EnsureRound(context.Background(), tr); err != nil {
			t.Fatalf("EnsureRound(%s) error = %v", tr.ID, err)
		}
	}

	hub := game.NewHub(nil)
	publishers := game.NewPublishers(nil)
	publishers.Register("websocket", hub)

	s := New(Deps{
		Manager:    manager,
		Intake:     game.NewIntake(manager, repo, decimal.NewFromInt(10), nil, nil),
		Hub:        hub,
		Publishers: publishers,
		Snapshots:  cache.NewMemorySnapshots(time.Minute),
	}, nil)
	s.RegisterFiberRoutes()
	return s
}

func doJSON(t *testing.T, s *FiberServer, method, path, body string) (int, map[string]interface{}) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("could not perform request: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("could not read response body: %v", err)
	}

	var result map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			t.Fatalf("could not unmarshal response %q: %v", raw, err)
		}
	}
	return resp.StatusCode, result
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, database.NewMemoryRepository())

	status, body := doJSON(t, s, http.MethodGet, "/health", "")
	if status != http.StatusOK {
		t.Fatalf("expected status OK; got %v", status)
	}

	db, _ := body["database"].(map[string]interface{})
	if db["status"] != "memory" {
		t.Errorf("database status = %v, want memory", db["status"])
	}
	gameInfo, _ := body["game"].(map[string]interface{})
	if gameInfo["tracks"] != float64(4) {
		t.Errorf("tracks = %v, want 4", gameInfo["tracks"])
	}
	if pubs, _ := gameInfo["publishers"].([]interface{}); len(pubs) != 1 || pubs[0] != "websocket" {
		t.Errorf("publishers = %v, want [websocket]", gameInfo["publishers"])
	}
}

func TestTrackRoutes(t *testing.T) {
	s := newTestServer(t, database.NewMemoryRepository())

	tests := []struct {
		name       string
		path       string
		wantStatus int
		check      func(t *testing.T, body map[string]interface{})
	}{
		{
			name:       "list tracks",
			path:       "/api/v1/tracks",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				tracks, _ := body["tracks"].([]interface{})
				if len(tracks) != 4 {
					t.Errorf("tracks = %v", body["tracks"])
				}
			},
		},
		{
			name:       "single track",
			path:       "/api/v1/tracks/30s",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				if body["period"] != "20261018301201" || body["status"] != "open" {
					t.Errorf("snapshot = %v", body)
				}
				if body["seconds_left"] != float64(23) {
					t.Errorf("seconds_left = %v, want 23", body["seconds_left"])
				}
			},
		},
		{
			name:       "unknown track",
			path:       "/api/v1/tracks/45s",
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				if body["error"] != "validation_error" {
					t.Errorf("error = %v", body["error"])
				}
			},
		},
		{
			name:       "history",
			path:       "/api/v1/tracks/60s/history?limit=3",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				if body["track"] != "60s" {
					t.Errorf("track = %v", body["track"])
				}
				if h, ok := body["history"].([]interface{}); !ok || len(h) != 0 {
					t.Errorf("history = %v, want empty list", body["history"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, s, http.MethodGet, tt.path, "")
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", status, tt.wantStatus, body)
			}
			tt.check(t, body)
		})
	}
}

func TestPlaceBetHandler(t *testing.T) {
	s := newTestServer(t, database.NewMemoryRepository())

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "accepted",
			body:       `{"track":"30s","bet_type":"number","bet_value":"7","amount":"20","multiplier":"3"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "amount below minimum",
			body:       `{"track":"30s","bet_type":"color","bet_value":"green","amount":5}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "validation_error",
		},
		{
			name:       "unknown color",
			body:       `{"track":"30s","bet_type":"color","bet_value":"purple","amount":10}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "validation_error",
		},
		{
			name:       "multiplier finer than cents",
			body:       `{"track":"30s","bet_type":"size","bet_value":"big","amount":"10","multiplier":"0.001"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "validation_error",
		},
		{
			name:       "malformed body",
			body:       `{"track":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "validation_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, s, http.MethodPost, "/api/v1/bets", tt.body)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%v)", status, tt.wantStatus, body)
			}
			if tt.wantError != "" && body["error"] != tt.wantError {
				t.Errorf("error = %v, want %s", body["error"], tt.wantError)
			}
			if status == http.StatusCreated {
				if body["total_amount"] != "60" || body["result"] != "pending" || body["period"] != "20261018301201" {
					t.Errorf("bet = %v", body)
				}
			}
		})
	}

	status, body := doJSON(t, s, http.MethodGet, "/api/v1/bets?track=30s", "")
	if status != http.StatusOK {
		t.Fatalf("list status = %d", status)
	}
	if bets, _ := body["bets"].([]interface{}); len(bets) != 1 {
		t.Errorf("bets = %v, want the one accepted bet", body["bets"])
	}
}

func TestPlaceBetHandler_ClosedRound(t *testing.T) {
	repo := database.NewMemoryRepository()
	s := newTestServer(t, repo)

	// Lock the 30s round out of band.
	r, _ := repo.FindLatestRound(context.Background(), "30s")
	if err := repo.UpdateRoundStatus(context.Background(), r.ID, game.StatusOpen, game.StatusLocked, nil); err != nil {
		t.Fatalf("lock: %v", err)
	}

	status, body := doJSON(t, s, http.MethodPost, "/api/v1/bets",
		`{"track":"30s","bet_type":"size","bet_value":"big","amount":10}`)
	if status != http.StatusConflict || body["error"] != "state_conflict" {
		t.Errorf("status = %d body = %v, want 409 state_conflict", status, body)
	}
}

func TestPlaceBetHandler_StoreFailureIsHidden(t *testing.T) {
	s := newTestServer(t, brokenBets{database.NewMemoryRepository()})

	status, body := doJSON(t, s, http.MethodPost, "/api/v1/bets",
		`{"track":"30s","bet_type":"size","bet_value":"big","amount":10}`)
	if status != http.StatusInternalServerError || body["error"] != "internal_error" {
		t.Fatalf("status = %d body = %v, want 500 internal_error", status, body)
	}
	if msg, _ := body["message"].(string); strings.Contains(msg, "connection reset") {
		t.Errorf("store error leaked to client: %q", msg)
	}
}

func TestListBetsHandler_UnknownTrack(t *testing.T) {
	s := newTestServer(t, database.NewMemoryRepository())

	status, body := doJSON(t, s, http.MethodGet, "/api/v1/bets?track=nope", "")
	if status != http.StatusBadRequest || body["error"] != "validation_error" {
		t.Errorf("status = %d body = %v", status, body)
	}
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s := newTestServer(t, database.NewMemoryRepository())

	resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, "/ws", nil))
	if err != nil {
		t.Fatalf("could not perform request: %v", err)
	}
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUpgradeRequired)
	}
}

func TestTrackHandler_StaleCachedStatusIsRebuilt(t *testing.T) {
	repo := database.NewMemoryRepository()
	s := newTestServerAt(t, repo, time.Date(2026, 10, 18, 10, 0, 26, 0, time.UTC))
	ctx := context.Background()

	// An open snapshot written after the lock invalidated the cache.
	r, _ := repo.FindLatestRound(ctx, "30s")
	end := r.EndTime
	s.snapshots.Set(ctx, game.Snapshot{Track: "30s", RoundID: r.ID, Period: r.Period, Status: game.StatusOpen, EndTime: &end})
	if err := repo.UpdateRoundStatus(ctx, r.ID, game.StatusOpen, game.StatusLocked, nil); err != nil {
		t.Fatalf("lock: %v", err)
	}

	status, body := doJSON(t, s, http.MethodGet, "/api/v1/tracks/30s", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d (%v)", status, body)
	}
	if body["status"] != "locked" {
		t.Errorf("status = %v, want locked", body["status"])
	}
}

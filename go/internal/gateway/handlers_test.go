package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/pokedraftleague/draftd/go/internal/allocation"
	"github.com/pokedraftleague/draftd/go/internal/models"
)

type fakeEngine struct {
	receipt *allocation.PickReceipt
	err     error
	gotReq  allocation.SubmitPickRequest
}

func (f *fakeEngine) SubmitPick(_ context.Context, req allocation.SubmitPickRequest) (*allocation.PickReceipt, error) {
	f.gotReq = req
	return f.receipt, f.err
}

type fakeHistory struct {
	picks []models.PickRecord
	err   error
}

func (f *fakeHistory) ListBySeason(context.Context, uuid.UUID) ([]models.PickRecord, error) {
	return f.picks, f.err
}

func (f *fakeHistory) ListByTeam(context.Context, uuid.UUID, uuid.UUID) ([]models.PickRecord, error) {
	return f.picks, f.err
}

func newTestMux(engine PickSubmitter, history PickHistory) *http.ServeMux {
	svc := NewService(engine, history, nil, nil, nil, nil, NewConnectionManager(DefaultConnectionConfig()))
	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	return mux
}

func pickBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"team_id":    uuid.New().String(),
		"season_id":  uuid.New().String(),
		"entry_name": "Garchomp",
	})
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewBuffer(body)
}

func TestSubmitPickReturnsCreated(t *testing.T) {
	engine := &fakeEngine{
		receipt: &allocation.PickReceipt{
			Pick: &models.PickRecord{
				ID:         uuid.New(),
				EntryName:  "Garchomp",
				PointCost:  18,
				Round:      1,
				PickNumber: 1,
			},
			Budget: &models.Budget{TotalPoints: 120, SpentPoints: 18},
		},
	}
	mux := newTestMux(engine, &fakeHistory{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/draft/pick", pickBody(t)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	var resp allocation.PickReceipt
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response did not decode: %v", err)
	}
	if resp.Pick.EntryName != "Garchomp" || resp.Pick.PickNumber != 1 {
		t.Errorf("unexpected receipt: %+v", resp.Pick)
	}
	if engine.gotReq.EntryName != "Garchomp" {
		t.Errorf("request did not reach engine: %+v", engine.gotReq)
	}
}

func TestSubmitPickStatusMapping(t *testing.T) {
	cases := []struct {
		kind allocation.Kind
		want int
	}{
		{allocation.KindNotFound, http.StatusNotFound},
		{allocation.KindUnknownEntity, http.StatusNotFound},
		{allocation.KindAlreadyTaken, http.StatusConflict},
		{allocation.KindSessionClosed, http.StatusConflict},
		{allocation.KindNoBudget, http.StatusPaymentRequired},
		{allocation.KindInsufficientBudget, http.StatusPaymentRequired},
		{allocation.KindNotYourTurn, http.StatusForbidden},
		{allocation.KindTransientConflict, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			engine := &fakeEngine{err: &allocation.PickError{Kind: tc.kind, Message: "rejected"}}
			mux := newTestMux(engine, &fakeHistory{})

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/draft/pick", pickBody(t)))

			if rec.Code != tc.want {
				t.Fatalf("status: got %d, want %d", rec.Code, tc.want)
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("error body did not decode: %v", err)
			}
			if resp.Kind != string(tc.kind) {
				t.Errorf("kind: got %q, want %q", resp.Kind, tc.kind)
			}
		})
	}
}

func TestSubmitPickBudgetDetailSurfaces(t *testing.T) {
	engine := &fakeEngine{err: &allocation.PickError{
		Kind:      allocation.KindInsufficientBudget,
		Message:   "need 18 points, have 10",
		Required:  18,
		Available: 10,
	}}
	mux := newTestMux(engine, &fakeHistory{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/draft/pick", pickBody(t)))

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Required != 18 || resp.Available != 10 {
		t.Errorf("budget detail: got required=%d available=%d", resp.Required, resp.Available)
	}
}

func TestSubmitPickRejectsMalformedBody(t *testing.T) {
	engine := &fakeEngine{}
	mux := newTestMux(engine, &fakeHistory{})

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{"team_id": `},
		{"unknown field", `{"team_id":"` + uuid.New().String() + `","season_id":"` + uuid.New().String() + `","entry_name":"Mew","force":true}`},
		{"missing entry name", `{"team_id":"` + uuid.New().String() + `","season_id":"` + uuid.New().String() + `"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/draft/pick", strings.NewReader(tc.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want 400", rec.Code)
			}
		})
	}
	if engine.gotReq.EntryName != "" {
		t.Error("malformed requests must not reach the engine")
	}
}

func TestSubmitPickInternalErrorIsOpaque(t *testing.T) {
	engine := &fakeEngine{err: fmt.Errorf("pq: connection refused")}
	mux := newTestMux(engine, &fakeHistory{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/draft/pick", pickBody(t)))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Error("driver errors must not leak to clients")
	}
}

func TestListPicks(t *testing.T) {
	history := &fakeHistory{picks: []models.PickRecord{
		{ID: uuid.New(), EntryName: "Garchomp", PickNumber: 1},
		{ID: uuid.New(), EntryName: "Dragapult", PickNumber: 2},
	}}
	mux := newTestMux(&fakeEngine{}, history)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/draft/picks?season_id="+uuid.New().String(), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	var resp struct {
		Picks []models.PickRecord `json:"picks"`
		Count int                 `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 || len(resp.Picks) != 2 {
		t.Errorf("got %d picks, want 2", resp.Count)
	}
}

func TestQueryValidation(t *testing.T) {
	mux := newTestMux(&fakeEngine{}, &fakeHistory{})

	cases := []struct {
		name string
		url  string
	}{
		{"missing season", "/api/draft/picks"},
		{"bad season uuid", "/api/draft/picks?season_id=not-a-uuid"},
		{"missing team on status", "/api/draft/team-status?season_id=" + uuid.New().String()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.url, nil))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want 400", rec.Code)
			}
		})
	}
}

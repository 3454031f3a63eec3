package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tbxark/leadagent/agent"
	"github.com/tbxark/leadagent/extract"
	"github.com/tbxark/leadagent/testutil"
)

func newTestRouter(t *testing.T, opts RouterOptions) (http.Handler, *agent.Service) {
	t.Helper()
	cm := testutil.NewChatModel(testutil.Switch(extract.PromptMarker,
		testutil.Text(`{"location":"Chennai"}`),
		testutil.Text("Chennai is lovely! What kind of property?"),
	))
	flow, err := agent.NewToolBasedLeadFlow(cm, nil, agent.FlowOptions{})
	if err != nil {
		t.Fatalf("flow: %v", err)
	}
	svc := agent.NewService(flow, agent.NewMemoryStateStore(0))
	return NewRouter(NewHandler(svc), opts), svc
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestChat(t *testing.T) {
	h, svc := newTestRouter(t, RouterOptions{})
	rec := do(t, h, http.MethodPost, "/chat/", `{"message":"Looking in Chennai"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var resp ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Reply != "Chennai is lovely! What kind of property?" || resp.LeadComplete {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Collected) != 6 || resp.Collected["location"] == nil || *resp.Collected["location"] != "Chennai" {
		t.Errorf("collected = %v", resp.Collected)
	}
	if !strings.Contains(rec.Body.String(), `"name":null`) {
		t.Errorf("unset fields should be null: %s", rec.Body.String())
	}

	state, _ := svc.State(context.Background(), "default")
	if len(state.History) != 2 {
		t.Errorf("missing session id should use the default session, history=%d", len(state.History))
	}
}

func TestChatRejectsBadBodies(t *testing.T) {
	h, _ := newTestRouter(t, RouterOptions{})
	for _, body := range []string{``, `not json`, `{"session_id":"x"}`, `{"message":""}`, `["message"]`} {
		rec := do(t, h, http.MethodPost, "/chat/", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d", body, rec.Code)
			continue
		}
		if !strings.Contains(rec.Body.String(), `"error"`) {
			t.Errorf("body %q: expected JSON error, got %s", body, rec.Body.String())
		}
	}
	rec := do(t, h, http.MethodPost, "/chat/", `{}`)
	if !strings.Contains(rec.Body.String(), "message is required") {
		t.Errorf("validation message should name the json field: %s", rec.Body.String())
	}
}

func TestReset(t *testing.T) {
	h, svc := newTestRouter(t, RouterOptions{})
	do(t, h, http.MethodPost, "/chat/", `{"message":"Chennai","session_id":"abc"}`)

	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodPost, "/reset/?session_id=abc", "")
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"session reset"`) {
			t.Fatalf("reset %d: %d %s", i, rec.Code, rec.Body.String())
		}
	}
	state, _ := svc.State(context.Background(), "abc")
	if len(state.History) != 0 {
		t.Errorf("session should be cleared")
	}
	if rec := do(t, h, http.MethodPost, "/reset/", ""); rec.Code != http.StatusOK {
		t.Errorf("reset without id should reset the default session: %d", rec.Code)
	}
}

func TestIndexAndHealth(t *testing.T) {
	h, _ := newTestRouter(t, RouterOptions{})
	rec := do(t, h, http.MethodGet, "/", "")
	var body struct {
		Message   string   `json:"message"`
		Endpoints []string `json:"endpoints"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "Real Estate Lead Bot API" || len(body.Endpoints) != 2 {
		t.Errorf("index = %+v", body)
	}
	if rec := do(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}

type failingService struct{}

func (failingService) Turn(ctx context.Context, sessionID, message string) (*agent.TurnResult, error) {
	return nil, errors.New("store down")
}

func (failingService) Reset(ctx context.Context, sessionID string) error {
	return errors.New("store down")
}

func TestServiceErrorsAre500(t *testing.T) {
	h := NewRouter(NewHandler(failingService{}), RouterOptions{})
	if rec := do(t, h, http.MethodPost, "/chat/", `{"message":"hi"}`); rec.Code != http.StatusInternalServerError {
		t.Errorf("chat status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/reset/", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("reset status = %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	h, _ := newTestRouter(t, RouterOptions{CORSOrigins: []string{"https://app.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/chat/", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Errorf("preflight: %d %v", rec.Code, rec.Header())
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("explicit origin should allow credentials")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unknown origin must not be allowed")
	}
}

func TestRateLimit(t *testing.T) {
	h, _ := newTestRouter(t, RouterOptions{RateLimit: 0.001, RateBurst: 2})
	codes := make([]int, 3)
	for i := range codes {
		codes[i] = do(t, h, http.MethodGet, "/", "").Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

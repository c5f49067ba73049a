package controlplane

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/k4hvh/madbridge/internal/batch"
	"github.com/k4hvh/madbridge/internal/rules"
	"github.com/k4hvh/madbridge/internal/trigger"
	"github.com/k4hvh/madbridge/internal/types"
)

func newTestStore(t *testing.T) *rules.Store {
	t.Helper()
	store, err := rules.NewStore([]types.RuleConfig{
		{
			Name:        "heartbeat-forward",
			MessageType: "HEARTBEAT",
			Direction:   types.BothDirections,
			Actions:     []types.Action{types.ActionForward},
			EnabledByDefault: true,
		},
		{
			Name:        "rc-block",
			MessageType: "RC_CHANNELS_OVERRIDE",
			Direction:   types.GCSToRouter,
			Actions:     []types.Action{types.ActionBlock},
			EnabledByDefault: false,
		},
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func newTestServer(t *testing.T, auth *Authenticator) (*Server, *rules.Store, *batch.Manager, *trigger.Engine) {
	t.Helper()
	store := newTestStore(t)
	batchMgr := batch.New(func(batch.Release) {}, nil)
	triggerEngine := trigger.New(store)
	return New(store, batchMgr, triggerEngine, auth), store, batchMgr, triggerEngine
}

func TestListRulesReportsEnabledState(t *testing.T) {
	srv, _, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var statuses []ruleStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &statuses); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	byName := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		byName[s.Name] = s.Enabled
	}
	if !byName["heartbeat-forward"] {
		t.Error("expected heartbeat-forward enabled")
	}
	if byName["rc-block"] {
		t.Error("expected rc-block disabled")
	}
}

func TestEnableRuleFlipsStoreState(t *testing.T) {
	srv, store, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rules/rc-block/enable", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	cr, ok := store.ByName("rc-block")
	if !ok || !cr.Enabled() {
		t.Fatal("expected rc-block to be enabled after the request")
	}
}

func TestDisableUnknownRuleReturns404(t *testing.T) {
	srv, _, _, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rules/nonexistent/disable", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListBatchesReflectsSnapshot(t *testing.T) {
	srv, _, batchMgr, _ := newTestServer(t, nil)

	spec := types.BatchSpec{Key: "arm-group", Count: 3, TimeoutSeconds: 30}
	batchMgr.QueueOrRelease("arm-group", 1, []byte("pkt"), spec, types.GCSToRouter, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/batches", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var groups []batchGroupView
	if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(groups) != 1 || groups[0].Key != "arm-group" || groups[0].Members != 1 {
		t.Fatalf("unexpected batch snapshot: %+v", groups)
	}
}

func TestListActivationsReflectsEngineState(t *testing.T) {
	srv, _, _, engine := newTestServer(t, nil)

	dur := 60.0
	engine.Fire(&types.TriggerSpec{ActivateRules: []string{"rc-block"}, DurationSeconds: &dur})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/activations", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var activations []activationView
	if err := json.Unmarshal(rec.Body.Bytes(), &activations); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(activations) != 1 || activations[0].RuleName != "rc-block" {
		t.Fatalf("unexpected activations: %+v", activations)
	}
}

func TestHealthzIsAlwaysOpen(t *testing.T) {
	auth, err := NewAuthenticator("test-secret")
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}
	srv, _, _, _ := newTestServer(t, auth)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /healthz to bypass auth, got %d", rec.Code)
	}
}

func TestAPIRoutesRejectMissingToken(t *testing.T) {
	auth, err := NewAuthenticator("test-secret")
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}
	srv, _, _, _ := newTestServer(t, auth)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
}

func TestAPIRoutesAcceptValidToken(t *testing.T) {
	auth, err := NewAuthenticator("test-secret")
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}
	srv, _, _, _ := newTestServer(t, auth)

	token, err := auth.IssueToken("operator", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with a valid token, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAPIRoutesRejectExpiredToken(t *testing.T) {
	auth, err := NewAuthenticator("test-secret")
	if err != nil {
		t.Fatalf("NewAuthenticator: %v", err)
	}
	srv, _, _, _ := newTestServer(t, auth)

	token, err := auth.IssueToken("operator", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for an expired token, got %d", rec.Code)
	}
}

package control

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmehra/oddsradar/internal/canonical"
)

type fakeRuleStore struct {
	mu      sync.Mutex
	rules   map[int64]canonical.AlertRule
	nextID  int64
	deleted []int64
}

func newFakeRuleStore() *fakeRuleStore {
	return &fakeRuleStore{rules: make(map[int64]canonical.AlertRule), nextID: 1}
}

func (f *fakeRuleStore) CreateRule(ctx context.Context, rule canonical.AlertRule) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule.ID = f.nextID
	f.nextID++
	f.rules[rule.ID] = rule
	return rule.ID, nil
}

func (f *fakeRuleStore) UpdateRule(ctx context.Context, id int64, userID, condition string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule, ok := f.rules[id]
	if !ok || rule.UserID != userID {
		return errors.New("rule not found")
	}
	rule.Condition = condition
	f.rules[id] = rule
	return nil
}

func (f *fakeRuleStore) ToggleRule(ctx context.Context, id int64, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule, ok := f.rules[id]
	if !ok || rule.UserID != userID {
		return errors.New("rule not found")
	}
	rule.Active = !rule.Active
	f.rules[id] = rule
	return nil
}

func (f *fakeRuleStore) DeleteRule(ctx context.Context, id int64, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule, ok := f.rules[id]
	if !ok || rule.UserID != userID {
		return errors.New("rule not found")
	}
	delete(f.rules, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRuleStore) RulesForUser(ctx context.Context, userID string) ([]canonical.AlertRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []canonical.AlertRule
	for _, r := range f.rules {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func newTestAPI(store *fakeRuleStore) (*API, *int) {
	triggered := 0
	api := &API{
		Rules: store,
		TriggerSync: func(ctx context.Context, sportKeys []string) {
			triggered++
		},
	}
	return api, &triggered
}

func do(t *testing.T, handler http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestTriggerSyncReturns202(t *testing.T) {
	api, triggered := newTestAPI(newFakeRuleStore())
	router := api.Router()

	rec := do(t, router, http.MethodPost, "/v1/sync", "", `{"sport_keys":["soccer_epl"]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}

	// The sync runs in the background.
	deadline := time.Now().Add(time.Second)
	for *triggered == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if *triggered != 1 {
		t.Errorf("sync triggered %d times, want 1", *triggered)
	}
}

func TestRuleCRUD(t *testing.T) {
	store := newFakeRuleStore()
	api, _ := newTestAPI(store)
	router := api.Router()

	// Create.
	rec := do(t, router, http.MethodPost, "/v1/alerts/rules", "u1",
		`{"type":"odds_threshold","condition":{"threshold":2.0,"direction":"below"}}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	// List sees it.
	rec = do(t, router, http.MethodGet, "/v1/alerts/rules", "u1", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "odds_threshold") {
		t.Fatalf("list status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Another user sees nothing and cannot touch it.
	rec = do(t, router, http.MethodGet, "/v1/alerts/rules", "u2", "")
	if strings.Contains(rec.Body.String(), "odds_threshold") {
		t.Error("rules leaked across users")
	}
	rec = do(t, router, http.MethodDelete, "/v1/alerts/rules/1", "u2", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-user delete status = %d, want 404", rec.Code)
	}

	// Toggle and update by the owner.
	rec = do(t, router, http.MethodPost, "/v1/alerts/rules/1/toggle", "u1", "")
	if rec.Code != http.StatusOK {
		t.Errorf("toggle status = %d", rec.Code)
	}
	if store.rules[1].Active {
		t.Error("toggle did not flip the active flag")
	}

	rec = do(t, router, http.MethodPut, "/v1/alerts/rules/1", "u1",
		`{"condition":{"threshold":1.5,"direction":"below"}}`)
	if rec.Code != http.StatusOK {
		t.Errorf("update status = %d", rec.Code)
	}
	if !strings.Contains(store.rules[1].Condition, "1.5") {
		t.Errorf("condition not updated: %s", store.rules[1].Condition)
	}

	// Delete by the owner.
	rec = do(t, router, http.MethodDelete, "/v1/alerts/rules/1", "u1", "")
	if rec.Code != http.StatusOK {
		t.Errorf("delete status = %d", rec.Code)
	}
	if len(store.rules) != 0 {
		t.Error("rule not deleted")
	}
}

func TestCreateRuleValidation(t *testing.T) {
	api, _ := newTestAPI(newFakeRuleStore())
	router := api.Router()

	// Missing user header.
	rec := do(t, router, http.MethodPost, "/v1/alerts/rules", "",
		`{"type":"arbitrage_opportunity","condition":{"min_profit_margin":2}}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing user status = %d, want 400", rec.Code)
	}

	// Invalid condition shape is rejected before it reaches the store.
	rec = do(t, router, http.MethodPost, "/v1/alerts/rules", "u1",
		`{"type":"odds_threshold","condition":{"threshold":2.0,"direction":"sideways"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad direction status = %d, want 400", rec.Code)
	}
}

package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmehra/oddsradar/internal/alerts"
	"github.com/dmehra/oddsradar/internal/canonical"
	"github.com/dmehra/oddsradar/internal/logging"
)

// SyncTrigger starts one odds sync for the given sports; empty means every
// tracked sport.
type SyncTrigger func(ctx context.Context, sportKeys []string)

// RuleStore is the rule CRUD surface, satisfied by the sqlite store.
type RuleStore interface {
	CreateRule(ctx context.Context, rule canonical.AlertRule) (int64, error)
	UpdateRule(ctx context.Context, id int64, userID, condition string) error
	ToggleRule(ctx context.Context, id int64, userID string) error
	DeleteRule(ctx context.Context, id int64, userID string) error
	RulesForUser(ctx context.Context, userID string) ([]canonical.AlertRule, error)
}

// API is the operator-facing control surface. It carries no authentication
// beyond the X-User-ID scoping header.
type API struct {
	Rules       RuleStore
	Engine      *alerts.Engine
	TriggerSync SyncTrigger
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/sync", a.triggerSync)
	r.Post("/v1/alerts/check", a.alertsCheck)
	r.Get("/v1/alerts/rules", a.listRules)
	r.Post("/v1/alerts/rules", a.createRule)
	r.Put("/v1/alerts/rules/{id}", a.updateRule)
	r.Post("/v1/alerts/rules/{id}/toggle", a.toggleRule)
	r.Delete("/v1/alerts/rules/{id}", a.deleteRule)
	return r
}

// Serve blocks until ctx is cancelled, then shuts the server down.
func (a *API) Serve(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: a.Router(),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func userID(r *http.Request) (string, error) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		return "", errors.New("missing X-User-ID header")
	}
	return id, nil
}

func ruleID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

type syncRequest struct {
	SportKeys []string `json:"sport_keys"`
}

// triggerSync kicks off one odds sync in the background and returns 202.
func (a *API) triggerSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		a.TriggerSync(ctx, req.SportKeys)
	}()

	logging.Infof("[control] sync triggered for %v", req.SportKeys)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sync started"})
}

// alertsCheck runs one sweep synchronously so operators can force a cycle.
func (a *API) alertsCheck(w http.ResponseWriter, r *http.Request) {
	if err := a.Engine.RunOnce(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sweep complete"})
}

func (a *API) listRules(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rules, err := a.Rules.RulesForUser(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

type createRuleRequest struct {
	Type      canonical.AlertRuleType `json:"type"`
	Condition json.RawMessage         `json:"condition"`
}

func (a *API) createRule(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req createRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rule := canonical.AlertRule{
		UserID:    user,
		Type:      req.Type,
		Condition: string(req.Condition),
		Active:    true,
	}
	if _, err := alerts.ParseCondition(rule); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	id, err := a.Rules.CreateRule(r.Context(), rule)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	rule.ID = id
	writeJSON(w, http.StatusCreated, rule)
}

type updateRuleRequest struct {
	Condition json.RawMessage `json:"condition"`
}

func (a *API) updateRule(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := ruleID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req updateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := a.Rules.UpdateRule(r.Context(), id, user, string(req.Condition)); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (a *API) toggleRule(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := ruleID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.Rules.ToggleRule(r.Context(), id, user); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "toggled"})
}

func (a *API) deleteRule(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := ruleID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.Rules.DeleteRule(r.Context(), id, user); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

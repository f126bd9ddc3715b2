package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra/oddsradar/internal/canonical"
	"github.com/dmehra/oddsradar/internal/hashutil"
	"github.com/dmehra/oddsradar/internal/logging"
)

// RuleStore reads and bumps user-defined alert rules; satisfied by the
// sqlite store.
type RuleStore interface {
	ActiveRules(ctx context.Context, ruleType canonical.AlertRuleType) ([]canonical.AlertRule, error)
	BumpRuleTrigger(ctx context.Context, id int64, at time.Time) error
}

// RuleEvaluator tests active user rules against triggering facts: odds
// writes, arbitrage detections, and new events. Each rule is isolated; a
// bad condition or failed dispatch never stops the scan.
type RuleEvaluator struct {
	store      RuleStore
	dispatcher *Dispatcher
}

func NewRuleEvaluator(store RuleStore, dispatcher *Dispatcher) *RuleEvaluator {
	return &RuleEvaluator{store: store, dispatcher: dispatcher}
}

// OnQuote evaluates odds_threshold rules against one persisted observation.
func (e *RuleEvaluator) OnQuote(ctx context.Context, sportKey, homeTeam, awayTeam string, quote canonical.OddsQuote) {
	rules, err := e.store.ActiveRules(ctx, canonical.RuleOddsThreshold)
	if err != nil {
		logging.Errorf("[alerts] load threshold rules: %v", err)
		return
	}
	for _, rule := range rules {
		cond, err := ParseCondition(rule)
		if err != nil {
			logging.Errorf("[alerts] %v", err)
			continue
		}
		c := cond.(OddsThresholdCondition)
		if !MatchOddsThreshold(c, sportKey, quote) {
			continue
		}

		key := hashutil.HashStrings("rule-threshold",
			fmt.Sprintf("%d", rule.ID), quote.EventID, quote.BookmakerKey,
			quote.OutcomeKey, fmt.Sprintf("%.2f", quote.Odds))
		n := canonical.Notification{
			UserID:   rule.UserID,
			Kind:     string(canonical.RuleOddsThreshold),
			Severity: SeverityMedium,
			Title:    "Odds threshold crossed",
			Body: fmt.Sprintf("%s vs %s: %s quotes %s at %.2f (%s %.2f)",
				homeTeam, awayTeam, quote.BookmakerKey, quote.OutcomeKey,
				quote.Odds, c.Direction, c.Threshold),
			EventID: quote.EventID,
		}
		e.fire(ctx, rule, key, n)
	}
}

// OnOpportunity evaluates arbitrage_opportunity rules against a detection.
func (e *RuleEvaluator) OnOpportunity(ctx context.Context, op canonical.ArbitrageOpportunity) {
	rules, err := e.store.ActiveRules(ctx, canonical.RuleArbitrage)
	if err != nil {
		logging.Errorf("[alerts] load arbitrage rules: %v", err)
		return
	}
	for _, rule := range rules {
		cond, err := ParseCondition(rule)
		if err != nil {
			logging.Errorf("[alerts] %v", err)
			continue
		}
		if !MatchArbitrage(cond.(ArbitrageCondition), op) {
			continue
		}

		key := hashutil.HashStrings("rule-arb",
			fmt.Sprintf("%d", rule.ID), op.EventID, op.MarketKey,
			fmt.Sprintf("%.2f", op.ProfitMargin))
		n := canonical.Notification{
			UserID:   rule.UserID,
			Kind:     string(canonical.RuleArbitrage),
			Severity: SeverityHigh,
			Title:    "Arbitrage opportunity",
			Body: fmt.Sprintf("event %s %s: %.2f%% guaranteed margin across %d legs",
				op.EventID, op.MarketKey, -op.ProfitMargin, len(op.Legs)),
			EventID: op.EventID,
		}
		e.fire(ctx, rule, key, n)
	}
}

// OnNewEvent evaluates favorite_team_event rules against a created event.
func (e *RuleEvaluator) OnNewEvent(ctx context.Context, ev canonical.Event) {
	rules, err := e.store.ActiveRules(ctx, canonical.RuleFavoriteTeamEvent)
	if err != nil {
		logging.Errorf("[alerts] load favorite-team rules: %v", err)
		return
	}
	for _, rule := range rules {
		cond, err := ParseCondition(rule)
		if err != nil {
			logging.Errorf("[alerts] %v", err)
			continue
		}
		if !MatchFavoriteTeam(cond.(FavoriteTeamCondition), ev) {
			continue
		}

		key := hashutil.HashStrings("rule-team", fmt.Sprintf("%d", rule.ID), ev.ID)
		n := canonical.Notification{
			UserID:   rule.UserID,
			Kind:     string(canonical.RuleFavoriteTeamEvent),
			Severity: SeverityMedium,
			Title:    "Tracked team scheduled",
			Body: fmt.Sprintf("%s vs %s starts %s",
				ev.HomeTeam, ev.AwayTeam, ev.StartTime.UTC().Format(time.RFC3339)),
			EventID: ev.ID,
		}
		e.fire(ctx, rule, key, n)
	}
}

// fire dispatches and bumps bookkeeping exactly once per qualifying
// condition. The user id doubles as the opaque push channel key; the push
// gateway resolves it.
func (e *RuleEvaluator) fire(ctx context.Context, rule canonical.AlertRule, conditionKey string, n canonical.Notification) {
	if !e.dispatcher.Dispatch(ctx, conditionKey, rule.UserID, n) {
		return
	}
	if err := e.store.BumpRuleTrigger(ctx, rule.ID, time.Now().UTC()); err != nil {
		logging.Errorf("[alerts] bump rule %d: %v", rule.ID, err)
	}
}

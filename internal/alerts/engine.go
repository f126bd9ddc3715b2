package alerts

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dmehra/oddsradar/internal/arb"
	"github.com/dmehra/oddsradar/internal/bankroll"
	"github.com/dmehra/oddsradar/internal/canonical"
	"github.com/dmehra/oddsradar/internal/hashutil"
	"github.com/dmehra/oddsradar/internal/logging"
	"github.com/dmehra/oddsradar/internal/predictions"
	"github.com/dmehra/oddsradar/internal/snapshot"
	"github.com/dmehra/oddsradar/internal/snapshot/state"
)

const (
	// Odds movement thresholds, in percent change of one outcome's price.
	shiftThreshold  = 5.0
	urgentThreshold = 10.0

	// Arbitrage alerting: implied total probability below this raises an
	// alert; the urgent tier is roughly a 3% margin.
	arbImpliedCutoff = 0.98
	arbUrgentMargin  = 3.0

	pickConfidenceCutoff = 0.80
)

// SnapshotSource is the aggregator surface the engine consumes.
type SnapshotSource interface {
	Refresh(ctx context.Context) ([]snapshot.Snapshot, error)
	Load() (*snapshot.Document, error)
}

// OpportunityStore persists detections; satisfied by the sqlite store.
type OpportunityStore interface {
	InsertOpportunity(ctx context.Context, op canonical.ArbitrageOpportunity) (int64, error)
}

// TicketVolumeSource would supply real ticket-volume data for reverse
// line movement detection. No implementation is registered today; the
// detector stays off until one exists.
type TicketVolumeSource interface {
	Volume(ctx context.Context, eventID string) (float64, error)
}

// Engine runs the scheduled alert sweep: it diffs the current snapshot
// against the per-event baselines, detects arbitrage, scans predictions and
// bankroll histories, and dispatches at most one notification per detected
// condition.
type Engine struct {
	snapshots     SnapshotSource
	prev          state.PreviousSnapshotStore
	dispatcher    *Dispatcher
	evaluator     *RuleEvaluator
	opportunities OpportunityStore
	predictions   predictions.Reader // optional
	bankroll      bankroll.Source    // optional
	tickets       TicketVolumeSource // optional, currently always nil
	arbCfg        arb.Config
}

type EngineConfig struct {
	Snapshots     SnapshotSource
	Previous      state.PreviousSnapshotStore
	Dispatcher    *Dispatcher
	Evaluator     *RuleEvaluator
	Opportunities OpportunityStore
	Predictions   predictions.Reader
	Bankroll      bankroll.Source
	Tickets       TicketVolumeSource
	Arb           arb.Config
}

func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{
		snapshots:     cfg.Snapshots,
		prev:          cfg.Previous,
		dispatcher:    cfg.Dispatcher,
		evaluator:     cfg.Evaluator,
		opportunities: cfg.Opportunities,
		predictions:   cfg.Predictions,
		bankroll:      cfg.Bankroll,
		tickets:       cfg.Tickets,
		arbCfg:        cfg.Arb,
	}
}

// Sweep runs one alert cycle. A failing sub-detector is logged and the rest
// of the sweep continues; only a missing snapshot aborts.
func (e *Engine) Sweep(ctx context.Context) error {
	current, err := e.snapshots.Refresh(ctx)
	if err != nil {
		logging.Errorf("[alerts] snapshot refresh failed, falling back to persisted: %v", err)
		doc, loadErr := e.snapshots.Load()
		if loadErr != nil {
			return fmt.Errorf("no snapshot available: %w", loadErr)
		}
		current = doc.Odds
	}

	for _, snap := range current {
		prevSnap, ok, err := e.prev.Get(ctx, snap.EventID)
		if err != nil {
			logging.Errorf("[alerts] baseline read %s: %v", snap.EventID, err)
		} else if ok {
			// First sighting has no baseline and emits nothing.
			e.detectShifts(ctx, *prevSnap, snap)
		}

		e.detectArbitrage(ctx, snap)

		if err := e.prev.Set(ctx, snap); err != nil {
			logging.Errorf("[alerts] baseline write %s: %v", snap.EventID, err)
		}
	}

	e.scanPredictions(ctx)
	e.scanBankrolls(ctx)
	return nil
}

// detectShifts compares each bookmaker's per-outcome odds between snapshots.
func (e *Engine) detectShifts(ctx context.Context, prev, cur snapshot.Snapshot) {
	prevByBook := make(map[string]snapshot.BookmakerOdds, len(prev.Odds))
	for _, o := range prev.Odds {
		prevByBook[o.Bookmaker] = o
	}

	for _, curOdds := range cur.Odds {
		prevOdds, ok := prevByBook[curOdds.Bookmaker]
		if !ok {
			continue
		}
		e.checkShift(ctx, cur, curOdds.Bookmaker, "home", prevOdds.Home, curOdds.Home)
		e.checkShift(ctx, cur, curOdds.Bookmaker, "away", prevOdds.Away, curOdds.Away)
		e.checkShift(ctx, cur, curOdds.Bookmaker, "draw", prevOdds.Draw, curOdds.Draw)
	}
}

func (e *Engine) checkShift(ctx context.Context, snap snapshot.Snapshot, bookmaker, outcome string, oldOdds, newOdds float64) {
	if oldOdds <= 0 || newOdds <= 0 {
		return
	}
	change := (newOdds - oldOdds) / oldOdds * 100.0
	if math.Abs(change) < shiftThreshold {
		return
	}

	severity := SeverityHigh
	if math.Abs(change) >= urgentThreshold {
		severity = SeverityUrgent
	}

	direction := "drifted"
	if change < 0 {
		direction = "steamed"
	}

	key := hashutil.HashStrings("odds-shift", snap.EventID, bookmaker, outcome,
		fmt.Sprintf("%.2f", oldOdds), fmt.Sprintf("%.2f", newOdds))
	e.dispatcher.Dispatch(ctx, key, "", canonical.Notification{
		Kind:     "odds_shift",
		Severity: severity,
		Title:    "Sharp line movement",
		Body: fmt.Sprintf("%s vs %s: %s %s %s %.2f -> %.2f (%+.1f%%)",
			snap.HomeTeam, snap.AwayTeam, bookmaker, outcome, direction,
			oldOdds, newOdds, change),
		EventID: snap.EventID,
	})
}

// detectArbitrage runs the detection sweep over one snapshot's bookmakers.
func (e *Engine) detectArbitrage(ctx context.Context, snap snapshot.Snapshot) {
	if len(snap.Odds) < 2 {
		return
	}

	quotes := snapshotQuotes(snap)
	result := arb.Evaluate(snap.EventID, canonical.MarketH2H, quotes, e.arbCfg)
	if !result.Profitable {
		return
	}
	op := *result.Opportunity

	if e.opportunities != nil {
		if id, err := e.opportunities.InsertOpportunity(ctx, op); err != nil {
			logging.Errorf("[alerts] persist opportunity %s: %v", op.EventID, err)
		} else {
			op.ID = id
		}
	}

	if e.evaluator != nil {
		e.evaluator.OnOpportunity(ctx, op)
	}

	impliedTotal := 1.0 + op.ProfitMargin/100.0
	if impliedTotal >= arbImpliedCutoff {
		return
	}
	severity := SeverityHigh
	if -op.ProfitMargin >= arbUrgentMargin {
		severity = SeverityUrgent
	}

	key := hashutil.HashStrings("arbitrage", op.EventID, op.MarketKey,
		fmt.Sprintf("%.2f", op.ProfitMargin))
	e.dispatcher.Dispatch(ctx, key, "", canonical.Notification{
		Kind:     "arbitrage",
		Severity: severity,
		Title:    "Arbitrage detected",
		Body: fmt.Sprintf("%s vs %s: %.2f%% guaranteed margin, confidence %.2f",
			snap.HomeTeam, snap.AwayTeam, -op.ProfitMargin, op.Confidence),
		EventID: op.EventID,
	})
}

// snapshotQuotes reshapes a snapshot's per-bookmaker odds into quote facts
// for the detection engine. The outcome set stays dynamic: draw only exists
// where a bookmaker quotes it.
func snapshotQuotes(snap snapshot.Snapshot) []canonical.OddsQuote {
	confidence := sourceConfidence(snap.Source)
	var quotes []canonical.OddsQuote
	add := func(bookmaker, outcome string, odds float64) {
		if odds <= 0 {
			return
		}
		quotes = append(quotes, canonical.OddsQuote{
			EventID:      snap.EventID,
			BookmakerKey: bookmaker,
			MarketKey:    canonical.MarketH2H,
			OutcomeKey:   outcome,
			Odds:         odds,
			ObservedAt:   snap.LastUpdated,
			Source:       snap.Source,
			Confidence:   confidence,
		})
	}
	for _, o := range snap.Odds {
		add(o.Bookmaker, "home", o.Home)
		add(o.Bookmaker, "away", o.Away)
		add(o.Bookmaker, "draw", o.Draw)
	}
	return quotes
}

func sourceConfidence(source string) float64 {
	switch source {
	case snapshot.SourcePrimary:
		return 0.9
	case snapshot.SourceScraped:
		return 0.6
	default:
		return 0.2
	}
}

func (e *Engine) scanPredictions(ctx context.Context) {
	if e.predictions == nil {
		return
	}
	preds, err := e.predictions.Recent(ctx)
	if err != nil {
		logging.Errorf("[alerts] prediction scan: %v", err)
		return
	}
	for _, p := range preds {
		if p.Confidence < pickConfidenceCutoff || !p.HasFlaggedValueBet() {
			continue
		}
		key := hashutil.HashStrings("pick", p.EventID, fmt.Sprintf("%.2f", p.Confidence))
		e.dispatcher.Dispatch(ctx, key, "", canonical.Notification{
			Kind:     "high_confidence_pick",
			Severity: SeverityHigh,
			Title:    "High-confidence pick",
			Body: fmt.Sprintf("event %s: model confidence %.2f with %d value bet(s)",
				p.EventID, p.Confidence, len(p.ValueBets)),
			EventID: p.EventID,
		})
	}
}

func (e *Engine) scanBankrolls(ctx context.Context) {
	if e.bankroll == nil {
		return
	}
	users, err := e.bankroll.BankrollUsers(ctx)
	if err != nil {
		logging.Errorf("[alerts] bankroll users: %v", err)
		return
	}
	for _, user := range users {
		history, err := e.bankroll.BankrollHistory(ctx, user)
		if err != nil {
			logging.Errorf("[alerts] bankroll history %s: %v", user, err)
			continue
		}

		if crossed := bankroll.MilestonesCrossed(history); crossed > 0 {
			key := hashutil.HashStrings("bankroll-milestone", user, strconv.Itoa(crossed))
			e.dispatcher.Dispatch(ctx, key, user, canonical.Notification{
				UserID:   user,
				Kind:     "bankroll_milestone",
				Severity: SeverityMedium,
				Title:    "Bankroll milestone",
				Body:     fmt.Sprintf("bankroll up %d%% from where you started", crossed*25),
			})
		}

		if pct, tier := bankroll.Drawdown(history); tier > 0 {
			severity := SeverityMedium
			switch tier {
			case 2:
				severity = SeverityHigh
			case 3:
				severity = SeverityUrgent
			}
			key := hashutil.HashStrings("stop-loss", user, strconv.Itoa(tier))
			e.dispatcher.Dispatch(ctx, key, user, canonical.Notification{
				UserID:   user,
				Kind:     "stop_loss",
				Severity: severity,
				Title:    "Stop-loss warning",
				Body:     fmt.Sprintf("bankroll down %.1f%% from its peak", -pct*100),
			})
		}
	}
}

// RunOnce is the synchronous entry used by the alerts-check endpoint.
func (e *Engine) RunOnce(ctx context.Context) error {
	start := time.Now()
	err := e.Sweep(ctx)
	logging.Infof("[alerts] sweep finished in %s (err=%v)", time.Since(start), err)
	return err
}

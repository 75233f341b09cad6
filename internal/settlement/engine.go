package settlement

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/racing-form/internal/models"
)

// Engine settles a ledger of selections for one betting session
type Engine struct {
	sessionID int
	strict    bool
	logger    *logrus.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithLenientStrategies settles unrecognised bet types to 0 instead of failing
func WithLenientStrategies() Option {
	return func(e *Engine) {
		e.strict = false
	}
}

// WithLogger sets the engine logger
func WithLogger(logger *logrus.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a new settlement engine bound to the current session
func NewEngine(sessionID int, opts ...Option) *Engine {
	e := &Engine{
		sessionID: sessionID,
		strict:    true,
		logger:    logrus.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SessionID returns the session the engine reports against
func (e *Engine) SessionID() int {
	return e.sessionID
}

type dutchKey struct {
	raceID   int64
	strategy Strategy
}

type pending struct {
	bet      models.SettledBet
	strategy Strategy
}

// Settle prices every selection, applies the strategy rules, collapses dutch
// groups to one row per race and accumulates running totals.
func (e *Engine) Settle(inputs []models.SettlementInput) (*models.SettlementReport, error) {
	rows := make([]pending, 0, len(inputs))
	for _, in := range inputs {
		s, err := ParseStrategy(in.BetType)
		if err != nil {
			if e.strict {
				return nil, fmt.Errorf("failed to settle selection for horse %d in race %d: %w", in.HorseID, in.RaceID, err)
			}
			e.logger.WithFields(logrus.Fields{
				"race_id":  in.RaceID,
				"horse_id": in.HorseID,
				"bet_type": in.BetType,
			}).Warn("Unknown bet type settled as void")
		}
		name := s.String()
		if s == Unknown {
			name = strings.ToLower(strings.TrimSpace(in.BetType))
		}
		rows = append(rows, pending{
			bet:      models.SettledBet{SettlementInput: in, Strategy: name},
			strategy: s,
		})
	}

	e.price(rows)
	for i := range rows {
		r := &rows[i]
		out := ClassifyOutcome(r.bet.FinishingPosition, r.bet.NumberOfRunners)
		r.bet.BetResult = SettleRow(r.strategy, out, r.bet.FinalOdds, r.bet.BetfairPlaceSP)
	}
	rows = collapseDutch(rows)

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].bet.Strategy != rows[j].bet.Strategy {
			return rows[i].bet.Strategy < rows[j].bet.Strategy
		}
		return rows[i].bet.PlacedAt.Before(rows[j].bet.PlacedAt)
	})

	report := e.accumulate(rows)
	models.Sanitize(report)
	return report, nil
}

// price fills dutch_sum and the odds columns
func (e *Engine) price(rows []pending) {
	groups := make(map[dutchKey][]int)
	for i, r := range rows {
		if r.strategy.IsDutch() {
			k := dutchKey{raceID: r.bet.RaceID, strategy: r.strategy}
			groups[k] = append(groups[k], i)
		}
	}

	for _, idx := range groups {
		prices := make([]float64, 0, len(idx))
		for _, i := range idx {
			if usable(rows[i].bet.BetfairWinSP) {
				prices = append(prices, *rows[i].bet.BetfairWinSP)
			}
		}
		sum, odds, ok := DutchSum(prices)
		for _, i := range idx {
			if !ok {
				continue
			}
			rows[i].bet.DutchSum = value(sum)
			rows[i].bet.CalculatedOdds = value(odds)
		}
		// the pool pays at the best calculated odds in the group
		var best *float64
		for _, i := range idx {
			c := rows[i].bet.CalculatedOdds
			if c != nil && (best == nil || *c > *best) {
				best = c
			}
		}
		for _, i := range idx {
			if best != nil {
				rows[i].bet.FinalOdds = value(*best)
			}
		}
	}

	for i := range rows {
		r := &rows[i]
		if !r.strategy.IsDutch() {
			if usable(r.bet.BetfairWinSP) {
				r.bet.CalculatedOdds = value(round2(*r.bet.BetfairWinSP))
				r.bet.FinalOdds = value(*r.bet.CalculatedOdds)
			}
		}
		r.bet.AdjustedFinalOdds = AdjustOdds(r.strategy, r.bet.FinalOdds)
	}
}

// collapseDutch settles each dutch group at its best (back) or worst (lay)
// result and keeps the group's first row.
func collapseDutch(rows []pending) []pending {
	type group struct {
		first  int
		result *float64
	}
	groups := make(map[dutchKey]*group)
	for i, r := range rows {
		if !r.strategy.IsDutch() {
			continue
		}
		k := dutchKey{raceID: r.bet.RaceID, strategy: r.strategy}
		g, ok := groups[k]
		if !ok {
			g = &group{first: i}
			groups[k] = g
		}
		res := r.bet.BetResult
		if res == nil {
			continue
		}
		switch {
		case g.result == nil:
			g.result = value(*res)
		case r.strategy == DutchBack && *res > *g.result:
			g.result = value(*res)
		case r.strategy == DutchLay && *res < *g.result:
			g.result = value(*res)
		}
	}

	out := make([]pending, 0, len(rows))
	for i, r := range rows {
		if !r.strategy.IsDutch() {
			out = append(out, r)
			continue
		}
		g := groups[dutchKey{raceID: r.bet.RaceID, strategy: r.strategy}]
		if g.first != i {
			continue
		}
		r.bet.BetResult = g.result
		out = append(out, r)
	}
	return out
}

// accumulate keeps running totals per strategy, overall and for the session
func (e *Engine) accumulate(rows []pending) *models.SettlementReport {
	perStrategy := make(map[string]decimal.Decimal)
	overall := decimal.Zero
	session := decimal.Zero
	sessionBets := 0

	report := &models.SettlementReport{ResultDict: make([]models.SettledBet, 0, len(rows))}
	for _, r := range rows {
		bet := r.bet
		result := decimal.Zero
		if bet.BetResult != nil {
			result = decimal.NewFromFloat(*bet.BetResult)
		}

		running := perStrategy[bet.Strategy].Add(result)
		perStrategy[bet.Strategy] = running
		overall = overall.Add(result)
		bet.RunningTotal = running.InexactFloat64()
		bet.OverallTotal = overall.InexactFloat64()

		if bet.SessionID == e.sessionID {
			session = session.Add(result)
			sessionBets++
			bet.SessionRunningTotal = value(session.InexactFloat64())
		}
		report.ResultDict = append(report.ResultDict, bet)
	}

	report.NumberOfBets = len(rows)
	report.OverallTotal = overall.InexactFloat64()
	report.SessionNumberOfBets = sessionBets
	report.SessionOverallTotal = session.InexactFloat64()
	return report
}

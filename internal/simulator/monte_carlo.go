// Package simulator estimates win probabilities and fair prices for a race by
// Monte-Carlo simulation of finishing order.
package simulator

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/yourusername/racing-form/internal/models"
)

// cancellation is checked every this many trials
const ctxCheckInterval = 100

// Config configures the race simulation
type Config struct {
	Trials       int
	Workers      int
	Seed         uint64
	TargetRuns   int
	PriceCeiling float64
}

// DefaultConfig returns 1000 sequential trials padding every horse to 15 runs
func DefaultConfig() Config {
	return Config{
		Trials:       1000,
		Workers:      1,
		TargetRuns:   15,
		PriceCeiling: 999.0,
	}
}

// RunnerOdds is one runner's tally over all trials
type RunnerOdds struct {
	HorseID        int64   `json:"horse_id"`
	HorseName      string  `json:"horse_name"`
	First          int     `json:"first"`
	Second         int     `json:"second"`
	Third          int     `json:"third"`
	WinPercentage  float64 `json:"win_percentage"`
	SimulatedPrice float64 `json:"simulated_price"`
}

// Result represents simulation outcomes
type Result struct {
	Trials  int                 `json:"trials"`
	Seed    uint64              `json:"seed"`
	Runners []RunnerOdds        `json:"runners"`
	Records []models.FormRecord `json:"records"`
}

// Prices maps horse name to simulated price
func (r *Result) Prices() map[string]float64 {
	out := make(map[string]float64, len(r.Runners))
	for _, o := range r.Runners {
		out[o.HorseName] = o.SimulatedPrice
	}
	return out
}

// Simulator runs race simulations
type Simulator struct {
	cfg    Config
	logger *logrus.Logger
}

// NewSimulator creates a new simulator
func NewSimulator(cfg Config, logger *logrus.Logger) *Simulator {
	def := DefaultConfig()
	if cfg.Trials <= 0 {
		cfg.Trials = def.Trials
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.TargetRuns <= 0 {
		cfg.TargetRuns = def.TargetRuns
	}
	if cfg.PriceCeiling <= 0 {
		cfg.PriceCeiling = def.PriceCeiling
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Simulator{cfg: cfg, logger: logger}
}

// trialHorse is a runner's draw parameters for every trial
type trialHorse struct {
	mean  float64
	sigma float64
}

type tally struct {
	first, second, third []int
}

func newTally(n int) tally {
	return tally{first: make([]int, n), second: make([]int, n), third: make([]int, n)}
}

// Run pads the field, runs the trials and merges the simulated price onto a
// copy of records by horse name. records must contain the race's today rows.
func (s *Simulator) Run(ctx context.Context, records []models.FormRecord) (*Result, error) {
	raceClass := ""
	declared := make(map[int64]bool)
	for i := range records {
		if !records[i].IsToday() {
			continue
		}
		if len(declared) == 0 {
			raceClass = records[i].ClassKey()
		}
		declared[records[i].HorseID] = true
	}
	if len(declared) == 0 {
		return nil, fmt.Errorf("failed to simulate race: %w", models.ErrNoTodayRow)
	}
	// only horses declared for today's race take part
	runnersForm := make([]models.FormRecord, 0, len(records))
	for _, r := range records {
		if declared[r.HorseID] {
			runnersForm = append(runnersForm, r)
		}
	}

	seed := s.cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	start := time.Now()

	field := PadField(runnersForm, raceClass, s.cfg.TargetRuns, rand.New(rand.NewPCG(seed, 0)))
	cadence := PoorPerformanceCadence(raceClass)
	horses := make([]trialHorse, len(field.Horses))
	for i, h := range field.Horses {
		horses[i] = drawParameters(h)
	}

	total, err := s.runTrials(ctx, horses, 1/float64(cadence), seed)
	if err != nil {
		return nil, err
	}

	runners := make([]RunnerOdds, len(field.Horses))
	for i, h := range field.Horses {
		winPct := math.Round(float64(total.first[i])/float64(s.cfg.Trials)*100*100) / 100
		runners[i] = RunnerOdds{
			HorseID:        h.HorseID,
			HorseName:      h.HorseName,
			First:          total.first[i],
			Second:         total.second[i],
			Third:          total.third[i],
			WinPercentage:  winPct,
			SimulatedPrice: s.price(winPct),
		}
	}
	sort.SliceStable(runners, func(i, j int) bool {
		return runners[i].WinPercentage > runners[j].WinPercentage
	})

	result := &Result{
		Trials:  s.cfg.Trials,
		Seed:    seed,
		Runners: runners,
		Records: mergePrices(records, runners),
	}

	s.logger.WithFields(logrus.Fields{
		"race_class":  raceClass,
		"horses":      len(field.Horses),
		"trials":      s.cfg.Trials,
		"workers":     s.cfg.Workers,
		"seed":        seed,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Race simulation completed")

	return result, nil
}

// runTrials splits the trials across workers, each with its own source
func (s *Simulator) runTrials(ctx context.Context, horses []trialHorse, poorProb float64, seed uint64) (tally, error) {
	workers := min(s.cfg.Workers, s.cfg.Trials)
	tallies := make([]tally, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		n := s.cfg.Trials / workers
		if w < s.cfg.Trials%workers {
			n++
		}
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(seed, uint64(w)+1))
			t := newTally(len(horses))
			draws := make([]float64, len(horses))
			order := make([]int, len(horses))
			for trial := 0; trial < n; trial++ {
				if trial%ctxCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				runTrial(horses, poorProb, rng, draws, order)
				for place, idx := range order[:min(3, len(order))] {
					switch place {
					case 0:
						t.first[idx]++
					case 1:
						t.second[idx]++
					case 2:
						t.third[idx]++
					}
				}
			}
			tallies[w] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return tally{}, fmt.Errorf("failed to run simulation trials: %w", err)
	}

	total := newTally(len(horses))
	for _, t := range tallies {
		for i := range horses {
			total.first[i] += t.first[i]
			total.second[i] += t.second[i]
			total.third[i] += t.third[i]
		}
	}
	return total, nil
}

// runTrial fills order with horse indexes, best draw first
func runTrial(horses []trialHorse, poorProb float64, rng *rand.Rand, draws []float64, order []int) {
	for i, h := range horses {
		order[i] = i
		if rng.Float64() < poorProb {
			draws[i] = 0
			continue
		}
		draws[i] = distuv.Normal{Mu: h.mean, Sigma: h.sigma, Src: rng}.Rand()
	}
	sort.SliceStable(order, func(a, b int) bool {
		return draws[order[a]] > draws[order[b]]
	})
}

// drawParameters centres a horse on its mean rating, narrowing the spread
// by the share of its runs that were placed
func drawParameters(h Horse) trialHorse {
	rs, _ := h.figures()
	placed := 0
	for _, p := range h.Performances {
		if p.Placed() {
			placed++
		}
	}

	mean := stat.Mean(rs, nil)
	sigma := 0.0
	if len(rs) > 1 {
		sigma = stat.StdDev(rs, nil) * (1 - float64(placed)/float64(len(rs)))
	}
	if math.IsNaN(sigma) || sigma < 0 {
		sigma = 0
	}
	return trialHorse{mean: mean, sigma: sigma}
}

func (s *Simulator) price(winPct float64) float64 {
	if winPct <= 0 {
		return s.cfg.PriceCeiling
	}
	p := 100 / winPct
	if math.IsInf(p, 0) || math.IsNaN(p) {
		return s.cfg.PriceCeiling
	}
	return math.Round(p*10) / 10
}

func mergePrices(records []models.FormRecord, runners []RunnerOdds) []models.FormRecord {
	byName := make(map[string]float64, len(runners))
	for _, r := range runners {
		byName[r.HorseName] = r.SimulatedPrice
	}
	out := make([]models.FormRecord, len(records))
	copy(out, records)
	for i := range out {
		if p, ok := byName[out[i].HorseName]; ok {
			price := p
			out[i].SimulatedPrice = &price
		}
	}
	return out
}

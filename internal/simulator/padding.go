package simulator

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/yourusername/racing-form/internal/models"
	"github.com/yourusername/racing-form/internal/ratings"
)

const (
	defaultCadence = 9
	// lightly raced horses are drawn around their best figure rather than their mean
	lightlyRacedRuns = 5
	drawWeight       = 0.7
	fieldWeight      = 0.3
)

var poorPerformanceCadence = map[string]int{
	"6": 3,
	"5": 4,
	"4": 5,
	"3": 6,
	"2": 7,
	"1": 8,
}

// PoorPerformanceCadence returns n for a one-in-n chance of a poor run in a
// race of the given class. Unknown classes use the widest cadence.
func PoorPerformanceCadence(raceClass string) int {
	if c, ok := poorPerformanceCadence[raceClass]; ok {
		return c
	}
	return defaultCadence
}

// Performance is one real or synthetic run in the simulation working set
type Performance struct {
	HorseID     int64
	HorseName   string
	Rating      float64
	SpeedFigure float64
	Position    int
	Synthetic   bool
}

// Placed reports a first to fourth place finish
func (p Performance) Placed() bool {
	return p.Position >= 1 && p.Position <= 4
}

// Field is the padded working set for one race, horses in first-seen order
type Field struct {
	Horses []Horse
}

// Horse holds one runner's performances
type Horse struct {
	HorseID      int64
	HorseName    string
	Performances []Performance
}

// PadField groups records by horse and tops up every horse with fewer than
// targetRuns performances with synthetic runs drawn from its own form,
// regressed toward the field median.
func PadField(records []models.FormRecord, raceClass string, targetRuns int, rng *rand.Rand) Field {
	cadence := PoorPerformanceCadence(raceClass)

	allRatings := make([]float64, len(records))
	allSpeeds := make([]float64, len(records))
	for i, r := range records {
		allRatings[i] = float64(r.Rating)
		allSpeeds[i] = float64(r.SpeedFigure)
	}
	fieldRating := ratings.Median(allRatings)
	fieldSpeed := ratings.Median(allSpeeds)

	var field Field
	index := make(map[int64]int)
	for _, r := range records {
		i, ok := index[r.HorseID]
		if !ok {
			i = len(field.Horses)
			index[r.HorseID] = i
			field.Horses = append(field.Horses, Horse{HorseID: r.HorseID, HorseName: r.HorseName})
		}
		field.Horses[i].Performances = append(field.Horses[i].Performances, Performance{
			HorseID:     r.HorseID,
			HorseName:   r.HorseName,
			Rating:      float64(r.Rating),
			SpeedFigure: float64(r.SpeedFigure),
			Position:    r.Position(),
		})
	}

	for i := range field.Horses {
		h := &field.Horses[i]
		current := len(h.Performances)
		if current >= targetRuns {
			continue
		}

		rs, ss := h.figures()
		baseRating, baseSpeed := stat.Mean(rs, nil), stat.Mean(ss, nil)
		if current <= lightlyRacedRuns {
			baseRating, baseSpeed = maxOf(rs), maxOf(ss)
		}
		ratingDraw := distuv.Normal{Mu: baseRating, Sigma: spread(rs), Src: rng}
		speedDraw := distuv.Normal{Mu: baseSpeed, Sigma: spread(ss), Src: rng}

		for run := 1; run <= targetRuns-current; run++ {
			poor := run%cadence == 0
			synthetic := Performance{HorseID: h.HorseID, HorseName: h.HorseName, Synthetic: true}
			if !poor {
				synthetic.Rating = drawWeight*ratingDraw.Rand() + fieldWeight*fieldRating
				synthetic.SpeedFigure = drawWeight*speedDraw.Rand() + fieldWeight*fieldSpeed
			}
			quartile := min(int(rng.Float64()*4), 3)
			if !poor {
				synthetic.Position = quartile + 1
			}
			h.Performances = append(h.Performances, synthetic)
		}
	}
	return field
}

func (h *Horse) figures() ([]float64, []float64) {
	rs := make([]float64, len(h.Performances))
	ss := make([]float64, len(h.Performances))
	for i, p := range h.Performances {
		rs[i] = p.Rating
		ss[i] = p.SpeedFigure
	}
	return rs, ss
}

// spread is the sample standard deviation floored at 1
func spread(values []float64) float64 {
	if len(values) < 2 {
		return 1
	}
	sd := stat.StdDev(values, nil)
	if math.IsNaN(sd) || sd < 1 {
		return 1
	}
	return sd
}

func maxOf(values []float64) float64 {
	m := math.Inf(-1)
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}

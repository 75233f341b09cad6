package logger

import (
	"github.com/sirupsen/logrus"
)

// FormLogger logs race form and simulation events
type FormLogger struct {
	*logrus.Entry
}

// NewFormLogger creates a new form logger.
func NewFormLogger(baseLogger *logrus.Logger) *FormLogger {
	return &FormLogger{
		Entry: baseLogger.WithField("component", "form"),
	}
}

// LogRaceFormBuilt logs a completed pipeline run for one race.
func (fl *FormLogger) LogRaceFormBuilt(raceID int64, raceDate string, rowsIn, runners int, simulated bool, durationMs float64) {
	fl.WithFields(logrus.Fields{
		"race_id":     raceID,
		"race_date":   raceDate,
		"rows_in":     rowsIn,
		"runners":     runners,
		"simulated":   simulated,
		"duration_ms": durationMs,
	}).Info("Race form built")
}

// LogSimulation logs the favourite of a race simulation.
func (fl *FormLogger) LogSimulation(raceID int64, trials int, seed uint64, favourite string, favouriteWinPct float64) {
	fl.WithFields(logrus.Fields{
		"race_id":           raceID,
		"trials":            trials,
		"seed":              seed,
		"favourite":         favourite,
		"favourite_win_pct": favouriteWinPct,
	}).Info("Race simulation completed")
}

// LogTodaysRaces logs a race card listing.
func (fl *FormLogger) LogTodaysRaces(raceDate string, courses, races int, cached bool) {
	fl.WithFields(logrus.Fields{
		"race_date": raceDate,
		"courses":   courses,
		"races":     races,
		"cached":    cached,
	}).Debug("Todays races listed")
}

// LogPipelineFailure logs a race form request that could not be served.
func (fl *FormLogger) LogPipelineFailure(raceID int64, raceDate string, err error) {
	fl.WithFields(logrus.Fields{
		"race_id":   raceID,
		"race_date": raceDate,
	}).WithError(err).Error("Race form failed")
}

package logger

import (
	"github.com/sirupsen/logrus"
)

// SettlementLogger provides the audit trail for selections and settlement.
type SettlementLogger struct {
	*logrus.Entry
}

// NewSettlementLogger creates a new settlement logger.
func NewSettlementLogger(baseLogger *logrus.Logger) *SettlementLogger {
	return &SettlementLogger{
		Entry: baseLogger.WithField("component", "settlement"),
	}
}

// LogSelectionsStored logs a stored batch of selections.
func (sl *SettlementLogger) LogSelectionsStored(raceID int64, raceDate string, sessionID, selections int) {
	sl.WithFields(logrus.Fields{
		"race_id":    raceID,
		"race_date":  raceDate,
		"session_id": sessionID,
		"selections": selections,
	}).Info("Betting selections stored")
}

// LogSettlement logs the totals of a settled ledger.
func (sl *SettlementLogger) LogSettlement(sessionID, bets, sessionBets int, overallTotal, sessionTotal float64, durationMs float64) {
	sl.WithFields(logrus.Fields{
		"session_id":    sessionID,
		"bets":          bets,
		"session_bets":  sessionBets,
		"overall_total": overallTotal,
		"session_total": sessionTotal,
		"duration_ms":   durationMs,
	}).Info("Settlement report computed")
}

// LogStrategyTotal logs one strategy's closing running total.
func (sl *SettlementLogger) LogStrategyTotal(strategy string, bets int, total float64) {
	sl.WithFields(logrus.Fields{
		"strategy": strategy,
		"bets":     bets,
		"total":    total,
	}).Debug("Strategy total")
}

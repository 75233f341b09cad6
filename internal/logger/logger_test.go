package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() (*logrus.Logger, *bytes.Buffer) {
	log := logrus.New()
	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	return log, buf
}

func parseLogOutput(buf *bytes.Buffer) map[string]interface{} {
	var logEntry map[string]interface{}
	err := json.Unmarshal(buf.Bytes(), &logEntry)
	if err != nil {
		return nil
	}
	return logEntry
}

func TestFormLoggerRaceFormBuilt(t *testing.T) {
	log, buf := setupTestLogger()
	formLogger := NewFormLogger(log)

	formLogger.LogRaceFormBuilt(101, "2024-05-01", 48, 7, true, 12.5)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "form", logEntry["component"])
	assert.Equal(t, float64(101), logEntry["race_id"])
	assert.Equal(t, float64(7), logEntry["runners"])
	assert.Equal(t, true, logEntry["simulated"])
	assert.Equal(t, "Race form built", logEntry["msg"])
}

func TestFormLoggerSimulation(t *testing.T) {
	log, buf := setupTestLogger()
	formLogger := NewFormLogger(log)

	formLogger.LogSimulation(101, 1000, 42, "Alpha", 61.3)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "Alpha", logEntry["favourite"])
	assert.Equal(t, 61.3, logEntry["favourite_win_pct"])
}

func TestFormLoggerTodaysRacesIsDebug(t *testing.T) {
	log, buf := setupTestLogger()
	log.SetLevel(logrus.InfoLevel)
	NewFormLogger(log).LogTodaysRaces("2024-05-01", 3, 21, false)
	assert.Empty(t, buf.String())
}

func TestFormLoggerPipelineFailure(t *testing.T) {
	log, buf := setupTestLogger()
	NewFormLogger(log).LogPipelineFailure(7, "2024-05-01", errors.New("no today row"))

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "error", logEntry["level"])
	assert.Equal(t, "no today row", logEntry["error"])
}

func TestSettlementLoggerSelectionsStored(t *testing.T) {
	log, buf := setupTestLogger()
	settlementLogger := NewSettlementLogger(log)

	settlementLogger.LogSelectionsStored(55, "2024-05-01", 3, 2)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "settlement", logEntry["component"])
	assert.Equal(t, float64(3), logEntry["session_id"])
	assert.Equal(t, float64(2), logEntry["selections"])
}

func TestSettlementLoggerSettlement(t *testing.T) {
	log, buf := setupTestLogger()
	settlementLogger := NewSettlementLogger(log)

	settlementLogger.LogSettlement(3, 40, 6, 12.4, -1.5, 8.0)

	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, float64(40), logEntry["bets"])
	assert.Equal(t, 12.4, logEntry["overall_total"])
	assert.Equal(t, -1.5, logEntry["session_total"])
}

func TestNewLoggerFormats(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLoggerWithOutput("debug", "production", buf)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.WithField("race_id", 1).Info("test message")
	logEntry := parseLogOutput(buf)
	require.NotNil(t, logEntry)
	assert.Equal(t, "test message", logEntry["msg"])

	text := NewLoggerWithOutput("nonsense", "development", &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, text.GetLevel())
	_, ok := text.Formatter.(*logrus.TextFormatter)
	assert.True(t, ok)
}

func BenchmarkSettlementLoggerSettlement(b *testing.B) {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	log.SetFormatter(&logrus.JSONFormatter{})
	settlementLogger := NewSettlementLogger(log)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		settlementLogger.LogSettlement(3, 40, 6, 12.4, -1.5, 8.0)
	}
}

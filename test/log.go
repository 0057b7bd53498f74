package test

import (
	"os"
	"testing"

	"github.com/fairdeck/fairdeck/log"
)

// LogLevel returns the level to default the logger based on the FAIRDECK_TEST_LOGS presence
func LogLevel(t *testing.T) int {
	logLevel := log.InfoLevel
	debugEnv, isDebug := os.LookupEnv("FAIRDECK_TEST_LOGS")
	if isDebug && debugEnv == "DEBUG" {
		t.Log("Enabling LogDebug logs")
		logLevel = log.DebugLevel
	}

	return logLevel
}

// Logger returns a configured logger
func Logger(t *testing.T) log.Logger {
	return log.New(nil, LogLevel(t), true)
}

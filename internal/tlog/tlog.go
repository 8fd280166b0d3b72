// Package tlog provides the structured, operator-facing logger used
// alongside (never instead of) the report.UpdateHandler stream: one entry
// per tendril action, independent of the programmatic report contract.
package tlog

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// New returns a logger configured from the environment: DEBUG=TRUE or a
// parseable LOG_LEVEL enables file-backed JSON logging under logDir;
// otherwise logging is discarded entirely, matching the teacher's
// split between a quiet default run and an opt-in diagnostic trail.
func New(logDir string) *logrus.Entry {
	var log *logrus.Logger
	if debugEnabled() {
		log = newDevelopmentLogger(logDir)
	} else {
		log = newProductionLogger()
	}
	log.Formatter = &logrus.JSONFormatter{}

	return log.WithFields(logrus.Fields{})
}

func debugEnabled() bool {
	if os.Getenv("DEBUG") == "TRUE" {
		return true
	}
	_, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	return err == nil
}

func getLogLevel() logrus.Level {
	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return logrus.DebugLevel
	}
	return level
}

func newDevelopmentLogger(logDir string) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(getLogLevel())

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.Out = io.Discard
		return log
	}

	file, err := os.OpenFile(filepath.Join(logDir, "tendril.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Out = io.Discard
		return log
	}
	log.Out = file
	return log
}

func newProductionLogger() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	log.SetLevel(logrus.ErrorLevel)
	return log
}

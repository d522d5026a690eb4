package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the shared JSON logger used by services and workers. HTTP
// access logging stays with the Fiber request logger middleware.
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)
	return log
}

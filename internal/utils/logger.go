package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// AppLogger wraps logrus with the printf-style methods used across the app.
type AppLogger struct {
	log *logrus.Logger
}

func NewAppLogger() *AppLogger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	if os.Getenv("LOG_LEVEL") == "debug" {
		log.SetLevel(logrus.DebugLevel)
	}
	return &AppLogger{log: log}
}

func (l *AppLogger) Debug(msg string, args ...interface{}) {
	l.log.Debugf(msg, args...)
}

func (l *AppLogger) Info(msg string, args ...interface{}) {
	l.log.Infof(msg, args...)
}

func (l *AppLogger) Warn(msg string, args ...interface{}) {
	l.log.Warnf(msg, args...)
}

func (l *AppLogger) Error(msg string, args ...interface{}) {
	l.log.Errorf(msg, args...)
}

// Fatal logs the message and exits the process.
func (l *AppLogger) Fatal(msg string, args ...interface{}) {
	l.log.Fatalf(msg, args...)
}

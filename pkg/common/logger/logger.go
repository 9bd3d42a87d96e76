package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

// Log is usable before Init so packages can log from tests.
var Log = logrus.New()

func Init() {
	InitWith(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

// InitWith replaces Log with a logger using the given level and format.
// Format "plain" (or "text") selects the human readable formatter, anything
// else falls back to JSON.
func InitWith(level, format string) {
	log := logrus.New()
	log.SetOutput(os.Stdout)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "plain", "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
	default:
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
		})
	}

	if level == "" {
		level = "info"
	}

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)

	Log = log
}

func WithField(key string, value interface{}) *logrus.Entry {
	return Log.WithField(key, value)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return Log.WithFields(fields)
}

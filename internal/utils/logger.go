package utils

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// AppLogger is the process-wide structured logger. It writes JSON lines to
// stdout until InitializeLogger replaces it.
var AppLogger = NewLogger("INFO", os.Stdout)

// NewLogger creates a JSON logger writing to output at the given level.
func NewLogger(level string, output io.Writer) *logrus.Logger {
	if output == nil {
		output = os.Stdout
	}

	logger := logrus.New()
	logger.SetOutput(output)
	logger.SetLevel(parseLogLevel(level))
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "message",
		},
	})
	return logger
}

func parseLogLevel(level string) logrus.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return logrus.DebugLevel
	case "INFO":
		return logrus.InfoLevel
	case "WARN", "WARNING":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	case "FATAL":
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// InitializeLogger replaces AppLogger. In production the log goes to
// logs/app.log when that file can be opened.
func InitializeLogger(level, environment string) {
	var output io.Writer = os.Stdout

	if environment == "production" {
		if err := os.MkdirAll("logs", 0755); err == nil {
			if file, err := os.OpenFile("logs/app.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666); err == nil {
				output = file
			}
		}
	}

	AppLogger = NewLogger(level, output)
}

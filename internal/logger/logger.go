package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var Logger = logrus.New()

// Init configures the shared logger from LOG_LEVEL, DEBUG and LOG_FORMAT.
func Init() {
	Logger.SetOutput(os.Stdout)

	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		Logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	Logger.SetLevel(parseLevel(os.Getenv("LOG_LEVEL"), os.Getenv("DEBUG") == "true"))
}

func parseLevel(raw string, debug bool) logrus.Level {
	if debug {
		return logrus.DebugLevel
	}
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "DEBUG":
		return logrus.DebugLevel
	case "WARN", "WARNING":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// SetOutput redirects the shared logger, mostly for tests.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// With returns an entry carrying the given fields, e.g. With("component", "selector").
func With(args ...any) *logrus.Entry {
	return Logger.WithFields(fields(args))
}

func Info(msg string, args ...any) {
	Logger.WithFields(fields(args)).Info(msg)
}

func Error(msg string, args ...any) {
	Logger.WithFields(fields(args)).Error(msg)
}

func Debug(msg string, args ...any) {
	Logger.WithFields(fields(args)).Debug(msg)
}

func Warn(msg string, args ...any) {
	Logger.WithFields(fields(args)).Warn(msg)
}

// fields turns slog-style key/value pairs into logrus fields.
// A dangling key is stored under "!BADKEY".
func fields(args []any) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			f["!BADKEY"] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if err, isErr := args[i+1].(error); isErr {
			f[key] = err.Error()
			continue
		}
		f[key] = args[i+1]
	}
	return f
}

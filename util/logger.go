// Package util - Dataset loading and logging helpers.
package util

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates a logrus logger writing to out (stdout when nil).
//
// Arguments:
//   - level: debug, info, warn or error. Anything else means info.
//   - format: "json" for JSON lines, anything else for timestamped text.
//   - out: Destination of the log lines.
//
// Returns:
//   - *logrus.Logger: The configured logger.
func NewLogger(level, format string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	if out == nil {
		out = os.Stdout
	}
	log.SetOutput(out)

	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log
}

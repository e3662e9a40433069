// Package logging constructs the *logrus.Logger shared by the dczf CLI's
// subcommands, grounded on the package-level *logrus.Logger field that
// i5heu-ouroboros-db's keyValStore takes as a StoreConfig option.
package logging

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// New builds a logger writing to stderr with the given level name
// ("debug", "info", "warn", "error"). An unrecognized level falls back to
// info rather than failing the whole command.
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}

// Describe renders the level log is running at as a short human-readable
// string. No CLI command calls it.
func Describe(log *logrus.Logger) string {
	return fmt.Sprintf("log level %s", log.GetLevel())
}

// Package logger configures the process wide logrus logger.
package logger

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// Init sets level and output format of the standard logrus logger.
// An unknown level falls back to info.
func Init(level, format string) {
	log.SetOutput(os.Stdout)
	switch format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("invalid log level configured, using info")
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

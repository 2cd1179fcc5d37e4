// Package logging builds the logrus logger shared by the commands.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Setup returns a logger writing to stderr at the given level, formatted as "text" or "json".
func Setup(level, format string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(lvl)
	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

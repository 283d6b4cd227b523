package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a JSON logrus logger tagged with the service name.
func New(appName, level string) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	return l.WithField("service", appName)
}

// Audit logs a ledger invariant breach. These entries need a human.
func Audit(log *logrus.Entry, fields logrus.Fields, msg string) {
	log.WithFields(fields).WithField("audit", true).Error(msg)
}

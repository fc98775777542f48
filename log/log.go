// Package log is the logging seam shared by the httptime packages. It wraps
// a single logrus logger so importing packages agree on output and level.
package log

import (
	"io"
	"io/ioutil"

	"github.com/sirupsen/logrus"
)

var log *logrus.Logger

const DebugLevel = logrus.DebugLevel

func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

func Warningf(format string, args ...interface{}) {
	log.Warningf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

func WithField(key string, value interface{}) *logrus.Entry {
	return log.WithField(key, value)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	return log.WithFields(fields)
}

func GetLevel() logrus.Level {
	return log.Level
}

func SetLevel(level logrus.Level) {
	log.SetLevel(level)
}

func SetOutput(w io.Writer) {
	log.Out = w
}

func init() {
	log = logrus.New()
}

// Disable sends all output to the void, used by tests to keep noise down.
func Disable() {
	log.Out = ioutil.Discard
}

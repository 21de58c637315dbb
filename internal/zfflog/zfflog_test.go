package zfflog

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetLoggerAndWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	SetLogger(l)
	defer SetLogger(logrus.StandardLogger())

	WithFields(logrus.Fields{"segment_number": uint64(3)}).Info("segment sealed")

	assert.Contains(t, buf.String(), "segment sealed")
	assert.Contains(t, buf.String(), "segment_number")
}

func TestLogger_DefaultsToStandardLogger(t *testing.T) {
	SetLogger(logrus.StandardLogger())
	assert.Equal(t, logrus.FieldLogger(logrus.StandardLogger()), Logger())
}

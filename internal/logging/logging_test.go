package logging

import (
	"bytes"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer
	quiet := New(&buf, false)
	quiet.Debug("hidden")
	assert.Empty(t, buf.String())

	verbose := New(&buf, true)
	verbose.Debug("shown")
	assert.Contains(t, buf.String(), "DEBUG shown")
}

func TestFormat_SortedFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)
	log.WithFields(logrus.Fields{"run": "abc", "command": "sbt scalastyle"}).Warn("run failed")

	out := buf.String()
	assert.Contains(t, out, "WARN  run failed command=sbt scalastyle run=abc\n")
}

func TestElapsed(t *testing.T) {
	assert.Equal(t, "1.235s", Elapsed(1234567*time.Microsecond))
}

package applog

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(buf *bytes.Buffer, levelStr string) *Logger {
	return &Logger{
		component: "test",
		level:     parseLevel(levelStr),
		out:       log.New(buf, "", 0),
	}
}

func TestLevelGating(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, "warn")

	l.Debugf("should not appear")
	l.Infof("should not appear either")
	l.Warnf("this one should")
	l.Errorf("and this one")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "[ERROR]")
}

func TestBracketTagsAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, "debug")

	l.Infof("listening on %s", ":8443")
	out := buf.String()

	assert.True(t, strings.Contains(out, "[INFO]"))
	assert.True(t, strings.Contains(out, "(test)"))
	assert.True(t, strings.Contains(out, "listening on :8443"))
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	assert.Equal(t, LevelInfo, parseLevel(""))
	assert.Equal(t, LevelInfo, parseLevel("nonsense"))
	assert.Equal(t, LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, LevelError, parseLevel(" Error "))
}

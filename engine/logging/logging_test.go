package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultLoggerLevels(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewWriterLogger("world", false, &out, &errOut)

	l.Debugf("hidden %d", 1)
	assert.Empty(t, out.String())

	l.SetDebug(true)
	assert.True(t, l.DebugEnabled())
	l.Debugf("shown %d", 2)
	assert.Contains(t, out.String(), "[world] DEBUG: shown 2")

	l.Infof("info")
	l.Warnf("careful")
	l.Errorf("broken")
	assert.Contains(t, out.String(), "[world] INFO: info")
	assert.Contains(t, errOut.String(), "[world] WARN: careful")
	assert.Contains(t, errOut.String(), "[world] ERROR: broken")
	assert.False(t, strings.Contains(out.String(), "WARN"))
}

func TestNoPrefix(t *testing.T) {
	var out bytes.Buffer
	l := NewWriterLogger("", false, &out, &out)
	l.Infof("plain")
	assert.Contains(t, out.String(), "INFO: plain")
	assert.NotContains(t, out.String(), "[")
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	assert.NotNil(t, l)
	assert.False(t, l.DebugEnabled())
	l.SetDebug(true)
	assert.False(t, l.DebugEnabled())

	d := NewDefaultLogger("x", true)
	assert.Same(t, d, OrNop(d))
}

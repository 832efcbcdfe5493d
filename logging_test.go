package stripray

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureLogger(prefix string, debug bool) (*DefaultLogger, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	l := NewDefaultLogger(prefix, debug)
	l.out = log.New(&out, "", 0)
	l.err = log.New(&errOut, "", 0)
	return l, &out, &errOut
}

func TestDefaultLogger_Levels(t *testing.T) {
	l, out, errOut := captureLogger("3f2a9c1b", false)

	l.Debugf("hidden %d", 1)
	l.Infof("frame %d", 2)
	l.Warnf("slow")
	l.Errorf("lost %s", "device")

	assert.Equal(t, "[3f2a9c1b] INFO: frame 2\n", out.String())
	assert.Equal(t, "[3f2a9c1b] WARN: slow\n[3f2a9c1b] ERROR: lost device\n", errOut.String())

	l.SetDebug(true)
	assert.True(t, l.DebugEnabled())
	l.Debugf("camera reset")
	assert.Contains(t, out.String(), "[3f2a9c1b] DEBUG: camera reset\n")
}

func TestDefaultLogger_WithPrefix(t *testing.T) {
	l, out, _ := captureLogger("", true)
	l.Infof("no prefix")
	child := l.WithPrefix("wgpu")
	child.Debugf("ready")

	assert.Equal(t, "INFO: no prefix\n[wgpu] DEBUG: ready\n", out.String())
}

func TestLoggerOrNop(t *testing.T) {
	l := LoggerOrNop(nil)
	assert.NotNil(t, l)
	assert.False(t, l.DebugEnabled())
	l.Errorf("dropped")

	d := NewDefaultLogger("x", false)
	assert.Same(t, d, LoggerOrNop(d))
}

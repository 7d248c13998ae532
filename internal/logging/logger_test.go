package logging

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger() (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(log.New(&buf, "", 0))
	return l, &buf
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newTestLogger()

	l.Debug("hidden")
	l.Info("hidden too")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "WARN: shown")

	buf.Reset()
	l.SetLevel(LevelDebug)
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "DEBUG: now visible")
}

func TestFields(t *testing.T) {
	l, buf := newTestLogger()
	l.SetLevel(LevelDebug)

	l.WithComponent("cycle").With("prompt_id", "pid1").Info("job queued", "input", "frame.png")

	out := buf.String()
	assert.Contains(t, out, "INFO: job queued")
	assert.Contains(t, out, "component=cycle")
	assert.Contains(t, out, "prompt_id=pid1")
	assert.Contains(t, out, "input=frame.png")
}

func TestWithDoesNotMutateParent(t *testing.T) {
	l, buf := newTestLogger()
	l.SetLevel(LevelDebug)

	child := l.With("key", "value")
	l.Info("parent message")
	assert.NotContains(t, buf.String(), "key=value")

	buf.Reset()
	child.Info("child message")
	assert.Contains(t, buf.String(), "key=value")
}

func TestValueQuoting(t *testing.T) {
	l, buf := newTestLogger()
	l.SetLevel(LevelDebug)

	l.Info("msg", "text", "two words")
	assert.Contains(t, buf.String(), `text="two words"`)
}

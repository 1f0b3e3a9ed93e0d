package session

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/mudbot/internal/engine"
	"github.com/gyaneshwarpardhi/mudbot/internal/trigger"
)

type rawRecorder struct{ lines []string }

func (r *rawRecorder) SendRaw(line string) error {
	r.lines = append(r.lines, line)
	return nil
}

func (r *rawRecorder) Send(msg string) error { return r.SendRaw(msg) }

func newTestConsole(t *testing.T, lib *trigger.Library) (*Console, *engine.Engine, *bytes.Buffer, *rawRecorder) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := &rawRecorder{}
	eng := engine.New(rec, engine.WithLogger(logger))
	out := &bytes.Buffer{}
	return NewConsole(eng, lib, rec, out, logger), eng, out, rec
}

func TestConsole_Usage(t *testing.T) {
	c, _, out, rec := newTestConsole(t, trigger.NewLibrary(t.TempDir()))

	assert.False(t, c.Handle("@load"))
	assert.False(t, c.Handle("@unload"))
	assert.False(t, c.Handle("@"))
	assert.False(t, c.Handle("\r\n"))
	assert.Contains(t, out.String(), "usage: @load <name>...")
	assert.Contains(t, out.String(), "usage: @unload <name>...")
	assert.Empty(t, rec.lines)

	assert.True(t, c.Handle("@exit"))
	assert.True(t, c.Handle("@exit now"))
}

func TestConsole_LoadQuarantined(t *testing.T) {
	dir := t.TempDir()
	doc := `[{"match": "(", "out": "x"}, {"match": "ok", "out": "fine"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mixed.json"), []byte(doc), 0o644))
	c, eng, out, rec := newTestConsole(t, trigger.NewLibrary(dir))

	c.Handle("@load mixed ../escape")
	set, ok := eng.Set("mixed")
	require.True(t, ok)
	assert.False(t, set.Rules[0].Valid())
	assert.Contains(t, out.String(), "cannot load [../escape]")

	eng.HandleLine("ok")
	assert.Equal(t, []string{"fine"}, rec.lines)
}

func TestConsole_NoLibrary(t *testing.T) {
	c, _, out, _ := newTestConsole(t, nil)
	c.Handle("@load anything")
	assert.Contains(t, out.String(), "no trigger directory configured")
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "<absent>", describe(nil))
	assert.Equal(t, `""`, describe(""))
	assert.Equal(t, `"orc"`, describe("orc"))
	assert.Equal(t, "true", describe(true))
	assert.Equal(t, "2.5", describe(2.5))
}

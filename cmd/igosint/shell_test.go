package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igosint/internal/downloader"
	"igosint/pkg/collector"
	"igosint/pkg/config"
	"igosint/pkg/export"
	"igosint/pkg/logger"
	"igosint/pkg/session"
	"igosint/pkg/storage"
	"igosint/pkg/ui"
)

func newTestShell(t *testing.T, input string, extras ...string) (*shell, *bytes.Buffer, *export.Exporter) {
	t.Helper()

	fake := session.NewFake()
	fake.AddUser("10", "alice")

	store := storage.NewManager(t.TempDir())
	exporter := export.New(store, config.OutputConfig{TableStyle: "default"})
	out := &bytes.Buffer{}
	console := ui.NewConsole(out)
	prompter := ui.NewPrompter(strings.NewReader(input), io.Discard, extras)
	log := logger.NewTestLogger()

	c, err := collector.New(collector.Options{
		Session:     fake,
		Downloader:  downloader.New(fake, store, 1, log),
		Exporter:    exporter,
		Console:     console,
		Prompter:    prompter,
		Config:      config.DefaultConfig().Collect,
		Logger:      log,
		Interactive: true,
	})
	require.NoError(t, err)
	require.NoError(t, c.SetTarget(context.Background(), "alice"))
	out.Reset()

	return newShell(c, console, prompter, exporter, log), out, exporter
}

func TestShellToggles(t *testing.T) {
	sh, out, exporter := newTestShell(t, "")
	ctx := context.Background()

	assert.False(t, sh.dispatch(ctx, "JSON=y"))
	assert.True(t, exporter.JSONEnabled())
	assert.False(t, sh.dispatch(ctx, "txt=y"))
	assert.True(t, exporter.TXTEnabled())
	assert.False(t, sh.dispatch(ctx, "json=n"))
	assert.False(t, exporter.JSONEnabled())

	assert.Contains(t, out.String(), "JSON output enabled")
	assert.Contains(t, out.String(), "TXT output enabled")
	assert.Contains(t, out.String(), "JSON output disabled")
}

func TestShellRejectsUnknownCommands(t *testing.T) {
	sh, out, _ := newTestShell(t, "")

	assert.False(t, sh.dispatch(context.Background(), "launch"))
	assert.Contains(t, out.String(), "Invalid command")

	assert.True(t, sh.dispatch(context.Background(), " Quit "))
}

func TestShellLoopStopsAtEndOfInput(t *testing.T) {
	sh, out, _ := newTestShell(t, "bogus\ncaptions\n")

	sh.loop(context.Background())

	text := out.String()
	assert.Contains(t, text, "followers-subset")
	assert.Contains(t, text, "Invalid command")
	assert.Contains(t, text, "No captions found")
}

func TestShellRunCommands(t *testing.T) {
	sh, out, _ := newTestShell(t, "")

	assert.True(t, sh.runCommands(context.Background(), []string{"captions", "Followers"}))
	assert.Contains(t, out.String(), "No captions found")
	assert.Contains(t, out.String(), "Found 0 followers")

	assert.False(t, sh.runCommands(context.Background(), []string{"nope", "captions"}))
	assert.Contains(t, out.String(), "Invalid command: nope")
}

func TestShellLeavesExtrasToCommands(t *testing.T) {
	sh, out, _ := newTestShell(t, "posts\nexit\n", "10")

	sh.loop(context.Background())

	text := out.String()
	assert.NotContains(t, text, "Invalid command")
	assert.Contains(t, text, "No posts found")
	assert.Contains(t, text, "Goodbye!")
	assert.Equal(t, 0, sh.prompter.Pending())
}

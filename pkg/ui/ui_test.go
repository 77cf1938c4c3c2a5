package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igosint/internal/fanout"
	"igosint/internal/progress"
	"igosint/pkg/session"
)

func TestConsoleWritesPlainTextToBuffers(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Success("Found %d posts", 3)
	c.Error("Error: %s", "boom")
	c.Info("Target", "alice")

	assert.Equal(t, "Found 3 posts\nError: boom\nTarget: alice\n", buf.String())
}

func TestStatusLine(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Status("one")
	c.Status("two")
	c.Println("done")
	c.EndStatus()

	assert.Equal(t, "\rone\033[K\rtwo\033[K\ndone\n", buf.String())
}

func TestProgressHandler(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)
	onProgress := c.Progress("Downloaded", " files")

	onProgress(fanout.Event{Completed: 1, Total: 2, Remaining: progress.Remaining{Duration: 90 * time.Second, Known: true}})
	onProgress(fanout.Event{Completed: 2, Total: 2, Remaining: progress.Remaining{Known: true}})

	out := buf.String()
	assert.Contains(t, out, "\rDownloaded 1 of 2 files. Remaining time: 00:01:30\033[K")
	assert.Contains(t, out, "\rDownloaded 2 of 2 files. Remaining time: 00:00:00\033[K")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestAskScriptedConsumesExtrasFirst(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("from stdin\n"), &out, []string{" bob ", "2"})

	assert.Equal(t, 2, p.Pending())

	v, err := p.AskScripted("Enter second target username: ")
	require.NoError(t, err)
	assert.Equal(t, "bob", v)

	v, err = p.AskScripted("Enter number: ")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	v, err = p.AskScripted("Again: ")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", v)

	_, err = p.AskScripted("More: ")
	assert.ErrorIs(t, err, session.ErrNoInput)

	assert.Contains(t, out.String(), "Enter second target username:  bob \n")
}

func TestAskAndSecretIgnoreExtras(t *testing.T) {
	p := NewPrompter(strings.NewReader("realuser\nhunter2\n"), &bytes.Buffer{}, []string{"10"})

	v, err := p.Ask("Instagram username: ")
	require.NoError(t, err)
	assert.Equal(t, "realuser", v)

	v, err = p.Secret("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", v)

	assert.Equal(t, 1, p.Pending())
	v, err = p.AskScripted("Enter number of posts to download: ")
	require.NoError(t, err)
	assert.Equal(t, "10", v)
}

func TestPrompterLastLineWithoutNewline(t *testing.T) {
	p := NewPrompter(strings.NewReader("last"), &bytes.Buffer{}, nil)
	v, err := p.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "last", v)
}

func TestSecretFromNonTerminal(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("hunter2\n"), &out, nil)

	v, err := p.Secret("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", v)
	assert.NotContains(t, out.String(), "hunter2")
}

func TestConfirm(t *testing.T) {
	p := NewPrompter(strings.NewReader("Y\nno\n"), &bytes.Buffer{}, []string{"y"})

	ok, err := p.Confirm("Continue?")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Confirm("Continue?")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, p.Pending())
}

package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/wilds-engine/internal/config"
	"github.com/jwebster45206/wilds-engine/pkg/content"
)

func newTestUI(t *testing.T) ConsoleUI {
	t.Helper()
	b, err := content.Default(nil)
	require.NoError(t, err)
	cc := &ConsoleConfig{
		Config: &config.Config{Seed: 17, TickMinutes: 30},
		Bundle: b,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	r, err := cc.NewRunner(nil)
	require.NoError(t, err)

	m := NewConsoleUI(cc)
	m.runner = r
	m.showSessionModal = false
	m.width, m.height = 120, 40
	m.layout()
	m.ready = true
	return m
}

func TestHandleInput_WaitUntilEvent(t *testing.T) {
	m := newTestUI(t)

	for range 20 {
		if m.runner.Pending() != nil {
			break
		}
		m.handleInput("")
	}
	enc := m.runner.Pending()
	require.NotNil(t, enc, "some event should fire within a few hours")

	m.handleInput("99")
	assert.Equal(t, entryError, m.log[len(m.log)-1].kind)
	assert.NotNil(t, m.runner.Pending(), "a bad choice leaves the event open")

	m.handleInput("1")
	var sawChoice bool
	for _, e := range m.log {
		if e.kind == entryChoice {
			sawChoice = true
		}
	}
	assert.True(t, sawChoice)
}

func TestHandleCommand(t *testing.T) {
	m := newTestUI(t)

	m.handleInput("/save")
	assert.Equal(t, entryError, m.log[len(m.log)-1].kind, "no store configured")

	m.handleInput("/tensions")
	assert.Equal(t, "Nothing is building against you.", m.log[len(m.log)-1].text)

	cmd := m.handleInput("/auto 3")
	assert.NotNil(t, cmd)
	assert.Equal(t, 3, m.autoLeft)

	m.handleInput("/dance")
	assert.Contains(t, m.log[len(m.log)-1].text, "Unknown command")
}

func TestAutoStepResolvesEverything(t *testing.T) {
	m := newTestUI(t)
	for range 10 {
		m.autoStep()
	}
	if m.runner.Survivor().Alive() {
		assert.Nil(t, m.runner.Pending())
	}
	assert.Contains(t, m.renderLog(60), "THE WILDS")
}

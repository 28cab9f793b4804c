package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_PostsMessage(t *testing.T) {
	msgs := make(chan tea.Msg, 1)
	s := NewScheduler(func(msg tea.Msg) { msgs <- msg })

	fired := false
	s.AfterFunc(time.Millisecond, func() { fired = true })
	assert.Equal(t, 1, s.Pending())

	var msg tea.Msg
	select {
	case msg = <-msgs:
	case <-time.After(time.Second):
		t.Fatal("timer message not delivered")
	}
	assert.False(t, fired, "callback must wait for the update loop")

	tm, ok := msg.(timerMsg)
	require.True(t, ok)
	s.fire(tm.id)
	assert.True(t, fired)
	assert.Equal(t, 0, s.Pending())
}

func TestScheduler_StopPreventsCallback(t *testing.T) {
	msgs := make(chan tea.Msg, 1)
	s := NewScheduler(func(msg tea.Msg) { msgs <- msg })

	fired := false
	timer := s.AfterFunc(time.Hour, func() { fired = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	s.fire(1)
	assert.False(t, fired)
	assert.Equal(t, 0, s.Pending())
}

func TestScheduler_LateSender(t *testing.T) {
	s := NewScheduler(nil)
	msgs := make(chan tea.Msg, 1)
	s.SetSender(func(msg tea.Msg) { msgs <- msg })

	s.AfterFunc(time.Millisecond, func() {})
	select {
	case <-msgs:
	case <-time.After(time.Second):
		t.Fatal("timer message not delivered")
	}
}

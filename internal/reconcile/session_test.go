package reconcile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession_RejectsDuplicates(t *testing.T) {
	_, err := NewSession(contactFields(), contactTable("email", "email"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate source column")

	fields := append(contactFields(), TargetField{ID: "email"})
	_, err = NewSession(fields, contactTable("email"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate target field")
}

func TestSession_BootstrapState(t *testing.T) {
	s, _ := newTestSession(t, contactFields(), contactTable("email", "Email", "phone"))

	assert.Equal(t, map[string]string{"email": "email", "phone": "phone"}, s.Assignment())
	assert.Empty(t, s.Ignored())
	assert.Equal(t, Idle{}, s.Mode())
	assert.Equal(t, PhaseReviewing, s.Phase())
	assert.Nil(t, s.Conflict())
}

func TestSession_ToggleIgnoreKeepsAssignment(t *testing.T) {
	s, _ := newTestSession(t, contactFields(), contactTable("email", "phone", "notes"))

	for _, h := range []string{"email", "notes"} {
		before, hadMatch := s.Match(h)

		require.NoError(t, s.ToggleIgnore(h))
		assert.True(t, s.IsIgnored(h))
		after, hasMatch := s.Match(h)
		assert.Equal(t, hadMatch, hasMatch)
		assert.Equal(t, before, after)

		require.NoError(t, s.ToggleIgnore(h))
		assert.False(t, s.IsIgnored(h))
		after, hasMatch = s.Match(h)
		assert.Equal(t, hadMatch, hasMatch)
		assert.Equal(t, before, after)
	}
}

func TestSession_ToggleIgnoreUnknownColumn(t *testing.T) {
	s, _ := newTestSession(t, contactFields(), contactTable("email"))

	err := s.ToggleIgnore("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownColumn))
}

func TestSession_ChangeMode(t *testing.T) {
	s, _ := newTestSession(t, contactFields(), contactTable("email", "phone", "notes"))

	require.NoError(t, s.EnterChangeMode("email"))
	h, ok := s.ChangingHeader()
	require.True(t, ok)
	assert.Equal(t, "email", h)

	// Entering for another header replaces the first.
	require.NoError(t, s.EnterChangeMode("notes"))
	h, _ = s.ChangingHeader()
	assert.Equal(t, "notes", h)

	require.NoError(t, s.ExitChangeMode())
	_, ok = s.ChangingHeader()
	assert.False(t, ok)

	// Exit while idle is a no-op.
	require.NoError(t, s.ExitChangeMode())
	assert.Equal(t, Idle{}, s.Mode())
}

func TestSession_Unassign(t *testing.T) {
	s, _ := newTestSession(t, contactFields(), contactTable("email", "phone"))

	require.NoError(t, s.EnterChangeMode("phone"))
	require.NoError(t, s.Unassign("phone"))

	_, ok := s.Match("phone")
	assert.False(t, ok)
	assert.Equal(t, Idle{}, s.Mode())
}

func TestSession_Reset(t *testing.T) {
	s, _ := newTestSession(t, contactFields(), contactTable("email", "e-mail", "phone"))

	require.NoError(t, s.ToggleIgnore("phone"))
	_, err := s.TryAssign("e-mail", "email")
	require.NoError(t, err)
	require.NotNil(t, s.Conflict())

	s.Reset()

	assert.Empty(t, s.Assignment())
	assert.Empty(t, s.Ignored())
	assert.Equal(t, Idle{}, s.Mode())
	assert.Nil(t, s.Conflict())

	// The session is usable again after a mid-conflict reset.
	c, err := s.TryAssign("e-mail", "email")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestSession_Summary(t *testing.T) {
	s, _ := newTestSession(t, contactFields(), contactTable("email", "phone", "notes", "extra"))
	require.NoError(t, s.ToggleIgnore("extra"))

	assert.Equal(t, Summary{
		Columns:         4,
		Matched:         2,
		Unmatched:       1,
		Ignored:         1,
		MissingRequired: 0,
	}, s.Summary())
}

// Uniqueness must hold after any sequence of operations.
func TestSession_UniquenessAcrossSequences(t *testing.T) {
	s, _ := newTestSession(t, contactFields(), contactTable("a", "b", "c", "email"))

	type step func() error
	steps := []step{
		func() error { _, err := s.TryAssign("a", "phone"); return err },
		func() error { _, err := s.TryAssign("b", "phone"); return err },
		func() error { return s.SelectHeaderToResolve("b") },
		func() error { return s.Resolve() },
		func() error { _, err := s.TryAssign("c", "phone"); return err },
		func() error { return s.Cancel() },
		func() error { return s.ToggleIgnore("b") },
		func() error { _, err := s.TryAssign("a", "email"); return err },
		func() error { return s.SelectHeaderToResolve("a") },
		func() error { return s.Resolve() },
		func() error { _, err := s.TryAssign("email", "name"); return err },
		func() error { _, err := s.TryAssign("c", "name"); return err },
		func() error { return s.SelectHeaderToResolve("email") },
		func() error { return s.Resolve() },
		func() error { s.Reset(); return nil },
		func() error { _, err := s.TryAssign("c", "phone"); return err },
	}

	for i, st := range steps {
		require.NoErrorf(t, st(), "step %d", i)
		requireUnique(t, s)
	}
}

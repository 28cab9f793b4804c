package review

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapimport/internal/reconcile"
	"github.com/leapstack-labs/leapimport/internal/ui/features"
)

const testColumnWidth = 240

func setupTestHandlers(t *testing.T) (*Handlers, *features.TestFixture, string) {
	t.Helper()

	fixture := features.SetupTestFixture(t)
	id := fixture.StartContacts(t)

	h := NewHandlers(
		fixture.Registry,
		fixture.SessionStore,
		fixture.Notifier,
		testColumnWidth,
		false,
		nil,
	)
	return h, fixture, id
}

// post calls handler as a datastar action and returns the response body.
func post(t *testing.T, handler http.HandlerFunc, body string, kv ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = features.RequestWithPathParams(req, kv...)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestReviewPage(t *testing.T) {
	h, _, id := setupTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/review/"+id, nil)
	req = features.RequestWithPathParams(req, "id", id)
	rec := httptest.NewRecorder()

	h.ReviewPage(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, want := range []string{
		"<!doctype html>",
		"<title>contacts.csv - LeapImport</title>",
		"/review/" + id + "/updates",
		"data-init",
		`id="review-app"`,
		`id="strip"`,
		"1. Email",
		"4. Notes",
		"→ Full Name",
		"state-unmatched",
	} {
		assert.Contains(t, body, want, "response should contain %q", want)
	}
	assert.NotContains(t, body, "Required fields not matched", "Email is auto-matched")
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "leapimport=", "review should remember the session")
}

func TestReviewPage_Unknown(t *testing.T) {
	h, _, _ := setupTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/review/missing", nil)
	req = features.RequestWithPathParams(req, "id", "missing")
	rec := httptest.NewRecorder()

	h.ReviewPage(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChangeAndAssign(t *testing.T) {
	h, fixture, id := setupTestHandlers(t)

	rec := post(t, h.Change, "", "id", id, "col", "1")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "review-app")
	assert.Contains(t, body, "Match &#34;Mobile&#34; to")
	assert.Contains(t, body, "matched by &#34;Email&#34;")

	rec = post(t, h.Assign, "", "id", id, "field", "phone")
	assert.NotContains(t, rec.Body.String(), "banner-error")

	fixture.Session(t, id, func(s *reconcile.Session) {
		got, ok := s.Match("Mobile")
		assert.True(t, ok)
		assert.Equal(t, "phone", got)
		assert.IsType(t, reconcile.Idle{}, s.Mode())
	})
}

func TestAssign_WithoutChangeMode(t *testing.T) {
	h, _, id := setupTestHandlers(t)

	rec := post(t, h.Assign, "", "id", id, "field", "phone")
	body := rec.Body.String()
	assert.Contains(t, body, "banner-error")
	assert.Contains(t, body, "Assign")
}

func TestConflictFlow(t *testing.T) {
	h, fixture, id := setupTestHandlers(t)

	post(t, h.Change, "", "id", id, "col", "1")
	rec := post(t, h.Assign, "", "id", id, "field", "email")
	assert.Contains(t, rec.Body.String(), "Both columns want Email")

	// Resolving before a selection is rejected and keeps the panel open.
	rec = post(t, h.Resolve, "", "id", id)
	assert.Contains(t, rec.Body.String(), "banner-error")
	assert.Contains(t, rec.Body.String(), "Both columns want Email")

	post(t, h.Select, "", "id", id, "col", "1")
	rec = post(t, h.Resolve, "", "id", id)
	assert.NotContains(t, rec.Body.String(), "Both columns want")

	fixture.Session(t, id, func(s *reconcile.Session) {
		holder, ok := s.Holder("email")
		assert.True(t, ok)
		assert.Equal(t, "Mobile", holder)
		_, ok = s.Match("Email")
		assert.False(t, ok)
	})
}

func TestConflictCancel(t *testing.T) {
	h, fixture, id := setupTestHandlers(t)

	post(t, h.Change, "", "id", id, "col", "1")
	post(t, h.Assign, "", "id", id, "field", "email")
	post(t, h.Cancel, "", "id", id)

	fixture.Session(t, id, func(s *reconcile.Session) {
		assert.Nil(t, s.Conflict())
		holder, _ := s.Holder("email")
		assert.Equal(t, "Email", holder)
	})
}

func TestIgnoreToggle(t *testing.T) {
	h, fixture, id := setupTestHandlers(t)

	rec := post(t, h.Ignore, "", "id", id, "col", "3")
	assert.Contains(t, rec.Body.String(), "state-ignored")
	fixture.Session(t, id, func(s *reconcile.Session) {
		assert.True(t, s.IsIgnored("Notes"))
	})

	post(t, h.Ignore, "", "id", id, "col", "3")
	fixture.Session(t, id, func(s *reconcile.Session) {
		assert.False(t, s.IsIgnored("Notes"))
	})
}

func TestInvalidColumn(t *testing.T) {
	h, _, id := setupTestHandlers(t)

	for _, col := range []string{"9", "-1", "x"} {
		rec := post(t, h.Ignore, "", "id", id, "col", col)
		assert.Contains(t, rec.Body.String(), "unknown source column", "col %s", col)
	}
}

func TestProceed(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(t *testing.T, h *Handlers, id string)
		wantBody  string
		wantPhase reconcile.Phase
	}{
		{
			name:      "imports when required fields are matched",
			setup:     func(*testing.T, *Handlers, string) {},
			wantBody:  "Imported 2 rows.",
			wantPhase: reconcile.PhaseCompleted,
		},
		{
			name: "blocked while email is unmatched",
			setup: func(t *testing.T, h *Handlers, id string) {
				post(t, h.Unassign, "", "id", id, "col", "0")
			},
			wantBody:  "Match required fields first: Email",
			wantPhase: reconcile.PhaseReviewing,
		},
		{
			name: "blocked while the email column is ignored",
			setup: func(t *testing.T, h *Handlers, id string) {
				post(t, h.Ignore, "", "id", id, "col", "0")
			},
			wantBody:  "Match required fields first: Email",
			wantPhase: reconcile.PhaseReviewing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, fixture, id := setupTestHandlers(t)
			tt.setup(t, h, id)

			rec := post(t, h.Proceed, "", "id", id)
			assert.Contains(t, rec.Body.String(), tt.wantBody)

			fixture.Session(t, id, func(s *reconcile.Session) {
				assert.Equal(t, tt.wantPhase, s.Phase())
			})
		})
	}
}

func TestViewportAndJump(t *testing.T) {
	h, fixture, id := setupTestHandlers(t)

	rec := post(t, h.Layout, `{"scrollOffset":0,"visibleWidth":480}`, "id", id)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	fixture.Clock.Flush()

	fixture.Session(t, id, func(s *reconcile.Session) {
		stats := s.ViewportStats()
		assert.Equal(t, 0, stats.LeftCount)
		assert.Equal(t, 1, stats.RightCount, "Notes is off to the right")
		assert.Equal(t, 3, stats.RightFirstUnmatchedIndex)
	})

	rec = post(t, h.Jump, "", "id", id, "dir", "right")
	assert.Contains(t, rec.Body.String(), "scrollLeft = 720")

	rec = post(t, h.Jump, "", "id", id, "dir", "left")
	assert.NotContains(t, rec.Body.String(), "scrollLeft")

	rec = post(t, h.Scroll, `{"scrollOffset":480,"visibleWidth":480}`, "id", id)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	fixture.Clock.Flush()

	fixture.Session(t, id, func(s *reconcile.Session) {
		stats := s.ViewportStats()
		assert.Equal(t, 1, stats.LeftCount, "Mobile is off to the left")
		assert.Equal(t, 0, stats.RightCount)
	})
}

func TestLayout_BadSignals(t *testing.T) {
	h, _, id := setupTestHandlers(t)

	rec := post(t, h.Layout, `{not json`, "id", id)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviewUpdates(t *testing.T) {
	h, fixture, id := setupTestHandlers(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/review/"+id+"/updates", nil).WithContext(ctx)
	req = features.RequestWithPathParams(req, "id", id)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ReviewUpdates(rec, req)
		close(done)
	}()

	// Give the stream time to subscribe before changing the session.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, fixture.Registry.Update(id, func(s *reconcile.Session) error {
		return s.ToggleIgnore("Notes")
	}))

	<-done
	body := rec.Body.String()
	assert.Contains(t, body, "review-app")
	assert.Contains(t, body, "state-ignored")
}

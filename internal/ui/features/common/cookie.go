package common

import (
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	cookieName     = "leapimport"
	lastSessionKey = "last_session"
)

// RememberSession records id as the browser's most recently reviewed
// session.
func RememberSession(store sessions.Store, w http.ResponseWriter, r *http.Request, id string) error {
	sess, err := store.Get(r, cookieName)
	if err != nil {
		// A cookie signed with an old secret decodes with an error but a
		// usable fresh session.
		sess, _ = store.New(r, cookieName)
	}
	sess.Values[lastSessionKey] = id
	return sess.Save(r, w)
}

// LastSession returns the session recorded by RememberSession, or "".
func LastSession(store sessions.Store, r *http.Request) string {
	sess, err := store.Get(r, cookieName)
	if err != nil {
		return ""
	}
	id, _ := sess.Values[lastSessionKey].(string)
	return id
}

// Package session persists a browser's session token and the profile fields the
// console shows alongside it.
//
// Every other component reaches stored sessions through Store only. A load never
// fails: an unreadable, unavailable or oddly shaped record is reported as absent so
// the caller treats the browser as anonymous.
package session

import (
	"net/http"
	"time"
)

// Persisted field names. They are shared by every Store implementation.
const (
	KeyToken     = "steward_token"
	KeyName      = "steward_name"
	KeyRole      = "steward_role"
	KeyLastLogin = "steward_last_login"
)

// Record is the stored state of one browser session.
type Record struct {
	Token     string
	Name      string
	Role      string
	LastLogin time.Time
}

// Store saves, loads and clears the Record for the browser making a request.
type Store interface {
	// Save writes rec without inspecting the token.
	Save(w http.ResponseWriter, r *http.Request, rec Record) error
	// Load returns the stored record, or false when there is none.
	Load(r *http.Request) (Record, bool)
	// Clear removes the record. Clearing an absent record is not an error.
	Clear(w http.ResponseWriter, r *http.Request) error
}

// Options configures cookie attributes and record lifetime.
type Options struct {
	Secure bool
	TTL    time.Duration
}

func (o Options) maxAge() int {
	if o.TTL <= 0 {
		return 0
	}
	return int(o.TTL / time.Second)
}

func (r Record) values() map[string]string {
	v := map[string]string{
		KeyToken: r.Token,
		KeyName:  r.Name,
		KeyRole:  r.Role,
	}
	if !r.LastLogin.IsZero() {
		v[KeyLastLogin] = r.LastLogin.UTC().Format(time.RFC3339)
	}
	return v
}

func recordFromValues(v map[string]string) (Record, bool) {
	tok := v[KeyToken]
	if tok == "" {
		return Record{}, false
	}
	rec := Record{
		Token: tok,
		Name:  v[KeyName],
		Role:  v[KeyRole],
	}
	if ts, ok := v[KeyLastLogin]; ok && ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return Record{}, false
		}
		rec.LastLogin = t
	}
	return rec, true
}

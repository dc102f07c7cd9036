// Package rights is the closed registry of capabilities a console session can hold.
//
// A capability id is embedded verbatim in the session token's "rights" claim and is
// compared by exact, case-sensitive string equality. The registry is not extensible at
// runtime: an id that is not declared here is never granted, even when a token carries it.
package rights

import (
	"errors"
	"fmt"
	"iter"
	"slices"
)

// ErrUnknownCapability is returned for ids that are not declared in the registry.
var ErrUnknownCapability = errors.New("unknown capability")

// ID identifies a single capability, e.g. "manage_dental".
type ID string

// Declared capabilities. Order here is the registry's listing order.
const (
	ManageWebsite      ID = "manage_website"
	ManageMessages     ID = "manage_messages"
	ManageSubscribers  ID = "manage_subscribers"
	ManageRiders       ID = "manage_riders"
	AddRider           ID = "add_rider"
	ManageDental       ID = "manage_dental"
	ManageAppointments ID = "manage_appointments"
	ManageLeadership   ID = "manage_leadership"
	ManageUsers        ID = "manage_users"
	ViewReports        ID = "view_reports"
)

func (id ID) String() string {
	return string(id)
}

// Right is a registry entry.
type Right struct {
	ID          ID
	Label       string
	Description string
}

var registry = []Right{
	{ManageWebsite, "Website", "Edit public website pages, news and gallery content."},
	{ManageMessages, "Messages", "Read and answer messages sent through the contact form."},
	{ManageSubscribers, "Subscribers", "View and export newsletter subscribers."},
	{ManageRiders, "Riders", "View, edit and export the bike-rider registry."},
	{AddRider, "Add Rider", "Register new riders."},
	{ManageDental, "Dental", "Manage dental-clinic patient records."},
	{ManageAppointments, "Appointments", "Schedule and update dental-clinic appointments."},
	{ManageLeadership, "Leadership", "Manage leadership-programme registrations."},
	{ManageUsers, "Users", "Create console accounts and assign their rights."},
	{ViewReports, "Reports", "View dashboard statistics and download reports."},
}

var index = func() map[ID]int {
	m := make(map[ID]int, len(registry))
	for i, r := range registry {
		if _, dup := m[r.ID]; dup {
			panic(fmt.Sprintf("rights: duplicate capability %q", r.ID))
		}
		m[r.ID] = i
	}
	return m
}()

// All yields every declared capability in declaration order. The sequence can be
// ranged over any number of times.
func All() iter.Seq[Right] {
	return func(yield func(Right) bool) {
		for _, r := range registry {
			if !yield(r) {
				return
			}
		}
	}
}

// Describe returns the registry entry for id, or ErrUnknownCapability.
func Describe(id ID) (Right, error) {
	i, ok := index[id]
	if !ok {
		return Right{}, fmt.Errorf("%w: %q", ErrUnknownCapability, string(id))
	}
	return registry[i], nil
}

// Known reports whether id is declared in the registry.
func Known(id ID) bool {
	_, ok := index[id]
	return ok
}

// Set is an unordered collection of capability ids.
type Set map[ID]struct{}

// NewSet builds a Set from raw claim values. Duplicates collapse; values are kept
// exactly as given, so "Manage_Dental" and "manage_dental" are distinct.
func NewSet(values []string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		s[ID(v)] = struct{}{}
	}
	return s
}

// Has reports whether id is a member of the set.
func (s Set) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in registry declaration order followed by any
// undeclared values. Used for display only.
func (s Set) Sorted() []ID {
	out := make([]ID, 0, len(s))
	for r := range All() {
		if s.Has(r.ID) {
			out = append(out, r.ID)
		}
	}
	var unknown []ID
	for id := range s {
		if !Known(id) {
			unknown = append(unknown, id)
		}
	}
	slices.Sort(unknown)
	return append(out, unknown...)
}

// Parse splits raw values into declared ids (deduplicated, declaration order) and the
// values that are not declared. Used to validate rights submitted for assignment.
func Parse(values []string) ([]ID, []string) {
	s := NewSet(values)
	var known []ID
	for r := range All() {
		if s.Has(r.ID) {
			known = append(known, r.ID)
		}
	}
	var unknown []string
	for id := range s {
		if !Known(id) {
			unknown = append(unknown, string(id))
		}
	}
	slices.Sort(unknown)
	return known, unknown
}

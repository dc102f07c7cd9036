package console

import (
	"context"

	"steward/internal/access"
	"steward/internal/guard"
	"steward/internal/rights"
)

// Gated screens and the capability each requires. The sidebar is built from the
// same table, so a link is shown exactly when the guard would let it through.
var (
	screenDashboard  = guard.Screen{Name: "Dashboard"}
	screenPassword   = guard.Screen{Name: "Change password", PasswordChange: true}
	screenWebsite    = guard.Screen{Name: "Website", Requires: rights.ManageWebsite}
	screenMessages   = guard.Screen{Name: "Messages", Requires: rights.ManageMessages}
	screenSubscriber = guard.Screen{Name: "Subscribers", Requires: rights.ManageSubscribers}
	screenRiders     = guard.Screen{Name: "Riders", Requires: rights.ManageRiders}
	screenAddRider   = guard.Screen{Name: "Add rider", Requires: rights.AddRider}
	screenDental     = guard.Screen{Name: "Dental clinic", Requires: rights.ManageDental}
	screenAppoint    = guard.Screen{Name: "Appointments", Requires: rights.ManageAppointments}
	screenLeadership = guard.Screen{Name: "Leadership", Requires: rights.ManageLeadership}
	screenAccounts   = guard.Screen{Name: "Accounts", Requires: rights.ManageUsers}
	screenReports    = guard.Screen{Name: "Reports", Requires: rights.ViewReports}
)

type route struct {
	Path   string
	Screen guard.Screen
}

// gated lists the content screens in sidebar order. /accounts is registered separately
// because it has its own handlers.
var gated = []route{
	{"/website", screenWebsite},
	{"/messages", screenMessages},
	{"/subscribers", screenSubscriber},
	{"/riders", screenRiders},
	{"/riders/new", screenAddRider},
	{"/dental", screenDental},
	{"/appointments", screenAppoint},
	{"/leadership", screenLeadership},
	{"/reports", screenReports},
}

type navItem struct {
	Path   string
	Label  string
	Active bool
}

func navigation(ctx context.Context, v *access.Viewer, current string) []navItem {
	items := []navItem{{Path: "/dashboard", Label: screenDashboard.Name, Active: current == "/dashboard"}}
	all := append(gated[:len(gated):len(gated)], route{"/accounts", screenAccounts})
	for _, rt := range all {
		if !v.Can(ctx, rt.Screen.Requires) {
			continue
		}
		items = append(items, navItem{Path: rt.Path, Label: rt.Screen.Name, Active: rt.Path == current})
	}
	return items
}

package authstate

import (
	"slices"
	"strings"

	"github.com/ministrylearn/ministrylearn/pkg/lmssdk"
)

// Roles known to the API.
const (
	RoleLearner    = "Learner"
	RoleInstructor = "Instructor"
	RoleAdmin      = "Admin"
)

// Locations a guard can send a user to.
const (
	LoginPath      = "/login"
	DashboardPath  = "/dashboard"
	InstructorPath = "/instructor"
	AdminPath      = "/admin"
)

// Decision is the outcome of a guard check. When Allowed is false, Redirect
// names where the user should go instead.
type Decision struct {
	Allowed  bool
	Redirect string
}

// Authorize decides whether user may see a view restricted to allowed. A
// nil user is sent to the login page. With no allowed roles any signed-in
// user passes; otherwise a user holding none of them is sent to the
// dashboard.
func Authorize(user *lmssdk.Profile, allowed ...string) Decision {
	if user == nil {
		return Decision{Redirect: LoginPath}
	}
	if len(allowed) > 0 && !hasAny(user.Roles, allowed) {
		return Decision{Redirect: DashboardPath}
	}
	return Decision{Allowed: true}
}

// HomeFor returns the landing location for a freshly signed-in user.
func HomeFor(roles []string) string {
	switch {
	case slices.Contains(roles, RoleAdmin):
		return AdminPath
	case slices.Contains(roles, RoleInstructor):
		return InstructorPath
	default:
		return DashboardPath
	}
}

// Route is a protected location. A nil Roles admits any signed-in user.
type Route struct {
	Path  string
	Roles []string
}

// Routes lists the protected locations of the application.
var Routes = []Route{
	{Path: DashboardPath},
	{Path: "/learn"},
	{Path: "/assessments"},
	{Path: "/certifications"},
	{Path: "/profile"},
	{Path: "/settings"},
	{Path: InstructorPath, Roles: []string{RoleInstructor, RoleAdmin}},
	{Path: AdminPath, Roles: []string{RoleAdmin}},
}

// RouteFor finds the protected route covering path, matching whole path
// segments.
func RouteFor(path string) (Route, bool) {
	var best Route
	found := false
	for _, r := range Routes {
		if path != r.Path && !strings.HasPrefix(path, r.Path+"/") {
			continue
		}
		if !found || len(r.Path) > len(best.Path) {
			best, found = r, true
		}
	}
	return best, found
}

func hasAny(have, want []string) bool {
	for _, r := range have {
		if slices.Contains(want, r) {
			return true
		}
	}
	return false
}

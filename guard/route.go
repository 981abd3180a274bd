package guard

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	// ErrUnknownRoute is returned by Lookup for paths outside the table.
	ErrUnknownRoute = errors.New("unknown route")
	// ErrInvalidTable is returned when a route table is inconsistent.
	ErrInvalidTable = errors.New("invalid route table")
)

// Route describes access requirements of one console page.
type Route struct {
	Path string
	Name string

	RequiresAuth  bool
	RequiresAdmin bool
	// GuestOnly routes are only for signed-out users; a signed-in user is
	// redirected to the landing page.
	GuestOnly bool
	// FaceVerification marks the route that submits face-verification data.
	FaceVerification bool

	Children []Route
}

// Paths names the well-known destinations used by decisions.
type Paths struct {
	Entry       string
	Landing     string
	SafeDefault string
}

// Table is an immutable, flattened route table.
type Table struct {
	paths  Paths
	routes map[string]Route
	order  []string
}

// NewTable flattens routes (children inherit their parent's requirements)
// and validates that the entry, landing and safe-default paths exist.
func NewTable(paths Paths, routes ...Route) (*Table, error) {
	t := &Table{routes: make(map[string]Route)}
	for _, r := range routes {
		if err := t.add("", Route{}, r); err != nil {
			return nil, err
		}
	}

	if paths.SafeDefault == "" {
		paths.SafeDefault = paths.Landing
	}
	for _, p := range []string{paths.Entry, paths.Landing, paths.SafeDefault} {
		if _, ok := t.routes[Normalize(p)]; !ok {
			return nil, fmt.Errorf("%w: %q is not a route", ErrInvalidTable, p)
		}
	}
	t.paths = Paths{
		Entry:       Normalize(paths.Entry),
		Landing:     Normalize(paths.Landing),
		SafeDefault: Normalize(paths.SafeDefault),
	}
	return t, nil
}

func (t *Table) add(prefix string, parent, r Route) error {
	p := r.Path
	if prefix != "" && !strings.HasPrefix(p, "/") {
		p = prefix + "/" + p
	}
	p = Normalize(p)
	if _, dup := t.routes[p]; dup {
		return fmt.Errorf("%w: duplicate route %q", ErrInvalidTable, p)
	}

	flat := r
	flat.Path = p
	flat.Children = nil
	flat.RequiresAuth = r.RequiresAuth || parent.RequiresAuth
	flat.RequiresAdmin = r.RequiresAdmin || parent.RequiresAdmin
	flat.FaceVerification = r.FaceVerification || parent.FaceVerification
	if flat.RequiresAdmin {
		flat.RequiresAuth = true
	}
	if flat.GuestOnly && flat.RequiresAuth {
		return fmt.Errorf("%w: %q cannot be guest-only and require auth", ErrInvalidTable, p)
	}

	t.routes[p] = flat
	t.order = append(t.order, p)
	for _, c := range r.Children {
		if err := t.add(p, flat, c); err != nil {
			return err
		}
	}
	return nil
}

// Paths returns the table's well-known destinations.
func (t *Table) Paths() Paths {
	return t.paths
}

// Lookup returns the route registered for p.
func (t *Table) Lookup(p string) (Route, error) {
	r, ok := t.routes[Normalize(p)]
	if !ok {
		return Route{}, fmt.Errorf("%w: %s", ErrUnknownRoute, p)
	}
	return r, nil
}

// Resolve returns the route for p. Unknown paths resolve to an anonymous
// route that requires authentication.
func (t *Table) Resolve(p string) Route {
	r, err := t.Lookup(p)
	if err != nil {
		return Route{Path: Normalize(p), RequiresAuth: true}
	}
	return r
}

// Routes returns the flattened routes in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, 0, len(t.order))
	for _, p := range t.order {
		out = append(out, t.routes[p])
	}
	return out
}

// Normalize strips query and fragment and cleans p into an absolute path.
func Normalize(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// Console route names.
const (
	RouteEntry          = "entry"
	RouteHome           = "home"
	RouteFace           = "face"
	RouteRoad           = "road"
	RouteLog            = "log"
	RouteUserManagement = "user-management"
	RouteTraffic        = "traffic"
)

// ConsoleRoutes is the console's page table.
func ConsoleRoutes() []Route {
	traffic := []Route{
		{Path: "overview", Name: "traffic-overview"},
		{Path: "track", Name: "traffic-track"},
		{Path: "heatmap", Name: "traffic-heatmap"},
		{Path: "anomaly", Name: "traffic-anomaly"},
		{Path: "spatiotemporal", Name: "traffic-spatiotemporal"},
		{Path: "statistics", Name: "traffic-statistics"},
		{Path: "road", Name: "traffic-road"},
		{Path: "pattern", Name: "traffic-pattern"},
	}
	return []Route{
		{Path: "/", Name: RouteEntry, GuestOnly: true},
		{Path: "/home", Name: RouteHome, RequiresAuth: true},
		{Path: "/face", Name: RouteFace, RequiresAuth: true, FaceVerification: true},
		{Path: "/road", Name: RouteRoad, RequiresAuth: true},
		{Path: "/log", Name: RouteLog, RequiresAuth: true},
		{Path: "/user-management", Name: RouteUserManagement, RequiresAdmin: true},
		{Path: "/traffic", Name: RouteTraffic, RequiresAuth: true, Children: traffic},
	}
}

// DefaultTable returns the console table with "/" as entry and "/home" as
// landing and safe default.
func DefaultTable() *Table {
	t, err := NewTable(Paths{Entry: "/", Landing: "/home", SafeDefault: "/home"}, ConsoleRoutes()...)
	if err != nil {
		panic(err)
	}
	return t
}

package domain

import (
	"sort"
	"strings"
)

// DefaultRouteKey names the route used for series without their own.
const DefaultRouteKey = "DEFAULT"

// Catalog holds the option lists a scan floor is configured with.
type Catalog struct {
	Series     map[string]string
	Models     map[string]string
	Containers map[string]int
	Statuses   map[string]string
	Stations   map[string]string
	Routes     map[string]Route

	// ConformingStatus is stamped on good boxes and counted as good in yield.
	ConformingStatus string

	// DefectStatus is stamped on bad boxes unless the submission names another.
	DefectStatus string
}

// CatalogOption is one code/name pair offered to operators.
type CatalogOption struct {
	Code     string `json:"code"`
	Name     string `json:"name,omitempty"`
	Capacity *int   `json:"capacity,omitempty"`
}

// HasSeries reports whether code is a configured series
func (c *Catalog) HasSeries(code string) bool {
	_, ok := c.Series[strings.ToUpper(code)]
	return ok
}

// HasModel reports whether code is a configured model
func (c *Catalog) HasModel(code string) bool {
	_, ok := c.Models[code]
	return ok
}

// HasStation reports whether code is a configured station that fits the process field
func (c *Catalog) HasStation(code string) bool {
	if len(code) != ProcessWidth {
		return false
	}
	_, ok := c.Stations[strings.ToUpper(code)]
	return ok
}

// HasStatus reports whether code is a configured status
func (c *Catalog) HasStatus(code string) bool {
	_, ok := c.Statuses[strings.ToUpper(code)]
	return ok
}

// Capacity returns the container capacity; unknown containers report 0, meaning no limit.
func (c *Catalog) Capacity(container string) int {
	return c.Containers[strings.ToUpper(container)]
}

// RouteFor returns the series route, or the default route when the series has none.
func (c *Catalog) RouteFor(series string) Route {
	if r, ok := c.Routes[strings.ToUpper(series)]; ok {
		return r
	}
	return c.Routes[DefaultRouteKey]
}

// NextStation returns the station after current on the series route, or "" at the end.
func (c *Catalog) NextStation(series, current string) string {
	next, _ := c.RouteFor(series).NextStation(current)
	return next
}

// StatusFor maps a disposition to its status code. A non-empty defect override
// replaces the catalog default for bad boxes.
func (c *Catalog) StatusFor(defectOverride string) func(Disposition) string {
	return func(d Disposition) string {
		if d == DispositionGood {
			return c.ConformingStatus
		}
		if defectOverride != "" {
			return strings.ToUpper(defectOverride)
		}
		return c.DefectStatus
	}
}

// SeriesOptions lists series sorted by code
func (c *Catalog) SeriesOptions() []CatalogOption { return namedOptions(c.Series) }

// ModelOptions lists models sorted by code
func (c *Catalog) ModelOptions() []CatalogOption { return namedOptions(c.Models) }

// StatusOptions lists statuses sorted by code
func (c *Catalog) StatusOptions() []CatalogOption { return namedOptions(c.Statuses) }

// StationOptions lists stations sorted by code
func (c *Catalog) StationOptions() []CatalogOption { return namedOptions(c.Stations) }

// ContainerOptions lists containers with their capacity sorted by code
func (c *Catalog) ContainerOptions() []CatalogOption {
	opts := make([]CatalogOption, 0, len(c.Containers))
	for code, capacity := range c.Containers {
		capacity := capacity
		opts = append(opts, CatalogOption{Code: code, Capacity: &capacity})
	}
	sort.Slice(opts, func(i, j int) bool { return opts[i].Code < opts[j].Code })
	return opts
}

func namedOptions(m map[string]string) []CatalogOption {
	opts := make([]CatalogOption, 0, len(m))
	for code, name := range m {
		opts = append(opts, CatalogOption{Code: code, Name: name})
	}
	sort.Slice(opts, func(i, j int) bool { return opts[i].Code < opts[j].Code })
	return opts
}

// Route is the ordered list of stations a series passes through.
type Route []string

// NewRoute builds a route from station codes, uppercased and trimmed.
func NewRoute(stations ...string) Route {
	r := make(Route, 0, len(stations))
	for _, s := range stations {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			r = append(r, s)
		}
	}
	return r
}

func (r Route) indexOf(station string) int {
	station = strings.ToUpper(station)
	for i, s := range r {
		if s == station {
			return i
		}
	}
	return -1
}

// Contains reports whether the station is on the route
func (r Route) Contains(station string) bool {
	return r.indexOf(station) >= 0
}

// NextStation returns the station after current.
func (r Route) NextStation(current string) (string, bool) {
	i := r.indexOf(current)
	if i < 0 || i+1 >= len(r) {
		return "", false
	}
	return r[i+1], true
}

// PreviousStation returns the station before current.
func (r Route) PreviousStation(current string) (string, bool) {
	i := r.indexOf(current)
	if i <= 0 {
		return "", false
	}
	return r[i-1], true
}

// ValidateTransition checks that to is exactly the station following from.
func (r Route) ValidateTransition(series, from, to string) error {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if len(r) == 0 {
		return &FlowError{Series: series, From: from, To: to, Reason: "no route configured"}
	}

	i := r.indexOf(from)
	if i < 0 {
		return &FlowError{Series: series, From: from, To: to, Reason: "station " + from + " is not on the route"}
	}
	if i+1 >= len(r) {
		return &FlowError{Series: series, From: from, To: to, Reason: "station " + from + " is the last station of the route"}
	}
	if expected := r[i+1]; expected != to {
		return &FlowError{Series: series, From: from, To: to, Expected: expected}
	}
	return nil
}

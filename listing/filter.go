package listing

import (
	"net/url"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Filter holds the criteria of the filters bar. Empty fields are inactive.
type Filter struct {
	SearchTerm     string `json:"searchTerm,omitempty"`
	DateFrom       string `json:"dateFrom,omitempty"`
	DateTo         string `json:"dateTo,omitempty"`
	Province       string `json:"province,omitempty"`
	Location       string `json:"location,omitempty"`
	Status         string `json:"status,omitempty"`
	AssignedMember string `json:"assignedMember,omitempty"`
}

// FilterFromQuery reads a Filter from query parameters of the same names
func FilterFromQuery(q url.Values) Filter {
	get := func(k string) string { return strings.TrimSpace(q.Get(k)) }
	return Filter{
		SearchTerm:     get("searchTerm"),
		DateFrom:       get("dateFrom"),
		DateTo:         get("dateTo"),
		Province:       get("province"),
		Location:       get("location"),
		Status:         get("status"),
		AssignedMember: get("assignedMember"),
	}
}

// IsZero reports whether no criterion is active
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Matches applies every active criterion in order: free text over victim
// name, location and province; date lower and upper bound; province; location
// substring; status; assigned member. The text criteria look at stored values,
// not at display fallbacks. A row whose date does not parse fails any active
// date bound.
func (f Filter) Matches(r Row) bool {
	name, province, location := r.searchable()
	if f.SearchTerm != "" {
		term := strings.ToLower(f.SearchTerm)
		if !containsFold(name, term) && !containsFold(location, term) && !containsFold(province, term) {
			return false
		}
	}
	if from, ok := parseDate(f.DateFrom); ok {
		d, ok := parseDate(r.Date)
		if !ok || d.Before(from) {
			return false
		}
	}
	if to, ok := parseDate(f.DateTo); ok {
		d, ok := parseDate(r.Date)
		if !ok || d.After(to) {
			return false
		}
	}
	if f.Province != "" && r.Province != f.Province {
		return false
	}
	if f.Location != "" && !containsFold(location, strings.ToLower(f.Location)) {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.AssignedMember != "" && r.AssignedMember != f.AssignedMember {
		return false
	}
	return true
}

// Apply returns the rows matching f, keeping their order
func (f Filter) Apply(rows []Row) []Row {
	if f.IsZero() {
		return append(make([]Row, 0, len(rows)), rows...)
	}
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

func containsFold(s, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(s), lowerTerm)
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

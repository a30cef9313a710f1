package listing

// PageSize is the number of rows per page
const PageSize = 12

// maxPageButtons is the width of the page button window
const maxPageButtons = 5

// Page is one page of a filtered listing
type Page struct {
	Items      []Row `json:"items"`
	Page       int   `json:"page"`
	TotalPages int   `json:"totalPages"`
	Total      int   `json:"total"`
	Buttons    []int `json:"pages"`
}

// View is a listing with its current filter and page. Changing the filter
// recomputes the filtered rows and goes back to the first page.
type View struct {
	all      []Row
	filter   Filter
	filtered []Row
	page     int
}

// NewView starts a view over rows with no filter on page 1
func NewView(rows []Row) *View {
	v := &View{all: rows}
	v.SetFilter(Filter{})
	return v
}

// SetFilter replaces the filter and resets to page 1
func (v *View) SetFilter(f Filter) {
	v.filter = f
	v.filtered = f.Apply(v.all)
	v.page = 1
}

// Filter returns the active filter
func (v *View) Filter() Filter {
	return v.filter
}

// Filtered returns every row passing the filter
func (v *View) Filtered() []Row {
	return v.filtered
}

// SetPage moves to page n, clamped to the available pages
func (v *View) SetPage(n int) {
	total := TotalPages(len(v.filtered), PageSize)
	switch {
	case n < 1:
		n = 1
	case total > 0 && n > total:
		n = total
	case total == 0:
		n = 1
	}
	v.page = n
}

// Current returns the current page
func (v *View) Current() Page {
	total := TotalPages(len(v.filtered), PageSize)
	return Page{
		Items:      Paginate(v.filtered, v.page, PageSize),
		Page:       v.page,
		TotalPages: total,
		Total:      len(v.filtered),
		Buttons:    PageButtons(v.page, total),
	}
}

// TotalPages is ceil(n/size)
func TotalPages(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}

// Paginate returns the 1-based page of rows. Out of range pages are empty.
func Paginate(rows []Row, page, size int) []Row {
	if page < 1 || size <= 0 {
		return []Row{}
	}
	start := (page - 1) * size
	if start >= len(rows) {
		return []Row{}
	}
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

// PageButtons returns the page numbers to offer: all of them when there are
// at most five, otherwise a window of five centered on current and clamped
// to the first or last page.
func PageButtons(current, total int) []int {
	if total <= 0 {
		return []int{}
	}
	if total <= maxPageButtons {
		out := make([]int, total)
		for i := range out {
			out[i] = i + 1
		}
		return out
	}
	start := current - maxPageButtons/2
	if start < 1 {
		start = 1
	}
	if start+maxPageButtons-1 > total {
		start = total - maxPageButtons + 1
	}
	out := make([]int, maxPageButtons)
	for i := range out {
		out[i] = start + i
	}
	return out
}

package domain

import (
	"strings"
	"time"
)

// ItemKind discriminates the two calendar item variants. Values match the
// iCalendar component names so they can be used directly in CalDAV filters.
type ItemKind string

const (
	KindEvent ItemKind = "VEVENT"
	KindTodo  ItemKind = "VTODO"
)

// TodoStatus is the completion status of a todo.
type TodoStatus string

const (
	StatusNotStarted TodoStatus = "not-started"
	StatusInProgress TodoStatus = "in-progress"
	StatusCompleted  TodoStatus = "completed"
	StatusCancelled  TodoStatus = "cancelled"
)

// WireStatus returns the iCalendar STATUS value for s.
func (s TodoStatus) WireStatus() string {
	switch s {
	case StatusInProgress:
		return "IN-PROCESS"
	case StatusCompleted:
		return "COMPLETED"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return "NEEDS-ACTION"
	}
}

// ParseTodoStatus maps a wire status to a TodoStatus. Provider dialects
// vary; anything unrecognized maps to not-started rather than failing.
func ParseTodoStatus(wire string) TodoStatus {
	switch strings.ToUpper(strings.TrimSpace(wire)) {
	case "IN-PROCESS", "IN-PROGRESS":
		return StatusInProgress
	case "COMPLETED":
		return StatusCompleted
	case "CANCELLED", "CANCELED":
		return StatusCancelled
	default:
		return StatusNotStarted
	}
}

// Item is a calendar item: an event or a todo, depending on Kind. Items are
// transient value objects; every operation round-trips to the server.
type Item struct {
	Kind        ItemKind  `json:"kind"`
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`

	// Start is the UTC start instant. For all-day items it is local
	// midnight of the calendar date and carries no time-of-day.
	Start  time.Time `json:"start,omitempty"`
	End    time.Time `json:"end,omitempty"`
	AllDay bool      `json:"all_day,omitempty"`
	RRule  string    `json:"rrule,omitempty"`

	// Todo-only fields.
	Due      *time.Time `json:"due,omitempty"`
	Status   TodoStatus `json:"status,omitempty"`
	Percent  int        `json:"percent,omitempty"`
	Priority int        `json:"priority,omitempty"`

	// Calendar is the path of the owning collection.
	Calendar   string    `json:"calendar,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
}

// NormalizeStatus enforces the percentage/status invariant: 100 percent
// implies completed. The reverse is not forced; status may be set
// independently of percentage.
func (it *Item) NormalizeStatus() {
	if it.Kind != KindTodo {
		return
	}
	if it.Status == "" {
		it.Status = StatusNotStarted
	}
	if it.Percent == 100 {
		it.Status = StatusCompleted
	}
}

// Collection is one calendar on the server. Collections are discovered,
// never created, by this core.
type Collection struct {
	Path                string   `json:"path"`
	DisplayName         string   `json:"display_name"`
	Description         string   `json:"description,omitempty"`
	SupportedComponents []string `json:"supported_components,omitempty"`
}

// Supports reports whether the collection advertises support for the given
// component kind. An empty supported-component set means the server did not
// declare one; treat that as supporting everything.
func (c Collection) Supports(kind ItemKind) bool {
	if len(c.SupportedComponents) == 0 {
		return true
	}
	for _, comp := range c.SupportedComponents {
		if strings.EqualFold(comp, string(kind)) {
			return true
		}
	}
	return false
}

// SearchQuery filters calendar items by kind, a closed time range
// (inclusive start, exclusive end), target calendars and free text.
type SearchQuery struct {
	// Kind restricts results to events or todos. Empty means both.
	Kind ItemKind `json:"kind,omitempty"`

	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`

	// Calendars lists target calendar references. Empty means all
	// accessible collections.
	Calendars []string `json:"calendars,omitempty"`

	// Text matches case-insensitively against summary and description.
	Text string `json:"text,omitempty"`

	// Status filters todos by completion status. Empty means any.
	Status TodoStatus `json:"status,omitempty"`

	// Limit caps the number of returned items; zero means no cap.
	Limit int `json:"limit,omitempty"`
}

// Matches applies the client-side portion of the query (free text and todo
// status) to a decoded item.
func (q *SearchQuery) Matches(it *Item) bool {
	if q.Kind != "" && it.Kind != q.Kind {
		return false
	}
	if q.Status != "" && it.Kind == KindTodo && it.Status != q.Status {
		return false
	}
	if q.Text != "" {
		needle := strings.ToLower(q.Text)
		if !strings.Contains(strings.ToLower(it.Summary), needle) &&
			!strings.Contains(strings.ToLower(it.Description), needle) {
			return false
		}
	}
	return true
}

// CollectionFailure records a per-collection search failure. Failures never
// abort sibling collections; they travel alongside the partial result set.
type CollectionFailure struct {
	Calendar string    `json:"calendar"`
	Kind     ErrorKind `json:"error_kind"`
	Message  string    `json:"error"`
}

// SearchResult is the outcome of a fan-out search: the merged items in
// collection order plus any per-collection failures.
type SearchResult struct {
	Items    []*Item             `json:"items"`
	Failures []CollectionFailure `json:"failures,omitempty"`
}

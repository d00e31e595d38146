package domain

// BatchAction names the mutation an entry performs.
type BatchAction string

const (
	ActionCreate BatchAction = "create"
	ActionUpdate BatchAction = "update"
	ActionDelete BatchAction = "delete"
)

// ItemInput is the loosely-typed input shape shared by the single-item
// façade operations and batch entries. Date and time fields are temporal
// expressions ("tomorrow", "1400") resolved by the normalizer; empty fields
// on update mean "leave unchanged".
type ItemInput struct {
	Kind        ItemKind `json:"kind"`
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`

	Date string `json:"date,omitempty"`
	Time string `json:"time,omitempty"`

	// EndDate/EndTime bound an event; when absent the configured default
	// duration applies.
	EndDate string `json:"end_date,omitempty"`
	EndTime string `json:"end_time,omitempty"`

	// DurationMinutes overrides the default event duration.
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	RRule           string `json:"rrule,omitempty"`

	// Todo-only fields. DueDate/DueTime resolve like Date/Time.
	DueDate  string `json:"due_date,omitempty"`
	DueTime  string `json:"due_time,omitempty"`
	Status   string `json:"status,omitempty"`
	Percent  *int   `json:"percent,omitempty"`
	Priority int    `json:"priority,omitempty"`
}

// BatchEntry is one requested mutation, tagged with a caller-supplied
// correlation token.
type BatchEntry struct {
	Token    string      `json:"token,omitempty"`
	Action   BatchAction `json:"action"`
	Calendar string      `json:"calendar"`

	// UID identifies the target for update and delete.
	UID string `json:"uid,omitempty"`

	// Item carries the payload for create and update.
	Item ItemInput `json:"item,omitempty"`
}

// BatchRequest is an ordered sequence of independent mutations.
type BatchRequest struct {
	Entries []BatchEntry `json:"entries"`
}

// BatchOutcome is the result of one entry, index-aligned with the request.
type BatchOutcome struct {
	Token   string    `json:"token,omitempty"`
	OK      bool      `json:"ok"`
	Item    *Item     `json:"item,omitempty"`
	Kind    ErrorKind `json:"error_kind,omitempty"`
	Message string    `json:"error,omitempty"`
}

// BatchResult holds exactly one outcome per request entry, in request
// order, regardless of how many entries failed.
type BatchResult struct {
	Outcomes  []BatchOutcome `json:"outcomes"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
}

// FailureOutcome builds a failed outcome from a typed error.
func FailureOutcome(token string, err error) BatchOutcome {
	return BatchOutcome{
		Token:   token,
		Kind:    KindOf(err),
		Message: err.Error(),
	}
}

package mcp

import (
	"context"
	"encoding/json"

	"github.com/NeoPrint3D/caldav-mcp/internal/domain"
	"github.com/NeoPrint3D/caldav-mcp/internal/service"
)

// itemArgs is the argument shape shared by the create and update tools.
type itemArgs struct {
	Calendar string `json:"calendar"`
	UID      string `json:"uid,omitempty"`
	domain.ItemInput
}

type refArgs struct {
	Calendar string `json:"calendar"`
	UID      string `json:"uid,omitempty"`
}

type listArgs struct {
	Calendar  string `json:"calendar,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Status    string `json:"status,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

func (s *Server) dispatch(ctx context.Context, name string, args json.RawMessage) (string, error) {
	switch name {
	case "list_calendars":
		cols, err := s.svc.ListCalendars(ctx)
		if err != nil {
			return "", err
		}
		return marshalResult(cols)

	case "refresh_calendars":
		cols, err := s.svc.RefreshCalendars(ctx)
		if err != nil {
			return "", err
		}
		return marshalResult(cols)

	case "get_calendar_info":
		var a refArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		info, err := s.svc.GetCalendarInfo(ctx, a.Calendar)
		if err != nil {
			return "", err
		}
		return marshalResult(info)

	case "create_event", "create_todo":
		var a itemArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		var item *domain.Item
		var err error
		if name == "create_event" {
			item, err = s.svc.CreateEvent(ctx, a.Calendar, a.ItemInput)
		} else {
			item, err = s.svc.CreateTodo(ctx, a.Calendar, a.ItemInput)
		}
		if err != nil {
			return "", err
		}
		return marshalResult(item)

	case "get_event", "get_todo":
		var a refArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		var item *domain.Item
		var err error
		if name == "get_event" {
			item, err = s.svc.GetEvent(ctx, a.Calendar, a.UID)
		} else {
			item, err = s.svc.GetTodo(ctx, a.Calendar, a.UID)
		}
		if err != nil {
			return "", err
		}
		return marshalResult(item)

	case "update_event", "update_todo":
		var a itemArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		var item *domain.Item
		var err error
		if name == "update_event" {
			item, err = s.svc.UpdateEvent(ctx, a.Calendar, a.UID, a.ItemInput)
		} else {
			item, err = s.svc.UpdateTodo(ctx, a.Calendar, a.UID, a.ItemInput)
		}
		if err != nil {
			return "", err
		}
		return marshalResult(item)

	case "complete_todo":
		var a refArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		item, err := s.svc.CompleteTodo(ctx, a.Calendar, a.UID)
		if err != nil {
			return "", err
		}
		return marshalResult(item)

	case "delete_event", "delete_todo":
		var a refArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		if err := s.svc.Delete(ctx, a.Calendar, a.UID); err != nil {
			return "", err
		}
		return marshalResult(map[string]string{"deleted": a.UID})

	case "list_events", "list_todos":
		var a listArgs
		if err := decodeArgs(args, &a); err != nil {
			return "", err
		}
		req := service.SearchRequest{
			StartDate: a.StartDate,
			EndDate:   a.EndDate,
			Status:    a.Status,
			Limit:     a.Limit,
		}
		if name == "list_events" {
			req.Kind = "event"
		} else {
			req.Kind = "todo"
		}
		if a.Calendar != "" {
			req.Calendars = []string{a.Calendar}
		}
		result, err := s.svc.Search(ctx, req)
		if err != nil {
			return "", err
		}
		return marshalResult(result)

	case "search":
		var req service.SearchRequest
		if err := decodeArgs(args, &req); err != nil {
			return "", err
		}
		result, err := s.svc.Search(ctx, req)
		if err != nil {
			return "", err
		}
		return marshalResult(result)

	case "batch":
		var req domain.BatchRequest
		if err := decodeArgs(args, &req); err != nil {
			return "", err
		}
		return marshalResult(s.svc.ExecuteBatch(ctx, &req))

	default:
		return "", domain.Errorf(domain.ErrNotFound, "unknown tool %q", name)
	}
}

func decodeArgs(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return domain.WrapError(domain.ErrMalformedObject, err, "invalid tool arguments")
	}
	return nil
}

func toolList() []Tool {
	calendarProp := Property{Type: "string", Description: "Calendar display name or path"}
	uidProp := Property{Type: "string", Description: "Unique identifier of the object"}
	dateProp := Property{Type: "string", Description: "Date: YYYY-MM-DD, MM/DD/YYYY, 'today', 'tomorrow', 'next week' or a weekday name"}
	timeProp := Property{Type: "string", Description: "Time of day: 24-hour HH:MM, 4-digit military (e.g. 1400) or informal (2:30 PM). Omit for an all-day item"}
	statusEnum := []string{"not-started", "in-progress", "completed", "cancelled"}

	eventProps := map[string]Property{
		"calendar":         calendarProp,
		"summary":          {Type: "string", Description: "Title of the event"},
		"description":      {Type: "string", Description: "Description of the event"},
		"location":         {Type: "string", Description: "Location of the event"},
		"date":             dateProp,
		"time":             timeProp,
		"end_date":         {Type: "string", Description: "End date; defaults to the start date"},
		"end_time":         {Type: "string", Description: "End time of day"},
		"duration_minutes": {Type: "number", Description: "Duration in minutes when no end time is given"},
		"rrule":            {Type: "string", Description: "Recurrence rule, e.g. FREQ=WEEKLY;BYDAY=MO"},
	}

	todoProps := map[string]Property{
		"calendar":    calendarProp,
		"summary":     {Type: "string", Description: "Title of the todo"},
		"description": {Type: "string", Description: "Description of the todo"},
		"due_date":    {Type: "string", Description: "Due date expression (optional)"},
		"due_time":    {Type: "string", Description: "Due time of day (optional)"},
		"status":      {Type: "string", Description: "Completion status", Enum: statusEnum},
		"percent":     {Type: "number", Description: "Completion percentage 0-100"},
		"priority":    {Type: "number", Description: "Priority, 1 (highest) to 9 (lowest)"},
	}

	withUID := func(props map[string]Property) map[string]Property {
		out := map[string]Property{"uid": uidProp}
		for k, v := range props {
			out[k] = v
		}
		return out
	}

	return []Tool{
		{
			Name:        "list_calendars",
			Description: "List all calendars with their supported component types (events, todos or both).",
			InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
		},
		{
			Name:        "refresh_calendars",
			Description: "Re-discover calendars from the server and refresh the cached list.",
			InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
		},
		{
			Name:        "get_calendar_info",
			Description: "Get detailed information about one calendar: capabilities and current item counts.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"calendar": calendarProp},
				Required:   []string{"calendar"},
			},
		},
		{
			Name:        "create_event",
			Description: "Create a new calendar event. Times are interpreted in the configured local timezone and stored in UTC.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: eventProps,
				Required:   []string{"calendar", "summary", "date"},
			},
		},
		{
			Name:        "get_event",
			Description: "Read one event by its unique identifier.",
			InputSchema: refSchema(calendarProp, uidProp),
		},
		{
			Name:        "update_event",
			Description: "Update an existing event. Only the supplied fields change.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: withUID(eventProps),
				Required:   []string{"calendar", "uid"},
			},
		},
		{
			Name:        "delete_event",
			Description: "Delete an event by its unique identifier.",
			InputSchema: refSchema(calendarProp, uidProp),
		},
		{
			Name:        "list_events",
			Description: "List events from one calendar or all calendars within a date range.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"calendar":   {Type: "string", Description: "Calendar to list from (optional: all calendars if omitted)"},
					"start_date": {Type: "string", Description: "Range start date expression"},
					"end_date":   {Type: "string", Description: "Range end date expression (inclusive)"},
					"limit":      {Type: "number", Description: "Maximum number of events to return"},
				},
			},
		},
		{
			Name:        "create_todo",
			Description: "Create a new todo.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: todoProps,
				Required:   []string{"calendar", "summary"},
			},
		},
		{
			Name:        "get_todo",
			Description: "Read one todo by its unique identifier.",
			InputSchema: refSchema(calendarProp, uidProp),
		},
		{
			Name:        "update_todo",
			Description: "Update an existing todo. Only the supplied fields change.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: withUID(todoProps),
				Required:   []string{"calendar", "uid"},
			},
		},
		{
			Name:        "complete_todo",
			Description: "Mark a todo as completed (status completed, 100 percent).",
			InputSchema: refSchema(calendarProp, uidProp),
		},
		{
			Name:        "delete_todo",
			Description: "Delete a todo by its unique identifier.",
			InputSchema: refSchema(calendarProp, uidProp),
		},
		{
			Name:        "list_todos",
			Description: "List todos from one calendar or all calendars, optionally filtered by status.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"calendar": {Type: "string", Description: "Calendar to list from (optional: all calendars if omitted)"},
					"status":   {Type: "string", Description: "Filter by completion status", Enum: statusEnum},
					"limit":    {Type: "number", Description: "Maximum number of todos to return"},
				},
			},
		},
		{
			Name:        "search",
			Description: "Search events and todos across calendars by free text and date range. Per-calendar failures are reported alongside partial results.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"text":       {Type: "string", Description: "Text matched against titles and descriptions"},
					"kind":       {Type: "string", Description: "Restrict to one item kind", Enum: []string{"event", "todo", "any"}},
					"calendars":  {Type: "array", Description: "Target calendars (all accessible if omitted)", Items: &Property{Type: "string"}},
					"start_date": {Type: "string", Description: "Range start date expression"},
					"end_date":   {Type: "string", Description: "Range end date expression (inclusive)"},
					"status":     {Type: "string", Description: "Todo status filter", Enum: statusEnum},
					"limit":      {Type: "number", Description: "Maximum number of items to return"},
				},
			},
		},
		{
			Name:        "batch",
			Description: "Execute an ordered batch of create/update/delete requests. Entries are independent; every entry yields exactly one outcome and failures never abort the rest.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"entries": {
						Type:        "array",
						Description: "Batch entries: {token, action (create|update|delete), calendar, uid, item}",
						Items:       &Property{Type: "object", Description: "One mutation request"},
					},
				},
				Required: []string{"entries"},
			},
		},
	}
}

func refSchema(calendarProp, uidProp Property) InputSchema {
	return InputSchema{
		Type:       "object",
		Properties: map[string]Property{"calendar": calendarProp, "uid": uidProp},
		Required:   []string{"calendar", "uid"},
	}
}

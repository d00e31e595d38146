// Package service is the tool operation façade: the externally-callable
// set of named calendar and todo operations consumed by the MCP transport.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/NeoPrint3D/caldav-mcp/internal/batch"
	"github.com/NeoPrint3D/caldav-mcp/internal/domain"
	"github.com/NeoPrint3D/caldav-mcp/internal/router"
	"github.com/NeoPrint3D/caldav-mcp/internal/temporal"
)

// DefaultEventDuration applies when an event is created without an end
// time or explicit duration.
const DefaultEventDuration = 30 * time.Minute

// CalendarService composes the normalizer, router and batch executor into
// the façade contract. It holds no mutable state of its own and is safe to
// invoke concurrently for independent requests.
type CalendarService struct {
	router          *router.Router
	norm            *temporal.Normalizer
	executor        *batch.Executor
	defaultDuration time.Duration

	// now is injected so relative dates ("tomorrow") are reproducible in
	// tests; it is never read from the system clock directly.
	now    func() time.Time
	newUID func() string
}

// NewCalendarService creates the façade. batchLimit bounds concurrent batch
// entry dispatch.
func NewCalendarService(r *router.Router, norm *temporal.Normalizer, defaultDuration time.Duration, batchLimit int) *CalendarService {
	if defaultDuration <= 0 {
		defaultDuration = DefaultEventDuration
	}
	s := &CalendarService{
		router:          r,
		norm:            norm,
		defaultDuration: defaultDuration,
		now:             time.Now,
		newUID:          func() string { return uuid.NewString() + "@caldav-mcp" },
	}
	s.executor = batch.New(s, batchLimit)
	return s
}

// SetClock overrides the injected clock. Intended for tests.
func (s *CalendarService) SetClock(now func() time.Time) {
	s.now = now
}

// SetUIDSource overrides UID generation. Intended for tests.
func (s *CalendarService) SetUIDSource(newUID func() string) {
	s.newUID = newUID
}

// ListCalendars returns the cached collection set.
func (s *CalendarService) ListCalendars(ctx context.Context) ([]domain.Collection, error) {
	return s.router.Collections(ctx)
}

// RefreshCalendars re-discovers collections from the server.
func (s *CalendarService) RefreshCalendars(ctx context.Context) ([]domain.Collection, error) {
	if err := s.router.Refresh(ctx); err != nil {
		return nil, err
	}
	return s.router.Collections(ctx)
}

// CalendarInfo describes one collection, including live item counts.
type CalendarInfo struct {
	domain.Collection
	SupportsEvents bool `json:"supports_events"`
	SupportsTodos  bool `json:"supports_todos"`
	EventCount     int  `json:"event_count"`
	TodoCount      int  `json:"todo_count"`
}

// GetCalendarInfo resolves a calendar reference and reports its
// capabilities and current item counts.
func (s *CalendarService) GetCalendarInfo(ctx context.Context, ref string) (*CalendarInfo, error) {
	col, err := s.router.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	info := &CalendarInfo{
		Collection:     col,
		SupportsEvents: col.Supports(domain.KindEvent),
		SupportsTodos:  col.Supports(domain.KindTodo),
	}

	store := s.router.Open(col)
	if info.SupportsEvents {
		items, err := store.Query(ctx, &domain.SearchQuery{Kind: domain.KindEvent})
		if err != nil {
			return nil, err
		}
		info.EventCount = len(items)
	}
	if info.SupportsTodos {
		items, err := store.Query(ctx, &domain.SearchQuery{Kind: domain.KindTodo})
		if err != nil {
			return nil, err
		}
		info.TodoCount = len(items)
	}
	return info, nil
}

// CreateEvent creates an event from a loosely-typed input.
func (s *CalendarService) CreateEvent(ctx context.Context, calendar string, in domain.ItemInput) (*domain.Item, error) {
	in.Kind = domain.KindEvent
	return s.Create(ctx, calendar, in)
}

// CreateTodo creates a todo from a loosely-typed input.
func (s *CalendarService) CreateTodo(ctx context.Context, calendar string, in domain.ItemInput) (*domain.Item, error) {
	in.Kind = domain.KindTodo
	return s.Create(ctx, calendar, in)
}

// Create builds, validates and stores a new item. All temporal expressions
// are resolved before any network call; validation failures surface
// immediately and are never retried.
func (s *CalendarService) Create(ctx context.Context, calendar string, in domain.ItemInput) (*domain.Item, error) {
	item, err := s.buildItem(in)
	if err != nil {
		return nil, err
	}
	item.UID = s.newUID()

	col, err := s.router.Resolve(ctx, calendar)
	if err != nil {
		return nil, err
	}
	if !col.Supports(item.Kind) {
		return nil, domain.Errorf(domain.ErrMalformedObject,
			"calendar %q does not support %s components", col.DisplayName, item.Kind)
	}
	return s.router.Open(col).Create(ctx, item)
}

// GetEvent reads one event by UID.
func (s *CalendarService) GetEvent(ctx context.Context, calendar, uid string) (*domain.Item, error) {
	return s.get(ctx, calendar, uid, domain.KindEvent)
}

// GetTodo reads one todo by UID.
func (s *CalendarService) GetTodo(ctx context.Context, calendar, uid string) (*domain.Item, error) {
	return s.get(ctx, calendar, uid, domain.KindTodo)
}

func (s *CalendarService) get(ctx context.Context, calendar, uid string, kind domain.ItemKind) (*domain.Item, error) {
	col, err := s.router.Resolve(ctx, calendar)
	if err != nil {
		return nil, err
	}
	item, err := s.router.Open(col).Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if kind != "" && item.Kind != kind {
		return nil, domain.Errorf(domain.ErrNotFound,
			"object %s in %q is not a %s", uid, calendar, kind)
	}
	return item, nil
}

// Update merges non-empty input fields into the stored item and writes it
// back. Empty fields are left unchanged.
func (s *CalendarService) Update(ctx context.Context, calendar, uid string, in domain.ItemInput) (*domain.Item, error) {
	col, err := s.router.Resolve(ctx, calendar)
	if err != nil {
		return nil, err
	}
	store := s.router.Open(col)

	existing, err := store.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if in.Kind != "" && existing.Kind != in.Kind {
		return nil, domain.Errorf(domain.ErrNotFound,
			"object %s in %q is not a %s", uid, calendar, in.Kind)
	}

	if err := s.mergeInput(existing, in); err != nil {
		return nil, err
	}
	return store.Update(ctx, uid, existing)
}

// UpdateEvent updates an event; non-empty input fields replace the stored
// ones.
func (s *CalendarService) UpdateEvent(ctx context.Context, calendar, uid string, in domain.ItemInput) (*domain.Item, error) {
	in.Kind = domain.KindEvent
	return s.Update(ctx, calendar, uid, in)
}

// UpdateTodo updates a todo; non-empty input fields replace the stored
// ones.
func (s *CalendarService) UpdateTodo(ctx context.Context, calendar, uid string, in domain.ItemInput) (*domain.Item, error) {
	in.Kind = domain.KindTodo
	return s.Update(ctx, calendar, uid, in)
}

// CompleteTodo marks a todo completed at 100 percent.
func (s *CalendarService) CompleteTodo(ctx context.Context, calendar, uid string) (*domain.Item, error) {
	pct := 100
	return s.UpdateTodo(ctx, calendar, uid, domain.ItemInput{
		Kind:    domain.KindTodo,
		Status:  string(domain.StatusCompleted),
		Percent: &pct,
	})
}

// Delete removes an item by UID.
func (s *CalendarService) Delete(ctx context.Context, calendar, uid string) error {
	col, err := s.router.Resolve(ctx, calendar)
	if err != nil {
		return err
	}
	return s.router.Open(col).Delete(ctx, uid)
}

// SearchRequest is the structured search input. Date fields are temporal
// expressions; the range is inclusive of the end date.
type SearchRequest struct {
	Kind      string   `json:"kind,omitempty"`
	Text      string   `json:"text,omitempty"`
	Calendars []string `json:"calendars,omitempty"`
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
	Status    string   `json:"status,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

// Search fans a query out across the target calendars. Per-calendar
// failures are reported alongside the partial result set, never silently
// dropped.
func (s *CalendarService) Search(ctx context.Context, req SearchRequest) (*domain.SearchResult, error) {
	q := &domain.SearchQuery{
		Text:      req.Text,
		Calendars: req.Calendars,
		Limit:     req.Limit,
	}
	switch req.Kind {
	case "", "any":
	case "event", string(domain.KindEvent):
		q.Kind = domain.KindEvent
	case "todo", string(domain.KindTodo):
		q.Kind = domain.KindTodo
	default:
		return nil, domain.Errorf(domain.ErrMalformedObject,
			"unknown item kind %q", req.Kind)
	}
	if req.Status != "" {
		q.Status = domain.ParseTodoStatus(req.Status)
	}

	now := s.now()
	if req.StartDate != "" {
		resolved, err := s.norm.Resolve(now, req.StartDate, "")
		if err != nil {
			return nil, err
		}
		q.Start = resolved.Start
	}
	if req.EndDate != "" {
		resolved, err := s.norm.Resolve(now, req.EndDate, "")
		if err != nil {
			return nil, err
		}
		// The range is inclusive of the named end date; the wire
		// protocol's range end is exclusive.
		q.End = resolved.Start.AddDate(0, 0, 1)
	}

	return s.router.FanOutSearch(ctx, q)
}

// ExecuteBatch runs a batch of independent mutations through the façade's
// single-item operations.
func (s *CalendarService) ExecuteBatch(ctx context.Context, req *domain.BatchRequest) *domain.BatchResult {
	return s.executor.Execute(ctx, req)
}

// buildItem resolves an input into a fully-populated new item.
func (s *CalendarService) buildItem(in domain.ItemInput) (*domain.Item, error) {
	if in.Summary == "" {
		return nil, domain.Errorf(domain.ErrMalformedObject, "summary is required")
	}

	item := &domain.Item{
		Kind:        in.Kind,
		Summary:     in.Summary,
		Description: in.Description,
		Location:    in.Location,
		RRule:       in.RRule,
		Priority:    in.Priority,
	}
	now := s.now()

	switch in.Kind {
	case domain.KindTodo:
		item.Status = domain.ParseTodoStatus(in.Status)
		if in.Status == "" {
			item.Status = domain.StatusNotStarted
		}
		if in.Percent != nil {
			if *in.Percent < 0 || *in.Percent > 100 {
				return nil, domain.Errorf(domain.ErrMalformedObject,
					"percent must be between 0 and 100, got %d", *in.Percent)
			}
			item.Percent = *in.Percent
		}
		if in.DueDate != "" {
			resolved, err := s.norm.Resolve(now, in.DueDate, in.DueTime)
			if err != nil {
				return nil, err
			}
			due := resolved.Start
			item.Due = &due
		}
		item.NormalizeStatus()

	default:
		item.Kind = domain.KindEvent
		if in.Date == "" {
			return nil, domain.Errorf(domain.ErrInvalidTimeFormat,
				"events require a date")
		}
		resolved, err := s.norm.Resolve(now, in.Date, in.Time)
		if err != nil {
			return nil, err
		}
		item.Start = resolved.Start
		item.AllDay = resolved.AllDay

		end, err := s.resolveEnd(now, in, resolved)
		if err != nil {
			return nil, err
		}
		item.End = end
	}

	return item, nil
}

// resolveEnd determines an event's end instant: an explicit end date/time
// wins, then an explicit duration, then the configured default. All-day
// events carry no end unless one is given.
func (s *CalendarService) resolveEnd(now time.Time, in domain.ItemInput, start temporal.Resolved) (time.Time, error) {
	if in.EndDate != "" || in.EndTime != "" {
		endDate := in.EndDate
		if endDate == "" {
			endDate = in.Date
		}
		resolved, err := s.norm.Resolve(now, endDate, in.EndTime)
		if err != nil {
			return time.Time{}, err
		}
		if !start.AllDay && resolved.Start.Before(start.Start) {
			return time.Time{}, domain.Errorf(domain.ErrInvalidTimeFormat,
				"event ends before it starts")
		}
		return resolved.Start, nil
	}

	if in.DurationMinutes > 0 {
		return start.Start.Add(time.Duration(in.DurationMinutes) * time.Minute), nil
	}
	if start.AllDay {
		return time.Time{}, nil
	}
	return start.Start.Add(s.defaultDuration), nil
}

// mergeInput applies non-empty input fields onto an existing item,
// re-resolving temporal expressions where present.
func (s *CalendarService) mergeInput(item *domain.Item, in domain.ItemInput) error {
	if in.Summary != "" {
		item.Summary = in.Summary
	}
	if in.Description != "" {
		item.Description = in.Description
	}
	if in.Location != "" {
		item.Location = in.Location
	}
	if in.RRule != "" {
		item.RRule = in.RRule
	}
	if in.Priority != 0 {
		item.Priority = in.Priority
	}
	now := s.now()

	if item.Kind == domain.KindTodo {
		if in.Status != "" {
			item.Status = domain.ParseTodoStatus(in.Status)
		}
		if in.Percent != nil {
			if *in.Percent < 0 || *in.Percent > 100 {
				return domain.Errorf(domain.ErrMalformedObject,
					"percent must be between 0 and 100, got %d", *in.Percent)
			}
			item.Percent = *in.Percent
		}
		if in.DueDate != "" {
			resolved, err := s.norm.Resolve(now, in.DueDate, in.DueTime)
			if err != nil {
				return err
			}
			due := resolved.Start
			item.Due = &due
		}
		item.NormalizeStatus()
		return nil
	}

	if in.Date != "" || in.Time != "" {
		date := in.Date
		if date == "" {
			// Keep the stored calendar date, replace the time-of-day.
			date = item.Start.In(s.norm.Location()).Format("2006-01-02")
			if item.AllDay {
				date = item.Start.Format("2006-01-02")
			}
		}
		resolved, err := s.norm.Resolve(now, date, in.Time)
		if err != nil {
			return err
		}
		item.Start = resolved.Start
		item.AllDay = resolved.AllDay
	}
	if in.EndDate != "" || in.EndTime != "" || in.DurationMinutes > 0 {
		end, err := s.resolveEnd(now, in, temporal.Resolved{Start: item.Start, AllDay: item.AllDay})
		if err != nil {
			return err
		}
		item.End = end
	}
	return nil
}

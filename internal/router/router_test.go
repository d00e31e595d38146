package router

import (
	"context"
	"testing"

	"github.com/NeoPrint3D/caldav-mcp/internal/domain"
)

type fakeStore struct {
	items []*domain.Item
	err   error
}

func (f *fakeStore) Create(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	return item, f.err
}

func (f *fakeStore) Get(ctx context.Context, uid string) (*domain.Item, error) {
	for _, it := range f.items {
		if it.UID == uid {
			return it, nil
		}
	}
	return nil, domain.Errorf(domain.ErrNotFound, "no item %q", uid)
}

func (f *fakeStore) Update(ctx context.Context, uid string, item *domain.Item) (*domain.Item, error) {
	return item, f.err
}

func (f *fakeStore) Delete(ctx context.Context, uid string) error { return f.err }

func (f *fakeStore) Query(ctx context.Context, q *domain.SearchQuery) ([]*domain.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Item
	for _, it := range f.items {
		if q.Matches(it) {
			out = append(out, it)
		}
	}
	return out, nil
}

type fakeConnector struct {
	collections []domain.Collection
	stores      map[string]*fakeStore
	discoverErr error
	discoveries int
}

func (f *fakeConnector) DiscoverCollections(ctx context.Context) ([]domain.Collection, error) {
	f.discoveries++
	if f.discoverErr != nil {
		return nil, f.discoverErr
	}
	return f.collections, nil
}

func (f *fakeConnector) Open(col domain.Collection) Store {
	if s, ok := f.stores[col.Path]; ok {
		return s
	}
	return &fakeStore{}
}

func testConnector() *fakeConnector {
	return &fakeConnector{
		collections: []domain.Collection{
			{Path: "/calendars/u/work/", DisplayName: "Work"},
			{Path: "/calendars/u/home/", DisplayName: "Home"},
			{Path: "/calendars/u/shared-home/", DisplayName: "Home"},
			{Path: "/calendars/u/tasks/", DisplayName: "Tasks", SupportedComponents: []string{"VTODO"}},
		},
		stores: map[string]*fakeStore{},
	}
}

func TestResolveByPath(t *testing.T) {
	r := New(testConnector(), 2)

	col, err := r.Resolve(context.Background(), "/calendars/u/work/")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if col.DisplayName != "Work" {
		t.Errorf("resolved %q, want Work", col.DisplayName)
	}
}

func TestResolveByDisplayName(t *testing.T) {
	r := New(testConnector(), 2)

	// Case-insensitive match on the display name.
	col, err := r.Resolve(context.Background(), "work")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if col.Path != "/calendars/u/work/" {
		t.Errorf("resolved %q, want /calendars/u/work/", col.Path)
	}
}

func TestResolveAmbiguous(t *testing.T) {
	r := New(testConnector(), 2)

	_, err := r.Resolve(context.Background(), "Home")
	if !domain.IsKind(err, domain.ErrAmbiguousCalendar) {
		t.Fatalf("error = %v, want ambiguous_calendar_reference", err)
	}
	// The path still resolves the ambiguity.
	col, err := r.Resolve(context.Background(), "/calendars/u/shared-home/")
	if err != nil {
		t.Fatalf("Resolve by path: %v", err)
	}
	if col.Path != "/calendars/u/shared-home/" {
		t.Errorf("resolved %q", col.Path)
	}
}

func TestResolveNotFound(t *testing.T) {
	r := New(testConnector(), 2)

	if _, err := r.Resolve(context.Background(), "Vacation"); !domain.IsKind(err, domain.ErrCalendarNotFound) {
		t.Errorf("error = %v, want calendar_not_found", err)
	}
}

func TestCollectionsCached(t *testing.T) {
	conn := testConnector()
	r := New(conn, 2)

	for i := 0; i < 3; i++ {
		if _, err := r.Collections(context.Background()); err != nil {
			t.Fatalf("Collections: %v", err)
		}
	}
	if conn.discoveries != 1 {
		t.Errorf("discovery ran %d times, want 1", conn.discoveries)
	}

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if conn.discoveries != 2 {
		t.Errorf("discovery after refresh ran %d times, want 2", conn.discoveries)
	}
}

func TestFanOutSearchMergesInCollectionOrder(t *testing.T) {
	conn := testConnector()
	conn.stores["/calendars/u/work/"] = &fakeStore{items: []*domain.Item{
		{Kind: domain.KindEvent, UID: "w1", Summary: "Standup", Calendar: "/calendars/u/work/"},
	}}
	conn.stores["/calendars/u/home/"] = &fakeStore{items: []*domain.Item{
		{Kind: domain.KindEvent, UID: "h1", Summary: "Dinner", Calendar: "/calendars/u/home/"},
	}}
	r := New(conn, 2)

	result, err := r.FanOutSearch(context.Background(), &domain.SearchQuery{Kind: domain.KindEvent})
	if err != nil {
		t.Fatalf("FanOutSearch: %v", err)
	}
	if len(result.Failures) != 0 {
		t.Fatalf("unexpected failures: %+v", result.Failures)
	}
	if len(result.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(result.Items))
	}
	// Work precedes Home in the discovered order, whatever order the
	// workers finished in.
	if result.Items[0].UID != "w1" || result.Items[1].UID != "h1" {
		t.Errorf("items out of collection order: %q, %q", result.Items[0].UID, result.Items[1].UID)
	}
}

func TestFanOutSearchIsolatesFailures(t *testing.T) {
	conn := testConnector()
	conn.stores["/calendars/u/work/"] = &fakeStore{items: []*domain.Item{
		{Kind: domain.KindEvent, UID: "w1", Summary: "Standup"},
	}}
	conn.stores["/calendars/u/home/"] = &fakeStore{
		err: domain.Errorf(domain.ErrTransport, "connection reset"),
	}
	r := New(conn, 2)

	result, err := r.FanOutSearch(context.Background(), &domain.SearchQuery{
		Kind:      domain.KindEvent,
		Calendars: []string{"Work", "/calendars/u/home/"},
	})
	if err != nil {
		t.Fatalf("FanOutSearch: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].UID != "w1" {
		t.Errorf("healthy collection's items lost: %+v", result.Items)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("got %d failures, want 1", len(result.Failures))
	}
	f := result.Failures[0]
	if f.Calendar != "/calendars/u/home/" || f.Kind != domain.ErrTransport {
		t.Errorf("failure = %+v", f)
	}
}

func TestFanOutSearchSkipsUnsupportedCollections(t *testing.T) {
	conn := testConnector()
	tasks := &fakeStore{items: []*domain.Item{
		{Kind: domain.KindTodo, UID: "t1", Summary: "Review"},
	}}
	conn.stores["/calendars/u/tasks/"] = tasks
	r := New(conn, 2)

	// A VEVENT search must not touch the todo-only collection.
	result, err := r.FanOutSearch(context.Background(), &domain.SearchQuery{Kind: domain.KindEvent})
	if err != nil {
		t.Fatalf("FanOutSearch: %v", err)
	}
	for _, it := range result.Items {
		if it.UID == "t1" {
			t.Error("todo-only collection included in an event search")
		}
	}
}

func TestFanOutSearchLimit(t *testing.T) {
	conn := testConnector()
	conn.stores["/calendars/u/work/"] = &fakeStore{items: []*domain.Item{
		{Kind: domain.KindEvent, UID: "w1", Summary: "A"},
		{Kind: domain.KindEvent, UID: "w2", Summary: "B"},
		{Kind: domain.KindEvent, UID: "w3", Summary: "C"},
	}}
	r := New(conn, 2)

	result, err := r.FanOutSearch(context.Background(), &domain.SearchQuery{
		Kind: domain.KindEvent, Limit: 2,
	})
	if err != nil {
		t.Fatalf("FanOutSearch: %v", err)
	}
	if len(result.Items) != 2 {
		t.Errorf("got %d items, want limit of 2", len(result.Items))
	}
}

func TestFanOutSearchUnresolvableReference(t *testing.T) {
	r := New(testConnector(), 2)

	_, err := r.FanOutSearch(context.Background(), &domain.SearchQuery{
		Calendars: []string{"Vacation"},
	})
	if !domain.IsKind(err, domain.ErrCalendarNotFound) {
		t.Errorf("error = %v, want calendar_not_found", err)
	}
}

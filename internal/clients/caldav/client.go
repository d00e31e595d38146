// Package caldav issues protocol-level operations against a CalDAV server
// and reports typed outcomes.
package caldav

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-webdav/caldav"

	"github.com/NeoPrint3D/caldav-mcp/internal/codec"
	"github.com/NeoPrint3D/caldav-mcp/internal/domain"
)

// DefaultTimeout bounds each protocol round-trip when no timeout is
// configured.
const DefaultTimeout = 30 * time.Second

// Client connects to one CalDAV server with basic-auth credentials. One
// Client is shared by every collection handle, so the lazy connection is
// guarded for concurrent first use.
type Client struct {
	baseURL  string
	username string
	password string
	timeout  time.Duration
	now      func() time.Time

	connectOnce sync.Once
	client      *caldav.Client
	connectErr  error
}

// NewClient creates a CalDAV client. The connection itself is established
// lazily on first use.
func NewClient(baseURL, username, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		timeout:  timeout,
		now:      time.Now,
	}
}

// IsConfigured returns true if the client has credentials.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.username != "" && c.password != ""
}

// connect establishes connection to the CalDAV server exactly once;
// concurrent callers share the same client.
func (c *Client) connect() (*caldav.Client, error) {
	c.connectOnce.Do(func() {
		httpClient := &http.Client{
			Transport: &basicAuthTransport{
				username: c.username,
				password: c.password,
			},
		}

		client, err := caldav.NewClient(httpClient, c.baseURL)
		if err != nil {
			c.connectErr = domain.WrapError(domain.ErrTransport, err, "connect to CalDAV server")
			return
		}
		c.client = client
	})
	return c.client, c.connectErr
}

// basicAuthTransport adds Basic Auth to HTTP requests.
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

func (c *Client) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// DiscoverCollections returns all calendars the account can reach, with
// their declared supported-component sets.
func (c *Client) DiscoverCollections(ctx context.Context) ([]domain.Collection, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.callCtx(ctx)
	defer cancel()

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, classify(err, "find principal")
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, classify(err, "find calendar home set")
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, classify(err, "find calendars")
	}

	result := make([]domain.Collection, 0, len(cals))
	for _, cal := range cals {
		result = append(result, domain.Collection{
			Path:                cal.Path,
			DisplayName:         cal.Name,
			Description:         cal.Description,
			SupportedComponents: cal.SupportedComponentSet,
		})
	}
	return result, nil
}

// Collection binds the client to a single calendar collection.
func (c *Client) Collection(col domain.Collection) *CollectionClient {
	return &CollectionClient{c: c, col: col}
}

// CollectionClient exposes create/read/update/delete/query against one
// collection. It retains no state between calls; every successful mutation
// changes server state directly.
type CollectionClient struct {
	c   *Client
	col domain.Collection
}

func (cc *CollectionClient) objectPath(uid string) string {
	path := cc.col.Path
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path + uid + ".ics"
}

// Create stores a new item. It fails with RemoteConflict when an object
// with the same UID already exists in the collection.
func (cc *CollectionClient) Create(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	client, err := cc.c.connect()
	if err != nil {
		return nil, err
	}
	if item.UID == "" {
		return nil, domain.Errorf(domain.ErrMalformedObject, "item has no UID")
	}

	callCtx, cancel := cc.c.callCtx(ctx)
	_, getErr := client.GetCalendarObject(callCtx, cc.objectPath(item.UID))
	cancel()
	if getErr == nil {
		return nil, domain.Errorf(domain.ErrRemoteConflict,
			"object %s already exists in %s", item.UID, cc.col.Path)
	}
	if classified := classify(getErr, "check for existing object"); classified.Kind != domain.ErrNotFound {
		return nil, classified
	}

	return cc.put(ctx, item)
}

// Get reads one item by UID.
func (cc *CollectionClient) Get(ctx context.Context, uid string) (*domain.Item, error) {
	client, err := cc.c.connect()
	if err != nil {
		return nil, err
	}

	ctx, cancel := cc.c.callCtx(ctx)
	defer cancel()

	obj, err := client.GetCalendarObject(ctx, cc.objectPath(uid))
	if err != nil {
		return nil, classify(err, "get object %s", uid)
	}

	item, err := codec.Decode(obj.Data)
	if err != nil {
		return nil, err
	}
	item.Calendar = cc.col.Path
	return item, nil
}

// Update replaces an existing item. It fails with NotFound when the UID is
// absent on the server; a bare PUT would happily create it instead.
func (cc *CollectionClient) Update(ctx context.Context, uid string, item *domain.Item) (*domain.Item, error) {
	existing, err := cc.Get(ctx, uid)
	if err != nil {
		return nil, err
	}

	item.UID = uid
	if item.CreatedAt.IsZero() {
		item.CreatedAt = existing.CreatedAt
	}
	return cc.put(ctx, item)
}

// Delete removes an item by UID.
func (cc *CollectionClient) Delete(ctx context.Context, uid string) error {
	client, err := cc.c.connect()
	if err != nil {
		return err
	}

	ctx, cancel := cc.c.callCtx(ctx)
	defer cancel()

	if err := client.RemoveAll(ctx, cc.objectPath(uid)); err != nil {
		return classify(err, "delete object %s", uid)
	}
	return nil
}

func (cc *CollectionClient) put(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	client, err := cc.c.connect()
	if err != nil {
		return nil, err
	}

	cal, err := codec.Encode(item, cc.c.now())
	if err != nil {
		return nil, err
	}

	ctx, cancel := cc.c.callCtx(ctx)
	defer cancel()

	if _, err := client.PutCalendarObject(ctx, cc.objectPath(item.UID), cal); err != nil {
		return nil, classify(err, "put object %s", item.UID)
	}

	stored := *item
	stored.Calendar = cc.col.Path
	stored.NormalizeStatus()
	return &stored, nil
}

// Query issues a calendar-query REPORT restricted to the collection, the
// query's component type and time range. Objects the server returns that do
// not decode are skipped; free-text and status filtering happens client
// side because server support for text-match varies by provider.
func (cc *CollectionClient) Query(ctx context.Context, q *domain.SearchQuery) ([]*domain.Item, error) {
	client, err := cc.c.connect()
	if err != nil {
		return nil, err
	}

	kinds := []domain.ItemKind{q.Kind}
	if q.Kind == "" {
		kinds = []domain.ItemKind{domain.KindEvent, domain.KindTodo}
	}

	var items []*domain.Item
	for _, kind := range kinds {
		if !cc.col.Supports(kind) {
			continue
		}

		query := &caldav.CalendarQuery{
			CompFilter: caldav.CompFilter{
				Name: "VCALENDAR",
				Comps: []caldav.CompFilter{
					{
						Name:  string(kind),
						Start: q.Start,
						End:   q.End,
					},
				},
			},
		}

		callCtx, cancel := cc.c.callCtx(ctx)
		objects, err := client.QueryCalendar(callCtx, cc.col.Path, query)
		cancel()
		if err != nil {
			return nil, classify(err, "query %s objects", kind)
		}

		for i := range objects {
			item, err := codec.Decode(objects[i].Data)
			if err != nil {
				continue // skip undecodable objects
			}
			item.Calendar = cc.col.Path
			if q.Matches(item) {
				items = append(items, item)
			}
		}
	}

	return items, nil
}

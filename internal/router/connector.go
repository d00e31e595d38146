package router

import (
	"context"

	caldavclient "github.com/NeoPrint3D/caldav-mcp/internal/clients/caldav"
	"github.com/NeoPrint3D/caldav-mcp/internal/domain"
)

// caldavConnector adapts the CalDAV client to the Connector interface.
type caldavConnector struct {
	client *caldavclient.Client
}

// NewCalDAVConnector wraps a CalDAV client for use by the Router.
func NewCalDAVConnector(client *caldavclient.Client) Connector {
	return &caldavConnector{client: client}
}

func (c *caldavConnector) DiscoverCollections(ctx context.Context) ([]domain.Collection, error) {
	return c.client.DiscoverCollections(ctx)
}

func (c *caldavConnector) Open(col domain.Collection) Store {
	return c.client.Collection(col)
}

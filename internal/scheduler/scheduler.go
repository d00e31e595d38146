// Package scheduler periodically refreshes the calendar discovery cache so
// long-running sessions pick up calendars added or removed on the server.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/NeoPrint3D/caldav-mcp/internal/router"
)

type Scheduler struct {
	cron   *cron.Cron
	router *router.Router
	spec   string
}

// New creates a scheduler that refreshes the router's collection cache on
// the given cron spec (e.g. "@every 15m").
func New(r *router.Router, spec string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		router: r,
		spec:   spec,
	}
}

// Start registers the refresh job and runs until the context is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.refresh(ctx) }); err != nil {
		return fmt.Errorf("add refresh job: %w", err)
	}

	s.cron.Start()
	log.Printf("Calendar refresh scheduled (%s)", s.spec)

	<-ctx.Done()
	return nil
}

// Stop waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) refresh(ctx context.Context) {
	if err := s.router.Refresh(ctx); err != nil {
		log.Printf("Error refreshing calendars: %v", err)
	}
}

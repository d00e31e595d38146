package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/NeoPrint3D/caldav-mcp/config"
	caldavclient "github.com/NeoPrint3D/caldav-mcp/internal/clients/caldav"
	"github.com/NeoPrint3D/caldav-mcp/internal/mcp"
	"github.com/NeoPrint3D/caldav-mcp/internal/router"
	"github.com/NeoPrint3D/caldav-mcp/internal/scheduler"
	"github.com/NeoPrint3D/caldav-mcp/internal/service"
	"github.com/NeoPrint3D/caldav-mcp/internal/temporal"
)

func main() {
	// Stdout carries the MCP protocol; all logging goes to stderr.
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.LogLevel == "debug" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	client := caldavclient.NewClient(cfg.CalDAVURL, cfg.Username, cfg.Password, cfg.RequestTimeout)
	if !client.IsConfigured() {
		log.Fatal("CalDAV credentials are not configured")
	}

	rt := router.New(router.NewCalDAVConnector(client), cfg.Concurrency)
	norm := temporal.New(cfg.Timezone)
	svc := service.NewCalendarService(rt, norm, cfg.DefaultEventDuration(), cfg.Concurrency)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(rt, cfg.RefreshCron, cfg.Timezone)
	go func() {
		if err := sched.Start(ctx); err != nil {
			log.Printf("Scheduler error: %v", err)
		}
	}()

	server := mcp.NewServer(svc, os.Stdin, os.Stdout)
	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx)
	}()

	log.Printf("caldav-mcp started (server: %s, timezone: %s)", cfg.CalDAVURL, cfg.TimezoneName)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Println("Shutting down...")
	case err := <-done:
		if err != nil {
			log.Printf("Server error: %v", err)
		}
	}

	cancel()
	sched.Stop()
	log.Println("caldav-mcp stopped")
}

// The server binary hosts the outreach engine's HTTP API: schedule
// generation, the revenue post-pass, and read-only admission checks.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/outreach-engine/internal/api"
	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/deliverability"
	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/ranking"
	"github.com/ignite/outreach-engine/internal/revenue"
	"github.com/ignite/outreach-engine/internal/schedule"
	"github.com/ignite/outreach-engine/internal/segmentation"
)

// checkPortAvailable verifies that the target port is not already in use,
// so a stale process does not silently shadow this one.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use: %v", port, err)
	}
	ln.Close()
	return nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("[Server] Failed to load config: %v", err)
	}
	logger.SetLevel(logger.LevelFromString(cfg.LogLevel))

	if err := checkPortAvailable(cfg.Server.Host, cfg.Server.Port); err != nil {
		log.Fatalf("[Server] %v", err)
	}

	generator := schedule.New()
	generator.QuietStartHour = cfg.Schedule.QuietStartHour
	generator.QuietEndHour = cfg.Schedule.QuietEndHour
	generator.SnapHour = cfg.Schedule.SnapHour
	generator.ActiveStartHour = cfg.Schedule.ActiveStartHour
	generator.ActiveEndHour = cfg.Schedule.ActiveEndHour
	generator.CutoffHour = cfg.Schedule.CutoffHour

	gate := deliverability.NewGate()
	gate.HourlyLimit = cfg.Gate.HourlyLimit
	gate.DailyLimit = cfg.Gate.DailyLimit
	gate.MinSpacing = time.Duration(cfg.Gate.MinSpacingSeconds) * time.Second
	gate.QuietFromHour = cfg.Gate.QuietFromHour
	gate.QuietUntilHour = cfg.Gate.QuietUntilHour

	handlers := api.NewHandlers(
		segmentation.New(ranking.New(), nil),
		generator,
		revenue.New(),
		gate,
		deliverability.NewSendHistoryWindow(),
		segmentProfiles(cfg),
	)

	server := api.NewServer(cfg.Server, handlers)

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("[Server] HTTP server failed: %v", err)
	case sig := <-sigCh:
		log.Printf("[Server] Received %v, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] Shutdown error: %v", err)
	}
}

// segmentProfiles converts config profile overrides onto the defaults.
func segmentProfiles(cfg *config.Config) map[domain.SegmentName]segmentation.Profile {
	profiles := make(map[domain.SegmentName]segmentation.Profile, len(segmentation.DefaultProfiles))
	for name, p := range segmentation.DefaultProfiles {
		profiles[name] = p
	}
	for name, p := range cfg.Segments.Profiles {
		profiles[domain.SegmentName(name)] = segmentation.Profile{
			ConversionRate: p.ConversionRate,
			UnitPrice:      p.UnitPrice,
		}
	}
	return profiles
}

// The dispatcher binary runs one campaign end to end: pull leads from the
// CRM store, rank and partition them, generate the plan, then work through
// it against the deliverability caps, sending through SES with AI content
// and a template fallback.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/ignite/outreach-engine/internal/archive"
	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/content"
	"github.com/ignite/outreach-engine/internal/deliverability"
	"github.com/ignite/outreach-engine/internal/dispatch"
	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/leadstore"
	"github.com/ignite/outreach-engine/internal/pkg/distlock"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/ranking"
	"github.com/ignite/outreach-engine/internal/revenue"
	"github.com/ignite/outreach-engine/internal/schedule"
	"github.com/ignite/outreach-engine/internal/segmentation"
	"github.com/ignite/outreach-engine/internal/sender"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	leadLimit := flag.Int("leads", 1000, "maximum leads to pull for this run")
	optimize := flag.Bool("optimize", true, "front-load high-value segments before dispatch")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("[Dispatcher] Failed to load config: %v", err)
	}
	logger.SetLevel(logger.LevelFromString(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Lead store.
	store, err := leadstore.Open(cfg.Database.URL)
	if err != nil {
		log.Fatalf("[Dispatcher] Lead store: %v", err)
	}
	defer store.Close()

	// Optional shared Redis connection, used by the admission counters and
	// the campaign lock.
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("[Dispatcher] Invalid redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("[Dispatcher] Redis connection failed: %v", err)
		}
	}

	// One dispatcher per audience: a second process backs off instead of
	// double-sending the same leads.
	lock := distlock.ForAudience(redisClient, store.DB(), cfg.Database.Audience, time.Hour)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		log.Fatalf("[Dispatcher] Campaign lock: %v", err)
	}
	if !acquired {
		log.Printf("[Dispatcher] Audience %q already being dispatched elsewhere, exiting", cfg.Database.Audience)
		return
	}
	defer lock.Release(context.Background())

	leads, err := store.Leads(ctx, cfg.Database.Audience, *leadLimit)
	if err != nil {
		log.Fatalf("[Dispatcher] Loading leads: %v", err)
	}
	if len(leads) == 0 {
		log.Printf("[Dispatcher] No leads in audience %q, nothing to do", cfg.Database.Audience)
		return
	}

	// Rank, partition, generate.
	partitioner := segmentation.New(ranking.New(), nil)
	partitions := partitioner.Partition(leads)
	segments := segmentation.SegmentsFromPartition(partitions, profilesFromConfig(cfg))

	generator := schedule.New()
	generator.QuietStartHour = cfg.Schedule.QuietStartHour
	generator.QuietEndHour = cfg.Schedule.QuietEndHour
	generator.SnapHour = cfg.Schedule.SnapHour
	generator.ActiveStartHour = cfg.Schedule.ActiveStartHour
	generator.ActiveEndHour = cfg.Schedule.ActiveEndHour
	generator.CutoffHour = cfg.Schedule.CutoffHour

	plan, err := generator.Generate(partitions, time.Now())
	if err != nil {
		log.Fatalf("[Dispatcher] Schedule generation: %v", err)
	}
	log.Printf("[Dispatcher] Plan: %d sends for %d leads, completion %s",
		plan.TotalSends, plan.TotalLeads, plan.EstimatedCompletion.Format(time.RFC3339))

	// Optional revenue post-pass. Must be the final re-ordering step.
	sends := plan.Sends
	if *optimize {
		sends = revenue.New().Optimize(plan)
	}

	// Archive the summary projection before dispatch begins.
	if cfg.Archive.Enabled {
		archiver, err := archive.NewS3Archiver(ctx, cfg.Archive.Bucket, cfg.Archive.Prefix, cfg.Archive.Region)
		if err != nil {
			log.Printf("[Dispatcher] Archive disabled: %v", err)
		} else if err := archiver.SaveSummary(ctx, archive.Summarize(plan, segments, time.Now().UTC())); err != nil {
			log.Printf("[Dispatcher] Summary archive failed: %v", err)
		}
	}

	// Admission: shared Redis counters when configured, else in-process.
	gate := deliverability.NewGate()
	gate.HourlyLimit = cfg.Gate.HourlyLimit
	gate.DailyLimit = cfg.Gate.DailyLimit
	gate.MinSpacing = time.Duration(cfg.Gate.MinSpacingSeconds) * time.Second
	gate.QuietFromHour = cfg.Gate.QuietFromHour
	gate.QuietUntilHour = cfg.Gate.QuietUntilHour

	var admitter dispatch.Admitter
	if redisClient != nil {
		admitter = deliverability.NewRedisAdmitter(redisClient, gate, cfg.Redis.KeyPrefix)
	} else {
		coordinator := deliverability.NewAdmissionCoordinator(gate, deliverability.NewSendHistoryWindow())
		defer coordinator.Close()
		admitter = coordinator
	}

	// Content: Bedrock with a liquid-template fallback.
	fallback := content.NewFallbackGenerator()
	if cfg.Content.FallbackSubject != "" && cfg.Content.FallbackBody != "" {
		fallback.SetTemplates(cfg.Content.FallbackSubject, cfg.Content.FallbackBody)
	}

	var primary dispatch.ContentGenerator = fallback
	if !cfg.Content.DisableGenerator {
		bedrock, err := content.NewBedrockGenerator(cfg.Content.ModelID)
		if err != nil {
			log.Printf("[Dispatcher] Bedrock unavailable, fallback-only mode: %v", err)
		} else {
			primary = bedrock
		}
	}

	// Transport.
	ses, err := sender.NewSESSender(ctx,
		cfg.SES.AccessKey, cfg.SES.SecretKey, cfg.SES.Region,
		cfg.SES.FromEmail, cfg.SES.FromName, store)
	if err != nil {
		log.Fatalf("[Dispatcher] SES sender: %v", err)
	}

	brand := domain.BrandContext{
		CompanyName:  cfg.Brand.CompanyName,
		ProductName:  cfg.Brand.ProductName,
		SenderName:   cfg.Brand.SenderName,
		ValueProp:    cfg.Brand.ValueProp,
		CallToAction: cfg.Brand.CallToAction,
	}

	d := dispatch.New(admitter, primary, fallback, ses, brand)
	d.SetPacing(rate.Limit(cfg.Dispatcher.SendRatePerSecond),
		time.Duration(cfg.Dispatcher.RetryDelaySeconds)*time.Second)

	sum, err := d.Run(ctx, sends)
	if err != nil && ctx.Err() == nil {
		log.Fatalf("[Dispatcher] Run failed: %v", err)
	}
	log.Printf("[Dispatcher] Done: attempted=%d sent=%d failed=%d deferred=%d fallbacks=%d",
		sum.Attempted, sum.Sent, sum.Failed, sum.Deferred, sum.Fallbacks)
}

func profilesFromConfig(cfg *config.Config) map[domain.SegmentName]segmentation.Profile {
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

// Package archive persists schedule summaries and dispatch outcomes to S3
// for reporting. Archival is a projection: nothing written here is ever
// read back into scheduling.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/revenue"
)

// objectPutter is the slice of the S3 client the archiver uses.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ScheduleSummary is the reporting projection of one generated plan.
type ScheduleSummary struct {
	GeneratedAt         time.Time                  `json:"generated_at"`
	TotalLeads          int                        `json:"total_leads"`
	TotalSends          int                        `json:"total_sends"`
	SegmentCounts       map[domain.SegmentName]int `json:"segment_counts"`
	EstimatedCompletion time.Time                  `json:"estimated_completion"`
	SegmentRevenue      []revenue.SegmentEstimate  `json:"segment_revenue,omitempty"`
	EstimatedRevenue    float64                    `json:"estimated_revenue"`
}

// Summarize projects a plan and its segments into an archivable summary.
func Summarize(schedule *domain.SendSchedule, segments []domain.Segment, at time.Time) ScheduleSummary {
	perSegment, total := revenue.Estimate(segments)
	return ScheduleSummary{
		GeneratedAt:         at,
		TotalLeads:          schedule.TotalLeads,
		TotalSends:          schedule.TotalSends,
		SegmentCounts:       schedule.SegmentCounts,
		EstimatedCompletion: schedule.EstimatedCompletion,
		SegmentRevenue:      perSegment,
		EstimatedRevenue:    total,
	}
}

// S3Archiver writes summaries under a date-partitioned key layout:
// <prefix>/schedules/2006/01/02/<generated-at-unix>.json.
type S3Archiver struct {
	client objectPutter
	bucket string
	prefix string
	log    logger.ComponentLogger
}

// NewS3Archiver loads AWS config and verifies nothing; bucket access fails
// loudly on first write instead, since archival must not block startup.
func NewS3Archiver(ctx context.Context, bucket, prefix, region string) (*S3Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Archiver{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
		log:    logger.Component("archive"),
	}, nil
}

// SaveSummary uploads one schedule summary.
func (a *S3Archiver) SaveSummary(ctx context.Context, summary ScheduleSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	key := fmt.Sprintf("%s/schedules/%s/%d.json",
		a.prefix, summary.GeneratedAt.UTC().Format("2006/01/02"), summary.GeneratedAt.Unix())

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put summary: %w", err)
	}

	a.log.Info("summary archived", "bucket", a.bucket, "key", key, "sends", summary.TotalSends)
	return nil
}

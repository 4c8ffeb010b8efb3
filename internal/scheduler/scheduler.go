package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/config"
	"github.com/mamadbah2/agritrace/internal/domain/models"
	"github.com/mamadbah2/agritrace/internal/service/notify"
)

const jobTimeout = 2 * time.Minute

// DigestBuilder computes the periodic ledger digest.
type DigestBuilder interface {
	DailyDigest(ctx context.Context, now time.Time) (models.DailyDigest, error)
}

// DigestArchive persists computed digests.
type DigestArchive interface {
	SaveDailyDigest(ctx context.Context, digest models.DailyDigest) error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	digests   DigestBuilder
	archive   DigestArchive
	messaging notify.MessagingService
	recipient string
	schedule  string
	now       func() time.Time
	logger    *zap.Logger
}

// NewScheduler creates a scheduler running in cfg's timezone. archive and
// messaging are optional.
func NewScheduler(cfg config.Config, digests DigestBuilder, archive DigestArchive, messaging notify.MessagingService, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Reporting.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Reporting.Timezone, err)
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		digests:   digests,
		archive:   archive,
		messaging: messaging,
		recipient: cfg.WhatsApp.ReportRecipient,
		schedule:  cfg.Reporting.CronSchedule,
		now:       time.Now,
		logger:    logger,
	}, nil
}

// Start registers the digest job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.schedule))

	if _, err := s.cron.AddFunc(s.schedule, s.runDailyDigest); err != nil {
		return fmt.Errorf("schedule daily digest %q: %w", s.schedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDailyDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.SendDailyDigest(ctx); err != nil {
		s.logger.Error("daily digest failed", zap.Error(err))
	}
}

// SendDailyDigest computes the digest, archives it and sends it to the
// report recipient. Archive and delivery failures are logged only.
func (s *Scheduler) SendDailyDigest(ctx context.Context) error {
	s.logger.Info("generating daily digest")

	digest, err := s.digests.DailyDigest(ctx, s.now())
	if err != nil {
		return fmt.Errorf("generate daily digest: %w", err)
	}
	s.logger.Info("daily digest generated",
		zap.Int("batches", digest.TotalBatches),
		zap.Int("events", digest.EventsRecorded),
		zap.String("text", digest.Text))

	if s.archive != nil {
		if err := s.archive.SaveDailyDigest(ctx, digest); err != nil {
			s.logger.Error("failed to archive daily digest", zap.Error(err))
		}
	}

	if s.messaging == nil || s.recipient == "" {
		return nil
	}

	req := models.OutboundMessageRequest{
		To:      s.recipient,
		Message: digest.Text,
	}
	if err := s.messaging.SendOutbound(ctx, req); err != nil {
		s.logger.Error("failed to send daily digest", zap.Error(err))
	} else {
		s.logger.Info("daily digest sent", zap.String("to", s.recipient))
	}

	return nil
}

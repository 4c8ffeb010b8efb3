package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mamadbah2/agritrace/internal/config"
	"github.com/mamadbah2/agritrace/internal/domain/models"
)

type stubDigests struct {
	digest models.DailyDigest
	err    error
	at     time.Time
}

func (s *stubDigests) DailyDigest(_ context.Context, now time.Time) (models.DailyDigest, error) {
	s.at = now
	return s.digest, s.err
}

type stubArchive struct {
	saved []models.DailyDigest
	err   error
}

func (s *stubArchive) SaveDailyDigest(_ context.Context, d models.DailyDigest) error {
	s.saved = append(s.saved, d)
	return s.err
}

type stubMessaging struct {
	sent []models.OutboundMessageRequest
}

func (s *stubMessaging) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	s.sent = append(s.sent, req)
	return nil
}

func testConfig(recipient string) config.Config {
	return config.Config{
		Reporting: config.ReportingConfig{CronSchedule: "0 20 * * *", Timezone: "UTC"},
		WhatsApp:  config.WhatsAppConfig{ReportRecipient: recipient},
	}
}

func TestSendDailyDigest(t *testing.T) {
	digests := &stubDigests{digest: models.DailyDigest{TotalBatches: 2, Text: "AgriTrace digest"}}
	archive := &stubArchive{}
	messaging := &stubMessaging{}

	s, err := NewScheduler(testConfig("919000000000"), digests, archive, messaging, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	fixed := time.Date(2024, 8, 20, 20, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	if err := s.SendDailyDigest(context.Background()); err != nil {
		t.Fatalf("SendDailyDigest() error = %v", err)
	}

	if !digests.at.Equal(fixed) {
		t.Fatalf("digest computed at %v, want %v", digests.at, fixed)
	}
	if len(archive.saved) != 1 || archive.saved[0].TotalBatches != 2 {
		t.Fatalf("archived = %+v", archive.saved)
	}
	if len(messaging.sent) != 1 || messaging.sent[0].To != "919000000000" || messaging.sent[0].Message != "AgriTrace digest" {
		t.Fatalf("sent = %+v", messaging.sent)
	}
}

func TestSendDailyDigestWithoutRecipient(t *testing.T) {
	messaging := &stubMessaging{}
	s, err := NewScheduler(testConfig(""), &stubDigests{}, nil, messaging, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	if err := s.SendDailyDigest(context.Background()); err != nil {
		t.Fatalf("SendDailyDigest() error = %v", err)
	}
	if len(messaging.sent) != 0 {
		t.Fatalf("no message expected without recipient, got %+v", messaging.sent)
	}
}

func TestSendDailyDigestArchiveFailureIsLogged(t *testing.T) {
	messaging := &stubMessaging{}
	archive := &stubArchive{err: errors.New("mongo down")}
	s, err := NewScheduler(testConfig("1"), &stubDigests{}, archive, messaging, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	if err := s.SendDailyDigest(context.Background()); err != nil {
		t.Fatalf("SendDailyDigest() error = %v", err)
	}
	if len(messaging.sent) != 1 {
		t.Fatalf("digest should still be sent when archiving fails")
	}
}

func TestSendDailyDigestBuildError(t *testing.T) {
	boom := errors.New("store unavailable")
	s, err := NewScheduler(testConfig("1"), &stubDigests{err: boom}, nil, &stubMessaging{}, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	if err := s.SendDailyDigest(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("SendDailyDigest() error = %v, want %v", err, boom)
	}
}

func TestNewSchedulerRejectsUnknownTimezone(t *testing.T) {
	cfg := testConfig("")
	cfg.Reporting.Timezone = "Mars/Olympus"
	if _, err := NewScheduler(cfg, &stubDigests{}, nil, nil, nil); err == nil {
		t.Fatalf("NewScheduler() expected timezone error")
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	cfg := testConfig("")
	cfg.Reporting.CronSchedule = "every evening"
	s, err := NewScheduler(cfg, &stubDigests{}, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatalf("Start() expected schedule error")
	}
}

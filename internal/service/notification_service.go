package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campus-shuttle/shuttle-api/internal/models"
	"github.com/campus-shuttle/shuttle-api/pkg/jobs"
)

const jobTypeAnnouncementCreated = "announcement.created"

type messagePublisher interface {
	Publish(ctx context.Context, channel string, payload interface{}) (int64, error)
}

// AnnouncementEvent is the pub/sub payload sent to rider clients.
type AnnouncementEvent struct {
	Type         string              `json:"type"`
	Announcement models.Announcement `json:"announcement"`
}

// NotificationConfig tunes the broadcast worker pool.
type NotificationConfig struct {
	Channel    string
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// NotificationService broadcasts announcements in the background.
// Without a publisher every broadcast is a no-op.
type NotificationService struct {
	publisher messagePublisher
	channel   string
	queue     *jobs.Queue
	logger    *zap.Logger
}

func NewNotificationService(publisher messagePublisher, cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Channel == "" {
		cfg.Channel = "shuttle:announcements"
	}
	svc := &NotificationService{publisher: publisher, channel: cfg.Channel, logger: logger}
	svc.queue = jobs.NewQueue("announcements", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start launches the broadcast workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s.publisher == nil {
		s.logger.Info("announcement broadcast disabled")
		return
	}
	s.queue.Start(ctx)
}

// Stop drains pending broadcasts.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// BroadcastAnnouncement queues announcement for publication.
func (s *NotificationService) BroadcastAnnouncement(ctx context.Context, announcement models.Announcement) error {
	if s.publisher == nil {
		return nil
	}
	return s.queue.Enqueue(ctx, jobs.Job{
		ID:      announcement.ID,
		Type:    jobTypeAnnouncementCreated,
		Payload: AnnouncementEvent{Type: jobTypeAnnouncementCreated, Announcement: announcement},
	})
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(AnnouncementEvent)
	if !ok {
		s.logger.Error("dropping job with unexpected payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	receivers, err := s.publisher.Publish(ctx, s.channel, event)
	if err != nil {
		return fmt.Errorf("publish announcement %s: %w", job.ID, err)
	}
	s.logger.Debug("announcement broadcast",
		zap.String("announcement_id", event.Announcement.ID),
		zap.Int64("receivers", receivers),
	)
	return nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-seat-api/internal/models"
	"github.com/noah-isme/exam-seat-api/pkg/config"
	"github.com/noah-isme/exam-seat-api/pkg/jobs"
)

// Mailer delivers a single message. Implementations must be safe for
// concurrent use; the queue calls Send from multiple workers.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ConsoleMailer logs messages instead of delivering them. Used in
// development and as the default when no SMTP relay is configured.
type ConsoleMailer struct {
	logger *zap.Logger
}

// NewConsoleMailer constructs a ConsoleMailer.
func NewConsoleMailer(logger *zap.Logger) *ConsoleMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleMailer{logger: logger}
}

// Send logs the message at info level.
func (m *ConsoleMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("mail delivered to console",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}

type emailPayload struct {
	To      string
	Subject string
	Body    string
}

// NotificationService queues cohort emails about published timetables and
// delivers them through a background worker pool.
type NotificationService struct {
	queue  *jobs.Queue
	mailer Mailer
	from   string
	logger *zap.Logger
}

// NewNotificationService builds the service with its delivery queue. Call
// Start before queueing and Stop on shutdown.
func NewNotificationService(mailer Mailer, cfg config.NotifyConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{mailer: mailer, from: cfg.FromAddress, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyTimetable queues one email per cohort student and returns the number
// queued. Students without an email address are skipped.
func (s *NotificationService) NotifyTimetable(timetable *models.TimetableDetail, students []models.Student) (int, error) {
	subject := fmt.Sprintf("Exam timetable published: %s", timetable.Title)
	queued := 0
	for _, student := range students {
		if student.Email == "" {
			continue
		}
		body := buildTimetableEmail(student, timetable)
		err := s.queue.Enqueue(jobs.Job{
			ID:      uuid.NewString(),
			Type:    "timetable_notification",
			Payload: emailPayload{To: student.Email, Subject: subject, Body: body},
		})
		if err != nil {
			return queued, fmt.Errorf("enqueue notification: %w", err)
		}
		queued++
	}
	s.logger.Info("timetable notifications queued",
		zap.String("timetable_id", timetable.ID),
		zap.Int("queued", queued),
	)
	return queued, nil
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(emailPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	return s.mailer.Send(ctx, payload.To, payload.Subject, payload.Body)
}

func buildTimetableEmail(student models.Student, timetable *models.TimetableDetail) string {
	body := fmt.Sprintf("Dear %s,\n\nThe exam timetable %q for %s year %d has been published.\n\n",
		student.FullName, timetable.Title, timetable.Branch, timetable.Year)
	for _, exam := range timetable.Exams {
		body += fmt.Sprintf("- %s (%s): %s %s\n",
			exam.Subject, exam.Code, exam.ExamDate.Format("2006-01-02"), exam.TimeSlot)
	}
	body += "\nSeating details will be shared before each exam.\n"
	return body
}

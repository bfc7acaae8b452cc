package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-seat-api/internal/models"
	"github.com/noah-isme/exam-seat-api/pkg/config"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	done chan struct{}
	want int
}

func (m *recordingMailer) Send(_ context.Context, to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	if len(m.sent) == m.want {
		close(m.done)
	}
	return nil
}

func TestNotificationServiceDeliversQueuedMail(t *testing.T) {
	mailer := &recordingMailer{done: make(chan struct{}), want: 2}
	svc := NewNotificationService(mailer, config.NotifyConfig{WorkerConcurrency: 2}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	detail := &models.TimetableDetail{
		Timetable: models.Timetable{ID: "tt-1", Title: "End Sem", Branch: "CSE", Year: 2},
		Exams: []models.ExamEntry{
			{Subject: "Algorithms", Code: "CS201", ExamDate: time.Now(), TimeSlot: "10:00-13:00"},
		},
	}
	students := []models.Student{
		{ID: "student-1", FullName: "Asha", Email: "a@example.edu"},
		{ID: "student-2", FullName: "Ravi", Email: "b@example.edu"},
		{ID: "student-3", FullName: "NoMail"},
	}

	queued, err := svc.NotifyTimetable(detail, students)
	require.NoError(t, err)
	assert.Equal(t, 2, queued, "students without an email are skipped")

	select {
	case <-mailer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for deliveries")
	}

	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	assert.ElementsMatch(t, []string{"a@example.edu", "b@example.edu"}, mailer.sent)
}

func TestNotificationServiceEnqueueBeforeStart(t *testing.T) {
	svc := NewNotificationService(&recordingMailer{done: make(chan struct{}), want: 1}, config.NotifyConfig{}, nil)

	_, err := svc.NotifyTimetable(&models.TimetableDetail{
		Timetable: models.Timetable{ID: "tt-1", Title: "End Sem"},
	}, []models.Student{{ID: "student-1", Email: "a@example.edu"}})
	require.Error(t, err)
}

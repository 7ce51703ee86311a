// Package notifier fans task-completion events out to registered subscribers.
package notifier

import (
	"sync"

	"github.com/yukikurage/task-tracker-api/internal/models"
	"go.uber.org/zap"
)

// Subscriber reacts to a task reaching the completed status. recipients
// holds the users who should hear about it.
type Subscriber interface {
	OnTaskCompleted(task *models.Task, recipients []models.User)
}

// SubscriberFunc adapts a plain function to Subscriber.
type SubscriberFunc func(task *models.Task, recipients []models.User)

func (f SubscriberFunc) OnTaskCompleted(task *models.Task, recipients []models.User) {
	f(task, recipients)
}

// Notifier is the subscriber registry. It is safe for concurrent use.
type Notifier struct {
	mu          sync.RWMutex
	subscribers []Subscriber
}

// New creates a Notifier with the given subscribers already registered.
func New(subscribers ...Subscriber) *Notifier {
	n := &Notifier{}
	for _, s := range subscribers {
		n.Subscribe(s)
	}
	return n
}

// Subscribe registers s. Nil subscribers are ignored.
func (n *Notifier) Subscribe(s Subscriber) {
	if s == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscribers = append(n.subscribers, s)
}

// Len returns the number of registered subscribers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subscribers)
}

// NotifyTaskCompleted calls every subscriber in registration order.
func (n *Notifier) NotifyTaskCompleted(task *models.Task, recipients []models.User) {
	n.mu.RLock()
	subscribers := make([]Subscriber, len(n.subscribers))
	copy(subscribers, n.subscribers)
	n.mu.RUnlock()

	for _, s := range subscribers {
		s.OnTaskCompleted(task, recipients)
	}
}

// LogSubscriber records the completion and simulates one notice per
// recipient through the logger.
type LogSubscriber struct {
	logger *zap.Logger
}

func NewLogSubscriber(logger *zap.Logger) *LogSubscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSubscriber{logger: logger}
}

func (s *LogSubscriber) OnTaskCompleted(task *models.Task, recipients []models.User) {
	s.logger.Info("task completed",
		zap.Uint64("task_id", task.ID),
		zap.String("title", task.Title),
	)
	for _, r := range recipients {
		s.logger.Info("sending completion notice",
			zap.Uint64("task_id", task.ID),
			zap.String("recipient_name", r.Name),
			zap.String("recipient_email", r.Email),
		)
	}
}

package governance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Priority ranks a notification for the delivery side.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Notification is a message for one principal.
type Notification struct {
	RecipientID  string    `json:"recipient_id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Priority     Priority  `json:"priority"`
	FoundationID string    `json:"foundation_id,omitempty"`
	WorkflowID   string    `json:"workflow_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Notifier delivers notifications. Callers never wait on delivery outcome.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) error { return nil }

// WatermillNotifier publishes notifications as JSON messages on a topic.
type WatermillNotifier struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillNotifier creates a notifier publishing to topic.
func NewWatermillNotifier(publisher message.Publisher, topic string) *WatermillNotifier {
	if topic == "" {
		topic = "governance.notifications"
	}
	return &WatermillNotifier{publisher: publisher, topic: topic}
}

func (w *WatermillNotifier) Notify(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("recipient_id", n.RecipientID)
	msg.Metadata.Set("priority", string(n.Priority))
	if n.WorkflowID != "" {
		msg.Metadata.Set("workflow_id", n.WorkflowID)
	}
	if err := w.publisher.Publish(w.topic, msg); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func completionNotice(wf Workflow, steps int) Notification {
	return Notification{
		RecipientID:  wf.Subject.OriginatorID,
		Title:        "Approval completed",
		Message:      fmt.Sprintf("%s %s completed all %d steps", wf.Subject.Type, subjectLabel(wf.Subject), steps),
		Priority:     PriorityNormal,
		FoundationID: wf.FoundationID,
		WorkflowID:   wf.ID,
	}
}

func rejectionNotice(wf Workflow, by, comments string) Notification {
	msg := fmt.Sprintf("%s %s was rejected by %s", wf.Subject.Type, subjectLabel(wf.Subject), by)
	if comments != "" {
		msg += ": " + comments
	}
	return Notification{
		RecipientID:  wf.Subject.OriginatorID,
		Title:        "Approval rejected",
		Message:      msg,
		Priority:     PriorityHigh,
		FoundationID: wf.FoundationID,
		WorkflowID:   wf.ID,
	}
}

func reassignmentNotice(wf Workflow, step Step) Notification {
	return Notification{
		RecipientID:  step.AssigneeID,
		Title:        "Action requested",
		Message:      fmt.Sprintf("You were asked to %s %s %s", step.Action, wf.Subject.Type, subjectLabel(wf.Subject)),
		Priority:     PriorityNormal,
		FoundationID: wf.FoundationID,
		WorkflowID:   wf.ID,
	}
}

func subjectLabel(s Subject) string {
	if s.Title != "" {
		return fmt.Sprintf("%q", s.Title)
	}
	return s.ID
}

// Package events defines event types and structures for workflow lifecycle
// notifications.
package events

import (
	"time"

	"github.com/enrollhq/admitflow/pkg/models"
)

type EventType string

// Topic carries all engine events.
const Topic = "admitflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// StageEnteredEvent is emitted after a transition is durably recorded.
	StageEnteredEvent EventType = "application.stage.entered"

	// NotificationRequestedEvent asks the dispatcher to deliver one
	// notification, deduplicated by its dedupe key.
	NotificationRequestedEvent EventType = "notification.requested"
)

type BaseEvent struct {
	ID            string         `json:"id"`
	Type          EventType      `json:"type"`
	Timestamp     time.Time      `json:"timestamp"`
	ApplicationID string         `json:"application_id"`
	WorkerID      string         `json:"worker_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// StageEntered records that an application entered a stage via a named
// transition.
type StageEntered struct {
	BaseEvent

	TemplateID      string    `json:"template_id"`
	TemplateVersion int       `json:"template_version"`
	StageID         string    `json:"stage_id"`
	TransitionName  string    `json:"transition_name"`
	TriggeredBy     string    `json:"triggered_by"`
	EnteredAt       time.Time `json:"entered_at"`
}

func (e StageEntered) GetType() EventType {
	return StageEnteredEvent
}

// NotificationRequested is one deliverable notification. DedupeKey identifies
// the stage-entry instance it belongs to; the dispatcher delivers at most
// once per key.
type NotificationRequested struct {
	BaseEvent

	TemplateKey string                   `json:"template_key"`
	Channels    []models.DeliveryChannel `json:"channels"`
	DedupeKey   string                   `json:"dedupe_key"`
}

func (e NotificationRequested) GetType() EventType {
	return NotificationRequestedEvent
}

// Package models defines the core domain models for the admission workflow engine.
package models

import "time"

// TemplateStatus represents the lifecycle state of a workflow template.
type TemplateStatus string

const (
	TemplateStatusDraft   TemplateStatus = "draft"   // Editable, not usable by applications
	TemplateStatusActive  TemplateStatus = "active"  // Published, governs running applications
	TemplateStatusRetired TemplateStatus = "retired" // Historical, kept for in-flight applications
)

// WorkflowTemplate is an institution-defined admission workflow: the stages an
// application moves through and the transitions between them. A template is
// immutable once active; edits produce a new version, and in-flight
// applications keep referencing the version they started on.
type WorkflowTemplate struct {
	ID              string                 `json:"id"                validate:"required"`
	Version         int                    `json:"version"           validate:"required,min=1"`
	Name            string                 `json:"name"              validate:"required,min=3"`
	ApplicationType string                 `json:"application_type"  validate:"required"`
	Status          TemplateStatus         `json:"status"`
	StartStageID    string                 `json:"start_stage_id"    validate:"required"`
	Stages          []*Stage               `json:"stages"            validate:"required,min=1,dive"`
	Transitions     []*Transition          `json:"transitions"       validate:"dive"`
	Metadata        map[string]any         `json:"metadata,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	ActivatedAt     *time.Time             `json:"activated_at,omitempty"`
}

// Stage is a named state an application can occupy. Sequence is a display and
// ordering hint only; reachability is determined by the transition graph.
type Stage struct {
	ID                    string                 `json:"id"             validate:"required"`
	Name                  string                 `json:"name"           validate:"required"`
	Sequence              int                    `json:"sequence"`
	RequiredDocumentTypes []string               `json:"required_document_types,omitempty"`
	RequiredActionKeys    []string               `json:"required_action_keys,omitempty"`
	NotificationTriggers  []*NotificationTrigger `json:"notification_triggers,omitempty" validate:"dive"`
	AssignedRoleID        string                 `json:"assigned_role_id,omitempty"`
}

// Transition is a directed edge between two stages. Automatic transitions are
// applied by the scheduler from data conditions alone and are never
// permission-gated; manual transitions are requested by an actor and may
// require permissions in addition to an optional condition.
type Transition struct {
	ID                  string         `json:"id"          validate:"required"`
	Name                string         `json:"name"        validate:"required"`
	SourceStageID       string         `json:"source_stage_id" validate:"required"`
	TargetStageID       string         `json:"target_stage_id" validate:"required"`
	IsAutomatic         bool           `json:"is_automatic"`
	Condition           *ConditionTree `json:"condition,omitempty"`
	RequiredPermissions []string       `json:"required_permissions,omitempty"`
}

// StageByID returns the stage with the given id, or nil.
func (t *WorkflowTemplate) StageByID(id string) *Stage {
	for _, s := range t.Stages {
		if s.ID == id {
			return s
		}
	}

	return nil
}

// StageEntryTriggers returns the stage's notification triggers registered for
// stage entry.
func (s *Stage) StageEntryTriggers() []*NotificationTrigger {
	triggers := make([]*NotificationTrigger, 0, len(s.NotificationTriggers))

	for _, trigger := range s.NotificationTriggers {
		if trigger.EventKey == EventKeyStageEntry {
			triggers = append(triggers, trigger)
		}
	}

	return triggers
}

package models

import "time"

// TriggeredByAutomatic marks a history entry recorded by the automatic
// evaluation scheduler; any other TriggeredBy value is an actor id.
const TriggeredByAutomatic = "automatic"

// HistoryEntry records one stay in a stage. ExitedAt is nil while the
// application is still in the stage.
type HistoryEntry struct {
	ID             string     `json:"id"`
	StageID        string     `json:"stage_id"`
	EnteredAt      time.Time  `json:"entered_at"`
	ExitedAt       *time.Time `json:"exited_at,omitempty"`
	TransitionName string     `json:"transition_name"`
	TriggeredBy    string     `json:"triggered_by"`
}

// ApplicationWorkflowState is the engine's view of one running application:
// which template version governs it, where it currently is, and the full
// append-only history of stage entries and exits. Exactly one history entry
// is open (ExitedAt == nil) at any time.
type ApplicationWorkflowState struct {
	ApplicationID   string         `json:"application_id"`
	TemplateID      string         `json:"template_id"`
	TemplateVersion int            `json:"template_version"`
	CurrentStageID  string         `json:"current_stage_id"`
	EnteredAt       time.Time      `json:"entered_at"`
	History         []HistoryEntry `json:"history"`
}

// CurrentEntry returns the open history entry, or nil if the state is empty.
func (s *ApplicationWorkflowState) CurrentEntry() *HistoryEntry {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].ExitedAt == nil {
			return &s.History[i]
		}
	}

	return nil
}

// Clone returns a deep copy safe to hand to callers without aliasing the
// store's internal history slice.
func (s *ApplicationWorkflowState) Clone() *ApplicationWorkflowState {
	clone := *s
	clone.History = make([]HistoryEntry, len(s.History))
	copy(clone.History, s.History)

	return &clone
}

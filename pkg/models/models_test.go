package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentEntry(t *testing.T) {
	exited := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	state := &ApplicationWorkflowState{
		CurrentStageID: "under-review",
		History: []HistoryEntry{
			{StageID: "submitted", ExitedAt: &exited},
			{StageID: "under-review"},
		},
	}

	entry := state.CurrentEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "under-review", entry.StageID)

	empty := &ApplicationWorkflowState{}
	assert.Nil(t, empty.CurrentEntry())
}

func TestClone(t *testing.T) {
	state := &ApplicationWorkflowState{
		ApplicationID: "app-1",
		History:       []HistoryEntry{{StageID: "submitted"}},
	}

	clone := state.Clone()
	clone.History[0].StageID = "mutated"
	clone.History = append(clone.History, HistoryEntry{StageID: "extra"})

	assert.Equal(t, "submitted", state.History[0].StageID)
	assert.Len(t, state.History, 1)
}

func TestLeaseExpired(t *testing.T) {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	lease := &Lease{ExpiresAt: now.Add(30 * time.Second)}

	assert.False(t, lease.Expired(now))
	assert.False(t, lease.Expired(now.Add(29*time.Second)))
	assert.True(t, lease.Expired(now.Add(30*time.Second)))
	assert.True(t, lease.Expired(now.Add(time.Minute)))
}

func TestConditionTreeJSONForms(t *testing.T) {
	document := `{
		"combinator": "ALL",
		"children": [
			{"field": "application_fee_paid", "operator": "=", "value": true},
			{
				"combinator": "ANY",
				"children": [
					{"field": "gpa", "operator": ">=", "value": 3.5},
					{"field": "test_scores.sat", "operator": ">", "value": 1400}
				]
			}
		]
	}`

	var tree ConditionTree
	require.NoError(t, json.Unmarshal([]byte(document), &tree))

	assert.True(t, tree.IsGroup())
	assert.Equal(t, CombinatorAll, tree.Combinator)
	require.Len(t, tree.Children, 2)

	leaf := tree.Children[0]
	assert.False(t, leaf.IsGroup())
	assert.Equal(t, OperatorEquals, leaf.Operator)
	assert.Equal(t, true, leaf.Value)

	nested := tree.Children[1]
	assert.True(t, nested.IsGroup())
	assert.Equal(t, CombinatorAny, nested.Combinator)
	assert.Len(t, nested.Children, 2)
}

func TestStageEntryTriggers(t *testing.T) {
	stage := &Stage{
		ID: "document-verification",
		NotificationTriggers: []*NotificationTrigger{
			{EventKey: EventKeyStageEntry, TemplateKey: "documents_required"},
			{EventKey: "stage_exit", TemplateKey: "verification_done"},
		},
	}

	triggers := stage.StageEntryTriggers()
	require.Len(t, triggers, 1)
	assert.Equal(t, "documents_required", triggers[0].TemplateKey)
}

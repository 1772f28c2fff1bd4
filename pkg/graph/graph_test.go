package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enrollhq/admitflow/pkg/models"
)

func testTemplate() *models.WorkflowTemplate {
	return &models.WorkflowTemplate{
		ID:              "undergrad-admissions",
		Version:         1,
		Name:            "Undergraduate Admissions",
		ApplicationType: "undergraduate",
		StartStageID:    "submitted",
		Stages: []*models.Stage{
			{ID: "submitted", Name: "Submitted", Sequence: 1},
			{ID: "document-verification", Name: "Document Verification", Sequence: 2},
			{ID: "under-review", Name: "Under Review", Sequence: 3},
			{ID: "additional-information", Name: "Additional Information", Sequence: 4},
			{ID: "decision", Name: "Decision", Sequence: 5},
		},
		Transitions: []*models.Transition{
			{ID: "t1", Name: "Initial Screening Passed", SourceStageID: "submitted", TargetStageID: "document-verification", IsAutomatic: true},
			{ID: "t2", Name: "Documents Verified", SourceStageID: "document-verification", TargetStageID: "under-review", IsAutomatic: true},
			{ID: "t3", Name: "Request More Information", SourceStageID: "under-review", TargetStageID: "additional-information"},
			{ID: "t4", Name: "Information Provided", SourceStageID: "additional-information", TargetStageID: "under-review", IsAutomatic: true},
			{ID: "t5", Name: "Review Complete", SourceStageID: "under-review", TargetStageID: "decision"},
		},
	}
}

func TestBuild_ValidTemplate(t *testing.T) {
	g, err := Build(testTemplate())

	require.NoError(t, err)
	assert.NotNil(t, g)
	assert.Equal(t, "Submitted", g.Stage("submitted").Name)
}

func TestBuild_CyclesAreLegal(t *testing.T) {
	// under-review -> additional-information -> under-review is a cycle by
	// design; the scheduler's one-hop-per-tick rule bounds it at runtime.
	g, err := Build(testTemplate())

	require.NoError(t, err)
	assert.NotNil(t, g.FindFrom("under-review", "Request More Information"))
	assert.NotNil(t, g.FindFrom("additional-information", "Information Provided"))
}

func TestBuild_UndeclaredStage(t *testing.T) {
	template := testTemplate()
	template.Transitions = append(template.Transitions, &models.Transition{
		ID: "t6", Name: "Ghost", SourceStageID: "decision", TargetStageID: "nowhere",
	})

	_, err := Build(template)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedTemplate)
	assert.Contains(t, err.Error(), "nowhere")
}

func TestBuild_UnreachableStage(t *testing.T) {
	template := testTemplate()
	template.Stages = append(template.Stages, &models.Stage{ID: "orphan", Name: "Orphan"})

	_, err := Build(template)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedTemplate)
	assert.Contains(t, err.Error(), "unreachable")
}

func TestBuild_DuplicateStageID(t *testing.T) {
	template := testTemplate()
	template.Stages = append(template.Stages, &models.Stage{ID: "submitted", Name: "Submitted Again"})

	_, err := Build(template)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedTemplate)
}

func TestBuild_UndeclaredStartStage(t *testing.T) {
	template := testTemplate()
	template.StartStageID = "missing"

	_, err := Build(template)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedTemplate)
}

func TestTransitionsFrom_PreservesDeclarationOrder(t *testing.T) {
	template := testTemplate()
	template.Transitions = append(template.Transitions,
		&models.Transition{ID: "t6", Name: "Fast Track", SourceStageID: "submitted", TargetStageID: "under-review", IsAutomatic: true},
	)

	g, err := Build(template)
	require.NoError(t, err)

	transitions := g.TransitionsFrom("submitted")
	require.Len(t, transitions, 2)
	assert.Equal(t, "Initial Screening Passed", transitions[0].Name)
	assert.Equal(t, "Fast Track", transitions[1].Name)

	automatic := g.AutomaticFrom("submitted")
	require.Len(t, automatic, 2)
	assert.Equal(t, "Initial Screening Passed", automatic[0].Name)
}

func TestAutomaticSourceStages(t *testing.T) {
	g, err := Build(testTemplate())
	require.NoError(t, err)

	stages := g.AutomaticSourceStages()

	assert.ElementsMatch(t, []string{"submitted", "document-verification", "additional-information"}, stages)
	assert.True(t, g.HasAutomaticFrom("submitted"))
	assert.False(t, g.HasAutomaticFrom("decision"))
}

func TestFindFrom_UnknownTransition(t *testing.T) {
	g, err := Build(testTemplate())
	require.NoError(t, err)

	assert.Nil(t, g.FindFrom("submitted", "No Such Thing"))
	assert.Nil(t, g.FindFrom("unknown-stage", "Initial Screening Passed"))
}

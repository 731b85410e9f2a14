package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStage(id string) *Stage {
	return &Stage{
		ID:          id,
		Name:        "Test Stage",
		PlanPrompt:  Prompt{Content: "plan"},
		PhasePrompt: Prompt{Content: "phase"},
		BuildPrompt: Prompt{Content: "build"},
		AuditPrompt: Prompt{Content: "audit"},
	}
}

func TestStageStartsPending(t *testing.T) {
	s := testStage("s1")
	assert.Equal(t, StatusPending, s.Status())
	assert.False(t, s.Status().IsTerminal())
}

func TestStageHappyPath(t *testing.T) {
	s := testStage("s1")

	for _, status := range []Status{StatusPlanning, StatusPhasing, StatusBuilding, StatusAuditing, StatusCompleted} {
		require.NoError(t, s.Transition(status))
	}
	assert.True(t, s.Status().IsTerminal())
}

func TestStageFixCycleLoop(t *testing.T) {
	s := testStage("s1")

	require.NoError(t, s.Transition(StatusPlanning))
	require.NoError(t, s.Transition(StatusPhasing))
	require.NoError(t, s.Transition(StatusBuilding))
	require.NoError(t, s.Transition(StatusAuditing))
	require.NoError(t, s.Transition(StatusBuilding), "audit findings loop back to building")
	require.NoError(t, s.Transition(StatusAuditing))
	require.NoError(t, s.Transition(StatusFailed), "fix cycle exhaustion fails the stage")
}

func TestStagePhasingCanCompleteDirectly(t *testing.T) {
	s := testStage("s1")

	require.NoError(t, s.Transition(StatusPlanning))
	require.NoError(t, s.Transition(StatusPhasing))
	require.NoError(t, s.Transition(StatusCompleted), "zero build units complete the stage from phasing")
}

func TestStageInvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []Status
		to   Status
	}{
		{"pending cannot complete", nil, StatusCompleted},
		{"pending cannot build", nil, StatusBuilding},
		{"planning cannot build", []Status{StatusPlanning}, StatusBuilding},
		{"building cannot complete", []Status{StatusPlanning, StatusPhasing, StatusBuilding}, StatusCompleted},
		{"completed is terminal", []Status{StatusPlanning, StatusPhasing, StatusCompleted}, StatusPlanning},
		{"llm failure is terminal", []Status{StatusPlanning, StatusLlmFailure}, StatusPlanning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testStage("s1")
			for _, status := range tt.path {
				require.NoError(t, s.Transition(status))
			}
			before := s.Status()
			assert.Error(t, s.Transition(tt.to))
			assert.Equal(t, before, s.Status(), "failed transition must not change state")
		})
	}
}

func TestStageValidate(t *testing.T) {
	assert.NoError(t, testStage("s1").Validate())

	missing := testStage("s1")
	missing.AuditPrompt.Content = ""
	assert.Error(t, missing.Validate())

	unnamed := testStage("")
	assert.Error(t, unnamed.Validate())
}

func TestAnyStageCanFailOnLlm(t *testing.T) {
	for _, from := range []Status{StatusPlanning, StatusPhasing, StatusBuilding, StatusAuditing} {
		t.Run(string(from), func(t *testing.T) {
			found := false
			for _, to := range ValidTransitions[from] {
				if to == StatusLlmFailure {
					found = true
				}
			}
			assert.True(t, found, "%s must allow transition to llm_failure", from)
		})
	}
}

// Package pipeline drives stages through the plan, phase, build, and audit
// lifecycle using a resilient LLM caller.
package pipeline

import (
	"fmt"
)

// Status is the lifecycle state of a stage.
type Status string

// Stage statuses. Completed, LlmFailure, and Failed are terminal.
const (
	StatusPending    Status = "pending"
	StatusPlanning   Status = "planning"
	StatusPhasing    Status = "phasing"
	StatusBuilding   Status = "building"
	StatusAuditing   Status = "auditing"
	StatusCompleted  Status = "completed"
	StatusLlmFailure Status = "llm_failure"
	StatusFailed     Status = "failed"
)

// ValidTransitions defines the allowed stage status transitions.
var ValidTransitions = map[Status][]Status{
	StatusPending:  {StatusPlanning},
	StatusPlanning: {StatusPhasing, StatusLlmFailure},
	// Phasing can complete a stage directly when the plan yields no build units.
	StatusPhasing:  {StatusBuilding, StatusCompleted, StatusLlmFailure},
	StatusBuilding: {StatusAuditing, StatusLlmFailure},
	// Auditing loops back to building for fix cycles, or ends the stage.
	StatusAuditing:   {StatusBuilding, StatusCompleted, StatusFailed, StatusLlmFailure},
	StatusCompleted:  {},
	StatusLlmFailure: {},
	StatusFailed:     {},
}

// IsTerminal reports whether a status ends the stage lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusLlmFailure || s == StatusFailed
}

// Prompt is the material for one LLM call.
type Prompt struct {
	System  string `yaml:"system"`
	Content string `yaml:"content"`
}

// Stage is one unit of pipeline work. The per-phase prompts are authored in
// the stage manifest; status is owned by the orchestrator.
type Stage struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	PlanPrompt  Prompt `yaml:"plan"`
	PhasePrompt Prompt `yaml:"phase"`
	BuildPrompt Prompt `yaml:"build"`
	AuditPrompt Prompt `yaml:"audit"`

	status Status
}

// Status returns the stage's current lifecycle state.
func (s *Stage) Status() Status {
	if s.status == "" {
		return StatusPending
	}
	return s.status
}

// Transition moves the stage to the target status, enforcing the transition
// table. An invalid transition is a programmer error and returns an error
// without changing state.
func (s *Stage) Transition(to Status) error {
	from := s.Status()
	for _, allowed := range ValidTransitions[from] {
		if allowed == to {
			s.status = to
			return nil
		}
	}
	return fmt.Errorf("invalid stage transition for %s: %s -> %s", s.ID, from, to)
}

// Validate rejects stages that cannot be run.
func (s *Stage) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("stage id cannot be empty")
	}
	if s.PlanPrompt.Content == "" {
		return fmt.Errorf("stage %s has no plan prompt", s.ID)
	}
	if s.PhasePrompt.Content == "" {
		return fmt.Errorf("stage %s has no phase prompt", s.ID)
	}
	if s.BuildPrompt.Content == "" {
		return fmt.Errorf("stage %s has no build prompt", s.ID)
	}
	if s.AuditPrompt.Content == "" {
		return fmt.Errorf("stage %s has no audit prompt", s.ID)
	}
	return nil
}

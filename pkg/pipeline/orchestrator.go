package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"conductor/pkg/envelope"
	"conductor/pkg/eventlog"
	"conductor/pkg/llm"
	"conductor/pkg/logx"
	"conductor/pkg/metrics"
	"conductor/pkg/preflight"
)

// Caller issues one logical LLM call and always returns a tagged envelope.
// The resilient client satisfies this.
type Caller interface {
	Call(ctx context.Context, role llm.AgentRole, systemPrompt, userContent string) envelope.Envelope
}

// Prober validates provider connectivity before a run starts.
type Prober interface {
	Probe(ctx context.Context) preflight.Result
}

// DefaultMaxFixCycles bounds audit-driven rebuild loops per stage.
const DefaultMaxFixCycles = 3

// Orchestrator drives stages through their lifecycle.
type Orchestrator struct {
	caller        Caller
	sink          eventlog.Sink
	prober        Prober
	recorder      metrics.Recorder
	logger        *logx.Logger
	maxFixCycles  int
	skipPreflight bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProber attaches a connectivity prober. Without one, runs behave as if
// preflight were skipped.
func WithProber(p Prober) Option {
	return func(o *Orchestrator) { o.prober = p }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithMaxFixCycles overrides the audit fix cycle budget.
func WithMaxFixCycles(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxFixCycles = n
		}
	}
}

// WithSkipPreflight disables the connectivity probe for this orchestrator.
func WithSkipPreflight(skip bool) Option {
	return func(o *Orchestrator) { o.skipPreflight = skip }
}

// NewOrchestrator creates an orchestrator over a caller and an event sink.
func NewOrchestrator(caller Caller, sink eventlog.Sink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		caller:       caller,
		sink:         sink,
		recorder:     metrics.NopRecorder{},
		logger:       logx.NewLogger("pipeline"),
		maxFixCycles: DefaultMaxFixCycles,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes all stages in order and returns the run ID. It returns an
// error when the run aborts: preflight failure, a planning or phasing call
// failure, or cancellation. A build or audit failure marks only that stage
// and the run continues.
func (o *Orchestrator) Run(ctx context.Context, stages []*Stage) (string, error) {
	runID := uuid.New().String()

	for _, stage := range stages {
		if err := stage.Validate(); err != nil {
			return runID, fmt.Errorf("invalid stage manifest: %w", err)
		}
	}

	o.logger.Info("run %s starting: %d stages", runID, len(stages))
	o.emit(&eventlog.RunEvent{RunID: runID, EventType: eventlog.EventRunStarted})

	if err := o.runPreflight(ctx, runID); err != nil {
		o.emit(&eventlog.RunEvent{RunID: runID, EventType: eventlog.EventRunAborted, Reason: err.Error()})
		return runID, err
	}

	for _, stage := range stages {
		if err := o.runStage(ctx, runID, stage); err != nil {
			o.logger.Error("run %s aborted at stage %s: %v", runID, stage.ID, err)
			o.emit(&eventlog.RunEvent{
				RunID: runID, StageID: stage.ID,
				EventType: eventlog.EventRunAborted, Reason: err.Error(),
			})
			return runID, err
		}
	}

	o.logger.Info("run %s completed", runID)
	o.emit(&eventlog.RunEvent{RunID: runID, EventType: eventlog.EventRunCompleted})
	return runID, nil
}

// runPreflight gates the run on a connectivity probe. A skipped probe is
// recorded so the event stream shows the gate was consciously bypassed.
func (o *Orchestrator) runPreflight(ctx context.Context, runID string) error {
	if o.skipPreflight || o.prober == nil {
		o.logger.Warn("run %s: preflight skipped", runID)
		o.emit(&eventlog.RunEvent{RunID: runID, EventType: eventlog.EventPreflightSkipped})
		return nil
	}

	result := o.prober.Probe(ctx)
	o.recorder.IncPreflight(string(result.Classification))

	if !result.Reachable {
		o.emit(&eventlog.RunEvent{
			RunID:     runID,
			EventType: eventlog.EventPreflightFailed,
			Reason:    fmt.Sprintf("%s: %s", result.Classification, result.Message),
		})
		return fmt.Errorf("preflight failed (%s): %s", result.Classification, result.Message)
	}

	o.emit(&eventlog.RunEvent{RunID: runID, EventType: eventlog.EventPreflightPassed})
	return nil
}

// runStage drives one stage to a terminal status. A returned error aborts
// the whole run; a nil return with a terminal failure status lets the run
// continue with later stages.
func (o *Orchestrator) runStage(ctx context.Context, runID string, stage *Stage) error {
	o.logger.Info("stage %s (%s) starting", stage.ID, stage.Name)
	o.emit(&eventlog.RunEvent{RunID: runID, StageID: stage.ID, EventType: eventlog.EventStageStarted})

	if err := stage.Transition(StatusPlanning); err != nil {
		return err
	}
	plan := o.caller.Call(ctx, llm.RoleManager, stage.PlanPrompt.System, stage.PlanPrompt.Content)
	if plan.IsFailure() {
		return o.fatalStageFailure(ctx, runID, stage, llm.RoleManager, plan)
	}

	if err := stage.Transition(StatusPhasing); err != nil {
		return err
	}
	phaseContent := composePrompt(stage.PhasePrompt.Content, "Plan:", plan.Findings)
	phase := o.caller.Call(ctx, llm.RoleSupervisor, stage.PhasePrompt.System, phaseContent)
	if phase.IsFailure() {
		return o.fatalStageFailure(ctx, runID, stage, llm.RoleSupervisor, phase)
	}

	// No build units means there is nothing to do: the stage advances
	// straight to completed and says so explicitly in the event stream.
	if len(phase.Findings) == 0 {
		o.emit(&eventlog.RunEvent{
			RunID: runID, StageID: stage.ID,
			EventType: eventlog.EventAutoAdvance,
			Role:      string(llm.RoleSupervisor),
			Reason:    "phasing produced no build units",
		})
		return o.completeStage(runID, stage)
	}

	units := phase.Findings
	for cycle := 1; ; cycle++ {
		if err := stage.Transition(StatusBuilding); err != nil {
			return err
		}

		var outputs []envelope.Finding
		for _, unit := range units {
			buildContent := composePrompt(stage.BuildPrompt.Content, "Build unit:", []envelope.Finding{unit})
			build := o.caller.Call(ctx, llm.RoleEmployee, stage.BuildPrompt.System, buildContent)
			if build.IsFailure() {
				return o.nonFatalStageFailure(ctx, runID, stage, llm.RoleEmployee, build)
			}
			outputs = append(outputs, build.Findings...)
		}

		if err := stage.Transition(StatusAuditing); err != nil {
			return err
		}
		auditContent := composePrompt(stage.AuditPrompt.Content, "Build output:", outputs)
		audit := o.caller.Call(ctx, llm.RoleSupervisor, stage.AuditPrompt.System, auditContent)
		if audit.IsFailure() {
			return o.nonFatalStageFailure(ctx, runID, stage, llm.RoleSupervisor, audit)
		}

		if len(audit.Findings) == 0 {
			o.emit(&eventlog.RunEvent{
				RunID: runID, StageID: stage.ID,
				EventType: eventlog.EventAutoAdvance,
				Role:      string(llm.RoleSupervisor),
				Reason:    "audit found no issues",
			})
			return o.completeStage(runID, stage)
		}

		if cycle >= o.maxFixCycles {
			o.logger.Error("stage %s failed: audit still has %d findings after %d fix cycles",
				stage.ID, len(audit.Findings), cycle)
			if err := stage.Transition(StatusFailed); err != nil {
				return err
			}
			o.recorder.ObserveStage(string(StatusFailed))
			o.emit(&eventlog.RunEvent{
				RunID: runID, StageID: stage.ID,
				EventType: eventlog.EventStageFailed,
				Role:      string(llm.RoleSupervisor),
				Reason:    fmt.Sprintf("audit findings remain after %d fix cycles", cycle),
			})
			return nil
		}

		o.logger.Warn("stage %s: audit raised %d findings, fix cycle %d/%d",
			stage.ID, len(audit.Findings), cycle, o.maxFixCycles)
		units = audit.Findings
	}
}

// completeStage transitions to completed and records it.
func (o *Orchestrator) completeStage(runID string, stage *Stage) error {
	if err := stage.Transition(StatusCompleted); err != nil {
		return err
	}
	o.recorder.ObserveStage(string(StatusCompleted))
	o.logger.Info("stage %s completed", stage.ID)
	o.emit(&eventlog.RunEvent{RunID: runID, StageID: stage.ID, EventType: eventlog.EventStageCompleted})
	return nil
}

// fatalStageFailure handles a planning or phasing call failure: the stage is
// marked and the run aborts, because later stages depend on this one's plan.
func (o *Orchestrator) fatalStageFailure(ctx context.Context, runID string, stage *Stage, role llm.AgentRole, env envelope.Envelope) error {
	o.markLlmFailure(runID, stage, role, env)
	if ctx.Err() != nil {
		return fmt.Errorf("stage %s cancelled during %s call: %w", stage.ID, role, ctx.Err())
	}
	return fmt.Errorf("stage %s aborted run: %s call failed: %s", stage.ID, role, env.Reason)
}

// nonFatalStageFailure handles a build or audit call failure: the stage is
// marked and the run continues, unless the failure was a cancellation.
func (o *Orchestrator) nonFatalStageFailure(ctx context.Context, runID string, stage *Stage, role llm.AgentRole, env envelope.Envelope) error {
	o.markLlmFailure(runID, stage, role, env)
	if ctx.Err() != nil {
		return fmt.Errorf("stage %s cancelled during %s call: %w", stage.ID, role, ctx.Err())
	}
	return nil
}

func (o *Orchestrator) markLlmFailure(runID string, stage *Stage, role llm.AgentRole, env envelope.Envelope) {
	o.logger.Error("stage %s: %s call failed: %s", stage.ID, role, env.Reason)
	if err := stage.Transition(StatusLlmFailure); err != nil {
		o.logger.Error("stage %s: %v", stage.ID, err)
	}
	o.recorder.ObserveStage(string(StatusLlmFailure))
	o.emit(&eventlog.RunEvent{
		RunID: runID, StageID: stage.ID,
		EventType: eventlog.EventLlmFailure,
		Role:      string(role),
		Reason:    env.Reason,
	})
}

// emit appends an event, logging delivery failures without disturbing the run.
func (o *Orchestrator) emit(event *eventlog.RunEvent) {
	if o.sink == nil {
		return
	}
	if err := o.sink.Append(event); err != nil {
		o.logger.Warn("failed to record %s event: %v", event.EventType, err)
	}
}

// composePrompt renders findings under a heading after the base prompt text.
func composePrompt(base, heading string, findings []envelope.Finding) string {
	if len(findings) == 0 {
		return base
	}
	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString("\n\n")
	sb.WriteString(heading)
	sb.WriteString("\n")
	for _, f := range findings {
		sb.WriteString("- ")
		if f.Category != "" {
			sb.WriteString("[")
			sb.WriteString(f.Category)
			sb.WriteString("] ")
		}
		sb.WriteString(f.Summary)
		if f.Detail != "" {
			sb.WriteString(": ")
			sb.WriteString(f.Detail)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

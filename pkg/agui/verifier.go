package agui

import "fmt"

// Verifier checks that a stream of events respects protocol ordering:
// content only between start and end, no double starts, no finishing
// what never began. Feed events in arrival order through Observe.
type Verifier struct {
	activeRuns      map[string]bool
	finishedRuns    map[string]bool
	activeMessages  map[string]bool
	activeToolCalls map[string]bool
	seenToolCalls   map[string]bool
	activeSteps     map[string]bool
}

// NewVerifier creates an empty sequence verifier.
func NewVerifier() *Verifier {
	return &Verifier{
		activeRuns:      make(map[string]bool),
		finishedRuns:    make(map[string]bool),
		activeMessages:  make(map[string]bool),
		activeToolCalls: make(map[string]bool),
		seenToolCalls:   make(map[string]bool),
		activeSteps:     make(map[string]bool),
	}
}

// Observe validates the event and applies it to the sequence state.
func (v *Verifier) Observe(event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	switch e := event.(type) {
	case *RunStartedEvent:
		if v.activeRuns[e.RunID] {
			return fmt.Errorf("run %s already started", e.RunID)
		}
		if v.finishedRuns[e.RunID] {
			return fmt.Errorf("cannot restart finished run %s", e.RunID)
		}
		v.activeRuns[e.RunID] = true

	case *RunFinishedEvent:
		if !v.activeRuns[e.RunID] {
			return fmt.Errorf("cannot finish run %s that was not started", e.RunID)
		}
		delete(v.activeRuns, e.RunID)
		v.finishedRuns[e.RunID] = true

	case *RunErrorEvent:
		if e.RunID != "" {
			if !v.activeRuns[e.RunID] {
				return fmt.Errorf("cannot error run %s that was not started", e.RunID)
			}
			delete(v.activeRuns, e.RunID)
			v.finishedRuns[e.RunID] = true
		}

	case *StepStartedEvent:
		if v.activeSteps[e.StepName] {
			return fmt.Errorf("step %s already started", e.StepName)
		}
		v.activeSteps[e.StepName] = true

	case *StepFinishedEvent:
		if !v.activeSteps[e.StepName] {
			return fmt.Errorf("cannot finish step %s that was not started", e.StepName)
		}
		delete(v.activeSteps, e.StepName)

	case *TextMessageStartEvent:
		if v.activeMessages[e.MessageID] {
			return fmt.Errorf("message %s already started", e.MessageID)
		}
		v.activeMessages[e.MessageID] = true

	case *TextMessageContentEvent:
		if !v.activeMessages[e.MessageID] {
			return fmt.Errorf("cannot add content to message %s that was not started", e.MessageID)
		}

	case *TextMessageEndEvent:
		if !v.activeMessages[e.MessageID] {
			return fmt.Errorf("cannot end message %s that was not started", e.MessageID)
		}
		delete(v.activeMessages, e.MessageID)

	case *ToolCallStartEvent:
		if v.activeToolCalls[e.ToolCallID] {
			return fmt.Errorf("tool call %s already started", e.ToolCallID)
		}
		v.activeToolCalls[e.ToolCallID] = true
		v.seenToolCalls[e.ToolCallID] = true

	case *ToolCallArgsEvent:
		if !v.activeToolCalls[e.ToolCallID] {
			return fmt.Errorf("cannot add args to tool call %s that was not started", e.ToolCallID)
		}

	case *ToolCallEndEvent:
		if !v.activeToolCalls[e.ToolCallID] {
			return fmt.Errorf("cannot end tool call %s that was not started", e.ToolCallID)
		}
		delete(v.activeToolCalls, e.ToolCallID)

	case *ToolCallResultEvent:
		// Results may arrive while the call is still open or after its end,
		// depending on the producer.
		if !v.seenToolCalls[e.ToolCallID] {
			return fmt.Errorf("result for unknown tool call %s", e.ToolCallID)
		}
	}

	return nil
}

// Open reports whether any run, message, tool call or step remains
// unclosed.
func (v *Verifier) Open() bool {
	return len(v.activeRuns) > 0 ||
		len(v.activeMessages) > 0 ||
		len(v.activeToolCalls) > 0 ||
		len(v.activeSteps) > 0
}

// VerifySequence checks an entire recorded event sequence.
func VerifySequence(events []Event) error {
	verifier := NewVerifier()
	for i, event := range events {
		if err := verifier.Observe(event); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}

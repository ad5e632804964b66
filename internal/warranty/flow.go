package warranty

import (
	"errors"
	"fmt"

	"warranty-tracker/internal/models"
)

// State is a step of the warranty submission flow
type State int

const (
	StateEditing State = iota
	StatePreviewing
	StateReconciling
	StatePersisting
	StateIdle
)

var stateNames = map[State]string{
	StateEditing:     "editing",
	StatePreviewing:  "previewing",
	StateReconciling: "reconciling",
	StatePersisting:  "persisting",
	StateIdle:        "idle",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ParseState is the inverse of State.String
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown submission state %q", name)
}

// ErrInvalidTransition is returned when an event does not apply to the current state
var ErrInvalidTransition = errors.New("invalid submission transition")

// Submission tracks one warranty on its way from the form to storage.
// The zero value is a submission in the Editing state.
type Submission struct {
	State    State
	Warranty models.Warranty
	Proposal models.Proposal
	// ToSave is what the user chose to persist alongside the warranty
	ToSave models.Proposal
}

// NewSubmission starts a flow for w
func NewSubmission(w models.Warranty) *Submission {
	return &Submission{State: StateEditing, Warranty: w}
}

// Preview moves an edited warranty to the preview step
func (s *Submission) Preview() error {
	if s.State != StateEditing {
		return s.invalid("preview")
	}
	s.State = StatePreviewing
	return nil
}

// Edit returns from the preview to the form
func (s *Submission) Edit() error {
	if s.State != StatePreviewing {
		return s.invalid("edit")
	}
	s.State = StateEditing
	return nil
}

// Confirm accepts the preview. A non-empty proposal parks the submission in
// Reconciling until the user resolves it; an empty one goes straight to
// Persisting.
func (s *Submission) Confirm(proposal models.Proposal) error {
	if s.State != StatePreviewing {
		return s.invalid("confirm")
	}
	s.Proposal = proposal
	if proposal.IsEmpty() {
		s.State = StatePersisting
		return nil
	}
	s.State = StateReconciling
	return nil
}

// Resolve records the user's selection and moves on to Persisting
func (s *Submission) Resolve(sel Selection) error {
	if s.State != StateReconciling {
		return s.invalid("resolve")
	}
	s.ToSave = Select(s.Proposal, sel)
	s.State = StatePersisting
	return nil
}

// Skip discards every proposed entity and moves on to Persisting
func (s *Submission) Skip() error {
	if s.State != StateReconciling {
		return s.invalid("skip")
	}
	s.ToSave = models.Proposal{}
	s.State = StatePersisting
	return nil
}

// Persisted finishes the flow
func (s *Submission) Persisted() error {
	if s.State != StatePersisting {
		return s.invalid("persisted")
	}
	s.State = StateIdle
	return nil
}

func (s *Submission) invalid(event string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, event, s.State)
}

package provision

// StepState is the state of one progress step.
type StepState string

const (
	StepPending   StepState = "pending"
	StepActive    StepState = "active"
	StepCompleted StepState = "completed"
)

// Step is one named stage of an install attempt.
type Step struct {
	Name  string    `json:"name"`
	Label string    `json:"label"`
	State StepState `json:"state"`
}

// Progress tracks the ordered install step sequence. Exactly one step is
// active at a time until every step is completed or the sequence is
// aborted by a failure.
type Progress struct {
	steps   []Step
	current int
	aborted bool
}

// NewProgress builds the standard four-step install sequence with the
// first step active.
func NewProgress() *Progress {
	return &Progress{
		steps: []Step{
			{Name: "download", Label: "Downloading drivers", State: StepActive},
			{Name: "install-driver", Label: "Installing drivers", State: StepPending},
			{Name: "configure", Label: "Configuring device", State: StepPending},
			{Name: "finalize", Label: "Finishing up", State: StepPending},
		},
	}
}

// Steps returns a copy of the current step states.
func (p *Progress) Steps() []Step {
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// Current returns the active step, or ok=false when the sequence has
// finished or was aborted.
func (p *Progress) Current() (Step, bool) {
	if p.aborted || p.current >= len(p.steps) {
		return Step{}, false
	}
	return p.steps[p.current], true
}

// Advance completes the active step and activates the next one. Returns
// the newly activated step, or ok=false when the sequence is done.
func (p *Progress) Advance() (Step, bool) {
	if p.aborted || p.current >= len(p.steps) {
		return Step{}, false
	}
	p.steps[p.current].State = StepCompleted
	p.current++
	if p.current >= len(p.steps) {
		return Step{}, false
	}
	p.steps[p.current].State = StepActive
	return p.steps[p.current], true
}

// CompleteAll marks every remaining step completed.
func (p *Progress) CompleteAll() {
	for i := range p.steps {
		p.steps[i].State = StepCompleted
	}
	p.current = len(p.steps)
}

// Abort stops the sequence: the active step and everything after it stay
// short of completed, and no further transitions are possible.
func (p *Progress) Abort() {
	if p.current < len(p.steps) {
		p.steps[p.current].State = StepPending
	}
	p.aborted = true
}

// Done reports whether every step completed.
func (p *Progress) Done() bool {
	return !p.aborted && p.current >= len(p.steps)
}

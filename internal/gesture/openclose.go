package gesture

import "github.com/ayusman/handrehab/internal/detector"

// HandState is the curl classification of a hand.
type HandState int

const (
	StateUnknown HandState = iota
	StateFullyOpen
	StateHalfClosed
	StateFullyClosed
)

func (s HandState) String() string {
	switch s {
	case StateFullyOpen:
		return "Fully Open"
	case StateHalfClosed:
		return "Half Closed"
	case StateFullyClosed:
		return "Fully Closed"
	default:
		return "Unknown"
	}
}

// CounterCycles counts closed-to-open transitions.
const CounterCycles = "cycles"

// OpenClose counts open/close cycles of one hand.
type OpenClose struct {
	pairs    []CurlPair
	required []detector.ID
	previous HandState
	current  HandState
	cycles   int
}

// NewOpenClose creates an open/close detector. An empty pair list uses DefaultCurlPairs.
func NewOpenClose(pairs []CurlPair) *OpenClose {
	if len(pairs) == 0 {
		pairs = DefaultCurlPairs
	}
	required := make([]detector.ID, 0, 2*len(pairs))
	for _, p := range pairs {
		required = append(required, p.Tip, p.Joint)
	}
	return &OpenClose{pairs: pairs, required: required}
}

func (d *OpenClose) Kind() Kind { return KindOpenClose }
func (d *OpenClose) Taxonomy() detector.Taxonomy { return detector.TaxonomyHand }
func (d *OpenClose) Required() []detector.ID { return d.required }

// Classify maps a number of curled fingers out of total to a hand state.
func Classify(curled, total int) HandState {
	switch {
	case curled == 0:
		return StateFullyOpen
	case curled == total:
		return StateFullyClosed
	default:
		return StateHalfClosed
	}
}

// Observe advances the state machine with an already classified state.
// It reports whether a cycle was counted.
func (d *OpenClose) Observe(state HandState) bool {
	counted := d.previous == StateFullyClosed && state == StateFullyOpen
	if counted {
		d.cycles++
	}
	d.previous = state
	d.current = state
	return counted
}

// Update classifies the hand by comparing each tip with its joint. Image y grows
// downward, so a tip with a larger y than its joint is curled toward the palm.
func (d *OpenClose) Update(s *detector.Snapshot) {
	curled := 0
	for _, p := range d.pairs {
		tip, _ := s.Point(p.Tip)
		joint, _ := s.Point(p.Joint)
		if tip.Y > joint.Y {
			curled++
		}
	}
	d.Observe(Classify(curled, len(d.pairs)))
}

// Lost only blanks the label. The previous state survives, so a hand that leaves the
// frame closed and returns open completes its cycle.
func (d *OpenClose) Lost() {
	d.current = StateUnknown
}

func (d *OpenClose) Reset() {
	d.previous = StateUnknown
	d.current = StateUnknown
	d.cycles = 0
}

// State returns the latest classification.
func (d *OpenClose) State() HandState { return d.current }

// Cycles returns the number of counted cycles.
func (d *OpenClose) Cycles() int { return d.cycles }

func (d *OpenClose) Result() Result {
	return Result{
		Kind:     KindOpenClose,
		Label:    d.current.String(),
		Counters: map[string]int{CounterCycles: d.cycles},
	}
}

package harness

// TraceEvent records the outcome of one scenario step.
type TraceEvent struct {
	StepIndex int    `json:"step_index"`
	Kind      string `json:"kind"`
	CID       string `json:"cid,omitempty"`
	Sequence  int64  `json:"sequence,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Result is the outcome of running a Scenario to completion.
type Result struct {
	// Pass is true if every step committed without error.
	Pass bool `json:"pass"`

	// Trace contains one TraceEvent per committed event, in order (a step
	// that commits several events records several), plus one for the
	// failing step if a step fails.
	Trace []TraceEvent `json:"trace"`
}

func newResult() *Result {
	return &Result{Pass: true}
}

func (r *Result) recordCommitted(stepIndex int, kind string, cid string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{StepIndex: stepIndex, Kind: kind, CID: cid, Sequence: seq})
}

func (r *Result) recordError(stepIndex int, kind string, err error) {
	r.Pass = false
	r.Trace = append(r.Trace, TraceEvent{StepIndex: stepIndex, Kind: kind, Error: err.Error()})
}

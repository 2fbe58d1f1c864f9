package pipeline

// Output is the normalized result of one task.
type Output struct {
	Task string `json:"task"`
	Text string `json:"text"`
}

// Outputs is an ordered, immutable set of task outputs keyed by task name.
type Outputs struct {
	items []Output
}

// NewOutputs builds a collection from outs; later entries replace earlier
// ones with the same task name.
func NewOutputs(outs ...Output) Outputs {
	var o Outputs
	for _, out := range outs {
		o = o.With(out)
	}
	return o
}

// With returns a copy of o with out added, replacing any prior output of the
// same task in place.
func (o Outputs) With(out Output) Outputs {
	items := make([]Output, len(o.items), len(o.items)+1)
	copy(items, o.items)
	for i := range items {
		if items[i].Task == out.Task {
			items[i] = out
			return Outputs{items: items}
		}
	}
	return Outputs{items: append(items, out)}
}

func (o Outputs) Get(task string) (Output, bool) {
	for _, out := range o.items {
		if out.Task == task {
			return out, true
		}
	}
	return Output{}, false
}

// All returns a copy of the outputs in insertion order.
func (o Outputs) All() []Output {
	return append([]Output(nil), o.items...)
}

func (o Outputs) Len() int { return len(o.items) }

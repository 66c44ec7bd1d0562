package markov

// ModelStats holds aggregated statistics for a single model.
type ModelStats struct {
	Keys        int // The number of distinct n-gram keys.
	Transitions int // The total number of (key, successor) pairs; equals corpus length minus order.
	Vocabulary  int // The number of unique tokens.
}

// Stats returns a snapshot of statistics for the model.
func (m *Model[T]) Stats() ModelStats {
	transitions := 0
	for _, succs := range m.chain {
		transitions += len(succs)
	}
	return ModelStats{
		Keys:        len(m.chain),
		Transitions: transitions,
		Vocabulary:  len(m.tokens),
	}
}

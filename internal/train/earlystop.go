package train

// earlyStopper tracks the best validation loss seen so far and counts
// epochs without improvement. "Improvement" means the loss decreases
// by strictly more than minDelta; ties count against patience.
type earlyStopper struct {
	patience int
	minDelta float32

	hasBest   bool
	best      float32
	sinceBest int
}

func newEarlyStopper(patience int, minDelta float32) *earlyStopper {
	return &earlyStopper{patience: patience, minDelta: minDelta}
}

// observe records one epoch's loss. improved is true if this epoch set
// a new best; stop is true once the patience window is exhausted.
func (e *earlyStopper) observe(loss float32) (improved, stop bool) {
	if !e.hasBest || loss < e.best-e.minDelta {
		e.hasBest = true
		e.best = loss
		e.sinceBest = 0
		return true, false
	}
	e.sinceBest++
	return false, e.sinceBest >= e.patience
}

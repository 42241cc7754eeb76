package cycle

// Experiment owns the ordered list of selection cycles. Cycles navigate
// their siblings through an index into this owning list rather than a
// back-pointer, avoiding the cyclic ownership the design notes warn about
// (spec.md §9, "Cycles navigating their siblings").
type Experiment struct {
	Cycles []*Cycle
}

// NewExperiment wraps an ordered list of cycles.
func NewExperiment(cycles []*Cycle) *Experiment {
	return &Experiment{Cycles: cycles}
}

// ByName returns the cycle with the given name, or nil if none matches.
func (e *Experiment) ByName(name string) *Cycle {
	for _, c := range e.Cycles {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// nextFrom returns the next non-nil cycle after index i in Cycles, or nil if
// there is none (or i is out of range).
func (e *Experiment) nextFrom(i int) *Cycle {
	for j := i + 1; j >= 0 && j < len(e.Cycles); j++ {
		if e.Cycles[j] != nil {
			return e.Cycles[j]
		}
	}
	return nil
}

func (e *Experiment) prevFrom(i int) *Cycle {
	if i-1 < 0 || i-1 >= len(e.Cycles) {
		return nil
	}
	return e.Cycles[i-1]
}

// indexOf returns the index of c within e.Cycles, or -1 if not found.
func (e *Experiment) indexOf(c *Cycle) int {
	for i, x := range e.Cycles {
		if x == c {
			return i
		}
	}
	return -1
}

// NextCycle returns the next non-nil cycle following c in the experiment's
// cycle list, or nil if there is none (or c is not a member).
func (e *Experiment) NextCycle(c *Cycle) *Cycle {
	i := e.indexOf(c)
	if i < 0 {
		return nil
	}
	return e.nextFrom(i)
}

// PreviousCycle returns the cycle immediately preceding c in the
// experiment's cycle list, or nil if c is first (or not a member).
func (e *Experiment) PreviousCycle(c *Cycle) *Cycle {
	i := e.indexOf(c)
	if i < 0 {
		return nil
	}
	return e.prevFrom(i)
}

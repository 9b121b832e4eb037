package types

// RunSummary is implemented by every processor result so the scheduler can
// log, publish and export counts without knowing the concrete type.
type RunSummary interface {
	Counts() map[string]int64
}

// Count is a bare RunSummary for processors that report a single number.
type Count struct {
	Key   string
	Value int64
}

func (c Count) Counts() map[string]int64 {
	return map[string]int64{c.Key: c.Value}
}

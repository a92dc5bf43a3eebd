package gate

// Edge classifies the change between two consecutive trigger samples.
type Edge int

const (
	NoChange Edge = iota
	RisingEdge
	FallingEdge
)

func (e Edge) String() string {
	switch e {
	case RisingEdge:
		return "rising"
	case FallingEdge:
		return "falling"
	}
	return "none"
}

// Detect compares the previous and current sample. Released to held is a
// rising edge, held to released a falling edge.
func Detect(prev, cur bool) Edge {
	switch {
	case !prev && cur:
		return RisingEdge
	case prev && !cur:
		return FallingEdge
	}
	return NoChange
}

package state

// Ternary is a three-valued boolean used at the Boolean precision tier:
// a coarse flag may be definitely false, definitely true, or undecided.
type Ternary int8

const (
	False Ternary = iota
	True
	Maybe
)

func (t Ternary) String() string {
	switch t {
	case False:
		return "false"
	case True:
		return "true"
	default:
		return "maybe"
	}
}

// Not negates a ternary, leaving Maybe undecided.
func (t Ternary) Not() Ternary {
	switch t {
	case False:
		return True
	case True:
		return False
	default:
		return Maybe
	}
}

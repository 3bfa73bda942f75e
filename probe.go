package probetable

import (
	"strings"

	"github.com/pingcap/errors"
)

// Strategy selects how a probe sequence walks the slots after the first
// collision.
type Strategy uint8

const (
	Linear Strategy = iota
	Quadratic
	Double
)

func (s Strategy) String() string {
	switch s {
	case Linear:
		return "linear"
	case Quadratic:
		return "quadratic"
	case Double:
		return "double"
	}
	return "unknown"
}

func (s Strategy) valid() bool {
	return s <= Double
}

// ParseStrategy accepts the names returned by String, case-insensitively.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linear":
		return Linear, nil
	case "quadratic":
		return Quadratic, nil
	case "double":
		return Double, nil
	}
	return 0, errors.Annotatef(ErrInvalidArgument, "unknown strategy %q", name)
}

// Index returns the slot examined on the given step of a probe sequence that
// starts at base. Step 0 is always base itself. stride is the double hashing
// step size (stepPrime - key mod stepPrime) and is ignored by the other
// strategies.
//
// NOTE: Quadratic probing only reaches about half of the residues of a prime
// capacity, so a bounded scan can report a full table while empty slots
// remain.
func (s Strategy) Index(base, step, stride, capacity int) int {
	// uint64 so that step*step can't overflow for any realistic capacity
	b, st, c := uint64(base), uint64(step), uint64(capacity)
	switch s {
	case Quadratic:
		return int((b + st*st) % c)
	case Double:
		return int((b + st*uint64(stride)) % c)
	default:
		return int((b + st) % c)
	}
}

// mod is key mod m mapped into [0, m) for negative keys too.
func mod[K Integer](k K, m int) int {
	r := k % K(m)
	if r < 0 {
		r += K(m)
	}
	return int(r)
}

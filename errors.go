package probetable

import "github.com/pingcap/errors"

var (
	// ErrInvalidArgument is returned for non-positive sizes, unknown
	// strategies and rehash hints that cannot hold the live entries.
	ErrInvalidArgument = errors.New("probetable: invalid argument")

	// ErrTableFull is returned when an insert examined every one of the
	// capacity probe positions without finding a usable slot.
	ErrTableFull = errors.New("probetable: table full")
)

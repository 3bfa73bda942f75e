package probetable

import (
	"github.com/pingcap/errors"
	"go.uber.org/zap"
)

// Integer is the key space of a table. The primary hash is the key modulo
// the capacity so keys need to be integers that can hold any capacity.
type Integer interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}

const (
	// Grow before an insert once more than this share of slots is occupied.
	maxLoadFactor = 0.7
	growFactor    = 2
)

type slotState uint8

const (
	slotEmpty slotState = iota
	slotOccupied
	slotDeleted // tombstone
)

type slot[K Integer, V any] struct {
	key   K
	value V
	state slotState
}

// InsertOutcome tells apart fresh inserts from in-place updates.
type InsertOutcome uint8

const (
	Failed InsertOutcome = iota // goes with a non-nil error
	Inserted
	Updated
)

func (o InsertOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	}
	return "failed"
}

// An open addressing hash table with a pluggable probe sequence. Not safe for
// concurrent use.
type Table[K Integer, V any] struct {
	slots     []slot[K, V]
	used      int // OCCUPIED slots
	tombs     int // DELETED slots
	stepPrime int // double hashing stride modulus, ~len(slots)/2

	strategy   Strategy
	autoRehash bool
	stats      Stats
	logger     *zap.Logger
}

type options struct {
	autoRehash bool
	logger     *zap.Logger
}

// Option configures a Table.
type Option func(*options)

// WithAutoRehash toggles doubling the table once the load factor goes past
// 0.7. On by default.
func WithAutoRehash(on bool) Option {
	return func(o *options) { o.autoRehash = on }
}

// WithLogger makes the table log its rehashes at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New makes a table with a prime capacity of at least size slots.
func New[K Integer, V any](size int, strategy Strategy, opts ...Option) (*Table[K, V], error) {
	if size <= 0 {
		return nil, errors.Annotatef(ErrInvalidArgument, "size %d", size)
	}
	if !strategy.valid() {
		return nil, errors.Annotatef(ErrInvalidArgument, "strategy %d", strategy)
	}

	o := options{autoRehash: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	m := new(Table[K, V])
	m.strategy = strategy
	m.autoRehash = o.autoRehash
	m.logger = o.logger
	m.reset(NextPrime(size))
	return m, nil
}

func (m *Table[K, V]) reset(capacity int) {
	m.slots = make([]slot[K, V], capacity)
	m.stepPrime = NextPrime(capacity / 2)
	m.used = 0
	m.tombs = 0
}

// Len is the number of live entries.
func (m *Table[K, V]) Len() int { return m.used }

// Cap is the number of slots. Always a prime.
func (m *Table[K, V]) Cap() int { return len(m.slots) }

// StepPrime is the prime that double hashing derives its strides from. It is
// the first prime at or above half the capacity and changes with every
// rehash.
func (m *Table[K, V]) StepPrime() int { return m.stepPrime }

// Tombstones is the number of slots that held an entry which has since been
// erased. Inserts reuse them, and a rehash drops them all.
func (m *Table[K, V]) Tombstones() int { return m.tombs }

func (m *Table[K, V]) Strategy() Strategy { return m.strategy }
func (m *Table[K, V]) AutoRehash() bool   { return m.autoRehash }

// Stats returns a snapshot of the counters.
func (m *Table[K, V]) Stats() Stats { return m.stats }

// LoadFactor is the share of slots holding a live entry. Tombstones don't
// count, so a table full of erased slots still reports 0.
func (m *Table[K, V]) LoadFactor() float64 {
	return float64(m.used) / float64(len(m.slots))
}

// start returns the home slot of k and the stride used by double hashing.
func (m *Table[K, V]) start(k K) (base, stride int) {
	base = mod(k, len(m.slots))
	if m.strategy == Double {
		stride = m.stepPrime - mod(k, m.stepPrime)
	}
	return base, stride
}

// ProbeIndex returns the slot that an operation on k examines on the given
// step.
func (m *Table[K, V]) ProbeIndex(k K, step int) int {
	base, stride := m.start(k)
	return m.strategy.Index(base, step, stride, len(m.slots))
}

// Insert puts the key-value pair into the table, overwriting the value if the
// key is already present. The entry goes into the first slot on the probe
// sequence that doesn't hold a live entry. On error the outcome is Failed and
// the table is unchanged.
func (m *Table[K, V]) Insert(k K, v V) (InsertOutcome, error) {
	if m.autoRehash && m.LoadFactor() > maxLoadFactor {
		if err := m.Rehash(len(m.slots) * growFactor); err != nil {
			return Failed, errors.Trace(err)
		}
	}
	return m.insert(k, v)
}

// insert is Insert without the growth check.
func (m *Table[K, V]) insert(k K, v V) (InsertOutcome, error) {
	capacity := len(m.slots)
	base, stride := m.start(k)

	// Probes and collisions are counted up to the first slot without a live
	// entry, which is where the entry goes. If that slot is a tombstone the
	// key may still sit further down the sequence, so the scan goes on to the
	// first empty slot without counting.
	target, targetStep := -1, 0
	step := 0
	for ; step < capacity; step++ {
		idx := m.strategy.Index(base, step, stride, capacity)
		s := &m.slots[idx]

		if s.state == slotOccupied {
			if s.key == k {
				s.value = v
				if target < 0 {
					m.stats.Collisions += int64(step)
				} else {
					m.stats.Collisions += int64(targetStep)
				}
				return Updated, nil
			}
			continue
		}

		if target < 0 {
			target, targetStep = idx, step
		}
		if s.state == slotEmpty {
			break
		}
	}

	if target < 0 {
		m.stats.Collisions += int64(step)
		return Failed, errors.Annotatef(ErrTableFull, "key %v after %d probes", k, step)
	}
	m.stats.Collisions += int64(targetStep)

	s := &m.slots[target]
	if s.state == slotDeleted {
		m.tombs--
	}
	s.key = k
	s.value = v
	s.state = slotOccupied
	m.used++

	m.stats.InsertProbes += int64(targetStep + 1)
	m.stats.Inserts++
	return Inserted, nil
}

// find returns the slot index holding k or -1, and the number of slots it
// examined. An empty slot ends the search: an insert of k would have taken it.
func (m *Table[K, V]) find(k K) (int, int) {
	capacity := len(m.slots)
	base, stride := m.start(k)

	probes := 0
	for step := 0; step < capacity; step++ {
		idx := m.strategy.Index(base, step, stride, capacity)
		s := &m.slots[idx]
		probes++

		switch {
		case s.state == slotEmpty:
			return -1, probes
		case s.state == slotOccupied && s.key == k:
			return idx, probes
		}
	}
	return -1, probes
}

// Search returns the value stored for k. It walks the probe sequence of k
// until it finds the key or an empty slot, stepping over tombstones, and
// gives up after capacity slots. Hits and misses both count towards the
// search stats.
func (m *Table[K, V]) Search(k K) (V, bool) {
	idx, probes := m.find(k)
	m.stats.SearchProbes += int64(probes)
	m.stats.Searches++

	if idx < 0 {
		var zerov V
		return zerov, false
	}
	return m.slots[idx].value, true
}

// Erase leaves a tombstone in place of k. Erasing a missing key does nothing.
func (m *Table[K, V]) Erase(k K) {
	idx, probes := m.find(k)
	m.stats.DeleteProbes += int64(probes)
	m.stats.Deletes++

	if idx < 0 {
		return
	}

	s := &m.slots[idx]
	var zerov V
	s.value = zerov
	s.state = slotDeleted
	m.used--
	m.tombs++
}

// Rehash moves every live entry into a fresh table of NextPrime(hint) slots.
// Tombstones are dropped. The moves go through the regular insert path, without
// growing again, so they show up in the insert stats. If an entry can't be
// placed, the table is left as it was, stats included.
func (m *Table[K, V]) Rehash(hint int) error {
	if hint <= 0 {
		return errors.Annotatef(ErrInvalidArgument, "rehash hint %d", hint)
	}
	newCap := NextPrime(hint)
	if newCap < m.used {
		return errors.Annotatef(ErrInvalidArgument, "rehash to %d slots cannot hold %d entries", newCap, m.used)
	}

	old := m.slots
	oldUsed, oldTombs, oldStepPrime := m.used, m.tombs, m.stepPrime
	oldStats := m.stats

	m.reset(newCap)
	for i := range old {
		if old[i].state != slotOccupied {
			continue
		}
		if _, err := m.insert(old[i].key, old[i].value); err != nil {
			m.slots = old
			m.used, m.tombs, m.stepPrime = oldUsed, oldTombs, oldStepPrime
			m.stats = oldStats
			return errors.Trace(err)
		}
	}

	m.logger.Debug("rehashed table",
		zap.Stringer("strategy", m.strategy),
		zap.Int("from", len(old)),
		zap.Int("to", len(m.slots)),
		zap.Int("entries", m.used))
	return nil
}

// Clone returns a deep copy of the table, stats included.
func (m *Table[K, V]) Clone() *Table[K, V] {
	c := *m
	c.slots = make([]slot[K, V], len(m.slots))
	copy(c.slots, m.slots)
	return &c
}

// Iterates over all of the key-value pairs in slot order. Don't modify the
// table while iterating.
func (m *Table[K, V]) Iterate(iter func(K, V) bool) {
	for i := range m.slots {
		s := &m.slots[i]
		if s.state != slotOccupied {
			continue
		}
		if ok := iter(s.key, s.value); !ok {
			return
		}
	}
}

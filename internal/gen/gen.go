// Package gen makes the key-value workloads that the benchmark driver feeds
// into the tables.
package gen

import (
	"strings"

	"github.com/pingcap/errors"
	"golang.org/x/exp/rand"
)

// Values are drawn uniformly from [1, MaxValue].
const MaxValue = 1_000_000

// Number of key runs in a clustered workload.
const clusters = 5

// KV is one key-value pair of a workload.
type KV struct {
	Key   int
	Value int
}

// Pattern is the shape of the generated key set.
type Pattern uint8

const (
	Random Pattern = iota
	Sequential
	Clustered
)

func (p Pattern) String() string {
	switch p {
	case Random:
		return "RANDOM"
	case Sequential:
		return "SEQUENTIAL"
	case Clustered:
		return "CLUSTERED"
	}
	return "UNKNOWN"
}

func ParsePattern(name string) (Pattern, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "RANDOM":
		return Random, nil
	case "SEQUENTIAL":
		return Sequential, nil
	case "CLUSTERED":
		return Clustered, nil
	}
	return 0, errors.Errorf("unknown pattern %q", name)
}

// Generate makes m pairs of the pattern with keys in [1, keyLim] where the
// pattern uses a limit.
func (p Pattern) Generate(r *rand.Rand, m, keyLim int) ([]KV, error) {
	switch p {
	case Random:
		return RandomKV(r, m, keyLim)
	case Sequential:
		return SequentialKV(r, m), nil
	case Clustered:
		return ClusteredKV(r, m, keyLim), nil
	}
	return nil, errors.Errorf("unknown pattern %d", p)
}

func value(r *rand.Rand) int {
	return 1 + r.Intn(MaxValue)
}

// RandomKV returns m pairs with distinct keys drawn uniformly from [1, keyLim].
func RandomKV(r *rand.Rand, m, keyLim int) ([]KV, error) {
	if m > keyLim {
		return nil, errors.Errorf("cannot draw %d distinct keys from [1, %d]", m, keyLim)
	}
	used := make(map[int]struct{}, m)
	kvs := make([]KV, 0, m)
	for len(kvs) < m {
		k := 1 + r.Intn(keyLim)
		if _, ok := used[k]; ok {
			continue
		}
		used[k] = struct{}{}
		kvs = append(kvs, KV{Key: k, Value: value(r)})
	}
	return kvs, nil
}

// SequentialKV returns keys 1..m with random values.
func SequentialKV(r *rand.Rand, m int) []KV {
	kvs := make([]KV, 0, m)
	for i := 1; i <= m; i++ {
		kvs = append(kvs, KV{Key: i, Value: value(r)})
	}
	return kvs
}

// ClusteredKV returns m keys in five runs of consecutive keys. Runs start
// keyLim/5 apart from 1, and whatever doesn't divide evenly goes after the
// last run.
func ClusteredKV(r *rand.Rand, m, keyLim int) []KV {
	per := m / clusters
	kvs := make([]KV, 0, m)
	base := 1
	for c := 0; c < clusters; c++ {
		for i := 0; i < per && len(kvs) < m; i++ {
			kvs = append(kvs, KV{Key: base + i, Value: value(r)})
		}
		base += keyLim / clusters
	}
	for len(kvs) < m {
		kvs = append(kvs, KV{Key: base, Value: value(r)})
		base++
	}
	return kvs
}

// MissKeys returns n distinct keys from [1, keyLim] that are not in exist.
func MissKeys(r *rand.Rand, n int, exist map[int]struct{}, keyLim int) ([]int, error) {
	free := keyLim
	for k := range exist {
		if k >= 1 && k <= keyLim {
			free--
		}
	}
	if n > free {
		return nil, errors.Errorf("only %d keys of [1, %d] are free, need %d", free, keyLim, n)
	}

	used := make(map[int]struct{}, n)
	keys := make([]int, 0, n)
	for len(keys) < n {
		k := 1 + r.Intn(keyLim)
		if _, ok := exist[k]; ok {
			continue
		}
		if _, ok := used[k]; ok {
			continue
		}
		used[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys, nil
}

// Keys returns the key set of kvs.
func Keys(kvs []KV) map[int]struct{} {
	keys := make(map[int]struct{}, len(kvs))
	for _, kv := range kvs {
		keys[kv.Key] = struct{}{}
	}
	return keys
}

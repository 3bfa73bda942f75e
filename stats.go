package probetable

// Stats are cumulative counters over the lifetime of a table. Rehashing does
// not reset them, and the re-inserts done by a rehash are counted like any
// other insert.
type Stats struct {
	InsertProbes int64
	SearchProbes int64
	DeleteProbes int64
	Collisions   int64

	Inserts  int64 // new entries only, in-place updates are not counted
	Searches int64
	Deletes  int64
}

func (s Stats) AvgInsertProbes() float64 { return avg(s.InsertProbes, s.Inserts) }
func (s Stats) AvgSearchProbes() float64 { return avg(s.SearchProbes, s.Searches) }
func (s Stats) AvgDeleteProbes() float64 { return avg(s.DeleteProbes, s.Deletes) }

// Sub returns the counters accumulated since the snapshot old was taken.
func (s Stats) Sub(old Stats) Stats {
	return Stats{
		InsertProbes: s.InsertProbes - old.InsertProbes,
		SearchProbes: s.SearchProbes - old.SearchProbes,
		DeleteProbes: s.DeleteProbes - old.DeleteProbes,
		Collisions:   s.Collisions - old.Collisions,
		Inserts:      s.Inserts - old.Inserts,
		Searches:     s.Searches - old.Searches,
		Deletes:      s.Deletes - old.Deletes,
	}
}

func avg(sum, n int64) float64 {
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

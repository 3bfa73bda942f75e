package probetable

// Clusters are maximal runs of OCCUPIED slots in physical slot order. Runs
// do not wrap around from the last slot to the first one even though probe
// sequences do. Empty and deleted slots both end a run.

// MaxClusterLength returns the length of the longest cluster.
func (m *Table[K, V]) MaxClusterLength() int {
	var cur, max int
	for i := range m.slots {
		if m.slots[i].state != slotOccupied {
			cur = 0
			continue
		}
		cur++
		if cur > max {
			max = cur
		}
	}
	return max
}

// AvgClusterLength returns the mean cluster length, 0 for a table without
// entries.
func (m *Table[K, V]) AvgClusterLength() float64 {
	var cur, total, n int
	for i := range m.slots {
		if m.slots[i].state == slotOccupied {
			cur++
			continue
		}
		if cur > 0 {
			total += cur
			n++
			cur = 0
		}
	}
	if cur > 0 {
		total += cur
		n++
	}

	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

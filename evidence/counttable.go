// Package evidence implements the evidence tabulator:
// per-variant count tables keyed by repeat-length/motif-copy bins, the
// breakpoint-spanning counter (delegated to package classify), and the
// off-target in-repeat-pair counter.
package evidence

import "sort"

// CountTable maps an integer key (e.g. number of repeat units observed)
// to a non-negative count. Insertion order is
// irrelevant; it supports increment-by-1 and collapse-top.
type CountTable map[int]int

// NewCountTable returns an empty table.
func NewCountTable() CountTable { return make(CountTable) }

// Inc increments the count at key by 1.
func (t CountTable) Inc(key int) { t[key]++ }

// Sum returns the total of all values.
func (t CountTable) Sum() int {
	s := 0
	for _, v := range t {
		s += v
	}
	return s
}

// Keys returns the table's keys in ascending order.
func (t CountTable) Keys() []int {
	keys := make([]int, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// MaxKey returns the largest key present, and whether the table is
// non-empty.
func (t CountTable) MaxKey() (int, bool) {
	keys := t.Keys()
	if len(keys) == 0 {
		return 0, false
	}
	return keys[len(keys)-1], true
}

// CollapseTop merges all keys >= k into the sentinel key k, preserving
// the sum of values.
func (t CountTable) CollapseTop(k int) {
	merged := 0
	for key, v := range t {
		if key >= k {
			merged += v
			delete(t, key)
		}
	}
	if merged > 0 {
		t[k] += merged
	}
}

// Clone returns an independent copy of t.
func (t CountTable) Clone() CountTable {
	out := make(CountTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

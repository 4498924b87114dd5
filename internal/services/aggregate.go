package services

import "sort"

// ValueCount is one entry of a frequency breakdown
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// frequency counts values and remembers the order they were first seen,
// which is the tie-break for every "most common" statistic.
type frequency[K comparable] struct {
	counts map[K]int
	order  []K
}

func newFrequency[K comparable]() *frequency[K] {
	return &frequency[K]{counts: make(map[K]int)}
}

func (f *frequency[K]) add(value K) {
	if _, seen := f.counts[value]; !seen {
		f.order = append(f.order, value)
	}
	f.counts[value]++
}

func (f *frequency[K]) len() int {
	return len(f.order)
}

// mode returns the most frequent value; ties go to the earliest first occurrence
func (f *frequency[K]) mode() (value K, count int, ok bool) {
	for _, v := range f.order {
		if c := f.counts[v]; c > count {
			value, count, ok = v, c, true
		}
	}
	return value, count, ok
}

// ranked returns values by descending count, ties in first-occurrence order
func (f *frequency[K]) ranked() []K {
	out := make([]K, len(f.order))
	copy(out, f.order)
	sort.SliceStable(out, func(i, j int) bool {
		return f.counts[out[i]] > f.counts[out[j]]
	})
	return out
}

func rankedCounts(f *frequency[string]) []ValueCount {
	values := f.ranked()
	out := make([]ValueCount, 0, len(values))
	for _, v := range values {
		out = append(out, ValueCount{Value: v, Count: f.counts[v]})
	}
	return out
}

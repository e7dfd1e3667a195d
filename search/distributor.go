package search

import "sync/atomic"

// Distributor hands out indices 0..total-1, each exactly once, in increasing
// order of assignment. It never blocks.
type Distributor struct {
	next  atomic.Int64
	total int64
}

func NewDistributor(total int) *Distributor {
	return &Distributor{total: int64(total)}
}

// Next returns the next unclaimed index, or false once all indices are claimed.
func (d *Distributor) Next() (int, bool) {
	idx := d.next.Add(1) - 1
	if idx >= d.total {
		return 0, false
	}
	return int(idx), true
}

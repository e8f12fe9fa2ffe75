package core

import "github.com/google/btree"

// restingOrder is an internal book entry. Never exposed.
type restingOrder struct {
	id    string
	side  Side
	price float64
	size  int64
	time  int64
}

func (o *restingOrder) isFilled() bool { return o.size <= 0 }

// bidLess orders the bid side price descending, then time ascending,
// then id ascending, so Min() is the best bid.
func bidLess(a, b *restingOrder) bool {
	if a.price != b.price {
		return a.price > b.price
	}
	if a.time != b.time {
		return a.time < b.time
	}
	return a.id < b.id
}

// askLess orders the ask side price ascending, then time ascending,
// then id ascending, so Min() is the best ask.
func askLess(a, b *restingOrder) bool {
	if a.price != b.price {
		return a.price < b.price
	}
	if a.time != b.time {
		return a.time < b.time
	}
	return a.id < b.id
}

const btreeDegree = 16

// bookSide is one side of the book: a B-tree in priority order. The id
// index used for cancels lives on the Book.
type bookSide struct {
	isBid bool
	tree  *btree.BTreeG[*restingOrder]
}

func newBookSide(isBid bool) *bookSide {
	less := askLess
	if isBid {
		less = bidLess
	}
	return &bookSide{
		isBid: isBid,
		tree:  btree.NewG(btreeDegree, less),
	}
}

func (bs *bookSide) insert(o *restingOrder) {
	bs.tree.ReplaceOrInsert(o)
}

func (bs *bookSide) remove(o *restingOrder) {
	bs.tree.Delete(o)
}

func (bs *bookSide) best() (*restingOrder, bool) {
	return bs.tree.Min()
}

// levels aggregates resting orders into price levels in priority order.
// n <= 0 means all levels.
func (bs *bookSide) levels(n int) []Level {
	var out []Level
	bs.tree.Ascend(func(o *restingOrder) bool {
		if len(out) > 0 && out[len(out)-1].Price == o.price {
			out[len(out)-1].Size += o.size
			return true
		}
		if n > 0 && len(out) >= n {
			return false
		}
		out = append(out, Level{Price: o.price, Size: o.size})
		return true
	})
	return out
}

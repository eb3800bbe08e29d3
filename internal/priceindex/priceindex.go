// Package priceindex implements the ordered price -> FIFO-of-orders
// structure backing each side of a book: a balanced ordered map over price
// (O(log P) insertion, O(1)-amortized best-price access) whose values are
// doubly-linked FIFO queues preserving arrival order within a price.
package priceindex

import (
	"container/list"

	"github.com/tidwall/btree"

	"venue/internal/domain"
)

// PriceLevel is one exact price on one side of a book: the price itself and
// the FIFO of live orders resting at it. The FIFO is a container/list so
// Remove is O(1) given a direct *list.Element handle.
type PriceLevel struct {
	Price  float64
	Orders *list.List // element Value is *domain.Order
}

// Handle locates one order within its owning level, returned by Insert and
// consumed by Remove. It is a back-reference only — the level, via its
// FIFO, owns the order; the handle merely locates it.
type Handle struct {
	level *PriceLevel
	elem  *list.Element
}

// Index is one side (bids or asks) of an order book's price-level index.
type Index struct {
	tree *btree.BTreeG[*PriceLevel]
}

// NewBidIndex orders levels with the highest price first.
func NewBidIndex() *Index {
	return newIndex(func(a, b float64) bool { return a > b })
}

// NewAskIndex orders levels with the lowest price first.
func NewAskIndex() *Index {
	return newIndex(func(a, b float64) bool { return a < b })
}

func newIndex(better func(a, b float64) bool) *Index {
	tree := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return better(a.Price, b.Price)
	})
	return &Index{tree: tree}
}

// Insert appends order to the FIFO at price, creating the level if this is
// the first order seen at that price. Returns a Handle for O(1) removal.
func (idx *Index) Insert(price float64, order *domain.Order) Handle {
	probe := &PriceLevel{Price: price}
	level, ok := idx.tree.GetMut(probe)
	if !ok {
		level = &PriceLevel{Price: price, Orders: list.New()}
		idx.tree.Set(level)
	}
	elem := level.Orders.PushBack(order)
	return Handle{level: level, elem: elem}
}

// Remove drops the order located by h from its level's FIFO in O(1),
// evicting the level from the tree if it is now empty.
func (idx *Index) Remove(h Handle) {
	h.level.Orders.Remove(h.elem)
	if h.level.Orders.Len() == 0 {
		idx.tree.Delete(h.level)
	}
}

// Best returns the head order of the extreme level (highest bid / lowest
// ask), skipping and evicting any level whose FIFO emptied out from under it
// without a structural update.
func (idx *Index) Best() *domain.Order {
	level := idx.BestLevel()
	if level == nil {
		return nil
	}
	return level.Orders.Front().Value.(*domain.Order)
}

// BestLevel returns the extreme non-empty level, or nil if the side is
// empty. Exposed so the matching engine can consume/evict the level
// directly while sweeping.
func (idx *Index) BestLevel() *PriceLevel {
	for {
		level, ok := idx.tree.Min()
		if !ok {
			return nil
		}
		if level.Orders.Len() == 0 {
			idx.tree.Delete(level)
			continue
		}
		return level
	}
}

// PopFront removes and returns the head order of level, evicting the level
// from the tree if it empties. level must belong to this index.
func (idx *Index) PopFront(level *PriceLevel) *domain.Order {
	front := level.Orders.Front()
	if front == nil {
		return nil
	}
	order := front.Value.(*domain.Order)
	level.Orders.Remove(front)
	if level.Orders.Len() == 0 {
		idx.tree.Delete(level)
	}
	return order
}

// PeekPrice returns the extreme price, or ok=false if the side is empty.
func (idx *Index) PeekPrice() (float64, bool) {
	level := idx.BestLevel()
	if level == nil {
		return 0, false
	}
	return level.Price, true
}

// Levels returns every non-empty level in priority order. Intended for
// snapshotting and tests, not the hot matching path.
func (idx *Index) Levels() []*PriceLevel {
	var levels []*PriceLevel
	idx.tree.Scan(func(level *PriceLevel) bool {
		if level.Orders.Len() > 0 {
			levels = append(levels, level)
		}
		return true
	})
	return levels
}

// Len reports the number of non-empty price levels.
func (idx *Index) Len() int {
	return len(idx.Levels())
}

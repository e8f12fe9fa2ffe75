// Package core implements the price-time priority matching book. It is a
// pure synchronous state machine: callers submit orders and receive a
// report plus the events the submission produced. All serialisation is
// the owner's responsibility; one book belongs to one room loop.
package core

import "errors"

var (
	ErrInvalidOrder = errors.New("invalid order")
	ErrDuplicateID  = errors.New("duplicate order id")
	ErrNotFound     = errors.New("order not found")
)

// Fill describes one slice of an execution from the taker's viewpoint.
type Fill struct {
	MakerOrderID string
	Price        float64
	Size         int64
}

type SubmitReport struct {
	OrderID   string
	Remaining int64
	Fills     []Fill
	Rested    bool
}

type CancelReport struct {
	OrderID      string
	CanceledSize int64
	Price        float64
	Side         Side
}

// Book is the full matching book, both sides plus the id index.
type Book struct {
	bids   *bookSide
	asks   *bookSide
	orders map[string]*restingOrder
}

func NewBook() *Book {
	return &Book{
		bids:   newBookSide(true),
		asks:   newBookSide(false),
		orders: make(map[string]*restingOrder),
	}
}

func validate(o Order, kind OrderKind) error {
	if o.Kind != kind {
		return ErrInvalidOrder
	}
	if o.ID == "" || o.Size <= 0 || o.Time <= 0 {
		return ErrInvalidOrder
	}
	if kind == OrderKindLimit && o.Price <= 0 {
		return ErrInvalidOrder
	}
	if o.Side != SideBuy && o.Side != SideSell {
		return ErrInvalidOrder
	}
	return nil
}

// SubmitLimit matches an incoming limit order up to its limit price and
// rests any remainder.
func (b *Book) SubmitLimit(o Order) (SubmitReport, []Event, error) {
	if err := validate(o, OrderKindLimit); err != nil {
		return SubmitReport{}, nil, err
	}
	if _, exists := b.orders[o.ID]; exists {
		return SubmitReport{}, nil, ErrDuplicateID
	}
	o.Normalize()

	limit := o.Price
	remaining, fills, evs := b.match(o, &limit)

	rested := false
	if remaining > 0 {
		node := &restingOrder{id: o.ID, side: o.Side, price: o.Price, size: remaining, time: o.Time}
		b.sideFor(o.Side).insert(node)
		b.orders[o.ID] = node
		rested = true
		evs = append(evs, OrderRestedEvent{
			OrderID: o.ID, Side: o.Side, Price: o.Price, Size: remaining, Time: o.Time,
		})
	}

	return SubmitReport{OrderID: o.ID, Remaining: remaining, Fills: fills, Rested: rested}, evs, nil
}

// SubmitMarket matches only; a market order never rests. The report's
// Remaining is the unfilled leftover.
func (b *Book) SubmitMarket(o Order) (SubmitReport, []Event, error) {
	if err := validate(o, OrderKindMarket); err != nil {
		return SubmitReport{}, nil, err
	}
	if _, exists := b.orders[o.ID]; exists {
		return SubmitReport{}, nil, ErrDuplicateID
	}

	remaining, fills, evs := b.match(o, nil)
	return SubmitReport{OrderID: o.ID, Remaining: remaining, Fills: fills, Rested: false}, evs, nil
}

// Cancel removes a resting order. ErrNotFound when the id is unknown,
// which callers treat as an idempotent no-op.
func (b *Book) Cancel(id string, now int64) (CancelReport, []Event, error) {
	node, ok := b.orders[id]
	if !ok {
		return CancelReport{}, nil, ErrNotFound
	}
	delete(b.orders, id)
	b.sideFor(node.side).remove(node)

	ev := OrderRemovedEvent{
		OrderID:   node.id,
		Reason:    RemoveReasonCanceled,
		Remaining: node.size,
		Price:     node.price,
		Side:      node.side,
		Time:      now,
	}
	return CancelReport{OrderID: id, CanceledSize: node.size, Price: node.price, Side: node.side}, []Event{ev}, nil
}

// BestBid returns (price, size, ok) for the top of the bid side.
func (b *Book) BestBid() (float64, int64, bool) {
	o, ok := b.bids.best()
	if !ok {
		return 0, 0, false
	}
	return o.price, o.size, true
}

// BestAsk returns (price, size, ok) for the top of the ask side.
func (b *Book) BestAsk() (float64, int64, bool) {
	o, ok := b.asks.best()
	if !ok {
		return 0, 0, false
	}
	return o.price, o.size, true
}

// Levels returns aggregated depth for one side in priority order
// (bids descending, asks ascending). n <= 0 returns all levels.
func (b *Book) Levels(side Side, n int) []Level {
	return b.sideFor(side).levels(n)
}

// Resting reports the remaining size of a live order.
func (b *Book) Resting(id string) (int64, bool) {
	node, ok := b.orders[id]
	if !ok {
		return 0, false
	}
	return node.size, true
}

func (b *Book) sideFor(s Side) *bookSide {
	if s == SideBuy {
		return b.bids
	}
	return b.asks
}

// match consumes from the opposite side. limitPrice == nil means a true
// market order. Returns the unfilled remainder.
func (b *Book) match(taker Order, limitPrice *float64) (int64, []Fill, []Event) {
	var (
		fills []Fill
		evs   []Event
	)

	remaining := taker.Size
	opp := b.asks
	if taker.Side == SideSell {
		opp = b.bids
	}

	for remaining > 0 {
		maker, ok := opp.best()
		if !ok {
			break
		}

		if limitPrice != nil {
			if taker.Side == SideBuy && maker.price > *limitPrice {
				break
			}
			if taker.Side == SideSell && maker.price < *limitPrice {
				break
			}
		}

		if maker.size <= 0 {
			// defensive purge; a zero-size resting order would loop forever
			opp.remove(maker)
			delete(b.orders, maker.id)
			continue
		}

		traded := remaining
		if maker.size < traded {
			traded = maker.size
		}

		remaining -= traded
		maker.size -= traded

		fills = append(fills, Fill{MakerOrderID: maker.id, Price: maker.price, Size: traded})
		evs = append(evs, TradeEvent{
			Price:        maker.price,
			Size:         traded,
			TakerSide:    taker.Side,
			Time:         taker.Time,
			TakerOrderID: taker.ID,
			MakerOrderID: maker.id,
		})

		if maker.isFilled() {
			opp.remove(maker)
			delete(b.orders, maker.id)
			evs = append(evs, OrderRemovedEvent{
				OrderID: maker.id,
				Reason:  RemoveReasonFilled,
				Price:   maker.price,
				Side:    maker.side,
				Time:    taker.Time,
			})
		} else {
			evs = append(evs, OrderReducedEvent{
				OrderID:   maker.id,
				Delta:     -traded,
				Remaining: maker.size,
				Price:     maker.price,
				Side:      maker.side,
				Time:      taker.Time,
			})
		}
	}

	return remaining, fills, evs
}

// Package exchange wraps the matching book with per-participant order
// tracking. It attributes fills to owners, keeps a per-client index of
// open orders, and maintains the running trade aggregates a room reports
// at game end.
package exchange

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/pitwars/pitwars/internal/orderbook/core"
	"github.com/pitwars/pitwars/internal/pricing"
)

// idSeparator splits an order id into owner prefix and suffix.
const idSeparator = "#"

// Fill is one execution slice routed to a participant. Quantity and Cost
// are signed by side: a buy fill carries both positive, a sell fill both
// negative. Participants route buys vs sells by sign alone.
type Fill struct {
	OrderID  string
	Price    float64
	Quantity int64
	Cost     float64
}

// FillFunc receives fills for one participant.
type FillFunc func(Fill)

// Totals summarises a market order execution. Reported via onTotals
// before any fill callbacks run.
type Totals struct {
	TotalCost float64
	TotalQty  int64
}

// OpenOrder is a live order in a participant's per-client book.
type OpenOrder struct {
	ID    string
	Side  core.Side
	Price float64
	Size  int64
	Time  int64
}

// Snapshot is a point-in-time depth view: per-level aggregates, bids
// best-first (descending), asks best-first (ascending).
type Snapshot struct {
	Bids []core.Level
	Asks []core.Level
}

// clientBook indexes one participant's live orders by side and rounded
// price, so "do I already have an order at P on side S" is O(1).
type clientBook struct {
	buys  map[float64][]*OpenOrder
	sells map[float64][]*OpenOrder
}

func newClientBook() *clientBook {
	return &clientBook{
		buys:  make(map[float64][]*OpenOrder),
		sells: make(map[float64][]*OpenOrder),
	}
}

func (cb *clientBook) sideMap(side core.Side) map[float64][]*OpenOrder {
	if side == core.SideBuy {
		return cb.buys
	}
	return cb.sells
}

func (cb *clientBook) add(o *OpenOrder) {
	m := cb.sideMap(o.Side)
	m[o.Price] = append(m[o.Price], o)
}

func (cb *clientBook) find(id string) *OpenOrder {
	for _, m := range []map[float64][]*OpenOrder{cb.buys, cb.sells} {
		for _, orders := range m {
			for _, o := range orders {
				if o.ID == id {
					return o
				}
			}
		}
	}
	return nil
}

func (cb *clientBook) remove(id string) *OpenOrder {
	for _, m := range []map[float64][]*OpenOrder{cb.buys, cb.sells} {
		for price, orders := range m {
			for i, o := range orders {
				if o.ID != id {
					continue
				}
				orders = append(orders[:i], orders[i+1:]...)
				if len(orders) == 0 {
					delete(m, price)
				} else {
					m[price] = orders
				}
				return o
			}
		}
	}
	return nil
}

// Book is the order-book wrapper. Mutated only from the owning room's
// loop; the id counter is atomic so NextOrderID is safe from anywhere.
type Book struct {
	book      *core.Book
	callbacks map[string]FillFunc
	clients   map[string]*clientBook

	lastPrice  float64
	totalValue float64
	highest    float64
	lowest     float64

	idSeq atomic.Int64
	log   *log.Logger
}

// New creates an empty wrapper around a fresh matching book.
func New(logger *log.Logger) *Book {
	if logger == nil {
		logger = log.Default()
	}
	return &Book{
		book:      core.NewBook(),
		callbacks: make(map[string]FillFunc),
		clients:   make(map[string]*clientBook),
		log:       logger.WithPrefix("exchange"),
	}
}

// RegisterParticipant stores the fill callback for a participant id and
// creates its per-client book.
func (x *Book) RegisterParticipant(id string, onFill FillFunc) {
	x.callbacks[id] = onFill
	if _, ok := x.clients[id]; !ok {
		x.clients[id] = newClientBook()
	}
}

// NextOrderID mints an order id owned by the given participant. The
// suffix is timestamp-based with a sequence tiebreaker.
func (x *Book) NextOrderID(participantID string, now int64) string {
	return fmt.Sprintf("%s%s%d-%d", participantID, idSeparator, now, x.idSeq.Add(1))
}

// OwnerOf derives the owning participant from an order id prefix.
func OwnerOf(orderID string) string {
	if i := strings.Index(orderID, idSeparator); i >= 0 {
		return orderID[:i]
	}
	return ""
}

// AddLimit submits a limit order. Immediate fills are dispatched to both
// sides' callbacks; any remainder is tracked in the owner's per-client
// book. Rejections from the matching book are silent no-ops.
func (x *Book) AddLimit(clientID, orderID string, side core.Side, price float64, qty int64, now int64) {
	o := core.Order{
		ID:    orderID,
		Side:  side,
		Kind:  core.OrderKindLimit,
		Price: price,
		Size:  qty,
		Time:  now,
	}
	report, events, err := x.book.SubmitLimit(o)
	if err != nil {
		x.log.Debug("limit order rejected", "order", orderID, "err", err)
		return
	}

	o.Normalize()
	if report.Rested {
		if cb := x.clients[clientID]; cb != nil {
			cb.add(&OpenOrder{ID: orderID, Side: side, Price: o.Price, Size: report.Remaining, Time: now})
		}
	}

	x.settleMakers(events)
	for _, f := range report.Fills {
		x.recordTrade(f.Price, f.Size)
		x.dispatchFill(clientID, orderID, side, f.Price, f.Size)
	}
}

// AddMarket submits a market order. Filled quantity is aggregated per
// price level; onTotals (if non-nil) observes the totals before any fill
// callbacks run. Returns the unfilled leftover.
func (x *Book) AddMarket(clientID, orderID string, side core.Side, qty int64, now int64, onTotals func(Totals)) int64 {
	o := core.Order{
		ID:   orderID,
		Side: side,
		Kind: core.OrderKindMarket,
		Size: qty,
		Time: now,
	}
	report, events, err := x.book.SubmitMarket(o)
	if err != nil {
		x.log.Debug("market order rejected", "order", orderID, "err", err)
		return qty
	}

	// aggregate executed slices per price level, preserving level order
	type slice struct {
		price float64
		qty   int64
	}
	var (
		slices    []slice
		totalCost float64
		totalQty  int64
	)
	for _, f := range report.Fills {
		if n := len(slices); n > 0 && slices[n-1].price == f.Price {
			slices[n-1].qty += f.Size
		} else {
			slices = append(slices, slice{price: f.Price, qty: f.Size})
		}
		totalCost += f.Price * float64(f.Size)
		totalQty += f.Size
	}

	if onTotals != nil {
		onTotals(Totals{TotalCost: totalCost, TotalQty: totalQty})
	}

	x.settleMakers(events)
	for _, s := range slices {
		x.recordTrade(s.price, s.qty)
		x.dispatchFill(clientID, orderID, side, s.price, s.qty)
	}

	return report.Remaining
}

// Cancel removes a live order from the book and the owner's per-client
// index. Idempotent: canceling an unknown or already-gone id does
// nothing. Returns the canceled order so the caller can restore locked
// balances.
func (x *Book) Cancel(orderID string) (OpenOrder, bool) {
	report, _, err := x.book.Cancel(orderID, x.idSeq.Add(1))
	if err != nil {
		// already filled or never rested; still drop any stale index entry
		if cb := x.clients[OwnerOf(orderID)]; cb != nil {
			cb.remove(orderID)
		}
		return OpenOrder{}, false
	}

	owner := OwnerOf(orderID)
	if cb := x.clients[owner]; cb != nil {
		cb.remove(orderID)
	}
	return OpenOrder{ID: orderID, Side: report.Side, Price: report.Price, Size: report.CanceledSize}, true
}

// settleMakers reconciles maker-side events: each trade dispatches the
// maker's fill and shrinks its per-client entry; a filled removal drops
// the entry entirely.
func (x *Book) settleMakers(events []core.Event) {
	for _, ev := range events {
		switch e := ev.(type) {
		case core.TradeEvent:
			owner := OwnerOf(e.MakerOrderID)
			if cb := x.clients[owner]; cb != nil {
				if open := cb.find(e.MakerOrderID); open != nil {
					open.Size -= e.Size
				}
			}
			x.dispatchFill(owner, e.MakerOrderID, e.TakerSide.Opposite(), e.Price, e.Size)
		case core.OrderRemovedEvent:
			if e.Reason != core.RemoveReasonFilled {
				continue
			}
			if cb := x.clients[OwnerOf(e.OrderID)]; cb != nil {
				cb.remove(e.OrderID)
			}
		}
	}
}

// dispatchFill invokes a participant's callback with the signed
// quantity/cost convention.
func (x *Book) dispatchFill(participantID, orderID string, side core.Side, price float64, qty int64) {
	cb, ok := x.callbacks[participantID]
	if !ok {
		return
	}
	f := Fill{OrderID: orderID, Price: price, Quantity: qty, Cost: price * float64(qty)}
	if side == core.SideSell {
		f.Quantity = -f.Quantity
		f.Cost = -f.Cost
	}
	cb(f)
}

func (x *Book) recordTrade(price float64, qty int64) {
	x.lastPrice = price
	x.totalValue += price * float64(qty)
	if x.highest == 0 || price > x.highest {
		x.highest = price
	}
	if x.lowest == 0 || price < x.lowest {
		x.lowest = price
	}
}

// Snapshot returns per-level aggregated depth for both sides.
func (x *Book) Snapshot() Snapshot {
	return Snapshot{
		Bids: x.book.Levels(core.SideBuy, 0),
		Asks: x.book.Levels(core.SideSell, 0),
	}
}

// Depth returns the wire-shaped depth: [[price, qty], ...] with bids
// descending and asks ascending.
func (x *Book) Depth() (bids, asks [][2]float64) {
	for _, l := range x.book.Levels(core.SideBuy, 0) {
		bids = append(bids, [2]float64{l.Price, float64(l.Size)})
	}
	for _, l := range x.book.Levels(core.SideSell, 0) {
		asks = append(asks, [2]float64{l.Price, float64(l.Size)})
	}
	return bids, asks
}

// BestBid returns the top of the bid side.
func (x *Book) BestBid() (float64, int64, bool) { return x.book.BestBid() }

// BestAsk returns the top of the ask side.
func (x *Book) BestAsk() (float64, int64, bool) { return x.book.BestAsk() }

// OpenOrders returns copies of a participant's live orders on one side.
func (x *Book) OpenOrders(participantID string, side core.Side) []OpenOrder {
	cb := x.clients[participantID]
	if cb == nil {
		return nil
	}
	var out []OpenOrder
	for _, orders := range cb.sideMap(side) {
		for _, o := range orders {
			out = append(out, *o)
		}
	}
	return out
}

// HasOrderAt reports whether the participant already has a live order on
// the given side at the given price.
func (x *Book) HasOrderAt(participantID string, side core.Side, price float64) bool {
	cb := x.clients[participantID]
	if cb == nil {
		return false
	}
	return len(cb.sideMap(side)[pricing.Round2(price)]) > 0
}

// OpenLevelCount returns how many distinct price levels the participant
// occupies on one side.
func (x *Book) OpenLevelCount(participantID string, side core.Side) int {
	cb := x.clients[participantID]
	if cb == nil {
		return 0
	}
	return len(cb.sideMap(side))
}

// Quote simulates sweeping qty through the opposite side without
// touching the book. Side is the taker's side: a BUY quote walks the
// asks. Returns the fillable levels in execution order.
func (x *Book) Quote(side core.Side, qty int64) []core.Level {
	rows := x.book.Levels(side.Opposite(), 0)
	var out []core.Level
	remaining := qty
	for _, l := range rows {
		if remaining <= 0 {
			break
		}
		take := l.Size
		if take > remaining {
			take = remaining
		}
		out = append(out, core.Level{Price: l.Price, Size: take})
		remaining -= take
	}
	return out
}

// LastTradePrice returns the most recent trade price, or 0 before any
// trade.
func (x *Book) LastTradePrice() float64 { return x.lastPrice }

// TotalValueProcessed returns the cumulative traded value.
func (x *Book) TotalValueProcessed() float64 { return x.totalValue }

// HighestPrice returns the highest trade price seen, or 0.
func (x *Book) HighestPrice() float64 { return x.highest }

// LowestPrice returns the lowest trade price seen, or 0.
func (x *Book) LowestPrice() float64 { return x.lowest }

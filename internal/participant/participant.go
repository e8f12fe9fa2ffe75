// Package participant implements the cash and share accounting shared by
// human players and bots. Placing an order moves the funding resource
// from available to locked; fills and cancels move it back out. The
// balances must be non-negative after every operation.
package participant

import (
	"errors"
	"math"

	"github.com/pitwars/pitwars/internal/exchange"
	"github.com/pitwars/pitwars/internal/orderbook/core"
	"github.com/pitwars/pitwars/internal/pricing"
	"github.com/pitwars/pitwars/internal/prng"
)

var (
	ErrTradingDisabled    = errors.New("trading disabled")
	ErrInsufficientCash   = errors.New("insufficient cash")
	ErrInsufficientShares = errors.New("insufficient shares")
)

// Portfolio is the reported view of a participant's holdings.
type Portfolio struct {
	ID     string
	Name   string
	Cash   float64
	Shares int64
	PnL    float64
}

// Participant owns one trading account on one room's exchange.
type Participant struct {
	ID   string
	Name string

	initialCash   float64
	availableCash float64
	lockedCash    float64
	shares        int64
	lockedShares  int64

	tradingDisabled bool

	book *exchange.Book
	rnd  *prng.Source
}

// New creates a participant, registers its fill callback with the
// exchange, and funds it with startingCash.
func New(id, name string, startingCash float64, startingShares int64, book *exchange.Book, rnd *prng.Source) *Participant {
	p := &Participant{
		ID:            id,
		Name:          name,
		initialCash:   startingCash,
		availableCash: startingCash,
		shares:        startingShares,
		book:          book,
		rnd:           rnd,
	}
	book.RegisterParticipant(id, p.HandleFill)
	return p
}

// Book returns the exchange this participant trades on.
func (p *Participant) Book() *exchange.Book { return p.book }

// Rand returns the participant's random source.
func (p *Participant) Rand() *prng.Source { return p.rnd }

// PlaceLimitBuy locks price*qty cash and submits a limit buy. Fails
// without side effects when trading is disabled or cash is short.
func (p *Participant) PlaceLimitBuy(price float64, qty int64, now int64) error {
	if p.tradingDisabled {
		return ErrTradingDisabled
	}
	if qty <= 0 || price <= 0 {
		return core.ErrInvalidOrder
	}
	price = pricing.Round2(price)
	required := price * float64(qty)
	if p.availableCash < required {
		return ErrInsufficientCash
	}

	p.availableCash -= required
	p.lockedCash += required

	id := p.book.NextOrderID(p.ID, now)
	p.book.AddLimit(p.ID, id, core.SideBuy, price, qty, now)
	return nil
}

// PlaceLimitSell locks qty shares and submits a limit sell.
func (p *Participant) PlaceLimitSell(price float64, qty int64, now int64) error {
	if p.tradingDisabled {
		return ErrTradingDisabled
	}
	if qty <= 0 || price <= 0 {
		return core.ErrInvalidOrder
	}
	if p.shares < qty {
		return ErrInsufficientShares
	}

	p.shares -= qty
	p.lockedShares += qty

	id := p.book.NextOrderID(p.ID, now)
	p.book.AddLimit(p.ID, id, core.SideSell, pricing.Round2(price), qty, now)
	return nil
}

// PlaceMarketBuy sweeps the ask side for up to qty shares, capped at
// what the available cash affords. The executed cost is locked via the
// exchange's totals hook immediately before the fills settle it, so the
// locked balance returns to its prior value once the order completes. Returns the
// unexecuted leftover; an empty ask side leaves the participant
// untouched and returns qty.
func (p *Participant) PlaceMarketBuy(qty int64, now int64) (int64, error) {
	if p.tradingDisabled {
		return qty, ErrTradingDisabled
	}
	if qty <= 0 {
		return qty, core.ErrInvalidOrder
	}
	if _, _, ok := p.book.BestAsk(); !ok {
		return qty, nil
	}

	// cap at affordability by walking the quoted sweep
	var execQty int64
	budget := p.availableCash
	for _, l := range p.book.Quote(core.SideBuy, qty) {
		affordable := int64(budget / l.Price)
		take := l.Size
		if take > affordable {
			take = affordable
		}
		if take <= 0 {
			break
		}
		execQty += take
		budget -= l.Price * float64(take)
		if take < l.Size {
			break
		}
	}
	if execQty == 0 {
		return qty, ErrInsufficientCash
	}

	id := p.book.NextOrderID(p.ID, now)
	bookLeft := p.book.AddMarket(p.ID, id, core.SideBuy, execQty, now, func(tt exchange.Totals) {
		p.availableCash -= tt.TotalCost
		p.lockedCash += tt.TotalCost
	})
	return qty - execQty + bookLeft, nil
}

// PlaceMarketSell sweeps the bid side for up to qty shares. Requires the
// shares up front; the executed quantity is locked via the totals hook.
// Returns the unexecuted leftover.
func (p *Participant) PlaceMarketSell(qty int64, now int64) (int64, error) {
	if p.tradingDisabled {
		return qty, ErrTradingDisabled
	}
	if qty <= 0 {
		return qty, core.ErrInvalidOrder
	}
	if p.shares < qty {
		return qty, ErrInsufficientShares
	}
	if _, _, ok := p.book.BestBid(); !ok {
		return qty, nil
	}

	id := p.book.NextOrderID(p.ID, now)
	leftover := p.book.AddMarket(p.ID, id, core.SideSell, qty, now, func(tt exchange.Totals) {
		p.shares -= tt.TotalQty
		p.lockedShares += tt.TotalQty
	})
	return leftover, nil
}

// HandleFill settles one execution slice. Buys (positive cost) consume
// locked cash and add shares; sells (negative cost) release locked
// shares and credit the proceeds.
func (p *Participant) HandleFill(f exchange.Fill) {
	if f.Cost > 0 {
		p.lockedCash -= f.Cost
		p.shares += f.Quantity
	} else {
		p.availableCash -= f.Cost
		p.lockedShares -= -f.Quantity
	}
	p.normalize()
}

// CancelOrder removes a live order and returns the locked resource to
// available. Idempotent: a second cancel of the same order does nothing.
func (p *Participant) CancelOrder(orderID string) {
	canceled, ok := p.book.Cancel(orderID)
	if !ok {
		return
	}
	amount := canceled.Price * float64(canceled.Size)
	if canceled.Side == core.SideBuy {
		p.lockedCash -= amount
		p.availableCash += amount
	} else {
		p.lockedShares -= canceled.Size
		p.shares += canceled.Size
	}
	p.normalize()
}

// CancelAll cancels every live order the participant has on one side.
func (p *Participant) CancelAll(side core.Side) {
	for _, o := range p.book.OpenOrders(p.ID, side) {
		p.CancelOrder(o.ID)
	}
}

// normalize squashes float dust so the non-negativity invariants are not
// violated by representation error.
func (p *Participant) normalize() {
	if p.lockedCash < 0 && p.lockedCash > -1e-6 {
		p.lockedCash = 0
	}
	if p.availableCash < 0 && p.availableCash > -1e-6 {
		p.availableCash = 0
	}
}

// Portfolio reports the participant's holdings and PnL at currentPrice.
func (p *Participant) Portfolio(currentPrice float64) Portfolio {
	return Portfolio{
		ID:     p.ID,
		Name:   p.Name,
		Cash:   p.availableCash,
		Shares: p.shares,
		PnL:    p.availableCash + float64(p.shares)*currentPrice - p.initialCash,
	}
}

// Wealth is the full mark-to-market value including locked balances:
// availableCash + lockedCash + (shares + lockedShares) * price.
func (p *Participant) Wealth(price float64) float64 {
	return p.availableCash + p.lockedCash + float64(p.shares+p.lockedShares)*price
}

// Grant credits cash directly (powers use this).
func (p *Participant) Grant(amount float64) {
	p.availableCash += amount
}

// AvailableCash returns the spendable cash balance.
func (p *Participant) AvailableCash() float64 { return p.availableCash }

// LockedCash returns cash reserved by open buy orders.
func (p *Participant) LockedCash() float64 { return p.lockedCash }

// Shares returns the sellable share balance.
func (p *Participant) Shares() int64 { return p.shares }

// LockedShares returns shares reserved by open sell orders.
func (p *Participant) LockedShares() int64 { return p.lockedShares }

// InitialCash returns the funded starting balance.
func (p *Participant) InitialCash() float64 { return p.initialCash }

// SetTradingDisabled toggles the trading gate. While disabled, every
// place operation fails and leaves the account untouched.
func (p *Participant) SetTradingDisabled(disabled bool) { p.tradingDisabled = disabled }

// TradingDisabled reports the trading gate.
func (p *Participant) TradingDisabled() bool { return p.tradingDisabled }

// BalancesValid reports whether every balance is non-negative beyond
// float dust.
func (p *Participant) BalancesValid() bool {
	const eps = 1e-6
	return p.availableCash > -eps && p.lockedCash > -eps &&
		p.shares >= 0 && p.lockedShares >= 0 &&
		!math.IsNaN(p.availableCash) && !math.IsNaN(p.lockedCash)
}

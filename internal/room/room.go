// Package room orchestrates one game: the simulator, the event
// factories, and the connected clients. All room state is mutated from a
// single loop goroutine; inbound messages and timers are serialised onto
// it.
package room

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/pitwars/pitwars/internal/bots"
	"github.com/pitwars/pitwars/internal/config"
	"github.com/pitwars/pitwars/internal/exchange"
	"github.com/pitwars/pitwars/internal/news"
	"github.com/pitwars/pitwars/internal/participant"
	"github.com/pitwars/pitwars/internal/powers"
	"github.com/pitwars/pitwars/internal/pricing"
	"github.com/pitwars/pitwars/internal/prng"
	"github.com/pitwars/pitwars/internal/protocol"
	"github.com/pitwars/pitwars/internal/sim"
)

// DisconnectGrace is how long a dropped client's state is preserved for
// reconnection.
const DisconnectGrace = 60 * time.Second

// seed offsets keep the generator, factories, and bots on independent
// deterministic streams derived from one room seed.
const (
	seedOffsetGenerator = 1
	seedOffsetNews      = 2
	seedOffsetPowers    = 3
	seedOffsetBots      = 100
)

// Room owns one simulated market and its participants.
type Room struct {
	ID string

	settings protocol.GameSettings
	started  bool
	ended    bool

	gen          *pricing.Generator
	book         *exchange.Book
	simulator    *sim.Simulator
	newsFactory  *news.Factory
	powerFactory *powers.Factory
	rnd          *prng.Source

	clients []*Client // join order

	cmdCh     chan func()
	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
	running   bool

	onEmpty func(roomID string)
	now     func() time.Time
	log     *log.Logger
}

// NewRoom creates a room with default settings and builds its first
// simulator. onEmpty is invoked (off-registry cleanup) when the last
// client leaves; it may be nil.
func NewRoom(id string, onEmpty func(string), logger *log.Logger) *Room {
	if logger == nil {
		logger = log.Default()
	}
	r := &Room{
		ID:       id,
		settings: config.DefaultSettings(),
		cmdCh:    make(chan func(), 64),
		closed:   make(chan struct{}),
		onEmpty:  onEmpty,
		now:      time.Now,
		log:      logger.WithPrefix("room").With("room", id),
	}
	r.Setup()
	return r
}

// Setup (re)constructs the simulator, price generator, factories, and
// bots from the current settings, and re-registers every client's fill
// callback. Active powers and news from a previous setup run their end
// hooks first.
func (r *Room) Setup() {
	if r.powerFactory != nil {
		r.powerFactory.Close()
	}
	if r.newsFactory != nil {
		r.newsFactory.Close()
	}

	seed := r.settings.Seed
	r.rnd = prng.NewSource(seed)
	r.gen = pricing.NewGenerator(pricing.Config{
		OpeningPrice:  r.settings.OpeningPrice,
		Volatility:    config.VolatilityFraction(r.settings),
		MeanReversion: 0.1,
	}, prng.NewSource(seed+seedOffsetGenerator))
	r.book = exchange.New(r.log)

	botList := r.spawnBots()

	simCfg := sim.DefaultConfig()
	simCfg.GameDuration = time.Duration(r.settings.GameDuration) * time.Minute
	r.simulator = sim.New(simCfg, r.gen, r.book, botList, sim.Callbacks{
		OnPrice:       r.broadcastStockMove,
		OnDebugPrices: r.broadcastDebugPrices,
		OnClockTick:   r.broadcastClock,
		OnEnd:         r.concludeGame,
	}, r.log)

	r.newsFactory = news.NewFactory(news.Config{
		Enabled: r.settings.EnableRandomNews,
	}, r.gen, prng.NewSource(seed+seedOffsetNews), r.broadcastNews, r.log)
	r.simulator.SubscribeClock(r.newsFactory.OnClockTick)

	powerCfg := powers.DefaultConfig()
	powerCfg.GameDurationTicks = int(simCfg.GameDuration / simCfg.ClockInterval)
	r.powerFactory = powers.NewFactory(powerCfg, r.powerEnv(), prng.NewSource(seed+seedOffsetPowers),
		r.listPlayerIDs, r.sendBriefcase, r.log)
	r.simulator.SubscribeClock(r.powerFactory.OnClockTick)

	for _, c := range r.clients {
		if !c.Spectator {
			r.bindParticipant(c)
		}
	}
}

// spawnBots builds the configured bot population, restricted to the
// settings' bot selection when one is set.
func (r *Room) spawnBots() []*bots.Bot {
	kinds := r.settings.BotSelection
	if len(kinds) == 0 {
		for _, d := range bots.Catalog() {
			kinds = append(kinds, d.Name)
		}
	}

	var out []*bots.Bot
	for i := 0; i < r.settings.Bots; i++ {
		kind := kinds[r.rnd.Intn(len(kinds))]
		strategy, err := bots.NewStrategy(kind)
		if err != nil {
			r.log.Warn("skipping unknown bot kind", "kind", kind)
			continue
		}
		id := "bot-" + kind + "-" + uuid.NewString()[:8]
		src := prng.NewSource(r.settings.Seed + seedOffsetBots + int64(i))
		out = append(out, bots.NewBot(id, r.settings.StartingCash, 100, r.book, src, strategy, bots.DefaultConfig(), r.log))
	}
	return out
}

// bindParticipant creates (or replaces) a client's trading account on
// the current book, wiring fills to portfolio pushes.
func (r *Room) bindParticipant(c *Client) {
	p := participant.New(c.ID, c.Username, r.settings.StartingCash, 0, r.book, prng.NewSource(r.settings.Seed))
	c.Participant = p
	r.book.RegisterParticipant(c.ID, func(f exchange.Fill) {
		p.HandleFill(f)
		r.sendPortfolio(c)
	})
}

func (r *Room) powerEnv() powers.Env {
	return powers.Env{
		Gen:          r.gen,
		Rnd:          r.rnd,
		PublishNews:  func(it *news.Item) { r.newsFactory.Publish(it) },
		GrantCash:    r.grantCash,
		StartingCash: func() float64 { return r.settings.StartingCash },
		SetOthersTradingDisabled: func(initiator string, disabled bool) {
			for _, c := range r.clients {
				if c.Spectator || c.ID == initiator || c.Participant == nil {
					continue
				}
				c.Participant.SetTradingDisabled(disabled)
				c.Send(protocol.ClientStateMsg{Type: protocol.MsgClientState, Disabled: disabled})
			}
		},
		Notify: r.notify,
	}
}

// Start launches the room loop with both timers.
func (r *Room) Start() {
	if r.running {
		return
	}
	r.running = true
	r.wg.Add(1)
	go r.run()
}

func (r *Room) run() {
	defer r.wg.Done()

	cfg := r.simulator.Config()
	tick := time.NewTicker(cfg.TickInterval)
	defer tick.Stop()
	clock := time.NewTicker(cfg.ClockInterval)
	defer clock.Stop()

	for {
		select {
		case <-r.closed:
			return
		case fn := <-r.cmdCh:
			fn()
		case now := <-tick.C:
			r.simulator.StepTick(now)
		case now := <-clock.C:
			r.simulator.StepClock(now)
			r.reapDisconnected(now)
		}
	}
}

// Do runs fn on the room loop, blocking until it completes. Before
// Start it runs inline, which keeps setup code and tests
// single-threaded.
func (r *Room) Do(fn func()) {
	if !r.running {
		fn()
		return
	}
	done := make(chan struct{})
	select {
	case r.cmdCh <- func() { fn(); close(done) }:
		select {
		case <-done:
		case <-r.closed:
		}
	case <-r.closed:
		fn()
	}
}

// Close disposes the room from outside the loop.
func (r *Room) Close() {
	r.Do(r.dispose)
	r.wg.Wait()
}

// dispose tears the room down: factories end their active effects,
// transports close, timers stop. Runs on the room loop.
func (r *Room) dispose() {
	r.powerFactory.Close()
	r.newsFactory.Close()
	for _, c := range r.clients {
		if c.transport != nil {
			c.transport.Close()
		}
	}
	r.clients = nil
	r.closeOnce.Do(func() { close(r.closed) })
	if r.onEmpty != nil {
		r.onEmpty(r.ID)
	}
	r.log.Info("room disposed")
}

// --- client lifecycle ---

// AddClient attaches a connection. prevID non-empty requests a
// reconnect; when it matches a known client, that client's state is
// restored onto the new transport. Returns the resolved client.
func (r *Room) AddClient(t Transport, prevID, username string, spectator bool) *Client {
	if prevID != "" {
		if c := r.clientByID(prevID); c != nil {
			r.reconnect(c, t)
			return c
		}
	}

	c := &Client{
		ID:        uuid.NewString(),
		Username:  username,
		Spectator: spectator,
		transport: t,
	}
	r.clients = append(r.clients, c)

	if !spectator {
		if r.firstPlayer() == c {
			c.IsAdmin = true
		}
		r.bindParticipant(c)
	}

	c.Send(protocol.IDMsg{Type: protocol.MsgID, ID: c.ID})
	if c.IsAdmin {
		c.Send(protocol.IsAdminMsg{Type: protocol.MsgIsAdmin})
	}
	c.Send(r.roomStateMsg())

	if !spectator {
		c.Send(protocol.ClientStateMsg{Type: protocol.MsgClientState, Disabled: false})
		r.broadcastExcept(c, protocol.JoinMsg{
			Type: protocol.MsgJoin, RoomID: r.ID, ID: c.ID, Username: username,
		})
	}
	r.log.Info("client joined", "client", c.ID, "username", username, "spectator", spectator)
	return c
}

// reconnect swaps in the new transport and resyncs the client.
func (r *Room) reconnect(c *Client, t Transport) {
	if c.transport != nil {
		c.transport.Close()
	}
	c.transport = t
	c.disconnectedAt = time.Time{}

	c.Send(protocol.IDMsg{Type: protocol.MsgID, ID: c.ID})
	if c.IsAdmin {
		c.Send(protocol.IsAdminMsg{Type: protocol.MsgIsAdmin})
	}
	c.Send(r.roomStateMsg())
	if r.started && c.Participant != nil {
		r.sendPortfolio(c)
	}
	if !c.Spectator {
		r.sendInventory(c)
		disabled := c.Participant != nil && c.Participant.TradingDisabled()
		c.Send(protocol.ClientStateMsg{Type: protocol.MsgClientState, Disabled: disabled})
	}
	r.log.Info("client reconnected", "client", c.ID)
}

// MarkDisconnected starts the reconnect grace window.
func (r *Room) MarkDisconnected(c *Client) {
	c.disconnectedAt = r.now()
	r.log.Info("client disconnected", "client", c.ID)
}

// reapDisconnected removes clients whose grace window expired.
func (r *Room) reapDisconnected(now time.Time) {
	for _, c := range append([]*Client(nil), r.clients...) {
		if !c.disconnectedAt.IsZero() && now.Sub(c.disconnectedAt) >= DisconnectGrace {
			r.RemoveClient(c)
		}
	}
}

// RemoveClient drops a client for good. The admin role moves to the
// first remaining player; an empty room is disposed.
func (r *Room) RemoveClient(c *Client) {
	idx := -1
	for i, other := range r.clients {
		if other == c {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	r.clients = append(r.clients[:idx], r.clients[idx+1:]...)

	if c.transport != nil {
		c.transport.Close()
	}

	if c.IsAdmin {
		if next := r.firstPlayer(); next != nil {
			next.IsAdmin = true
			next.Send(protocol.IsAdminMsg{Type: protocol.MsgIsAdmin})
		}
	}

	r.broadcast(protocol.LeaveMsg{Type: protocol.MsgLeave, RoomID: r.ID, ID: c.ID})
	r.log.Info("client removed", "client", c.ID)

	if len(r.clients) == 0 {
		r.dispose()
	}
}

func (r *Room) clientByID(id string) *Client {
	for _, c := range r.clients {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (r *Room) firstPlayer() *Client {
	for _, c := range r.clients {
		if !c.Spectator {
			return c
		}
	}
	return nil
}

func (r *Room) listPlayerIDs() []string {
	var out []string
	for _, c := range r.clients {
		if !c.Spectator && c.Connected() {
			out = append(out, c.ID)
		}
	}
	return out
}

// --- message handling ---

// HandleMessage dispatches one decoded inbound message for a client.
// Unknown or malformed frames were already dropped by the caller.
func (r *Room) HandleMessage(c *Client, msg any) {
	switch m := msg.(type) {
	case *protocol.PingMsg:
		if m.Type == protocol.MsgPing {
			c.Send(protocol.PingMsg{Type: protocol.MsgPong})
		}
	case *protocol.TogglePauseMsg:
		r.handleTogglePause(c)
	case *protocol.ChatMsg:
		if !c.Spectator {
			r.broadcast(protocol.ChatMsg{Type: protocol.MsgChat, RoomID: r.ID, ID: c.ID, Content: m.Content})
		}
	case *protocol.StockActionMsg:
		r.handleStockAction(c, m)
	case *protocol.ShockMsg:
		r.handleShock(c, m)
	case *protocol.AdminSettingsMsg:
		r.handleAdminSettings(c, m)
	case *protocol.PowerSelectMsg:
		r.handlePowerSelect(c, m)
	case *protocol.PowerConsumeMsg:
		r.handlePowerConsume(c, m)
	}
}

// handleTogglePause flips the game clock. Non-admin attempts are echoed
// back so the sender's UI can self-correct.
func (r *Room) handleTogglePause(c *Client) {
	if !c.IsAdmin {
		c.Send(protocol.TogglePauseMsg{Type: protocol.MsgTogglePause})
		return
	}
	if r.ended {
		return
	}
	paused := !r.simulator.Paused()
	if !paused && !r.started {
		r.started = true
	}
	r.simulator.SetPaused(paused)
	r.broadcast(r.roomStateMsg())
}

func (r *Room) handleStockAction(c *Client, m *protocol.StockActionMsg) {
	if c.Spectator || c.Participant == nil || !r.started || r.ended || r.simulator.Paused() {
		return
	}
	now := r.now().UnixNano()
	p := c.Participant

	var err error
	switch strings.ToUpper(m.Action) + "/" + strings.ToUpper(m.OrderType) {
	case "BUY/LIMIT":
		err = p.PlaceLimitBuy(m.Price, m.Quantity, now)
	case "SELL/LIMIT":
		err = p.PlaceLimitSell(m.Price, m.Quantity, now)
	case "BUY/MARKET":
		_, err = p.PlaceMarketBuy(m.Quantity, now)
	case "SELL/MARKET":
		_, err = p.PlaceMarketSell(m.Quantity, now)
	default:
		return
	}
	if err != nil {
		// accounting preconditions fail silently; the client sees no
		// portfolio change
		r.log.Debug("stock action rejected", "client", c.ID, "err", err)
		return
	}
	r.broadcastStockMove(r.simulator.MarketPrice())
	r.sendPortfolio(c)
}

// handleShock lets the admin jolt the market for demonstration.
func (r *Room) handleShock(c *Client, m *protocol.ShockMsg) {
	if !c.IsAdmin {
		return
	}
	switch m.Target {
	case "intrinsic":
		r.gen.DriftIntrinsic(0.05)
	case "market":
		r.gen.Shock(0.1*r.rnd.Bipolar(), 0)
	}
}

// handleAdminSettings applies a settings patch. Only the admin may send
// it, and only while the game is paused.
func (r *Room) handleAdminSettings(c *Client, m *protocol.AdminSettingsMsg) {
	if !c.IsAdmin {
		return
	}
	if !r.simulator.Paused() || r.ended {
		c.Send(protocol.ErrorMsg{Type: protocol.MsgError, Message: "settings can only be changed while paused"})
		return
	}
	r.settings = config.ClampSettings(config.ApplyPatch(r.settings, m.Settings))
	r.Setup()
	r.broadcast(r.roomStateMsg())
}

func (r *Room) handlePowerSelect(c *Client, m *protocol.PowerSelectMsg) {
	if c.Spectator {
		return
	}
	if _, err := r.powerFactory.Select(c.ID, m.Index); err != nil {
		r.log.Debug("power select rejected", "client", c.ID, "err", err)
		return
	}
	r.sendInventory(c)
}

func (r *Room) handlePowerConsume(c *Client, m *protocol.PowerConsumeMsg) {
	if c.Spectator {
		return
	}
	if _, err := r.powerFactory.Consume(c.ID, m.ID); err != nil {
		r.log.Debug("power consume rejected", "client", c.ID, "err", err)
		return
	}
	r.sendInventory(c)
}

// --- outbound ---

func (r *Room) broadcast(msg any) {
	for _, c := range r.clients {
		c.Send(msg)
	}
}

func (r *Room) broadcastExcept(skip *Client, msg any) {
	for _, c := range r.clients {
		if c != skip {
			c.Send(msg)
		}
	}
}

func (r *Room) broadcastStockMove(price float64) {
	bids, asks := r.book.Depth()
	r.broadcast(protocol.StockMoveMsg{
		Type:  protocol.MsgStockMove,
		Price: price,
		Depth: [2][][2]float64{bids, asks},
	})
}

func (r *Room) broadcastDebugPrices(intrinsic, guide float64) {
	r.broadcast(protocol.DebugPricesMsg{
		Type:           protocol.MsgDebugPrices,
		IntrinsicValue: intrinsic,
		GuidePrice:     guide,
	})
}

func (r *Room) broadcastClock(clock int64, timeLeft time.Duration) {
	r.broadcast(protocol.ClockMsg{
		Type:     protocol.MsgClock,
		Value:    clock,
		TimeLeft: int64(timeLeft / time.Second),
	})
}

func (r *Room) broadcastNews(item *news.Item) {
	r.broadcast(protocol.NewsMsg{
		Type:          protocol.MsgNews,
		Title:         item.Title,
		Description:   item.Description,
		Timestamp:     item.Timestamp,
		DurationTicks: item.DurationTicks,
	})
}

func (r *Room) sendBriefcase(clientID string, offers []powers.Descriptor) {
	c := r.clientByID(clientID)
	if c == nil {
		return
	}
	out := make([]protocol.PowerOffer, len(offers))
	for i, d := range offers {
		out[i] = protocol.PowerOffer{
			ID:            d.ID,
			Title:         d.Title,
			Description:   d.Description,
			Rarity:        d.Rarity,
			IsInstant:     d.IsInstant,
			DurationTicks: d.DurationTicks,
		}
	}
	c.Send(protocol.PowerOffersMsg{Type: protocol.MsgPowerOffers, Offers: out})
}

func (r *Room) sendInventory(c *Client) {
	inv := r.powerFactory.Inventory(c.ID)
	out := make([]protocol.InventoryPower, len(inv))
	for i, p := range inv {
		out[i] = protocol.InventoryPower{
			UUID:          p.UUID,
			ID:            p.ID,
			Title:         p.Title,
			Description:   p.Description,
			DurationTicks: p.DurationTicks,
		}
	}
	c.Send(protocol.PowerInventoryMsg{Type: protocol.MsgPowerInventory, Powers: out})
}

func (r *Room) sendPortfolio(c *Client) {
	if c.Participant == nil {
		return
	}
	pf := c.Participant.Portfolio(r.simulator.MarketPrice())
	pnl := pf.PnL
	c.Send(protocol.PortfolioMsg{
		Type: protocol.MsgPortfolio,
		ID:   c.ID,
		Value: protocol.PortfolioValue{
			Cash:   pf.Cash,
			Shares: pf.Shares,
			PnL:    &pnl,
		},
	})
}

func (r *Room) grantCash(clientID string, amount float64) {
	c := r.clientByID(clientID)
	if c == nil || c.Participant == nil {
		return
	}
	c.Participant.Grant(amount)
	r.sendPortfolio(c)
}

func (r *Room) notify(target, level, title, description string) {
	msg := protocol.NotificationMsg{
		Type:        protocol.MsgNotification,
		Level:       level,
		Title:       title,
		Description: description,
	}
	if target == "" {
		r.broadcast(msg)
		return
	}
	if c := r.clientByID(target); c != nil {
		c.Send(msg)
	}
}

// concludeGame broadcasts the final standings when the simulator ends.
func (r *Room) concludeGame() {
	r.ended = true
	final := r.simulator.MarketPrice()

	var players []protocol.ConclusionEntry
	for _, c := range r.clients {
		if c.Spectator || c.Participant == nil {
			continue
		}
		players = append(players, conclusionEntry(c.Participant, final))
	}
	var botEntries []protocol.ConclusionEntry
	for _, b := range r.simulator.Bots() {
		botEntries = append(botEntries, conclusionEntry(b.Participant, final))
	}

	r.broadcast(protocol.GameConclusionMsg{
		Type:         protocol.MsgGameConclusion,
		Players:      players,
		Bots:         botEntries,
		VolumeTraded: r.book.TotalValueProcessed(),
		HighestPrice: r.book.HighestPrice(),
		LowestPrice:  r.book.LowestPrice(),
	})
	r.log.Info("game concluded", "finalPrice", final)
}

func conclusionEntry(p *participant.Participant, price float64) protocol.ConclusionEntry {
	pf := p.Portfolio(price)
	return protocol.ConclusionEntry{
		ID:     pf.ID,
		Name:   pf.Name,
		Cash:   pf.Cash,
		Shares: pf.Shares,
		PnL:    pf.PnL,
	}
}

// roomStateMsg builds the ROOM_STATE broadcast.
func (r *Room) roomStateMsg() protocol.RoomStateMsg {
	var infos []protocol.ClientInfo
	for _, c := range r.clients {
		if c.Spectator {
			continue
		}
		infos = append(infos, protocol.ClientInfo{ID: c.ID, Username: c.Username, IsAdmin: c.IsAdmin})
	}
	return protocol.RoomStateMsg{
		Type:     protocol.MsgRoomState,
		RoomID:   r.ID,
		Paused:   r.simulator.Paused(),
		Started:  r.started,
		Ended:    r.ended,
		Settings: r.settings,
		Clock:    r.simulator.Clock(),
		Clients:  infos,
		Price:    r.simulator.MarketPrice(),
	}
}

// --- accessors ---

// Settings returns the current game settings.
func (r *Room) Settings() protocol.GameSettings { return r.settings }

// Started reports whether the game was ever unpaused.
func (r *Room) Started() bool { return r.started }

// Ended reports whether the game concluded.
func (r *Room) Ended() bool { return r.ended }

// Simulator returns the room's current simulator.
func (r *Room) Simulator() *sim.Simulator { return r.simulator }

// Powers returns the room's power factory.
func (r *Room) Powers() *powers.Factory { return r.powerFactory }

// News returns the room's news factory.
func (r *Room) News() *news.Factory { return r.newsFactory }

// Clients returns the connected and grace-period clients in join order.
func (r *Room) Clients() []*Client { return r.clients }

// Empty reports whether no clients remain.
func (r *Room) Empty() bool { return len(r.clients) == 0 }

package engine

// Config parameterizes one game. Zero fields take the physical-game defaults.
type Config struct {
	Players      int
	WinScore     int  // cumulative score that ends the game, default 500
	WithBull     bool // include the bull wildcard
	WithBear     bool // include the bear wildcard
	ClaimPenalty int  // charged for a rejected corner claim, default 20
	WildPenalty  int  // charged per wildcard stranded in a losing hand, default 20
	MaxOfferQty  int  // largest offer a seat may shout, default 4
	Values       map[Commodity]int
}

func (c Config) withDefaults() Config {
	if c.WinScore == 0 {
		c.WinScore = 500
	}
	if c.ClaimPenalty == 0 {
		c.ClaimPenalty = 20
	}
	if c.WildPenalty == 0 {
		c.WildPenalty = 20
	}
	if c.MaxOfferQty == 0 {
		c.MaxOfferQty = 4
	}
	if c.Values == nil {
		c.Values = DefaultValues
	}
	return c
}

// Game is the engine-owned state: all hands, open offers, scores and piles.
// It is mutated only through DealRound, Apply and Forfeit, and is never
// touched concurrently; collaborators see it through read-only snapshots.
type Game struct {
	cfg      Config
	scores   []int
	roundNum int
	dealer   Seat
	phase    Phase

	hands     [][]Card
	blind     []Card
	dead      []Card
	offers    []*Offer
	offerSeq  int64
	forfeited []bool
}

func NewGame(cfg Config) (*Game, error) {
	cfg = cfg.withDefaults()
	if cfg.Players < 3 || cfg.Players > 8 {
		return nil, DealError{Players: cfg.Players, Reason: "player count must be between 3 and 8"}
	}
	g := &Game{
		cfg:       cfg,
		scores:    make([]int, cfg.Players),
		phase:     PhaseDealing,
		hands:     make([][]Card, cfg.Players),
		forfeited: make([]bool, cfg.Players),
	}
	return g, nil
}

func (g *Game) Config() Config { return g.cfg }
func (g *Game) Phase() Phase   { return g.phase }
func (g *Game) RoundNum() int  { return g.roundNum }
func (g *Game) Dealer() Seat   { return g.dealer }

func (g *Game) Scores() []int { return append([]int(nil), g.scores...) }

func (g *Game) Forfeited(s Seat) bool { return g.forfeited[s] }

// ActiveSeats returns the non-forfeited seats in turn order.
func (g *Game) ActiveSeats() []Seat {
	out := make([]Seat, 0, g.cfg.Players)
	for s := 0; s < g.cfg.Players; s++ {
		if !g.forfeited[s] {
			out = append(out, Seat(s))
		}
	}
	return out
}

// Hand returns a copy of a seat's cards.
func (g *Game) Hand(s Seat) []Card { return append([]Card(nil), g.hands[s]...) }

// HandCounts returns the public per-seat card counts.
func (g *Game) HandCounts() []int {
	out := make([]int, g.cfg.Players)
	for i, h := range g.hands {
		out[i] = len(h)
	}
	return out
}

// OpenOffers returns the public view of outstanding offers, commodity
// withheld by construction (the field is unexported).
func (g *Game) OpenOffers() []Offer {
	out := make([]Offer, 0, len(g.offers))
	for _, o := range g.offers {
		out = append(out, Offer{ID: o.ID, Seat: o.Seat, Quantity: o.Quantity})
	}
	return out
}

// OfferCommodity reveals what an open offer is shouting. Callers projecting
// state for a seat must only pass that seat's own offer ids.
func (g *Game) OfferCommodity(id int64) Commodity {
	if o := g.findOffer(id); o != nil {
		return o.commodity
	}
	return ""
}

// CardCensus is the total number of cards across hands, blind pile and dead
// pile. It must equal the dealt deck size for the entire round.
func (g *Game) CardCensus() int {
	n := len(g.blind) + len(g.dead)
	for _, h := range g.hands {
		n += len(h)
	}
	return n
}

// DealRound shuffles a fresh deck for the active seats and deals it,
// advancing the dealer and the round number. The commodity count always
// matches the number of seats still playing so a corner stays reachable.
func (g *Game) DealRound(seed int64) error {
	active := g.ActiveSeats()
	if len(active) < 2 {
		return DealError{Players: len(active), Reason: "fewer than 2 active seats"}
	}
	deck := Shuffle(NewDeck(CommodityOrder[:len(active)], g.cfg.WithBull, g.cfg.WithBear), seed)
	hands, blind, err := dealActive(deck, len(active))
	if err != nil {
		return err
	}
	for i := range g.hands {
		g.hands[i] = nil
	}
	for i, s := range active {
		g.hands[s] = hands[i]
	}
	g.blind = blind
	g.dead = nil
	g.offers = nil
	g.roundNum++
	if g.roundNum > 1 {
		g.dealer = g.nextActive(g.dealer)
	}
	g.phase = PhaseTrading
	return nil
}

func (g *Game) nextActive(s Seat) Seat {
	for i := 0; i < g.cfg.Players; i++ {
		s = Seat((int(s) + 1) % g.cfg.Players)
		if !g.forfeited[s] {
			return s
		}
	}
	return s
}

// Apply validates an action against the current state and executes it.
// It is the only path that mutates hands outside dealing and forfeiting.
func (g *Game) Apply(seat Seat, a Action) (Outcome, error) {
	if g.phase == PhaseSettled {
		return Outcome{}, ErrRoundOver
	}
	if g.phase != PhaseTrading {
		return Outcome{}, ErrNotTrading
	}
	if g.forfeited[seat] {
		return Outcome{}, ErrSeatForfeited
	}
	switch a.Kind {
	case MakeOffer:
		return g.applyOffer(seat, a)
	case AcceptOffer:
		return g.applyAccept(seat, a.OfferID)
	case Withdraw:
		return g.applyWithdraw(seat, a.OfferID)
	case ClaimCorner:
		return g.applyClaim(seat)
	case Pass:
		return Outcome{Kind: Passed}, nil
	default:
		return Outcome{}, ErrUnknownAction
	}
}

func (g *Game) applyOffer(seat Seat, a Action) (Outcome, error) {
	if a.Quantity < 1 || a.Quantity > g.cfg.MaxOfferQty {
		return Outcome{}, ErrQuantity
	}
	counts, _, _ := countByCommodity(g.hands[seat])
	if counts[a.Commodity] < a.Quantity {
		return Outcome{}, ErrInsufficientCards
	}
	// A seat shouts one offer at a time; a new shout supersedes the old one.
	g.removeOffersBySeat(seat)
	g.offerSeq++
	o := &Offer{ID: g.offerSeq, Seat: seat, Quantity: a.Quantity, commodity: a.Commodity}
	g.offers = append(g.offers, o)
	pub := Offer{ID: o.ID, Seat: o.Seat, Quantity: o.Quantity}
	return Outcome{Kind: OfferPosted, Offer: &pub}, nil
}

func (g *Game) applyAccept(seat Seat, id int64) (Outcome, error) {
	target := g.findOffer(id)
	if target == nil {
		return Outcome{}, ErrNoSuchOffer
	}
	if target.Seat == seat {
		return Outcome{}, ErrOwnOffer
	}
	own := g.offerBySeat(seat)
	if own == nil || own.Quantity != target.Quantity {
		return Outcome{}, ErrNoMatchingOffer
	}

	// Hands drift between posting and matching; re-check both sides.
	tCounts, _, _ := countByCommodity(g.hands[target.Seat])
	if tCounts[target.commodity] < target.Quantity {
		g.removeOffer(target.ID)
		return Outcome{}, ErrStaleOffer
	}
	oCounts, _, _ := countByCommodity(g.hands[seat])
	if oCounts[own.commodity] < own.Quantity {
		g.removeOffer(own.ID)
		return Outcome{}, ErrStaleOffer
	}

	// Both-or-neither: validated above, so each removal must succeed.
	th, _ := removeCommodity(g.hands[target.Seat], target.commodity, target.Quantity)
	oh, _ := removeCommodity(g.hands[seat], own.commodity, own.Quantity)
	g.hands[target.Seat] = addCommodity(th, own.commodity, own.Quantity)
	g.hands[seat] = addCommodity(oh, target.commodity, target.Quantity)

	trade := Trade{
		Taken:    Offer{ID: target.ID, Seat: target.Seat, Quantity: target.Quantity},
		Given:    Offer{ID: own.ID, Seat: own.Seat, Quantity: own.Quantity},
		Quantity: target.Quantity,
	}
	g.removeOffer(target.ID)
	g.removeOffer(own.ID)
	return Outcome{Kind: TradeExecuted, Trade: &trade}, nil
}

func (g *Game) applyWithdraw(seat Seat, id int64) (Outcome, error) {
	o := g.findOffer(id)
	if o == nil {
		// Covers the withdraw/accept race: the id was spent by a trade.
		return Outcome{}, ErrNoSuchOffer
	}
	if o.Seat != seat {
		return Outcome{}, ErrNotYourOffer
	}
	pub := Offer{ID: o.ID, Seat: o.Seat, Quantity: o.Quantity}
	g.removeOffer(id)
	return Outcome{Kind: OfferWithdrawn, Offer: &pub}, nil
}

func (g *Game) applyClaim(seat Seat) (Outcome, error) {
	counts, bull, _ := countByCommodity(g.hands[seat])
	var corner Commodity
	for _, k := range CommodityOrder {
		if counts[k] == CornerSize {
			corner = k
			break
		}
	}
	if corner == "" {
		g.scores[seat] -= g.cfg.ClaimPenalty
		return Outcome{Kind: CornerRejected, Delta: -g.cfg.ClaimPenalty}, nil
	}
	// A bear held anywhere else at claim time spoils the corner.
	for _, s := range g.ActiveSeats() {
		if s == seat {
			continue
		}
		if _, _, bear := countByCommodity(g.hands[s]); bear {
			g.scores[seat] -= g.cfg.ClaimPenalty
			return Outcome{Kind: CornerRejected, Delta: -g.cfg.ClaimPenalty}, nil
		}
	}

	delta := g.cfg.Values[corner]
	if bull {
		delta *= 2
	}
	g.scores[seat] += delta
	// Wildcards stranded in any other hand cost their holders.
	for _, s := range g.ActiveSeats() {
		if s == seat {
			continue
		}
		_, b, br := countByCommodity(g.hands[s])
		if b {
			g.scores[s] -= g.cfg.WildPenalty
		}
		if br {
			g.scores[s] -= g.cfg.WildPenalty
		}
	}
	g.phase = PhaseSettled
	return Outcome{Kind: CornerHonored, Commodity: corner, Delta: delta}, nil
}

// Forfeit retires a seat for the rest of the game. Its cards move to the
// dead pile, which no corner verification ever reads.
func (g *Game) Forfeit(seat Seat) {
	if g.forfeited[seat] {
		return
	}
	g.forfeited[seat] = true
	g.dead = append(g.dead, g.hands[seat]...)
	g.hands[seat] = nil
	g.removeOffersBySeat(seat)
}

// Winner reports the first seat at or above the win score, highest first.
func (g *Game) Winner() (Seat, bool) {
	best, bestScore, found := Seat(0), 0, false
	for s, sc := range g.scores {
		if sc >= g.cfg.WinScore && (!found || sc > bestScore) {
			best, bestScore, found = Seat(s), sc, true
		}
	}
	return best, found
}

func (g *Game) findOffer(id int64) *Offer {
	for _, o := range g.offers {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (g *Game) offerBySeat(seat Seat) *Offer {
	for _, o := range g.offers {
		if o.Seat == seat {
			return o
		}
	}
	return nil
}

func (g *Game) removeOffer(id int64) {
	out := g.offers[:0]
	for _, o := range g.offers {
		if o.ID != id {
			out = append(out, o)
		}
	}
	g.offers = out
}

func (g *Game) removeOffersBySeat(seat Seat) {
	out := g.offers[:0]
	for _, o := range g.offers {
		if o.Seat != seat {
			out = append(out, o)
		}
	}
	g.offers = out
}

package engine

import "errors"

// Seat is a player's fixed 0-based position in turn order for one game.
type Seat int

// Commodity is one of the tradeable goods ("wheat", "coffee", ...).
type Commodity string

// Wild marks the two special cards of the bull & bear variant.
type Wild string

const (
	WildNone Wild = ""
	WildBull Wild = "bull"
	WildBear Wild = "bear"
)

// Card is either a commodity card or a wildcard, never both.
type Card struct {
	Commodity Commodity `json:"commodity,omitempty"`
	Wild      Wild      `json:"wild,omitempty"`
}

func (c Card) IsWild() bool { return c.Wild != WildNone }

func (c Card) String() string {
	if c.IsWild() {
		return string(c.Wild)
	}
	return string(c.Commodity)
}

// Phase is the lifecycle stage of a round.
type Phase string

const (
	PhaseDealing Phase = "dealing"
	PhaseTrading Phase = "trading"
	PhaseSettled Phase = "settled"
)

type ActionKind string

const (
	MakeOffer   ActionKind = "offer"
	AcceptOffer ActionKind = "accept"
	Withdraw    ActionKind = "withdraw"
	ClaimCorner ActionKind = "claim"
	// Pass is the "no move" action. Timeouts and protocol faults are folded
	// into it by the match loop, and a player with nothing to do returns it.
	Pass ActionKind = "pass"
)

// Action is one player-initiated operation, consumed exactly once by Apply.
// The commodity being offered travels only between a player and the engine;
// it is never echoed to other seats' views.
type Action struct {
	Kind      ActionKind `json:"action"`
	Quantity  int        `json:"qty,omitempty"`       // offer
	Commodity Commodity  `json:"commodity,omitempty"` // offer
	OfferID   int64      `json:"offer_id,omitempty"`  // accept / withdraw
}

// Offer is a blind proposal to trade Quantity cards. The commodity being
// offered stays server-side; other seats only ever see the quantity.
// IDs come from a game-wide monotonic counter, which doubles as the version
// token that keeps withdraw/accept races deterministic: an id is spent the
// moment its offer is matched or withdrawn, so a late withdrawal of a traded
// offer simply misses.
type Offer struct {
	ID       int64 `json:"id"`
	Seat     Seat  `json:"seat"`
	Quantity int   `json:"qty"`

	commodity Commodity
}

// Trade records an executed swap between two matched offers.
type Trade struct {
	Taken    Offer // the offer named by AcceptOffer
	Given    Offer // the accepting seat's own open offer
	Quantity int
}

type OutcomeKind string

const (
	OfferPosted    OutcomeKind = "offer_posted"
	TradeExecuted  OutcomeKind = "trade_executed"
	OfferWithdrawn OutcomeKind = "offer_withdrawn"
	CornerHonored  OutcomeKind = "corner_honored"
	CornerRejected OutcomeKind = "corner_rejected"
	Passed         OutcomeKind = "passed"
)

// Outcome describes what Apply did with an action.
type Outcome struct {
	Kind      OutcomeKind
	Offer     *Offer // posted or withdrawn
	Trade     *Trade
	Commodity Commodity // cornered commodity on an honored claim
	Delta     int       // score change for the acting seat (claims only)
}

// DealError aborts game setup: bad player count or a deck that cannot be
// partitioned.
type DealError struct {
	Players int
	Reason  string
}

func (e DealError) Error() string { return "deal: " + e.Reason }

// InvalidAction preconditions. The match loop rejects these locally and
// re-requests from the same seat once.
var (
	ErrUnknownAction     = errors.New("unknown action kind")
	ErrRoundOver         = errors.New("round already settled")
	ErrNotTrading        = errors.New("round not in trading phase")
	ErrSeatForfeited     = errors.New("seat has forfeited")
	ErrQuantity          = errors.New("offer quantity out of range")
	ErrInsufficientCards = errors.New("no single commodity covers the offered quantity")
	ErrNoSuchOffer       = errors.New("offer is not open")
	ErrOwnOffer          = errors.New("cannot trade against your own offer")
	ErrNotYourOffer      = errors.New("offer belongs to another seat")
	ErrNoMatchingOffer   = errors.New("accepting seat has no open offer of equal size")
	ErrStaleOffer        = errors.New("offer no longer backed by the offering hand")
)

package agent

import (
	"fmt"

	"pitarena/server/engine"
)

// View is the JSON we send a player when asking for its action. It carries
// everything the seat is entitled to see and nothing more: its own hand by
// commodity, everyone's card counts and scores, and the open offers with the
// commodity blanked out on every offer but its own.
type View struct {
	Seat        int            `json:"seat"`
	Round       int            `json:"round"`
	Dealer      int            `json:"dealer"`
	Hand        map[string]int `json:"hand"` // commodity -> count held
	Bull        bool           `json:"bull"`
	Bear        bool           `json:"bear"`
	Offers      []OfferView    `json:"offers"`
	HandCounts  []int          `json:"hand_counts"`
	Scores      []int          `json:"scores"`
	Forfeited   []bool         `json:"forfeited"`
	CornerSize  int            `json:"corner_size"`
	MaxOfferQty int            `json:"max_offer_qty"`
	Legal       []string       `json:"legal_actions"`
}

// OfferView is one open offer as a given seat sees it. Commodity is set only
// on the viewer's own offer.
type OfferView struct {
	ID        int64  `json:"id"`
	Seat      int    `json:"seat"`
	Quantity  int    `json:"qty"`
	Mine      bool   `json:"mine"`
	Commodity string `json:"commodity,omitempty"`
}

// Decider picks one action from a view. Implementations see the game only
// through the view; they hold no reference to engine state.
type Decider interface {
	Name() string
	Decide(v View) (engine.Action, error)
}

// BuildView projects engine state into what one seat may see.
func BuildView(g *engine.Game, seat engine.Seat) View {
	counts, bull, bear := engine.HandSummary(g.Hand(seat))
	hand := make(map[string]int, len(counts))
	var mine *engine.Offer
	for k, n := range counts {
		hand[string(k)] = n
	}

	open := g.OpenOffers()
	offers := make([]OfferView, 0, len(open))
	for i := range open {
		o := open[i]
		ov := OfferView{ID: o.ID, Seat: int(o.Seat), Quantity: o.Quantity, Mine: o.Seat == seat}
		if ov.Mine {
			mine = &open[i]
			ov.Commodity = string(g.OfferCommodity(o.ID))
		}
		offers = append(offers, ov)
	}

	forf := make([]bool, g.Config().Players)
	for i := range forf {
		forf[i] = g.Forfeited(engine.Seat(i))
	}

	v := View{
		Seat:        int(seat),
		Round:       g.RoundNum(),
		Dealer:      int(g.Dealer()),
		Hand:        hand,
		Bull:        bull,
		Bear:        bear,
		Offers:      offers,
		HandCounts:  g.HandCounts(),
		Scores:      g.Scores(),
		Forfeited:   forf,
		CornerSize:  engine.CornerSize,
		MaxOfferQty: g.Config().MaxOfferQty,
		Legal:       legalKinds(hand, offers, mine),
	}
	return v
}

// legalKinds lists the structurally available action kinds. Claims are always
// listed; a premature claim is a scored penalty, not a protocol error.
func legalKinds(hand map[string]int, offers []OfferView, mine *engine.Offer) []string {
	legal := []string{string(engine.Pass), string(engine.ClaimCorner)}
	for _, n := range hand {
		if n > 0 {
			legal = append(legal, string(engine.MakeOffer))
			break
		}
	}
	if mine != nil {
		legal = append(legal, string(engine.Withdraw))
		for _, o := range offers {
			if !o.Mine && o.Quantity == mine.Quantity {
				legal = append(legal, string(engine.AcceptOffer))
				break
			}
		}
	}
	return legal
}

// Validate rejects actions the view already shows to be impossible, so a
// malformed player answer is caught before it reaches the engine.
func Validate(v View, a engine.Action) error {
	legal := false
	for _, k := range v.Legal {
		if k == string(a.Kind) {
			legal = true
			break
		}
	}
	if !legal {
		return fmt.Errorf("illegal action %q (legals: %v)", a.Kind, v.Legal)
	}

	switch a.Kind {
	case engine.MakeOffer:
		if a.Quantity < 1 || a.Quantity > v.MaxOfferQty {
			return fmt.Errorf("offer quantity %d out of bounds [1, %d]", a.Quantity, v.MaxOfferQty)
		}
		if v.Hand[string(a.Commodity)] < a.Quantity {
			return fmt.Errorf("offer of %d %s not covered by hand", a.Quantity, a.Commodity)
		}
	case engine.AcceptOffer:
		var target, mine *OfferView
		for i := range v.Offers {
			switch {
			case v.Offers[i].ID == a.OfferID:
				target = &v.Offers[i]
			case v.Offers[i].Mine:
				mine = &v.Offers[i]
			}
		}
		if target == nil {
			return fmt.Errorf("accept of unknown offer %d", a.OfferID)
		}
		if target.Mine {
			return fmt.Errorf("accept of own offer %d", a.OfferID)
		}
		if mine == nil || mine.Quantity != target.Quantity {
			return fmt.Errorf("accept of offer %d without a matching open offer", a.OfferID)
		}
	case engine.Withdraw:
		for _, o := range v.Offers {
			if o.ID == a.OfferID && o.Mine {
				return nil
			}
		}
		return fmt.Errorf("withdraw of offer %d not owned by seat %d", a.OfferID, v.Seat)
	}
	return nil
}

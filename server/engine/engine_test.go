package engine

import (
	"errors"
	"testing"
)

// newTestGame deals a deterministic round and then overwrites the hands so
// each case starts from a known layout. Unmentioned seats keep their dealt
// cards, which keeps the census meaningful.
func newTestGame(t *testing.T, players int, cfg Config, hands map[Seat][]Card) *Game {
	t.Helper()
	cfg.Players = players
	g, err := NewGame(cfg)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if err := g.DealRound(1); err != nil {
		t.Fatalf("DealRound: %v", err)
	}
	for s, h := range hands {
		g.hands[s] = append([]Card(nil), h...)
	}
	return g
}

func repeat(k Commodity, n int) []Card {
	out := make([]Card, n)
	for i := range out {
		out[i] = Card{Commodity: k}
	}
	return out
}

func mustApply(t *testing.T, g *Game, s Seat, a Action) Outcome {
	t.Helper()
	out, err := g.Apply(s, a)
	if err != nil {
		t.Fatalf("seat %d %s: %v", s, a.Kind, err)
	}
	return out
}

func TestDealRoundCensus(t *testing.T) {
	g := newTestGame(t, 4, Config{WithBull: true, WithBear: true}, nil)
	want := 4*CornerSize + 2
	if g.CardCensus() != want {
		t.Fatalf("census = %d, want %d", g.CardCensus(), want)
	}
	for s := Seat(0); s < 4; s++ {
		if n := len(g.Hand(s)); n != 9 {
			t.Fatalf("seat %d dealt %d cards, want 9", s, n)
		}
	}
}

func TestTradeSwapsEqualCounts(t *testing.T) {
	g := newTestGame(t, 3, Config{}, map[Seat][]Card{
		0: append(repeat("wheat", 6), repeat("corn", 3)...),
		1: append(repeat("corn", 6), repeat("wheat", 3)...),
	})
	before := g.CardCensus()

	posted := mustApply(t, g, 0, Action{Kind: MakeOffer, Quantity: 3, Commodity: "corn"})
	mustApply(t, g, 1, Action{Kind: MakeOffer, Quantity: 3, Commodity: "wheat"})
	out := mustApply(t, g, 1, Action{Kind: AcceptOffer, OfferID: posted.Offer.ID})
	if out.Kind != TradeExecuted || out.Trade == nil {
		t.Fatalf("outcome = %+v, want trade", out)
	}
	if out.Trade.Quantity != 3 {
		t.Fatalf("trade quantity = %d, want 3", out.Trade.Quantity)
	}

	c0, _, _ := countByCommodity(g.Hand(0))
	c1, _, _ := countByCommodity(g.Hand(1))
	if c0["wheat"] != 9 || c0["corn"] != 0 {
		t.Fatalf("seat 0 after trade: %v", c0)
	}
	if c1["corn"] != 9 || c1["wheat"] != 0 {
		t.Fatalf("seat 1 after trade: %v", c1)
	}
	if len(g.Hand(0)) != 9 || len(g.Hand(1)) != 9 {
		t.Fatalf("hand sizes changed: %d and %d", len(g.Hand(0)), len(g.Hand(1)))
	}
	if g.CardCensus() != before {
		t.Fatalf("census drifted: %d -> %d", before, g.CardCensus())
	}
	if len(g.OpenOffers()) != 0 {
		t.Fatalf("offers survive the trade: %v", g.OpenOffers())
	}
}

func TestOfferValidation(t *testing.T) {
	type tc struct {
		name    string
		action  Action
		wantErr error
	}
	cases := []tc{
		{name: "zero quantity", action: Action{Kind: MakeOffer, Quantity: 0, Commodity: "wheat"}, wantErr: ErrQuantity},
		{name: "over the cap", action: Action{Kind: MakeOffer, Quantity: 5, Commodity: "wheat"}, wantErr: ErrQuantity},
		{name: "more than held", action: Action{Kind: MakeOffer, Quantity: 4, Commodity: "corn"}, wantErr: ErrInsufficientCards},
		{name: "commodity not held", action: Action{Kind: MakeOffer, Quantity: 1, Commodity: "sugar"}, wantErr: ErrInsufficientCards},
		{name: "legal", action: Action{Kind: MakeOffer, Quantity: 4, Commodity: "wheat"}, wantErr: nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := newTestGame(t, 3, Config{}, map[Seat][]Card{
				0: append(repeat("wheat", 6), repeat("corn", 3)...),
			})
			_, err := g.Apply(0, c.action)
			if !errors.Is(err, c.wantErr) {
				t.Fatalf("err = %v, want %v", err, c.wantErr)
			}
		})
	}
}

func TestNewOfferSupersedesOld(t *testing.T) {
	g := newTestGame(t, 3, Config{}, map[Seat][]Card{
		0: append(repeat("wheat", 6), repeat("corn", 3)...),
	})
	first := mustApply(t, g, 0, Action{Kind: MakeOffer, Quantity: 2, Commodity: "wheat"})
	second := mustApply(t, g, 0, Action{Kind: MakeOffer, Quantity: 3, Commodity: "corn"})
	if second.Offer.ID <= first.Offer.ID {
		t.Fatalf("offer ids not monotonic: %d then %d", first.Offer.ID, second.Offer.ID)
	}
	open := g.OpenOffers()
	if len(open) != 1 || open[0].ID != second.Offer.ID {
		t.Fatalf("open offers = %v, want only the second", open)
	}
}

func TestAcceptRequiresMatchingOwnOffer(t *testing.T) {
	g := newTestGame(t, 3, Config{}, map[Seat][]Card{
		0: repeat("wheat", 9),
		1: repeat("corn", 9),
	})
	posted := mustApply(t, g, 0, Action{Kind: MakeOffer, Quantity: 3, Commodity: "wheat"})

	if _, err := g.Apply(1, Action{Kind: AcceptOffer, OfferID: posted.Offer.ID}); !errors.Is(err, ErrNoMatchingOffer) {
		t.Fatalf("accept without own offer: %v", err)
	}
	mustApply(t, g, 1, Action{Kind: MakeOffer, Quantity: 2, Commodity: "corn"})
	if _, err := g.Apply(1, Action{Kind: AcceptOffer, OfferID: posted.Offer.ID}); !errors.Is(err, ErrNoMatchingOffer) {
		t.Fatalf("accept with unequal quantity: %v", err)
	}
	if _, err := g.Apply(0, Action{Kind: AcceptOffer, OfferID: posted.Offer.ID}); !errors.Is(err, ErrOwnOffer) {
		t.Fatalf("accept own offer: %v", err)
	}
}

func TestWithdrawAfterTradeMisses(t *testing.T) {
	g := newTestGame(t, 3, Config{}, map[Seat][]Card{
		0: repeat("wheat", 9),
		1: repeat("corn", 9),
	})
	posted := mustApply(t, g, 0, Action{Kind: MakeOffer, Quantity: 2, Commodity: "wheat"})
	mustApply(t, g, 1, Action{Kind: MakeOffer, Quantity: 2, Commodity: "corn"})
	mustApply(t, g, 1, Action{Kind: AcceptOffer, OfferID: posted.Offer.ID})

	// The id was spent by the trade; the late withdrawal finds nothing.
	if _, err := g.Apply(0, Action{Kind: Withdraw, OfferID: posted.Offer.ID}); !errors.Is(err, ErrNoSuchOffer) {
		t.Fatalf("late withdraw: %v", err)
	}
}

func TestWithdrawOnlyOwnOffer(t *testing.T) {
	g := newTestGame(t, 3, Config{}, map[Seat][]Card{
		0: repeat("wheat", 9),
	})
	posted := mustApply(t, g, 0, Action{Kind: MakeOffer, Quantity: 2, Commodity: "wheat"})
	if _, err := g.Apply(1, Action{Kind: Withdraw, OfferID: posted.Offer.ID}); !errors.Is(err, ErrNotYourOffer) {
		t.Fatalf("foreign withdraw: %v", err)
	}
	out := mustApply(t, g, 0, Action{Kind: Withdraw, OfferID: posted.Offer.ID})
	if out.Kind != OfferWithdrawn {
		t.Fatalf("outcome = %v, want withdrawal", out.Kind)
	}
	if len(g.OpenOffers()) != 0 {
		t.Fatalf("offer still open after withdrawal")
	}
}

func TestStaleOfferPruned(t *testing.T) {
	g := newTestGame(t, 3, Config{}, map[Seat][]Card{
		0: append(repeat("wheat", 3), repeat("corn", 6)...),
		1: repeat("sugar", 9),
		2: repeat("oats", 9),
	})
	// Seat 0 posts wheat, then trades its wheat away to seat 2, leaving the
	// original offer unbacked.
	stale := mustApply(t, g, 0, Action{Kind: MakeOffer, Quantity: 3, Commodity: "wheat"})
	mustApply(t, g, 2, Action{Kind: MakeOffer, Quantity: 3, Commodity: "oats"})
	mustApply(t, g, 2, Action{Kind: AcceptOffer, OfferID: stale.Offer.ID})

	// Repost from seat 0 for a commodity it no longer fully holds.
	g.hands[0], _ = removeCommodity(g.hands[0], "corn", 4)
	g.offers = append(g.offers, &Offer{ID: 99, Seat: 0, Quantity: 3, commodity: "corn"})
	g.hands[0], _ = removeCommodity(g.hands[0], "corn", 2)

	mustApply(t, g, 1, Action{Kind: MakeOffer, Quantity: 3, Commodity: "sugar"})
	if _, err := g.Apply(1, Action{Kind: AcceptOffer, OfferID: 99}); !errors.Is(err, ErrStaleOffer) {
		t.Fatalf("stale accept: %v", err)
	}
	for _, o := range g.OpenOffers() {
		if o.ID == 99 {
			t.Fatalf("stale offer still open")
		}
	}
}

func TestClaimCornerBoundary(t *testing.T) {
	type tc struct {
		name     string
		hand     []Card
		wantKind OutcomeKind
		delta    int
	}
	cases := []tc{
		{
			name:     "nine of a kind scores",
			hand:     repeat("wheat", 9),
			wantKind: CornerHonored,
			delta:    100,
		},
		{
			name:     "eight is not a corner",
			hand:     append(repeat("wheat", 8), Card{Commodity: "corn"}),
			wantKind: CornerRejected,
			delta:    -20,
		},
		{
			name:     "eight plus bull is not a corner",
			hand:     append(repeat("wheat", 8), Card{Wild: WildBull}),
			wantKind: CornerRejected,
			delta:    -20,
		},
		{
			name:     "nine plus bull doubles",
			hand:     append(repeat("barley", 9), Card{Wild: WildBull}),
			wantKind: CornerHonored,
			delta:    170,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := newTestGame(t, 3, Config{WithBull: true}, map[Seat][]Card{0: c.hand})
			out := mustApply(t, g, 0, Action{Kind: ClaimCorner})
			if out.Kind != c.wantKind {
				t.Fatalf("outcome = %v, want %v", out.Kind, c.wantKind)
			}
			if out.Delta != c.delta {
				t.Fatalf("delta = %d, want %d", out.Delta, c.delta)
			}
			if g.Scores()[0] != c.delta {
				t.Fatalf("score = %d, want %d", g.Scores()[0], c.delta)
			}
			wantPhase := PhaseTrading
			if c.wantKind == CornerHonored {
				wantPhase = PhaseSettled
			}
			if g.Phase() != wantPhase {
				t.Fatalf("phase = %v, want %v", g.Phase(), wantPhase)
			}
		})
	}
}

func TestBearSpoilsCorner(t *testing.T) {
	g := newTestGame(t, 3, Config{WithBull: true, WithBear: true}, map[Seat][]Card{
		0: repeat("wheat", 9),
		1: append(repeat("corn", 8), Card{Wild: WildBear}),
	})
	out := mustApply(t, g, 0, Action{Kind: ClaimCorner})
	if out.Kind != CornerRejected {
		t.Fatalf("outcome = %v, want rejection while bear is loose", out.Kind)
	}
	if g.Scores()[0] != -20 {
		t.Fatalf("score = %d, want -20", g.Scores()[0])
	}
	if g.Phase() != PhaseTrading {
		t.Fatalf("round settled on a spoiled claim")
	}
}

func TestBearInDeadPileDoesNotSpoil(t *testing.T) {
	g := newTestGame(t, 4, Config{WithBear: true}, map[Seat][]Card{
		0: repeat("wheat", 9),
		1: append(repeat("corn", 8), Card{Wild: WildBear}),
	})
	g.Forfeit(1)
	out := mustApply(t, g, 0, Action{Kind: ClaimCorner})
	if out.Kind != CornerHonored {
		t.Fatalf("outcome = %v, dead-pile bear should not spoil", out.Kind)
	}
}

func TestStrandedWildcardsPenalized(t *testing.T) {
	g := newTestGame(t, 3, Config{WithBull: true, WithBear: true}, map[Seat][]Card{
		0: repeat("wheat", 9),
		1: append(repeat("corn", 8), Card{Wild: WildBull}),
	})
	mustApply(t, g, 0, Action{Kind: ClaimCorner})
	scores := g.Scores()
	if scores[0] != 100 {
		t.Fatalf("claimant score = %d, want 100", scores[0])
	}
	if scores[1] != -20 {
		t.Fatalf("bull holder score = %d, want -20", scores[1])
	}
}

func TestForfeitMovesCardsToDeadPile(t *testing.T) {
	g := newTestGame(t, 4, Config{}, map[Seat][]Card{
		2: repeat("sugar", 9),
	})
	before := g.CardCensus()
	mustApply(t, g, 2, Action{Kind: MakeOffer, Quantity: 2, Commodity: "sugar"})

	g.Forfeit(2)
	if g.CardCensus() != before {
		t.Fatalf("census drifted on forfeit: %d -> %d", before, g.CardCensus())
	}
	if len(g.Hand(2)) != 0 {
		t.Fatalf("forfeited hand not emptied")
	}
	if len(g.OpenOffers()) != 0 {
		t.Fatalf("forfeited seat's offer still open")
	}
	if _, err := g.Apply(2, Action{Kind: Pass}); !errors.Is(err, ErrSeatForfeited) {
		t.Fatalf("forfeited seat acted: %v", err)
	}
	active := g.ActiveSeats()
	if len(active) != 3 {
		t.Fatalf("active seats = %v", active)
	}
	for _, s := range active {
		if s == 2 {
			t.Fatalf("forfeited seat still active")
		}
	}
}

func TestSettledRoundRejectsActions(t *testing.T) {
	g := newTestGame(t, 3, Config{}, map[Seat][]Card{
		0: repeat("wheat", 9),
	})
	mustApply(t, g, 0, Action{Kind: ClaimCorner})
	if _, err := g.Apply(1, Action{Kind: Pass}); !errors.Is(err, ErrRoundOver) {
		t.Fatalf("post-settlement action: %v", err)
	}
	// A fresh deal reopens trading.
	if err := g.DealRound(7); err != nil {
		t.Fatalf("redeal: %v", err)
	}
	if g.Phase() != PhaseTrading {
		t.Fatalf("phase = %v after redeal", g.Phase())
	}
	if g.RoundNum() != 2 {
		t.Fatalf("round = %d, want 2", g.RoundNum())
	}
}

func TestDealerRotation(t *testing.T) {
	g := newTestGame(t, 4, Config{}, nil)
	if g.Dealer() != 0 {
		t.Fatalf("opening dealer = %d", g.Dealer())
	}
	g.phase = PhaseSettled
	if err := g.DealRound(2); err != nil {
		t.Fatalf("redeal: %v", err)
	}
	if g.Dealer() != 1 {
		t.Fatalf("dealer = %d, want 1", g.Dealer())
	}
	g.Forfeit(2)
	g.phase = PhaseSettled
	if err := g.DealRound(3); err != nil {
		t.Fatalf("redeal: %v", err)
	}
	if g.Dealer() != 3 {
		t.Fatalf("dealer = %d, want 3 (skipping forfeited seat 2)", g.Dealer())
	}
}

func TestWinner(t *testing.T) {
	g := newTestGame(t, 3, Config{}, nil)
	if _, ok := g.Winner(); ok {
		t.Fatalf("winner before anyone scored")
	}
	g.scores[1] = 480
	if _, ok := g.Winner(); ok {
		t.Fatalf("winner below the threshold")
	}
	g.scores[1] = 500
	g.scores[2] = 620
	w, ok := g.Winner()
	if !ok || w != 2 {
		t.Fatalf("winner = %d ok=%v, want seat 2", w, ok)
	}
}

func TestOpenOffersHideCommodity(t *testing.T) {
	g := newTestGame(t, 3, Config{}, map[Seat][]Card{
		0: repeat("wheat", 9),
	})
	mustApply(t, g, 0, Action{Kind: MakeOffer, Quantity: 3, Commodity: "wheat"})
	open := g.OpenOffers()
	if len(open) != 1 {
		t.Fatalf("open offers = %d", len(open))
	}
	if open[0].commodity != "" {
		t.Fatalf("public offer leaks the commodity")
	}
	if open[0].Quantity != 3 || open[0].Seat != 0 {
		t.Fatalf("public offer = %+v", open[0])
	}
}

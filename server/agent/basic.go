package agent

import (
	"sort"

	"pitarena/server/engine"
)

// Basic is the built-in baseline player. It hoards whatever it holds most of
// and shouts everything else, which is close to how people actually open a
// round at a Pit table.
type Basic struct{}

func (Basic) Name() string { return "basic" }

func (Basic) Decide(v View) (engine.Action, error) {
	target, junk := splitHand(v.Hand)
	if v.Hand[target] >= v.CornerSize {
		return engine.Action{Kind: engine.ClaimCorner}, nil
	}

	var mine *OfferView
	for i := range v.Offers {
		if v.Offers[i].Mine {
			mine = &v.Offers[i]
		}
	}

	// With an offer on the table, take the first foreign match.
	if mine != nil {
		for _, o := range v.Offers {
			if !o.Mine && o.Quantity == mine.Quantity {
				return engine.Action{Kind: engine.AcceptOffer, OfferID: o.ID}, nil
			}
		}
		return engine.Action{Kind: engine.Pass}, nil
	}

	// Otherwise shout the biggest pile of junk we can.
	if len(junk) > 0 {
		k := junk[0]
		qty := v.Hand[k]
		if qty > v.MaxOfferQty {
			qty = v.MaxOfferQty
		}
		return engine.Action{Kind: engine.MakeOffer, Quantity: qty, Commodity: engine.Commodity(k)}, nil
	}
	return engine.Action{Kind: engine.Pass}, nil
}

// splitHand picks the commodity to collect (the most plentiful, ties broken
// by name for determinism) and returns the rest as junk, biggest pile first.
func splitHand(hand map[string]int) (target string, junk []string) {
	kinds := make([]string, 0, len(hand))
	for k, n := range hand {
		if n > 0 {
			kinds = append(kinds, k)
		}
	}
	sort.Slice(kinds, func(i, j int) bool {
		if hand[kinds[i]] != hand[kinds[j]] {
			return hand[kinds[i]] > hand[kinds[j]]
		}
		return kinds[i] < kinds[j]
	})
	if len(kinds) == 0 {
		return "", nil
	}
	return kinds[0], kinds[1:]
}

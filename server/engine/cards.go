package engine

import (
	"math/rand"
	"time"
)

// CommodityOrder lists the supported commodities from highest point value
// down. A game with N seats plays the first N of them, like the physical
// deck cards shipped per player count.
var CommodityOrder = []Commodity{
	"wheat", "barley", "coffee", "corn", "sugar", "oats", "soybeans", "oranges",
}

// DefaultValues holds the round score for cornering each commodity.
var DefaultValues = map[Commodity]int{
	"wheat":    100,
	"barley":   85,
	"coffee":   80,
	"corn":     75,
	"sugar":    65,
	"oats":     60,
	"soybeans": 55,
	"oranges":  50,
}

// CornerSize is the number of copies of each commodity in the deck, and the
// count a hand must hold for a corner.
const CornerSize = 9

// NewDeck builds the unshuffled card set for the given commodities plus the
// requested wildcards.
func NewDeck(commodities []Commodity, withBull, withBear bool) []Card {
	deck := make([]Card, 0, len(commodities)*CornerSize+2)
	for _, k := range commodities {
		for i := 0; i < CornerSize; i++ {
			deck = append(deck, Card{Commodity: k})
		}
	}
	if withBull {
		deck = append(deck, Card{Wild: WildBull})
	}
	if withBear {
		deck = append(deck, Card{Wild: WildBear})
	}
	return deck
}

// Shuffle returns a permutation of deck, deterministic for a nonzero seed.
func Shuffle(deck []Card, seed int64) []Card {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(seed))
	out := make([]Card, len(deck))
	copy(out, deck)
	for i := len(out) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Deal partitions the deck as evenly as possible into one hand per player,
// consuming it front to back. Whatever does not divide evenly stays undealt
// and is returned as the blind pile.
func Deal(deck []Card, players int) (hands [][]Card, blind []Card, err error) {
	if players < 3 || players > 8 {
		return nil, nil, DealError{Players: players, Reason: "player count must be between 3 and 8"}
	}
	return dealActive(deck, players)
}

// dealActive is Deal without the table-size bound. Forfeits can shrink a
// running game below the minimum starting count and later rounds still deal.
func dealActive(deck []Card, players int) (hands [][]Card, blind []Card, err error) {
	size := len(deck) / players
	if size == 0 {
		return nil, nil, DealError{Players: players, Reason: "deck too small to partition"}
	}
	hands = make([][]Card, players)
	for i := 0; i < players; i++ {
		hands[i] = append([]Card(nil), deck[i*size:(i+1)*size]...)
	}
	blind = append([]Card(nil), deck[players*size:]...)
	return hands, blind, nil
}

// HandSummary tallies a hand by commodity; wildcards are reported separately.
func HandSummary(hand []Card) (counts map[Commodity]int, bull, bear bool) {
	return countByCommodity(hand)
}

// countByCommodity tallies the commodity cards of a hand; wildcards are
// reported separately.
func countByCommodity(hand []Card) (counts map[Commodity]int, bull, bear bool) {
	counts = make(map[Commodity]int)
	for _, c := range hand {
		switch c.Wild {
		case WildBull:
			bull = true
		case WildBear:
			bear = true
		default:
			counts[c.Commodity]++
		}
	}
	return counts, bull, bear
}

func removeCommodity(hand []Card, k Commodity, n int) ([]Card, bool) {
	out := make([]Card, 0, len(hand))
	removed := 0
	for _, c := range hand {
		if removed < n && !c.IsWild() && c.Commodity == k {
			removed++
			continue
		}
		out = append(out, c)
	}
	if removed != n {
		return hand, false
	}
	return out, true
}

func addCommodity(hand []Card, k Commodity, n int) []Card {
	for i := 0; i < n; i++ {
		hand = append(hand, Card{Commodity: k})
	}
	return hand
}

package agent

import (
	"testing"

	"pitarena/server/engine"
)

func TestBasicClaimsCompletedCorner(t *testing.T) {
	v := View{
		Hand:        map[string]int{"wheat": 9},
		CornerSize:  9,
		MaxOfferQty: 4,
		Legal:       []string{"pass", "claim", "offer"},
	}
	a, err := Basic{}.Decide(v)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if a.Kind != engine.ClaimCorner {
		t.Fatalf("kind = %v, want claim", a.Kind)
	}
}

func TestBasicOffersJunk(t *testing.T) {
	v := View{
		Hand:        map[string]int{"wheat": 5, "corn": 3, "oats": 1},
		CornerSize:  9,
		MaxOfferQty: 4,
		Legal:       []string{"pass", "claim", "offer"},
	}
	a, err := Basic{}.Decide(v)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if a.Kind != engine.MakeOffer {
		t.Fatalf("kind = %v, want offer", a.Kind)
	}
	if a.Commodity == "wheat" {
		t.Fatalf("offered the commodity it is collecting")
	}
	if a.Commodity != "corn" || a.Quantity != 3 {
		t.Fatalf("offer = %d %s, want the biggest junk pile", a.Quantity, a.Commodity)
	}
	if err := Validate(v, a); err != nil {
		t.Fatalf("basic produced an invalid offer: %v", err)
	}
}

func TestBasicOfferRespectsCap(t *testing.T) {
	v := View{
		Hand:        map[string]int{"wheat": 3, "corn": 6},
		CornerSize:  9,
		MaxOfferQty: 4,
		Legal:       []string{"pass", "claim", "offer"},
	}
	a, err := Basic{}.Decide(v)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	// Corn is the keeper here, so wheat is junk.
	if a.Commodity != "wheat" || a.Quantity != 3 {
		t.Fatalf("offer = %d %s", a.Quantity, a.Commodity)
	}

	v.Hand = map[string]int{"wheat": 6, "corn": 7}
	a, _ = Basic{}.Decide(v)
	if a.Quantity != 4 {
		t.Fatalf("quantity = %d, want capped at 4", a.Quantity)
	}
}

func TestBasicAcceptsMatchingOffer(t *testing.T) {
	v := View{
		Hand:        map[string]int{"wheat": 6, "corn": 3},
		CornerSize:  9,
		MaxOfferQty: 4,
		Offers: []OfferView{
			{ID: 5, Seat: 0, Quantity: 3, Mine: true, Commodity: "corn"},
			{ID: 6, Seat: 2, Quantity: 2},
			{ID: 7, Seat: 1, Quantity: 3},
		},
		Legal: []string{"pass", "claim", "offer", "accept", "withdraw"},
	}
	a, err := Basic{}.Decide(v)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if a.Kind != engine.AcceptOffer || a.OfferID != 7 {
		t.Fatalf("action = %+v, want accept of offer 7", a)
	}
}

func TestBasicPassesWhenWaiting(t *testing.T) {
	v := View{
		Hand:        map[string]int{"wheat": 6, "corn": 3},
		CornerSize:  9,
		MaxOfferQty: 4,
		Offers: []OfferView{
			{ID: 5, Seat: 0, Quantity: 3, Mine: true, Commodity: "corn"},
		},
		Legal: []string{"pass", "claim", "offer", "withdraw"},
	}
	a, err := Basic{}.Decide(v)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if a.Kind != engine.Pass {
		t.Fatalf("kind = %v, want pass while offer is out", a.Kind)
	}
}

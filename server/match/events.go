package match

import "pitarena/server/engine"

// EventKind identifies emitted match events. The runner publishes them in
// order; the console narrator and the store both consume the same feed.
type EventKind string

const (
	EventMatchStarted  EventKind = "match_started"
	EventRoundDealt    EventKind = "round_dealt"
	EventActionApplied EventKind = "action_applied"
	EventTurnMissed    EventKind = "turn_missed"
	EventSeatForfeited EventKind = "seat_forfeited"
	EventRoundSettled  EventKind = "round_settled"
	EventRoundCapped   EventKind = "round_capped"
	EventGameOver      EventKind = "game_over"
)

// Event is one entry of the match feed.
type Event struct {
	Kind    EventKind
	Payload any
}

// Sink receives events as they happen. A nil sink is allowed.
type Sink func(Event)

type MatchStartedPayload struct {
	Players []string
	Seats   int
}

type RoundDealtPayload struct {
	Round      int
	Dealer     int
	HandCounts []int
	BlindSize  int
}

// ActionAppliedPayload describes one accepted action. Commodity is set only
// on settling claims; offers stay blind in the feed just as they do at the
// table.
type ActionAppliedPayload struct {
	Round    int
	TurnID   int64
	Seat     int
	Kind     engine.OutcomeKind
	OfferID  int64 `json:",omitempty"`
	Quantity int   `json:",omitempty"`
}

type TurnMissedPayload struct {
	Round  int
	TurnID int64
	Seat   int
	Reason string // timeout | protocol | invalid
	Misses int
}

type SeatForfeitedPayload struct {
	Round  int
	Seat   int
	Reason string
}

type RoundSettledPayload struct {
	Round     int
	Seat      int
	Commodity engine.Commodity
	Delta     int
	Scores    []int
}

type RoundCappedPayload struct {
	Round int
	Turns int
}

type GameOverPayload struct {
	Winner int
	Rounds int
	Scores []int
	Reason string // score | last_seat_standing | aborted
}

package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pitarena/server/agent"
	"pitarena/server/engine"
	"pitarena/server/player"
)

// Config tunes one match on top of the engine's game config.
type Config struct {
	Game         engine.Config
	TurnDeadline time.Duration // how long a player may take per turn
	FaultLimit   int           // consecutive missed turns before forfeit
	MaxTurns     int           // per-round cap; a capped round settles scoreless
	MaxRounds    int           // game-level cap; best score wins a capped game
	Seed         int64         // 0 means time-seeded deals
}

func (c Config) withDefaults() Config {
	if c.TurnDeadline == 0 {
		c.TurnDeadline = 5 * time.Second
	}
	if c.FaultLimit == 0 {
		c.FaultLimit = 3
	}
	if c.MaxTurns == 0 {
		c.MaxTurns = 10000
	}
	if c.MaxRounds == 0 {
		c.MaxRounds = 1000
	}
	return c
}

// Result is the final standing of a finished match.
type Result struct {
	Winner int
	Scores []int
	Rounds int
	Reason string
}

// Runner drives one match: it deals rounds, walks the table clockwise from
// the dealer's left, relays views to the seats' channels and feeds their
// answers to the engine. All game state stays on this goroutine; players
// only ever see views.
type Runner struct {
	cfg      Config
	game     *engine.Game
	channels []player.Channel
	sink     Sink

	turnID int64
	misses []int
}

// NewRunner wires channels to seats in order. It takes ownership of the
// channels and closes them when the match ends.
func NewRunner(cfg Config, channels []player.Channel, sink Sink) (*Runner, error) {
	cfg = cfg.withDefaults()
	cfg.Game.Players = len(channels)
	g, err := engine.NewGame(cfg.Game)
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:      cfg,
		game:     g,
		channels: channels,
		sink:     sink,
		misses:   make([]int, len(channels)),
	}, nil
}

func (r *Runner) emit(kind EventKind, payload any) {
	if r.sink != nil {
		r.sink(Event{Kind: kind, Payload: payload})
	}
}

// Run plays rounds until a seat reaches the win score, one seat is left
// standing, or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	defer func() {
		for _, ch := range r.channels {
			_ = ch.Close()
		}
	}()

	names := make([]string, len(r.channels))
	for i, ch := range r.channels {
		names[i] = ch.Name()
	}
	r.emit(EventMatchStarted, MatchStartedPayload{Players: names, Seats: len(names)})

	for {
		if err := ctx.Err(); err != nil {
			return r.finish(-1, "aborted"), err
		}
		if w, ok := r.lastSeatStanding(); ok {
			return r.finish(w, "last_seat_standing"), nil
		}

		seed := r.cfg.Seed
		if seed != 0 {
			seed += int64(r.game.RoundNum())
		}
		if err := r.game.DealRound(seed); err != nil {
			return r.finish(-1, "aborted"), err
		}
		r.emit(EventRoundDealt, RoundDealtPayload{
			Round:      r.game.RoundNum(),
			Dealer:     int(r.game.Dealer()),
			HandCounts: r.game.HandCounts(),
			BlindSize:  blindSize(r.game),
		})

		if err := r.playRound(ctx); err != nil {
			return r.finish(-1, "aborted"), err
		}

		if w, ok := r.game.Winner(); ok {
			return r.finish(int(w), "score"), nil
		}
		if r.game.RoundNum() >= r.cfg.MaxRounds {
			return r.finish(bestSeat(r.game.Scores()), "round_limit"), nil
		}
	}
}

func bestSeat(scores []int) int {
	best := 0
	for s, sc := range scores {
		if sc > scores[best] {
			best = s
		}
	}
	return best
}

func blindSize(g *engine.Game) int {
	n := g.CardCensus()
	for _, c := range g.HandCounts() {
		n -= c
	}
	return n
}

// playRound runs trading turns until a corner settles the round or the turn
// cap trips.
func (r *Runner) playRound(ctx context.Context) error {
	turns := 0
	seat := r.game.Dealer()
	for r.game.Phase() == engine.PhaseTrading {
		if err := ctx.Err(); err != nil {
			return err
		}
		active := r.game.ActiveSeats()
		if len(active) < 2 {
			return nil
		}
		if turns >= r.cfg.MaxTurns {
			r.emit(EventRoundCapped, RoundCappedPayload{Round: r.game.RoundNum(), Turns: turns})
			return nil
		}
		seat = nextActiveSeat(active, seat)
		turns++
		r.takeTurn(ctx, seat)
	}
	return nil
}

func nextActiveSeat(active []engine.Seat, after engine.Seat) engine.Seat {
	for _, s := range active {
		if s > after {
			return s
		}
	}
	return active[0]
}

// takeTurn asks one seat for an action and applies it. A structurally invalid
// answer earns exactly one re-request; anything after that is a missed turn.
func (r *Runner) takeTurn(ctx context.Context, seat engine.Seat) {
	ch := r.channels[seat]
	for attempt := 0; attempt < 2; attempt++ {
		r.turnID++
		v := agent.BuildView(r.game, seat)
		tctx, cancel := context.WithTimeout(ctx, r.cfg.TurnDeadline)
		a, err := ch.RequestAction(tctx, r.turnID, v)
		cancel()

		if err != nil {
			var fault player.Fault
			if errors.As(err, &fault) {
				r.forfeit(seat, "fault: "+fault.Error())
				return
			}
			reason := "protocol"
			var to player.Timeout
			if errors.As(err, &to) {
				reason = "timeout"
			}
			r.miss(seat, reason)
			return
		}

		if verr := agent.Validate(v, a); verr != nil {
			// One more chance with a fresh view, then the turn is lost.
			if attempt == 0 {
				continue
			}
			r.miss(seat, "invalid")
			return
		}

		out, aerr := r.game.Apply(seat, a)
		if aerr != nil {
			// The view was honest but the table moved underneath the player,
			// typically an accept of an offer a trade just consumed. The
			// turn passes without blame.
			r.misses[seat] = 0
			r.emit(EventActionApplied, ActionAppliedPayload{
				Round: r.game.RoundNum(), TurnID: r.turnID, Seat: int(seat), Kind: engine.Passed,
			})
			return
		}
		r.misses[seat] = 0
		r.applyOutcome(seat, out)
		return
	}
}

func (r *Runner) applyOutcome(seat engine.Seat, out engine.Outcome) {
	p := ActionAppliedPayload{
		Round:  r.game.RoundNum(),
		TurnID: r.turnID,
		Seat:   int(seat),
		Kind:   out.Kind,
	}
	switch {
	case out.Offer != nil:
		p.OfferID = out.Offer.ID
		p.Quantity = out.Offer.Quantity
	case out.Trade != nil:
		p.OfferID = out.Trade.Taken.ID
		p.Quantity = out.Trade.Quantity
	}
	r.emit(EventActionApplied, p)

	if out.Kind == engine.CornerHonored {
		r.emit(EventRoundSettled, RoundSettledPayload{
			Round:     r.game.RoundNum(),
			Seat:      int(seat),
			Commodity: out.Commodity,
			Delta:     out.Delta,
			Scores:    r.game.Scores(),
		})
	}
}

func (r *Runner) miss(seat engine.Seat, reason string) {
	r.misses[seat]++
	r.emit(EventTurnMissed, TurnMissedPayload{
		Round:  r.game.RoundNum(),
		TurnID: r.turnID,
		Seat:   int(seat),
		Reason: reason,
		Misses: r.misses[seat],
	})
	if r.misses[seat] >= r.cfg.FaultLimit {
		r.forfeit(seat, fmt.Sprintf("%d consecutive missed turns", r.misses[seat]))
	}
}

func (r *Runner) forfeit(seat engine.Seat, reason string) {
	r.game.Forfeit(seat)
	r.emit(EventSeatForfeited, SeatForfeitedPayload{
		Round:  r.game.RoundNum(),
		Seat:   int(seat),
		Reason: reason,
	})
}

// lastSeatStanding reports the sole surviving seat, if forfeits have emptied
// the rest of the table.
func (r *Runner) lastSeatStanding() (int, bool) {
	active := r.game.ActiveSeats()
	if len(active) == 1 {
		return int(active[0]), true
	}
	return -1, false
}

func (r *Runner) finish(winner int, reason string) Result {
	res := Result{
		Winner: winner,
		Scores: r.game.Scores(),
		Rounds: r.game.RoundNum(),
		Reason: reason,
	}
	r.emit(EventGameOver, GameOverPayload{
		Winner: res.Winner,
		Rounds: res.Rounds,
		Scores: res.Scores,
		Reason: reason,
	})
	return res
}

package player

import (
	"context"
	"fmt"

	"pitarena/server/agent"
	"pitarena/server/engine"
)

// Channel delivers one view to a player and returns its chosen action.
// RequestAction is called by a single goroutine, one outstanding turn at a
// time; turn ids are strictly increasing for the life of the channel.
type Channel interface {
	Name() string
	RequestAction(ctx context.Context, turnID int64, v agent.View) (engine.Action, error)
	Close() error
}

// Timeout reports that a player missed its turn deadline.
type Timeout struct {
	TurnID int64
}

func (e Timeout) Error() string { return fmt.Sprintf("turn %d: player deadline exceeded", e.TurnID) }

// ProtocolError reports a well-delivered but unusable answer: garbage bytes,
// a turn id from the future, or a player-reported failure.
type ProtocolError struct {
	TurnID int64
	Reason string
	Err    error
}

func (e ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("turn %d: %s: %v", e.TurnID, e.Reason, e.Err)
	}
	return fmt.Sprintf("turn %d: %s", e.TurnID, e.Reason)
}

func (e ProtocolError) Unwrap() error { return e.Err }

// Fault reports that the player itself broke: its process died, its pipe
// closed, or its in-process decider panicked. A faulted channel is dead.
type Fault struct {
	Reason string
	Err    error
}

func (e Fault) Error() string {
	if e.Err != nil {
		return "player fault: " + e.Reason + ": " + e.Err.Error()
	}
	return "player fault: " + e.Reason
}

func (e Fault) Unwrap() error { return e.Err }

// Direct runs a decider in-process. The call is synchronous; deadlines only
// bite on process channels, where a hung child cannot block us.
type Direct struct {
	decider agent.Decider
}

func NewDirect(d agent.Decider) *Direct { return &Direct{decider: d} }

func (c *Direct) Name() string { return c.decider.Name() }

func (c *Direct) RequestAction(ctx context.Context, turnID int64, v agent.View) (a engine.Action, err error) {
	if e := ctx.Err(); e != nil {
		return engine.Action{}, Timeout{TurnID: turnID}
	}
	defer func() {
		if r := recover(); r != nil {
			err = Fault{Reason: fmt.Sprintf("decider panic: %v", r)}
		}
	}()
	a, derr := c.decider.Decide(v)
	if derr != nil {
		return engine.Action{}, Fault{Reason: "decider failed", Err: derr}
	}
	return a, nil
}

func (c *Direct) Close() error {
	if cl, ok := c.decider.(interface{ Close() }); ok {
		cl.Close()
	}
	return nil
}

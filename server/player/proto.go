package player

import (
	"pitarena/server/agent"
	"pitarena/server/engine"
)

// The wire format between the match host and a player process is one JSON
// object per line, requests on the child's stdin and responses on its stdout.
// A response echoes the turn id of the request it answers; the host drops
// any response whose id predates the turn it is waiting on.

type request struct {
	TurnID int64      `json:"turn_id"`
	View   agent.View `json:"view"`
}

type response struct {
	TurnID int64         `json:"turn_id"`
	Action engine.Action `json:"action"`
	Error  string        `json:"error,omitempty"`
}

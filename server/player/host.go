package player

import (
	"bufio"
	"encoding/json"
	"io"

	"pitarena/server/agent"
)

// Serve is the child side of the line protocol: read a request, ask the
// decider, answer with the same turn id. It returns when stdin closes.
// Decider failures are reported in-band so the host can score them instead
// of losing the whole stream.
func Serve(d agent.Decider, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	enc := json.NewEncoder(out)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			if werr := enc.Encode(response{Error: "bad request: " + err.Error()}); werr != nil {
				return werr
			}
			continue
		}
		resp := response{TurnID: req.TurnID}
		a, err := d.Decide(req.View)
		if err != nil {
			resp.Error = err.Error()
		} else {
			resp.Action = a
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return sc.Err()
}

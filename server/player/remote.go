package player

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"pitarena/server/agent"
	"pitarena/server/engine"
)

type incoming struct {
	resp response
	err  error
}

// Remote talks JSON lines to a player behind an io pair, usually a child
// process. A dedicated goroutine drains the read side so a slow or silent
// player costs a deadline, never a stuck host.
type Remote struct {
	name   string
	in     io.WriteCloser
	enc    *json.Encoder
	inbox  chan incoming
	reap   func() error
	closed bool
}

// NewRemote wires a channel over an existing pipe pair. Tests use this
// directly; match hosts go through StartProcess.
func NewRemote(name string, in io.WriteCloser, out io.Reader) *Remote {
	r := &Remote{
		name:  name,
		in:    in,
		enc:   json.NewEncoder(in),
		inbox: make(chan incoming, 8),
	}
	go r.readLoop(out)
	return r
}

// StartProcess spawns a player binary and speaks the line protocol over its
// stdin and stdout. Its stderr passes through for debugging.
func StartProcess(name string, bin string, args ...string) (*Remote, error) {
	cmd := exec.Command(bin, args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start player %s: %w", name, err)
	}

	r := NewRemote(name, stdin, stdout)
	r.reap = func() error {
		// The child exits on stdin EOF; give it a moment, then make sure.
		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			_ = cmd.Process.Kill()
			return <-done
		}
	}
	return r, nil
}

func (r *Remote) Name() string { return r.name }

func (r *Remote) readLoop(out io.Reader) {
	sc := bufio.NewScanner(out)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp response
		if err := json.Unmarshal(line, &resp); err != nil {
			r.inbox <- incoming{err: fmt.Errorf("bad response line: %w", err)}
			continue
		}
		r.inbox <- incoming{resp: resp}
	}
	close(r.inbox)
}

func (r *Remote) RequestAction(ctx context.Context, turnID int64, v agent.View) (engine.Action, error) {
	if err := r.enc.Encode(request{TurnID: turnID, View: v}); err != nil {
		return engine.Action{}, Fault{Reason: "write to player", Err: err}
	}
	for {
		select {
		case <-ctx.Done():
			return engine.Action{}, Timeout{TurnID: turnID}
		case in, ok := <-r.inbox:
			switch {
			case !ok:
				return engine.Action{}, Fault{Reason: "player stream closed"}
			case in.err != nil:
				return engine.Action{}, ProtocolError{TurnID: turnID, Reason: "malformed response", Err: in.err}
			case in.resp.TurnID < turnID:
				// Late answer to a turn we already gave up on.
				continue
			case in.resp.TurnID > turnID:
				return engine.Action{}, ProtocolError{TurnID: turnID, Reason: fmt.Sprintf("response for future turn %d", in.resp.TurnID)}
			case in.resp.Error != "":
				return engine.Action{}, ProtocolError{TurnID: turnID, Reason: "player error: " + in.resp.Error}
			default:
				return in.resp.Action, nil
			}
		}
	}
}

func (r *Remote) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.in.Close()
	if r.reap != nil {
		if werr := r.reap(); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

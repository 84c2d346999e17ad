package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pitarena/server/agent"
	"pitarena/server/engine"
	"pitarena/server/match"
	"pitarena/server/player"
	"pitarena/server/store"
)

//
// ===== pretty printing =====
//

var useColor bool

const (
	colReset  = "\033[0m"
	colBold   = "\033[1m"
	colDim    = "\033[2m"
	colGreen  = "\033[32m"
	colRed    = "\033[31m"
	colYellow = "\033[33m"
	colCyan   = "\033[36m"
)

func c(code, s string) string {
	if !useColor {
		return s
	}
	return code + s + colReset
}
func bold(s string) string { return c(colBold, s) }
func dim(s string) string  { return c(colDim, s) }
func good(s string) string { return c(colGreen, s) }
func warn(s string) string { return c(colYellow, s) }
func bad(s string) string  { return c(colRed, s) }
func cyan(s string) string { return c(colCyan, s) }

func seatTag(seat int) string { return cyan(fmt.Sprintf("S%d", seat)) }

//
// ===== env helpers =====
//

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func atoiDef(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
func asBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
func mustEnv(keys ...string) {
	for _, k := range keys {
		if os.Getenv(k) == "" {
			log.Fatalf("Missing required env var %s. Put it in .env (dev) or set it on the host (prod).", k)
		}
	}
}

//
// ===== player wiring =====
//

// buildDecider turns a player spec into an in-process decider.
// Specs: "basic" or "lua:<script.lua>".
func buildDecider(spec string) (agent.Decider, error) {
	switch {
	case spec == "basic":
		return agent.Basic{}, nil
	case strings.HasPrefix(spec, "lua:"):
		return agent.LoadLuaFile(strings.TrimPrefix(spec, "lua:"))
	default:
		return nil, fmt.Errorf("unknown player spec %q", spec)
	}
}

// buildChannels wires one channel per seat. In process mode, built-in specs
// re-exec this binary as the child ("--player <spec>"), so every seat gets
// the full pipe protocol including deadlines and stale-answer handling.
// "cmd:<bin> [args]" specs always spawn their own process.
func buildChannels(specs []string, mode string) ([]player.Channel, error) {
	channels := make([]player.Channel, 0, len(specs))
	closeAll := func() {
		for _, ch := range channels {
			_ = ch.Close()
		}
	}
	for i, spec := range specs {
		name := fmt.Sprintf("%s#%d", spec, i)
		switch {
		case strings.HasPrefix(spec, "cmd:"):
			parts := strings.Fields(strings.TrimPrefix(spec, "cmd:"))
			if len(parts) == 0 {
				closeAll()
				return nil, fmt.Errorf("empty cmd spec at seat %d", i)
			}
			ch, err := player.StartProcess(name, parts[0], parts[1:]...)
			if err != nil {
				closeAll()
				return nil, err
			}
			channels = append(channels, ch)
		case mode == "process":
			self, err := os.Executable()
			if err != nil {
				closeAll()
				return nil, err
			}
			ch, err := player.StartProcess(name, self, "--player", spec)
			if err != nil {
				closeAll()
				return nil, err
			}
			channels = append(channels, ch)
		default:
			d, err := buildDecider(spec)
			if err != nil {
				closeAll()
				return nil, err
			}
			channels = append(channels, player.NewDirect(d))
		}
	}
	return channels, nil
}

// servePlayer is the child side of "--player": decide on stdin views until
// the match host closes the pipe.
func servePlayer(spec string) {
	d, err := buildDecider(spec)
	if err != nil {
		log.Fatalf("player %s: %v", spec, err)
	}
	if cl, ok := d.(interface{ Close() }); ok {
		defer cl.Close()
	}
	if err := player.Serve(d, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("player %s: %v", spec, err)
	}
}

//
// ===== match narration & recording =====
//

// recorder folds the event feed into a store.MatchRecord while the narrator
// prints it.
type recorder struct {
	startedAt time.Time
	rounds    []store.RoundRecord
	actions   []store.ActionRecord
	forfeited map[int]bool
}

func newRecorder() *recorder {
	return &recorder{
		startedAt: time.Now(),
		forfeited: make(map[int]bool),
	}
}

func (rec *recorder) consume(e match.Event) {
	switch p := e.Payload.(type) {
	case match.ActionAppliedPayload:
		rec.actions = append(rec.actions, store.ActionRecord{
			Round: p.Round, TurnID: p.TurnID, Seat: p.Seat,
			Kind: string(p.Kind), OfferID: p.OfferID, Qty: p.Quantity,
		})
	case match.RoundSettledPayload:
		rec.rounds = append(rec.rounds, store.RoundRecord{
			Round: p.Round, WinnerSeat: p.Seat, Commodity: string(p.Commodity), Delta: p.Delta,
		})
	case match.RoundCappedPayload:
		rec.rounds = append(rec.rounds, store.RoundRecord{Round: p.Round, WinnerSeat: -1})
	case match.SeatForfeitedPayload:
		rec.forfeited[p.Seat] = true
	}
}

func (rec *recorder) record(res match.Result, playerIDs []int64) store.MatchRecord {
	seats := make([]store.SeatRecord, len(playerIDs))
	for i, id := range playerIDs {
		seats[i] = store.SeatRecord{
			Seat: i, PlayerID: id, Score: res.Scores[i], Forfeited: rec.forfeited[i],
		}
	}
	return store.MatchRecord{
		StartedAt:  rec.startedAt,
		FinishedAt: time.Now(),
		Rounds:     res.Rounds,
		WinnerSeat: res.Winner,
		Reason:     res.Reason,
		Seats:      seats,
		RoundLog:   rec.rounds,
		ActionLog:  rec.actions,
	}
}

func narrate(e match.Event) {
	switch p := e.Payload.(type) {
	case match.MatchStartedPayload:
		log.Printf("%s %s", bold("match start:"), strings.Join(p.Players, " vs "))
	case match.RoundDealtPayload:
		log.Printf("%s round %d, dealer %s, blind %d", dim("deal:"), p.Round, seatTag(p.Dealer), p.BlindSize)
	case match.ActionAppliedPayload:
		switch p.Kind {
		case engine.OfferPosted:
			log.Printf("%s shouts %s", seatTag(p.Seat), warn(fmt.Sprintf("%d! %d! %d!", p.Quantity, p.Quantity, p.Quantity)))
		case engine.TradeExecuted:
			log.Printf("%s trades %d cards on offer %d", seatTag(p.Seat), p.Quantity, p.OfferID)
		case engine.OfferWithdrawn:
			log.Printf("%s withdraws offer %d", seatTag(p.Seat), p.OfferID)
		case engine.CornerRejected:
			log.Printf("%s %s", seatTag(p.Seat), bad("claims a corner it does not have"))
		}
	case match.TurnMissedPayload:
		log.Printf("%s misses its turn (%s, %d in a row)", seatTag(p.Seat), p.Reason, p.Misses)
	case match.SeatForfeitedPayload:
		log.Printf("%s %s: %s", seatTag(p.Seat), bad("forfeits"), p.Reason)
	case match.RoundSettledPayload:
		log.Printf("%s %s %s for %+d, scores %v",
			seatTag(p.Seat), good("corners"), bold(string(p.Commodity)), p.Delta, p.Scores)
	case match.RoundCappedPayload:
		log.Printf("%s round %d went %d turns without a corner", dim("cap:"), p.Round, p.Turns)
	case match.GameOverPayload:
		if p.Winner >= 0 {
			log.Printf("%s %s wins after %d rounds (%s), scores %v",
				bold("game over:"), seatTag(p.Winner), p.Rounds, p.Reason, p.Scores)
		} else {
			log.Printf("%s no winner (%s)", bold("game over:"), p.Reason)
		}
	}
}

//
// ===== modes =====
//

func runMatch(ctx context.Context, db *store.DB) {
	specs := strings.Split(getenv("PLAYERS", ""), ",")
	if getenv("PLAYERS", "") == "" {
		specs = nil
		for i := 0; i < atoiDef(os.Getenv("SEATS"), 4); i++ {
			specs = append(specs, "basic")
		}
	}
	for i := range specs {
		specs[i] = strings.TrimSpace(specs[i])
	}

	mode := getenv("MODE", "direct")
	channels, err := buildChannels(specs, mode)
	if err != nil {
		log.Fatal(err)
	}

	cfg := match.Config{
		Game: engine.Config{
			WinScore:     atoiDef(os.Getenv("WIN_SCORE"), 500),
			WithBull:     asBool(getenv("WITH_BULL", "0")),
			WithBear:     asBool(getenv("WITH_BEAR", "0")),
			ClaimPenalty: atoiDef(os.Getenv("CLAIM_PENALTY"), 20),
		},
		TurnDeadline: time.Duration(atoiDef(os.Getenv("TURN_DEADLINE_MS"), 5000)) * time.Millisecond,
		FaultLimit:   atoiDef(os.Getenv("FAULT_LIMIT"), 3),
		MaxTurns:     atoiDef(os.Getenv("MAX_TURNS"), 10000),
		Seed:         int64(atoiDef(os.Getenv("DECK_SEED"), 0)),
	}

	rec := newRecorder()
	sink := func(e match.Event) {
		narrate(e)
		rec.consume(e)
	}

	runner, err := match.NewRunner(cfg, channels, sink)
	if err != nil {
		log.Fatal(err)
	}
	res, err := runner.Run(ctx)
	if err != nil {
		log.Printf("match stopped: %v", err)
	}

	if db == nil {
		return
	}
	playerIDs := make([]int64, len(specs))
	for i, spec := range specs {
		id, err := db.UpsertPlayer(context.Background(), fmt.Sprintf("%s#%d", spec, i), spec)
		if err != nil {
			log.Printf("DB player upsert failed, skipping persistence: %v", err)
			return
		}
		playerIDs[i] = id
	}
	matchID, err := db.RecordMatch(context.Background(), rec.record(res, playerIDs))
	if err != nil {
		log.Printf("DB match record failed: %v", err)
		return
	}
	log.Printf("recorded match %d", matchID)

	updateRatings(db, playerIDs, res)
}

func updateRatings(db *store.DB, playerIDs []int64, res match.Result) {
	ratings := make([]float64, len(playerIDs))
	for i, id := range playerIDs {
		elo, _, _, err := db.GetOrInitRating(context.Background(), id)
		if err != nil {
			log.Printf("DB rating read failed: %v", err)
			return
		}
		ratings[i] = elo
	}
	next := NewMultiElo(atoiDefFloat(os.Getenv("ELO_K"), 24)).Update(ratings, res.Scores)
	for i, id := range playerIDs {
		if err := db.UpdateRating(context.Background(), id, next[i], i == res.Winner); err != nil {
			log.Printf("DB rating update failed: %v", err)
			return
		}
		log.Printf("%s elo %.1f -> %.1f", seatTag(i), ratings[i], next[i])
	}
}

func atoiDefFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func serveHTTP(db *store.DB) {
	port := getenv("PORT", "8080")
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      Router(db),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	log.Printf("listening on http://localhost:%s (Ctrl+C to stop)", port)
	log.Fatal(srv.ListenAndServe())
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	_ = godotenv.Load()
	useColor = (os.Getenv("NO_COLOR") == "") && (strings.TrimSpace(os.Getenv("USE_COLOR")) != "0")

	var migrate, serve bool
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--migrate":
			migrate = true
		case "--serve":
			serve = true
		case "--player":
			if i+1 >= len(args) {
				log.Fatal("--player needs a spec (basic, lua:<script>)")
			}
			servePlayer(args[i+1])
			return
		}
	}

	var db *store.DB
	if dsn := getenv("DATABASE_URL", ""); dsn != "" {
		p, err := store.Open(dsn)
		if err != nil {
			log.Printf("DB disabled (open failed): %v", err)
		} else {
			db = p
			defer db.Close(context.Background())
			if migrate || asBool(os.Getenv("AUTO_MIGRATE")) {
				if err := store.Migrate(context.Background(), db); err != nil {
					log.Fatal(err)
				}
				log.Println("migrated")
			}
		}
	}
	if migrate {
		if db == nil {
			mustEnv("DATABASE_URL")
		}
		return
	}
	if serve {
		if db == nil {
			mustEnv("DATABASE_URL")
		}
		serveHTTP(db)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchSignals(cancel)

	count := atoiDef(os.Getenv("MATCHES"), 1)
	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			return
		}
		if count > 1 {
			log.Printf("%s %d/%d", bold("match"), i+1, count)
		}
		runMatch(ctx, db)
	}
}

func watchSignals(cancel context.CancelFunc) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	<-ch
	cancel()
}

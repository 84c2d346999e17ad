package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pitarena/server/store"
)

func Router(db *store.DB) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/api/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "time": time.Now().UTC()})
	})

	r.Get("/api/leaderboard", func(w http.ResponseWriter, req *http.Request) {
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		rows, err := db.Leaderboard(req.Context(), limit)
		if err != nil {
			httpErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"leaderboard": rows})
	})

	r.Get("/api/matches", func(w http.ResponseWriter, req *http.Request) {
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		ms, err := db.RecentMatches(req.Context(), limit)
		if err != nil {
			httpErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"matches": ms})
	})

	r.Get("/api/matches/{id}", func(w http.ResponseWriter, req *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
		if err != nil {
			http.Error(w, "bad match id", http.StatusBadRequest)
			return
		}
		seats, err := db.MatchSeats(req.Context(), id)
		if err != nil {
			httpErr(w, err)
			return
		}
		if len(seats) == 0 {
			http.Error(w, "no such match", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "seats": seats})
	})

	r.Get("/api/last-match", func(w http.ResponseWriter, req *http.Request) {
		m, seats, err := db.LastMatch(req.Context())
		if err != nil {
			httpErr(w, err)
			return
		}
		if m == nil {
			http.Error(w, "no matches yet", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"match": m, "seats": seats})
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func httpErr(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

package main

import "math"

// MultiElo rates an N-seat table by treating one match as all pairwise
// duels at once. Each pair is scored from the final score margin, so a
// close second loses less rating than a seat that forfeited out.
type MultiElo struct {
	K float64
}

func NewMultiElo(k float64) MultiElo { return MultiElo{K: k} }

func expect(ra, rb float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (rb-ra)/400.0))
}

// Update takes current ratings and final match scores and returns the new
// ratings. Pairwise deltas are averaged over the opponents faced so table
// size does not inflate the K.
func (e MultiElo) Update(ratings []float64, scores []int) []float64 {
	n := len(ratings)
	out := append([]float64(nil), ratings...)
	if n < 2 {
		return out
	}
	for i := 0; i < n; i++ {
		var delta float64
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			s := pairScore(scores[i], scores[j])
			delta += e.K * (s - expect(ratings[i], ratings[j]))
		}
		out[i] += delta / float64(n-1)
	}
	return out
}

// pairScore maps a score margin onto [0,1], saturating around a round's
// worth of points so blowouts stop mattering past a point.
func pairScore(a, b int) float64 {
	const lambda = 100.0
	return 0.5 + 0.5*math.Tanh(float64(a-b)/lambda)
}

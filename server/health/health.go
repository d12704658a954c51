// Package health reports the liveness of the API service.
package health

import (
	"math"
	"math/rand"
)

// StatusOK is the only status reported.
const StatusOK = "ok"

// scoreSeed fixes the generator so the score is identical across calls and
// processes. The score is a placeholder and carries no signal.
const scoreSeed = 42

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status string  `json:"status"`
	Score  float64 `json:"score"`
}

// Score returns a value in [0.8, 1.0) rounded to three decimals.
func Score() float64 {
	r := rand.New(rand.NewSource(scoreSeed))
	s := math.Round((0.8+0.2*r.Float64())*1000) / 1000
	if s >= 1.0 {
		s = 0.999
	}
	return s
}

// Status returns the current health report.
func Status() HealthStatus {
	return HealthStatus{Status: StatusOK, Score: Score()}
}

package traffic

import (
	"math"
	"time"
)

const (
	// MaxRate is the request rate at which spawning stops getting faster.
	MaxRate = 750.0
	// TimerMin and TimerMax bound the average interval between spawns.
	TimerMin = 20 * time.Millisecond
	TimerMax = 2000 * time.Millisecond

	// MaxLatency is the latency at which points stop getting slower.
	MaxLatency = 10.0
	// SpeedMin and SpeedMax bound point speed in edge lengths per second.
	SpeedMin = 0.1
	SpeedMax = 2.0
)

// Params are the generator settings derived from an edge's metrics.
type Params struct {
	Timer     time.Duration // zero means the edge has no traffic
	Speed     float64
	ErrorRate float64
	Protocol  Protocol
}

// ParamsFromMetrics maps raw edge metrics to generator settings.
func ParamsFromMetrics(m Metrics, p Protocol) Params {
	return Params{
		Timer:     TimerFromRate(m.Rate),
		Speed:     SpeedFromLatency(m.Latency),
		ErrorRate: ErrorRateFromPercent(m.PercentErr),
		Protocol:  p,
	}
}

// TimerFromRate returns the average spawn interval for a request rate, or
// zero when there is no traffic (NaN or non-positive rate).
// The interpolation is inverse and quadratic in rate/MaxRate.
func TimerFromRate(rate float64) time.Duration {
	if math.IsNaN(rate) {
		return 0
	}
	rate = clamp(rate, 0, MaxRate)
	if rate == 0 {
		return 0
	}
	d := rate / MaxRate
	return TimerMin + time.Duration((1-d)*(1-d)*float64(TimerMax-TimerMin))
}

// SpeedFromLatency returns point speed for an edge latency. Unknown latency
// gets the fastest speed.
func SpeedFromLatency(latency float64) float64 {
	if math.IsNaN(latency) {
		return SpeedMax
	}
	d := clamp(latency, 0, MaxLatency) / MaxLatency
	return SpeedMin + (1-d)*(SpeedMax-SpeedMin)
}

// ErrorRateFromPercent converts an error percentage to a probability.
// An absent percentage means no errors.
func ErrorRateFromPercent(percent float64) float64 {
	if math.IsNaN(percent) {
		return 0
	}
	return clamp(percent/100, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

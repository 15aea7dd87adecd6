package snapshot

import (
	"math"
	"time"

	"github.com/SmitUplenchwar2687/meshflow/internal/traffic"
)

// L7PacketStats summarizes the requests of one response class.
type L7PacketStats struct {
	MeanDuration float64 `json:"mean_duration" yaml:"mean_duration"`
	MinDuration  float64 `json:"min_duration" yaml:"min_duration"`
	MaxDuration  float64 `json:"max_duration" yaml:"max_duration"`
	Count        int64   `json:"count" yaml:"count"`
}

// Combine merges two summaries. Means are weighted by count; an empty side
// is ignored so it does not drag the mean toward zero.
func (l L7PacketStats) Combine(l2 L7PacketStats) L7PacketStats {
	if l.Count == 0 {
		return l2
	} else if l2.Count == 0 {
		return l
	}

	l.MinDuration = math.Min(l.MinDuration, l2.MinDuration)
	l.MaxDuration = math.Max(l.MaxDuration, l2.MaxDuration)
	total := l.Count + l2.Count
	l.MeanDuration = (float64(l.Count)*l.MeanDuration + float64(l2.Count)*l2.MeanDuration) / float64(total)
	l.Count = total
	return l
}

// L7Stats groups request summaries by response class.
type L7Stats struct {
	NoResponse      L7PacketStats `json:"no_response" yaml:"no_response"`
	ResponseCode1xx L7PacketStats `json:"response_code_1xx" yaml:"response_code_1xx"`
	ResponseCode2xx L7PacketStats `json:"response_code_2xx" yaml:"response_code_2xx"`
	ResponseCode3xx L7PacketStats `json:"response_code_3xx" yaml:"response_code_3xx"`
	ResponseCode4xx L7PacketStats `json:"response_code_4xx" yaml:"response_code_4xx"`
	ResponseCode5xx L7PacketStats `json:"response_code_5xx" yaml:"response_code_5xx"`
}

// Combine merges two class breakdowns.
func (l *L7Stats) Combine(l2 *L7Stats) *L7Stats {
	if l == nil {
		return l2
	} else if l2 == nil {
		return l
	}
	return &L7Stats{
		NoResponse:      l.NoResponse.Combine(l2.NoResponse),
		ResponseCode1xx: l.ResponseCode1xx.Combine(l2.ResponseCode1xx),
		ResponseCode2xx: l.ResponseCode2xx.Combine(l2.ResponseCode2xx),
		ResponseCode3xx: l.ResponseCode3xx.Combine(l2.ResponseCode3xx),
		ResponseCode4xx: l.ResponseCode4xx.Combine(l2.ResponseCode4xx),
		ResponseCode5xx: l.ResponseCode5xx.Combine(l2.ResponseCode5xx),
	}
}

// Total is every class combined.
func (l *L7Stats) Total() L7PacketStats {
	return l.NoResponse.
		Combine(l.ResponseCode1xx).
		Combine(l.ResponseCode2xx).
		Combine(l.ResponseCode3xx).
		Combine(l.ResponseCode4xx).
		Combine(l.ResponseCode5xx)
}

// Errors is the count of failed requests: 5xx and no response.
func (l *L7Stats) Errors() int64 {
	return l.NoResponse.Count + l.ResponseCode5xx.Count
}

// Metrics derives rate, mean latency and error percentage over window.
// Latency is reported in seconds. With no requests every value is unknown.
func (l *L7Stats) Metrics(window time.Duration) traffic.Metrics {
	total := l.Total()
	if total.Count == 0 || window <= 0 {
		return traffic.NoMetrics()
	}
	return traffic.Metrics{
		Rate:       float64(total.Count) / window.Seconds(),
		Latency:    total.MeanDuration / 1000,
		PercentErr: 100 * float64(l.Errors()) / float64(total.Count),
	}
}

package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmitUplenchwar2687/meshflow/internal/traffic"
)

type fakeStats []traffic.EdgeStats

func (f fakeStats) Stats() []traffic.EdgeStats { return f }

func TestCollector_ObserveFrame(t *testing.T) {
	c := NewCollector()
	reg := prometheus.NewRegistry()
	require.NoError(t, c.Register(reg))

	c.ObserveFrame(traffic.Frame{Seq: 1, Elapsed: 16 * time.Millisecond, Edges: 3, Points: 5, Spawned: 2, Finished: 1})
	c.ObserveFrame(traffic.Frame{Seq: 2, Elapsed: 17 * time.Millisecond, Edges: 3, Points: 4, Spawned: 0, Finished: 1})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.frames))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.spawned))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.finished))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.edges))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.inFlight))
	assert.Equal(t, 1, testutil.CollectAndCount(c.elapsed))
}

func TestCollector_PerEdge(t *testing.T) {
	c := NewCollector()
	stats := fakeStats{{ID: "a-b", InFlight: 3}, {ID: "b-c", InFlight: 1}}
	c.Bind(stats)

	c.ObserveFrame(traffic.Frame{})
	assert.Equal(t, 2, testutil.CollectAndCount(c.edgeInFlight))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.edgeInFlight.WithLabelValues("a-b")))

	c.Bind(fakeStats{{ID: "b-c", InFlight: 0}})
	c.ObserveFrame(traffic.Frame{})
	assert.Equal(t, 1, testutil.CollectAndCount(c.edgeInFlight), "dropped edges should disappear")
}

func TestCollector_ObserveError(t *testing.T) {
	c := NewCollector()
	c.ObserveError(errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failures))
}

func TestCollector_RegisterTwiceFails(t *testing.T) {
	c := NewCollector()
	reg := prometheus.NewRegistry()
	require.NoError(t, c.Register(reg))
	assert.Error(t, c.Register(reg))
}

func TestHandler(t *testing.T) {
	c := NewCollector()
	reg := prometheus.NewRegistry()
	require.NoError(t, c.Register(reg))
	c.ObserveFrame(traffic.Frame{Edges: 1})

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "meshflow_frames_total 1")
	assert.Contains(t, string(body), "meshflow_edges 1")
}

package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/meshflow/internal/config"
	"github.com/SmitUplenchwar2687/meshflow/internal/feed"
	"github.com/SmitUplenchwar2687/meshflow/internal/recorder"
)

func TestServeCmd_RunsUntilCancelled(t *testing.T) {
	graph := writeFixture(t, "graph.json", graphFixture)
	record := filepath.Join(t.TempDir(), "frames.json")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	out, err := execute(t, ctx, "serve", "--addr", "127.0.0.1:0", "--graph", graph, "--record", record, "--fps", "50")
	if err != nil {
		t.Fatalf("serve failed: %v", err)
	}
	if !strings.Contains(out, "/dashboard") {
		t.Errorf("banner = %q, want the dashboard url", out)
	}

	records, err := recorder.LoadFile(record)
	if err != nil {
		t.Fatalf("frames not exported on shutdown: %v", err)
	}
	for _, r := range records {
		if len(r.Edges) != 1 {
			t.Fatalf("frame %d has %d edges, want 1", r.Frame.Seq, len(r.Edges))
		}
	}
}

func TestServeCmd_FileFeed(t *testing.T) {
	graph := writeFixture(t, "graph.json", graphFixture)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if _, err := execute(t, ctx, "serve", "--addr", "127.0.0.1:0", "--feed-file", graph); err != nil {
		t.Fatalf("serve with file feed failed: %v", err)
	}
}

func TestServeCmd_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad graph", []string{"serve", "--addr", "127.0.0.1:0", "--graph", writeFixture(t, "bad.json", `{"edges": [{"id": "x"}]}`)}},
		{"unknown feed", []string{"serve", "--feed", "kafka"}},
		{"file feed without file", []string{"serve", "--feed", "file"}},
		{"bad fps", []string{"serve", "--fps", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, nil, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestOpenFeed(t *testing.T) {
	ctx := context.Background()

	src, closeFn, err := openFeed(ctx, config.FeedConfig{Source: config.FeedNone})
	if err != nil || src != nil || closeFn != nil {
		t.Errorf("none: got %v, %v", src, err)
	}

	src, _, err = openFeed(ctx, config.FeedConfig{Source: config.FeedFile, File: "mesh.yaml"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*feed.FileSource); !ok {
		t.Errorf("file: got %T, want *feed.FileSource", src)
	}

	if _, _, err := openFeed(ctx, config.FeedConfig{Source: "kafka"}); err == nil {
		t.Error("expected error for unknown source")
	}

	// Nothing listens on port 1.
	_, _, err = openFeed(ctx, config.FeedConfig{Source: config.FeedRedis, Redis: config.RedisConfig{
		Host:        "127.0.0.1",
		Port:        1,
		DialTimeout: 50 * time.Millisecond,
	}})
	if err == nil {
		t.Error("expected error for unreachable redis")
	}
}

func TestEngineOptions_FlagsWinOverConfig(t *testing.T) {
	var o engineOptions
	cmd := &cobra.Command{Use: "x"}
	o.addFlags(cmd)
	if err := cmd.Flags().Parse([]string{"--fps", "24"}); err != nil {
		t.Fatal(err)
	}

	o.applyConfigIfUnset(cmd, config.EngineConfig{FrameRate: 60, Skin: "holiday", Seed: 3})
	got := o.toConfig()
	want := config.EngineConfig{FrameRate: 24, Skin: "holiday", Seed: 3}
	if got != want {
		t.Errorf("toConfig() = %+v, want %+v", got, want)
	}
}

func TestRedisOptions_FlagsWinOverConfig(t *testing.T) {
	var o redisOptions
	cmd := &cobra.Command{Use: "x"}
	o.addFlags(cmd)
	if err := cmd.Flags().Parse([]string{"--redis-host", "cache:6380", "--redis-channel", "updates"}); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default().Feed.Redis
	cfg.DB = 2
	o.applyConfigIfUnset(cmd, cfg)
	got := feedRedisConfig(o.toConfig())
	if got.Host != "cache:6380" || got.Channel != "updates" {
		t.Errorf("flags lost: %+v", got)
	}
	if got.DB != 2 || got.Key != cfg.Key {
		t.Errorf("config lost: %+v", got)
	}
}

func TestFilterOptions_ToFilter(t *testing.T) {
	o := filterOptions{protocols: []string{"GRPC", "tcp"}, from: time.Second, dimOthers: true}
	f := o.toFilter()
	if len(f.Protocols) != 2 || f.Protocols[0] != "grpc" {
		t.Errorf("protocols = %v, want lowercased", f.Protocols)
	}
	if f.From != time.Second || !f.DimOthers {
		t.Errorf("filter = %+v", f)
	}
}

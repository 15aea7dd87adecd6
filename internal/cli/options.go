package cli

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/SmitUplenchwar2687/meshflow/internal/config"
	"github.com/SmitUplenchwar2687/meshflow/internal/feed"
	"github.com/SmitUplenchwar2687/meshflow/internal/replay"
	"github.com/SmitUplenchwar2687/meshflow/internal/traffic"
)

type engineOptions struct {
	frameRate int
	skin      string
	seed      int64
}

func (o *engineOptions) addFlags(cmd *cobra.Command) {
	def := config.Default().Engine
	cmd.Flags().IntVar(&o.frameRate, "fps", def.FrameRate, "frames per second")
	cmd.Flags().StringVar(&o.skin, "skin", def.Skin, "point skin (normal, holiday)")
	cmd.Flags().Int64Var(&o.seed, "seed", def.Seed, "random seed for point emission (0 = from the clock)")
}

func (o *engineOptions) applyConfigIfUnset(cmd *cobra.Command, cfg config.EngineConfig) {
	if !cmd.Flags().Changed("fps") {
		o.frameRate = cfg.FrameRate
	}
	if !cmd.Flags().Changed("skin") {
		o.skin = cfg.Skin
	}
	if !cmd.Flags().Changed("seed") {
		o.seed = cfg.Seed
	}
}

func (o *engineOptions) toConfig() config.EngineConfig {
	return config.EngineConfig{
		FrameRate: o.frameRate,
		Skin:      o.skin,
		Seed:      o.seed,
	}
}

type redisOptions struct {
	host        string
	port        int
	password    string
	db          int
	key         string
	channel     string
	dialTimeout time.Duration
}

func (o *redisOptions) addFlags(cmd *cobra.Command) {
	def := config.Default().Feed.Redis
	cmd.Flags().StringVar(&o.host, "redis-host", def.Host, "redis host (or host:port)")
	cmd.Flags().IntVar(&o.port, "redis-port", def.Port, "redis port")
	cmd.Flags().StringVar(&o.password, "redis-password", "", "redis password")
	cmd.Flags().IntVar(&o.db, "redis-db", 0, "redis database index")
	cmd.Flags().StringVar(&o.key, "redis-key", def.Key, "redis key holding the current snapshot")
	cmd.Flags().StringVar(&o.channel, "redis-channel", def.Channel, "redis channel carrying snapshot updates")
	cmd.Flags().DurationVar(&o.dialTimeout, "redis-dial-timeout", def.DialTimeout, "redis dial timeout")
}

func (o *redisOptions) applyConfigIfUnset(cmd *cobra.Command, cfg config.RedisConfig) {
	if !cmd.Flags().Changed("redis-host") {
		o.host = cfg.Host
	}
	if !cmd.Flags().Changed("redis-port") {
		o.port = cfg.Port
	}
	if !cmd.Flags().Changed("redis-password") {
		o.password = cfg.Password
	}
	if !cmd.Flags().Changed("redis-db") {
		o.db = cfg.DB
	}
	if !cmd.Flags().Changed("redis-key") {
		o.key = cfg.Key
	}
	if !cmd.Flags().Changed("redis-channel") {
		o.channel = cfg.Channel
	}
	if !cmd.Flags().Changed("redis-dial-timeout") {
		o.dialTimeout = cfg.DialTimeout
	}
}

func (o *redisOptions) toConfig() config.RedisConfig {
	return config.RedisConfig{
		Host:        o.host,
		Port:        o.port,
		Password:    o.password,
		DB:          o.db,
		Key:         o.key,
		Channel:     o.channel,
		DialTimeout: o.dialTimeout,
	}
}

// feedRedisConfig converts the config section to what the feed connects with.
func feedRedisConfig(cfg config.RedisConfig) feed.RedisConfig {
	return feed.RedisConfig{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Password:    cfg.Password,
		DB:          cfg.DB,
		Key:         cfg.Key,
		Channel:     cfg.Channel,
		DialTimeout: cfg.DialTimeout,
	}
}

type renderOptions struct {
	width       int
	height      int
	supersample int
	background  string
}

func (o *renderOptions) addFlags(cmd *cobra.Command) {
	def := config.Default().Render
	cmd.Flags().IntVar(&o.width, "width", def.Width, "image width in pixels")
	cmd.Flags().IntVar(&o.height, "height", def.Height, "image height in pixels")
	cmd.Flags().IntVar(&o.supersample, "supersample", def.Supersample, "supersampling factor (1-4)")
	cmd.Flags().StringVar(&o.background, "background", def.Background, "background color (#rrggbb)")
}

func (o *renderOptions) applyConfigIfUnset(cmd *cobra.Command, cfg config.RenderConfig) {
	if !cmd.Flags().Changed("width") {
		o.width = cfg.Width
	}
	if !cmd.Flags().Changed("height") {
		o.height = cfg.Height
	}
	if !cmd.Flags().Changed("supersample") {
		o.supersample = cfg.Supersample
	}
	if !cmd.Flags().Changed("background") {
		o.background = cfg.Background
	}
}

func (o *renderOptions) toConfig() config.RenderConfig {
	return config.RenderConfig{
		Width:       o.width,
		Height:      o.height,
		Supersample: o.supersample,
		Background:  o.background,
	}
}

// filterOptions selects what part of a scenario is played.
type filterOptions struct {
	edges     []string
	nodes     []string
	protocols []string
	from      time.Duration
	to        time.Duration
	dimOthers bool
}

func (o *filterOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&o.edges, "edges", nil, "only play these edge ids (comma-separated)")
	cmd.Flags().StringSliceVar(&o.nodes, "nodes", nil, "only play edges touching nodes matching these substrings")
	cmd.Flags().StringSliceVar(&o.protocols, "protocols", nil, "only play edges of these protocols (http, grpc, tcp)")
	cmd.Flags().DurationVar(&o.from, "from", 0, "start offset into the scenario")
	cmd.Flags().DurationVar(&o.to, "to", 0, "end offset into the scenario (0 = scenario end)")
	cmd.Flags().BoolVar(&o.dimOthers, "dim-others", false, "dim unmatched edges instead of dropping them")
}

func (o *filterOptions) toFilter() replay.Filter {
	f := replay.Filter{
		Edges:     o.edges,
		Nodes:     o.nodes,
		From:      o.from,
		To:        o.to,
		DimOthers: o.dimOthers,
	}
	for _, p := range o.protocols {
		f.Protocols = append(f.Protocols, traffic.Protocol(strings.ToLower(p)))
	}
	return f
}

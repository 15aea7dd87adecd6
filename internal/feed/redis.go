package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/SmitUplenchwar2687/meshflow/internal/snapshot"
)

const (
	DefaultRedisKey     = "meshflow:graph"
	DefaultRedisChannel = "meshflow:graph:updates"

	defaultRedisMaxRetries  = 3
	defaultRedisDialTimeout = 5 * time.Second
)

// RedisConfig locates the snapshot key and update channel.
type RedisConfig struct {
	Host        string
	Port        int
	Password    string
	DB          int
	Key         string
	Channel     string
	MaxRetries  int
	DialTimeout time.Duration
}

// RedisSource reads the current snapshot from a key, then applies every
// snapshot published on a channel. Payloads are JSON graphs.
type RedisSource struct {
	client  *redis.Client
	key     string
	channel string

	closeOnce sync.Once
	closeErr  error
}

// NewRedisSource connects and pings the server.
func NewRedisSource(ctx context.Context, cfg RedisConfig) (*RedisSource, error) {
	conf, err := normalizeRedisConfig(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:        net.JoinHostPort(conf.Host, strconv.Itoa(conf.Port)),
		Password:    conf.Password,
		DB:          conf.DB,
		MaxRetries:  conf.MaxRetries,
		DialTimeout: conf.DialTimeout,
	})

	s := &RedisSource{
		client:  client,
		key:     conf.Key,
		channel: conf.Channel,
	}
	if err := s.pingWithRetry(ctx, conf.MaxRetries); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return s, nil
}

// Run implements Source.
func (s *RedisSource) Run(ctx context.Context, apply ApplyFunc) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	// Wait for the subscription before reading the key so an update
	// published in between is not lost.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribing to %s: %w", s.channel, err)
	}

	data, err := s.client.Get(ctx, s.key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		log.WithField("key", s.key).Info("no snapshot stored yet, waiting for updates")
	case err != nil:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("reading %s: %w", s.key, err)
	default:
		s.deliver(apply, data, "key")
	}

	log.WithField("channel", s.channel).Info("listening for snapshot updates")
	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			s.deliver(apply, []byte(msg.Payload), "channel")
		}
	}
}

func (s *RedisSource) deliver(apply ApplyFunc, data []byte, from string) {
	fields := log.Fields{"from": from, "key": s.key, "channel": s.channel}
	g, err := snapshot.Decode(bytes.NewReader(data), snapshot.FormatJSON)
	if err != nil {
		log.WithError(err).WithFields(fields).Warn("skipping bad snapshot")
		return
	}
	if err := apply(g); err != nil {
		log.WithError(err).WithFields(fields).Warn("snapshot rejected")
		return
	}
	log.WithFields(fields).WithField("edges", len(g.Edges)).Debug("snapshot applied")
}

// Publish stores g under the key and announces it on the channel.
func (s *RedisSource) Publish(ctx context.Context, g snapshot.Graph) error {
	if err := g.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := snapshot.Encode(&buf, g, snapshot.FormatJSON); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	payload := buf.String()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key, payload, 0)
	pipe.Publish(ctx, s.channel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publishing snapshot: %w", err)
	}
	return nil
}

// Close releases Redis resources. It is idempotent.
func (s *RedisSource) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Close()
	})
	return s.closeErr
}

func (s *RedisSource) pingWithRetry(ctx context.Context, maxRetries int) error {
	attempts := maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	backoff := 100 * time.Millisecond
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := s.client.Ping(ctx).Err(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
	}

	if lastErr == nil {
		lastErr = errors.New("ping failed with unknown error")
	}
	return lastErr
}

func normalizeRedisConfig(cfg RedisConfig) (RedisConfig, error) {
	host, port, err := NormalizeHostPort(cfg.Host, cfg.Port)
	if err != nil {
		return cfg, err
	}
	cfg.Host = host
	cfg.Port = port
	if cfg.Key == "" {
		cfg.Key = DefaultRedisKey
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultRedisChannel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultRedisMaxRetries
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultRedisDialTimeout
	}
	return cfg, nil
}

// NormalizeHostPort accepts either a bare host plus port or "host:port" in
// host, which then wins over port.
func NormalizeHostPort(host string, port int) (string, int, error) {
	if strings.Contains(host, ":") {
		h, p, err := net.SplitHostPort(host)
		if err != nil {
			return "", 0, fmt.Errorf("invalid redis host %q: %w", host, err)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", 0, fmt.Errorf("invalid redis port in %q: %w", host, err)
		}
		host = h
		port = n
	}

	if host == "" {
		return "", 0, fmt.Errorf("redis host cannot be empty")
	}
	if port <= 0 {
		return "", 0, fmt.Errorf("redis port must be positive, got %d", port)
	}

	return host, port, nil
}

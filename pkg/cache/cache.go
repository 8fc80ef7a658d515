package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/vipcxj/dash.go/config"
)

type Metrics struct {
	hitsTotal   *prometheus.CounterVec
	missesTotal *prometheus.CounterVec
}

func NewMetrics(reg *prometheus.Registry, cfg *config.PrometheusConfigure) *Metrics {
	factory := promauto.With(reg)
	commonLabels := []string{}
	return &Metrics{
		hitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_hits_total",
			Help:      "Total number of parse results served from the cache",
		}, commonLabels),
		missesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "cache_misses_total",
			Help:      "Total number of cache lookups that found nothing",
		}, commonLabels),
	}
}

func (me *Metrics) OnHit() {
	if me == nil {
		return
	}
	me.hitsTotal.WithLabelValues().Inc()
}

func (me *Metrics) OnMiss() {
	if me == nil {
		return
	}
	me.missesTotal.WithLabelValues().Inc()
}

// ManifestCache stores rendered parse results in redis. A nil cache misses
// every lookup and drops every write.
type ManifestCache struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	metrics *Metrics
}

func New(client redis.UniversalClient, prefix string, ttl time.Duration, metrics *Metrics) *ManifestCache {
	return &ManifestCache{
		client:  client,
		prefix:  prefix,
		ttl:     ttl,
		metrics: metrics,
	}
}

// Key derives a cache key from everything that affects a parse result.
func Key(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		var size [8]byte
		n := uint64(len(p))
		for i := range size {
			size[i] = byte(n >> (8 * i))
		}
		h.Write(size[:])
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *ManifestCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	v, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		c.metrics.OnMiss()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	c.metrics.OnHit()
	return v, true, nil
}

func (c *ManifestCache) Set(ctx context.Context, key string, value []byte) error {
	if c == nil {
		return nil
	}
	return c.client.Set(ctx, c.prefix+key, value, c.ttl).Err()
}

func (c *ManifestCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

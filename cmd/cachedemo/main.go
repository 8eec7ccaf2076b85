// Command cachedemo exercises a partitioned cache system the way the
// content-management service would: hot prompt bodies, rendered
// templates, metadata, and search results, each its own named partition
// with its own strategy, reported through a single aggregate stats line.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/promptvault/cache/metrics"
	"github.com/promptvault/cache/partition"
)

func main() {
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "cachedemo").Logger()

	reg := partition.NewRegistry(partition.WithLogger(zlog))
	defer reg.Destroy()

	prompts, err := reg.Get(partition.HotPrompts)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to open hotPrompts partition")
	}

	seed := []string{"system-prompt", "greeting", "summarize", "greeting", "system-prompt"}
	for _, key := range seed {
		if _, ok := prompts.Get(key); !ok {
			if err := prompts.Set(key, fmt.Sprintf("prompt body for %s", key), time.Minute); err != nil {
				zlog.Warn().Err(err).Str("key", key).Msg("set failed")
			}
		}
	}

	metadataCache, err := reg.Get(partition.Metadata)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to open metadata partition")
	}
	_ = metadataCache.Set("system-prompt.meta", map[string]string{"owner": "platform"}, 0)

	templatesCache, err := reg.Get(partition.Templates)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to open templates partition")
	}
	_ = templatesCache.Set("welcome.tmpl", "Hello, {{.Name}}!", 0)

	promReg := prometheus.NewRegistry()
	collector := metrics.New(promReg)

	for name, stats := range reg.Stats() {
		collector.Observe(name, stats)
		zlog.Info().
			Str("partition", name).
			Uint64("requests", stats.Requests).
			Uint64("hits", stats.Hits).
			Uint64("misses", stats.Misses).
			Float64("hit_rate", stats.HitRate()).
			Msg("partition stats")
	}

	agg := reg.Aggregate()
	zlog.Info().
		Uint64("requests", agg.Requests).
		Uint64("hits", agg.Hits).
		Float64("hit_rate", agg.HitRate()).
		Msg("aggregate stats")

	families, err := promReg.Gather()
	if err != nil {
		zlog.Warn().Err(err).Msg("failed to gather prometheus metrics")
		return
	}
	zlog.Info().Int("metric_families", len(families)).Msg("prometheus metrics recorded")
}

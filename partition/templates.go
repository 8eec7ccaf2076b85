/*
Package partition implements CachePartitionManager (spec §4.9): a catalogue
of named cache instances, each built from a configuration template and
lazily instantiated on first access, with stats aggregated across the
whole catalogue.
*/
package partition

import (
	"time"

	"github.com/spf13/viper"

	"github.com/promptvault/cache"
)

// Well-known partition names. The content-management service that embeds
// this cache core uses exactly these four: prompt bodies read from disk,
// rendered templates, prompt metadata, and search result sets.
const (
	HotPrompts    = "hotPrompts"
	Templates     = "templates"
	Metadata      = "metadata"
	SearchResults = "searchResults"
)

// envDefaults carries the documented environment-variable defaults (§6)
// for each well-known partition, read through a private viper instance so
// a process can override any of them without reaching into global viper
// state shared by unrelated packages.
type envDefaults struct {
	v *viper.Viper
}

func newEnvDefaults() *envDefaults {
	v := viper.New()
	v.SetDefault("file_cache_max_size", 500)
	v.SetDefault("file_cache_ttl", 600000)
	v.SetDefault("metadata_cache_max_size", 1000)
	v.SetDefault("metadata_cache_ttl", 300000)
	v.SetDefault("search_cache_max_size", 200)
	v.SetDefault("search_cache_ttl", 180000)
	v.SetDefault("template_cache_max_size", 100)
	v.SetDefault("template_cache_ttl", 900000)
	v.AutomaticEnv()
	return &envDefaults{v: v}
}

func (e *envDefaults) maxSize(key string) int { return e.v.GetInt(key) }

func (e *envDefaults) ttlMillis(key string) time.Duration {
	return time.Duration(e.v.GetInt64(key)) * time.Millisecond
}

// DefaultTemplates returns the config templates for the four well-known
// partitions, seeded from the documented FILE_CACHE_*, METADATA_CACHE_*,
// SEARCH_CACHE_*, and TEMPLATE_CACHE_* environment variables.
func DefaultTemplates() map[string]cache.Config {
	env := newEnvDefaults()

	hotPrompts := cache.NewConfig(
		cache.WithStrategy(cache.StrategyMultiTier),
		cache.WithMaxSize(env.maxSize("file_cache_max_size")),
		cache.WithDefaultTTL(env.ttlMillis("file_cache_ttl")),
	)
	hotPrompts.L1MaxSize = env.maxSize("file_cache_max_size") / 10
	if hotPrompts.L1MaxSize < 10 {
		hotPrompts.L1MaxSize = 10
	}
	hotPrompts.L2MaxSize = env.maxSize("file_cache_max_size")
	hotPrompts.L3MaxSize = env.maxSize("file_cache_max_size") * 4
	hotPrompts.L1TTL = env.ttlMillis("file_cache_ttl") / 10
	hotPrompts.L2TTL = env.ttlMillis("file_cache_ttl")
	hotPrompts.L3TTL = env.ttlMillis("file_cache_ttl") * 4

	metadata := cache.NewConfig(
		cache.WithStrategy(cache.StrategySimple),
		cache.WithMaxSize(env.maxSize("metadata_cache_max_size")),
		cache.WithDefaultTTL(env.ttlMillis("metadata_cache_ttl")),
	)

	searchResults := cache.NewConfig(
		cache.WithStrategy(cache.StrategyAdaptive),
		cache.WithMaxSize(env.maxSize("search_cache_max_size")),
		cache.WithDefaultTTL(env.ttlMillis("search_cache_ttl")),
	)

	templates := cache.NewConfig(
		cache.WithStrategy(cache.StrategySimple),
		cache.WithMaxSize(env.maxSize("template_cache_max_size")),
		cache.WithDefaultTTL(env.ttlMillis("template_cache_ttl")),
	)

	return map[string]cache.Config{
		HotPrompts:    hotPrompts,
		Metadata:      metadata,
		SearchResults: searchResults,
		Templates:     templates,
	}
}

// Package config handles configuration loading for the sticker tagger bot.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from STICKERTAGGER_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/stickertagger/config.yaml
//  3. ~/.config/stickertagger/config.yaml
//
// Files ending in .toml are decoded as TOML; everything else is YAML.
//
// # Environment Variables
//
// Values can reference environment variables, expanded before decoding:
//
//	telegram:
//	  token: "${TELEGRAM_TOKEN}"
//
// Any field can also be overridden with STICKERTAGGER_<SECTION>_<KEY>, for
// example STICKERTAGGER_WORKERS_MAX_WORKERS=16. Overrides win over the file.
//
// # Configuration Sections
//
//	telegram:
//	  token: "${TELEGRAM_TOKEN}"   # required
//	  poll_timeout: "30s"
//	  inline_result_limit: 50      # 1..50
//
//	database:
//	  path: "stickertagger.db"
//
//	workers:
//	  max_workers: 8               # concurrent store checks
//
//	conversation:
//	  task_timeout: "10s"          # how long a handler waits for a check
//	  transition_timeout: "15s"    # how long a transition waits for the previous check
//
//	dedupe:
//	  ttl: "10m"
//	  max_size: 10000
//
//	server:
//	  http_addr: "127.0.0.1:8080"  # health and metrics
//
//	logging:
//	  level: "info"                # debug, info, warn, error
//	  format: "text"               # text, json
//
//	metrics:
//	  enabled: false
//	  path: "/metrics"
//
// Durations use time.ParseDuration syntax.
package config

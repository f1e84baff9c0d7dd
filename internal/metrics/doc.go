// Package metrics exposes Prometheus counters for the bot.
//
// A Recorder is passed to the conversation registry as its Observer and to the
// dispatcher, and its Handler is mounted at the configured metrics path.
package metrics

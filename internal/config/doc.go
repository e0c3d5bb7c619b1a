// Package config provides configuration for mdscrape: scrape source, worker
// pool size, per-fetch limits and output settings. Values come from
// defaults, an optional YAML file and command line flags, in that order.
package config

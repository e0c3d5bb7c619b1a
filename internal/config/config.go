package config

import (
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "mdscrape"

	// DefaultBaseURL is the page prefix each code is appended to.
	DefaultBaseURL = "https://www.librarything.com/mds/"

	// DefaultTimeout bounds a single fetch. A hung request only stalls its
	// own worker until this deadline.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize limits how much of a page body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultUserAgent identifies mdscrape in HTTP requests.
	DefaultUserAgent = "mdscrape/1.0 (+https://github.com/nao1215/mdscrape)"

	// DefaultRootKey is the top-level key of the serialized tree.
	DefaultRootKey = "root"

	// DefaultOutputDir is where artifacts are written.
	DefaultOutputDir = "data"

	// DefaultFrom and DefaultTo span the full keyspace.
	DefaultFrom = "000.0"
	DefaultTo   = "999.9"
)

// Output formats.
const (
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatXLSX     = "xlsx"
	FormatMarkdown = "markdown"
)

// SupportedFormats lists every output format in a stable order.
var SupportedFormats = []string{FormatCSV, FormatJSON, FormatXLSX, FormatMarkdown}

// DefaultFormats are written when nothing else is requested.
var DefaultFormats = []string{FormatCSV, FormatJSON}

// DefaultWorkers returns one worker per available CPU.
func DefaultWorkers() int {
	return runtime.NumCPU()
}

// Config holds every option of a scrape run.
type Config struct {
	// BaseURL is the prefix each code is appended to.
	BaseURL string

	// From and To bound the scraped keyspace, both inclusive.
	From string
	To   string

	// Workers is the maximum number of concurrent fetches.
	Workers int

	// Timeout is the deadline for each individual fetch.
	Timeout time.Duration

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// Headers are extra request headers, typically from the config file.
	Headers map[string]string

	// RootKey is the top-level key of the serialized tree.
	RootKey string

	// OutputDir is the directory artifacts are written to. Created if missing.
	OutputDir string

	// Formats selects which artifacts are written.
	Formats []string

	// SaveToDB stores the run in the SQLite database under DBDir.
	SaveToDB bool

	// DBDir is the directory holding the SQLite database.
	DBDir string

	// ConfigFilePath is the path to the YAML configuration file.
	ConfigFilePath string

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches log output to JSON.
	LogJSON bool
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:     DefaultBaseURL,
		From:        DefaultFrom,
		To:          DefaultTo,
		Workers:     DefaultWorkers(),
		Timeout:     DefaultTimeout,
		MaxBodySize: DefaultMaxBodySize,
		UserAgent:   DefaultUserAgent,
		Headers:     make(map[string]string),
		RootKey:     DefaultRootKey,
		OutputDir:   DefaultOutputDir,
		Formats:     slices.Clone(DefaultFormats),
		SaveToDB:    true,
		DBDir:       XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for mdscrape.
// On Linux: ~/.local/share/mdscrape
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for mdscrape.
// On Linux: ~/.config/mdscrape
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// HasFormat reports whether format is selected.
func (c *Config) HasFormat(format string) bool {
	return slices.Contains(c.Formats, format)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrEmptyBaseURL
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}

	if c.RootKey == "" {
		return ErrEmptyRootKey
	}

	if len(c.Formats) == 0 {
		return ErrNoOutputFormat
	}
	for _, f := range c.Formats {
		if !slices.Contains(SupportedFormats, f) {
			return ErrUnknownFormat
		}
	}

	if c.SaveToDB && c.DBDir == "" {
		return ErrEmptyDBDir
	}

	return nil
}

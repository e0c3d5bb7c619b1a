package config

import "time"

// File is the structure of the .mdscrape YAML configuration file.
type File struct {
	Source SourceConfig `yaml:"source,omitempty"`
	Output OutputConfig `yaml:"output,omitempty"`
}

// SourceConfig describes where and how pages are fetched.
type SourceConfig struct {
	// BaseURL is the prefix each code is appended to.
	BaseURL string `yaml:"base_url,omitempty"`

	// UserAgent overrides the default User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`

	// Headers are extra HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Workers is the maximum number of concurrent fetches.
	Workers int `yaml:"workers,omitempty"`

	// Timeout is the deadline for each fetch, e.g. "30s".
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// OutputConfig describes what is written after a run.
type OutputConfig struct {
	// Dir is the artifact directory.
	Dir string `yaml:"dir,omitempty"`

	// Formats lists the artifacts to write.
	Formats []string `yaml:"formats,omitempty"`

	// RootKey is the top-level key of the serialized tree.
	RootKey string `yaml:"root_key,omitempty"`
}

// Apply copies every non-zero value of the file onto c.
func (f *File) Apply(c *Config) {
	if f.Source.BaseURL != "" {
		c.BaseURL = f.Source.BaseURL
	}
	if f.Source.UserAgent != "" {
		c.UserAgent = f.Source.UserAgent
	}
	if len(f.Source.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string)
		}
		for k, v := range f.Source.Headers {
			c.Headers[k] = v
		}
	}
	if f.Source.Workers > 0 {
		c.Workers = f.Source.Workers
	}
	if f.Source.Timeout > 0 {
		c.Timeout = f.Source.Timeout
	}
	if f.Output.Dir != "" {
		c.OutputDir = f.Output.Dir
	}
	if len(f.Output.Formats) > 0 {
		c.Formats = append([]string(nil), f.Output.Formats...)
	}
	if f.Output.RootKey != "" {
		c.RootKey = f.Output.RootKey
	}
}

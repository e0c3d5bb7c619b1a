package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"api_key":             true,
	"apikey":              true,
	"api-key":             true,
	"session":             true,
	"session_id":          true,
	"sessionid":           true,
}

// sensitiveKeywords mask any key that contains them.
var sensitiveKeywords = []string{"password", "passwd", "secret", "token", "credential"}

// sensitivePatterns mask a string value regardless of its key.
// Hex digests are deliberately not matched: page digests are logged at debug level.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
}

// MaskValue replaces sensitive values.
const MaskValue = "***REDACTED***"

// RedactHandler wraps an slog.Handler and masks sensitive attribute values
// before they reach it.
type RedactHandler struct {
	handler slog.Handler
	keys    map[string]bool
	secrets []string
}

// Option configures a RedactHandler.
type Option func(*RedactHandler)

// WithSensitiveKeys masks attributes with these keys, compared case-insensitively,
// in addition to the built-in list. Used for user-configured request headers.
func WithSensitiveKeys(keys ...string) Option {
	return func(h *RedactHandler) {
		for _, k := range keys {
			if k != "" {
				h.keys[strings.ToLower(k)] = true
			}
		}
	}
}

// WithSecrets masks these values wherever they appear inside a string or
// error attribute, whatever the key.
func WithSecrets(values ...string) Option {
	return func(h *RedactHandler) {
		for _, v := range values {
			if v != "" {
				h.secrets = append(h.secrets, v)
			}
		}
	}
}

// NewRedactHandler wraps handler. A nil handler means slog.Default().Handler().
func NewRedactHandler(handler slog.Handler, opts ...Option) *RedactHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	h := &RedactHandler{handler: handler, keys: make(map[string]bool)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Enabled delegates to the wrapped handler.
func (h *RedactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and forwards it.
func (h *RedactHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redact(a))
		return true
	})
	return h.handler.Handle(ctx, out)
}

// WithAttrs masks attrs before attaching them.
func (h *RedactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = h.redact(a)
	}
	return h.with(h.handler.WithAttrs(masked))
}

// WithGroup returns a handler that nests later attributes under name.
func (h *RedactHandler) WithGroup(name string) slog.Handler {
	return h.with(h.handler.WithGroup(name))
}

func (h *RedactHandler) with(next slog.Handler) *RedactHandler {
	return &RedactHandler{handler: next, keys: h.keys, secrets: h.secrets}
}

func (h *RedactHandler) redact(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		masked := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			masked[i] = h.redact(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	if isSensitiveKey(a.Key) || h.keys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		v := a.Value.String()
		if isSensitiveValue(v) {
			return slog.String(a.Key, MaskValue)
		}
		if masked, ok := h.maskSecrets(v); ok {
			return slog.String(a.Key, masked)
		}
	case slog.KindAny:
		if err, isErr := a.Value.Any().(error); isErr && err != nil {
			if masked, ok := h.maskSecrets(err.Error()); ok {
				return slog.String(a.Key, masked)
			}
		}
	}

	return a
}

// maskSecrets replaces every configured secret in s. It reports whether
// anything was replaced.
func (h *RedactHandler) maskSecrets(s string) (string, bool) {
	replaced := false
	for _, secret := range h.secrets {
		if strings.Contains(s, secret) {
			s = strings.ReplaceAll(s, secret, MaskValue)
			replaced = true
		}
	}
	return s, replaced
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if sensitiveKeys[key] {
		return true
	}
	for _, kw := range sensitiveKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

func isSensitiveValue(value string) bool {
	for _, p := range sensitivePatterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}

// level maps the verbose flag to a minimum level: Debug when verbose, Warn otherwise.
func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewLogger returns a text logger writing to w with redaction enabled.
func NewLogger(w io.Writer, verbose bool, opts ...Option) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level(verbose)})
	return slog.New(NewRedactHandler(h, opts...))
}

// NewJSONLogger returns a JSON logger writing to w with redaction enabled.
func NewJSONLogger(w io.Writer, verbose bool, opts ...Option) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level(verbose)})
	return slog.New(NewRedactHandler(h, opts...))
}

// HeaderRedaction returns the options that keep configured request headers
// out of the logs: their names become sensitive keys and their values
// secrets.
func HeaderRedaction(headers map[string]string) []Option {
	keys := make([]string, 0, len(headers))
	values := make([]string, 0, len(headers))
	for k, v := range headers {
		keys = append(keys, k)
		values = append(values, v)
	}
	return []Option{WithSensitiveKeys(keys...), WithSecrets(values...)}
}

// Discard returns a logger that drops every record. Pipeline and report
// components fall back to it when they are not given a logger.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

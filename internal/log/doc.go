// Package log builds the slog loggers used by mdscrape.
//
// Every logger wraps its output handler in a RedactHandler, which masks
// attribute values that look like credentials. Request headers supplied
// through the config file (Authorization, Cookie and friends) therefore
// never reach the terminal or a log file in clear text, even at debug level.
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	logger.Debug("request headers", "authorization", "Bearer abc") // masked
package log

// Package fetcher retrieves the page for a single classification code.
//
// HTTPFetcher appends the code to a base URL and issues one GET. Only a
// 200 response counts as success; anything else is returned as an error
// wrapping ErrUnexpectedStatus so callers can tell it apart from transport
// failures. There are no retries. Every fetch runs under its own deadline.
//
// Bodies are size-limited and decoded to UTF-8 based on the Content-Type
// header and any <meta charset> in the document.
package fetcher

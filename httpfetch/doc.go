// Package httpfetch fetches remote templates and document stores over HTTP.
//
// Get returns a response body; Download stores it under a local directory and
// reuses the file on later calls, so a remote store is fetched once:
//
//	path, err := httpfetch.Download(ctx, nil, "https://example.com/wiki.db", "/var/cache/pipegen")
package httpfetch

// Package sdk provides a typed Go client for the record-store REST API.
//
// The client is the single request path for every read and write the rest
// of routekit performs. Mutations go through the governed change endpoints
// (dry-run, commit, reject, undo-last) and are retried according to a
// status-aware backoff policy; reads default to zero retries and callers
// opt in explicitly.
package sdk

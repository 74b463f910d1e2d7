// Package utils provides the HTTP plumbing shared by node providers:
// synchronous JSON POST and GET round trips, a streaming POST that leaves the
// body open for the stream decoder, and a typed error for non-2xx responses.
package utils

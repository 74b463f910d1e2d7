// Package webfetch downloads web pages and converts their HTML to Markdown.
//
// [Fetcher.Fetch] retrieves one page; [Fetcher.FetchAll] retrieves a list and
// keeps a per-URL error instead of failing the whole batch. Partial URLs get an
// https:// prefix, redirects are capped at ten, and bodies are capped at
// [MaxBodySize].
package webfetch

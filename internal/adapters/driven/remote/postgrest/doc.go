// Package postgrest implements driven.RemoteSource over a PostgREST-style
// HTTP API (the REST dialect served by Supabase).
//
// Pages are requested in (updated_at, id) order with keyset filters, row
// counts come from the Content-Range header of a HEAD request, and content
// versions are read from a content_versions table when the backend has one.
//
// Requests are throttled proactively with a token bucket and reactively
// when the server answers 429 with Retry-After. Failures are returned as
// *domain.FetchError so the sync pipeline can tell transient from permanent.
package postgrest

// Package client contains client-side building blocks for cardkeeper.
//
// # Overview
//
// The package provides:
//  1. The inventory API contract (see the Client interface): Login, batch
//     initiation, record read/patch/delete, single-image upload targets,
//     and archive jobs.
//  2. A REST implementation (see HTTPClient) that attaches the session's
//     bearer token, unwraps the {success, data} envelope, and maps HTTP
//     statuses to sentinel errors.
//  3. Local persistence bootstrap utilities (InitDatabase, RunMigrations) for
//     the CLI, wiring an SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnavailable, ErrUnauthorized, ErrMalformedResponse,
// ErrRejected (carried by *APIError) and common.ErrNotFound.
//
// Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation.
package client

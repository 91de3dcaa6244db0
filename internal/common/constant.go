// Package common contains shared constants and sentinel errors used across
// cardkeeper components.
package common

// AuthorizationHeader carries the bearer credential on every inventory API call.
const AuthorizationHeader = "Authorization"

// BearerPrefix precedes the session token in AuthorizationHeader.
const BearerPrefix = "Bearer "

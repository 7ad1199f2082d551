// Package accesscontrol holds the single owner identity of a deployment and the
// "is caller the owner" check every mutating operation is gated on.
//
// Layering:
// - domain: identity value object and errors
// - application: Guard (read-side checks) and the ownership transfer command
// - ports: owner storage boundary, satisfied by the proxy storage slots
// - adapters: in-memory owner store for standalone use
package accesscontrol

// Package upgradeproxy implements the forwarding proxy that hosts the voting
// engine.
//
// The proxy owns all persistent storage. It answers a small set of methods
// itself (owner, implementation pointer, upgrade, ownership transfer) and
// forwards every other call to the current logic provider, which runs
// against the proxy's storage through the storagelayout contract. Replacing
// the provider therefore keeps every session, topic and voter record.
//
// Layering:
// - domain: addresses, proxy methods with their argument documents, events
//   and errors
// - application: the Proxy dispatcher plus the outbox relay and event log
//   workers
// - ports: storage, registry, clock, id, metrics and event bus boundaries
// - adapters: memory, sqlite and postgres storage, registry, HTTP handler
// - transport: HTTP request and response documents
package upgradeproxy

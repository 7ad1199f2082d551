// Package votingengine implements time-bounded voting sessions over a fixed
// list of topics.
//
// The module owns no storage. Its logic providers (package logic) are
// installed behind the upgrade proxy and run against the proxy's storage
// through the storagelayout contract, so a newer provider can replace an older
// one without moving any session data.
//
// Layering:
// - domain: sessions, topics, tally rules and errors
// - application: session commands and read queries over ports
// - logic: versioned call handlers installed into the proxy
// - adapters/http: encodes HTTP requests as proxy calls
// - transport/http: call arguments and return documents
package votingengine

// Package base provides a client for a single Deta Base, a named collection
// inside a project of the Deta key-value database. The HTTP surface mirrors
// the public Base API (https://database.deta.sh/v1/<project-id>/<base>):
// items are stored with PUT /items, created strictly with POST /items, read,
// removed and partially updated through /items/<key>, and queried page by
// page through POST /query.
//
// The Base type centres around three pieces of client-side logic: TTL
// resolution for the reserved __expires field (ResolveTTL), the update
// action vocabulary (Increment, Append, Prepend, Trim) encoded into the
// five-bucket PATCH payload (EncodeUpdates), and cursor pagination exposed
// both as a single-page Fetch and as a lazy Pages sequence.
//
// A Base is bound to a Backend. New wires the HTTP backend; NewWithBackend
// accepts anything else, such as the in-memory emulator in package mock.
package base

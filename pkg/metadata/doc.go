// Package metadata implements the ordered, type-tagged key/value container used
// for connection settings, handshake documents and the results returned by
// every coupling call.
//
// Supported value kinds are int, float64 ("double"), bool, string and nested
// *Metadata. A key keeps the kind of its most recent Set. Reading a key with a
// different kind fails with ErrTypeMismatch and reading a missing key fails
// with ErrKeyNotFound.
//
// Metadata is value-semantic: nested documents are copied on Set and on Get,
// so a caller never shares storage with a document it handed over.
package metadata

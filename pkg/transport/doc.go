// Package transport defines the channel a coupling connection talks over and
// the framed implementation shared by every backend.
//
// Key concepts:
// - Link: a bidirectional, self-delimiting frame channel opened by a backend
// - Opener: a backend (file, socket, pipe, mem) that rendezvouses with the peer and yields a Link
// - Transport: the signal/buffer/metadata contract a Connection drives; Framed
//   implements it once on top of any Opener and performs the Hello handshake
// - Settings: Connect-time configuration parsed from Metadata
package transport

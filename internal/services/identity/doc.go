// Package identity is the fleet provisioning service client.
//
// A device without a certificate connects with a claim certificate, obtains
// its own credentials with CreateKeysAndCertificate or
// CreateCertificateFromCsr, and registers itself with RegisterThing using
// the returned ownership token.
//
// The provisioning service does not echo a client token, so concurrent
// requests of the same operation are answered in the order they were
// published.
package identity

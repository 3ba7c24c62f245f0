// Package cbortcp implements the device transport that speaks CBOR over TCP.
//
// Every message is a CBOR map preceded by a 4-byte big-endian length. The
// client sends a Request per write and the device answers with a Response
// carrying the same sequence number. A failed write carries a RemoteError
// whose Cause fields form the chain of underlying failures; it is decoded
// into a Go error chain so errors.Unwrap walks down to the root cause.
package cbortcp

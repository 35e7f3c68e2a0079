// Package session holds the per-operator analysis state: the dimension
// registry with its profile groups and the most recently parsed measurement
// table. Every operation runs the full pipeline from that state and either
// succeeds or leaves it untouched.
//
// A Manager owns the live sessions of a server, hands out uuid identifiers,
// caps their number and evicts idle ones from a background janitor.
package session

// Package stats computes per-dimension statistics and process capability
// indices over a measurement table.
//
// Undefined quantities (standard deviation and capability with fewer than
// two readings, capability with zero spread) are nil, never NaN or zero.
package stats

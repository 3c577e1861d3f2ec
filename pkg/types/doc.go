// Package types defines the meaning object schema, the protected-table
// configuration, cache entry and durable store contracts, and the standard
// errors shared by the ULL content layer.
package types

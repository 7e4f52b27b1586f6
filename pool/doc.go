// Package pool provides reusable memory for per-connection read buffers.
//
// Every accepted connection needs one fixed-size slab for its read buffer; the
// slab goes back to the pool when the connection closes so a busy reactor does not
// churn the allocator.
package pool

// DefaultSlabSize is the per-connection read buffer capacity.
const DefaultSlabSize = 1024

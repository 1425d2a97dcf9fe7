// Package locq holds the packed chunk-index hash and the location queues
// used to schedule chunk work.
package locq

const (
	hashBits = 10
	hashMask = 1<<hashBits - 1
)

// Hash packs a chunk index into one int using 10 bits per axis.
// Indices that differ by a multiple of 1024 on any axis collide.
func Hash(i, j, k int) int {
	return (i & hashMask) | (j&hashMask)<<hashBits | (k&hashMask)<<(2*hashBits)
}

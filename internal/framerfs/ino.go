package framerfs

import "hash/fnv"

// inoFromString derives a stable inode number from a path-like key so the
// same logical flow or frame always maps to the same inode.
func inoFromString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

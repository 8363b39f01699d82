package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// RowStamp is the identity and version of one stored row.
type RowStamp struct {
	ID        string
	UpdatedAt string
}

// Checksum returns an order-independent digest of stamps.
// Two tables holding the same rows at the same versions have equal checksums.
func Checksum(stamps []RowStamp) string {
	sorted := make([]RowStamp, len(stamps))
	copy(sorted, stamps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	h := sha256.New()
	for _, s := range sorted {
		h.Write([]byte(s.ID))
		h.Write([]byte{'|'})
		h.Write([]byte(s.UpdatedAt))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

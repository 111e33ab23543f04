package dispatch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// tokenLength is the number of hex characters kept from the digest. Sixteen
// characters (64 bits) cannot collide within one document's lifetime, where
// only a handful of generations ever exist.
const tokenLength = 16

// DeriveToken computes the idempotency token for a document at a given status
// generation. The derivation is deterministic so a re-dispatch at the same
// generation produces the same token.
func DeriveToken(documentID string, generation int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", documentID, generation)))
	return hex.EncodeToString(sum[:])[:tokenLength]
}

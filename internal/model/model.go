// Package model defines the synchronized domain records and their mapping to
// document fields in the shared store.
package model

import "strings"

// Collection names in the shared store.
const (
	Users         = "users"
	Chat          = "chat"
	Conversations = "conversations"
	Calls         = "calls"
	Relationships = "user_relationships"
)

// PairKey identifies an unordered pair of users: PairKey(a, b) == PairKey(b, a).
type PairKey string

// NewPairKey returns the canonical key for the unordered pair {a, b}.
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey(a + "|" + b)
}

// Members returns the two users of the pair in canonical order.
func (k PairKey) Members() (string, string) {
	a, b, _ := strings.Cut(string(k), "|")
	return a, b
}

// Other returns the member that is not self.
func (k PairKey) Other(self string) string {
	a, b := k.Members()
	if a == self {
		return b
	}
	return a
}

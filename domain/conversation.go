package domain

import (
	"sort"
	"strings"
)

// ConversationKey identifies a two-party conversation. It is derived,
// never stored: the backing log is created implicitly on first append.
type ConversationKey string

// keySeparator joins the two sorted participant ids.
const keySeparator = "--"

// DeriveKey builds the canonical key for the unordered pair (idA, idB).
// It is pure and symmetric: DeriveKey(a, b) == DeriveKey(b, a).
// Rejecting idA == idB is the caller's concern, not this function's.
func DeriveKey(idA, idB string) ConversationKey {
	ids := []string{idA, idB}
	sort.Strings(ids)
	return ConversationKey(strings.Join(ids, keySeparator))
}

// Participants splits the key back into the two sorted ids.
func (k ConversationKey) Participants() (string, string) {
	parts := strings.SplitN(string(k), keySeparator, 2)
	if len(parts) != 2 {
		return string(k), ""
	}
	return parts[0], parts[1]
}

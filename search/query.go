// Package search maintains a full-text index over conversation
// messages and answers /find queries against it.
package search

import (
	"strconv"
	"strings"
)

// Query is the structured form of a /find command. It decouples the raw
// chat input from the index engine requirements.
type Query struct {
	RawInput     string // the original typed command
	Terms        string // text to match against message bodies
	Sender       string // optional sender id filter
	Conversation string // optional conversation key filter
	Limit        int    // number of results
}

const defaultLimit = 10

// ParseQuery extracts command-line style arguments from a raw string.
// Example: /find invoice --sender a1b2 --limit 5
func ParseQuery(input string) *Query {
	q := &Query{RawInput: input, Limit: defaultLimit}

	parts := strings.Fields(input)
	var terms []string
	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			val := parts[i+1]
			switch strings.TrimPrefix(part, "--") {
			case "sender":
				q.Sender = val
			case "conversation":
				q.Conversation = val
			case "limit":
				if n, err := strconv.Atoi(val); err == nil && n > 0 {
					q.Limit = n
				}
			}
			i++
			continue
		}

		// Skip the leading /find verb itself.
		if !strings.HasPrefix(part, "/") {
			terms = append(terms, part)
		}
	}

	q.Terms = strings.Join(terms, " ")
	return q
}

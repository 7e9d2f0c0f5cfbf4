// Package strings holds helpers for wallet and signer identifier lists.
package strings

import (
	"slices"
	"strings"
)

// DedupeAndTrim removes duplicates and blanks, trimming each element. Order is
// preserved and case is significant (base58 wallets are case sensitive).
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}
	return result
}

// SortedSet is DedupeAndTrim followed by a lexical sort, giving a canonical
// form suitable for hashing and byte-stable output.
func SortedSet(values []string) []string {
	out := DedupeAndTrim(values)
	if out == nil {
		return nil
	}
	out = slices.Clone(out)
	slices.Sort(out)
	return out
}

// Subtract returns the elements of all not present in remove, in all's order.
func Subtract(all, remove []string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, r := range remove {
		drop[r] = struct{}{}
	}
	out := make([]string, 0, len(all))
	for _, a := range all {
		if _, ok := drop[a]; !ok {
			out = append(out, a)
		}
	}
	return out
}

package dataset

import "strings"

// Normalize derives the external id of a data point from its file name by
// removing prefix from the start and suffix from the end, each at most once.
// An empty marker leaves that side untouched.
func Normalize(prefix, suffix, name string) string {
	name = strings.TrimPrefix(name, prefix)
	return strings.TrimSuffix(name, suffix)
}

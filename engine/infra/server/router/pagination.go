package router

import (
	"strconv"
	"strings"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// LimitOrDefault returns a sanitized page size. Missing, malformed and
// non-positive values yield def; values above maxLimit are capped.
func LimitOrDefault(raw string, def int, maxLimit int) int {
	if def <= 0 {
		def = defaultPageSize
	}
	if maxLimit <= 0 {
		maxLimit = maxPageSize
	}
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || val <= 0 {
		return def
	}
	if val > maxLimit {
		return maxLimit
	}
	return val
}

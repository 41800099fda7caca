// Package cliutil holds flag helpers shared by the commands.
package cliutil

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// ParseWorkers accepts an integer >= 1 or "auto", which yields 0.
func ParseWorkers(raw string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return 0, fmt.Errorf("empty value (use integer >= 1 or 'auto')")
	}
	if v == "auto" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q (use integer >= 1 or 'auto')", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("%d (must be >= 1 or 'auto')", n)
	}
	return n, nil
}

// ResolveWorkers maps 0 ("auto") to GOMAXPROCS.
func ResolveWorkers(n int) int {
	if n == 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return max(n, 1)
}

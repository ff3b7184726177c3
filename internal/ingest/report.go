package ingest

import (
	"fmt"
	"sort"
	"strings"
)

// Report summarises one job run.
type Report struct {
	Job       string
	Processed int
	Written   int
	Skipped   int
}

func (r Report) String() string {
	return fmt.Sprintf("%s: processed=%d written=%d skipped=%d", r.Job, r.Processed, r.Written, r.Skipped)
}

func normaliseSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

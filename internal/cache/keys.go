package cache

import (
	"strings"
	"time"

	"stockpipe/internal/config"
)

// Namespace is the Redis key prefix for stockpipe.
const Namespace = "stockpipe"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort  TTLClass = "short"
	TTLMedium TTLClass = "medium"
	TTLLong   TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short:  durationOrDefault(cfg.Short, 10*time.Second),
		Medium: durationOrDefault(cfg.Medium, time.Minute),
		Long:   durationOrDefault(cfg.Long, 5*time.Minute),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLMedium:
		return t.Medium
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

// Scaled applies a multiplier to a TTL class.
func (t TTLSet) Scaled(class TTLClass, factor float64) time.Duration {
	base := t.Duration(class)
	if base <= 0 || factor <= 0 {
		return base
	}
	return time.Duration(float64(base) * factor)
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// --- Financial statements ---------------------------------------------------

// FinancialReportKey caches one statement document.
func FinancialReportKey(kind, symbol string, yearly bool) string {
	period := "quarterly"
	if yearly {
		period = "yearly"
	}
	return formatKey("scfa", kind, period, strings.ToUpper(symbol))
}

// DividendKey caches the event list for a symbol; an empty symbol is the
// whole collection.
func DividendKey(symbol string) string {
	if symbol == "" {
		return formatKey("dividend", "all")
	}
	return formatKey("dividend", strings.ToUpper(symbol))
}

// --- TTL Helpers ------------------------------------------------------------

// FinancialReportTTL returns the TTL for statement documents, which change at
// most once per ingest run.
func FinancialReportTTL(ttl TTLSet) time.Duration {
	return ttl.Scaled(TTLLong, 2)
}

// DividendTTL returns the TTL for dividend event lists.
func DividendTTL(ttl TTLSet) time.Duration {
	return ttl.Duration(TTLMedium)
}

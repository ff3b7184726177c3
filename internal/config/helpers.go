package config

import (
	"stockpipe/pkg/source"
)

// MustLoadSource loads etc/source.yaml from the project root and panics on error.
// It lets the ingest CLI run provider jobs without a full service config.
func MustLoadSource() *source.Config {
	return source.MustLoad()
}

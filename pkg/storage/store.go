// Package storage caches computed analytics reports so repeated requests for
// the same region and skill skip the source fetch and the model run.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HatiCode/skillhalflife/pkg/analytics"
)

// Snapshot is one cached report. Key is the analytics key ID, for example
// "germany/berlin/python%20backend".
type Snapshot struct {
	Key         string           `json:"key"`
	GeneratedAt time.Time        `json:"generated_at"`
	Report      analytics.Report `json:"report"`
}

// Store is a report cache. A miss is reported as found=false with a nil
// error; errors are reserved for backend failures.
type Store interface {
	Put(ctx context.Context, snapshot Snapshot) error
	GetLatest(ctx context.Context, key string) (Snapshot, bool, error)

	// Invalidate drops the report for key. Dropping an unknown key is not an error.
	Invalidate(ctx context.Context, key string) error

	Ping(ctx context.Context) error
}

// NewSnapshot wraps report under its key ID.
func NewSnapshot(report analytics.Report, at time.Time) Snapshot {
	return Snapshot{Key: report.Key.ID(), GeneratedAt: at.UTC(), Report: report}
}

// checkKey accepts the alphabet produced by analytics.Key.ID: unreserved
// URL characters, percent escapes, the sub-delimiters PathEscape leaves
// alone, and "/" between components.
func checkKey(key string) error {
	if key == "" {
		return fmt.Errorf("snapshot key required")
	}
	if len(key) > maxKeyLen {
		return fmt.Errorf("snapshot key longer than %d bytes", maxKeyLen)
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("-._~%$&+:=@/", c) >= 0:
		default:
			return fmt.Errorf("invalid snapshot key %q", key)
		}
	}
	return nil
}

const maxKeyLen = 1024

package scanner

import (
	"context"
	"fmt"
	"time"

	"TrendRadar/internal/config"
)

// Request carries all parameters required to execute a scan.
type Request struct {
	Source  config.SourceConfig
	BaseURL string
}

// Entry is one ranked line a scanner extracted from a source. Rank starts at 1.
type Entry struct {
	Title       string
	URL         string
	Rank        int
	Score       float64
	PublishedAt time.Time
}

// Scanner captures a single strategy implementation (JSON API, RSS, HTML page).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]Entry, error)
}

// Registry keeps a mapping from source types to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds a registry holding the given scanners.
func NewRegistry(scanners ...Scanner) *Registry {
	r := &Registry{scanners: map[string]Scanner{}}
	for _, s := range scanners {
		r.Register(s)
	}
	return r
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}

package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eidoscope/internal/services"
	"eidoscope/internal/species"
)

// Target identifies the species a fetcher looks up.
type Target struct {
	ID   string
	Name string
}

// Fetcher retrieves one source's status for a resolved species.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, target Target) species.SourceRecord
}

// Fetch runs f and converts a panic into an error record. The returned record
// always carries f's name.
func Fetch(ctx context.Context, f Fetcher, target Target) (record species.SourceRecord) {
	name := f.Name()
	defer func() {
		if r := recover(); r != nil {
			record = species.Failed(name, fmt.Sprintf("panic: %v", r))
		}
	}()
	if err := ctx.Err(); err != nil {
		return FromError(name, err)
	}
	record = f.Fetch(ctx, target)
	record.Source = name
	return record
}

// FromError maps a lookup error onto a record. Definitive absence becomes
// not_found; deadline expiry is reported as "timeout".
func FromError(source string, err error) species.SourceRecord {
	switch {
	case err == nil:
		return species.NotFound(source)
	case errors.Is(err, services.ErrNotFound):
		return species.NotFound(source)
	case services.IsTimeout(err):
		return species.Failed(source, "timeout")
	case errors.Is(err, context.Canceled):
		return species.Failed(source, "cancelled")
	default:
		return species.Failed(source, strings.TrimSpace(err.Error()))
	}
}

// funcFetcher adapts a lookup function to Fetcher.
type funcFetcher struct {
	name string
	fn   func(ctx context.Context, target Target) (species.SourceRecord, error)
}

func (f funcFetcher) Name() string { return f.name }

func (f funcFetcher) Fetch(ctx context.Context, target Target) species.SourceRecord {
	if strings.TrimSpace(target.ID) == "" {
		return species.NotFound(f.name)
	}
	record, err := f.fn(ctx, target)
	if err != nil {
		return FromError(f.name, err)
	}
	record.Source = f.name
	return record
}

// NewFunc wraps fn as a named Fetcher. Targets without an ID are not_found;
// errors returned by fn are mapped with FromError.
func NewFunc(name string, fn func(ctx context.Context, target Target) (species.SourceRecord, error)) Fetcher {
	return funcFetcher{name: name, fn: fn}
}

// Package permission resolves which tools are permitted at a usage level.
package permission

import (
	"context"
	"time"

	"essayreview/internal/model"
)

// Resolver returns the set of tool names permitted at a level. A failed
// resolution must leave the caller's allowed set unchanged.
type Resolver interface {
	Resolve(ctx context.Context, level model.UsageLevel) ([]string, error)
}

// AllowedToolsFetcher is the subset of the backend client a RemoteResolver needs.
type AllowedToolsFetcher interface {
	GetAllowedTools(ctx context.Context, level model.UsageLevel) ([]string, error)
}

// RemoteResolver asks the backend, which owns the real policy.
type RemoteResolver struct {
	backend AllowedToolsFetcher
}

// NewRemoteResolver creates a resolver backed by the given client.
func NewRemoteResolver(backend AllowedToolsFetcher) *RemoteResolver {
	return &RemoteResolver{backend: backend}
}

func (r *RemoteResolver) Resolve(ctx context.Context, level model.UsageLevel) ([]string, error) {
	return r.backend.GetAllowedTools(ctx, level)
}

// Fixed tool subsets used by the offline policy.
var (
	FeedbackTools = []string{
		"Grammar Check",
		"Tone Analysis",
		"Citation Fixer",
		"Vocabulary Boost",
		"Logic Flow",
		"Argument Check",
	}
	BrainstormTools = []string{"Logic Flow", "Argument Check"}
)

// MockResolver applies the reference policy locally, for offline use:
// level 4 and above allows the full catalog, level 3 the feedback/editing
// subset, level 2 the brainstorming subset, and levels 0-1 nothing.
type MockResolver struct {
	catalog func() []string
	delay   time.Duration
}

// NewMockResolver creates an offline resolver. catalog supplies the full tool
// list for levels 4 and above; delay simulates backend latency.
func NewMockResolver(catalog func() []string, delay time.Duration) *MockResolver {
	return &MockResolver{catalog: catalog, delay: delay}
}

func (r *MockResolver) Resolve(ctx context.Context, level model.UsageLevel) ([]string, error) {
	if r.delay > 0 {
		timer := time.NewTimer(r.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return Policy(level, r.catalog()), nil
}

// Policy is the reference permission table.
func Policy(level model.UsageLevel, catalog []string) []string {
	var allowed []string
	switch {
	case level >= 4:
		allowed = catalog
	case level == 3:
		allowed = FeedbackTools
	case level == 2:
		allowed = BrainstormTools
	}
	return append([]string{}, allowed...)
}

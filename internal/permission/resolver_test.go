package permission

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"essayreview/internal/model"
)

var catalog = []string{"Grammar Check", "Tone Analysis", "Logic Flow", "Argument Check", "Site Fetcher"}

func catalogFn() []string { return catalog }

func TestPolicy_LowLevelsEmpty(t *testing.T) {
	for _, l := range []model.UsageLevel{0, 1} {
		assert.Empty(t, Policy(l, catalog), "level %d", l)
	}
}

func TestPolicy_HighLevelsFullCatalog(t *testing.T) {
	for l := model.UsageLevel(4); l <= model.MaxLevel; l++ {
		assert.Equal(t, catalog, Policy(l, catalog), "level %d", l)
	}
}

func TestPolicy_MiddleLevels(t *testing.T) {
	assert.Equal(t, BrainstormTools, Policy(2, catalog))
	assert.Equal(t, FeedbackTools, Policy(3, catalog))
}

func TestPolicy_ReturnsCopy(t *testing.T) {
	got := Policy(5, catalog)
	got[0] = "mutated"
	assert.Equal(t, "Grammar Check", catalog[0])
}

func TestMockResolver_Resolve(t *testing.T) {
	r := NewMockResolver(catalogFn, 0)

	allowed, err := r.Resolve(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, allowed)

	allowed, err = r.Resolve(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, catalog, allowed)
}

func TestMockResolver_CanceledDuringDelay(t *testing.T) {
	r := NewMockResolver(catalogFn, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, 4)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeFetcher struct {
	gotLevel model.UsageLevel
	allowed  []string
	err      error
}

func (f *fakeFetcher) GetAllowedTools(ctx context.Context, level model.UsageLevel) ([]string, error) {
	f.gotLevel = level
	return f.allowed, f.err
}

func TestRemoteResolver_Delegates(t *testing.T) {
	f := &fakeFetcher{allowed: []string{"MLA Citation"}}
	r := NewRemoteResolver(f)

	allowed, err := r.Resolve(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, model.UsageLevel(2), f.gotLevel)
	assert.Equal(t, []string{"MLA Citation"}, allowed)

	f.err = errors.New("offline")
	_, err = r.Resolve(context.Background(), 2)
	assert.Error(t, err)
}

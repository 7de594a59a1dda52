package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/yuxishi/aws-quota-compare/internal/model"
	"github.com/yuxishi/aws-quota-compare/internal/store"
)

// fakeFetcher serves canned catalogs per profile, with optional delays and
// failures. Delays deliberately ignore ctx so the orchestrator's own
// cancellation checks are what get exercised.
type fakeFetcher struct {
	mu       sync.Mutex
	accounts map[string]string
	catalogs map[string]*model.Catalog
	delays   map[string]time.Duration
	errs     map[string]error
	fetches  map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		accounts: map[string]string{},
		catalogs: map[string]*model.Catalog{},
		delays:   map[string]time.Duration{},
		errs:     map[string]error{},
		fetches:  map[string]int{},
	}
}

func (f *fakeFetcher) add(profile, account, region string, delay time.Duration) {
	f.accounts[profile] = account
	f.catalogs[profile] = &model.Catalog{
		AccountID:    account,
		AccountLabel: profile,
		Region:       region,
		Records: []model.QuotaRecord{
			{ServiceCode: "ec2", QuotaCode: "A", Value: 10, Adjustable: true},
		},
	}
	f.delays[profile] = delay
}

func (f *fakeFetcher) ResolveAccount(ctx context.Context, profile, region string) (string, error) {
	account, ok := f.accounts[profile]
	if !ok {
		return "", errors.New("unknown profile " + profile)
	}
	return account, nil
}

func (f *fakeFetcher) FetchCatalog(ctx context.Context, profile, region string) (*model.Catalog, error) {
	f.mu.Lock()
	f.fetches[profile]++
	f.mu.Unlock()

	time.Sleep(f.delays[profile])
	if err := f.errs[profile]; err != nil {
		return nil, err
	}
	return f.catalogs[profile], nil
}

func (f *fakeFetcher) fetchCount(profile string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches[profile]
}

func newOrchestrator(f *fakeFetcher, st store.Store) *Orchestrator {
	return New(f, st, zerolog.Nop())
}

func TestGetCatalogsJoinsBothSides(t *testing.T) {
	require := require.New(t)
	f := newFakeFetcher()
	f.add("src", "111111111111", "us-east-1", 80*time.Millisecond)
	f.add("dst", "222222222222", "us-east-1", 5*time.Millisecond)
	o := newOrchestrator(f, store.NewMemory())

	start := time.Now()
	src, dst, err := o.GetCatalogs(context.Background(),
		Side{Profile: "src", Region: "us-east-1"},
		Side{Profile: "dst", Region: "us-east-1"}, false)
	elapsed := time.Since(start)

	require.NoError(err)
	require.NotNil(src.Catalog)
	require.NotNil(dst.Catalog)
	require.Equal("111111111111", src.Catalog.AccountID)
	require.Equal("222222222222", dst.Catalog.AccountID)
	// join semantics: the call cannot return before the slow side
	require.GreaterOrEqual(elapsed, 75*time.Millisecond)
}

func TestGetCatalogsReadsThroughCache(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFakeFetcher()
	f.add("src", "111111111111", "us-east-1", 0)
	f.add("dst", "222222222222", "us-east-1", 0)
	st := store.NewMemory()
	o := newOrchestrator(f, st)

	// first call populates the store
	src, dst, err := o.GetCatalogs(ctx,
		Side{Profile: "src", Region: "us-east-1"},
		Side{Profile: "dst", Region: "us-east-1"}, false)
	require.NoError(err)
	require.False(src.FromCache)
	require.False(dst.FromCache)

	keys, err := st.Keys(ctx)
	require.NoError(err)
	require.Len(keys, 2)

	// second call is served entirely from the store
	src, dst, err = o.GetCatalogs(ctx,
		Side{Profile: "src", Region: "us-east-1"},
		Side{Profile: "dst", Region: "us-east-1"}, false)
	require.NoError(err)
	require.True(src.FromCache)
	require.True(dst.FromCache)
	require.Equal(1, f.fetchCount("src"))
	require.Equal(1, f.fetchCount("dst"))
}

func TestGetCatalogsBypassesCache(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFakeFetcher()
	f.add("src", "111111111111", "us-east-1", 0)
	f.add("dst", "222222222222", "us-east-1", 0)
	o := newOrchestrator(f, store.NewMemory())

	_, _, err := o.GetCatalogs(ctx,
		Side{Profile: "src", Region: "us-east-1"},
		Side{Profile: "dst", Region: "us-east-1"}, false)
	require.NoError(err)

	src, _, err := o.GetCatalogs(ctx,
		Side{Profile: "src", Region: "us-east-1"},
		Side{Profile: "dst", Region: "us-east-1"}, true)
	require.NoError(err)
	require.False(src.FromCache)
	require.Equal(2, f.fetchCount("src"))
	require.Equal(2, f.fetchCount("dst"))
}

func TestGetCatalogsFailsWithSideError(t *testing.T) {
	require := require.New(t)
	f := newFakeFetcher()
	f.add("src", "111111111111", "us-east-1", 0)
	f.add("dst", "222222222222", "us-east-1", 0)
	f.errs["dst"] = errors.New("boom")
	o := newOrchestrator(f, store.NewMemory())

	_, _, err := o.GetCatalogs(context.Background(),
		Side{Profile: "src", Region: "us-east-1"},
		Side{Profile: "dst", Region: "us-east-1"}, false)
	require.Error(err)

	var sideErr *SideError
	require.ErrorAs(err, &sideErr)
	require.Equal("destination", sideErr.Side)
	require.Equal("dst", sideErr.Profile)
	require.Equal("us-east-1", sideErr.Region)
}

func TestGetCatalogsNoPartialWriteOnCancel(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFakeFetcher()
	f.add("src", "111111111111", "us-east-1", 0)
	f.add("dst", "222222222222", "us-east-1", 60*time.Millisecond)
	f.errs["src"] = errors.New("boom")
	st := store.NewMemory()
	o := newOrchestrator(f, st)

	_, _, err := o.GetCatalogs(ctx,
		Side{Profile: "src", Region: "us-east-1"},
		Side{Profile: "dst", Region: "us-east-1"}, false)
	require.Error(err)

	// the source failure cancels the group before the slow destination fetch
	// lands, so nothing may be written for either side
	keys, err := st.Keys(ctx)
	require.NoError(err)
	require.Empty(keys)
}

func TestGetCatalogsRefetchesOnCorruptEntry(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	f := newFakeFetcher()
	f.add("src", "111111111111", "us-east-1", 0)
	f.add("dst", "222222222222", "us-east-1", 0)
	st := &corruptOnceStore{Store: store.NewMemory(), corrupt: map[string]bool{"111111111111/us-east-1": true}}
	o := newOrchestrator(f, st)

	src, _, err := o.GetCatalogs(ctx,
		Side{Profile: "src", Region: "us-east-1"},
		Side{Profile: "dst", Region: "us-east-1"}, false)
	require.NoError(err)
	require.False(src.FromCache)
	require.Equal(1, f.fetchCount("src"))
}

// corruptOnceStore reports ErrCorrupt for marked keys until they are
// rewritten.
type corruptOnceStore struct {
	store.Store
	mu      sync.Mutex
	corrupt map[string]bool
}

func (s *corruptOnceStore) Get(ctx context.Context, key model.CacheKey) (*model.CacheEntry, error) {
	s.mu.Lock()
	bad := s.corrupt[key.String()]
	s.mu.Unlock()
	if bad {
		return nil, store.ErrCorrupt
	}
	return s.Store.Get(ctx, key)
}

func (s *corruptOnceStore) Put(ctx context.Context, key model.CacheKey, entry model.CacheEntry) error {
	s.mu.Lock()
	delete(s.corrupt, key.String())
	s.mu.Unlock()
	return s.Store.Put(ctx, key, entry)
}

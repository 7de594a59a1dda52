// Package orchestrator runs the source and destination catalog retrievals
// concurrently, with the snapshot store as a read-through/write-through
// layer. The fan-out is always exactly two; there is no worker pool.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yuxishi/aws-quota-compare/internal/model"
	"github.com/yuxishi/aws-quota-compare/internal/store"
)

// CatalogFetcher is the quota client the orchestrator drives, one call per
// side.
type CatalogFetcher interface {
	ResolveAccount(ctx context.Context, profile, region string) (string, error)
	FetchCatalog(ctx context.Context, profile, region string) (*model.Catalog, error)
}

// Side selects one account/region to fetch.
type Side struct {
	Profile string
	Region  string
}

// SideResult is one side's catalog plus cache provenance.
type SideResult struct {
	Catalog   *model.Catalog `json:"catalog"`
	FetchedAt time.Time      `json:"fetched_at"`
	FromCache bool           `json:"from_cache"`
}

// SideError reports which side of a comparison failed.
type SideError struct {
	Side    string
	Profile string
	Region  string
	Err     error
}

func (e *SideError) Error() string {
	return fmt.Sprintf("%s fetch failed (profile %q, region %s): %v", e.Side, e.Profile, e.Region, e.Err)
}

func (e *SideError) Unwrap() error { return e.Err }

type Orchestrator struct {
	fetcher CatalogFetcher
	store   store.Store
	log     zerolog.Logger
}

func New(fetcher CatalogFetcher, st store.Store, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{fetcher: fetcher, store: st, log: log}
}

// GetCatalogs retrieves both sides concurrently and returns only after both
// complete. If either side fails the whole call fails with a SideError; the
// other side's in-flight work is cancelled and nothing partial is stored for
// it. Callers always get a matched pair from the same invocation.
func (o *Orchestrator) GetCatalogs(ctx context.Context, source, dest Side, bypassCache bool) (SideResult, SideResult, error) {
	var srcRes, dstRes SideResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := o.fetchSide(gctx, "source", source, bypassCache)
		if err != nil {
			return err
		}
		srcRes = res
		return nil
	})
	g.Go(func() error {
		res, err := o.fetchSide(gctx, "destination", dest, bypassCache)
		if err != nil {
			return err
		}
		dstRes = res
		return nil
	})

	if err := g.Wait(); err != nil {
		return SideResult{}, SideResult{}, err
	}
	return srcRes, dstRes, nil
}

func (o *Orchestrator) fetchSide(ctx context.Context, name string, s Side, bypassCache bool) (SideResult, error) {
	accountID, err := o.fetcher.ResolveAccount(ctx, s.Profile, s.Region)
	if err != nil {
		return SideResult{}, &SideError{Side: name, Profile: s.Profile, Region: s.Region, Err: err}
	}
	key := model.CacheKey{AccountID: accountID, Region: s.Region}

	if !bypassCache {
		entry, err := o.store.Get(ctx, key)
		switch {
		case err == nil:
			o.log.Debug().Stringer("key", key).Str("side", name).Msg("cache hit")
			return SideResult{Catalog: &entry.Catalog, FetchedAt: entry.FetchedAt, FromCache: true}, nil
		case errors.Is(err, store.ErrNotFound):
		case errors.Is(err, store.ErrCorrupt):
			o.log.Warn().Stringer("key", key).Err(err).Msg("corrupt cache entry, refetching")
		default:
			o.log.Warn().Stringer("key", key).Err(err).Msg("cache read failed, refetching")
		}
	}

	catalog, err := o.fetcher.FetchCatalog(ctx, s.Profile, s.Region)
	if err != nil {
		return SideResult{}, &SideError{Side: name, Profile: s.Profile, Region: s.Region, Err: err}
	}
	// an abandoned side must not leave a partial snapshot behind
	if ctx.Err() != nil {
		return SideResult{}, &SideError{Side: name, Profile: s.Profile, Region: s.Region, Err: ctx.Err()}
	}

	fetchedAt := time.Now()
	entry := model.CacheEntry{Catalog: *catalog, FetchedAt: fetchedAt}
	if err := o.store.Put(ctx, key, entry); err != nil {
		// a failed cache write should not lose a successful fetch
		o.log.Warn().Stringer("key", key).Err(err).Msg("cache write failed")
	}
	return SideResult{Catalog: catalog, FetchedAt: fetchedAt, FromCache: false}, nil
}

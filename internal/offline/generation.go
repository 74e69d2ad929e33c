package offline

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"openbee/internal/cache"
	"openbee/internal/fetch"
	"openbee/internal/puzzle"
)

// manifestConcurrency bounds parallel manifest fetches during install.
const manifestConcurrency = 4

// Generation installs and activates one cache generation.
type Generation struct {
	cfg     Config
	storage cache.Storage
	fetcher fetch.Fetcher
	now     func() time.Time
	log     *zap.SugaredLogger
}

func NewGeneration(cfg Config, s cache.Storage, f fetch.Fetcher, now func() time.Time, log *zap.SugaredLogger) *Generation {
	if now == nil {
		now = time.Now
	}
	return &Generation{cfg: cfg, storage: s, fetcher: f, now: now, log: log}
}

// Install pre-caches every manifest asset into the static namespace. Assets
// already stored by an earlier install of the same generation are kept, so a
// restart does not need the network. It fails if any missing asset cannot be
// fetched or stored.
func (g *Generation) Install(ctx context.Context) error {
	static, err := g.storage.Open(ctx, g.cfg.StaticVersion)
	if err != nil {
		return fmt.Errorf("open static cache: %w", err)
	}

	var reused atomic.Int64
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(manifestConcurrency)
	for _, asset := range g.cfg.Manifest {
		eg.Go(func() error {
			if _, ok, err := static.Match(ctx, asset); err != nil {
				return fmt.Errorf("install %s: %w", asset, err)
			} else if ok {
				reused.Add(1)
				return nil
			}
			e, err := fetch.GetEntry(ctx, g.fetcher, asset)
			if err != nil {
				return fmt.Errorf("install %s: %w", asset, err)
			}
			if err := static.Put(ctx, asset, e); err != nil {
				return fmt.Errorf("install %s: %w", asset, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	g.log.Infof("Installed %s with %d manifest assets (%d already cached)", g.cfg.StaticVersion, len(g.cfg.Manifest), reused.Load())
	return nil
}

// GCReport counts what an activation removed.
type GCReport struct {
	Namespaces []string
	Pages      int
	Errors     int
}

// Activate drops every namespace outside the live generation and every
// composed page that is not for today or yesterday, or was composed from a
// different corpus. Failures are logged and counted, never returned.
func (g *Generation) Activate(ctx context.Context) GCReport {
	report := GCReport{Namespaces: []string{}}
	live := g.cfg.LiveNamespaces()

	names, err := g.storage.Names(ctx)
	if err != nil {
		g.log.Warnf("Listing cache namespaces failed: %v", err)
		report.Errors++
	}
	for _, name := range names {
		if slices.Contains(live, name) {
			continue
		}
		if _, err := g.storage.Delete(ctx, name); err != nil {
			g.log.Warnf("Deleting cache namespace %s failed: %v", name, err)
			report.Errors++
			continue
		}
		report.Namespaces = append(report.Namespaces, name)
	}

	pruned, failed := g.prunePages(ctx)
	report.Pages = pruned
	report.Errors += failed

	g.log.Infof("Activated %s: removed %d namespaces and %d pages", g.cfg.StaticVersion, len(report.Namespaces), report.Pages)
	return report
}

func (g *Generation) prunePages(ctx context.Context) (pruned, failed int) {
	pages, err := g.storage.Open(ctx, g.cfg.PagesNamespace())
	if err != nil {
		g.log.Warnf("Opening page cache failed: %v", err)
		return 0, 1
	}
	keys, err := pages.Keys(ctx)
	if err != nil {
		g.log.Warnf("Listing page cache failed: %v", err)
		return 0, 1
	}

	now := g.now()
	for _, key := range keys {
		day, version, ok := ParsePageKey(key)
		if ok && version == g.cfg.CorpusVersion && puzzle.Retained(day, now) {
			continue
		}
		if _, err := pages.Delete(ctx, key); err != nil {
			g.log.Warnf("Deleting page %s failed: %v", key, err)
			failed++
			continue
		}
		pruned++
	}
	return pruned, failed
}

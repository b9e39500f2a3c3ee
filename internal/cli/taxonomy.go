package cli

import (
	"bytes"
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/etftools/etf/pkg/cache"
	"github.com/etftools/etf/pkg/errors"
	"github.com/etftools/etf/pkg/observability"
	"github.com/etftools/etf/pkg/taxonomy"
)

// taxonomy returns the reference taxonomy, loading it on first use.
//
// Decoding the metadata is the slowest step of every command, so the
// decoded taxonomy is kept in the snapshot cache under the hash of the
// metadata bytes. Cache failures are logged and otherwise ignored.
func (c *CLI) taxonomy(ctx context.Context) (*taxonomy.Taxonomy, error) {
	if c.tax != nil {
		return c.tax, nil
	}
	logger := loggerFromContext(ctx)

	source, data, err := c.metadataSource()
	if err != nil {
		return nil, err
	}

	store, err := c.newCache()
	if err != nil {
		logger.Warn("snapshot cache unavailable", "err", err)
		store = cache.NewNullCache()
	}
	defer store.Close()
	key := keyer.SnapshotKey(cache.Hash(data), taxonomy.SnapshotSchema)

	start := time.Now()
	tax, cached := loadSnapshot(ctx, store, key, logger)
	if tax == nil {
		var spin *Spinner
		if c.Interactive {
			spin = newSpinnerWithContext(ctx, c.Err, "Decoding "+source)
			spin.Start()
		}
		tax, err = taxonomy.Load(bytes.NewReader(data))
		if spin != nil {
			spin.Stop()
		}
		if err != nil {
			observability.Pipeline().OnTaxonomyLoad(ctx, source, 0, false, time.Since(start), err)
			return nil, err
		}
		storeSnapshot(ctx, store, key, tax, c.cfg.Cache.TTL.Duration, logger)
	}

	observability.Pipeline().OnTaxonomyLoad(ctx, source, tax.Len(), cached, time.Since(start), nil)

	v := tax.Version()
	logger.Debug("loaded metadata",
		"source", source,
		"version", v.Name,
		"release", v.ID,
		"published", v.Published,
		"nodes", tax.Len(),
		"cached", cached,
	)
	c.tax = tax
	return tax, nil
}

// metadataSource returns the metadata document selected by --metadata-file,
// the config file, or the bundled copy, in that order.
func (c *CLI) metadataSource() (string, []byte, error) {
	path := c.flags.metadata
	if path == "" {
		path = c.cfg.Metadata
	}
	if path == "" {
		return taxonomy.BundleName, taxonomy.Bundled(), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil, errors.TaxonomyLoad(err, "metadata file %s not found", path)
	}
	if err != nil {
		return "", nil, errors.TaxonomyLoad(err, "read metadata %s", path)
	}
	return path, data, nil
}

const snapshotKeyType = "snapshot"

func loadSnapshot(ctx context.Context, store cache.Cache, key string, logger *log.Logger) (*taxonomy.Taxonomy, bool) {
	data, hit, err := store.Get(ctx, key)
	if err != nil {
		logger.Warn("read snapshot cache", "err", err)
		return nil, false
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, snapshotKeyType)
		logger.Debug("snapshot cache miss", "key", key)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, snapshotKeyType)
	tax, err := taxonomy.FromSnapshot(data)
	if err != nil {
		logger.Warn("discarding unreadable snapshot", "err", err)
		_ = store.Delete(ctx, key)
		return nil, false
	}
	return tax, true
}

func storeSnapshot(ctx context.Context, store cache.Cache, key string, tax *taxonomy.Taxonomy, ttl time.Duration, logger *log.Logger) {
	data, err := tax.Snapshot()
	if err != nil {
		logger.Warn("encode snapshot", "err", err)
		return
	}
	if err := store.Set(ctx, key, data, ttl); err != nil {
		logger.Warn("write snapshot cache", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, snapshotKeyType, len(data))
	logger.Debug("stored snapshot", "key", key, "bytes", len(data))
}

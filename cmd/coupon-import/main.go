package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"math/bits"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/doce-emergencia/storefront/internal/domain/loyalty"
	"github.com/doce-emergencia/storefront/internal/storage/postgres"
)

const (
	bloomFPR      = 0.001
	progressEvery = 100_000
	maxBatches    = 64
)

type options struct {
	dir       string
	name      string
	points    int
	capacity  uint
	chunkSize int
}

// codeStore receives accepted codes in chunks.
type codeStore interface {
	UpsertCodes(ctx context.Context, codes []string, name string, points int) (int64, error)
}

// importStats summarizes one import run.
type importStats struct {
	Read       uint64
	Invalid    uint64
	Collisions int
	Created    int64
}

func main() {
	var (
		opts        options
		databaseURL string
	)

	flag.StringVar(&opts.dir, "data-dir", "data/coupons", "directory containing gzipped code batches (*.gz)")
	flag.StringVar(&opts.name, "name", "Cupom promocional", "coupon name shown to customers")
	flag.IntVar(&opts.points, "points", 10, "points credited by each coupon")
	flag.UintVar(&opts.capacity, "capacity", 1_000_000, "expected number of codes per batch")
	flag.IntVar(&opts.chunkSize, "chunk-size", 5_000, "codes written per database round trip")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}
	if opts.points <= 0 {
		lg.Fatal("points must be positive", zap.Int("points", opts.points))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts, databaseURL); err != nil {
		lg.Fatal("coupon import failed", zap.Error(err))
	}
	lg.Info("coupon import completed successfully")
}

func run(ctx context.Context, lg *zap.Logger, opts options, databaseURL string) error {
	files, err := batchFiles(opts.dir)
	if err != nil {
		return err
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	stats, err := importBatches(ctx, lg, postgres.NewCouponRepository(pool), files, opts)
	if err != nil {
		return err
	}
	lg.Info("import summary",
		zap.Uint64("read", stats.Read),
		zap.Uint64("invalid", stats.Invalid),
		zap.Int("collisions", stats.Collisions),
		zap.Int64("created", stats.Created),
	)
	return nil
}

// batchFiles lists the gzipped batches in dir in name order.
func batchFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.gz"))
	if err != nil {
		return nil, errors.Wrapf(err, "list batches in %s", dir)
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no *.gz batches in %s", dir)
	}
	if len(files) > maxBatches {
		return nil, errors.Errorf("%d batches in %s, at most %d supported", len(files), dir, maxBatches)
	}
	sort.Strings(files)
	return files, nil
}

// importBatches writes every valid code that appears in exactly one batch.
// A code printed in two campaigns cannot be attributed to either, so it is
// reported and skipped.
func importBatches(ctx context.Context, lg *zap.Logger, store codeStore, files []string, opts options) (importStats, error) {
	var stats importStats

	lg.Info("pass 1: building bloom filters", zap.Int("batches", len(files)))
	filters, err := buildBloomFilters(ctx, lg, files, opts.capacity)
	if err != nil {
		return stats, errors.Wrap(err, "build bloom filters")
	}

	lg.Info("pass 2: finding codes shared between batches")
	collisions, err := findCollisions(ctx, lg, files, filters)
	if err != nil {
		return stats, errors.Wrap(err, "find collisions")
	}
	stats.Collisions = len(collisions)
	if len(collisions) > 0 {
		lg.Warn("skipping codes found in more than one batch", zap.Int("count", len(collisions)))
	}

	lg.Info("pass 3: writing coupons")
	chunk := make([]string, 0, opts.chunkSize)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		n, err := store.UpsertCodes(ctx, chunk, opts.name, opts.points)
		if err != nil {
			return err
		}
		stats.Created += n
		chunk = chunk[:0]
		return nil
	}

	for _, path := range files {
		var werr error
		if err := streamGzFile(ctx, path, func(raw string) {
			if werr != nil {
				return
			}
			stats.Read++
			code, ok := loyalty.NormalizeCode(raw)
			if !ok {
				stats.Invalid++
				return
			}
			if _, dup := collisions[code]; dup {
				return
			}
			chunk = append(chunk, code)
			if len(chunk) == cap(chunk) {
				werr = flush()
			}
		}); err != nil {
			return stats, errors.Wrapf(err, "import %s", filepath.Base(path))
		}
		if werr != nil {
			return stats, errors.Wrapf(werr, "write codes from %s", filepath.Base(path))
		}
		lg.Info("batch imported", zap.String("file", filepath.Base(path)), zap.Int64("created", stats.Created))
	}
	if err := flush(); err != nil {
		return stats, errors.Wrap(err, "write codes")
	}
	return stats, nil
}

// buildBloomFilters creates one bloom filter per batch, concurrently.
func buildBloomFilters(ctx context.Context, lg *zap.Logger, files []string, capacity uint) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(capacity, bloomFPR)
			var count uint64
			if err := streamGzFile(ctx, path, func(raw string) {
				code, ok := loyalty.NormalizeCode(raw)
				if !ok {
					return
				}
				filter.AddString(code)
				count++
				if count%progressEvery == 0 {
					lg.Debug("pass 1 progress", zap.Int("batch", i+1), zap.Uint64("codes", count))
				}
			}); err != nil {
				return errors.Wrapf(err, "build filter for batch %d", i+1)
			}
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findCollisions returns the codes present in two or more batches. Each batch
// marks its own bit on codes another batch's filter may hold; only codes with
// two or more bits set are real collisions, so bloom false positives never
// reject a code.
func findCollisions(ctx context.Context, lg *zap.Logger, files []string, filters []*bloom.BloomFilter) (map[string]struct{}, error) {
	results := make([]map[string]uint64, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			candidates := make(map[string]uint64)
			bit := uint64(1) << uint(i)
			if err := streamGzFile(ctx, path, func(raw string) {
				code, ok := loyalty.NormalizeCode(raw)
				if !ok {
					return
				}
				for j, f := range filters {
					if j != i && f.TestString(code) {
						candidates[code] |= bit
						return
					}
				}
			}); err != nil {
				return errors.Wrapf(err, "scan batch %d", i+1)
			}
			lg.Debug("pass 2 complete", zap.Int("batch", i+1), zap.Int("candidates", len(candidates)))
			results[i] = candidates
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint64)
	for _, r := range results {
		for code, mask := range r {
			merged[code] |= mask
		}
	}
	collisions := make(map[string]struct{})
	for code, mask := range merged {
		if bits.OnesCount64(mask) >= 2 {
			collisions[code] = struct{}{}
		}
	}
	return collisions, nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

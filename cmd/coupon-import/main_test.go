package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeStore struct {
	calls []int
	codes map[string]string
	err   error
}

func (f *fakeStore) UpsertCodes(_ context.Context, codes []string, name string, points int) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.codes == nil {
		f.codes = map[string]string{}
	}
	f.calls = append(f.calls, len(codes))
	var created int64
	for _, c := range codes {
		if _, ok := f.codes[c]; ok {
			continue
		}
		f.codes[c] = name
		created++
	}
	return created, nil
}

func (f *fakeStore) sorted() []string {
	out := make([]string, 0, len(f.codes))
	for c := range f.codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func writeBatch(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func testOptions() options {
	return options{name: "Páscoa", points: 15, capacity: 1000, chunkSize: 2}
}

func TestImportBatches(t *testing.T) {
	dir := t.TempDir()
	writeBatch(t, dir, "01.gz", "DOCE0001", "doce0002", "SHARED01", "x", "DOCE0001")
	writeBatch(t, dir, "02.gz", "DOCE0003", "shared01", "DOCE0004")
	writeBatch(t, dir, "03.gz", "DOCE0005")

	files, err := batchFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)

	store := &fakeStore{}
	stats, err := importBatches(context.Background(), zaptest.NewLogger(t), store, files, testOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{"DOCE0001", "DOCE0002", "DOCE0003", "DOCE0004", "DOCE0005"}, store.sorted())
	assert.Equal(t, "Páscoa", store.codes["DOCE0001"])
	assert.Equal(t, uint64(9), stats.Read)
	assert.Equal(t, uint64(1), stats.Invalid)
	assert.Equal(t, 1, stats.Collisions)
	assert.Equal(t, int64(5), stats.Created)
	for _, n := range store.calls {
		assert.LessOrEqual(t, n, 2)
	}
}

func TestImportBatchesStoreError(t *testing.T) {
	dir := t.TempDir()
	path := writeBatch(t, dir, "01.gz", "DOCE0001", "DOCE0002")

	store := &fakeStore{err: errors.New("connection reset")}
	_, err := importBatches(context.Background(), zaptest.NewLogger(t), store, []string{path}, testOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "01.gz")
}

func TestImportBatchesCanceled(t *testing.T) {
	dir := t.TempDir()
	path := writeBatch(t, dir, "01.gz", "DOCE0001")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := importBatches(ctx, zaptest.NewLogger(t), &fakeStore{}, []string{path}, testOptions())
	require.ErrorIs(t, err, context.Canceled)
}

func TestBatchFiles(t *testing.T) {
	_, err := batchFiles(t.TempDir())
	require.Error(t, err)

	dir := t.TempDir()
	writeBatch(t, dir, "b.gz", "DOCE0001")
	writeBatch(t, dir, "a.gz", "DOCE0002")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	files, err := batchFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.gz"), filepath.Join(dir, "b.gz")}, files)
}

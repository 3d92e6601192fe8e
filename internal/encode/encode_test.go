package encode

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/skillmap/internal/repository"
	"github.com/spigell/skillmap/internal/store"
)

type countingEncoder struct {
	calls [][]string
	err   error
}

func (c *countingEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	c.calls = append(c.calls, texts)
	if c.err != nil {
		return nil, c.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

const model = "fake:test"

func testRepo(t *testing.T, pyText string) *repository.Repository {
	t.Helper()
	doc := `{
  "competencies": {"PY": "` + pyText + `", "SQL": "Relational databases"},
  "blocks": [{"id": "B", "name": "Basics", "competencies": ["PY", "SQL"]}],
  "jobs": {"DEV": {"title": "Developer", "requirements": ["PY"]}}
}`
	repo, err := repository.Parse([]byte(doc), "json")
	require.NoError(t, err)
	return repo
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open("", true, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunIsIncremental(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	enc := &countingEncoder{}

	stats, err := Run(ctx, testRepo(t, "Python"), s, enc, model, false, nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 2, Encoded: 2}, stats)

	stats, err = Run(ctx, testRepo(t, "Python"), s, enc, model, false, nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 2, Reused: 2}, stats)
	assert.Len(t, enc.calls, 1)

	stats, err = Run(ctx, testRepo(t, "Python scripting"), s, enc, model, false, nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 2, Reused: 1, Encoded: 1}, stats)
	assert.Equal(t, []string{"Python scripting"}, enc.calls[1])

	table, missing, err := s.LoadTable(model, []string{"PY", "SQL"})
	require.NoError(t, err)
	assert.Empty(t, missing)
	assert.Equal(t, []float32{16, 1}, table.Vectors[0])
}

func TestRunForce(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	enc := &countingEncoder{}

	_, err := Run(ctx, testRepo(t, "Python"), s, enc, model, false, nil)
	require.NoError(t, err)

	stats, err := Run(ctx, testRepo(t, "Python"), s, enc, model, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Encoded)
	assert.Len(t, enc.calls, 2)
}

func TestRunCountsStale(t *testing.T) {
	s := openStore(t)
	require.NoError(t, s.PutVectors(model, []store.Entry{{ID: "OLD", Hash: "x", Vector: []float32{1, 1}}}))

	stats, err := Run(context.Background(), testRepo(t, "Python"), s, &countingEncoder{}, model, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Stale)
}

func TestRunEncoderError(t *testing.T) {
	s := openStore(t)
	boom := errors.New("boom")

	_, err := Run(context.Background(), testRepo(t, "Python"), s, &countingEncoder{err: boom}, model, false, nil)
	require.ErrorIs(t, err, boom)

	entries, err := s.Entries(model)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunKeepsModelsApart(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	enc := &countingEncoder{}

	_, err := Run(ctx, testRepo(t, "Python"), s, enc, "a", false, nil)
	require.NoError(t, err)
	stats, err := Run(ctx, testRepo(t, "Python"), s, enc, "b", false, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Encoded)
}

package invoice

import (
	"context"
	"testing"
	"time"

	"github.com/billfold/billfold/internal/logger"
	"github.com/billfold/billfold/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNumberQuery struct {
	latest map[string]string
	err    error
}

func (q *stubNumberQuery) LatestInvoiceNumber(_ context.Context, prefix string) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	return q.latest[prefix], nil
}

func newGenerator(latest map[string]string, at time.Time) *NumberGenerator {
	return NewNumberGenerator(
		&stubNumberQuery{latest: latest},
		types.NewFixedClock(at),
		logger.NewNopLogger(),
	)
}

func TestNumberGenerator(t *testing.T) {
	january := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	february := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("first number of the month", func(t *testing.T) {
		gen := newGenerator(nil, january)
		number, err := gen.Generate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "INV-202601-0001", number)
	})

	t.Run("increments from latest", func(t *testing.T) {
		gen := newGenerator(map[string]string{"INV-202601-": "INV-202601-0007"}, january)
		number, err := gen.Generate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "INV-202601-0008", number)
	})

	t.Run("sequence restarts on month rollover", func(t *testing.T) {
		latest := map[string]string{"INV-202601-": "INV-202601-0042"}
		gen := newGenerator(latest, february)
		number, err := gen.Generate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "INV-202602-0001", number)
	})

	t.Run("unparseable suffix restarts the sequence", func(t *testing.T) {
		gen := newGenerator(map[string]string{"INV-202601-": "INV-202601-LEGACY"}, january)
		number, err := gen.Generate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "INV-202601-0001", number)
	})

	t.Run("sequence widens past four digits", func(t *testing.T) {
		gen := newGenerator(map[string]string{"INV-202601-": "INV-202601-9999"}, january)
		number, err := gen.Generate(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "INV-202601-10000", number)
	})

	t.Run("query error propagates", func(t *testing.T) {
		gen := NewNumberGenerator(
			&stubNumberQuery{err: assert.AnError},
			types.NewFixedClock(january),
			logger.NewNopLogger(),
		)
		_, err := gen.Generate(context.Background())
		assert.Error(t, err)
	})
}

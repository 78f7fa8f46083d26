package inspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvprobe/kvprobe/internal/compress"
	"github.com/kvprobe/kvprobe/internal/diag"
	"github.com/kvprobe/kvprobe/internal/tap"
)

func TestHistogramCounts(t *testing.T) {
	logger := diag.Discard()
	hist, err := NewHistogram(logger)
	require.NoError(t, err)
	defer hist.Close()

	tap.Dispatch(logger, 0)
	tap.Dispatch(logger, 3)
	tap.Dispatch(logger, 3)
	tap.Dispatch(logger, 250)

	got := hist.Drain()
	assert.Equal(t, map[compress.CompressorID]uint64{0: 1, 3: 2, 250: 1}, got)
}

func TestDrainResetsOnRead(t *testing.T) {
	logger := diag.Discard()
	hist, err := NewHistogram(logger)
	require.NoError(t, err)
	defer hist.Close()

	tap.Dispatch(logger, 7)
	require.NotEmpty(t, hist.Drain())
	assert.Empty(t, hist.Drain(), "second drain with no intervening dispatch must be empty")

	tap.Dispatch(logger, 7)
	assert.Equal(t, map[compress.CompressorID]uint64{7: 1}, hist.Drain(),
		"activity after a drain starts a fresh tally")
}

func TestHistogramNilLogger(t *testing.T) {
	_, err := NewHistogram(nil)
	assert.ErrorIs(t, err, ErrNilLogger)
}

func TestHistogramStopsCountingAfterClose(t *testing.T) {
	logger := diag.Discard()
	hist, err := NewHistogram(logger)
	require.NoError(t, err)

	tap.Dispatch(logger, 4)
	hist.Close()
	tap.Dispatch(logger, 4)

	assert.Equal(t, map[compress.CompressorID]uint64{4: 1}, hist.Drain())
}

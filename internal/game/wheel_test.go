package game

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWheelRejectsBadSectors(t *testing.T) {
	_, err := NewWheel(nil)
	assert.Error(t, err)
	_, err = NewWheel([]int64{5, -1})
	assert.Error(t, err)
}

func TestSpinStaysInSectors(t *testing.T) {
	sectors := []int64{5, 10, 15, 20, 5}
	w, err := NewWheel(sectors)
	require.NoError(t, err)

	seen := make(map[int]int)
	for i := 0; i < 2000; i++ {
		out, err := w.Spin()
		require.NoError(t, err)
		require.GreaterOrEqual(t, out.Index, 0)
		require.Less(t, out.Index, len(sectors))
		assert.Equal(t, sectors[out.Index], out.Prize)
		seen[out.Index]++
	}
	// 2000 uniform draws over 5 sectors hit every sector
	assert.Len(t, seen, len(sectors))
}

func TestSpinPropagatesRandError(t *testing.T) {
	w, err := NewWheel([]int64{1, 2})
	require.NoError(t, err)
	w.rand = bytes.NewReader(nil)
	_, err = w.Spin()
	assert.Error(t, err)
}

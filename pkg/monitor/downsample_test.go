package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTrace(n int) []Point {
	trace := make([]Point, n)
	for i := range trace {
		trace[i] = Point{Time: time.Duration(i) * time.Millisecond, Distance: uint16(i)}
	}
	return trace
}

func TestDownsampleTrace_NoDownsampling(t *testing.T) {
	trace := makeTrace(3)

	result := DownsampleTrace(nil, trace, 10)
	assert.Equal(t, trace, result)

	dst := make([]Point, 0, 10)
	result = DownsampleTrace(dst, trace, 10)
	assert.Equal(t, trace, result)
	assert.Equal(t, cap(dst), cap(result), "dst must be reused")
}

func TestDownsampleTrace_WithDownsampling(t *testing.T) {
	trace := makeTrace(100)

	dst := make([]Point, 0, 20)
	result := DownsampleTrace(dst, trace, 10)
	require.Len(t, result, 10)
	assert.Equal(t, cap(dst), cap(result))
	assert.Equal(t, trace[0], result[0])
	assert.Equal(t, trace[99], result[9])
	for i := 1; i < len(result); i++ {
		assert.Greater(t, result[i].Time, result[i-1].Time)
	}
}

func TestDownsampleTrace_Edges(t *testing.T) {
	assert.Empty(t, DownsampleTrace(nil, nil, 10))
	assert.Empty(t, DownsampleTrace(nil, makeTrace(5), 0))

	result := DownsampleTrace(nil, makeTrace(5), 1)
	require.Len(t, result, 1)
	assert.Equal(t, uint16(4), result[0].Distance)
}

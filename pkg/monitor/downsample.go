package monitor

// DownsampleTrace reduces a trace to at most maxPoints points by decimation for display.
// Destination-based: dst is reused when it has enough capacity.
// The last point is always kept so a trace ends at the latest frame.
func DownsampleTrace(dst []Point, trace []Point, maxPoints int) []Point {
	if len(trace) <= maxPoints {
		if cap(dst) < len(trace) {
			dst = make([]Point, len(trace))
		}
		dst = dst[:len(trace)]
		copy(dst, trace)
		return dst
	}
	if maxPoints <= 0 {
		return dst[:0]
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make([]Point, 0, maxPoints)
	}

	step := float64(len(trace)-1) / float64(max(maxPoints-1, 1))
	for i := range maxPoints - 1 {
		dst = append(dst, trace[int(float64(i)*step)])
	}
	return append(dst, trace[len(trace)-1])
}

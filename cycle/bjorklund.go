package cycle

// bjorklund distributes k onsets as evenly as possible over n slots using
// Björklund's pairing algorithm and returns the onset mask, rotated left by
// rot slots. The pattern is normalised to start on an onset.
func bjorklund(k, n, rot int) []bool {
	if n <= 0 {
		return nil
	}
	out := make([]bool, 0, n)
	switch {
	case k <= 0:
		return make([]bool, n)
	case k >= n:
		for i := 0; i < n; i++ {
			out = append(out, true)
		}
		return out
	}

	counts := []int{}
	remainders := []int{k}
	divisor := n - k
	level := 0
	for {
		counts = append(counts, divisor/remainders[level])
		remainders = append(remainders, divisor%remainders[level])
		divisor = remainders[level]
		level++
		if remainders[level] <= 1 {
			break
		}
	}
	counts = append(counts, divisor)

	var build func(lvl int)
	build = func(lvl int) {
		switch lvl {
		case -1:
			out = append(out, false)
		case -2:
			out = append(out, true)
		default:
			for i := 0; i < counts[lvl]; i++ {
				build(lvl - 1)
			}
			if remainders[lvl] != 0 {
				build(lvl - 2)
			}
		}
	}
	build(level)

	// Rotate so the pattern starts on its first onset, then apply rot.
	first := 0
	for i, v := range out {
		if v {
			first = i
			break
		}
	}
	shift := ((first+rot)%n + n) % n
	rotated := make([]bool, n)
	for i := 0; i < n; i++ {
		rotated[i] = out[(i+shift)%n]
	}
	return rotated
}

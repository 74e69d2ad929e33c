package puzzle

// Random maps an integer seed to a float in [0,1) using the mulberry32
// mixer. All arithmetic wraps at 32 bits, so the output is identical to the
// browser clients that picked puzzles before this service existed.
func Random(seed int) float64 {
	t := uint32(seed) + 0x6d2b79f5
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296
}

// Index picks a slot in [0,n) for the given seed.
func Index(seed, n int) int {
	if n <= 0 {
		return 0
	}
	return int(Random(seed) * float64(n))
}

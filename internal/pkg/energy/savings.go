package energy

//SimulateSavings projects the consumption curve that remains when all consumption flagged as
//daylight inefficiency is removed. Only buckets of total are reported, each clamped at zero.
func SimulateSavings(total, inefficient []Bucket) []Bucket {
	wasted := bucketMap(inefficient)
	projected := make(map[string]float64, len(total))

	for key, kwh := range bucketMap(total) {
		remaining := kwh - wasted[key]
		if remaining < 0 {
			remaining = 0
		}
		projected[key] = remaining
	}

	return bucketsFromMap(projected)
}

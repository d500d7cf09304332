package energy

import (
	"sort"
	"time"

	"github.com/iot-for-tillgenglighet/streetlight-energy/internal/pkg/infrastructure/repositories/models"
)

//Bucket is the summed consumption of all readings sharing a bucket key
type Bucket struct {
	Timestamp      string  `json:"timestamp"`
	ConsumptionKWh float64 `json:"consumption_kwh"`
}

//Aggregate groups readings by the period's bucket key and sums their consumption.
//The result is sparse and sorted ascending by key.
func Aggregate(readings []models.EnergyConsumption, period Period, loc *time.Location) []Bucket {
	sums := map[string]float64{}

	for _, r := range readings {
		sums[period.BucketKey(r.Timestamp, loc)] += r.ConsumptionKWh
	}

	return bucketsFromMap(sums)
}

//Total sums the consumption of all buckets, returning 0 for none
func Total(buckets []Bucket) float64 {
	total := 0.0
	for _, b := range buckets {
		total += b.ConsumptionKWh
	}
	return total
}

func bucketsFromMap(sums map[string]float64) []Bucket {
	buckets := make([]Bucket, 0, len(sums))
	for key, kwh := range sums {
		buckets = append(buckets, Bucket{Timestamp: key, ConsumptionKWh: kwh})
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Timestamp < buckets[j].Timestamp
	})

	return buckets
}

func bucketMap(buckets []Bucket) map[string]float64 {
	m := make(map[string]float64, len(buckets))
	for _, b := range buckets {
		m[b.Timestamp] += b.ConsumptionKWh
	}
	return m
}

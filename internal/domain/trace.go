package domain

import "math"

// YieldStatistics summarizes an order's dispatched quantities.
type YieldStatistics struct {
	TotalQty  int     `json:"totalQty"`
	GoodQty   int     `json:"goodQty"`
	YieldRate float64 `json:"yieldRate"`
}

// ComputeYield sums dispatched (OUT) quantities and the share carrying the
// conforming status. The rate is a percentage rounded to 2 decimals; an order
// with nothing dispatched has a rate of 0.
func ComputeYield(records []*ScanRecord, conformingStatus string) YieldStatistics {
	var stats YieldStatistics
	for _, r := range records {
		if r.Direction != DirectionOut {
			continue
		}
		stats.TotalQty += r.Quantity
		if r.IsConforming(conformingStatus) {
			stats.GoodQty += r.Quantity
		}
	}

	if stats.TotalQty > 0 {
		rate := float64(stats.GoodQty) / float64(stats.TotalQty) * 100
		stats.YieldRate = math.Round(rate*100) / 100
	}
	return stats
}

package domain

import "testing"

func TestComputeYield(t *testing.T) {
	out := func(status string, qty int) *ScanRecord {
		return &ScanRecord{Direction: DirectionOut, Status: status, Quantity: qty}
	}
	in := func(status string, qty int) *ScanRecord {
		return &ScanRecord{Direction: DirectionIn, Status: status, Quantity: qty}
	}

	tests := []struct {
		name    string
		records []*ScanRecord
		want    YieldStatistics
	}{
		{"no records", nil, YieldStatistics{}},
		{"all good", []*ScanRecord{out("G", 50), out("G", 50)}, YieldStatistics{TotalQty: 100, GoodQty: 100, YieldRate: 100}},
		{"mixed", []*ScanRecord{out("G", 60), out("N", 40)}, YieldStatistics{TotalQty: 100, GoodQty: 60, YieldRate: 60}},
		{"receipts ignored", []*ScanRecord{in("G", 100), out("G", 2), out("N", 1)}, YieldStatistics{TotalQty: 3, GoodQty: 2, YieldRate: 66.67}},
		{"status is case insensitive", []*ScanRecord{out("g", 1), out("S", 2)}, YieldStatistics{TotalQty: 3, GoodQty: 1, YieldRate: 33.33}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeYield(tt.records, "G"); got != tt.want {
				t.Errorf("ComputeYield() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

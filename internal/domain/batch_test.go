package domain

import (
	"strings"
	"testing"
)

func batchBox(seq string) Barcode {
	return Barcode{Order: "25111901", Process: "P1", SKU: "AC350", Container: "B1", BoxSeq: seq, Status: "G", Qty: "0100"}.WithChecksum()
}

func codes(bcs []Barcode) []string {
	out := make([]string, len(bcs))
	for i, bc := range bcs {
		out[i] = bc.Encode()
	}
	return out
}

func TestResolveBatch(t *testing.T) {
	b, c, d := batchBox("01"), batchBox("02"), batchBox("03")

	tests := []struct {
		name  string
		prior []Barcode
		want  []Barcode
	}{
		{"scanned already pending", []Barcode{b, c}, []Barcode{b, c}},
		{"scanned not pending is prepended", []Barcode{c}, []Barcode{b, c}},
		{"scanned later in list keeps position", []Barcode{c, b, d}, []Barcode{c, b, d}},
		{"duplicates removed", []Barcode{c, c, d, c}, []Barcode{b, c, d}},
		{"nothing pending", nil, []Barcode{b}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := codes(ResolveBatch(b, tt.prior))
			want := codes(tt.want)
			if len(got) != len(want) {
				t.Fatalf("ResolveBatch() = %v, want %v", got, want)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("ResolveBatch()[%d] = %s, want %s", i, got[i], want[i])
				}
			}
		})
	}
}

func TestResolveBatch_ComparesEncodedForm(t *testing.T) {
	scanned := Barcode{Order: "12345", Process: "p1", SKU: "AC350", Container: "B1", BoxSeq: "1", Status: "G", Qty: "100"}
	pending, err := DecodeBarcode(scanned.Encode())
	if err != nil {
		t.Fatal(err)
	}

	got := ResolveBatch(scanned, []Barcode{pending})
	if len(got) != 1 {
		t.Errorf("ResolveBatch() returned %d barcodes, want 1", len(got))
	}
}

func TestResolveBatch_NormalizesBeforeComparing(t *testing.T) {
	pending := batchBox("01")

	tests := []struct {
		name    string
		scanned Barcode
	}{
		{"lowercase checksum", func() Barcode { bc := pending; bc.Checksum = strings.ToLower(bc.Checksum); return bc }()},
		{"checksum missing", func() Barcode { bc := pending; bc.Checksum = ""; return bc }()},
		{"lowercase fields", func() Barcode { bc := pending; bc.Process = "p1"; bc.SKU = "ac350"; return bc }()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveBatch(tt.scanned, []Barcode{pending})
			if len(got) != 1 {
				t.Errorf("ResolveBatch() = %v, want the pending box only", codes(got))
			}
		})
	}
}

func TestNewBatchSelection(t *testing.T) {
	b, c := batchBox("01"), batchBox("02")

	candidates := NewBatchSelection(b, []Barcode{c})
	if len(candidates) != 2 {
		t.Fatalf("NewBatchSelection() returned %d candidates", len(candidates))
	}
	for i, cand := range candidates {
		if !cand.Selected {
			t.Errorf("candidate %d not selected", i)
		}
		if cand.Code != cand.Barcode.Encode() {
			t.Errorf("candidate %d code = %s", i, cand.Code)
		}
	}
	if candidates[0].Code != b.Encode() {
		t.Errorf("first candidate = %s, want scanned barcode", candidates[0].Code)
	}
}

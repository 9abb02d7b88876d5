package domain

import (
	"errors"
	"testing"
)

func canonicalBarcode() Barcode {
	return Barcode{
		Order:     "25111901",
		Process:   "P1",
		SKU:       "AC350",
		Container: "B1",
		BoxSeq:    "01",
		Status:    "G",
		Qty:       "0050",
		Checksum:  "ABC",
	}
}

// =============================================================================
// Decode
// =============================================================================

func TestDecodeBarcode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Barcode
	}{
		{"positional form", "25111901P1AC350B101G0050ABC", canonicalBarcode()},
		{"dashed positional form", "25111901-P1-AC350-B1-01-G-0050-ABC", canonicalBarcode()},
		{"label url prefix", "https://trace.example/b=25111901-P1-AC350-B1-01-G-0050-ABC", canonicalBarcode()},
		{"surrounding whitespace", "  25111901P1AC350B101G0050ABC\n", canonicalBarcode()},
		{"lowercase process is uppercased", "25111901p1AC350B101G0050ABC", canonicalBarcode()},
		{
			"delimited fallback keeps fields as typed",
			"12345-01-ABCDE",
			Barcode{Order: "12345", Process: "01", SKU: "ABCDE"},
		},
		{
			"new order with only order and process",
			"251119ab-zz",
			Barcode{Order: "251119AB", Process: "ZZ"},
		},
		{
			"b= parameter on fallback form",
			"b=12345-ZZ-AC350",
			Barcode{Order: "12345", Process: "ZZ", SKU: "AC350"},
		},
		{
			"partial code with container and box",
			"12345-P2-AC350-B1-03",
			Barcode{Order: "12345", Process: "P2", SKU: "AC350", Container: "B1", BoxSeq: "03"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBarcode(tt.raw)
			if err != nil {
				t.Fatalf("DecodeBarcode(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("DecodeBarcode(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDecodeBarcode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"single part", "12345"},
		{"short without delimiter", "25111901P1AC350"},
		{"missing order", "-01-ABCDE"},
		{"missing process", "12345-"},
		{"only whitespace", "   "},
		{"non-ascii positional", "25111901P1AC350B101G0050ABÉ"},
		{"non-ascii delimited", "12345-Ö01-ABCDE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBarcode(tt.raw)
			if !errors.Is(err, ErrMalformedBarcode) {
				t.Errorf("DecodeBarcode(%q) error = %v, want ErrMalformedBarcode", tt.raw, err)
			}
		})
	}
}

// =============================================================================
// Encode
// =============================================================================

func TestBarcode_EncodeRoundTrip(t *testing.T) {
	fieldSets := []Barcode{
		canonicalBarcode(),
		{Order: "00012345", Process: "ZZ", SKU: "ST001", Container: "C2", BoxSeq: "99", Status: "N", Qty: "9999", Checksum: "000"},
		{Order: "ABCDEFGH", Process: "P5", SKU: "MD120", Container: "00", BoxSeq: "10", Status: "S", Qty: "0001", Checksum: "F0F"},
	}

	for _, f := range fieldSets {
		t.Run(f.Order, func(t *testing.T) {
			encoded := f.Encode()
			if len(encoded) != BarcodeLength {
				t.Fatalf("Encode() length = %d, want %d", len(encoded), BarcodeLength)
			}

			decoded, err := DecodeBarcode(encoded)
			if err != nil {
				t.Fatalf("DecodeBarcode(Encode()) error = %v", err)
			}
			if decoded != f {
				t.Errorf("DecodeBarcode(Encode()) = %+v, want %+v", decoded, f)
			}
		})
	}
}

func TestBarcode_EncodeFixedWidth(t *testing.T) {
	tests := []struct {
		name     string
		fields   Barcode
		wantData string
	}{
		{
			"short fields are padded",
			Barcode{Order: "12345", Process: "p1", SKU: "AC350", Container: "B1", BoxSeq: "1", Status: "g", Qty: "50"},
			"00012345P1AC350B101G0050",
		},
		{
			"fallback decode output is padded",
			Barcode{Order: "12345", Process: "01", SKU: "ABCDE"},
			"0001234501ABCDE000000000",
		},
		{
			"long fields are truncated",
			Barcode{Order: "123456789", Process: "P12", SKU: "AC3501", Container: "B12", BoxSeq: "123", Status: "GX", Qty: "12345"},
			"12345678P1AC350B112G1234",
		},
		{"empty fields", Barcode{}, "000000000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fields.Encode()
			if len(got) != BarcodeLength {
				t.Fatalf("Encode() length = %d, want %d", len(got), BarcodeLength)
			}
			if got[:24] != tt.wantData {
				t.Errorf("Encode() data = %q, want %q", got[:24], tt.wantData)
			}
			if want := Checksum(tt.wantData); got[24:] != want {
				t.Errorf("Encode() checksum = %q, want %q", got[24:], want)
			}
		})
	}
}

func TestBarcode_EncodeKeepsSuppliedChecksum(t *testing.T) {
	bc := canonicalBarcode()
	if got := bc.Encode(); got[24:] != "ABC" {
		t.Errorf("Encode() checksum = %q, want ABC", got[24:])
	}
	if got := bc.WithChecksum().Checksum; got != Checksum("25111901P1AC350B101G0050") {
		t.Errorf("WithChecksum() = %q, want recomputed checksum", got)
	}
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		data string
		want string
	}{
		{"123456789", "9B1"},
		{"", "FFF"},
	}

	for _, tt := range tests {
		if got := Checksum(tt.data); got != tt.want {
			t.Errorf("Checksum(%q) = %q, want %q", tt.data, got, tt.want)
		}
	}
}

// =============================================================================
// Accessors
// =============================================================================

func TestBarcode_Accessors(t *testing.T) {
	bc := Barcode{Order: "00012345", Process: "P1", SKU: "AC035", Qty: "0050"}

	if got := bc.OrderNumber(); got != "12345" {
		t.Errorf("OrderNumber() = %q, want 12345", got)
	}
	if got := bc.OrderKey(); got != "12345" {
		t.Errorf("OrderKey() = %q, want 12345", got)
	}
	if got := bc.SeriesCode(); got != "AC" {
		t.Errorf("SeriesCode() = %q, want AC", got)
	}
	if got := bc.ModelCode(); got != "035" {
		t.Errorf("ModelCode() = %q, want 035", got)
	}
	if got := bc.ModelNumber(); got != "35" {
		t.Errorf("ModelNumber() = %q, want 35", got)
	}
	if qty, err := bc.Quantity(); err != nil || qty != 50 {
		t.Errorf("Quantity() = %d, %v, want 50, nil", qty, err)
	}
}

func TestBarcode_StrippedValueNeverEmpty(t *testing.T) {
	bc := Barcode{Order: "00000000", SKU: "AC000"}

	if got := bc.OrderNumber(); got != "00000000" {
		t.Errorf("OrderNumber() = %q, want original value", got)
	}
	if got := bc.ModelNumber(); got != "000" {
		t.Errorf("ModelNumber() = %q, want original value", got)
	}
}

func TestBarcode_QuantityInvalid(t *testing.T) {
	if _, err := (Barcode{Qty: "00x1"}).Quantity(); err == nil {
		t.Error("Quantity() expected error for non-numeric qty")
	}
	if qty, err := (Barcode{}).Quantity(); err != nil || qty != 0 {
		t.Errorf("Quantity() on empty qty = %d, %v, want 0, nil", qty, err)
	}
}

func TestBarcode_IsComplete(t *testing.T) {
	if !canonicalBarcode().IsComplete() {
		t.Error("canonical barcode should be complete")
	}
	if (Barcode{Order: "12345", Process: "01", SKU: "ABCDE"}).IsComplete() {
		t.Error("fallback barcode should not be complete")
	}
}

func TestBarcode_SameOrderKeyAcrossForms(t *testing.T) {
	positional, err := DecodeBarcode("00012345P1AC350B101G0050ABC")
	if err != nil {
		t.Fatal(err)
	}
	fallback, err := DecodeBarcode("12345-P1-AC350")
	if err != nil {
		t.Fatal(err)
	}
	if positional.OrderKey() != fallback.OrderKey() {
		t.Errorf("OrderKey mismatch: %q vs %q", positional.OrderKey(), fallback.OrderKey())
	}
}

func TestComposeSKU(t *testing.T) {
	tests := []struct {
		series, model, want string
	}{
		{"AC", "350", "AC350"},
		{"st", "1", "ST001"},
		{"MD", "35", "MD035"},
	}

	for _, tt := range tests {
		if got := ComposeSKU(tt.series, tt.model); got != tt.want {
			t.Errorf("ComposeSKU(%q, %q) = %q, want %q", tt.series, tt.model, got, tt.want)
		}
	}
}

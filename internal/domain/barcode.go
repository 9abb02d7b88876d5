package domain

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// BarcodeLength is the length of the canonical positional form.
	BarcodeLength = 27

	// NewOrderProcess marks a barcode whose order has not been assigned a station yet.
	NewOrderProcess = "ZZ"

	// MaxBoxQuantity is the largest quantity the 4-digit qty field can carry.
	MaxBoxQuantity = 9999

	// MaxBoxSequence is the largest sequence the 2-digit boxSeq field can carry.
	MaxBoxSequence = 99

	// Widths of the fields a minted barcode takes from its template.
	OrderWidth     = 8
	ProcessWidth   = 2
	SKUWidth       = 5
	ContainerWidth = 2
	StatusWidth    = 1

	barcodeDelimiter = "-"
)

// Field offsets of the positional form: order, process, sku, container, boxSeq, status, qty, checksum.
var barcodeOffsets = [...]int{0, 8, 10, 15, 17, 19, 20, 24, 27}

// Barcode is the decoded form of a box label. Values are immutable by convention.
type Barcode struct {
	Order     string `json:"order" bson:"order"`
	Process   string `json:"process" bson:"process"`
	SKU       string `json:"sku" bson:"sku"`
	Container string `json:"container" bson:"container"`
	BoxSeq    string `json:"boxSeq" bson:"boxSeq"`
	Status    string `json:"status" bson:"status"`
	Qty       string `json:"qty" bson:"qty"`
	Checksum  string `json:"checksum" bson:"checksum"`
}

// DecodeBarcode parses a scanned string.
//
// Dashes are stripped first; 27 or more remaining characters are sliced at the
// fixed offsets. Shorter input falls back to the dash-delimited form, which needs
// at least order and process. Missing trailing fields are left empty. Labels
// are ASCII; anything else is malformed.
func DecodeBarcode(raw string) (Barcode, error) {
	raw = normalizeScan(raw)
	if !isASCII(raw) {
		return Barcode{}, ErrMalformedBarcode
	}

	compact := strings.ReplaceAll(raw, barcodeDelimiter, "")
	if len(compact) >= BarcodeLength {
		f := func(i int) string { return compact[barcodeOffsets[i]:barcodeOffsets[i+1]] }
		return Barcode{
			Order:     f(0),
			Process:   strings.ToUpper(f(1)),
			SKU:       f(2),
			Container: f(3),
			BoxSeq:    f(4),
			Status:    f(5),
			Qty:       f(6),
			Checksum:  f(7),
		}, nil
	}

	parts := strings.Split(raw, barcodeDelimiter)
	if len(parts) < 2 {
		return Barcode{}, ErrMalformedBarcode
	}
	part := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}
		return ""
	}

	bc := Barcode{
		Order:     strings.ToUpper(part(0)),
		Process:   strings.ToUpper(part(1)),
		SKU:       part(2),
		Container: part(3),
		BoxSeq:    part(4),
		Status:    part(5),
		Qty:       part(6),
		Checksum:  part(7),
	}
	if bc.Order == "" || bc.Process == "" {
		return Barcode{}, ErrMalformedBarcode
	}
	return bc, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// normalizeScan removes whitespace and the b= parameter that label URLs wrap around the code.
func normalizeScan(raw string) string {
	raw = strings.TrimSpace(raw)
	if idx := strings.LastIndex(raw, "b="); idx == 0 || (idx > 0 && strings.ContainsRune("/?&", rune(raw[idx-1]))) {
		raw = strings.TrimSpace(raw[idx+2:])
	}
	return raw
}

// Encode renders the canonical 27-character positional form.
// An empty checksum is computed from the data fields; a present one is kept as is.
func (b Barcode) Encode() string {
	data := b.dataPart()
	checksum := b.Checksum
	if checksum == "" {
		checksum = Checksum(data)
	}
	return data + fitRight(strings.ToUpper(checksum), 3, '0')
}

// EncodeBarcode is the functional form of Barcode.Encode.
func EncodeBarcode(b Barcode) string {
	return b.Encode()
}

func (b Barcode) String() string {
	return b.Encode()
}

func (b Barcode) dataPart() string {
	var sb strings.Builder
	sb.Grow(BarcodeLength)
	sb.WriteString(fitLeft(strings.ToUpper(b.Order), 8, '0'))
	sb.WriteString(fitRight(strings.ToUpper(b.Process), 2, '0'))
	sb.WriteString(fitRight(strings.ToUpper(b.SKU), 5, '0'))
	sb.WriteString(fitRight(strings.ToUpper(b.Container), 2, '0'))
	sb.WriteString(fitLeft(b.BoxSeq, 2, '0'))
	sb.WriteString(fitRight(strings.ToUpper(b.Status), 1, '0'))
	sb.WriteString(fitLeft(b.Qty, 4, '0'))
	return sb.String()
}

// CheckWidths rejects template fields that do not fit their positional width.
// Encode would cut them off, leaving a label that no longer matches its ledger record.
func (b Barcode) CheckWidths() error {
	for _, f := range []struct {
		name  string
		value string
		width int
	}{
		{"order", b.Order, OrderWidth},
		{"process", b.Process, ProcessWidth},
		{"sku", b.SKU, SKUWidth},
		{"container", b.Container, ContainerWidth},
		{"status", b.Status, StatusWidth},
	} {
		if len(f.value) > f.width {
			return fmt.Errorf("%w: %s %q is longer than %d characters", ErrFieldTooWide, f.name, f.value, f.width)
		}
	}
	return nil
}

// WithChecksum returns a copy whose checksum is recomputed from the data fields.
func (b Barcode) WithChecksum() Barcode {
	b.Checksum = Checksum(b.dataPart())
	return b
}

// IsNewOrder reports whether the barcode still carries the unassigned process sentinel.
func (b Barcode) IsNewOrder() bool {
	return b.Process == NewOrderProcess
}

// IsComplete reports whether every field has its canonical width.
func (b Barcode) IsComplete() bool {
	fields := []string{b.Order, b.Process, b.SKU, b.Container, b.BoxSeq, b.Status, b.Qty, b.Checksum}
	for i, f := range fields {
		if len(f) != barcodeOffsets[i+1]-barcodeOffsets[i] {
			return false
		}
	}
	return true
}

// OrderNumber is the order without leading zeros, for display and matching.
func (b Barcode) OrderNumber() string {
	return stripZeros(b.Order)
}

// OrderKey is the value scan records are matched on.
func (b Barcode) OrderKey() string {
	return OrderKey(b.Order)
}

// SeriesCode is the product series carried in the first two SKU characters.
func (b Barcode) SeriesCode() string {
	if len(b.SKU) < 2 {
		return ""
	}
	return b.SKU[:2]
}

// ModelCode is the 3-character model part of the SKU.
func (b Barcode) ModelCode() string {
	if len(b.SKU) <= 2 {
		return ""
	}
	return b.SKU[2:min(len(b.SKU), 5)]
}

// ModelNumber is the model code without leading zeros.
func (b Barcode) ModelNumber() string {
	return stripZeros(b.ModelCode())
}

// Quantity parses the qty field.
func (b Barcode) Quantity() (int, error) {
	if b.Qty == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(b.Qty)
	if err != nil {
		return 0, fmt.Errorf("invalid barcode quantity %q: %w", b.Qty, err)
	}
	return n, nil
}

// OrderKey normalizes an order number for matching: uppercase without leading zeros.
func OrderKey(order string) string {
	return strings.ToUpper(stripZeros(strings.TrimSpace(order)))
}

// ComposeSKU joins a 2-character series code and a model code zero-filled to 3.
func ComposeSKU(seriesCode, modelCode string) string {
	return strings.ToUpper(fitRight(seriesCode, 2, '0') + fitLeft(modelCode, 3, '0'))
}

// FormatBoxSeq renders a 1-based box sequence as its 2-character code.
func FormatBoxSeq(seq int) string {
	return fmt.Sprintf("%02d", seq)
}

// Checksum is CRC16-CCITT (poly 0x1021, init 0xFFFF) of data as uppercase hex, last 3 digits.
func Checksum(data string) string {
	crc := uint16(0xFFFF)
	for i := 0; i < len(data); i++ {
		crc ^= uint16(data[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	hex := fmt.Sprintf("%03X", crc)
	return hex[len(hex)-3:]
}

// stripZeros removes leading zeros; a value that is all zeros is returned unchanged.
func stripZeros(s string) string {
	if stripped := strings.TrimLeft(s, "0"); stripped != "" {
		return stripped
	}
	return s
}

// fitLeft left-pads with pad to width, keeping the first width characters of longer input.
func fitLeft(s string, width int, pad byte) string {
	if len(s) >= width {
		return s[:width]
	}
	return strings.Repeat(string(pad), width-len(s)) + s
}

// fitRight right-pads with pad to width, keeping the first width characters of longer input.
func fitRight(s string, width int, pad byte) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(string(pad), width-len(s))
}

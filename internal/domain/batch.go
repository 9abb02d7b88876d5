package domain

// ResolveBatch merges a scanned barcode with the barcodes already reported for
// the same order and awaiting receipt here. The first occurrence of each code is
// kept in input order, and scanned is prepended when it is not among them.
//
// Barcodes are compared by their canonical encoded string, not the raw scan: a
// label read in delimited form matches its positional twin, letter case is
// ignored, and a missing checksum is computed before comparing.
func ResolveBatch(scanned Barcode, prior []Barcode) []Barcode {
	scannedCode := scanned.Encode()
	seen := make(map[string]bool, len(prior)+1)
	merged := make([]Barcode, 0, len(prior)+1)

	for _, bc := range prior {
		code := bc.Encode()
		if seen[code] {
			continue
		}
		seen[code] = true
		merged = append(merged, bc)
	}

	if !seen[scannedCode] {
		merged = append([]Barcode{scanned}, merged...)
	}
	return merged
}

// BatchCandidate is one entry an operator may confirm for receipt.
type BatchCandidate struct {
	Barcode  Barcode `json:"barcode"`
	Code     string  `json:"code"`
	Selected bool    `json:"selected"`
}

// NewBatchSelection resolves the batch and marks every candidate selected,
// which is the default presented to the operator.
func NewBatchSelection(scanned Barcode, prior []Barcode) []BatchCandidate {
	resolved := ResolveBatch(scanned, prior)
	candidates := make([]BatchCandidate, len(resolved))
	for i, bc := range resolved {
		candidates[i] = BatchCandidate{Barcode: bc, Code: bc.Encode(), Selected: true}
	}
	return candidates
}

package domain

import "fmt"

// Disposition classifies a quantity's conformance.
type Disposition string

const (
	DispositionGood Disposition = "good"
	DispositionBad  Disposition = "bad"
)

// IsValid checks if the disposition is a known value
func (d Disposition) IsValid() bool {
	return d == DispositionGood || d == DispositionBad
}

// Box is one container's worth of a split. Boxes are not modified after Split returns them.
type Box struct {
	Number      int         `json:"number"`
	SeqCode     string      `json:"seqCode"`
	Disposition Disposition `json:"disposition"`
	Quantity    int         `json:"quantity"`
	Barcode     Barcode     `json:"barcode"`
}

// Code is the encoded barcode printed on the box.
func (b Box) Code() string {
	return b.Barcode.Encode()
}

// SplitRequest describes one split. Template supplies order, process, sku,
// container and status; boxSeq, qty and checksum are set per box.
type SplitRequest struct {
	Template    Barcode
	Quantity    int
	Capacity    int
	Disposition Disposition
}

// Split partitions a quantity into boxes of at most Capacity units.
//
// Capacity zero means the container has no known capacity and yields a single
// box. Every box but the last is full. Box numbers and sequence codes run from 1
// without gaps. Nothing is returned on error.
//
// The label fields bound a split: at most MaxBoxSequence boxes of at most
// MaxBoxQuantity units each, and template fields must fit their widths.
func Split(req SplitRequest) ([]Box, error) {
	if err := req.Template.CheckWidths(); err != nil {
		return nil, err
	}
	if req.Capacity < 0 {
		return nil, ErrInvalidCapacity
	}
	if req.Quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if req.Quantity == 0 {
		return nil, ErrNoQuantity
	}

	capacity := req.Capacity
	if capacity == 0 {
		capacity = req.Quantity
	}

	count := (req.Quantity + capacity - 1) / capacity
	if count > MaxBoxSequence {
		return nil, ErrTooManyBoxes
	}
	if min(capacity, req.Quantity) > MaxBoxQuantity {
		return nil, ErrBoxOverflow
	}

	boxes := make([]Box, 0, count)
	for n := 1; n <= count; n++ {
		qty := capacity
		if n == count {
			qty = req.Quantity - capacity*(count-1)
		}

		bc := req.Template
		bc.BoxSeq = FormatBoxSeq(n)
		bc.Qty = formatQty(qty)
		bc = bc.WithChecksum()

		boxes = append(boxes, Box{
			Number:      n,
			SeqCode:     bc.BoxSeq,
			Disposition: req.Disposition,
			Quantity:    qty,
			Barcode:     bc,
		})
	}
	return boxes, nil
}

// DispositionSplit configures SplitDispositions.
type DispositionSplit struct {
	Template   Barcode
	Capacity   int
	Quantities DispositionQuantities

	// StatusFor picks the status code stamped on boxes of a disposition.
	StatusFor func(Disposition) string
}

// SplitDispositions splits good and bad quantities independently; each
// disposition gets its own sequence starting at 1. Good boxes come first.
func SplitDispositions(req DispositionSplit) ([]Box, error) {
	if err := req.Quantities.Validate(); err != nil {
		return nil, err
	}

	var boxes []Box
	for _, part := range []struct {
		disposition Disposition
		qty         *int
	}{
		{DispositionGood, req.Quantities.Good},
		{DispositionBad, req.Quantities.Bad},
	} {
		if valueOrZero(part.qty) == 0 {
			continue
		}

		template := req.Template
		if req.StatusFor != nil {
			template.Status = req.StatusFor(part.disposition)
		}

		split, err := Split(SplitRequest{
			Template:    template,
			Quantity:    *part.qty,
			Capacity:    req.Capacity,
			Disposition: part.disposition,
		})
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, split...)
	}
	return boxes, nil
}

func formatQty(qty int) string {
	return fmt.Sprintf("%04d", qty)
}

package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/wms-platform/box-tracking-service/internal/application"
	"github.com/wms-platform/box-tracking-service/internal/client"
)

var (
	actionColor = color.New(color.FgHiMagenta, color.Bold)
	errorColor  = color.New(color.FgHiRed, color.Bold)
)

// colorView renders terminal results. Debounced lookups render from a timer
// goroutine, so writes are serialized.
type colorView struct {
	mu  sync.Mutex
	out io.Writer
}

func newColorView(out io.Writer) *colorView {
	return &colorView{out: out}
}

func (v *colorView) Classified(c *application.ClassificationDTO) {
	v.mu.Lock()
	defer v.mu.Unlock()

	actionColor.Fprintf(v.out, "%s", strings.ToUpper(c.SuggestedAction))
	fmt.Fprintf(v.out, "  order %s  sku %s  at %s", c.Barcode.Order, c.Barcode.SKU, c.StationID)
	if c.NextStation != "" {
		fmt.Fprintf(v.out, "  next %s", c.NextStation)
	}
	fmt.Fprintln(v.out)

	if c.Fallback {
		warnColor.Fprintln(v.out, "  order context unknown, defaulted to inbound")
	}
	if c.ReceivedQuantity != nil {
		labelColor.Fprintf(v.out, "  received here: %d\n", *c.ReceivedQuantity)
	}
}

func (v *colorView) PendingBoxes(p *application.PendingBoxesDTO) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.batch(p.Candidates)
}

func (v *colorView) Batch(candidates []application.BatchCandidateDTO) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.batch(candidates)
}

func (v *colorView) batch(candidates []application.BatchCandidateDTO) {
	if len(candidates) == 0 {
		warnColor.Fprintln(v.out, "  no boxes awaiting receipt")
		return
	}
	labelColor.Fprintf(v.out, "  %d boxes awaiting receipt, :toggle N to change, :in to receive\n", len(candidates))
	for i, c := range candidates {
		mark := "[ ]"
		if c.Selected {
			mark = goodColor.Sprint("[x]")
		}
		fmt.Fprintf(v.out, "  %2d %s %s  %s box %s qty %s status %s\n", i+1, mark, c.Barcode, c.Process, c.BoxSeq, c.Qty, c.Status)
	}
}

func (v *colorView) Dispatched(d *application.DispatchDTO) {
	v.mu.Lock()
	defer v.mu.Unlock()

	goodColor.Fprintf(v.out, "%d boxes", len(d.Boxes))
	fmt.Fprintf(v.out, " for order %s at %s", d.Order, d.StationID)
	if d.NextStation != "" {
		fmt.Fprintf(v.out, ", next %s", d.NextStation)
	}
	fmt.Fprintln(v.out)

	for _, b := range d.Boxes {
		disposition := goodColor
		if b.Disposition == "bad" {
			disposition = badColor
		}
		fmt.Fprintf(v.out, "  %s ", b.BoxSeq)
		disposition.Fprintf(v.out, "%-4s", b.Disposition)
		fmt.Fprintf(v.out, " %5d  ", b.Quantity)
		codeColor.Fprintln(v.out, b.Barcode)
	}

	if r := d.Reconciliation; r != nil && r.Degraded {
		warnColor.Fprintln(v.out, "  received quantity unknown, not reconciled")
	}
}

func (v *colorView) Received(r *application.InboundResultDTO) {
	v.mu.Lock()
	defer v.mu.Unlock()

	goodColor.Fprintf(v.out, "received %d boxes", r.Received)
	fmt.Fprintf(v.out, " at %s\n", r.StationID)
	if len(r.AlreadyReceived) > 0 {
		warnColor.Fprintf(v.out, "  %d already received: %s\n", len(r.AlreadyReceived), strings.Join(r.AlreadyReceived, ", "))
	}
	if r.SwitchToOutbound {
		actionColor.Fprintln(v.out, "  nothing new, continue with outbound")
	}
}

func (v *colorView) Traced(t *application.TraceDTO) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fmt.Fprintf(v.out, "order %s  sku %s  %d records\n", t.Order, t.SKU, len(t.Records))
	for _, r := range t.Records {
		direction := goodColor
		if r.Direction == "OUT" {
			direction = actionColor
		}
		fmt.Fprintf(v.out, "  %s ", r.ScannedAt.Local().Format("2006-01-02 15:04:05"))
		direction.Fprintf(v.out, "%-3s", r.Direction)
		fmt.Fprintf(v.out, " %-4s %s box %s qty %d status %s by %s", r.StationID, r.Container, r.BoxSeq, r.Quantity, r.Status, r.OperatorID)
		if r.CycleTimeSeconds > 0 {
			fmt.Fprintf(v.out, " cycle %ds", r.CycleTimeSeconds)
		}
		fmt.Fprintln(v.out)
	}
	labelColor.Fprintf(v.out, "  dispatched %d, conforming %d, yield %.2f%%\n",
		t.Statistics.TotalQty, t.Statistics.GoodQty, t.Statistics.YieldRate)
}

func (v *colorView) Failed(scan string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if scan != "" {
		errorColor.Fprintf(v.out, "%s: ", scan)
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Code != "" {
		errorColor.Fprintf(v.out, "%s", apiErr.Code)
		fmt.Fprintf(v.out, " %s\n", apiErr.Message)
		keys := make([]string, 0, len(apiErr.Details))
		for k := range apiErr.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			labelColor.Fprintf(v.out, "  %s: %s\n", k, apiErr.Details[k])
		}
	} else {
		errorColor.Fprintln(v.out, err.Error())
	}

	if client.IsTransient(err) {
		warnColor.Fprintln(v.out, "  temporary failure, repeat the same input to retry")
	}
}

func (v *colorView) Println(a ...interface{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, a...)
}

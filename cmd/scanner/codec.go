package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wms-platform/box-tracking-service/internal/application"
	"github.com/wms-platform/box-tracking-service/internal/domain"
	"github.com/wms-platform/box-tracking-service/internal/infrastructure/catalog"
)

var (
	labelColor = color.New(color.FgHiBlack)
	codeColor  = color.New(color.FgHiCyan, color.Bold)
	goodColor  = color.New(color.FgHiGreen)
	badColor   = color.New(color.FgRed)
	warnColor  = color.New(color.FgYellow)
)

func decodeCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "decode <barcode>...",
		Short: "Decode box labels",
		Long: `Decode box labels into their fields.

Accepts the 27-character positional form, the dash-delimited form and
label URLs carrying a b= parameter.

Examples:
  scanner decode 25111901P1AC350B101G0050ABC
  scanner decode 12345-01-ABCDE --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for i, raw := range args {
				bc, err := domain.DecodeBarcode(raw)
				if err != nil {
					return fmt.Errorf("decode %q: %w", raw, err)
				}
				if asJSON {
					if err := json.NewEncoder(out).Encode(application.ToBarcodeDTO(bc)); err != nil {
						return err
					}
					continue
				}
				if i > 0 {
					fmt.Fprintln(out)
				}
				printBarcode(out, bc)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per barcode")
	return cmd
}

func printBarcode(out io.Writer, bc domain.Barcode) {
	codeColor.Fprintln(out, bc.Encode())
	field := func(name, value string) {
		labelColor.Fprintf(out, "  %-10s", name)
		fmt.Fprintln(out, value)
	}
	field("order", bc.Order)
	field("process", bc.Process)
	field("sku", bc.SKU)
	field("series", bc.SeriesCode())
	field("model", bc.ModelCode())
	field("container", bc.Container)
	field("box", bc.BoxSeq)
	field("status", bc.Status)
	field("qty", bc.Qty)
	field("checksum", bc.Checksum)
	if bc.IsNewOrder() {
		warnColor.Fprintln(out, "  new order, no station assigned yet")
	}
}

func encodeCmd() *cobra.Command {
	var bc domain.Barcode
	var seq, qty int

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a box label from its fields",
		Long: `Encode a box label in the canonical 27-character form.

The checksum is computed unless --checksum is given.

Example:
  scanner encode --order 25111901 --process P1 --sku AC350 --container B1 --seq 1 --status G --qty 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if seq < 0 || seq > domain.MaxBoxSequence {
				return fmt.Errorf("box sequence must be between 0 and %d", domain.MaxBoxSequence)
			}
			if qty < 0 || qty > domain.MaxBoxQuantity {
				return fmt.Errorf("quantity must be between 0 and %d", domain.MaxBoxQuantity)
			}
			if cmd.Flags().Changed("seq") {
				bc.BoxSeq = domain.FormatBoxSeq(seq)
			}
			if cmd.Flags().Changed("qty") {
				bc.Qty = strconv.Itoa(qty)
			}
			fmt.Fprintln(cmd.OutOrStdout(), domain.EncodeBarcode(bc))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&bc.Order, "order", "", "order number")
	flags.StringVar(&bc.Process, "process", "", "station code")
	flags.StringVar(&bc.SKU, "sku", "", "series and model code")
	flags.StringVar(&bc.Container, "container", "", "container code")
	flags.IntVar(&seq, "seq", 0, "box sequence")
	flags.StringVar(&bc.Status, "status", "", "status code")
	flags.IntVar(&qty, "qty", 0, "box quantity")
	flags.StringVar(&bc.Checksum, "checksum", "", "checksum to keep instead of computing one")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}

func splitCmd(opts *options) *cobra.Command {
	var template domain.Barcode
	var good, bad int
	var defectStatus string

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Preview the boxes a quantity splits into",
		Long: `Preview the boxes good and bad quantities split into for a container.

Each disposition is split on its own with sequences starting at 1. The
container capacity comes from the catalog; unknown containers hold
everything in one box.

Example:
  scanner split --order 25111901 --process P1 --sku AC350 --container B1 --good 120 --bad 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			floorCatalog, err := catalog.Load(opts.catalogPath)
			if err != nil {
				return err
			}

			var quantities domain.DispositionQuantities
			if cmd.Flags().Changed("good") {
				quantities.Good = &good
			}
			if cmd.Flags().Changed("bad") {
				quantities.Bad = &bad
			}

			capacity := floorCatalog.Capacity(template.Container)
			boxes, err := domain.SplitDispositions(domain.DispositionSplit{
				Template:   template,
				Capacity:   capacity,
				Quantities: quantities,
				StatusFor:  floorCatalog.StatusFor(defectStatus),
			})
			if err != nil {
				return err
			}

			printBoxes(cmd.OutOrStdout(), capacity, boxes)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&template.Order, "order", "", "order number")
	flags.StringVar(&template.Process, "process", "", "station code")
	flags.StringVar(&template.SKU, "sku", "", "series and model code")
	flags.StringVar(&template.Container, "container", "", "container code")
	flags.IntVar(&good, "good", 0, "conforming quantity")
	flags.IntVar(&bad, "bad", 0, "defect quantity")
	flags.StringVar(&defectStatus, "defect-status", "", "status code for defect boxes, catalog default when empty")
	_ = cmd.MarkFlagRequired("order")
	_ = cmd.MarkFlagRequired("container")
	return cmd
}

func printBoxes(out io.Writer, capacity int, boxes []domain.Box) {
	if capacity > 0 {
		labelColor.Fprintf(out, "container capacity %d, %d boxes\n", capacity, len(boxes))
	} else {
		labelColor.Fprintf(out, "container capacity unknown, %d boxes\n", len(boxes))
	}
	for _, b := range boxes {
		disposition := goodColor
		if b.Disposition == domain.DispositionBad {
			disposition = badColor
		}
		fmt.Fprintf(out, "  %s ", b.SeqCode)
		disposition.Fprintf(out, "%-4s", b.Disposition)
		fmt.Fprintf(out, " %5d  ", b.Quantity)
		codeColor.Fprintln(out, b.Code())
	}
}

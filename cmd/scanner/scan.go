package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wms-platform/box-tracking-service/internal/api/dto"
	"github.com/wms-platform/box-tracking-service/internal/client"
	"github.com/wms-platform/box-tracking-service/internal/scanner"
)

const scanHelp = `Scan a label to look it up. Commands:
  :in                               receive the selected boxes
  :toggle N                         select or deselect box N of the batch
  :batch                            show the batch again
  :out GOOD [BAD] [CONTAINER]       dispatch the scanned box
  :first SERIES MODEL CONTAINER GOOD [BAD]
                                    create the first boxes of a new order
  :trace BARCODE                    show an order's history
  :help                             show this help
  :quit                             leave`

var errUsage = errors.New("usage")

func scanCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run the interactive station terminal",
		Long: `Run the interactive station terminal against the box tracking API.

Scanner input is read line by line. Bursts of input are coalesced with the
--debounce window and only the last scan is looked up; a lookup overtaken by
a newer scan is discarded.

` + scanHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.stationID == "" {
				return fmt.Errorf("--station or SCANNER_STATION is required")
			}
			if opts.operatorID == "" {
				return fmt.Errorf("--operator or SCANNER_OPERATOR is required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := newLogger(opts)

			clientConfig := client.DefaultConfig(opts.apiURL)
			clientConfig.OperatorID = opts.operatorID
			clientConfig.Timeout = opts.timeout
			api := client.New(clientConfig, logger.Logger)

			view := newColorView(cmd.OutOrStdout())
			terminal := scanner.NewTerminal(ctx, api, view, scanner.Config{
				StationID: opts.stationID,
				Debounce:  opts.debounce,
			}, logger.Logger)
			defer terminal.Close()

			labelColor.Fprintf(cmd.OutOrStdout(), "station %s, operator %s, api %s\n", terminal.StationID(), opts.operatorID, opts.apiURL)
			return runLoop(ctx, cmd.InOrStdin(), &session{terminal: terminal, view: view})
		},
	}
}

type session struct {
	terminal *scanner.Terminal
	view     *colorView
}

func runLoop(ctx context.Context, in io.Reader, s *session) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		reader := bufio.NewScanner(in)
		for reader.Scan() {
			select {
			case lines <- reader.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				s.terminal.Settle()
				return nil
			}
			quit, err := s.handle(ctx, line)
			if err != nil {
				s.view.Failed("", err)
			}
			if quit {
				return nil
			}
		}
	}
}

// handle runs one input line. Anything not starting with ':' is scanner input.
func (s *session) handle(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ":") {
		s.terminal.Input(line)
		return false, nil
	}

	// Commands act on the settled scan.
	s.terminal.Settle()

	fields := strings.Fields(strings.TrimPrefix(line, ":"))
	if len(fields) == 0 {
		return false, nil
	}
	args := fields[1:]

	switch strings.ToLower(fields[0]) {
	case "quit", "q", "exit":
		return true, nil
	case "help", "h", "?":
		s.view.Println(scanHelp)
	case "batch":
		s.view.Batch(s.terminal.Batch())
	case "toggle", "t":
		if len(args) != 1 {
			return false, fmt.Errorf("%w: :toggle N", errUsage)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return false, fmt.Errorf("%w: :toggle N", errUsage)
		}
		if err := s.terminal.Toggle(n); err != nil {
			return false, err
		}
		s.view.Batch(s.terminal.Batch())
	case "in":
		_, err := s.terminal.ReceiveSelected(ctx)
		return false, err
	case "out":
		input, err := parseOutbound(args)
		if err != nil {
			return false, err
		}
		_, err = s.terminal.Dispatch(ctx, input)
		return false, err
	case "first":
		input, err := parseFirstStation(args)
		if err != nil {
			return false, err
		}
		_, err = s.terminal.CreateFirst(ctx, input)
		return false, err
	case "trace":
		if len(args) != 1 {
			return false, fmt.Errorf("%w: :trace BARCODE", errUsage)
		}
		return false, s.terminal.Lookup(ctx, args[0], true)
	default:
		return false, fmt.Errorf("unknown command %q, :help lists commands", fields[0])
	}
	return false, nil
}

func parseOutbound(args []string) (scanner.OutboundInput, error) {
	if len(args) < 1 || len(args) > 3 {
		return scanner.OutboundInput{}, fmt.Errorf("%w: :out GOOD [BAD] [CONTAINER]", errUsage)
	}
	quantities, err := parseQuantities(args[:min(len(args), 2)])
	if err != nil {
		return scanner.OutboundInput{}, err
	}
	input := scanner.OutboundInput{Quantities: quantities}
	if len(args) == 3 {
		input.Container = args[2]
	}
	return input, nil
}

func parseFirstStation(args []string) (scanner.FirstStationInput, error) {
	if len(args) < 4 || len(args) > 5 {
		return scanner.FirstStationInput{}, fmt.Errorf("%w: :first SERIES MODEL CONTAINER GOOD [BAD]", errUsage)
	}
	quantities, err := parseQuantities(args[3:])
	if err != nil {
		return scanner.FirstStationInput{}, err
	}
	return scanner.FirstStationInput{
		SeriesCode: args[0],
		ModelCode:  args[1],
		Container:  args[2],
		Quantities: quantities,
	}, nil
}

// parseQuantities reads GOOD and an optional BAD
func parseQuantities(args []string) (dto.Quantities, error) {
	var q dto.Quantities
	values := make([]*int, len(args))
	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			return q, fmt.Errorf("invalid quantity %q", arg)
		}
		values[i] = &n
	}
	if len(values) > 0 {
		q.GoodQty = values[0]
	}
	if len(values) > 1 {
		q.BadQty = values[1]
	}
	return q, nil
}

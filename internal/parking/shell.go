package parking

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Shell reads one command per line and prints results for a lot operator.
type Shell struct {
	lot       *Service
	telemetry *TelemetryProvider
	scanner   *bufio.Scanner
	out       io.Writer
}

func NewShell(lot *Service, telemetry *TelemetryProvider, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		lot:       lot,
		telemetry: telemetry,
		scanner:   bufio.NewScanner(in),
		out:       out,
	}
}

// Run returns when the input ends, "exit" is read, or ctx is done.
func (s *Shell) Run(ctx context.Context) {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")

	for ctx.Err() == nil {
		if !s.scanner.Scan() {
			break
		}

		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		cmdCtx, cmdSpan := tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))

		s.processCommand(cmdCtx, input)
		cmdSpan.End()
	}

	span.AddEvent("shell_ended")
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) processCommand(ctx context.Context, input string) {
	span := trace.SpanFromContext(ctx)

	parts := strings.Fields(input)
	command := parts[0]
	span.SetAttributes(attribute.String("command.name", command))

	var err error
	switch command {
	case "park":
		err = s.handlePark(ctx, parts)
	case "leave":
		err = s.handleLeave(ctx, parts)
	case "reserve":
		err = s.handleReserve(ctx, parts)
	case "cancel_reservation":
		err = s.handleCancelReservation(ctx, parts)
	case "status":
		err = s.handleStatus(ctx)
	case "stats":
		err = s.handleStats(ctx)
	case "quote":
		err = s.handleQuote(ctx, parts)
	case "find":
		err = s.handleFind(ctx, parts)
	case "holidays":
		s.handleHolidays()
	case "bills":
		err = s.handleBills(ctx)
	case "help":
		s.printf("%s", shellHelp)
	default:
		span.AddEvent("unknown_command", trace.WithAttributes(
			attribute.String("unknown_command", command),
		))
		s.printf("Unknown command: %s\n", command)
		return
	}

	if err != nil {
		span.AddEvent("command_failed")
		s.printf("%s\n", shellMessage(err))
	}
}

const shellHelp = `Commands:
  park <Bike|Car|Truck> <vehicle_number> <hours>
  leave <slot_number>
  reserve <Bike|Car|Truck> <vehicle_number> <hours> <dd-mm-yy> <HH:MM> <customer name>
  cancel_reservation <slot_number>
  status | stats | bills | holidays
  quote <Bike|Car|Truck> <hours>
  find <vehicle_number>
  exit
`

type usageError string

func (u usageError) Error() string { return "Usage: " + string(u) }

func shellMessage(err error) string {
	var usage usageError
	switch {
	case errors.As(err, &usage):
		return usage.Error()
	case errors.Is(err, ErrNoAvailableSlot):
		return "Sorry, parking lot is full"
	case errors.Is(err, ErrSlotNotFound):
		return "No such slot"
	default:
		return "Error: " + err.Error()
	}
}

func atoi(field, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", field, s)
	}
	return n, nil
}

func (s *Shell) handlePark(ctx context.Context, parts []string) error {
	if len(parts) != 4 {
		return usageError("park <vehicle_type> <vehicle_number> <hours>")
	}
	hours, err := atoi("hours", parts[3])
	if err != nil {
		return err
	}

	res, err := s.lot.Park(ctx, ParseVehicleType(parts[1]), parts[2], hours)
	if err != nil {
		return err
	}
	s.printf("Allocated slot number: %d\n", res.SlotID)
	s.printf("Charge: %.2f (%s)\n", res.Charge.Total, chargeNote(res.Charge))
	return nil
}

func chargeNote(c ChargeBreakdown) string {
	switch {
	case c.NightRate:
		return fmt.Sprintf("night rate %.2f/h", c.RatePerHour)
	case c.Holiday != "":
		return fmt.Sprintf("%s rush %.2f/h", c.Holiday, c.RatePerHour)
	case c.RushHour:
		return fmt.Sprintf("rush hour %.2f/h", c.RatePerHour)
	default:
		return fmt.Sprintf("%.2f/h", c.RatePerHour)
	}
}

func (s *Shell) handleLeave(ctx context.Context, parts []string) error {
	if len(parts) != 2 {
		return usageError("leave <slot_number>")
	}
	slotID, err := atoi("slot number", parts[1])
	if err != nil {
		return err
	}

	bill, err := s.lot.Release(ctx, slotID)
	if err != nil {
		return err
	}
	s.printf("Slot number %d is free\n", slotID)
	s.printf("Bill %s: %s %s, %d h, total %.2f\n",
		bill.ID, bill.Vehicle.Type, bill.Vehicle.Number, bill.DurationHours, bill.Total)
	return nil
}

func (s *Shell) handleReserve(ctx context.Context, parts []string) error {
	if len(parts) < 7 {
		return usageError("reserve <vehicle_type> <vehicle_number> <hours> <date> <time> <customer name>")
	}
	hours, err := atoi("hours", parts[3])
	if err != nil {
		return err
	}

	slotID, err := s.lot.Reserve(ctx, ReservationRequest{
		CustomerName:  strings.Join(parts[6:], " "),
		VehicleType:   ParseVehicleType(parts[1]),
		VehicleNumber: parts[2],
		Date:          parts[4],
		Time:          parts[5],
		DurationHours: hours,
	})
	if err != nil {
		return err
	}
	s.printf("Reserved slot number: %d\n", slotID)
	return nil
}

func (s *Shell) handleCancelReservation(ctx context.Context, parts []string) error {
	if len(parts) != 2 {
		return usageError("cancel_reservation <slot_number>")
	}
	slotID, err := atoi("slot number", parts[1])
	if err != nil {
		return err
	}

	r, err := s.lot.CancelReservation(ctx, slotID)
	if err != nil {
		return err
	}
	s.printf("Reservation for %s on slot %d cancelled\n", r.CustomerName, slotID)
	return nil
}

func (s *Shell) handleStatus(ctx context.Context) error {
	slots, err := s.lot.Slots(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(s.out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "Slot No.\tState\tVehicle\tType\tCharge")
	for _, slot := range slots {
		switch slot.State {
		case SlotOccupied:
			occ := slot.Occupant
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f\n", slot.ID, slot.State, occ.Vehicle.Number, occ.Vehicle.Type, occ.Charge)
		case SlotReserved:
			r := slot.Reservation
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t-\n", slot.ID, slot.State, r.Vehicle.Number, r.Vehicle.Type)
		default:
			fmt.Fprintf(tw, "%d\t%s\t-\t-\t-\n", slot.ID, slot.State)
		}
	}
	return tw.Flush()
}

func (s *Shell) handleStats(ctx context.Context) error {
	st, err := s.lot.Stats(ctx)
	if err != nil {
		return err
	}
	s.printf("Total: %d  Available: %d  Occupied: %d  Reserved: %d\n", st.Total, st.Available, st.Occupied, st.Reserved)
	s.printf("Occupancy: %.1f%%  Revenue: %.2f\n", st.OccupancyRate, st.Revenue)
	return nil
}

func (s *Shell) handleQuote(ctx context.Context, parts []string) error {
	if len(parts) != 3 {
		return usageError("quote <vehicle_type> <hours>")
	}
	hours, err := atoi("hours", parts[2])
	if err != nil {
		return err
	}

	b, err := s.lot.Quote(ctx, ParseVehicleType(parts[1]), hours)
	if err != nil {
		return err
	}
	s.printf("%s for %d h: %.2f (%s)\n", b.VehicleType, b.DurationHours, b.Total, chargeNote(b))
	return nil
}

func (s *Shell) handleFind(ctx context.Context, parts []string) error {
	if len(parts) != 2 {
		return usageError("find <vehicle_number>")
	}

	found, err := s.lot.Find(ctx, parts[1])
	if err != nil {
		return err
	}
	if len(found) == 0 {
		s.printf("Not found\n")
		return nil
	}
	for _, slot := range found {
		s.printf("%d\t%s\n", slot.ID, slot.Occupant.Vehicle.Number)
	}
	return nil
}

func (s *Shell) handleHolidays() {
	holidays := s.lot.Holidays()
	if len(holidays) == 0 {
		s.printf("No holidays scheduled\n")
		return
	}
	for _, h := range holidays {
		s.printf("%s  %s-%s  %s\n", h.Date.Format("02-01-2006"), h.RushFrom, h.RushTo, h.Name)
	}
}

func (s *Shell) handleBills(ctx context.Context) error {
	bills, err := s.lot.Bills(ctx)
	if err != nil {
		return err
	}
	var total float64
	for _, b := range bills {
		total += b.Total
		s.printf("%s  slot %d  %s  %.2f\n", b.Departure.Format("02-01-06 15:04"), b.SlotID, b.Vehicle.Number, b.Total)
	}
	s.printf("%d bill(s), revenue %.2f\n", len(bills), total)
	return nil
}

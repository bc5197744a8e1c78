package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"vacancy-vault/internal/detection"
	"vacancy-vault/internal/parking"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print lot occupancy and revenue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			st, err := a.lot.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total: %d  Available: %d  Occupied: %d  Reserved: %d\n", st.Total, st.Available, st.Occupied, st.Reserved)
			fmt.Fprintf(out, "Occupancy: %.1f%%  Revenue: %.2f\n", st.OccupancyRate, st.Revenue)
			return nil
		})
	},
}

var quoteCmd = &cobra.Command{
	Use:   "quote <vehicle_type> <hours>",
	Short: "Price a stay starting now",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		hours, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid hours %q", args[1])
		}
		return withApp(cmd.Context(), func(a *app) error {
			b, err := a.lot.Quote(cmd.Context(), parking.ParseVehicleType(args[0]), hours)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s for %d h: %.2f at %.2f/h (rush %t, night %t)\n",
				b.VehicleType, b.DurationHours, b.Total, b.RatePerHour, b.RushHour, b.NightRate)
			return nil
		})
	},
}

var holidaysCmd = &cobra.Command{
	Use:   "holidays",
	Short: "List the holiday schedule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			for _, h := range a.lot.Holidays() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s-%s  %s\n", h.Date.Format("02-01-2006"), h.RushFrom, h.RushTo, h.Name)
			}
			return nil
		})
	},
}

// detectCmd starts the oracle, waits for a complete reading and parks it.
var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run the detection oracle and park the detected vehicle",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			out := cmd.OutOrStdout()
			if st := a.oracle.Start(ctx); st.Status == detection.StatusError {
				return errors.New(st.Message)
			}
			fmt.Fprintf(out, "Detection started on %s, waiting for results...\n", a.oracle.BaseURL())

			st := a.oracle.WaitForResult(ctx)
			if st.Status == detection.StatusError {
				return errors.New(st.Message)
			}
			if st.Results == nil || !st.Results.Complete() {
				return fmt.Errorf("detection finished without a complete reading")
			}

			r := st.Results
			res, err := a.lot.Park(ctx, parking.ParseVehicleType(r.VehicleType), r.LicensePlate, r.Hours())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Detected %s %s for %d h\n", r.VehicleType, r.LicensePlate, r.Hours())
			fmt.Fprintf(out, "Allocated slot number: %d, charge %.2f\n", res.SlotID, res.Charge.Total)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd, quoteCmd, holidaysCmd, detectCmd)
}

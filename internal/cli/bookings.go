package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"pcbooking/internal/domain"
	"pcbooking/internal/modules/booking"
	"pcbooking/internal/repository"

	"github.com/spf13/cobra"
)

func newBookingsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "Inspect and manage bookings",
	}
	cmd.AddCommand(newBookingsListCmd(opts))
	cmd.AddCommand(newBookingsCancelCmd(opts))
	cmd.AddCommand(newBookingsDeleteCmd(opts))
	return cmd
}

func (o *rootOptions) bookingService() (*booking.Service, error) {
	_, db, err := o.open()
	if err != nil {
		return nil, err
	}
	return booking.NewService(repository.NewBookingRepository(db), nil, time.Now), nil
}

func newBookingsListCmd(opts *rootOptions) *cobra.Command {
	var date string

	c := &cobra.Command{
		Use:   "list",
		Short: "List bookings, optionally for one date (YYYY-MM-DD)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.bookingService()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context()
			defer cancel()

			list, err := svc.ListAll(ctx, date)
			if err != nil {
				var verr *booking.ValidationError
				if errors.As(err, &verr) {
					return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", date)
				}
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tTIME\tSERVICE\tRUSH\tTOTAL\tSTATUS\tCONTACT")
			for _, b := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\t%s\t%s <%s>\n",
					b.ID, b.Date, b.Time, b.ServiceType, b.IsRush, domain.FormatCents(b.TotalCents), b.Status, b.Contact.Handle, b.Contact.Email)
			}
			return tw.Flush()
		},
	}
	c.Flags().StringVar(&date, "date", "", "only bookings on this date")
	return c
}

func newBookingsCancelCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a booking and free its slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.bookingService()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context()
			defer cancel()

			b, err := svc.Cancel(ctx, args[0])
			if err != nil {
				if errors.Is(err, booking.ErrNotFound) {
					return fmt.Errorf("booking %s not found", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled %s\n", b.ID)
			return nil
		},
	}
}

func newBookingsDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a booking record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := opts.bookingService()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context()
			defer cancel()

			if err := svc.Delete(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/teemow/focusbot/internal/config"
	"github.com/teemow/focusbot/internal/slots"
	"github.com/teemow/focusbot/internal/timeutil"
)

func newSlotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots [YYYY-MM-DD]",
		Short: "Print the free focus-session slots of a day",
		Long: `Print the free slots of the work window on the given day (today when
omitted), read directly from the configured calendar.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys := afero.NewOsFs()
			cfg, err := loadConfig(cmd, fsys, osLookup)
			if err != nil {
				return err
			}
			date := ""
			if len(args) == 1 {
				date = args[0]
			}
			return runSlots(cmd.Context(), cmd.OutOrStdout(), cfg, fsys, date)
		},
	}
	addCalendarFlags(cmd.Flags())
	return cmd
}

func runSlots(ctx context.Context, out io.Writer, cfg *config.Config, fsys afero.Fs, date string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	hours, err := cfg.Hours()
	if err != nil {
		return err
	}
	cal, err := buildCalendar(ctx, cfg, loc, fsys, nil)
	if err != nil {
		return err
	}

	finder, err := slots.NewFinder(cal, hours, timeutil.SystemClock{})
	if err != nil {
		return err
	}
	res, err := finder.Find(ctx, date)
	if err != nil {
		return err
	}
	printSlots(out, res, loc)
	return nil
}

func printSlots(out io.Writer, res slots.Result, loc *time.Location) {
	if res.Count == 0 {
		fmt.Fprintf(out, "No free slots on %s\n", res.Date)
		return
	}
	fmt.Fprintf(out, "Free slots on %s:\n", res.Date)
	for _, s := range res.Slots {
		fmt.Fprintf(out, "  %s - %s\n", timeutil.FormatTime(s.Start, loc), timeutil.FormatTime(s.End, loc))
	}
}

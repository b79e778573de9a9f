package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/teemow/focusbot/internal/config"
	"github.com/teemow/focusbot/internal/logging"
	"github.com/teemow/focusbot/internal/ticker"
	"github.com/teemow/focusbot/internal/timeutil"
)

// progressScale maps the remaining-time fraction onto bar units. The bar
// total is one above so a full bar never completes.
const progressScale = 1000

func newClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Run the terminal focus timer against a focusbot server",
		Long: `Show today's active task with its countup and remaining-time bar.

Tasks auto-start at their scheduled time. Commands (type and press enter):
  p            start/pause the active task (also: empty line)
  s <task-id>  switch to another task
  l            list today's tasks
  c            complete the active task and report it to the chat
  r [minutes]  renew the active task from now (default 30 minutes)
  q            quit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, afero.NewOsFs(), osLookup)
			if err != nil {
				return err
			}
			return runClient(cmd.Context(), cfg, cmd.InOrStdin(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().String("server-url", "", "focusbot server URL (default http://localhost:8080)")
	cmd.Flags().String("timezone", "", "fixed UTC offset of the deployment, e.g. +08:00")
	return cmd
}

type clientCommand struct {
	name    string
	arg     string
	minutes int
}

func parseClientCommand(line string) (clientCommand, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return clientCommand{name: "p"}, nil
	}
	cmd := clientCommand{name: strings.ToLower(fields[0])}
	switch cmd.name {
	case "p", "l", "c", "q":
		if len(fields) > 1 {
			return cmd, fmt.Errorf("%s takes no arguments", cmd.name)
		}
	case "s":
		if len(fields) != 2 {
			return cmd, fmt.Errorf("usage: s <task-id>")
		}
		cmd.arg = fields[1]
	case "r":
		if len(fields) > 2 {
			return cmd, fmt.Errorf("usage: r [minutes]")
		}
		if len(fields) == 2 {
			m, err := strconv.Atoi(fields[1])
			if err != nil || m <= 0 {
				return cmd, fmt.Errorf("minutes must be a positive number, got %q", fields[1])
			}
			cmd.minutes = m
		}
	default:
		return cmd, fmt.Errorf("unknown command %q", fields[0])
	}
	return cmd, nil
}

type clientSession struct {
	remote *ticker.RemoteClient
	ticker *ticker.Ticker
	out    io.Writer
	quit   context.CancelFunc

	mu   sync.Mutex
	view ticker.View
}

func (s *clientSession) setView(v ticker.View) {
	s.mu.Lock()
	s.view = v
	s.mu.Unlock()
}

func (s *clientSession) currentView() ticker.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *clientSession) handle(ctx context.Context, cmd clientCommand) error {
	switch cmd.name {
	case "p":
		return s.ticker.Toggle(ctx)
	case "s":
		return s.ticker.Switch(ctx, cmd.arg)
	case "l":
		for _, task := range s.ticker.Tasks() {
			fmt.Fprintf(s.out, "  %s  %s - %s  %s\n", task.ID,
				timeutil.FormatTime(task.Start, task.Start.Location()),
				timeutil.FormatTime(task.End, task.End.Location()),
				task.Title)
		}
		return nil
	case "c":
		v := s.currentView()
		if v.TaskID == "" {
			return fmt.Errorf("no active task")
		}
		if _, err := s.ticker.Complete(ctx, v.TaskID); err != nil {
			return err
		}
		// Push the final seconds before the server reports them.
		if err := s.remote.Save(ctx, s.ticker.Snapshot()); err != nil {
			return err
		}
		res, err := s.remote.Complete(ctx, v.TaskID, v.Title)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, res.Message)
		return s.ticker.Init(ctx)
	case "r":
		v := s.currentView()
		if v.TaskID == "" {
			return fmt.Errorf("no active task")
		}
		ev, err := s.remote.Renew(ctx, v.Title, cmd.minutes)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Renewed %q until %s\n", ev.Title, timeutil.FormatTime(ev.End, ev.End.Location()))
		return s.ticker.Init(ctx)
	case "q":
		s.quit()
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd.name)
}

func (s *clientSession) readCommands(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd, err := parseClientCommand(scanner.Text())
		if err == nil {
			err = s.handle(ctx, cmd)
		}
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
	s.quit()
}

func runClient(parent context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	remote, err := ticker.NewRemoteClient(cfg.ServerURL, nil)
	if err != nil {
		return err
	}

	p := mpb.NewWithContext(ctx, mpb.WithOutput(out), mpb.WithWidth(40))
	// Log lines are printed above the bar.
	logger, err := logging.New(logging.Options{Level: logLevel(), Format: rootFlags.logFormat, Writer: p})
	if err != nil {
		return err
	}

	s := &clientSession{remote: remote, out: p, quit: cancel}
	bar := p.New(progressScale+1, mpb.BarStyle(),
		mpb.PrependDecorators(
			decor.Any(func(decor.Statistics) string {
				v := s.currentView()
				if v.Schedule == "" {
					return v.Title
				}
				return v.Title + "  " + v.Schedule
			}, decor.WC{C: decor.DindentRight}),
		),
		mpb.AppendDecorators(
			decor.Any(func(decor.Statistics) string { return statusLine(s.currentView()) }),
		),
	)

	s.ticker = ticker.New(remote, remote, ticker.Options{
		Location: loc,
		Logger:   logger,
		OnRender: func(v ticker.View) {
			s.setView(v)
			bar.SetCurrent(int64(v.Progress * progressScale))
		},
	})
	if err := s.ticker.Init(ctx); err != nil {
		bar.Abort(true)
		p.Wait()
		return err
	}

	go s.readCommands(ctx, in)
	err = s.ticker.Run(ctx)

	bar.Abort(false)
	p.Wait()
	return err
}

func statusLine(v ticker.View) string {
	state := "paused"
	switch {
	case v.TaskID == "":
		state = "idle"
	case v.Running:
		state = "running"
	}
	if v.Expired {
		state += ", overtime"
	}
	return fmt.Sprintf("%s (%s)", v.Countup, state)
}

func logLevel() string {
	if rootFlags.debug {
		return "debug"
	}
	return "info"
}

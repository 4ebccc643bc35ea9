package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/open-gsa/gsa/internal/config"
	"github.com/open-gsa/gsa/internal/gmp"
	"github.com/open-gsa/gsa/internal/logging"
	"github.com/open-gsa/gsa/internal/refresh"
	"github.com/open-gsa/gsa/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const defaultTerminalWidth = 80

var watchCmd = &cobra.Command{
	Use:   "watch <type> <id>",
	Short: "Follow one entity in the terminal as it refreshes",
	Long: `Follow one entity in the terminal as it refreshes.

Type another id and press enter to switch to it, "r" to reload right away,
or "q" to quit.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return withExitCode(exitCodeUsage, err)
		}
		interval, _ := cmd.Flags().GetDuration("interval")
		if !cmd.Flags().Changed("interval") {
			interval = cfg.AutoRefreshInterval
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger := logging.Component(logging.Terminal(cmd.ErrOrStderr(), cmd.CommandPath()), "watch")
		pool, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		client := gmp.NewClient(store.New(pool, logger), gmp.ClientOptions{
			CacheTTL:    cfg.CacheTTL,
			DefaultRows: cfg.PageRows,
			Logger:      logger,
		})
		return runWatch(ctx, watchOptions{
			Client:     client,
			EntityType: args[0],
			ID:         args[1],
			Interval:   interval,
			In:         cmd.InOrStdin(),
			Out:        cmd.OutOrStdout(),
			Width:      terminalWidth(),
			Logger:     logger,
		})
	},
}

func init() {
	watchCmd.Flags().Duration("interval", 0, "auto-refresh interval (default AUTO_REFRESH_INTERVAL, 0 disables)")
}

type watchOptions struct {
	Client     *gmp.Client
	EntityType string
	ID         string
	Interval   time.Duration
	In         io.Reader
	Out        io.Writer
	Width      int
	Logger     *slog.Logger
}

// runWatch drives a refresh controller for one entity and prints every
// settled snapshot until ctx is done or the user quits.
func runWatch(ctx context.Context, opts watchOptions) error {
	cmd, err := opts.Client.Command(opts.EntityType)
	if err != nil {
		return withExitCode(exitCodeUsage, err)
	}
	id := strings.TrimSpace(opts.ID)
	if id == "" {
		return withExitCode(exitCodeUsage, errors.New("id must not be empty"))
	}

	var loaders []refresh.Loader
	if cmd.EntityType() != gmp.TypePermission {
		loaders = append(loaders, refresh.PermissionsResourceLoader(opts.Client.Permissions()))
	}

	snapshots := make(chan refresh.Snapshot, 1)
	ctrl, err := refresh.New(refresh.Options{
		Name:     cmd.EntityType(),
		Entity:   refresh.EntityLoader(cmd),
		Loaders:  loaders,
		Interval: opts.Interval,
		OnChange: func(s refresh.Snapshot) {
			if s.State == refresh.Ready || s.State == refresh.Failed {
				latest(snapshots, s)
			}
		},
		Logger: opts.Logger,
	})
	if err != nil {
		return err
	}
	defer ctrl.Unmount()

	lines := make(chan string)
	go readLines(ctx, opts.In, lines)

	if err := ctrl.Mount(id); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-snapshots:
			writeSnapshot(opts.Out, cmd.EntityType(), s, opts.Width)
		case line, ok := <-lines:
			if !ok {
				// Input is gone; keep following until interrupted.
				lines = nil
				continue
			}
			switch line = strings.TrimSpace(line); line {
			case "":
			case "q", "quit":
				return nil
			case "r", "reload":
				opts.Client.Invalidate(cmd.EntityType())
				if err := ctrl.Reload(); err != nil {
					return err
				}
			default:
				if err := ctrl.SetID(line); err != nil {
					return err
				}
			}
		}
	}
}

// latest replaces any unread snapshot in ch with s.
func latest(ch chan refresh.Snapshot, s refresh.Snapshot) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func readLines(ctx context.Context, r io.Reader, out chan<- string) {
	defer close(out)
	if r == nil {
		return
	}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case out <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}

func writeSnapshot(w io.Writer, entityType string, s refresh.Snapshot, width int) {
	var b strings.Builder
	b.WriteString(ruler(fmt.Sprintf("%s %s | %s | cycle %d", entityType, s.ID, s.State, s.Cycle), width))
	b.WriteByte('\n')

	if e, ok := s.Entity(); ok {
		fmt.Fprintf(&b, "Name:     %s\n", e.Name)
		if e.Severity != nil {
			fmt.Fprintf(&b, "Severity: %s (%s)\n", gmp.FormatSeverity(e.Severity), gmp.SeverityClass(e.Severity))
		}
		if e.Comment != "" {
			fmt.Fprintf(&b, "Comment:  %s\n", e.Comment)
		}
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %s\n", k, e.Text(k))
		}
	}
	if perms, ok := s.Collection(refresh.PermissionsSlice); ok {
		fmt.Fprintf(&b, "Permissions: %d\n", len(perms.Entities))
		for _, p := range perms.Entities {
			perm := gmp.ParsePermission(p)
			fmt.Fprintf(&b, "  %s -> %s %s\n", perm.Name, perm.SubjectType, perm.SubjectUUID)
		}
	}

	names := make([]string, 0, len(s.Errors))
	for name := range s.Errors {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(&b, "error: %s: %v\n", name, s.Errors[name])
	}
	if !s.LoadedAt.IsZero() {
		fmt.Fprintf(&b, "Updated %s", s.LoadedAt.Local().Format(time.TimeOnly))
		if s.Stale {
			b.WriteString(" (stale, reloading)")
		}
		b.WriteByte('\n')
	}
	_, _ = io.WriteString(w, b.String())
}

// ruler pads title with dashes to width columns.
func ruler(title string, width int) string {
	line := "-- " + title + " "
	if pad := width - len(line); pad > 0 {
		line += strings.Repeat("-", pad)
	}
	return line
}

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultTerminalWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultTerminalWidth
	}
	return width
}

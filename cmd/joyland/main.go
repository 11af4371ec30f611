package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kokistudios/joyland/internal/clipboard"
	"github.com/kokistudios/joyland/internal/store"
	"github.com/kokistudios/joyland/internal/tracker"
	"github.com/kokistudios/joyland/internal/ui"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

func main() {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "joyland",
		Short: "Joyland cycle tracker",
		Long:  "Track your position in the Joyland event cycle from the events you observe, and get warned before Cube Battle and Card Realm.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.Init(noColor)
		},
		SilenceUsage: true,
	}

	rootCmd.Version = buildVersion()
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "tracking", Title: "Tracking:"},
		&cobra.Group{ID: "codes", Title: "Save Codes:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)

	for _, c := range []*cobra.Command{
		tapCmd(), undoCmd(), startCmd(), newScheduleCmd(), unknownCmd(),
		resetCmd(), statusCmd(), historyCmd(), playCmd(),
	} {
		c.GroupID = "tracking"
		rootCmd.AddCommand(c)
	}

	codeC := codeCmd()
	codeC.GroupID = "codes"
	rootCmd.AddCommand(codeC)

	for _, c := range []*cobra.Command{initCmd(), configCmd(), schedulesCmd(), doctorCmd()} {
		c.GroupID = "config"
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(completionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "init",
		Short:   "Initialize JOYLAND_HOME directory structure",
		Long:    "Create the JOYLAND_HOME directory (~/.joyland by default) with state/ and config.yaml.",
		Example: "  joyland init\n  joyland init --force",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()
			if err := store.Init(home, force); err != nil {
				return err
			}
			ui.Success("Joyland initialized")
			ui.Detail("Home:", home)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reinitialize even if JOYLAND_HOME already exists")
	return cmd
}

// loadStore opens JOYLAND_HOME, creating it with defaults on first use.
func loadStore() (*store.Store, error) {
	s, err := store.LoadOrInit(store.Home())
	if err != nil {
		return nil, fmt.Errorf("cannot open JOYLAND_HOME (try 'joyland init --force'): %w", err)
	}
	return s, nil
}

// session bundles a restored tracker with the store it was loaded from.
type session struct {
	store   *store.Store
	tracker *tracker.Tracker
	close   func()
}

func openSession(ctx context.Context) (*session, error) {
	s, err := loadStore()
	if err != nil {
		return nil, err
	}
	tbl, err := s.Table()
	if err != nil {
		return nil, err
	}
	p, err := store.OpenPersister(s)
	if err != nil {
		return nil, err
	}
	tr := tracker.New(tbl,
		tracker.WithPersister(p),
		tracker.WithClipboard(clipboard.System{}),
		tracker.WithLogger(ui.Logger),
	)
	tr.Restore(ctx)
	return &session{
		store:   s,
		tracker: tr,
		close: func() {
			if err := p.Close(); err != nil {
				ui.Logger.Warn("Failed to close storage", "err", err)
			}
		},
	}, nil
}

// withSession runs fn against the restored tracker and closes storage after.
func withSession(fn func(ctx context.Context, sess *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.close()
		return fn(cmd.Context(), sess, args)
	}
}

func (sess *session) print(timeline, history bool) {
	tr := sess.tracker
	v := tr.Projection()
	fmt.Println(ui.RenderView(tr.Table(), v, tr.History(), ui.ViewOptions{Timeline: timeline, History: history}))
	if v.Alert != nil && sess.store.Config.UI.Notify {
		ui.NotifyAlert(*v.Alert)
	}
}

func tapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tap <event>...",
		Short: "Record observed events in order",
		Long:  "Record one or more observed events. Events are given by id (T, F, A, C, B, J) or by name, case-insensitive.",
		Example: `  joyland tap T
  joyland tap t t a
  joyland tap "Card Realm"`,
		Args: cobra.MinimumNArgs(1),
		RunE: withSession(func(ctx context.Context, sess *session, args []string) error {
			for _, ev := range args {
				if err := sess.tracker.Tap(ctx, ev); err != nil {
					sess.print(false, false)
					return fmt.Errorf("tap %q: %w", ev, err)
				}
			}
			sess.print(sess.store.Config.UI.Timeline, false)
			return nil
		}),
	}
}

func undoCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Undo the most recent taps",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, sess *session, args []string) error {
			undone := 0
			for ; undone < n && len(sess.tracker.History()) > 0; undone++ {
				sess.tracker.Undo(ctx)
			}
			if undone == 0 {
				ui.EmptyState("Nothing to undo.")
			} else {
				ui.Success(fmt.Sprintf("Undid %d move(s)", undone))
			}
			sess.print(sess.store.Config.UI.Timeline, false)
			return nil
		}),
	}
	cmd.Flags().IntVarP(&n, "count", "n", 1, "Number of taps to undo")
	return cmd
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a known cycle (no schedule completed yet)",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, sess *session, args []string) error {
			sess.tracker.StartKnownCycle(ctx)
			ui.Success("Started a known cycle")
			sess.print(false, false)
			return nil
		}),
	}
}

func newScheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new-schedule",
		Short: "Start at the beginning of a schedule, cycle progress unknown",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, sess *session, args []string) error {
			sess.tracker.StartNewSchedule(ctx)
			ui.Success("Started a new schedule")
			sess.print(false, false)
			return nil
		}),
	}
}

func unknownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unknown",
		Short: "Forget the current position; the next tap searches every schedule",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, sess *session, args []string) error {
			sess.tracker.MarkUnknownPosition(ctx)
			ui.Success("Position marked unknown")
			sess.print(false, false)
			return nil
		}),
	}
}

func resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear all tracking state and saved data",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, sess *session, args []string) error {
			if !yes {
				ok, err := ui.Confirm("Clear all tracking state?")
				if err != nil {
					return err
				}
				if !ok {
					ui.EmptyState("Reset cancelled.")
					return nil
				}
			}
			sess.tracker.HardReset(ctx)
			ui.Success("Tracking state cleared")
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func statusCmd() *cobra.Command {
	var timeline, history bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current position estimate",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withSession(func(ctx context.Context, sess *session, args []string) error {
		show := sess.store.Config.UI.Timeline
		if cmd.Flags().Changed("timeline") {
			show = timeline
		}
		sess.print(show, history)
		return nil
	})
	cmd.Flags().BoolVar(&timeline, "timeline", true, "Show the schedule timeline when locked")
	cmd.Flags().BoolVar(&history, "history", false, "Append the tapped events")
	return cmd
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List the taps recorded since the last start",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, sess *session, args []string) error {
			tr := sess.tracker
			hist := tr.History()
			if len(hist) == 0 {
				ui.EmptyState("No moves logged.")
				return nil
			}
			rows := make([][]string, 0, len(hist))
			for i, sym := range hist {
				name := tr.Table().Name(sym)
				if tr.Table().IsSpecial(sym) {
					name = ui.Yellow(name)
				}
				rows = append(rows, []string{strconv.Itoa(i + 1), string(sym), name})
			}
			ui.Table([]string{"#", "EVENT", "NAME"}, rows)
			return nil
		}),
	}
}

func playCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Interactive mode: press event keys as you see them",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, sess *session, args []string) error {
			opts := ui.PlayOptions{Timeline: sess.store.Config.UI.Timeline}
			if sess.store.Config.UI.Notify {
				opts.OnAlert = ui.NotifyAlert
			}
			return ui.Play(ctx, sess.tracker, opts)
		}),
	}
}

func codeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "code",
		Short: "Export and import save codes",
	}
	cmd.AddCommand(codeCopyCmd())
	cmd.AddCommand(codeLoadCmd())
	return cmd
}

func codeCopyCmd() *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy the current save code to the clipboard",
		Args:  cobra.NoArgs,
		RunE: withSession(func(ctx context.Context, sess *session, args []string) error {
			if printOnly {
				code, err := sess.tracker.SaveCode()
				if err != nil {
					return err
				}
				ui.Info("Paste it back with 'joyland code load <code>'")
				fmt.Println(code)
				return nil
			}
			if !sess.tracker.CopySaveCode(ctx) {
				return fmt.Errorf("could not copy the save code (use --print)")
			}
			ui.Success("Save code copied to clipboard")
			return nil
		}),
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the save code instead of copying it")
	return cmd
}

func codeLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [code]",
		Short: "Replace the current state with a save code",
		Long:  "Load a save code given as an argument, or read it from the clipboard when omitted. The current state is kept if the code is invalid.",
		Args:  cobra.MaximumNArgs(1),
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		var code string
		if len(args) == 1 {
			code = args[0]
		} else {
			text, err := clipboard.System{}.ReadText()
			if err != nil {
				return err
			}
			code = text
		}
		return withSession(func(ctx context.Context, sess *session, _ []string) error {
			if !sess.tracker.LoadSaveCode(ctx, code) {
				return fmt.Errorf("invalid save code")
			}
			ui.Success("Save code loaded")
			sess.print(sess.store.Config.UI.Timeline, false)
			return nil
		})(cmd, args)
	}
	return cmd
}

func schedulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedules",
		Short: "Show the active schedule table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			tbl, err := s.Table()
			if err != nil {
				return err
			}
			ui.RenderMarkdown(ui.SchedulesMarkdown(tbl))
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit joyland configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configSetCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(s.Config)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Print(string(data))
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a joyland configuration value. Valid keys: storage.backend, schedules.file, ui.timeline, ui.notify.",
		Example: `  joyland config set storage.backend sqlite
  joyland config set schedules.file my-table.yaml
  joyland config set ui.notify true`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			if err := s.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Set %s = %s", args[0], args[1]))
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check health of JOYLAND_HOME and the saved state",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := store.Home()

			if fix {
				ui.CommandBanner("DOCTOR", "repair mode")
				fixed := store.FixIssues(home)
				for _, f := range fixed {
					ui.Success(fmt.Sprintf("[FIXED] %s", f))
				}
				if len(fixed) == 0 {
					ui.EmptyState("Nothing to fix.")
				}
			} else {
				ui.CommandBanner("DOCTOR", "health check")
			}

			ui.SectionHeader("JOYLAND_HOME")
			ui.KeyValue("home   ", home)
			if s, err := store.Load(home); err == nil {
				ui.KeyValue("backend", s.Config.Storage.Backend)
				table := "built-in"
				if s.Config.Schedules.File != "" {
					table = s.Config.Schedules.File
				}
				ui.KeyValue("table  ", table)
			}
			fmt.Fprintln(os.Stderr)

			issues := store.CheckHealth(home)
			if len(issues) == 0 {
				ui.Info("Checking saved state...")
				issues = append(issues, checkSavedState(cmd.Context(), home)...)
			}

			if len(issues) == 0 {
				ui.Success("Everything looks good")
				os.Exit(0)
			}

			hasError := false
			for _, issue := range issues {
				if issue.Severity == "error" {
					ui.Error(fmt.Sprintf("[ERR]  %s", issue.Message))
					hasError = true
				} else {
					ui.Warning(fmt.Sprintf("[WARN] %s", issue.Message))
				}
			}

			if hasError {
				os.Exit(2)
			}
			os.Exit(1)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Recreate missing directories and config")
	return cmd
}

// checkSavedState verifies the persisted blob decodes against the active table.
func checkSavedState(ctx context.Context, home string) []store.Issue {
	s, err := store.Load(home)
	if err != nil {
		return []store.Issue{{Severity: "error", Message: err.Error()}}
	}
	tbl, err := s.Table()
	if err != nil {
		return []store.Issue{{Severity: "error", Message: err.Error()}}
	}
	p, err := store.OpenPersister(s)
	if err != nil {
		return []store.Issue{{Severity: "error", Message: err.Error()}}
	}
	defer p.Close()

	blob, ok, err := p.Load(ctx)
	if err != nil {
		return []store.Issue{{Severity: "error", Message: fmt.Sprintf("%s storage: %v", s.Config.Storage.Backend, err)}}
	}
	if !ok {
		return nil
	}
	if _, err := tracker.UnmarshalState(tbl, blob); err != nil {
		return []store.Issue{{Severity: "warning", Message: fmt.Sprintf("saved state will be discarded: %v (run 'joyland reset')", err)}}
	}
	return nil
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish]",
		Short:     "Generate shell completion scripts",
		Long:      "Generate shell completion scripts for bash, zsh, or fish. Output the script to stdout for sourcing in your shell profile.",
		Example:   "  joyland completion bash > ~/.bashrc.d/joyland\n  joyland completion zsh > ~/.zfunc/_joyland\n  joyland completion fish > ~/.config/fish/completions/joyland.fish",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			default:
				return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", args[0])
			}
		},
	}
}

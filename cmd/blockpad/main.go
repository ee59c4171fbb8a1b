package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"blockpad/block"
	"blockpad/config"
	"blockpad/export"
	"blockpad/misc"
	"blockpad/plugin"
	"blockpad/plugin/pluginserver"
	"blockpad/shadow"
	"blockpad/state"
	"blockpad/syncer"
)

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		if env.Rpt, err = env.Cfg.Reporting.Prepare(); err != nil {
			return ctx, fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		// save complete processed configuration if external configuration was provided
		if len(configFile) > 0 {
			// we do not want any of your secrets!
			if data, err := config.Dump(env.Cfg); err == nil {
				env.Rpt.StoreData(fmt.Sprintf("config/%s", filepath.Base(configFile)), data)
			}
		}
	}
	if env.Log, err = env.Cfg.Logging.Prepare(env.Rpt); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", misc.GetVersion()), zap.String("runtime", runtime.Version()), zap.String("hash", misc.GetGitHash()))

	if env.Rpt != nil {
		env.Log.Info("Creating debug report", zap.String("location", env.Rpt.Name()))
	}
	if len(configFile) == 0 && env.Log != nil {
		env.Log.Info("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}

	// close logging
	env.RestoreStdLog()

	// log is synced now and result can be used in report if necessary, errors
	// must be reported directly to stderr from now on
	if env.Rpt != nil {
		if er := env.Rpt.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
		}
	}
	// reporting is closed now - remove empty panic file if any
	if env.Cfg != nil && len(env.Cfg.Logging.FileLogger.Destination) > 0 {
		debug.SetCrashOutput(nil, debug.CrashOptions{})
		fname := filepath.Join(filepath.Dir(env.Cfg.Logging.FileLogger.Destination), misc.GetAppName()+"-panic.log")
		if fi, er := os.Stat(fname); er == nil && fi.Size() == 0 {
			if er := os.Remove(fname); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to remove empty panic log file '%s': %w", fname, er))
			}
		}
	}
	return
}

// Ignore urfave/cli default error handling - for me cli.Exit() looks
// non-transparent and unnesessary. I will return regular errors from
// subcommands.
var errWasHandled bool

// this is called before appContext is destroyed, so we have a chance to
// properly log any error from subcommand
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {

	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	// do nothing special, error is reported either by exitErrHandler or on
	// exit directly to stderr.
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	state.EnvFromContext(ctx).Log.Warn("Unknown command, nothing to do", zap.String("command", name))
}

func main() {

	// allow graceful shutdown on interrupt - serve keeps running until asked
	// to stop and we want the page store flushed on the way out
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "shadow document store and sync tooling for block based editors",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
		},
		Commands: []*cli.Command{
			{
				Name:         "serve",
				Usage:        "Runs the reference plugin host (WebSocket command socket, page store)",
				OnUsageError: usageErrorHandler,
				Action:       runServer,
				CustomHelpTemplate: fmt.Sprintf(`%s
Serves the command socket and page API configured in the "server" section.
Pages are persisted in the configured store file. Stop with SIGINT/SIGTERM.
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "replay",
				Usage:        "Applies a JSON edit script to a page snapshot and prints the result",
				OnUsageError: usageErrorHandler,
				Action:       runReplay,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write result to `FILE` instead of STDOUT"},
					&cli.BoolFlag{Name: "xhtml", Usage: "render result as XHTML instead of JSON"},
				},
				ArgsUsage: "SNAPSHOT SCRIPT",
				CustomHelpTemplate: fmt.Sprintf(`%s
SNAPSHOT:
    JSON file with the page to start from: {"page_id": "...", "blocks": [...]}

SCRIPT:
    JSON file with an ordered list of edit steps, for example:
        [
            {"op": "update_text", "block": "b1", "text": "Hello"},
            {"op": "split", "block": "b1", "after_text": " world", "new_id": "b2"},
            {"op": "reorder", "block": "b2", "target": "b1", "position": "before"}
        ]

Steps run against the in-memory document and drain through the command
queue exactly the way a live editing session would.
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "export",
				Usage:        "Exports a page from the plugin host store as XHTML",
				OnUsageError: usageErrorHandler,
				Action:       runExport,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "document `TITLE` for the exported page"},
					&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "continue even if destination exists, overwrite file"},
				},
				ArgsUsage: "PAGE [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
PAGE:
    id of the page to export from the configured page store

DESTINATION:
    file name to write XHTML to, if absent - STDOUT
`, cli.CommandHelpTemplate),
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values wich is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deffered functions after that
	defer func() {
		stop()
		if err != nil {
			// It may happen that log is either not set yet (argument parsing) or already closed,
			// report errors to stderr directly
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func runServer(ctx context.Context, _ *cli.Command) error {

	env := state.EnvFromContext(ctx)

	store, err := pluginserver.OpenStore(env.Cfg.Server.StorePath, env.Log)
	if err != nil {
		return fmt.Errorf("unable to open page store: %w", err)
	}
	defer store.Close()

	srv := pluginserver.NewServer(store, string(env.Cfg.Server.AuthToken), env.Log)
	return srv.Run(ctx, env.Cfg.Server.Listen)
}

type pageSnapshot struct {
	PageID string         `json:"page_id"`
	Blocks []*block.Block `json:"blocks"`
}

type editStep struct {
	Op        string `json:"op"`
	Block     string `json:"block"`
	Text      string `json:"text"`
	AfterText string `json:"after_text"`
	NewID     string `json:"new_id"`
	Target    string `json:"target"`
	Position  string `json:"position"`
	Other     string `json:"other"`
	Item      string `json:"item"`
	Checked   *bool  `json:"checked"`
}

func runReplay(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)

	if cmd.Args().Len() < 2 {
		return fmt.Errorf("both SNAPSHOT and SCRIPT files are required")
	}

	var snap pageSnapshot
	data, err := os.ReadFile(cmd.Args().Get(0))
	if err != nil {
		return fmt.Errorf("unable to read snapshot: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("unable to parse snapshot: %w", err)
	}
	if len(snap.PageID) == 0 {
		return fmt.Errorf("snapshot has no page_id")
	}

	var steps []editStep
	data, err = os.ReadFile(cmd.Args().Get(1))
	if err != nil {
		return fmt.Errorf("unable to read script: %w", err)
	}
	if err := json.Unmarshal(data, &steps); err != nil {
		return fmt.Errorf("unable to parse script: %w", err)
	}

	backend := plugin.NewLoopback(env.Log)
	backend.SeedPage(snap.PageID, snap.Blocks)

	store := shadow.New(env.Log)
	sched := syncer.New(store, backend, env.Cfg.Editor.DrainInterval.Std(), env.Log)
	if err := sched.SwitchPage(ctx, snap.PageID); err != nil {
		return fmt.Errorf("unable to open page: %w", err)
	}

	for i, step := range steps {
		if !applyStep(store, step) {
			env.Log.Warn("Edit step ignored", zap.Int("step", i), zap.String("op", step.Op), zap.String("block", step.Block))
		}
	}

	if err := sched.Close(); err != nil {
		return fmt.Errorf("unable to drain edits: %w", err)
	}

	result, err := backend.LoadPage(ctx, snap.PageID)
	if err != nil {
		return fmt.Errorf("unable to load result: %w", err)
	}
	env.Rpt.StoreData(fmt.Sprintf("pages/%s-before.tree", snap.PageID), []byte(block.DumpBlocks(snap.Blocks)))
	env.Rpt.StoreData(fmt.Sprintf("pages/%s-after.tree", snap.PageID), []byte(block.DumpBlocks(result)))

	out := os.Stdout
	if fname := cmd.String("out"); len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	}

	if cmd.Bool("xhtml") {
		return export.WriteXHTML(out, snap.PageID, result, env.Log)
	}

	data, err = json.MarshalIndent(pageSnapshot{PageID: snap.PageID, Blocks: result}, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to serialize result: %w", err)
	}
	_, err = out.Write(append(data, '\n'))
	return err
}

func applyStep(store *shadow.Store, step editStep) bool {
	switch step.Op {
	case "update_text":
		return store.UpdateText(step.Block, step.Text)
	case "split":
		return store.Split(step.Block, step.AfterText, step.NewID)
	case "merge_previous":
		return store.MergeWithPrevious(step.Block)
	case "reorder":
		return store.Reorder(step.Block, step.Target, step.Position)
	case "pair":
		return store.Pair(step.Block, step.Other)
	case "unpair":
		return store.Unpair(step.Block)
	case "remove":
		return store.RemoveBlock(step.Block)
	case "append_paragraph":
		b := block.NewTextBlock(block.BlockTypeParagraph, step.Text)
		if len(step.NewID) > 0 {
			b.ID = step.NewID
		}
		return store.AppendBlock(b)
	case "update_item":
		return store.UpdateItem(step.Block, step.Item, step.Text, step.Checked)
	case "indent_item":
		return store.IndentItem(step.Block, step.Item)
	case "outdent_item":
		return store.OutdentItem(step.Block, step.Item)
	case "move_page":
		return store.MovePage(step.Target, step.Position)
	default:
		return false
	}
}

func runExport(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)

	pageID := cmd.Args().Get(0)
	if len(pageID) == 0 {
		return fmt.Errorf("PAGE id is required")
	}

	store, err := pluginserver.OpenStore(env.Cfg.Server.StorePath, env.Log)
	if err != nil {
		return fmt.Errorf("unable to open page store: %w", err)
	}
	defer store.Close()

	blocks, err := store.LoadPage(pageID)
	if err != nil {
		return fmt.Errorf("unable to load page '%s': %w", pageID, err)
	}
	if blocks == nil {
		return fmt.Errorf("page '%s' not found", pageID)
	}

	title := cmd.String("title")
	if len(title) == 0 {
		title = pageID
	}

	out := os.Stdout
	if fname := cmd.Args().Get(1); len(fname) > 0 {
		if _, err := os.Stat(fname); err == nil && !cmd.Bool("overwrite") {
			return fmt.Errorf("destination '%s' already exists, use --overwrite", fname)
		}
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	}

	env.Log.Info("Exporting page", zap.String("page", pageID), zap.Int("blocks", len(blocks)))
	env.Rpt.StoreData(fmt.Sprintf("pages/%s.tree", pageID), []byte(block.DumpBlocks(blocks)))
	return export.WriteXHTML(out, title, blocks, env.Log)
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()

	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Info("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	_, err = out.Write(data)
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}

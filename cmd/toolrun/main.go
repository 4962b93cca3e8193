package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"toolrun/internal/config"
	"toolrun/internal/events"
	"toolrun/internal/permission"
	"toolrun/internal/render"
	"toolrun/internal/repo"
	"toolrun/internal/tools"
	"toolrun/internal/version"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "toolrun",
		Short:         "toolrun - sandboxed tool execution for coding agents",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("workspace", ".", "Workspace path")
	cmd.PersistentFlags().Bool("quiet", false, "Only print tool output")
	cmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-file", "", "Write plain-text output to a file")
	cmd.PersistentFlags().String("shell-timeout", config.DefaultShellTimeout.String(), "Shell command timeout (e.g. 120s)")
	cmd.PersistentFlags().String("plugin-dir", "", "Directory with tool plugins")

	cmd.AddCommand(newToolsCmd())
	cmd.AddCommand(newExecCmd())
	return cmd
}

func newToolsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List registered tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}
			logger := buildLogger(cfg.Verbose)
			defer func() { _ = logger.Sync() }()

			registry, _, err := buildRegistry(cfg, logger)
			if err != nil {
				return err
			}

			if asJSON {
				payload, err := json.MarshalIndent(registry.OpenAITools(), "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, string(payload))
				return nil
			}
			for _, def := range registry.Definitions() {
				fmt.Fprintf(os.Stdout, "%-8s %s\n", def.ID, def.Description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Dump tool schemas as JSON")
	return cmd
}

func newExecCmd() *cobra.Command {
	var argsJSON string
	cmd := &cobra.Command{
		Use:   "exec <tool>",
		Short: "Execute one tool call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, cliArgs []string) error {
			cfg, err := config.Load(cmd)
			if err != nil {
				return err
			}
			logger := buildLogger(cfg.Verbose)
			defer func() { _ = logger.Sync() }()

			toolArgs := map[string]any{}
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &toolArgs); err != nil {
					return fmt.Errorf("invalid --args JSON: %w", err)
				}
			}

			registry, workspaceRoot, err := buildRegistry(cfg, logger)
			if err != nil {
				return err
			}

			rules, err := rulesFromConfig(cfg)
			if err != nil {
				return err
			}
			perms := permission.NewService(rules, logger)
			defer perms.Close()
			if cfg.PermissionsFile != "" {
				if err := perms.Watch(cfg.PermissionsFile, reloadRules); err != nil {
					logger.Warn("permission rules watch failed", zap.Error(err))
				}
			}

			writer := io.Writer(os.Stdout)
			if cfg.LogFile != "" {
				logPath := cfg.LogFile
				if !filepath.IsAbs(logPath) {
					logPath = filepath.Join(workspaceRoot, logPath)
				}
				file, err := os.Create(logPath)
				if err != nil {
					return err
				}
				defer file.Close()
				writer = io.MultiWriter(os.Stdout, file)
			}
			renderer := render.NewStdoutRenderer(writer, cfg.Verbose, cfg.Quiet, cfg.Verbose)
			defer renderer.Close()

			dispatcher := tools.NewDispatcher(registry, perms, workspaceRoot, logger)
			dispatcher.Emit = renderer.Emit
			dispatcher.Ask = promptAsk

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			sessionID := uuid.NewString()
			renderer.Emit(events.New(events.SessionStarted, events.SessionStartedPayload{
				Version:       version.Version,
				SessionID:     sessionID,
				WorkspaceRoot: workspaceRoot,
				Tools:         registry.IDs(),
			}))

			res, err := dispatcher.Dispatch(ctx, tools.Request{
				SessionID: sessionID,
				ToolID:    cliArgs[0],
				Args:      toolArgs,
			})
			status := "ok"
			if err != nil {
				status = "error"
			}
			renderer.Emit(events.New(events.SessionFinished, events.SessionFinishedPayload{
				SessionID: sessionID,
				Status:    status,
			}))
			if err != nil {
				return err
			}
			if res.Output != "" {
				fmt.Fprintln(os.Stdout, strings.TrimRight(res.Output, "\n"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&argsJSON, "args", "", "Tool arguments as a JSON object")
	return cmd
}

func buildRegistry(cfg config.Config, logger *zap.Logger) (*tools.Registry, string, error) {
	workspaceRoot, err := repo.FindRoot(cfg.Workspace)
	if err != nil {
		logger.Warn("failed to find workspace root", zap.Error(err))
		workspaceRoot = cfg.Workspace
	}
	workspaceRoot, _ = filepath.Abs(workspaceRoot)

	registry := tools.NewRegistry(
		tools.ReadTool{},
		tools.WriteTool{},
		tools.EditTool{SimilarityThreshold: cfg.EditSimilarity},
		tools.GlobTool{},
		tools.ListTool{},
		tools.BashTool{Grace: cfg.ShellGrace},
	)
	if cfg.PluginDir != "" {
		tools.LoadPlugins(registry, cfg.PluginDir, logger)
	}
	return registry, workspaceRoot, nil
}

func rulesFromConfig(cfg config.Config) (*permission.Ruleset, error) {
	if len(cfg.PermissionRules) == 0 {
		return permission.DefaultRuleset(), nil
	}
	return permission.FromMap(cfg.PermissionRules)
}

// reloadRules re-reads the config file the watcher fired on and rebuilds the
// ruleset from its permissions section.
func reloadRules(path string) (*permission.Ruleset, error) {
	cfg, err := config.Load(nil)
	if err != nil {
		return nil, err
	}
	return rulesFromConfig(cfg)
}

// promptAsk asks the user on stderr: y allows once, a allows for the
// session, anything else denies.
func promptAsk(ctx context.Context, req tools.AskRequest) {
	fmt.Fprintf(os.Stderr, "%s wants %s on %q. Allow? [y/a/N] ", req.ToolID, req.Permission, req.Subject)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		req.Reply <- tools.AnswerDeny
		return
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		req.Reply <- tools.AnswerAllow
	case "a", "always":
		req.Reply <- tools.AnswerAlways
	default:
		req.Reply <- tools.AnswerDeny
	}
}

func buildLogger(verbose bool) *zap.Logger {
	if verbose {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/shipyard/pkg/audit"
	"github.com/cuemby/shipyard/pkg/config"
	"github.com/cuemby/shipyard/pkg/container"
	"github.com/cuemby/shipyard/pkg/docker"
	"github.com/cuemby/shipyard/pkg/graph"
	"github.com/cuemby/shipyard/pkg/loader"
	"github.com/cuemby/shipyard/pkg/log"
	"github.com/cuemby/shipyard/pkg/play"
	"github.com/cuemby/shipyard/pkg/progress"
	"github.com/cuemby/shipyard/pkg/registry"
	"github.com/cuemby/shipyard/pkg/shipyarderr"
	"github.com/cuemby/shipyard/pkg/transport"
	"github.com/cuemby/shipyard/pkg/types"
)

// persistentRunConfig reads the flags common to every subcommand into a
// config.RunConfig, leaving action-specific fields for the caller to set.
func persistentRunConfig(cmd *cobra.Command) config.RunConfig {
	file, _ := cmd.Flags().GetString("file")
	creds, _ := cmd.Flags().GetString("credentials")
	passphrase, _ := cmd.Flags().GetString("credentials-passphrase")
	containerFilter, _ := cmd.Flags().GetString("container-filter")
	shipFilter, _ := cmd.Flags().GetString("ship-filter")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	return config.RunConfig{
		EnvironmentFile:       file,
		CredentialsFile:       creds,
		CredentialsPassphrase: passphrase,
		ContainerFilter:       containerFilter,
		ShipFilter:            shipFilter,
		DryRun:                dryRun,
	}
}

// resolveEnvironmentPath materializes "-" (stdin) into a real file, since
// pkg/loader always reads from disk so that file-includes have a
// directory to resolve against.
func resolveEnvironmentPath(path string) (string, func(), error) {
	if path != "-" {
		return path, func() {}, nil
	}

	tmp, err := os.CreateTemp("", "shipyard-env-*.yaml")
	if err != nil {
		return "", nil, fmt.Errorf("cmd: create temp file for stdin document: %w", err)
	}
	if _, err := io.Copy(tmp, os.Stdin); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("cmd: read stdin document: %w", err)
	}
	tmp.Close()
	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

func loadEnvironment(cfg config.RunConfig) (*types.Environment, *graph.Graph, error) {
	path, cleanup, err := resolveEnvironmentPath(cfg.EnvironmentFile)
	if err != nil {
		return nil, nil, err
	}
	defer cleanup()

	return loader.Load(path, loader.ProcessEnv(os.Environ()))
}

func buildAdapter(env *types.Environment, cfg config.RunConfig) (docker.Adapter, error) {
	var creds registry.Source
	if cfg.CredentialsFile != "" {
		loaded, err := registry.LoadCredentialsFile(cfg.CredentialsFile, cfg.CredentialsPassphrase)
		if err != nil {
			return nil, shipyarderr.Wrap(shipyarderr.KindConfig, "load registry credentials", err)
		}
		creds.Creds = loaded
	}
	return docker.NewEngineAdapter(env, transport.Selector{}, creds), nil
}

func buildSinks(cmd *cobra.Command) []audit.Sink {
	sinks := []audit.Sink{audit.NewLogSink("log")}

	if execCmd, _ := cmd.Flags().GetString("audit-exec"); execCmd != "" {
		sinks = append(sinks, audit.NewExecSink("exec", []string{"/bin/sh", "-c", execCmd}, true))
	}
	if webhookURL, _ := cmd.Flags().GetString("audit-webhook"); webhookURL != "" {
		sinks = append(sinks, audit.NewWebhookSink("webhook", webhookURL, true))
	}
	return sinks
}

// runPlay wires a play for action over args and executes it, printing
// the final status table and returning a non-nil error only when the
// play could not even start (invalid selection, bad config). Per-
// container failures are reflected in the process exit code, set on the
// package-level exitCode variable, not by returning an error.
func runPlay(cmd *cobra.Command, args []string, action types.Action, cfg config.RunConfig) error {
	env, g, err := loadEnvironment(cfg)
	if err != nil {
		return err
	}

	targets, err := config.ResolveTargets(env, action, args, cfg)
	if err != nil {
		return err
	}

	if cfg.DryRun {
		return printDryRun(g, targets, action, cfg)
	}

	adapter, err := buildAdapter(env, cfg)
	if err != nil {
		return err
	}

	mgr := &container.Manager{Adapter: adapter, Env: env, RefreshImages: cfg.RefreshImages, Reuse: cfg.Reuse}
	reporter := progress.NewConsoleReporter(os.Stdout)

	p := &play.Play{
		Env:         env,
		Graph:       g,
		Manager:     mgr,
		Sinks:       buildSinks(cmd),
		Reporter:    reporter,
		Concurrency: cfg.Concurrency,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := p.Run(ctx, targets, action, !cfg.Only, cfg.IgnoreOrder)
	if err != nil {
		return err
	}

	if summary.Failed > 0 {
		exitCode = 1
		log.WithPlay(summary.PlayID, string(action)).Warn().
			Int("failed", summary.Failed).Int("done", summary.Done).Msg("play finished with failures")
	}
	return nil
}

// runValidate loads cfg's environment document through loader.Validate
// instead of loader.Load, so a bad ship or service doesn't stop the
// pass before every other one has had a chance to report its own
// issues. It sets exitCode rather than returning an error for a
// document that parses but fails validation, matching runPlay's
// convention of reserving a returned error for failures that prevented
// any work from happening at all.
func runValidate(cfg config.RunConfig) error {
	path, cleanup, err := resolveEnvironmentPath(cfg.EnvironmentFile)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := loader.Validate(path, loader.ProcessEnv(os.Environ()))
	if err != nil {
		return err
	}

	progress.RenderValidationReport(os.Stdout, cfg.EnvironmentFile, report.Issues)
	if !report.OK() {
		exitCode = 1
	}
	return nil
}

func printDryRun(g *graph.Graph, targets []string, action types.Action, cfg config.RunConfig) error {
	layers, err := g.Order(targets, action, !cfg.Only, cfg.IgnoreOrder)
	if err != nil {
		return err
	}
	for i, layer := range layers {
		fmt.Printf("layer %d: %v\n", i, layer)
	}
	return nil
}

// qmlls: a language server for declarative UI markup, speaking LSP over
// stdio JSON-RPC.
package main

import (
	"context"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/pflag"

	"github.com/SeleniaProject/qmlls/internal/cli"
	"github.com/SeleniaProject/qmlls/internal/completion"
	"github.com/SeleniaProject/qmlls/internal/config"
	"github.com/SeleniaProject/qmlls/internal/coordinator"
	"github.com/SeleniaProject/qmlls/internal/dom"
	"github.com/SeleniaProject/qmlls/internal/environ"
	"github.com/SeleniaProject/qmlls/internal/errors"
	"github.com/SeleniaProject/qmlls/internal/indexer"
	"github.com/SeleniaProject/qmlls/internal/lifecycle"
	"github.com/SeleniaProject/qmlls/internal/log"
	"github.com/SeleniaProject/qmlls/internal/registry"
	"github.com/SeleniaProject/qmlls/internal/rpc"
	"github.com/SeleniaProject/qmlls/internal/updater"
)

func main() {
	showVersion := pflag.Bool("version", false, "Show version information")
	jsonOutput := pflag.Bool("json", false, "Output version in JSON format")

	pflag.Usage = func() {
		os.Stderr.WriteString("Usage: qmlls [OPTIONS]\n\n")
		os.Stderr.WriteString("Language server for declarative UI markup.\n")
		os.Stderr.WriteString("Communicates via stdin/stdout using JSON-RPC.\n\n")
		pflag.PrintDefaults()
	}

	// The configuration flags are parsed by config.ParseFlags below.
	pflag.CommandLine.ParseErrorsWhitelist.UnknownFlags = true
	pflag.Parse()

	if *showVersion {
		cli.PrintVersion("qmlls", *jsonOutput)
		os.Exit(0)
	}

	cfg := config.Default()
	cfg = config.LoadSettingsFile(cfg, registry.SettingsFileName)
	cfg = config.LoadEnv(cfg)
	cfg = config.ParseFlags(cfg, os.Args[1:])

	logger := log.New()
	logger.SetLevel(cfg.LogLevel)

	setStdioBinaryMode()

	if err := run(cfg, logger); err != nil {
		logger.WithField("error", err.Error()).Error("fatal server error")
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *log.Entry) error {
	reg := registry.New()

	if len(cfg.BuildDirs) > 0 {
		reg.SetBuildDirs("", cfg.BuildDirs)
	}

	current := environ.New()
	valid := environ.New()

	resolver := &indexer.ModuleResolver{Registry: reg}

	ix := indexer.New(current, valid, resolver, logger.WithField("component", "indexer"))
	up := updater.New(reg, current, valid, resolver, logger.WithField("component", "updater"))

	if err := ix.StartWatching(context.Background()); err != nil {
		logger.WithField("error", err.Error()).Warn("filesystem watch unavailable, falling back to scan-only indexing")
	} else {
		defer ix.Close()
	}

	lc := lifecycle.New()
	lc.OnLifecycleError(func(err *errors.StandardError) {
		logger.WithField("error", err.Error()).Warn("lifecycle violation")
	})

	pool := coordinator.NewPool(context.Background(), cfg.MaxWorkers)
	completionCoord := coordinator.New(reg, pool)

	scopeProvider := &noopScopeProvider{}
	moduleIndex := &noopModuleIndex{}
	engine := completion.New(moduleIndex, scopeProvider)

	server := rpc.New(lc, reg, current, valid, ix, up, completionCoord, engine, logger)

	return server.Run(context.Background(), stdio{})
}

type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error                { return nil }

// noopModuleIndex and noopScopeProvider satisfy completion.Engine's
// collaborator interfaces until semantic module/type resolution lands;
// every producer that depends on them degrades to keyword-only results
// rather than panicking.
type noopModuleIndex struct{}

func (noopModuleIndex) KnownModuleURIs() []string                        { return nil }
func (noopModuleIndex) VersionsForModule(uri string) []*semver.Version { return nil }

type noopScopeProvider struct{}

func (noopScopeProvider) ObjectBodyCompletions(arena *dom.Arena, idx dom.ItemIndex) []completion.Item {
	return nil
}

func (noopScopeProvider) JSIdentifierCompletions(arena *dom.Arena, idx dom.ItemIndex) []completion.Item {
	return nil
}

func (noopScopeProvider) FieldMemberCompletions(arena *dom.Arena, idx dom.ItemIndex) []completion.Item {
	return nil
}

func (noopScopeProvider) TypeNameCompletions() []completion.Item { return nil }

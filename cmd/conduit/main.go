package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Alia5/CONDUIT/internal/config"
	"github.com/Alia5/CONDUIT/internal/configpaths"
	"github.com/Alia5/CONDUIT/internal/log"

	_ "github.com/Alia5/CONDUIT/internal/registry" // Register all adapter families

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"
)

func main() {
	var cli config.CLI
	ctx := parseCLI(&cli)

	logger, closers, err := log.SetupLogger(cli.Log.Level, cli.Log.File)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		os.Exit(2)
	}

	rawLogger, rawCloser := setupRawLogger(cli.Log, logger)
	if rawCloser != nil {
		closers = append(closers, rawCloser)
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	ctx.Bind(logger)
	ctx.BindTo(rawLogger, (*log.RawLogger)(nil))

	ctx.FatalIfErrorf(ctx.Run())
}

// parseCLI resolves the command line plus layered config files. Values bind
// in priority order: flags, then environment, then JSON, YAML and TOML
// config files from the explicit --config path and the standard locations.
func parseCLI(cli *config.CLI) *kong.Context {
	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := configpaths.ConfigCandidatePaths(userCfg)

	return kong.Parse(cli,
		kong.Name("conduit"),
		kong.Description("Controller and touch input pipeline over TCP"),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)
}

// setupRawLogger picks the wire-frame log destination: an explicit file when
// configured, stdout at trace level, otherwise discard.
func setupRawLogger(cfg config.LogConfig, logger *slog.Logger) (log.RawLogger, io.Closer) {
	if cfg.RawFile != "" {
		f, err := os.OpenFile(cfg.RawFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Error("failed to open raw log file", "file", cfg.RawFile, "error", err)
			return log.NewRaw(nil), nil
		}
		return log.NewRaw(f), f
	}
	if cfg.Level == "trace" {
		return log.NewRaw(os.Stdout), nil
	}
	return log.NewRaw(nil), nil
}

// findUserConfig pre-scans the raw arguments for --config so config files
// can participate in the very parse that defines the flag.
func findUserConfig(args []string) string {
	for i, a := range args {
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("CONDUIT_CONFIG")
}

package main

import (
	"os"
	"path"

	"github.com/alecthomas/kong"
	"github.com/julianstephens/go-utils/helpers"

	"github.com/julianstephens/cstorewal/internal/cli"
	"github.com/julianstephens/cstorewal/internal/cstorewal"
	"github.com/julianstephens/cstorewal/internal/cstorewal/config"
	"github.com/julianstephens/cstorewal/internal/logger"
)

var (
	version = "cstorewal v0.1.0"
)

type LogOpts struct {
	Level  string `help:"Logging level (debug, info, warn, error)" default:"info" envvar:"CSTOREWAL_LOG_LEVEL"`
	Debug  bool   `help:"Enable debug logging (overrides --level)"                envvar:"CSTOREWAL_DEBUG"`
	Stream bool   `help:"Log to stdout/stderr in addition to file"                envvar:"CSTOREWAL_LOG_STREAM"`
}

type CLI struct {
	cli.Globals `embed:""`

	Init   cli.InitCmd   `cmd:"" help:"Write a config file"`
	Commit cli.CommitCmd `cmd:"" help:"Commit one statement to a stream"`
	Load   cli.LoadCmd   `cmd:"" help:"Commit every line of a file to a stream"`
	Status cli.StatusCmd `cmd:"" help:"Show the segments of a stream"`

	LogOpts LogOpts          `embed:"" prefix:"log-" help:"Logging options"`
	Version kong.VersionFlag `         help:"Show version information" short:"V"`
}

func createLogger(opts LogOpts, configPath string) (logger.Logger, error) {
	var level string
	if opts.Debug {
		level = "debug"
	} else {
		level = opts.Level
	}

	consoleLogger := logger.NewConsoleLogger(level)

	if opts.Stream {
		return consoleLogger, nil
	}

	rot := config.Default().LogRotation()
	if configPath != "" && helpers.Exists(configPath) {
		if f, err := config.Load(configPath); err == nil {
			rot = f.LogRotation()
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	logDir := path.Join(homeDir, cstorewal.DefaultAppDir, cstorewal.DefaultLogDir)
	fileLogger, err := logger.NewFileLogger(logDir, cstorewal.DefaultLogFileName, rot)
	if err != nil {
		return nil, err
	}

	return logger.NewMultiLogger(fileLogger, consoleLogger), nil
}

func main() {
	cliApp := &CLI{}
	ctx := kong.Parse(cliApp,
		kong.Name("cstorewal"),
		kong.Description("Segmented write-ahead log for column-store statements"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	lg, err := createLogger(cliApp.LogOpts, cliApp.Config)
	if err != nil {
		ctx.FatalIfErrorf(err)
	}
	cliApp.Logger = lg

	err = ctx.Run(&cliApp.Globals)
	if c, ok := lg.(logger.Closeable); ok {
		_ = c.Close()
	}
	if err != nil {
		// Commands already reported the failure.
		os.Exit(1)
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/julianstephens/go-utils/cliutil"
	"github.com/julianstephens/go-utils/helpers"

	"github.com/julianstephens/cstorewal/internal/cstorewal"
	"github.com/julianstephens/cstorewal/internal/cstorewal/config"
	"github.com/julianstephens/cstorewal/internal/cstorewal/engine"
	"github.com/julianstephens/cstorewal/internal/cstorewal/record"
	"github.com/julianstephens/cstorewal/internal/cstorewal/segment"
	"github.com/julianstephens/cstorewal/internal/logger"
)

// Globals holds the flags shared by every command. It is bound into each
// command's Run method.
type Globals struct {
	Root       string `help:"WAL root directory (overrides config)"            envvar:"CSTOREWAL_ROOT"`
	Config     string `help:"Path to the engine config file" default:"cstorewal.json" envvar:"CSTOREWAL_CONFIG"`
	WriterMode string `help:"Writer mode: per-stream or shared (overrides config)"     envvar:"CSTOREWAL_WRITER_MODE"`
	Sync       bool   `help:"Fsync every append (overrides config)"                     envvar:"CSTOREWAL_SYNC"`

	Logger logger.Logger `kong:"-"`
	Out    io.Writer     `kong:"-"`
}

// Options resolves engine options: built-in defaults, then the config file
// if present, then flags.
func (g *Globals) Options() (cstorewal.Options, error) {
	opts := cstorewal.DefaultOptions()
	if g.Config != "" && helpers.Exists(g.Config) {
		f, err := config.Load(g.Config)
		if err != nil {
			return opts, err
		}
		opts = f.Options()
	}
	if g.Root != "" {
		opts.Root = g.Root
	}
	if g.WriterMode != "" {
		opts.WriterMode = g.WriterMode
	}
	if g.Sync {
		opts.SyncOnAppend = true
	}
	return opts, opts.Validate()
}

func (g *Globals) logger() logger.Logger {
	if g.Logger == nil {
		return logger.NoOpLogger{}
	}
	return g.Logger
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Globals) openEngine() (*engine.Engine, error) {
	opts, err := g.Options()
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("invalid configuration: %v", err))
		return nil, err
	}
	e, err := engine.OpenWithOptions(opts, g.logger())
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("failed to open wal: %v", err))
		return nil, err
	}
	return e, nil
}

// StreamFlags select a stream.
type StreamFlags struct {
	DB    int64 `help:"Database id" required:"" name:"db"`
	Table int64 `help:"Table id"    required:""`
}

func (s StreamFlags) stream() segment.StreamID {
	return segment.StreamID{DatabaseID: s.DB, TableID: s.Table}
}

// InitCmd writes a default config file.
type InitCmd struct {
	Force bool `help:"Overwrite an existing config file"`
}

func (c *InitCmd) Run(g *Globals) error {
	f := config.Default()
	if g.Root != "" {
		f.Root = g.Root
	}
	if g.WriterMode != "" {
		f.WriterMode = g.WriterMode
	}
	f.SyncOnAppend = g.Sync

	var err error
	if c.Force && helpers.Exists(g.Config) {
		err = f.Save(g.Config)
	} else {
		if err = config.Create(g.Config); err == nil {
			err = f.Save(g.Config)
		}
	}
	if err != nil {
		if errors.Is(err, config.ErrConfigAlreadyExists) {
			cliutil.PrintError(fmt.Sprintf("config already exists at %s (use --force)", g.Config))
		} else {
			cliutil.PrintError(fmt.Sprintf("failed to write config: %v", err))
		}
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "wrote %s (root=%s)\n", g.Config, f.Root)
	return nil
}

// CommitCmd commits one statement.
type CommitCmd struct {
	StreamFlags `embed:""`
	PID         string `help:"Process id recorded with the statement" default:"cli"`
	TID         int64  `help:"Transaction id recorded with the statement" name:"tid"`
	SQL         string `arg:"" help:"Statement text"`
}

func (c *CommitCmd) Run(g *Globals) error {
	e, err := g.openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	res, err := e.Commit(context.Background(), c.stream(), record.Statement{ProcessID: c.PID, TxnID: c.TID, SQL: c.SQL})
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("commit failed: %v", err))
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "lsn=%d segment=%s\n", res.LSN, res.Segment)
	return nil
}

// LoadCmd commits every line of a file as a statement.
type LoadCmd struct {
	StreamFlags `embed:""`
	PID         string `help:"Process id recorded with each statement" default:"cli"`
	FirstTxn    int64  `help:"Transaction id of the first statement; later lines count up" default:"1"`
	File        string `arg:"" help:"File with one statement per line" type:"existingfile"`
}

func (c *LoadCmd) Run(g *Globals) error {
	f, err := os.Open(c.File) //nolint:gosec
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("cannot open %s: %v", c.File, err))
		return err
	}
	defer func() { _ = f.Close() }()

	e, err := g.openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	out, err := e.Load(context.Background(), c.stream(), f, c.PID, c.FirstTxn)
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("load failed after %d statements: %v", out.Count, err))
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "committed=%d first_lsn=%d last_lsn=%d\n", out.Count, out.FirstLSN, out.LastLSN)
	return nil
}

// StatusCmd prints the on-disk state of a stream.
type StatusCmd struct {
	StreamFlags `embed:""`
}

func (c *StatusCmd) Run(g *Globals) error {
	e, err := g.openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	st, err := e.Status(c.stream())
	if err != nil {
		cliutil.PrintError(fmt.Sprintf("status failed: %v", err))
		return err
	}

	w := g.out()
	_, _ = fmt.Fprintf(w, "stream:   %s\n", st.Stream)
	if st.Current == "" {
		_, _ = fmt.Fprintln(w, "current:  (none)")
	} else {
		_, _ = fmt.Fprintf(w, "current:  %s (%d bytes)\n", st.Current, st.CurrentSize)
	}
	_, _ = fmt.Fprintf(w, "segments: %d\n", len(st.Segments))
	if len(st.Segments) > 0 {
		_, _ = fmt.Fprintf(w, "  %s\n", strings.Join(st.Segments, "\n  "))
	}
	return nil
}

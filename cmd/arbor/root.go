package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Arbor edits branching dialogue trees",
	Long: `Arbor stores dialogue trees made of spoken lines and player choices.
Nodes are addressed by the IDs shown by 'arbor show'; IDs change as the tree is edited.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	cfg    = config.Default()
	logger = logging.NewNop()
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("config", config.DefaultPath, "Project configuration file")
	f.String("dir", "", "Directory holding the trees (file store)")
	f.String("store", "", "Tree store: file, redis or memory")
	f.String("format", "", "File store encoding: yaml or json")
	f.String("redis-addr", "", "Redis address (redis store)")
	f.String("log-level", "", "Log level: debug, info, warn or error")
	f.Bool("lock", false, "Lock the tree while it is edited")
}

// setup layers flags over the project file and builds the logger.
func setup(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	loaded, err := config.Load(path, flags.Changed("config"))
	if err != nil {
		return err
	}

	overrides := map[string]*string{
		"dir":        &loaded.Dir,
		"store":      &loaded.Store,
		"format":     &loaded.Format,
		"redis-addr": &loaded.Redis.Addr,
		"log-level":  &loaded.LogLevel,
	}
	for name, dst := range overrides {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	if flags.Changed("lock") {
		loaded.Lock.Enabled, _ = flags.GetBool("lock")
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logging.ParseLevel(loaded.LogLevel)
	if err != nil {
		return err
	}
	cfg = loaded
	logger = logging.New(level)
	return nil
}

// openEditor builds an editor over the configured backend. The returned func releases the backend.
func openEditor(opts ...arbor.Option) (*arbor.Editor, func(), error) {
	backend, err := cli.NewBackend(cfg)
	if err != nil {
		return nil, nil, err
	}
	all := append(backend.EditorOptions(cfg, logger), opts...)
	release := func() {
		if err := backend.Close(); err != nil {
			logger.Warn("failed to close backend", "err", err)
		}
	}
	return arbor.New(all...), release, nil
}

// openSession opens an existing, valid tree.
func openSession(cmd *cobra.Command, name string, opts ...arbor.Option) (*arbor.Session, func(), error) {
	ed, release, err := openEditor(opts...)
	if err != nil {
		return nil, nil, err
	}
	s, err := ed.Open(cmd.Context(), name)
	if err != nil {
		release()
		return nil, nil, err
	}
	closeAll := func() {
		if err := s.Close(cmd.Context()); err != nil {
			logger.Warn("failed to close session", "err", err)
		}
		release()
	}
	if s.Recovered {
		closeAll()
		if errors.Is(s.LoadErr, domain.ErrTreeNotFound) {
			return nil, nil, fmt.Errorf("tree %q not found, create it with 'arbor new %s'", name, name)
		}
		return nil, nil, fmt.Errorf("tree %q is invalid, see 'arbor validate %s': %w", name, name, s.LoadErr)
	}
	return s, closeAll, nil
}

// editTree applies fn to the named tree and saves it.
func editTree(cmd *cobra.Command, name string, fn func(s *arbor.Session) error) error {
	s, done, err := openSession(cmd, name)
	if err != nil {
		return err
	}
	defer done()
	if err := fn(s); err != nil {
		return err
	}
	return s.Save(cmd.Context())
}

// element resolves an ID argument against the current numbering of s.
func element(s *arbor.Session, arg string) (tree.Handle, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return tree.Handle{}, fmt.Errorf("invalid id %q", arg)
	}
	return schema.Lookup(s.Tree, id)
}

// idOf returns the ID h has after the edit, as shown by 'arbor show'.
func idOf(s *arbor.Session, h tree.Handle) int {
	ids, _ := schema.Assign(s.Tree)
	return ids[h]
}

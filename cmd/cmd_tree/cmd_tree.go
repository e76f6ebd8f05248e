// Package cmd_tree holds the tree maintenance commands.
package cmd_tree

import (
	"fmt"
	"strconv"

	"github.com/rskv-p/nested/mod"
	"github.com/rskv-p/nested/mod/m_tree"
	"github.com/rskv-p/nested/mod/m_tree/tree_core"
	"github.com/rskv-p/nested/mod/m_tree/tree_type"
	"github.com/rskv-p/nested/pkg/x_cfg"
	"github.com/rskv-p/nested/pkg/x_db"
	"github.com/rskv-p/nested/pkg/x_journal"
	"github.com/rskv-p/nested/pkg/x_log"

	"github.com/spf13/cobra"
)

// Register adds the tree commands to root.
func Register(root *cobra.Command) {
	root.AddCommand(
		newRebuildCmd(),
		newCheckCmd(),
		newPrintCmd(),
		newMoveCmd(),
		newPublishCmd(),
		newHistoryCmd(),
	)
}

//---------------------
// Environment
//---------------------

// env is everything a command needs, opened from the config file.
type env struct {
	cfg     *x_cfg.Config
	dao     *x_db.DAO
	journal *x_journal.Journal
	trees   *m_tree.TreeModule
}

func open(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := x_cfg.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	x_log.Init(cfg.LogConfig, "nested")

	e := &env{cfg: cfg}
	if e.dao, err = x_db.New(cfg.DB); err != nil {
		return nil, err
	}

	var opts []m_tree.Option
	if !cfg.Journal.Disabled && cfg.Journal.Path != "" {
		if e.journal, err = x_journal.Open(cfg.Journal.Path); err != nil {
			_ = e.dao.Close()
			return nil, err
		}
		opts = append(opts, m_tree.WithJournal(e.journal))
	}

	e.trees = m_tree.New(e.dao, opts...)
	for _, t := range cfg.Trees {
		err := e.trees.Register(t.Name, m_tree.TableConfig{
			Table:   t.Table,
			Columns: tree_type.Columns{Key: t.Key},
			Filter:  tree_type.Filter(t.Filter),
		})
		if err != nil {
			e.close()
			return nil, err
		}
	}
	if err := mod.Start(e.trees); err != nil {
		e.close()
		return nil, err
	}
	return e, nil
}

func (e *env) store(name string) (*tree_core.Store, error) {
	return e.trees.Store(name)
}

func (e *env) close() {
	if e.trees != nil {
		_ = mod.Stop(e.trees)
	}
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			x_log.Warn().Err(err).Msg("journal close failed")
		}
	}
	if e.dao != nil {
		if err := e.dao.Close(); err != nil {
			x_log.Warn().Err(err).Msg("db close failed")
		}
	}
	_ = x_log.Close()
}

// withStore opens the environment and the named tree for one command.
func withStore(cmd *cobra.Command, name string, fn func(*env, *tree_core.Store) error) error {
	e, err := open(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	s, err := e.store(name)
	if err != nil {
		return err
	}
	return fn(e, s)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"timewarp.dev/internal/persistence/indexdb"
	tlog "timewarp.dev/internal/persistence/log"
	"timewarp.dev/internal/persistence/recording"
	"timewarp.dev/internal/sim/session"
)

type searchOpts struct {
	inputs string
	target string
	dump   string
	runID  string
}

func newSearchCmd(a *app) *cobra.Command {
	var o searchOpts
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Plan a path to a target without committing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.search(cmd.Context(), o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.inputs, "inputs", "", "recording that leads to the start state")
	f.StringVar(&o.target, "target", "", "x,y point the player must reach")
	f.StringVar(&o.dump, "dump", "", "write the inputs up to the path's end to this recording file")
	f.StringVar(&o.runID, "run-id", "", "run id (default: random)")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func (a *app) search(ctx context.Context, o searchOpts) error {
	game, err := a.loadGame()
	if err != nil {
		return err
	}
	if o.runID == "" {
		o.runID = newRunID()
	}
	idx, err := indexdb.OpenSQLite(a.indexPath())
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()
	searches := tlog.NewSearchLogger(a.runDir(o.runID))
	defer searches.Close()

	w, err := a.newWorld(game)
	if err != nil {
		return err
	}
	sess, err := session.New(session.Config{World: w, Search: game.tune.Search, Logger: a.log})
	if err != nil {
		return err
	}
	if o.inputs != "" {
		rec, err := recording.Read(o.inputs)
		if err != nil {
			return err
		}
		if err := sess.Replay(rec); err != nil {
			return err
		}
	}
	if err := navigate(ctx, sess, searchRecorder{runID: o.runID, log: searches, idx: idx}, o.target); err != nil {
		return err
	}
	for _, p := range sess.LastPath() {
		fmt.Fprintf(os.Stdout, "%.2f,%.2f\n", p.X, p.Y)
	}
	if o.dump != "" {
		return recording.Write(o.dump, sess.Inputs())
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"timewarp.dev/internal/persistence/indexdb"
	tlog "timewarp.dev/internal/persistence/log"
	"timewarp.dev/internal/persistence/recording"
	"timewarp.dev/internal/sim/session"
	"timewarp.dev/internal/sim/world"
	"timewarp.dev/internal/transport/ws"
)

type runOpts struct {
	inputs   string
	targets  []string
	dump     string
	noSubmit bool
	runID    string
}

func newRunCmd(a *app) *cobra.Command {
	var o runOpts
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay recorded input in rewind mode, navigate to targets and commit the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.inputs, "inputs", "", "recording to replay first (.txt, .json, optionally .zst)")
	f.StringArrayVar(&o.targets, "navigate", nil, "x,y target to plan a path to after the inputs (repeatable)")
	f.StringVar(&o.dump, "dump", "", "write the session's inputs to this recording file")
	f.BoolVar(&o.noSubmit, "no-submit", false, "keep the timeline instead of committing it")
	f.StringVar(&o.runID, "run-id", "", "run id (default: random)")
	f.StringVar(&a.cfg.SubmitURL, "submit-url", a.cfg.SubmitURL, "websocket URL of the game server (empty: log only)")
	return cmd
}

func (a *app) run(ctx context.Context, o runOpts) error {
	game, err := a.loadGame()
	if err != nil {
		return err
	}
	if o.runID == "" {
		o.runID = newRunID()
	}
	log := a.log.With("run", o.runID)

	idx, err := indexdb.OpenSQLite(a.indexPath())
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()
	if err := idx.UpsertConfigs(game.maps, game.tune); err != nil {
		log.Warn("index configs", "err", err)
	}

	dir := a.runDir(o.runID)
	ticks := tlog.NewTickLogger(dir)
	defer ticks.Close()
	searches := tlog.NewSearchLogger(dir)
	defer searches.Close()

	w, err := a.newWorld(game)
	if err != nil {
		return err
	}
	cfg := session.Config{
		World:   w,
		Search:  game.tune.Search,
		TickLog: tickLogs{ticks, idx.Ticks(o.runID)},
		Logger:  log,
	}
	if a.cfg.SubmitURL != "" {
		client, err := ws.Dial(ctx, ws.ClientConfig{URL: a.cfg.SubmitURL, RunID: o.runID, Token: a.cfg.Token, Logger: log})
		if err != nil {
			return err
		}
		defer client.Close()
		cfg.Submitter = indexedSubmitter{next: client, idx: idx}
	}
	sess, err := session.New(cfg)
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
		log.Info("inputs replayed", "frames", len(rec), "tick", w.CurrentTick(), "map", w.Map())
	}

	rec := searchRecorder{runID: o.runID, log: searches, idx: idx}
	for _, t := range o.targets {
		if err := navigate(ctx, sess, rec, t); err != nil {
			return err
		}
	}

	if !o.noSubmit {
		n, err := sess.Submit(ctx)
		if err != nil {
			return err
		}
		log.Info("committed", "ticks", n)
	}
	if o.dump != "" {
		if err := recording.Write(o.dump, sess.Inputs()); err != nil {
			return err
		}
		log.Info("inputs written", "path", o.dump)
	}
	fmt.Fprintf(os.Stdout, "run %s\ntick %d map %s won=%t lost=%t\nstate %s\n%s\nlogs %s\n",
		o.runID, w.CurrentTick(), w.Map(), w.Won(), w.Lost(), w.StateHash(),
		sess.Status(session.Controls{}), filepath.Join(dir, "ticks"))
	return nil
}

// navigate plans a path to target and reports how it went. An unreachable
// target is not an error.
func navigate(ctx context.Context, sess *session.Session, rec searchRecorder, target string) error {
	p, err := parsePoint(target)
	if err != nil {
		return err
	}
	w := sess.World()
	from := w.Backup()
	res, err := sess.Navigate(ctx, p)
	if err != nil {
		if errors.Is(err, world.ErrNoPlayer) {
			return fmt.Errorf("navigate to %s: %w", target, err)
		}
		return err
	}
	if err := rec.record(from, p, res); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "navigate %s: %s, %d ticks, %d expanded in %s\n",
		target, res.Outcome, len(res.Path), res.Expanded, res.Elapsed)
	return nil
}

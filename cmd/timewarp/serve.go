package main

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/cobra"

	tlog "timewarp.dev/internal/persistence/log"
	"timewarp.dev/internal/protocol"
	"timewarp.dev/internal/transport/ws"
)

// receivedLog writes accepted game info per run under the data directory.
type receivedLog struct {
	dir     string
	writers map[string]*tlog.JSONLZstdWriter
}

func (r *receivedLog) Accept(runID string, msg protocol.GameInfoMsg) error {
	w := r.writers[runID]
	if w == nil {
		w = tlog.NewJSONLZstdWriter(filepath.Join(r.dir, runID), "game_info")
		r.writers[runID] = w
	}
	return w.Write(msg)
}

func (r *receivedLog) Close() {
	for _, w := range r.writers {
		_ = w.Close()
	}
}

func newServeCmd(a *app) *cobra.Command {
	var (
		addr       string
		schemasDir string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a game server endpoint that accepts submitted ticks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var schema *jsonschema.Schema
			if schemasDir != "" {
				s, err := jsonschema.Compile(filepath.Join(schemasDir, "game_info.schema.json"))
				if err != nil {
					return err
				}
				schema = s
			}
			// Accept is called with the server's run lock held.
			sink := &receivedLog{dir: filepath.Join(a.cfg.DataDir, "received"), writers: map[string]*tlog.JSONLZstdWriter{}}
			defer sink.Close()

			mux := http.NewServeMux()
			mux.Handle("/v1/ws", ws.NewServer(sink, schema, a.log).Handler())
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok\n"))
			})
			srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			a.log.Info("listening", "addr", addr)

			select {
			case <-cmd.Context().Done():
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", ":8088", "listen address")
	f.StringVar(&schemasDir, "schemas", "./schemas", "directory with the protocol JSON schemas (empty: skip validation)")
	return cmd
}

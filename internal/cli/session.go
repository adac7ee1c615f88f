package cli

import (
	"context"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/figbridge/internal/config"
	"github.com/roach88/figbridge/internal/journal"
	"github.com/roach88/figbridge/internal/relay"
	"github.com/roach88/figbridge/internal/transport"
)

// journalFile is the journal's file name under the temp root.
const journalFile = "figbridge.db"

// session is one hosted bridge: a relay, the HTTP server the plugin polls,
// and the orphan reaper.
type session struct {
	cfg    config.Config
	logger *slog.Logger
	relay  *relay.Relay
	server *transport.Server
}

// openSession binds the listener so the port is known to be free before
// the operator is told to start the plugin.
func openSession(cfg config.Config, logger *slog.Logger) (*session, error) {
	rl := relay.New(relay.WithLogger(logger))
	srv := transport.NewServer(transport.NewHandler(rl, cfg.LivenessWindow, logger), logger)
	if err := srv.Listen(cfg.Addr()); err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, relay: rl, server: srv}, nil
}

// run serves the bridge and calls fn once. The server stops when fn
// returns; a server failure cancels fn's context.
func (s *session) run(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(s.server.Serve)
	g.Go(func() error {
		s.relay.RunReaper(gctx, s.cfg.ReapInterval, s.cfg.ReapMaxAge)
		return nil
	})
	g.Go(func() error {
		defer cancel()
		defer func() {
			if err := s.server.Stop(context.Background()); err != nil {
				s.logger.Warn("stopping bridge server", "error", err)
			}
		}()
		return fn(gctx)
	})
	return g.Wait()
}

// waitForPlugin blocks until the plugin polls.
func (s *session) waitForPlugin(ctx context.Context) error {
	return s.relay.WaitForPeer(ctx, s.cfg.WaitPlugin, s.cfg.LivenessWindow)
}

// openJournal opens the configured journal. It returns nil when the journal
// is disabled.
func openJournal(cfg config.Config, tempRoot string) (*journal.Journal, error) {
	path := cfg.Journal
	switch path {
	case config.JournalDisabled:
		return nil, nil
	case "":
		path = filepath.Join(tempRoot, journalFile)
	}
	return journal.Open(path)
}

package daemon

import (
	"context"

	"github.com/matheus3301/chatsync/internal/api"
	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/call"
	"github.com/matheus3301/chatsync/internal/config"
	"github.com/matheus3301/chatsync/internal/inbox"
	"github.com/matheus3301/chatsync/internal/lock"
	"github.com/matheus3301/chatsync/internal/logging"
	"github.com/matheus3301/chatsync/internal/outbox"
	"github.com/matheus3301/chatsync/internal/profile"
	"github.com/matheus3301/chatsync/internal/relation"
	"github.com/matheus3301/chatsync/internal/session"
	"github.com/matheus3301/chatsync/internal/status"
	"github.com/matheus3301/chatsync/internal/store"
	intsync "github.com/matheus3301/chatsync/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	Config      *config.Config
	SocketPath  string // optional override for testing; empty = use default
	StorePath   string // optional override; empty = config, then the shared default
	Logger      *zap.Logger
}

func (p Params) storePath() string {
	if p.StorePath != "" {
		return p.StorePath
	}
	return session.ResolveStore(p.Config)
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	if p.Config == nil {
		p.Config = config.Default()
	}
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideDirectory,
			provideGuard,
			provideAggregator,
			provideCallService,
			provideSyncEngine,
			provideSender,
			provideSessionService,
			provideProfileService,
			provideConversationService,
			provideMessageService,
			provideCallAPI,
			provideRelationshipService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	if p.Logger != nil {
		return p.Logger, nil
	}
	return logging.New(session.LogPath(p.SessionName), p.SessionName, p.Config.Level())
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName), p.SessionName)
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideStore(p Params, m *status.Machine, b *bus.Bus, logger *zap.Logger) (*store.DB, error) {
	dbPath := p.storePath()
	db, err := store.Open(dbPath,
		store.WithBus(b),
		store.WithPollInterval(p.Config.Poll()),
		store.WithLogger(logger.Named("store")),
	)
	if err != nil {
		_ = m.Transition(status.Error, err.Error())
		return nil, err
	}
	_ = m.Transition(status.Migrating, dbPath)
	result, err := db.Migrate()
	if err != nil {
		_ = m.Transition(status.Error, err.Error())
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath), zap.Duration("poll", p.Config.Poll()))
	return db, nil
}

func provideDirectory(db *store.DB, logger *zap.Logger) *profile.Directory {
	return profile.NewDirectory(db, logger.Named("profile"))
}

func provideGuard(db *store.DB, logger *zap.Logger) *relation.Guard {
	return relation.NewGuard(db, logger.Named("relation"))
}

func provideAggregator(db *store.DB, dir *profile.Directory, b *bus.Bus, logger *zap.Logger) *inbox.Aggregator {
	return inbox.NewAggregator(db, dir, b, logger.Named("inbox"))
}

func provideCallService(db *store.DB, dir *profile.Directory, guard *relation.Guard, logger *zap.Logger) *call.Service {
	return call.NewService(db, dir, guard, logger.Named("call"))
}

func provideSyncEngine(db *store.DB, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(db, logger.Named("sync"))
}

func provideSender(db *store.DB, guard *relation.Guard, agg *inbox.Aggregator, b *bus.Bus, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(db, guard, agg, b, logger.Named("outbox"))
}

func provideSessionService(p Params, m *status.Machine, agg *inbox.Aggregator) *api.SessionService {
	return api.NewSessionService(p.SessionName, p.storePath(), m, agg)
}

func provideProfileService(p Params, dir *profile.Directory) *api.ProfileService {
	return api.NewProfileService(p.SessionName, dir)
}

func provideConversationService(p Params, agg *inbox.Aggregator, b *bus.Bus) *api.ConversationService {
	return api.NewConversationService(p.SessionName, agg, b)
}

func provideMessageService(p Params, sender *outbox.Sender, engine *intsync.Engine) *api.MessageService {
	return api.NewMessageService(p.SessionName, sender, engine)
}

func provideCallAPI(p Params, calls *call.Service) *api.CallService {
	return api.NewCallService(p.SessionName, calls)
}

func provideRelationshipService(p Params, guard *relation.Guard) *api.RelationshipService {
	return api.NewRelationshipService(p.SessionName, guard)
}

func registerLifecycle(lc fx.Lifecycle, p Params, srv *Server, lk *lock.Lock, db *store.DB, agg *inbox.Aggregator, machine *status.Machine, b *bus.Bus, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	var watchDone chan struct{}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if _, err := agg.Start(ctx, p.SessionName); err != nil {
				return err
			}

			watchDone = make(chan struct{})
			go watchHealth(ctx, b, machine, logger, watchDone)

			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			_ = machine.Transition(status.Ready, "serving "+p.SessionName)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			_ = machine.Transition(status.Stopping, "shutdown")
			srv.Stop(stopCtx)
			agg.Stop()
			cancel()
			if watchDone != nil {
				<-watchDone
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}

// watchHealth marks the daemon degraded when the conversation streams fail.
// Change streams do not resubscribe, so it stays degraded until restart.
func watchHealth(ctx context.Context, b *bus.Bus, machine *status.Machine, logger *zap.Logger, done chan<- struct{}) {
	defer close(done)
	ch, unsub := b.Subscribe(inbox.StreamFailedKind, 4)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			reason := "conversation stream failed"
			if err, ok := evt.Payload.(error); ok {
				reason = err.Error()
			}
			if err := machine.Transition(status.Degraded, reason); err != nil {
				logger.Debug("status not changed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

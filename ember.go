package ember

import (
	"context"
	"errors"
	"log/slog"
	"net"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/indigo-web/ember/config"
	"github.com/indigo-web/ember/internal/protocol/http1"
	"github.com/indigo-web/ember/router"
	"github.com/indigo-web/ember/transport"
	"golang.org/x/sync/errgroup"
)

var ErrNoListeners = errors.New("no listeners were added")

// adminShutdownTimeout limits waiting for in-flight admin requests on stop.
const adminShutdownTimeout = 5 * time.Second

// App serves the routes of the manager over the added listeners.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	manager   *router.Manager
	hooks     hooks
	listeners []listener
	started   time.Time

	mu     sync.Mutex
	addrs  []net.Addr
	cancel context.CancelFunc
}

// New returns a new App instance. If nil is passed instead of a manager, an empty one is
// used, answering 404 to everything.
func New(manager *router.Manager) *App {
	if manager == nil {
		manager = router.New()
	}

	return &App{
		cfg:     config.Default(),
		logger:  slog.Default(),
		manager: manager,
	}
}

// Tune replaces the default config.
func (a *App) Tune(cfg *config.Config) *App {
	a.cfg = cfg
	return a
}

// Logger replaces the default logger.
func (a *App) Logger(logger *slog.Logger) *App {
	a.logger = logger
	return a
}

// NotifyOnStart calls the callback once all the listeners are bound, so they accept
// connections.
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.OnStart = cb
	return a
}

// NotifyOnStop calls the callback once all the listeners are down and all the connections
// are closed.
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.OnStop = cb
	return a
}

// Listen adds listeners at the addr. If no transports are passed, plain TCP is used.
func (a *App) Listen(addr string, transports ...Transport) *App {
	if len(transports) == 0 {
		transports = []Transport{TCP()}
	}

	for _, t := range transports {
		a.listeners = append(a.listeners, listener{addr: addr, transport: t})
	}

	return a
}

// Addrs returns the addresses of bound listeners. It's meaningful only after the start.
func (a *App) Addrs() []net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.addrs
}

// Serve binds all the listeners and serves them, along with the admin endpoint if it's
// enabled, until either the context is done, Stop is called or any listener fails.
func (a *App) Serve(ctx context.Context) error {
	if len(a.listeners) == 0 {
		return ErrNoListeners
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	sv := transport.NewSupervisor()
	handler := http1.NewHandler(a.cfg, a.manager, a.logger)

	for _, l := range a.listeners {
		if l.transport.error != nil {
			return l.transport.error
		}

		if err := sv.Add(l.addr, l.transport.inner, handler); err != nil {
			return err
		}
	}

	a.collectAddrs()
	a.started = time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// listeners stopping on their own take the admin endpoint down as well
		defer cancel()
		return sv.Run(ctx, a.cfg.NET)
	})

	if len(a.cfg.Admin.Addr) > 0 {
		admin := &stdhttp.Server{
			Addr:              a.cfg.Admin.Addr,
			Handler:           a.adminRouter(),
			ReadHeaderTimeout: a.cfg.NET.ReadTimeout,
		}

		g.Go(func() error {
			a.logger.Info("serving admin endpoint", "addr", admin.Addr)
			if err := admin.ListenAndServe(); !errors.Is(err, stdhttp.ErrServerClosed) {
				return err
			}

			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), adminShutdownTimeout)
			defer cancel()

			return admin.Shutdown(shutdownCtx)
		})
	}

	a.logger.Info("serving", "listeners", len(a.listeners), "routes", len(a.manager.Routes()))
	callIfNotNil(a.hooks.OnStart)
	err := g.Wait()
	callIfNotNil(a.hooks.OnStop)
	a.logger.Info("stopped", "error", err)

	return err
}

// Stop stops the application. All the connections are closed, but the call doesn't
// wait for it.
func (a *App) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (a *App) collectAddrs() {
	type addressable interface {
		Addr() net.Addr
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.addrs = a.addrs[:0]
	for _, l := range a.listeners {
		if t, ok := l.transport.inner.(addressable); ok {
			a.addrs = append(a.addrs, t.Addr())
		}
	}
}

type listener struct {
	addr      string
	transport Transport
}

type hooks struct {
	OnStart, OnStop func()
}

func callIfNotNil(f func()) {
	if f != nil {
		f()
	}
}

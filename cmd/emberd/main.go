// Command emberd runs a demo ember server: a few routes showing routing by every
// dimension, request body streaming and CONNECT tunnelling.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/indigo-web/ember"
	"github.com/indigo-web/ember/config"
	"github.com/indigo-web/ember/conn"
	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/http/method"
	"github.com/indigo-web/ember/http/mime"
	"github.com/indigo-web/ember/http/status"
	"github.com/indigo-web/ember/router"
)

const dialTimeout = 10 * time.Second

func main() {
	var (
		configPath = flag.String("config", "", "path to the YAML config, overrides "+config.EnvPath)
		addr       = flag.String("addr", ":8080", "address to serve HTTP at")
		httpsAddr  = flag.String("https", "", "address to serve HTTPS with a self-signed certificate at")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	app := ember.New(routes(logger)).
		Tune(cfg).
		Logger(logger).
		Listen(*addr)

	if len(*httpsAddr) > 0 {
		app.Listen(*httpsAddr, ember.AutoHTTPS())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = app.Serve(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func routes(logger *slog.Logger) *router.Manager {
	m := router.New()

	m.Route().Get("/").MustHandle(func(ctx *router.Context) {
		_ = ctx.EndString("Hello, world!")
	})

	m.Route().Get("/users/:id").Produces(mime.JSON).MustHandle(func(ctx *router.Context) {
		_ = ctx.JSON(map[string]string{"id": ctx.Param("id")})
	})

	m.Route().Get("/users/:id").Produces(mime.Plain).MustHandle(func(ctx *router.Context) {
		_ = ctx.EndString("user " + ctx.Param("id"))
	})

	m.Route().Get("/static/*").MustHandle(func(ctx *router.Context) {
		_ = ctx.Error(status.NewError(status.NotFound, "no such file: "+ctx.Param("param0")))
	})

	m.Route().Post("/echo").MustHandle(func(ctx *router.Context) {
		if contentType := ctx.Request().ContentType(); len(contentType) > 0 {
			ctx.SetHeader("Content-Type", contentType)
		}

		ctx.OnContent(func(piece []byte) {
			_, _ = ctx.Write(piece)
		})
		ctx.OnContentComplete(func(*http.Request) {
			_ = ctx.End()
		})
	})

	m.Route().Method(method.CONNECT).MustHandle(tunnel(logger))

	return m
}

// tunnel serves CONNECT by relaying bytes between the client and the requested host.
func tunnel(logger *slog.Logger) router.Handler {
	return func(ctx *router.Context) {
		target := ctx.Request().Path
		upstream, err := net.DialTimeout("tcp", target, dialTimeout)
		if err != nil {
			_ = ctx.Error(status.NewError(status.BadGateway, err.Error()))
			return
		}

		t, err := ctx.Tunnel()
		if err != nil {
			logger.Error("failed to switch to tunnel", "target", target, "error", err)
			_ = upstream.Close()
			return
		}

		relay(t, upstream)
	}
}

func relay(t *conn.Tunnel, upstream net.Conn) {
	t.OnReceive(func(data []byte) {
		if _, err := upstream.Write(data); err != nil {
			_ = t.Close()
		}
	})
	t.OnClose(func(error) {
		_ = upstream.Close()
	})

	go func() {
		buff := make([]byte, 4096)
		for {
			n, err := upstream.Read(buff)
			if n > 0 {
				t.Write(append([]byte(nil), buff[:n]...), nil)
			}

			if err != nil {
				if err != io.EOF {
					slog.Debug("upstream read failed", "error", err)
				}

				_ = t.Close()
				return
			}
		}
	}()
}

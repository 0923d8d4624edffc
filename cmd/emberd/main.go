// Command emberd serves a couple of demo endpoints, showing the server wired together with
// the ready-made filters.
package main

import (
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/indigo-web/ember"
	"github.com/indigo-web/ember/config"
	"github.com/indigo-web/ember/filter"
	"github.com/indigo-web/ember/http"
	"github.com/indigo-web/ember/http/codec"
	"github.com/indigo-web/ember/http/method"
	"github.com/indigo-web/ember/http/status"
	"go.uber.org/zap"
)

type greeting struct {
	Name    string `json:"name"`
	Message string `json:"message,omitempty"`
}

func handler(env *http.Env) (*http.Response, error) {
	switch env.Path {
	case "/":
		return http.Respond(status.OK, "Hello, world!"), nil
	case "/echo":
		body, err := io.ReadAll(env.Body)
		if err != nil {
			return nil, err
		}

		resp := http.NewResponse(status.OK).Bytes(body)
		if len(env.ContentType) > 0 {
			resp.Header("Content-Type", env.ContentType)
		}

		return resp, nil
	case "/greet":
		var g greeting
		if err := env.DecodeJSON(&g); err != nil {
			return http.Respond(status.BadRequest, "bad json: "+err.Error()), nil
		}

		g.Message = "Hello, " + g.Name + "!"
		env.Log.Debug("greeting", zap.String("name", g.Name))

		return http.JSON(status.OK, g)
	default:
		return http.Respond(status.NotFound, status.Text(status.NotFound)), nil
	}
}

func main() {
	configPath := flag.String("config", "", "path to a JSON config overlaying the defaults")
	addr := flag.String("addr", "localhost:8080", "address to listen at")
	flag.Parse()

	cfg := config.Default()
	if len(*configPath) > 0 {
		var err error
		if cfg, err = config.FromFile(*configPath); err != nil {
			log.Fatalf("emberd: %s", err)
		}
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("emberd: %s", err)
	}

	defer func() {
		_ = logger.Sync()
	}()

	requestID := filter.NewRequestID()
	app := ember.New(*addr).
		Tune(cfg).
		Logger(logger).
		Ingress(
			filter.Methods(method.GET, method.POST),
			requestID,
			filter.NewDecompress(int64(cfg.NET.MaxBufferSize), codec.NewGZIP(), codec.NewDeflate(), codec.NewZSTD()),
		).
		Egress(
			requestID,
			filter.NewCompress(codec.NewZSTD(), codec.NewGZIP(), codec.NewDeflate()),
		)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		logger.Info("shutting down gracefully, repeat to force")
		app.GracefulStop()
		<-signals
		app.Stop()
	}()

	if err := app.Serve(handler); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

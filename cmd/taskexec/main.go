// Command taskexec is the interactive task executor (§1): it reads
// commands from stdin, supervises the child programs they launch, and
// reports their lifecycle on stdout, one line per event.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/taskexec/taskexec/internal/api"
	"github.com/taskexec/taskexec/internal/diag"
	"github.com/taskexec/taskexec/internal/shellio"
	"github.com/taskexec/taskexec/internal/supervisor"
)

func main() {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.OutputPaths = []string{"stderr"}
	logConfig.ErrorOutputPaths = []string{"stderr"}
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	logConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if lvl := os.Getenv("TASKEXEC_LOG_LEVEL"); lvl != "" {
		if err := logConfig.Level.UnmarshalText([]byte(lvl)); err != nil {
			logConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}
	}
	log := zap.Must(logConfig.Build())
	defer log.Sync()
	log = log.Named("taskexec")

	sup := supervisor.New(log)

	var httpServer *http.Server
	if addr := os.Getenv("TASKEXEC_HTTP_ADDR"); addr != "" {
		httpServer = api.NewServer(addr, log.Named("api"), sup)
		go func() {
			log.Info("introspection server listening", zap.String("addr", addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("introspection server failed", zap.Error(err))
			}
		}()
	}

	dispatcher := supervisor.NewDispatcher(sup)
	reader := shellio.NewLineReader(os.Stdin)

	// A termination signal aimed at the controller itself is handled like
	// end-of-input: reap every child and exit 0, rather than leaving
	// orphaned processes behind.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM)
	go func() {
		<-sigc
		sup.Quit()
		os.Exit(0)
	}()

	for {
		line, ok, err := reader.ReadLine()
		if err != nil {
			fatal(log, httpServer, err)
		}
		if !ok {
			dispatcher.Dispatch("", true)
			shutdownHTTP(httpServer)
			os.Exit(0)
		}
		if dispatcher.Dispatch(line, false) {
			shutdownHTTP(httpServer)
			os.Exit(0)
		}
	}
}

func shutdownHTTP(s *http.Server) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.Shutdown(ctx)
}

func fatal(log *zap.Logger, s *http.Server, err error) {
	diag.PrintErrChain(err)
	log.Error("fatal", zap.Error(err))
	shutdownHTTP(s)
	os.Exit(1)
}

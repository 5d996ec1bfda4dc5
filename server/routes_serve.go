// routes_serve.go - Server-Start und Lifecycle-Management
// Enthaelt: Serve() - Hauptfunktion zum Starten des HTTP-Servers

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/moliushang/gqcnn/envconfig"
	"github.com/moliushang/gqcnn/logutil"
	"github.com/moliushang/gqcnn/registry"
	"github.com/moliushang/gqcnn/version"
)

// Serve startet den HTTP-Server ueber dem gegebenen Listener.
func Serve(ln net.Listener) error {
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
	slog.Info("server config", "env", envconfig.Values())

	store, err := registry.Open(envconfig.Registry())
	if err != nil {
		return err
	}
	defer store.Close()

	s := &Server{addr: ln.Addr(), store: store}
	h, err := s.GenerateRoutes()
	if err != nil {
		return err
	}

	ctx, done := context.WithCancel(context.Background())
	defer done()

	slog.Info(fmt.Sprintf("Listening on %s (version %s)", ln.Addr(), version.Version))
	srvr := &http.Server{Handler: h}

	// Bei ctrl+c sauber herunterfahren und die Registry schliessen
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		srvr.Close()
		done()
	}()

	err = srvr.Serve(ln)
	// Wurde der Server vom Signal-Handler geschlossen, auf den Kontext warten
	if errors.Is(err, http.ErrServerClosed) {
		<-ctx.Done()
		return nil
	}
	return err
}

package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/piper-ml/piper/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve loads the classifier artifacts and runs the HTTP service.
//
// Startup is fatal without both artifacts: the service must not answer
// health checks it cannot back with a loaded model.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}
	if host := cmd.String("host"); host != "" {
		r.config.Server.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		r.config.Server.Port = int(port)
	}

	classifier, err := r.loadClassifier()
	if err != nil {
		return err
	}

	app := server.NewApp(r.engine(classifier), r.config, r.logger)
	srv := &http.Server{
		Addr:    r.config.Addr(),
		Handler: app.NewRouter(),
	}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	r.logger.Info("serving", "addr", r.config.Addr(), "version", Version)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KaramelBytes/winelens/internal/dashboard"
	"github.com/KaramelBytes/winelens/internal/loader"
	"github.com/KaramelBytes/winelens/internal/store"
	"github.com/KaramelBytes/winelens/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	srvAddr string
	srvData string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := currentConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			c.Addr = srvAddr
		}
		if cmd.Flags().Changed("data") {
			c.DefaultDataPath = srvData
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, c.Addr, c.DefaultDataPath)
	},
}

// serve runs the dashboard until ctx is cancelled.
func serve(ctx context.Context, addr, defaultData string) error {
	st, err := store.New(cfg.DataDir)
	if err != nil {
		return err
	}
	if defaultData != "" {
		if defaultData, err = utils.ExpandHome(defaultData); err != nil {
			return err
		}
	}
	opt := loader.DefaultOptions()
	if cfg.MaxRows > 0 {
		opt.MaxRows = cfg.MaxRows
	}
	srv, err := dashboard.New(dashboard.Options{
		DefaultDataPath: defaultData,
		MaxUploadBytes:  cfg.MaxUploadBytes(),
		HistogramBins:   cfg.HistogramBins,
		Load:            opt,
	}, st, logger.Named("http"))
	if err != nil {
		return fmt.Errorf("build dashboard: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	hs := &http.Server{
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeoutSec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("dashboard listening",
			zap.String("addr", ln.Addr().String()),
			zap.String("uploads", st.Root()),
			zap.String("default_data", defaultData))
		fmt.Printf("✓ Serving winelens on http://%s\n", ln.Addr())
		if err := hs.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return hs.Shutdown(shutdownCtx)
	})
	if ttl := cfg.UploadTTL(); ttl > 0 {
		g.Go(func() error {
			pruneUploads(gctx, st, ttl, time.Hour)
			return nil
		})
	}
	return g.Wait()
}

// pruneUploads deletes expired uploads now and then every interval until ctx ends.
func pruneUploads(ctx context.Context, st *store.Store, ttl, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		n, err := st.Prune(ttl)
		if err != nil {
			logger.Warn("prune uploads", zap.Error(err))
		} else if n > 0 {
			logger.Info("pruned uploads", zap.Int("removed", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (overrides config addr)")
	serveCmd.Flags().StringVar(&srvData, "data", "", "default data file shown when nothing is uploaded")
}

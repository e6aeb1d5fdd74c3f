package cli

import (
	"context"
	"fmt"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"

	"github.com/deevus/carbon-tui/app"
	"github.com/deevus/carbon-tui/internal"
	"github.com/deevus/carbon-tui/internal/metrics"
	"github.com/deevus/carbon-tui/internal/notify"
)

// runTUI starts the full-screen UI for the selected profile. The connection
// is checked in the background so the UI comes up immediately.
func runTUI(ctx context.Context, o *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	name, prof, err := o.resolve()
	if err != nil {
		return err
	}
	cfg := o.cfg

	log, logCloser, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.WithError(err).WithField("addr", cfg.MetricsAddr).Error("metrics server stopped")
			}
		}()
	}

	svc, connCloser, err := o.connect(prof, log)
	if err != nil {
		return err
	}
	defer connCloser.Close()

	position, err := notify.ParsePosition(cfg.UI.NotificationPosition)
	if err != nil {
		return err
	}
	notifier := notify.New(notify.Options{
		Position:        position,
		Dismissible:     true,
		DefaultDuration: cfg.UI.NotificationTimeout,
		Log:             log,
	})

	root := app.New(app.Params{
		ServerName:      name,
		Role:            prof.Role,
		UserID:          prof.UserID,
		StaleTTL:        cfg.UI.StaleTTL,
		PageSize:        prof.PageSize,
		Notifier:        notifier,
		RefreshSchedule: cfg.UI.RefreshSchedule,
		Log:             log,
		Connect: func(ctx context.Context) (*internal.Services, error) {
			if err := probe(ctx, svc, prof, o.now()); err != nil {
				return nil, err
			}
			return svc, nil
		},
	})
	defer root.Close()

	vxApp, err := vxfw.NewApp(vaxis.Options{})
	if err != nil {
		return fmt.Errorf("starting terminal: %w", err)
	}
	root.SetPostEvent(vxApp.PostEvent)

	log.WithField("profile", name).Info("starting")
	return vxApp.Run(root)
}

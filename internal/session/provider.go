package session

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/polzovatel/paged-sum-solver/internal/browser"
	"github.com/polzovatel/paged-sum-solver/internal/config"
)

// ErrSessionUnavailable wraps every failure to hand out a ready problem page.
var ErrSessionUnavailable = errors.New("session unavailable")

// ControllerFactory is satisfied by *browser.Launcher.
type ControllerFactory interface {
	NewController(ctx context.Context, storagePath string) (browser.Controller, error)
}

// Provider hands the solver an authenticated page already showing the problem.
type Provider struct {
	factory ControllerFactory
	cfg     config.Config
	logger  zerolog.Logger
}

func NewProvider(factory ControllerFactory, cfg config.Config, logger zerolog.Logger) *Provider {
	return &Provider{factory: factory, cfg: cfg, logger: logger}
}

// Open returns a controller navigated to the problem page. The caller owns Close.
func (p *Provider) Open(ctx context.Context, problemID string) (browser.Controller, error) {
	storage := p.cfg.Browser.StorageState
	if storage != "" {
		if _, err := os.Stat(storage); err == nil {
			p.logger.Info().Str("path", storage).Msg("loading stored session")
		} else {
			p.logger.Info().Str("path", storage).Msg("no stored session")
		}
	}

	ctrl, err := p.factory.NewController(ctx, storage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionUnavailable, err)
	}
	if err := p.prepare(ctx, ctrl, problemID); err != nil {
		_ = ctrl.Close(ctx)
		return nil, err
	}
	return ctrl, nil
}

func (p *Provider) prepare(ctx context.Context, ctrl browser.Controller, problemID string) error {
	site := p.cfg.Site
	timeouts := p.cfg.Timeouts
	if err := ctrl.Navigate(ctx, site.BaseURL, timeouts.NavigationTimeout()); err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrSessionUnavailable, site.BaseURL, err)
	}
	if err := p.ensureLogin(ctx, ctrl); err != nil {
		return err
	}
	url := site.ProblemURL(problemID)
	p.logger.Info().Str("url", url).Msg("opening problem page")
	if err := ctrl.Navigate(ctx, url, timeouts.NavigationTimeout()); err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrSessionUnavailable, url, err)
	}
	return nil
}

// ensureLogin checks for the logged-in marker and otherwise waits for the operator to log in by hand.
func (p *Provider) ensureLogin(ctx context.Context, ctrl browser.Controller) error {
	marker := p.cfg.Selectors.LoggedIn
	timeouts := p.cfg.Timeouts
	err := ctrl.WaitFor(ctx, marker, timeouts.LoginCheckTimeout())
	if err == nil {
		p.logger.Info().Msg("already logged in")
		return nil
	}
	if !errors.Is(err, browser.ErrTimeout) {
		return fmt.Errorf("%w: login check: %v", ErrSessionUnavailable, err)
	}

	p.logger.Warn().
		Dur("wait", timeouts.LoginWaitTimeout()).
		Msg("not logged in, log in manually in the browser window")
	if err := ctrl.WaitFor(ctx, marker, timeouts.LoginWaitTimeout()); err != nil {
		return fmt.Errorf("%w: login not completed: %v", ErrSessionUnavailable, err)
	}
	p.logger.Info().Msg("login detected")

	if path := p.cfg.Browser.StorageState; path != "" {
		if err := ctrl.SaveState(ctx, path); err != nil {
			p.logger.Error().Err(err).Str("path", path).Msg("save session")
		} else {
			p.logger.Info().Str("path", path).Msg("session saved")
		}
	}
	return nil
}

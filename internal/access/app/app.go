package app

import (
	"context"
	"fmt"
	"time"

	"github.com/accesscore/accessd/internal/access/api/server"
	rr "github.com/accesscore/accessd/internal/access/repository/rolerepo/postgres"
	ur "github.com/accesscore/accessd/internal/access/repository/userrepo/postgres"
	"github.com/accesscore/accessd/internal/access/services/authservice"
	"github.com/accesscore/accessd/internal/access/services/directoryservice"
	"github.com/accesscore/accessd/internal/pkg/config"
	"github.com/accesscore/accessd/pkg/logger"
)

type Server interface {
	Start(context.Context) error
	Shutdown(context.Context) error
}

type AccessApp struct {
	s   Server
	lg  logger.Logger
	cfg config.Config
}

func New(ctx context.Context, cfg config.Config) (AccessApp, error) {
	lg, err := logger.New(cfg.Logger)
	if err != nil {
		return AccessApp{}, fmt.Errorf("can't get logger error: %w", err)
	}

	userRepo, err := ur.New(ctx, cfg.PostgresDB)
	if err != nil {
		return AccessApp{}, fmt.Errorf("postgres user repo initializing error: %w", err)
	}

	roleRepo, err := rr.New(ctx, cfg.PostgresDB)
	if err != nil {
		return AccessApp{}, fmt.Errorf("postgres role repo initializing error: %w", err)
	}

	authService, err := authservice.New(userRepo, cfg.Auth)
	if err != nil {
		return AccessApp{}, fmt.Errorf("auth service initializing error: %w", err)
	}

	directoryService := directoryservice.New(userRepo, roleRepo, cfg.Defaults, lg)

	if err := directoryService.Bootstrap(ctx); err != nil {
		return AccessApp{}, fmt.Errorf("bootstrap default roles error: %w", err)
	}

	lg.Infof("known scopes: %v", directoryService.ScopeCatalog(ctx))

	s := server.New(cfg.Server, authService, directoryService, lg)

	return AccessApp{
		s:   s,
		lg:  lg,
		cfg: cfg,
	}, nil
}

func (aa *AccessApp) Run(ctx context.Context) {
	aa.lg.Infof("STARTED SERVER ON %s", aa.cfg.Server.Addr)

	go func() {
		if err := aa.s.Start(ctx); err != nil {
			aa.lg.Errorf("server start error: %s", err.Error())
			ctx.Done()

			return
		}
	}()

	<-ctx.Done()

	ctxS, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	if err := aa.Stop(ctxS); err != nil { //nolint:contextcheck
		aa.lg.Errorf("server shutdown error: %s", err.Error())
	}
}

func (aa *AccessApp) Stop(ctx context.Context) error {
	if err := aa.s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	aa.lg.Info("Shutdowned successfully")

	return nil
}

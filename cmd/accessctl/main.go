package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	rr "github.com/accesscore/accessd/internal/access/repository/rolerepo/postgres"
	ur "github.com/accesscore/accessd/internal/access/repository/userrepo/postgres"
	"github.com/accesscore/accessd/internal/access/services/directoryservice"
	"github.com/accesscore/accessd/internal/pkg/config"
	"github.com/accesscore/accessd/pkg/logger"
)

const usage = `usage: accessctl -config <path> <command>

commands:
  init-db       apply migrations and seed the default roles and scopes
  create-admin  create an enabled user holding the basic and admin roles
                (-username, -password, -first, -last)
`

func main() {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to configuration file")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.New(configPath)
	if err != nil {
		log.Fatal(err)
	}

	interruptSignals := []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}

	ctx, cancel := signal.NotifyContext(context.Background(), interruptSignals...)
	defer cancel()

	lg, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatal(err)
	}

	userRepo, err := ur.New(ctx, cfg.PostgresDB)
	if err != nil {
		log.Fatalf("postgres user repo initializing error: %v", err)
	}

	roleRepo, err := rr.New(ctx, cfg.PostgresDB)
	if err != nil {
		log.Fatalf("postgres role repo initializing error: %v", err)
	}

	ds := directoryservice.New(userRepo, roleRepo, cfg.Defaults, lg)

	switch flag.Arg(0) {
	case "init-db":
		if err := ds.Bootstrap(ctx); err != nil {
			log.Fatalf("init db error: %v", err)
		}

		lg.Info("Default roles and scopes created successfully")
	case "create-admin":
		if err := createAdmin(ctx, ds, cfg, flag.Args()[1:]); err != nil {
			log.Fatalf("create admin error: %v", err)
		}

		lg.Info("Admin user created successfully")
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func createAdmin(ctx context.Context, ds *directoryservice.DirectoryService, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	username := fs.String("username", "", "admin username")
	password := fs.String("password", "", "admin password")
	firstName := fs.String("first", "", "first name")
	lastName := fs.String("last", "", "last name")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags error: %w", err)
	}

	if *username == "" || *password == "" {
		return fmt.Errorf("username and password are required")
	}

	if _, err := ds.RegisterUser(ctx, directoryservice.RegisterUserRequest{
		Username:  *username,
		Password:  *password,
		FirstName: *firstName,
		LastName:  *lastName,
	}); err != nil {
		return fmt.Errorf("register user error: %w", err)
	}

	u, err := ds.AdminUpdateUser(ctx, *username, directoryservice.AdminUpdateUserRequest{
		Roles: []string{cfg.Defaults.BasicRole.Name, cfg.Defaults.AdminRole.Name},
	})
	if err != nil {
		return fmt.Errorf("attach admin role error: %w", err)
	}

	if !u.HasRole(cfg.Defaults.BasicRole.Name) || !u.HasRole(cfg.Defaults.AdminRole.Name) {
		return fmt.Errorf("user %s is missing a default role after attach", u.Username)
	}

	return nil
}

package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Server     Server     `yaml:"server"`
	Logger     Logger     `yaml:"logger"`
	PostgresDB PostgresDB `yaml:"db"`
	Auth       Auth       `yaml:"auth"`
	Defaults   Defaults   `yaml:"defaults"`
}

type Server struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

type Logger struct {
	Level     string   `yaml:"level"`
	Output    []string `yaml:"output"`
	ErrOutput []string `yaml:"errOutput"`
}

type PostgresDB struct {
	Addr          string `yaml:"addr"`
	Username      string `env:"POSTGRES_USER"     env-required:"true" yaml:"username"`
	Password      string `env:"POSTGRES_PASSWORD" yaml:"password"`
	DB            string `env:"POSTGRES_DB"       env-required:"true" yaml:"db"`
	SSLmode       string `yaml:"sslmode"`
	MaxConns      string `yaml:"maxConns"`
	MigrationsDir string `env-default:"./migrations" yaml:"migrationsDir"`
	Reload        bool   `yaml:"reload"`
	Version       int    `yaml:"version"`
}

type Auth struct {
	TTL       time.Duration `env:"ACCESS_TOKEN_TTL" env-default:"30m"   yaml:"ttl"`
	Algorithm string        `env:"ALGORITHM"        env-default:"HS256" yaml:"algorithm"`
	Secret    string        `env:"SECRET"           env-required:"true" yaml:"secret"`
}

// Permission is a (scope name, scope description) pair seeded at bootstrap.
type Permission struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type DefaultRole struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Permissions []Permission `yaml:"permissions"`
}

type Defaults struct {
	BasicRole DefaultRole `yaml:"basicRole"`
	AdminRole DefaultRole `yaml:"adminRole"`
}

func New(configPath string) (Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return Config{}, fmt.Errorf("read config error: %w", err)
	}

	applyRoleDefaults(&cfg.Defaults)

	return cfg, nil
}

func applyRoleDefaults(d *Defaults) {
	if d.BasicRole.Name == "" {
		d.BasicRole.Name = "basic"
	}

	if d.BasicRole.Description == "" {
		d.BasicRole.Description = "Basic role"
	}

	if len(d.BasicRole.Permissions) == 0 {
		d.BasicRole.Permissions = BasicDefaultPermissions()
	}

	if d.AdminRole.Name == "" {
		d.AdminRole.Name = "admin"
	}

	if d.AdminRole.Description == "" {
		d.AdminRole.Description = "Admin role"
	}

	if len(d.AdminRole.Permissions) == 0 {
		d.AdminRole.Permissions = AdminDefaultPermissions()
	}
}

func BasicDefaultPermissions() []Permission {
	return []Permission{
		{Name: "user:create", Description: "can create user"},
		{Name: "user:read", Description: "can read user"},
		{Name: "user:update", Description: "can update user"},
		{Name: "user:delete", Description: "can delete user"},
	}
}

func AdminDefaultPermissions() []Permission {
	return []Permission{
		{Name: "admin:create", Description: "can create admin"},
		{Name: "admin:read", Description: "can read admin"},
		{Name: "admin:update", Description: "can update admin"},
		{Name: "admin:delete", Description: "can delete admin"},
		{Name: "role:create", Description: "can create role"},
		{Name: "role:read", Description: "can read role"},
		{Name: "role:update", Description: "can update role"},
		{Name: "role:delete", Description: "can delete role"},
		{Name: "scope:create", Description: "can create scope"},
		{Name: "scope:read", Description: "can read scope"},
		{Name: "scope:update", Description: "can update scope"},
		{Name: "scope:delete", Description: "can delete scope"},
	}
}

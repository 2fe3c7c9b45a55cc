// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command launchgate runs the launch data API gateway.
//
// Usage:
//
//	launchgate serve --config config.yaml
//	launchgate serve --memory
//	launchgate validate --config config.yaml
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/launchgate/pkg/config"
	"github.com/kadirpekel/launchgate/pkg/gateway"
	"github.com/kadirpekel/launchgate/pkg/quota"
	"github.com/kadirpekel/launchgate/pkg/usage"
	"github.com/kadirpekel/launchgate/pkg/users"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the gateway server."`
	Validate ValidateCmd `cmd:"" help:"Validate configuration file."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (text or json)." default:"text"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("launchgate version %s\n", version)
	return nil
}

// ServeCmd starts the gateway.
type ServeCmd struct {
	Port   int  `help:"Port to listen on (overrides config)." default:"0"`
	Memory bool `help:"Use in-memory stores instead of the configured database."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	deps := gateway.Deps{Config: cfg}

	if c.Memory {
		deps.Users = users.NewMemoryStore()
		deps.Quota = quota.NewMemoryStore()
		deps.Ledger = usage.NewMemoryLedger()
	} else {
		pool := config.NewDBPool()
		defer func() { _ = pool.Close() }()

		db, err := pool.Get(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		dialect := cfg.Database.Dialect()

		userStore, err := users.NewStore(db, dialect)
		if err != nil {
			return err
		}
		quotaStore, err := quota.NewSQLStore(db, dialect)
		if err != nil {
			return err
		}
		ledger, err := usage.NewSQLLedger(db, dialect)
		if err != nil {
			return err
		}

		deps.Users = userStore
		deps.Quota = quotaStore
		deps.Ledger = ledger
	}

	srv, err := gateway.NewServer(deps)
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}

// ValidateCmd validates a configuration file.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	if cli.Config == "" {
		return fmt.Errorf("--config is required for validate")
	}
	if _, err := config.Load(cli.Config); err != nil {
		return err
	}
	fmt.Printf("%s: configuration is valid\n", cli.Config)
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func main() {
	cli := &CLI{}
	kctx := kong.Parse(cli,
		kong.Name("launchgate"),
		kong.Description("Rate limited, plan metered gateway for the launch data API."),
		kong.UsageOnError(),
	)

	cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := kctx.Run(cli); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

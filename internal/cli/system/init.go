package system

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/salahlog/internal/cli"
)

type InitCmd struct {
	Force  bool `help:"Delete the existing local database before initializing."`
	Remote bool `help:"Also create the schema on the configured PostgreSQL remote."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if err := c.reset(ctx); err != nil {
			return err
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized salahlog storage at: %s\n", ctx.Store.GetConfigPath())

	if !c.Remote {
		return nil
	}
	if ctx.Remote == nil {
		return errors.New("no remote configured, run 'salahlog keyring set' or set SALAHLOG_DB_CONNECTION")
	}
	if err := ctx.Remote.Init(context.Background()); err != nil {
		return fmt.Errorf("failed to initialize remote: %w", err)
	}
	fmt.Println("✓ Remote schema is up to date")
	return nil
}

// reset removes the database and its WAL sidecars
func (c *InitCmd) reset(ctx *cli.Context) error {
	dbPath := ctx.Store.GetConfigPath()
	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to access existing database: %w", err)
	}

	if err := ctx.Store.Close(); err != nil {
		return fmt.Errorf("failed to close existing database: %w", err)
	}
	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
	}
	fmt.Printf("Deleted existing database at: %s\n", dbPath)
	return nil
}

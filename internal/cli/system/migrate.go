package system

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/salahlog/internal/cli"
)

type MigrateCmd struct {
	Remote bool `help:"Migrate the PostgreSQL remote instead of the local database."`
}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	if c.Remote {
		if ctx.Remote == nil {
			return errors.New("no remote configured")
		}
		if err := ctx.Remote.Init(context.Background()); err != nil {
			return fmt.Errorf("remote migration failed: %w", err)
		}
		fmt.Println("Remote database is up to date.")
		return nil
	}

	count, err := ctx.Store.Migrate(func(msg string) {
		fmt.Println(msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		fmt.Println("No migrations to apply. Database is up to date.")
	} else {
		fmt.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}

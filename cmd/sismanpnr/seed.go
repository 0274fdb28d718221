package main

import (
	"context"
	"fmt"

	"sismanpnr/internal/db"
	"sismanpnr/internal/seed"
	"sismanpnr/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the housing registry with the demo PNR set",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c.String("env-prefix"))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		n, err := seed.SeedPNRs(ctx, store.NewPNRRepository(pool))
		if err != nil {
			return fmt.Errorf("failed to seed pnrs: %w", err)
		}

		logrus.WithField("count", n).Info("PNRs seeded successfully")

		return nil
	},
}

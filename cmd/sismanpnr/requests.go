package main

import (
	"context"
	"fmt"

	"sismanpnr/internal/db"
	"sismanpnr/internal/projection"
	"sismanpnr/internal/store"
	"sismanpnr/pkg/types"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

var requestsCommand = &cli.Command{
	Name:  "requests",
	Usage: "Dump the dashboard view of the stored requests",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "archived", Usage: "Show archived requests instead of active ones"},
		&cli.StringFlag{Name: "status", Usage: "pendente, aprovado or negado"},
		&cli.StringFlag{Name: "category", Usage: "Service category"},
		&cli.StringFlag{Name: "urgency", Usage: "urgent or normal", Value: string(projection.UrgencyAll)},
		&cli.StringFlag{Name: "pnr", Usage: "Unit number substring"},
		&cli.BoolFlag{Name: "summary", Usage: "Print only the counters"},
		&cli.StringFlag{Name: "id", Usage: "Dump a single request"},
	},
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

		repo := store.NewRequestRepository(pool)

		if id := c.String("id"); id != "" {
			req, err := repo.Request(ctx, id)
			if err != nil {
				return err
			}
			pp.Println(req)
			return nil
		}

		all, err := repo.Requests(ctx)
		if err != nil {
			return err
		}

		if c.Bool("summary") {
			pp.Println(projection.Summarize(all))
			return nil
		}

		filter := projection.Filter{
			Archived: c.Bool("archived"),
			Status:   types.RequestStatus(c.String("status")),
			Category: types.ServiceCategory(c.String("category")),
			Urgency:  projection.Urgency(c.String("urgency")),
			Unit:     c.String("pnr"),
		}
		filter.Normalize()

		for _, r := range projection.Apply(all, filter) {
			pp.Println(r)
		}

		return nil
	},
}

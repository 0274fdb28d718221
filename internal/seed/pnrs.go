package seed

import (
	"context"
	"fmt"

	"sismanpnr/pkg/types"
)

// PNRUpserter is satisfied by store.PNRRepository.
type PNRUpserter interface {
	UpsertPNR(ctx context.Context, pnr *types.PNR) error
}

// DemoPNRs is the housing registry shipped for local environments. Units
// are keyed by number, so running the seed again only refreshes address
// and block.
var DemoPNRs = []types.PNRInput{
	{Number: "PNR-001", Address: "Rua Marechal Rondon, 101", Block: "A"},
	{Number: "PNR-002", Address: "Rua Marechal Rondon, 103", Block: "A"},
	{Number: "PNR-003", Address: "Rua Marechal Rondon, 105", Block: "A"},
	{Number: "PNR-004", Address: "Rua Duque de Caxias, 12", Block: "B"},
	{Number: "PNR-005", Address: "Rua Duque de Caxias, 14", Block: "B"},
	{Number: "PNR-006", Address: "Rua Duque de Caxias, 16", Block: "B"},
	{Number: "PNR-007", Address: "Avenida Sampaio, 220", Block: "C"},
	{Number: "PNR-008", Address: "Avenida Sampaio, 224", Block: "C"},
	{Number: "PNR-009", Address: "Travessa Osório, 7", Block: "D"},
	{Number: "PNR-010", Address: "Travessa Osório, 9", Block: "D"},
}

// SeedPNRs upserts every unit of DemoPNRs and returns how many were written.
//
// To add a unit: append it to DemoPNRs and run `sismanpnr seed`
func SeedPNRs(ctx context.Context, repo PNRUpserter) (int, error) {
	fmt.Println("Starting PNR sync...")
	fmt.Printf("  Seed file contains %d units\n", len(DemoPNRs))

	upserted := 0
	for _, in := range DemoPNRs {
		in.Normalize()
		if err := types.Validate(in); err != nil {
			return upserted, fmt.Errorf("invalid seed unit %q: %w", in.Number, err)
		}

		fmt.Printf("  Upserting unit: %s (%s)\n", in.Number, in.Address)
		pnr := &types.PNR{Number: in.Number, Address: in.Address, Block: in.Block}
		if err := repo.UpsertPNR(ctx, pnr); err != nil {
			return upserted, fmt.Errorf("failed to upsert pnr %s: %w", in.Number, err)
		}
		upserted++
	}

	fmt.Printf("\nSync complete: %d upserted\n", upserted)
	return upserted, nil
}

package types

import (
	"errors"
	"strings"
	"time"
)

var ErrPNRNotFound = errors.New("pnr not found")

// PNR is a registered residential housing unit.
type PNR struct {
	ID        string    `db:"id"`
	Number    string    `db:"number"`
	Address   string    `db:"address"`
	Block     string    `db:"block"`
	CreatedAt time.Time `db:"created_at"`
}

type PNRInput struct {
	Number  string `form:"number" validate:"required"`
	Address string `form:"address" validate:"required"`
	Block   string `form:"block" validate:"required"`
}

func (in *PNRInput) Normalize() {
	in.Number = strings.TrimSpace(in.Number)
	in.Address = strings.TrimSpace(in.Address)
	in.Block = strings.TrimSpace(in.Block)
}

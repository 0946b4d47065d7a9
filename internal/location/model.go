package location

import (
	"time"

	"github.com/shopspring/decimal"
)

type Location struct {
	ID         int64           `db:"id" json:"id"`
	Name       string          `db:"name" json:"name"`
	Address    string          `db:"address" json:"address"`
	HourlyRate decimal.Decimal `db:"hourly_rate" json:"hourly_rate"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

type Seat struct {
	ID         int64     `db:"id" json:"id"`
	LocationID int64     `db:"location_id" json:"location_id"`
	Label      string    `db:"label" json:"label"`
	Zone       string    `db:"zone" json:"zone"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type CreateLocationRequest struct {
	Name       string `json:"name" binding:"required"`
	Address    string `json:"address" binding:"required"`
	HourlyRate string `json:"hourly_rate" binding:"required"`
}

type CreateSeatRequest struct {
	Label string `json:"label" binding:"required"`
	Zone  string `json:"zone"`
}

package location

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	CreateLocation(ctx context.Context, name, address string, hourlyRate decimal.Decimal) (*Location, error)
	GetLocation(ctx context.Context, id int64) (*Location, error)
	ListLocations(ctx context.Context) ([]Location, error)
	CreateSeat(ctx context.Context, locationID int64, label, zone string) (*Seat, error)
	ListSeats(ctx context.Context, locationID int64) ([]Seat, error)
	// MissingSeats returns the labels in the given set that do not exist as
	// active seats at the location.
	MissingSeats(ctx context.Context, locationID int64, labels []string) ([]string, error)
}

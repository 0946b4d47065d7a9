package location

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateLocation(ctx context.Context, name, address string, hourlyRate decimal.Decimal) (*Location, error) {
	loc := &Location{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO locations (name, address, hourly_rate)
		VALUES ($1, $2, $3)
		RETURNING id, name, address, hourly_rate, created_at
	`, name, address, hourlyRate).StructScan(loc)
	if err != nil {
		return nil, err
	}
	return loc, nil
}

func (r *repository) GetLocation(ctx context.Context, id int64) (*Location, error) {
	loc := &Location{}
	err := r.db.GetContext(ctx, loc, `
		SELECT id, name, address, hourly_rate, created_at
		FROM locations
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return loc, nil
}

func (r *repository) ListLocations(ctx context.Context) ([]Location, error) {
	locations := []Location{}
	err := r.db.SelectContext(ctx, &locations, `
		SELECT id, name, address, hourly_rate, created_at
		FROM locations
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return locations, nil
}

func (r *repository) CreateSeat(ctx context.Context, locationID int64, label, zone string) (*Seat, error) {
	seat := &Seat{}
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO seats (location_id, label, zone, active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, location_id, label, zone, active, created_at
	`, locationID, label, zone).StructScan(seat)
	if err != nil {
		return nil, err
	}
	return seat, nil
}

func (r *repository) ListSeats(ctx context.Context, locationID int64) ([]Seat, error) {
	seats := []Seat{}
	err := r.db.SelectContext(ctx, &seats, `
		SELECT id, location_id, label, zone, active, created_at
		FROM seats
		WHERE location_id = $1
		ORDER BY label
	`, locationID)
	if err != nil {
		return nil, err
	}
	return seats, nil
}

func (r *repository) MissingSeats(ctx context.Context, locationID int64, labels []string) ([]string, error) {
	missing := []string{}
	err := r.db.SelectContext(ctx, &missing, `
		SELECT requested.label
		FROM unnest($2::text[]) AS requested(label)
		WHERE NOT EXISTS (
			SELECT 1 FROM seats s
			WHERE s.location_id = $1 AND s.label = requested.label AND s.active
		)
	`, locationID, pq.Array(labels))
	if err != nil {
		return nil, err
	}
	return missing, nil
}

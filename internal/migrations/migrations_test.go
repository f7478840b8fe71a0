package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(files, dir)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	for _, e := range entries {
		body, err := fs.ReadFile(files, dir+"/"+e.Name())
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", e.Name())
		assert.Contains(t, string(body), "-- +goose Down", e.Name())
	}
}

func TestTravelOptionsSeatBoundsConstraint(t *testing.T) {
	body, err := fs.ReadFile(files, dir+"/00002_create_travel_options.sql")
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "available_seats >= 0 AND available_seats <= total_seats"))
}

func TestBookingTotalHoldsFullBookingOfMaxPrice(t *testing.T) {
	options, err := fs.ReadFile(files, dir+"/00002_create_travel_options.sql")
	require.NoError(t, err)
	bookings, err := fs.ReadFile(files, dir+"/00003_create_bookings.sql")
	require.NoError(t, err)

	// 99999999.99 per seat times ten seats needs twelve digits
	assert.Contains(t, string(options), "price              NUMERIC(10, 2)")
	assert.Contains(t, string(bookings), "total_price       NUMERIC(12, 2)")
}

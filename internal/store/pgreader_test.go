package store

import (
	"context"
	"database/sql"
	"testing"

	"geo-directory/internal/geo"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockReader(t *testing.T) (*pgReader, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &pgReader{q: db}, mock
}

func TestUserByKeyHash(t *testing.T) {
	r, mock := newMockReader(t)
	mock.ExpectQuery(`SELECT user_id FROM api_key`).WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(7))
	mock.ExpectQuery(`SELECT user_id FROM api_key`).WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	u, err := r.UserByKeyHash(context.Background(), "abc")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, int64(7), u.ID)

	u, err = r.UserByKeyHash(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, u)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoriesByOrganizationsGroups(t *testing.T) {
	r, mock := newMockReader(t)
	mock.ExpectQuery(`FROM organization_category oc`).WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"org_id", "id", "parent_id", "name"}).
			AddRow(1, 1, nil, "Food").
			AddRow(1, 2, 1, "Bakery").
			AddRow(3, 2, 1, "Bakery"))

	got, err := r.CategoriesByOrganizations(context.Background(), []int64{1, 3})
	require.NoError(t, err)
	require.Len(t, got[1], 2)
	assert.Equal(t, "Food", got[1][0].Name)
	assert.Nil(t, got[1][0].ParentID)
	require.Len(t, got[3], 1)
	assert.Equal(t, int64(1), *got[3][0].ParentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmptyKeySetsSkipStorage(t *testing.T) {
	r, mock := newMockReader(t)
	ctx := context.Background()

	addrs, err := r.AddressesByIDs(ctx, nil)
	assert.NoError(t, err)
	assert.Empty(t, addrs)
	orgs, err := r.OrganizationsByCategories(ctx, nil)
	assert.NoError(t, err)
	assert.Empty(t, orgs)
	cats, err := r.CategoriesByOrganizations(ctx, nil)
	assert.NoError(t, err)
	assert.Empty(t, cats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressesInEnvelopeArgs(t *testing.T) {
	r, mock := newMockReader(t)
	env := geo.Envelope{MinLon: 30.49, MinLat: 50.44, MaxLon: 30.51, MaxLat: 50.46}
	mock.ExpectQuery(`ST_Intersects\(a.coordinates, ST_MakeEnvelope\(\$1, \$2, \$3, \$4, 4326\)::geography\)`).
		WithArgs(env.MinLon, env.MinLat, env.MaxLon, env.MaxLat).
		WillReturnRows(sqlmock.NewRows([]string{"id", "x", "y", "country", "city", "street", "home"}).
			AddRow(1, 30.5, 50.45, "Ukraine", "Kyiv", "Khreshchatyk", "1"))

	got, err := r.AddressesInEnvelope(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, geo.Point{Lon: 30.5, Lat: 50.45}, got[0].Point)
	assert.Equal(t, "1", got[0].House)
	assert.NoError(t, mock.ExpectationsWereMet())
}

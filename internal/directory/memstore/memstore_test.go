package memstore

import (
	"context"
	"errors"
	"testing"

	"geo-directory/internal/geo"
	"geo-directory/internal/logger"
	"geo-directory/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *Store {
	t.Helper()
	s, err := Load("testdata/snapshot.json")
	require.NoError(t, err)
	s.SetLogger(logger.Discard())
	return s
}

func read[T any](t *testing.T, s *Store, fn func(ctx context.Context, r store.Reader) (T, error)) T {
	t.Helper()
	out, err := store.Query(context.Background(), s, store.IsolationDefault, fn)
	require.NoError(t, err)
	return out
}

func TestLoadFixture(t *testing.T) {
	s := loadFixture(t)
	cats := read(t, s, func(ctx context.Context, r store.Reader) ([]store.Category, error) {
		return r.Categories(ctx)
	})
	require.Len(t, cats, 6)
	assert.Equal(t, "Food", cats[0].Name)
	assert.Nil(t, cats[0].ParentID)
}

func TestSpatialFilters(t *testing.T) {
	s := loadFixture(t)
	center := geo.Point{Lon: 30.5, Lat: 50.45}

	at := read(t, s, func(ctx context.Context, r store.Reader) ([]store.Address, error) {
		return r.AddressesAt(ctx, center)
	})
	require.Len(t, at, 1)
	assert.Equal(t, int64(1), at[0].ID)

	near := read(t, s, func(ctx context.Context, r store.Reader) ([]store.Address, error) {
		return r.AddressesWithin(ctx, center, 1500)
	})
	assert.Equal(t, []int64{1, 3}, addressIDs(near))

	env := geo.AreaEnvelope(center, 100, 100)
	box := read(t, s, func(ctx context.Context, r store.Reader) ([]store.Address, error) {
		return r.AddressesInEnvelope(ctx, env)
	})
	assert.Equal(t, []int64{1}, addressIDs(box))

	// 高 1 米、宽 5 公里：平面框的 MaxLat 已在中心以南，按大圆弧判定仍包含中心
	thin := geo.AreaEnvelope(center, 1, 5000)
	require.Less(t, thin.MaxLat, center.Lat)
	strip := read(t, s, func(ctx context.Context, r store.Reader) ([]store.Address, error) {
		return r.AddressesInEnvelope(ctx, thin)
	})
	assert.Contains(t, addressIDs(strip), int64(1))
	assert.NotContains(t, addressIDs(strip), int64(2))
}

func TestOrganizationsByCategoriesKeepsDuplicates(t *testing.T) {
	s := loadFixture(t)
	orgs := read(t, s, func(ctx context.Context, r store.Reader) ([]store.Organization, error) {
		return r.OrganizationsByCategories(ctx, []int64{1, 2})
	})
	var ids []int64
	for _, o := range orgs {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []int64{1, 3, 1, 2}, ids)
}

func TestLikePattern(t *testing.T) {
	cases := []struct {
		pattern, name string
		match         bool
	}{
		{"acme", "Acme", true},
		{"acme", "Acme Pastry", false},
		{"acme%", "Acme Pastry", true},
		{"%PASTRY", "Acme Pastry", true},
		{"%&%", "Bread & Co", true},
		{"a_me", "Acme", true},
		{"a.me", "Acme", false},
		{`100\%`, "100%", true},
		{`100\%`, "1000", false},
		{"%", "", true},
		{`Acme\`, "Acme", false},
		{`Acme\`, `Acme\`, true},
		{`Acme\\`, `Acme\`, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.match, likePattern(c.pattern).MatchString(c.name), "%q ~ %q", c.pattern, c.name)
	}
}

func TestUserByKeyHash(t *testing.T) {
	s := loadFixture(t)
	u := read(t, s, func(ctx context.Context, r store.Reader) (*store.User, error) {
		return r.UserByKeyHash(ctx, "62af8704764faf8ea82fc61ce9c4c3908b6cb97d463a634e9e587d7c885db0ef")
	})
	require.NotNil(t, u)
	assert.Equal(t, int64(1), u.ID)

	none := read(t, s, func(ctx context.Context, r store.Reader) (*store.User, error) {
		return r.UserByKeyHash(ctx, "nope")
	})
	assert.Nil(t, none)
}

func TestReadFailurePaths(t *testing.T) {
	s := loadFixture(t)
	cause := errors.New("boom")
	err := s.Read(context.Background(), store.IsolationDefault, func(ctx context.Context, r store.Reader) error {
		return cause
	})
	assert.Same(t, cause, err)

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = s.Read(context.Background(), store.IsolationSerializable, func(ctx context.Context, r store.Reader) error {
			panic("kaboom")
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	err = s.Read(ctx, store.IsolationDefault, func(ctx context.Context, r store.Reader) error {
		cancel()
		_, err := r.Categories(ctx)
		return err
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildRejectsBrokenSnapshots(t *testing.T) {
	base := func() Snapshot {
		return Snapshot{
			Addresses:     []AddressRow{{ID: 1, Lon: 30.5, Lat: 50.45}},
			Categories:    []store.Category{{ID: 1, Name: "Food"}},
			Organizations: []OrganizationRow{{ID: 1, Name: "Acme", AddressID: 1}},
		}
	}
	_, err := New(base())
	require.NoError(t, err)

	dupPoint := base()
	dupPoint.Addresses = append(dupPoint.Addresses, AddressRow{ID: 2, Lon: 30.5, Lat: 50.45})
	_, err = New(dupPoint)
	assert.ErrorContains(t, err, "coordinates already used")

	noAddr := base()
	noAddr.Organizations[0].AddressID = 9
	_, err = New(noAddr)
	assert.ErrorContains(t, err, "unknown address")

	dupPair := base()
	dupPair.OrganizationCategories = []OrgCategoryRow{{OrgID: 1, CatID: 1}, {OrgID: 1, CatID: 1}}
	_, err = New(dupPair)
	assert.ErrorContains(t, err, "listed twice")

	badPoint := base()
	badPoint.Addresses[0].Lat = 95
	_, err = New(badPoint)
	assert.ErrorContains(t, err, "out of range")
}

func TestReplaceSwapsDataset(t *testing.T) {
	s := loadFixture(t)
	require.NoError(t, s.Replace(Snapshot{Addresses: []AddressRow{{ID: 9, Lon: 1, Lat: 1}}}))
	addrs := read(t, s, func(ctx context.Context, r store.Reader) ([]store.Address, error) {
		return r.AddressesByIDs(ctx, []int64{1, 9})
	})
	assert.Equal(t, []int64{9}, addressIDs(addrs))

	assert.Error(t, s.Replace(Snapshot{Organizations: []OrganizationRow{{ID: 1, AddressID: 1}}}))
}

func addressIDs(as []store.Address) []int64 {
	var out []int64
	for _, a := range as {
		out = append(out, a.ID)
	}
	return out
}

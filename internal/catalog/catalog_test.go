package catalog

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roeblinglabs/itwin-poc-2024/internal/config"
	"github.com/roeblinglabs/itwin-poc-2024/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T, siteID string) *Store {
	t.Helper()
	db, err := OpenSQLite("")
	require.NoError(t, err)
	s := NewStore(db, siteID, quietLogger())
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func shoreCamera() core.MarkerDef {
	return core.MarkerDef{
		ID:         "shore-camera-1",
		Kind:       core.KindCamera,
		Label:      "Shore Camera 1",
		Placement:  core.PlacementLocal(-10, 20, 5),
		ContentURL: "https://www.youtube.com/embed/HZOfR7NVNtA?autoplay=1",
		Size:       &core.Size{X: 40, Y: 40},
	}
}

func strainGauge() core.MarkerDef {
	return core.MarkerDef{
		ID:        "strain-1",
		Kind:      core.KindSensor,
		Label:     "Strain 1",
		Placement: core.PlacementGeo(40.5, -74.1, 3),
	}
}

func TestStatic_ReturnsCopy(t *testing.T) {
	src := Static{shoreCamera()}
	defs, err := src.Markers(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 1)

	defs[0].Label = "changed"
	assert.Equal(t, "Shore Camera 1", src[0].Label)
}

func TestStore_SaveAndLoad(t *testing.T) {
	s := newStore(t, "bridge")
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, []core.MarkerDef{strainGauge(), shoreCamera()}))

	defs, err := s.Markers(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, "strain-1", defs[0].ID)
	require.True(t, defs[0].Placement.IsGeo())
	assert.Equal(t, core.GeoCoordinate{Latitude: 40.5, Longitude: -74.1, Height: 3}, *defs[0].Placement.Geo)
	assert.Nil(t, defs[0].Size)

	assert.Equal(t, shoreCamera(), defs[1])
}

func TestStore_SaveReplaces(t *testing.T) {
	s := newStore(t, "bridge")
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, []core.MarkerDef{strainGauge(), shoreCamera()}))
	require.NoError(t, s.Save(ctx, []core.MarkerDef{shoreCamera()}))

	defs, err := s.Markers(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "shore-camera-1", defs[0].ID)

	require.NoError(t, s.Save(ctx, nil))
	defs, err = s.Markers(ctx)
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestStore_SitesAreIsolated(t *testing.T) {
	a := newStore(t, "bridge")
	b := NewStore(a.db, "pier", quietLogger())
	ctx := context.Background()

	require.NoError(t, a.Save(ctx, []core.MarkerDef{shoreCamera()}))
	require.NoError(t, b.Save(ctx, []core.MarkerDef{strainGauge()}))

	defs, err := a.Markers(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "shore-camera-1", defs[0].ID)

	defs, err = b.Markers(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "strain-1", defs[0].ID)
}

func TestStore_SkipsUnreadableRows(t *testing.T) {
	s := newStore(t, "bridge")
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, []core.MarkerDef{shoreCamera()}))

	bad := MarkerRecord{
		SiteID:    "bridge",
		MarkerID:  "broken",
		Position:  1,
		Kind:      "sensor",
		Placement: datatypes.JSON(`{"geo":`),
	}
	require.NoError(t, s.db.Create(&bad).Error)

	defs, err := s.Markers(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "shore-camera-1", defs[0].ID)
}

func TestRecord_RoundTripKeepsFields(t *testing.T) {
	rec, err := RecordFromDef("bridge", 4, shoreCamera())
	require.NoError(t, err)
	assert.Equal(t, "bridge", rec.SiteID)
	assert.Equal(t, 4, rec.Position)
	assert.Equal(t, "camera", rec.Kind)

	def, err := rec.Def()
	require.NoError(t, err)
	assert.Equal(t, shoreCamera(), def)
}

func TestOpen_ConfigType(t *testing.T) {
	src, err := Open(context.Background(), config.CatalogConfig{Type: "config"}, []core.MarkerDef{shoreCamera()}, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, Static{}, src)

	defs, err := src.Markers(context.Background())
	require.NoError(t, err)
	assert.Len(t, defs, 1)
}

func TestOpen_SQLiteType(t *testing.T) {
	src, err := Open(context.Background(), config.CatalogConfig{Type: "sqlite", SiteID: "bridge"}, nil, quietLogger())
	require.NoError(t, err)
	store, ok := src.(*Store)
	require.True(t, ok)
	t.Cleanup(func() { _ = store.Close() })

	defs, err := store.Markers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestOpen_MigrateFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src, err := Open(ctx, config.CatalogConfig{
		Type:   "sqlite",
		SiteID: "bridge",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "markers.db")},
	}, nil, quietLogger())
	require.Error(t, err)
	assert.Nil(t, src)
}

func TestOpen_UnknownType(t *testing.T) {
	_, err := Open(context.Background(), config.CatalogConfig{Type: "mongo"}, nil, quietLogger())
	assert.ErrorIs(t, err, ErrUnknownType)
}

package repository_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-evac-priority/internal/models"
	"github.com/mr1hm/go-evac-priority/internal/repository"
)

var familyRowColumns = []string{
	"id", "name", "address", "phone", "longitude", "latitude", "vulnerable",
	"members", "medical", "housing", "proximity_risks", "created_at", "updated_at",
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *repository.PostgresDB) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, repository.NewPostgresDB(mock, slog.Default())
}

func TestPostgresDB_Migrate(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS disasters").
			WillReturnResult(pgxmock.NewResult("CREATE", 0))

		require.NoError(t, repo.Migrate(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS disasters").WillReturnError(assert.AnError)

		err := repo.Migrate(ctx)
		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "error while migrating")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresDB_AddFamily(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		mock.ExpectExec("INSERT INTO families").
			WithArgs(anyArgs(13)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		f := &models.FamilyRecord{ID: "f1", Location: &models.Coordinates{Lng: 77.2, Lat: 28.6}}
		require.NoError(t, repo.AddFamily(ctx, f))
		assert.False(t, f.CreatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate id", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		mock.ExpectExec("INSERT INTO families").
			WithArgs(anyArgs(13)...).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.AddFamily(ctx, &models.FamilyRecord{ID: "f1"})
		require.ErrorIs(t, err, repository.ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec error", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		mock.ExpectExec("INSERT INTO families").
			WithArgs(anyArgs(13)...).
			WillReturnError(assert.AnError)

		err := repo.AddFamily(ctx, &models.FamilyRecord{ID: "f1"})
		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "error adding family f1")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresDB_GetFamily(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	now := time.Now().UTC()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		mock.ExpectQuery(`SELECT (.+) FROM families WHERE id = \$1`).
			WithArgs("f1").
			WillReturnRows(pgxmock.NewRows(familyRowColumns).AddRow(
				"f1", "Sharma", nil, nil, 77.2, 28.6, true,
				[]byte(`[{"name":"Asha","age":72,"is_vulnerable":true}]`),
				[]byte(`null`),
				[]byte(`{"type":"makeshift"}`),
				[]byte(`null`),
				now, now,
			))

		f, err := repo.GetFamily(ctx, "f1")
		require.NoError(t, err)
		assert.Equal(t, "Sharma", f.Name)
		require.NotNil(t, f.Location)
		assert.InDelta(t, 77.2, f.Location.Lng, 1e-9)
		require.Len(t, f.Members, 1)
		assert.True(t, f.Members[0].IsVulnerable)
		assert.Nil(t, f.Medical)
		require.NotNil(t, f.Housing)
		assert.Equal(t, models.HousingMakeshift, f.Housing.Type)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		mock.ExpectQuery(`SELECT (.+) FROM families WHERE id = \$1`).
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)

		f, err := repo.GetFamily(ctx, "missing")
		require.Nil(t, f)
		require.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt members document", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		mock.ExpectQuery(`SELECT (.+) FROM families WHERE id = \$1`).
			WithArgs("f1").
			WillReturnRows(pgxmock.NewRows(familyRowColumns).AddRow(
				"f1", nil, nil, nil, nil, nil, false,
				[]byte(`{not json`), []byte(`null`), []byte(`null`), []byte(`null`),
				now, now,
			))

		_, err := repo.GetFamily(ctx, "f1")
		require.ErrorContains(t, err, "error decoding members")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresDB_UpdateAndDeleteFamily(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("update missing", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		mock.ExpectExec("UPDATE families SET").
			WithArgs(anyArgs(12)...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateFamily(ctx, &models.FamilyRecord{ID: "ghost"})
		require.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update success", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		mock.ExpectExec("UPDATE families SET").
			WithArgs(anyArgs(12)...).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.UpdateFamily(ctx, &models.FamilyRecord{ID: "f1"}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		mock.ExpectExec(`DELETE FROM families WHERE id = \$1`).
			WithArgs("f1").
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectExec(`DELETE FROM families WHERE id = \$1`).
			WithArgs("f1").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		require.NoError(t, repo.DeleteFamily(ctx, "f1"))
		require.ErrorIs(t, repo.DeleteFamily(ctx, "f1"), repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresDB_ListFamilies(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	now := time.Now().UTC()

	t.Run("bounding box and paging", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		box := orb.Bound{Min: orb.Point{77.0, 28.0}, Max: orb.Point{78.0, 29.0}}
		mock.ExpectQuery(`FROM families WHERE longitude BETWEEN \$1 AND \$2 AND latitude BETWEEN \$3 AND \$4 AND vulnerable = \$5 ORDER BY created_at, id LIMIT \$6 OFFSET \$7`).
			WithArgs(77.0, 78.0, 28.0, 29.0, true, 10, 5).
			WillReturnRows(pgxmock.NewRows(familyRowColumns).
				AddRow("f1", nil, nil, nil, 77.5, 28.5, true,
					[]byte(`[{"is_vulnerable":true}]`), []byte(`null`), []byte(`null`), []byte(`null`), now, now).
				AddRow("f2", nil, nil, nil, 77.6, 28.4, true,
					[]byte(`null`), []byte(`{"depends_on_equipment":true}`), []byte(`null`), []byte(`null`), now, now))

		families, err := repo.ListFamilies(ctx, repository.FamilyFilter{
			Within: &box, VulnerableOnly: true, Limit: 10, Offset: 5,
		})
		require.NoError(t, err)
		require.Len(t, families, 2)
		assert.Equal(t, "f1", families[0].ID)
		require.NotNil(t, families[1].Medical)
		assert.True(t, families[1].Medical.DependsOnEquipment)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bounding box keeps unlocated families", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		box := orb.Bound{Min: orb.Point{77.0, 28.0}, Max: orb.Point{78.0, 29.0}}
		mock.ExpectQuery(`FROM families WHERE \(\(longitude BETWEEN \$1 AND \$2 AND latitude BETWEEN \$3 AND \$4\) OR longitude IS NULL OR latitude IS NULL\) ORDER BY created_at, id`).
			WithArgs(77.0, 78.0, 28.0, 29.0).
			WillReturnRows(pgxmock.NewRows(familyRowColumns).
				AddRow("nolocation", nil, nil, nil, nil, nil, false,
					[]byte(`[]`), []byte(`null`), []byte(`null`), []byte(`null`), now, now))

		families, err := repo.ListFamilies(ctx, repository.FamilyFilter{Within: &box, IncludeUnlocated: true})
		require.NoError(t, err)
		require.Len(t, families, 1)
		assert.Nil(t, families[0].Location)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rows error", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		mock.ExpectQuery(`FROM families ORDER BY created_at, id`).
			WillReturnRows(pgxmock.NewRows(familyRowColumns).
				AddRow("f1", nil, nil, nil, nil, nil, false,
					[]byte(`null`), []byte(`null`), []byte(`null`), []byte(`null`), now, now).
				RowError(0, assert.AnError))

		families, err := repo.ListFamilies(ctx, repository.FamilyFilter{})
		require.Nil(t, families)
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresDB_Disasters(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	now := time.Now().UTC()
	disasterColumns := []string{
		"id", "source", "type", "title", "description", "magnitude", "alert_level",
		"latitude", "longitude", "timestamp", "country", "report_url", "created_at",
	}

	t.Run("exists", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("usgs_1").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		ok, err := repo.Exists(ctx, "usgs_1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("min alert level", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		orange := models.AlertLevelOrange
		mock.ExpectQuery(`FROM disasters WHERE alert_level IN \(\$1, \$2\) ORDER BY timestamp DESC, id`).
			WithArgs("orange", "red").
			WillReturnRows(pgxmock.NewRows(disasterColumns).
				AddRow("gdacs_1", "gdacs", "flood", "Flood", nil, 0.0, "red",
					10.0, 20.0, now, "Chad", nil, now))

		list, err := repo.ListDisasters(ctx, repository.Filter{MinAlertLevel: &orange})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, models.DisasterTypeFlood, list[0].Type)
		assert.Equal(t, models.AlertLevelRed, list[0].AlertLevel)
		assert.Equal(t, "Chad", list[0].Country)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get missing", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		mock.ExpectQuery(`FROM disasters WHERE id = \$1`).
			WithArgs("nope").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetByID(ctx, "nope")
		require.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresDB_Snapshots(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	t.Run("save and load latest", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		mock.ExpectExec("INSERT INTO priority_snapshots").
			WithArgs(anyArgs(6)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		created := time.Now().UTC()
		mock.ExpectQuery(`FROM priority_snapshots WHERE disaster_id = \$1 AND strategy = \$2`).
			WithArgs("d1", "topological").
			WillReturnRows(pgxmock.NewRows([]string{"id", "disaster_id", "strategy", "payload", "invariant_violation", "created_at"}).
				AddRow("s1", "d1", "topological",
					[]byte(`{"families":[{"family_id":"f1","rank":1},{"family_id":"f2","rank":2,"depends_on":"f1"}]}`),
					false, created))

		require.NoError(t, repo.SaveSnapshot(ctx, &models.PrioritySnapshot{ID: "s1", DisasterID: "d1", Strategy: "topological"}))

		snap, err := repo.LatestSnapshot(ctx, "d1", "topological")
		require.NoError(t, err)
		require.Len(t, snap.Families, 2)
		assert.Equal(t, "f1", snap.Families[1].DependsOn)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("none stored", func(t *testing.T) {
		t.Parallel()
		mock, repo := newMockRepo(t)
		mock.ExpectQuery(`FROM priority_snapshots`).
			WithArgs("d1", "weighted").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.LatestSnapshot(ctx, "d1", "weighted")
		require.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

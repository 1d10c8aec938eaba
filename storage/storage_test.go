package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/storage"
	"github.com/trezcool/ratiba/storage/database"
	"github.com/trezcool/ratiba/tests"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name       string
		engine     string
		wantEngine string
		wantSQL    bool
	}{
		{name: "memory", engine: storage.EngineMemory, wantEngine: storage.EngineMemory},
		{name: "sqlite", engine: database.EngineSQLite, wantEngine: database.EngineSQLite, wantSQL: true},
		{name: "default", engine: "", wantEngine: database.EngineSQLite, wantSQL: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conf := testutil.NewConfig()
			conf.Mongo.URI = ""
			conf.Database.Engine = tc.engine
			conf.Database.Path = filepath.Join(t.TempDir(), "ratiba.db")

			repos, err := storage.Open(context.Background(), conf)
			require.NoError(t, err)
			defer func() { assert.NoError(t, repos.Close()) }()

			assert.Equal(t, tc.wantEngine, repos.Engine)
			assert.Equal(t, tc.wantSQL, repos.SQL != nil)

			n, err := repos.Tasks.CountTasks(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}

	t.Run("memory repositories", func(t *testing.T) {
		ctx := context.Background()
		conf := testutil.NewConfig()
		conf.Mongo.URI = ""
		conf.Database.Engine = storage.EngineMemory

		repos, err := storage.Open(ctx, conf)
		require.NoError(t, err)
		defer func() { assert.NoError(t, repos.Close()) }()

		created, err := repos.Entries.CreateEntry(ctx, calendar.CalendarEntry{Month: "1-Jun"})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)

		got, err := repos.Entries.GetEntry(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "1-Jun", got.Month)

		tasks, err := repos.Tasks.CreateTasks(ctx, calendar.EmailTask{
			CalendarEntryID: &created.ID,
			Date:            time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
			Codes:           []string{"A"},
		})
		require.NoError(t, err)
		require.Len(t, tasks, 1)

		n, err := repos.Tasks.CountTasks(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("unsupported engine", func(t *testing.T) {
		conf := testutil.NewConfig()
		conf.Mongo.URI = ""
		conf.Database.Engine = "oracle"
		_, err := storage.Open(context.Background(), conf)
		assert.Error(t, err)
	})
}

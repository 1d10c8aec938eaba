package mongodb_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/storage/mongodb"
	"github.com/trezcool/ratiba/tests"
)

// needs a live server: TEST_MONGO_URI=mongodb://localhost:27017
func prepareDB(t *testing.T) *calendar.Service {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	conf := testutil.NewConfig()
	conf.Mongo.URI = uri
	conf.Mongo.Database = "ratiba_test_" + uuid.New().String()[:8]

	client, db, err := mongodb.Connect(context.Background(), conf)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	return calendar.NewService(
		mongodb.NewEntryRepository(db),
		mongodb.NewTaskRepository(db),
		mongodb.NewLegendRepository(db),
		time.UTC,
		testutil.NewLogger(),
	)
}

func TestMongoRepositories(t *testing.T) {
	svc := prepareDB(t)
	ctx := context.Background()

	entry := testutil.CreateEntry(t, svc, "1-Jun", testutil.IntPtr(2024), []string{"A, B", "", "C"}, nil, []string{"D"})
	assert.NotEmpty(t, entry.ID)

	got, err := svc.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.Week1, got.Week1)
	assert.Equal(t, 2024, *got.Year)

	n, err := svc.CountTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	res, err := svc.TasksOnDate(ctx, time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, calendar.MethodEnhanced, res.Method)
	if assert.Len(t, res.Tasks, 1) {
		assert.Equal(t, []string{"A", "B"}, res.Tasks[0].Codes)
	}

	legend, err := svc.Legend(ctx)
	require.NoError(t, err)
	assert.Len(t, legend, 4)

	require.NoError(t, svc.DeleteEntry(ctx, entry.ID))
	_, err = svc.GetEntry(ctx, entry.ID)
	assert.ErrorIs(t, err, calendar.ErrEntryNotFound)

	n, err = svc.CountTasks(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

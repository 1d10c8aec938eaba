// Package storage picks the repositories backing the calendar service from the configuration.
package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/calendar"
	"github.com/trezcool/ratiba/storage/database"
	inmemdb "github.com/trezcool/ratiba/storage/database/inmem"
	sqlxrepos "github.com/trezcool/ratiba/storage/database/sqlx"
	"github.com/trezcool/ratiba/storage/mongodb"
)

// EngineMemory keeps everything in process memory.
const EngineMemory = "memory"

type Repositories struct {
	Engine  string
	Entries calendar.EntryRepository
	Tasks   calendar.TaskRepository
	Legend  calendar.LegendRepository

	// SQL is set for the postgres and sqlite3 engines.
	SQL   *sqlx.DB
	close func() error
}

func (r *Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// Open connects to MongoDB when Mongo.URI is set, otherwise to Database.Engine.
// SQL databases are created (postgres) and migrated before use.
func Open(ctx context.Context, conf *core.Config) (*Repositories, error) {
	if conf.Mongo.URI != "" {
		client, db, err := mongodb.Connect(ctx, conf)
		if err != nil {
			return nil, err
		}
		return &Repositories{
			Engine:  "mongodb",
			Entries: mongodb.NewEntryRepository(db),
			Tasks:   mongodb.NewTaskRepository(db),
			Legend:  mongodb.NewLegendRepository(db),
			close:   func() error { return client.Disconnect(context.Background()) },
		}, nil
	}

	if conf.Database.Engine == EngineMemory {
		db := inmemdb.Open()
		return &Repositories{
			Engine:  EngineMemory,
			Entries: inmemdb.NewEntryRepository(db),
			Tasks:   inmemdb.NewTaskRepository(db),
			Legend:  inmemdb.NewLegendRepository(db),
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repositories{
		Engine:  db.DriverName(),
		Entries: sqlxrepos.NewEntryRepository(db),
		Tasks:   sqlxrepos.NewTaskRepository(db),
		Legend:  sqlxrepos.NewLegendRepository(db),
		SQL:     db,
		close:   db.Close,
	}, nil
}

package mongodb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/ratiba/core/calendar"
)

type entryDoc struct {
	ID        string    `bson:"_id"`
	Month     string    `bson:"month"`
	Year      *int      `bson:"year"`
	Week1     []string  `bson:"week1"`
	Week2     []string  `bson:"week2"`
	Week3     []string  `bson:"week3"`
	Week4     []string  `bson:"week4"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func toEntryDoc(e calendar.CalendarEntry) entryDoc {
	return entryDoc{
		ID:        e.ID,
		Month:     e.Month,
		Year:      e.Year,
		Week1:     e.Week1[:],
		Week2:     e.Week2[:],
		Week3:     e.Week3[:],
		Week4:     e.Week4[:],
		CreatedAt: e.CreatedAt.UTC(),
		UpdatedAt: e.UpdatedAt.UTC(),
	}
}

func (d entryDoc) entry() calendar.CalendarEntry {
	return calendar.CalendarEntry{
		ID:        d.ID,
		Month:     d.Month,
		Year:      d.Year,
		Week1:     calendar.NewWeek(d.Week1),
		Week2:     calendar.NewWeek(d.Week2),
		Week3:     calendar.NewWeek(d.Week3),
		Week4:     calendar.NewWeek(d.Week4),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type entryRepository struct {
	coll *mongo.Collection
}

var _ calendar.EntryRepository = (*entryRepository)(nil) // interface compliance check

func NewEntryRepository(db *mongo.Database) *entryRepository {
	return &entryRepository{coll: db.Collection(EntryCollection)}
}

func (repo entryRepository) CreateEntry(ctx context.Context, entry calendar.CalendarEntry) (calendar.CalendarEntry, error) {
	entry.ID = uuid.New().String()
	if _, err := repo.coll.InsertOne(ctx, toEntryDoc(entry)); err != nil {
		return calendar.CalendarEntry{}, errors.Wrap(err, "inserting calendar entry")
	}
	return entry, nil
}

func (repo entryRepository) GetEntry(ctx context.Context, id string) (calendar.CalendarEntry, error) {
	var doc entryDoc
	if err := repo.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		return calendar.CalendarEntry{}, trapNoDocsErr(err, calendar.ErrEntryNotFound, "finding calendar entry")
	}
	return doc.entry(), nil
}

func (repo entryRepository) QueryEntries(ctx context.Context, limit int) ([]calendar.CalendarEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := repo.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "querying calendar entries")
	}
	var docs []entryDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding calendar entries")
	}

	entries := make([]calendar.CalendarEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, doc.entry())
	}
	return entries, nil
}

func (repo entryRepository) UpdateEntry(ctx context.Context, entry calendar.CalendarEntry) (calendar.CalendarEntry, error) {
	doc := toEntryDoc(entry)
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "month", Value: doc.Month},
		{Key: "year", Value: doc.Year},
		{Key: "week1", Value: doc.Week1},
		{Key: "week2", Value: doc.Week2},
		{Key: "week3", Value: doc.Week3},
		{Key: "week4", Value: doc.Week4},
		{Key: "updatedAt", Value: doc.UpdatedAt},
	}}}
	res, err := repo.coll.UpdateByID(ctx, entry.ID, update)
	if err != nil {
		return calendar.CalendarEntry{}, errors.Wrap(err, "updating calendar entry")
	}
	if res.MatchedCount == 0 {
		return calendar.CalendarEntry{}, calendar.ErrEntryNotFound
	}
	return entry, nil
}

func (repo entryRepository) DeleteEntry(ctx context.Context, id string) error {
	res, err := repo.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return errors.Wrap(err, "deleting calendar entry")
	}
	if res.DeletedCount == 0 {
		return calendar.ErrEntryNotFound
	}
	return nil
}

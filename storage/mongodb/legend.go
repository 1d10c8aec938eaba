package mongodb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/ratiba/core/calendar"
)

type legendDoc struct {
	Abbreviation    string    `bson:"_id"`
	FullDescription string    `bson:"fullDescription"`
	UsageCount      int       `bson:"usageCount"`
	LastUsed        time.Time `bson:"lastUsed,omitempty"`
}

type legendRepository struct {
	coll *mongo.Collection
}

var _ calendar.LegendRepository = (*legendRepository)(nil) // interface compliance check

func NewLegendRepository(db *mongo.Database) *legendRepository {
	return &legendRepository{coll: db.Collection(LegendCollection)}
}

func (repo legendRepository) RecordUsage(ctx context.Context, codes []string, at time.Time, describe func(string) string) error {
	if len(codes) == 0 {
		return nil
	}

	// one upsert per observation
	models := make([]mongo.WriteModel, 0, len(codes))
	for _, code := range codes {
		update := bson.D{
			{Key: "$inc", Value: bson.D{{Key: "usageCount", Value: 1}}},
			{Key: "$set", Value: bson.D{{Key: "lastUsed", Value: at.UTC()}}},
			{Key: "$setOnInsert", Value: bson.D{{Key: "fullDescription", Value: describe(code)}}},
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "_id", Value: code}}).
			SetUpdate(update).
			SetUpsert(true))
	}
	if _, err := repo.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
		return errors.Wrap(err, "recording legend usage")
	}
	return nil
}

func (repo legendRepository) QueryLegend(ctx context.Context) ([]calendar.LegendEntry, error) {
	cur, err := repo.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "querying legend")
	}
	var docs []legendDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding legend")
	}

	legend := make([]calendar.LegendEntry, 0, len(docs))
	for _, doc := range docs {
		legend = append(legend, calendar.LegendEntry{
			Abbreviation:    doc.Abbreviation,
			FullDescription: doc.FullDescription,
			UsageCount:      doc.UsageCount,
			LastUsed:        doc.LastUsed.UTC(),
		})
	}
	return legend, nil
}

func (repo legendRepository) UpsertLegend(ctx context.Context, entries ...calendar.LegendEntry) error {
	if len(entries) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(entries))
	for _, entry := range entries {
		update := bson.D{
			{Key: "$set", Value: bson.D{{Key: "fullDescription", Value: entry.FullDescription}}},
			{Key: "$setOnInsert", Value: bson.D{{Key: "usageCount", Value: 0}}},
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "_id", Value: entry.Abbreviation}}).
			SetUpdate(update).
			SetUpsert(true))
	}
	if _, err := repo.coll.BulkWrite(ctx, models); err != nil {
		return errors.Wrap(err, "upserting legend")
	}
	return nil
}

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

type taskDoc struct {
	ID              string    `bson:"_id"`
	CalendarEntryID *string   `bson:"calendarEntryId"`
	Date            time.Time `bson:"date"`
	Codes           []string  `bson:"codes"`
	Description     string    `bson:"description"`
	MonthContext    string    `bson:"monthContext,omitempty"`
	Year            int       `bson:"year,omitempty"`
	WeekContext     string    `bson:"weekContext,omitempty"`
	DayContext      string    `bson:"dayContext,omitempty"`
	CreatedAt       time.Time `bson:"createdAt"`
}

func toTaskDoc(t calendar.EmailTask) taskDoc {
	return taskDoc{
		ID:              t.ID,
		CalendarEntryID: t.CalendarEntryID,
		Date:            t.Date.UTC(),
		Codes:           t.Codes,
		Description:     t.Description,
		MonthContext:    t.MonthContext,
		Year:            t.Year,
		WeekContext:     t.WeekContext,
		DayContext:      t.DayContext,
		CreatedAt:       t.CreatedAt.UTC(),
	}
}

func (d taskDoc) task() calendar.EmailTask {
	return calendar.EmailTask{
		ID:              d.ID,
		CalendarEntryID: d.CalendarEntryID,
		Date:            d.Date.UTC(),
		Codes:           d.Codes,
		Description:     d.Description,
		MonthContext:    d.MonthContext,
		Year:            d.Year,
		WeekContext:     d.WeekContext,
		DayContext:      d.DayContext,
		CreatedAt:       d.CreatedAt.UTC(),
	}
}

type taskRepository struct {
	coll *mongo.Collection
}

var _ calendar.TaskRepository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *mongo.Database) *taskRepository {
	return &taskRepository{coll: db.Collection(TaskCollection)}
}

func (repo taskRepository) CreateTasks(ctx context.Context, tasks ...calendar.EmailTask) ([]calendar.EmailTask, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	created := make([]calendar.EmailTask, 0, len(tasks))
	docs := make([]interface{}, 0, len(tasks))
	for _, task := range tasks {
		if task.ID == "" {
			task.ID = uuid.New().String()
		}
		docs = append(docs, toTaskDoc(task))
		created = append(created, task)
	}
	if _, err := repo.coll.InsertMany(ctx, docs); err != nil {
		return nil, errors.Wrap(err, "inserting email tasks")
	}
	return created, nil
}

func (repo taskRepository) GetTask(ctx context.Context, id string) (calendar.EmailTask, error) {
	var doc taskDoc
	if err := repo.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		return calendar.EmailTask{}, trapNoDocsErr(err, calendar.ErrTaskNotFound, "finding email task")
	}
	return doc.task(), nil
}

func (repo taskRepository) QueryTasksBetween(ctx context.Context, from, to time.Time) ([]calendar.EmailTask, error) {
	filter := bson.D{{Key: "date", Value: bson.D{
		{Key: "$gte", Value: from.UTC()},
		{Key: "$lte", Value: to.UTC()},
	}}}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "createdAt", Value: 1}})

	cur, err := repo.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "querying email tasks")
	}
	var docs []taskDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decoding email tasks")
	}

	tasks := make([]calendar.EmailTask, 0, len(docs))
	for _, doc := range docs {
		tasks = append(tasks, doc.task())
	}
	return tasks, nil
}

func (repo taskRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := repo.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return errors.Wrap(err, "deleting email task")
	}
	if res.DeletedCount == 0 {
		return calendar.ErrTaskNotFound
	}
	return nil
}

func (repo taskRepository) DeleteTasksByEntry(ctx context.Context, entryID string) (int, error) {
	res, err := repo.coll.DeleteMany(ctx, bson.D{{Key: "calendarEntryId", Value: entryID}})
	if err != nil {
		return 0, errors.Wrap(err, "deleting email tasks of calendar entry")
	}
	return int(res.DeletedCount), nil
}

func (repo taskRepository) CountTasks(ctx context.Context) (int, error) {
	n, err := repo.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, errors.Wrap(err, "counting email tasks")
	}
	return int(n), nil
}

package records

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/j-veylop/habitlens/internal/models"
	"github.com/j-veylop/habitlens/internal/retry"
)

// Collection names in the remote document store.
const (
	habitsCollection   = "habits"
	checkinsCollection = "checkins"
)

// MongoSource reads records from MongoDB.
type MongoSource struct {
	client   *mongo.Client
	habits   *mongo.Collection
	checkins *mongo.Collection
}

// NewMongoSource connects to uri and verifies the connection.
func NewMongoSource(ctx context.Context, uri, database string) (*MongoSource, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	return &MongoSource{
		client:   client,
		habits:   db.Collection(habitsCollection),
		checkins: db.Collection(checkinsCollection),
	}, nil
}

// ListHabits returns the user's habits ordered by name.
func (m *MongoSource) ListHabits(ctx context.Context, userID string) ([]models.Habit, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := m.habits.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer cursor.Close(ctx)

	var habits []models.Habit
	if err := cursor.All(ctx, &habits); err != nil {
		return nil, fmt.Errorf("failed to decode habits: %w", err)
	}
	return habits, nil
}

// GetHabit returns one habit owned by userID.
func (m *MongoSource) GetHabit(ctx context.Context, userID, habitID string) (*models.Habit, error) {
	var h models.Habit
	err := m.habits.FindOne(ctx, bson.M{"_id": habitID}).Decode(&h)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("habit %s: %w", habitID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query habit: %w", err)
	}
	if h.UserID != userID {
		return nil, fmt.Errorf("habit %s: %w", habitID, retry.ErrPermissionDenied)
	}
	return &h, nil
}

// CheckIns returns the resolved check-ins of a habit ordered by day.
func (m *MongoSource) CheckIns(ctx context.Context, userID, habitID string) ([]models.CheckRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "dateKey", Value: 1}})
	cursor, err := m.checkins.Find(ctx, bson.M{"userId": userID, "habitId": habitID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query check-ins: %w", err)
	}
	defer cursor.Close(ctx)

	var raw []models.RawCheckRecord
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode check-ins: %w", err)
	}
	return models.ResolveAll(raw), nil
}

// UpsertHabit stores a habit document.
func (m *MongoSource) UpsertHabit(ctx context.Context, h models.Habit) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := m.habits.ReplaceOne(ctx, bson.M{"_id": h.ID}, h, opts); err != nil {
		return fmt.Errorf("failed to upsert habit: %w", err)
	}
	return nil
}

// UpsertCheckIn stores a check-in, replacing any existing one for that day.
func (m *MongoSource) UpsertCheckIn(ctx context.Context, r models.RawCheckRecord) error {
	filter := bson.M{"habitId": r.HabitID, "dateKey": r.DateKey}
	opts := options.Replace().SetUpsert(true)
	if _, err := m.checkins.ReplaceOne(ctx, filter, r, opts); err != nil {
		return fmt.Errorf("failed to upsert check-in: %w", err)
	}
	return nil
}

// Close disconnects from the server.
func (m *MongoSource) Close() error {
	return m.client.Disconnect(context.Background())
}

package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"taskboard/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTaskRepository is a MongoDB implementation of TaskRepository.
type MongoTaskRepository struct {
	coll *mongo.Collection
}

// NewMongoTaskRepository creates a repository over the tasks collection of db.
func NewMongoTaskRepository(db *mongo.Database) *MongoTaskRepository {
	return &MongoTaskRepository{coll: db.Collection(tasksCollection)}
}

// taskFilterDoc builds the owner-scoped query document for filter.
func taskFilterDoc(userID string, filter models.TaskFilter) bson.M {
	doc := bson.M{"user": userID}
	if filter.Status != "" {
		doc["status"] = filter.Status
	}
	if filter.Priority != "" {
		doc["priority"] = filter.Priority
	}
	if filter.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		doc["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
		}
	}
	return doc
}

// taskSortDoc maps filter ordering onto document field names.
func taskSortDoc(filter models.TaskFilter) bson.D {
	field := filter.SortBy
	if !models.ValidSortField(field) {
		field = models.SortByCreatedAt
	}
	dir := 1
	if filter.Desc {
		dir = -1
	}
	return bson.D{{Key: field, Value: dir}}
}

// statsPipeline groups the user's tasks into a single TaskStats document.
func statsPipeline(userID string) mongo.Pipeline {
	countIf := func(field string, value interface{}) bson.M {
		return bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$" + field, value}}, 1, 0}}}
	}
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"total":        bson.M{"$sum": 1},
			"pending":      countIf("status", models.StatusPending),
			"inProgress":   countIf("status", models.StatusInProgress),
			"completed":    countIf("status", models.StatusCompleted),
			"highPriority": countIf("priority", models.PriorityHigh),
		}}},
		{{Key: "$project", Value: bson.M{"_id": 0}}},
	}
}

// List returns the user's tasks matching filter.
func (r *MongoTaskRepository) List(ctx context.Context, userID string, filter models.TaskFilter) ([]models.Task, error) {
	cur, err := r.coll.Find(ctx, taskFilterDoc(userID, filter), options.Find().SetSort(taskSortDoc(filter)))
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	tasks := []models.Task{}
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

// Stats aggregates the user's tasks in one pass.
func (r *MongoTaskRepository) Stats(ctx context.Context, userID string) (models.TaskStats, error) {
	cur, err := r.coll.Aggregate(ctx, statsPipeline(userID))
	if err != nil {
		return models.TaskStats{}, fmt.Errorf("failed to aggregate task stats: %w", err)
	}
	var rows []models.TaskStats
	if err := cur.All(ctx, &rows); err != nil {
		return models.TaskStats{}, fmt.Errorf("failed to decode task stats: %w", err)
	}
	if len(rows) == 0 {
		return models.TaskStats{}, nil
	}
	return rows[0], nil
}

// GetByID retrieves a task owned by userID.
func (r *MongoTaskRepository) GetByID(ctx context.Context, userID, id string) (*models.Task, error) {
	var task models.Task
	if err := r.coll.FindOne(ctx, bson.M{"_id": id, "user": userID}).Decode(&task); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task %s: %w", id, err)
	}
	return &task, nil
}

// Create inserts a new task document.
func (r *MongoTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	stampCreated(&task.CreatedAt, &task.UpdatedAt)
	if _, err := r.coll.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// Update sets every mutable field of task.
func (r *MongoTaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"title":       task.Title,
		"description": task.Description,
		"status":      task.Status,
		"priority":    task.Priority,
		"dueDate":     task.DueDate,
		"tags":        task.Tags,
		"updatedAt":   task.UpdatedAt,
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": task.ID, "user": task.UserID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a task owned by userID.
func (r *MongoTaskRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "user": userID})
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

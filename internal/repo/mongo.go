package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BuzzLyutic/personal-tasks/internal/model"
)

const (
	usersCollection           = "users"
	tasksCollection           = "tasks"
	idempotencyKeysCollection = "idempotency_keys"
)

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Owner       string             `bson:"user"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Priority    string             `bson:"priority"`
	DueDate     *time.Time         `bson:"dueDate,omitempty"`
	Completed   bool               `bson:"completed"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d taskDocument) model() model.Task {
	return model.Task{
		ID:          d.ID.Hex(),
		Owner:       d.Owner,
		Title:       d.Title,
		Description: d.Description,
		Priority:    model.Priority(d.Priority),
		DueDate:     d.DueDate,
		Completed:   d.Completed,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type userDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

func (d userDocument) model() model.User {
	return model.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

// EnsureIndexes creates the unique and lookup indexes the Mongo repositories
// rely on. Unique username/email indexes are what turn a concurrent
// duplicate registration into ErrorConflict.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	_, err = db.Collection(tasksCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("tasks indexes: %w", err)
	}
	return nil
}

type MongoTaskRepo struct {
	tasks *mongo.Collection
	keys  *mongo.Collection
	now   func() time.Time
}

func NewMongoTaskRepo(db *mongo.Database) *MongoTaskRepo {
	return &MongoTaskRepo{
		tasks: db.Collection(tasksCollection),
		keys:  db.Collection(idempotencyKeysCollection),
		now:   mongoNow,
	}
}

// Mongo хранит время с точностью до миллисекунд
func mongoNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// ownedFilter returns the filter for task id owned by owner. ok is false
// when id is not an ObjectID, which can never match a stored task.
func ownedFilter(owner, id string) (bson.M, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "user": owner}, true
}

func (r *MongoTaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	now := r.now()
	doc := taskDocument{
		ID:          primitive.NewObjectID(),
		Owner:       t.Owner,
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := r.tasks.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return t, ErrorConflict
		}
		return t, err
	}
	return doc.model(), nil
}

func (r *MongoTaskRepo) Get(ctx context.Context, owner, id string) (model.Task, error) {
	filter, ok := ownedFilter(owner, id)
	if !ok {
		return model.Task{}, ErrorNotFound
	}
	var doc taskDocument
	if err := r.tasks.FindOne(ctx, filter).Decode(&doc); err != nil {
		return model.Task{}, mapMongoError(err)
	}
	return doc.model(), nil
}

func (r *MongoTaskRepo) List(ctx context.Context, owner string) ([]model.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.tasks.Find(ctx, bson.M{"user": owner}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	tasks := make([]model.Task, 0)
	for cur.Next(ctx) {
		var doc taskDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		tasks = append(tasks, doc.model())
	}
	return tasks, cur.Err()
}

func (r *MongoTaskRepo) Update(ctx context.Context, owner, id string, patch model.TaskPatch) (model.Task, error) {
	filter, ok := ownedFilter(owner, id)
	if !ok {
		return model.Task{}, ErrorNotFound
	}

	set := bson.M{"updatedAt": r.now()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Priority != nil {
		set["priority"] = string(*patch.Priority)
	}
	if patch.DueDate != nil {
		set["dueDate"] = *patch.DueDate
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}
	update := bson.M{"$set": set}
	if patch.ClearDueDate {
		update["$unset"] = bson.M{"dueDate": ""}
	}

	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *MongoTaskRepo) Toggle(ctx context.Context, owner, id string) (model.Task, error) {
	filter, ok := ownedFilter(owner, id)
	if !ok {
		return model.Task{}, ErrorNotFound
	}
	// pipeline update: flip happens inside the server, single document
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"completed": bson.M{"$not": bson.A{"$completed"}},
			"updatedAt": r.now(),
		}}},
	}
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *MongoTaskRepo) findOneAndUpdate(ctx context.Context, filter bson.M, update interface{}) (model.Task, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc taskDocument
	if err := r.tasks.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return model.Task{}, mapMongoError(err)
	}
	return doc.model(), nil
}

func (r *MongoTaskRepo) Delete(ctx context.Context, owner, id string) error {
	filter, ok := ownedFilter(owner, id)
	if !ok {
		return ErrorNotFound
	}
	res, err := r.tasks.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *MongoTaskRepo) Stats(ctx context.Context, owner string) (model.TaskStats, error) {
	var s model.TaskStats
	total, err := r.tasks.CountDocuments(ctx, bson.M{"user": owner})
	if err != nil {
		return s, err
	}
	completed, err := r.tasks.CountDocuments(ctx, bson.M{"user": owner, "completed": true})
	if err != nil {
		return s, err
	}
	s.Total, s.Completed = int(total), int(completed)
	return s, nil
}

func idempotencyID(owner, key string) string {
	return owner + ":" + key
}

func (r *MongoTaskRepo) SaveIdempotencyKey(ctx context.Context, owner, key, taskID string) error {
	_, err := r.keys.UpdateOne(ctx,
		bson.M{"_id": idempotencyID(owner, key)},
		bson.M{"$set": bson.M{"taskId": taskID, "createdAt": r.now()}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *MongoTaskRepo) GetIdempotencyKey(ctx context.Context, owner, key string) (string, error) {
	var doc struct {
		TaskID string `bson:"taskId"`
	}
	if err := r.keys.FindOne(ctx, bson.M{"_id": idempotencyID(owner, key)}).Decode(&doc); err != nil {
		return "", mapMongoError(err)
	}
	return doc.TaskID, nil
}

type MongoUserRepo struct {
	users *mongo.Collection
	now   func() time.Time
}

func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{users: db.Collection(usersCollection), now: mongoNow}
}

func (r *MongoUserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	doc := userDocument{
		ID:           primitive.NewObjectID(),
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    r.now(),
	}
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.User{}, ErrorConflict
		}
		return model.User{}, err
	}
	return doc.model(), nil
}

func (r *MongoUserRepo) FindByUsername(ctx context.Context, username string) (model.User, error) {
	var doc userDocument
	if err := r.users.FindOne(ctx, bson.M{"username": username}).Decode(&doc); err != nil {
		return model.User{}, mapMongoError(err)
	}
	return doc.model(), nil
}

func (r *MongoUserRepo) Exists(ctx context.Context, username, email string) (bool, error) {
	n, err := r.users.CountDocuments(ctx,
		bson.M{"$or": bson.A{bson.M{"username": username}, bson.M{"email": email}}},
		options.Count().SetLimit(1),
	)
	return n > 0, err
}

func mapMongoError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrorNotFound
	}
	return err
}

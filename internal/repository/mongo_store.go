package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"anime-api/internal/model"
)

const (
	usersCollection = "users"
	postsCollection = "posts"
)

// MongoStore keeps users and posts as documents. Posts are listed by
// created_at, then _id.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	posts  *mongo.Collection
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	db := client.Database(database)
	return &MongoStore{
		client: client,
		users:  db.Collection(usersCollection),
		posts:  db.Collection(postsCollection),
	}
}

// EnsureIndexes creates the unique username and email indexes plus the
// listing index. It is idempotent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create user indexes failed: %w", err)
	}
	_, err = s.posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create post index failed: %w", err)
	}
	return nil
}

func (s *MongoStore) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"username": username}, "username")
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"_id": id}, "id")
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M, by string) (*model.User, error) {
	var user model.User
	if err := s.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by %s failed: %w", by, err)
	}
	return &user, nil
}

func (s *MongoStore) UsernameOrEmailExists(ctx context.Context, username, email string) (bool, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": email},
	}}
	count, err := s.users.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count users failed: %w", err)
	}
	return count > 0, nil
}

func (s *MongoStore) InsertUser(ctx context.Context, user *model.User) error {
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user failed: %w", err)
	}
	return nil
}

func (s *MongoStore) InsertPost(ctx context.Context, post *model.Post) error {
	if _, err := s.posts.InsertOne(ctx, post); err != nil {
		return fmt.Errorf("insert post failed: %w", err)
	}
	return nil
}

func (s *MongoStore) ListPosts(ctx context.Context, offset, limit int) ([]model.Post, error) {
	posts := []model.Post{}
	// A zero limit means "no limit" to the server.
	if limit <= 0 {
		return posts, nil
	}
	if offset < 0 {
		offset = 0
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	cursor, err := s.posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list posts failed: %w", err)
	}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts failed: %w", err)
	}
	return posts, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

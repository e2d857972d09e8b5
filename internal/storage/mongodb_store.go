package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBStore implements Store using MongoDB.
type MongoDBStore struct {
	client      *mongo.Client
	submissions *mongo.Collection
}

// mongoSubmission is the BSON document shape for a submission.
type mongoSubmission struct {
	ID        string    `bson:"_id"`
	FormID    string    `bson:"form_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Message   string    `bson:"message"`
	ClientIP  string    `bson:"client_ip,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

// NewMongoDBStore creates a new MongoDB-backed store.
func NewMongoDBStore(connectionString, database, collection string) (*MongoDBStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		// NOTE: client.Disconnect() error is intentionally ignored during initialization cleanup.
		// If connection fails, the Disconnect() error is not actionable and would only obscure
		// the original connection failure. The primary error is returned to the caller.
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	if collection == "" {
		collection = "submissions"
	}

	store := &MongoDBStore{
		client:      client,
		submissions: client.Database(database).Collection(collection),
	}

	if err := store.createIndexes(ctx); err != nil {
		// Same rationale: Disconnect() error during initialization cleanup is not actionable
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return store, nil
}

// createIndexes sets up the form/created-at listing index.
func (s *MongoDBStore) createIndexes(ctx context.Context) error {
	_, err := s.submissions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "form_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
	})
	if err != nil {
		return fmt.Errorf("create submissions index: %w", err)
	}
	return nil
}

// SaveSubmission implements Store.
func (s *MongoDBStore) SaveSubmission(ctx context.Context, sub Submission) error {
	doc := mongoSubmission{
		ID:        sub.ID,
		FormID:    sub.FormID,
		Name:      sub.Name,
		Email:     sub.Email,
		Message:   sub.Message,
		ClientIP:  sub.ClientIP,
		CreatedAt: sub.CreatedAt,
	}
	if _, err := s.submissions.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// ListSubmissions implements Store.
func (s *MongoDBStore) ListSubmissions(ctx context.Context, formID string, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	filter := bson.M{}
	if formID != "" {
		filter["form_id"] = formID
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.submissions.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoSubmission
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode submissions: %w", err)
	}

	result := make([]Submission, 0, len(docs))
	for _, doc := range docs {
		result = append(result, Submission{
			ID:        doc.ID,
			FormID:    doc.FormID,
			Name:      doc.Name,
			Email:     doc.Email,
			Message:   doc.Message,
			ClientIP:  doc.ClientIP,
			CreatedAt: doc.CreatedAt,
		})
	}
	return result, nil
}

// GetSubmission implements Store.
func (s *MongoDBStore) GetSubmission(ctx context.Context, formID, id string) (Submission, error) {
	filter := bson.M{"_id": id}
	if formID != "" {
		filter["form_id"] = formID
	}

	var doc mongoSubmission
	err := s.submissions.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return Submission{}, ErrNotFound
	}
	if err != nil {
		return Submission{}, fmt.Errorf("query submission: %w", err)
	}

	return Submission{
		ID:        doc.ID,
		FormID:    doc.FormID,
		Name:      doc.Name,
		Email:     doc.Email,
		Message:   doc.Message,
		ClientIP:  doc.ClientIP,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// Close implements Store.
func (s *MongoDBStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

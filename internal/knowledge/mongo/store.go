package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Rrens/support-widget/internal/knowledge"
)

const collectionName = "knowledge_entries"

type document struct {
	ID        string    `bson:"_id"`
	Namespace string    `bson:"namespace"`
	Title     string    `bson:"title"`
	Text      string    `bson:"text"`
	Score     float64   `bson:"score,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d document) entry() (knowledge.Entry, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return knowledge.Entry{}, fmt.Errorf("invalid entry id %q: %w", d.ID, err)
	}
	return knowledge.Entry{
		ID:        id,
		Namespace: d.Namespace,
		Title:     d.Title,
		Text:      d.Text,
		Score:     d.Score,
		CreatedAt: d.CreatedAt,
	}, nil
}

// Store implements knowledge.Store on a MongoDB text index
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewStore creates a new MongoDB store
func NewStore() knowledge.Store {
	return &Store{}
}

// Backend returns the backend identifier
func (s *Store) Backend() string {
	return "mongo"
}

// Connect opens the client and ensures the text index exists
func (s *Store) Connect(ctx context.Context, config knowledge.ConnectionConfig) error {
	if config.URI == "" {
		return fmt.Errorf("mongo uri is required")
	}

	clientOpts := options.Client().ApplyURI(config.URI).SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping: %w", err)
	}

	coll := client.Database(config.Database).Collection(collectionName)

	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "title", Value: "text"}, {Key: "text", Value: "text"}},
			Options: options.Index().
				SetName("knowledge_text").
				SetWeights(bson.D{{Key: "title", Value: 2}, {Key: "text", Value: 1}}),
		},
		{
			Keys: bson.D{{Key: "namespace", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	if err != nil {
		client.Disconnect(context.Background())
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	s.client = client
	s.coll = coll
	return nil
}

// Close closes the connection
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Disconnect(context.Background())
	}
	return nil
}

// HealthCheck verifies connection is alive
func (s *Store) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("not connected")
	}
	return s.client.Ping(ctx, nil)
}

// Add stores an entry
func (s *Store) Add(ctx context.Context, entry *knowledge.Entry) error {
	_, err := s.coll.InsertOne(ctx, document{
		ID:        entry.ID.String(),
		Namespace: entry.Namespace,
		Title:     entry.Title,
		Text:      entry.Text,
		CreatedAt: entry.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

// Search ranks entries by $text score
func (s *Store) Search(ctx context.Context, namespace, query string, limit int) ([]knowledge.Entry, error) {
	filter := bson.M{
		"namespace": namespace,
		"$text":     bson.M{"$search": query},
	}
	score := bson.M{"score": bson.M{"$meta": "textScore"}}

	opts := options.Find().
		SetProjection(score).
		SetSort(score).
		SetLimit(int64(limit))

	return s.find(ctx, filter, opts)
}

// List returns the namespace's entries, newest first
func (s *Store) List(ctx context.Context, namespace string, limit, offset int) ([]knowledge.Entry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	return s.find(ctx, bson.M{"namespace": namespace}, opts)
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]knowledge.Entry, error) {
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode entries: %w", err)
	}

	entries := make([]knowledge.Entry, 0, len(docs))
	for _, d := range docs {
		e, err := d.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Delete removes an entry
func (s *Store) Delete(ctx context.Context, namespace string, id uuid.UUID) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": id.String(), "namespace": namespace})
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}

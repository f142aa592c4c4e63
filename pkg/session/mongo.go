package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/pagestrip/pkg/controller"
	"github.com/matzehuels/pagestrip/pkg/strip"
)

// Default MongoDB names.
const (
	DefaultMongoDatabase   = "pagestrip"
	DefaultMongoCollection = "sessions"
)

// MongoStore keeps sessions as documents keyed by session ID. A TTL index
// on expires_at lets the server drop expired sessions; Get also filters
// them since TTL deletion runs only periodically.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	owned  bool
}

// NewMongoStore connects to uri and prepares the collection's TTL index.
// Empty database or collection names use the defaults.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s, err := NewMongoStoreFromClient(ctx, client, database, collection)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewMongoStoreFromClient uses an existing client. Close does not
// disconnect it.
func NewMongoStoreFromClient(ctx context.Context, client *mongo.Client, database, collection string) (*MongoStore, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	if collection == "" {
		collection = DefaultMongoCollection
	}
	coll := client.Database(database).Collection(collection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, fmt.Errorf("create ttl index: %w", err)
	}
	return &MongoStore{client: client, coll: coll}, nil
}

// mongoSession is the stored document. Style is flattened because
// strip.Style keeps its fields unexported.
type mongoSession struct {
	ID                  string    `bson:"_id"`
	ItemCount           int       `bson:"item_count"`
	StyleKind           string    `bson:"style_kind"`
	Focus               *int      `bson:"focus,omitempty"`
	Ratio               *float64  `bson:"ratio,omitempty"`
	ViewportWidth       float64   `bson:"viewport_width"`
	ViewportHeight      float64   `bson:"viewport_height"`
	CachedExpandedWidth *float64  `bson:"cached_expanded_width,omitempty"`
	AspectRatios        []float64 `bson:"aspect_ratios,omitempty"`
	CreatedAt           time.Time `bson:"created_at"`
	ExpiresAt           time.Time `bson:"expires_at"`
}

func toMongo(s *Session) mongoSession {
	doc := mongoSession{
		ID:                  s.ID,
		ItemCount:           s.State.ItemCount,
		StyleKind:           s.State.Style.Kind(),
		ViewportWidth:       s.State.Viewport.Width,
		ViewportHeight:      s.State.Viewport.Height,
		CachedExpandedWidth: s.State.CachedExpandedWidth,
		AspectRatios:        s.AspectRatios,
		CreatedAt:           s.CreatedAt,
		ExpiresAt:           s.ExpiresAt,
	}
	if focus, ok := s.State.Style.FocusIndex(); ok {
		doc.Focus = &focus
	}
	if r, ok := s.State.Style.AspectRatioOverride(); ok {
		doc.Ratio = &r
	}
	return doc
}

func (d mongoSession) session() (*Session, error) {
	style, err := strip.ParseStyle(d.StyleKind, d.Focus, d.Ratio)
	if err != nil {
		return nil, fmt.Errorf("decode session %s: %w", d.ID, err)
	}
	return &Session{
		ID: d.ID,
		State: controller.State{
			ItemCount:           d.ItemCount,
			Style:               style,
			Viewport:            strip.Size{Width: d.ViewportWidth, Height: d.ViewportHeight},
			CachedExpandedWidth: d.CachedExpandedWidth,
		},
		AspectRatios: d.AspectRatios,
		CreatedAt:    d.CreatedAt,
		ExpiresAt:    d.ExpiresAt,
	}, nil
}

func (s *MongoStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	filter := bson.M{"_id": sessionID, "expires_at": bson.M{"$gt": time.Now()}}
	var doc mongoSession
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return doc.session()
}

func (s *MongoStore) Set(ctx context.Context, sess *Session) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": sess.ID}, toMongo(sess), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": sessionID}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Cleanup deletes expired sessions now rather than waiting for the TTL
// monitor.
func (s *MongoStore) Cleanup(ctx context.Context) error {
	if _, err := s.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now()}}); err != nil {
		return fmt.Errorf("cleanup sessions: %w", err)
	}
	return nil
}

func (s *MongoStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)

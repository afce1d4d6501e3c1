package report

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/miki725/subui/pkg/errors"
	"github.com/miki725/subui/pkg/observability"
)

// MongoConfig configures a MongoDB-backed transcript store.
type MongoConfig struct {
	// URI is the MongoDB connection string.
	URI string

	// Database name. Defaults to "subui".
	Database string

	// Collection name. Defaults to "reports".
	Collection string
}

// MongoStore persists transcripts in a MongoDB collection, keyed by run ID.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "mongo URI cannot be empty")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := cfg.Database
	if db == "" {
		db = "subui"
	}
	coll := cfg.Collection
	if coll == "" {
		coll = "reports"
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(db).Collection(coll),
	}, nil
}

func (s *MongoStore) Save(ctx context.Context, t *Transcript) error {
	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"run_id": t.RunID},
		t,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		err = fmt.Errorf("save transcript: %w", err)
	}
	observability.Store().OnSave(ctx, "mongo", t.RunID, err)
	return err
}

func (s *MongoStore) Load(ctx context.Context, runID string) (*Transcript, error) {
	var t Transcript
	err := s.coll.FindOne(ctx, bson.M{"run_id": runID}).Decode(&t)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			err = errors.New(errors.ErrCodeReportNotFound, "no report for run %q", runID)
		} else {
			err = fmt.Errorf("load transcript: %w", err)
		}
		observability.Store().OnLoad(ctx, "mongo", runID, err)
		return nil, err
	}
	observability.Store().OnLoad(ctx, "mongo", runID, nil)
	return &t, nil
}

func (s *MongoStore) List(ctx context.Context, limit int) ([]*Transcript, error) {
	opts := options.Find().SetSort(bson.M{"started_at": -1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer cursor.Close(ctx)

	var transcripts []*Transcript
	if err := cursor.All(ctx, &transcripts); err != nil {
		return nil, fmt.Errorf("decode transcripts: %w", err)
	}
	return transcripts, nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)

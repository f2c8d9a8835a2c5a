package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/certtrack/certtrack/internal/auth/store"
	"github.com/certtrack/certtrack/pkg/slogx"
	"github.com/sethvargo/go-retry"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const usersCollection = "users"

// Config describes how to reach the document database.
type Config struct {
	URI      string
	Database string

	// ConnectTimeout bounds the whole startup handshake, retries included.
	ConnectTimeout time.Duration

	// MaxRetries is the number of extra ping attempts at startup.
	MaxRetries uint64
}

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Store = (*Store)(nil)

// NewStore connects and pings the server, retrying with exponential backoff
// while the database comes up. Retries only ever cover this handshake.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}

	client, err := mongo.Connect(options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(5 * time.Second))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	log := slogx.FromContext(ctx)
	backoff := retry.WithCappedDuration(5*time.Second,
		retry.WithMaxRetries(cfg.MaxRetries, retry.NewExponential(250*time.Millisecond)))

	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			log.Warn("mongo ping failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Join(store.ErrUnavailable, err)
	}

	return &Store{
		client: client,
		db:     client.Database(cfg.Database),
	}, nil
}

// ApplyMigrations creates the indexes the store relies on. The unique email
// index is what makes concurrent registrations of one email safe.
func (s *Store) ApplyMigrations(ctx context.Context) error {
	_, err := s.users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_unique"),
	})
	return mapError(err)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return mapError(s.client.Ping(ctx, readpref.Primary()))
}

func (s *Store) Users() store.Users { return &usersRepo{coll: s.users()} }

func (s *Store) users() *mongo.Collection { return s.db.Collection(usersCollection) }

// mapError converts driver errors into store sentinels, keeping the driver
// error in the chain for logs.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrAlreadyExists
	case mongo.IsNetworkError(err), mongo.IsTimeout(err), errors.Is(err, mongo.ErrClientDisconnected):
		return errors.Join(store.ErrUnavailable, err)
	default:
		return err
	}
}

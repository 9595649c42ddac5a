package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskboard/internal/models"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	usersCollection = "users"
	tasksCollection = "tasks"
)

// Backend names the storage engine selected by a DSN.
type Backend string

const (
	BackendMongo    Backend = "mongodb"
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
	BackendMemory   Backend = "memory"
)

// DetectBackend picks the storage engine from the shape of dsn.
func DetectBackend(dsn string) Backend {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(lower, "mongodb://"), strings.HasPrefix(lower, "mongodb+srv://"):
		return BackendMongo
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"), strings.HasPrefix(lower, "host="):
		return BackendPostgres
	case lower == "memory":
		return BackendMemory
	default:
		return BackendSQLite
	}
}

// Store bundles the repositories of one backend with its shutdown hook.
type Store struct {
	Backend Backend
	Users   UserRepository
	Tasks   TaskRepository
	close   func(ctx context.Context) error
}

// Close releases the underlying connections.
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// Open connects to the store described by dsn, creating tables or indexes
// as needed. database is only used by MongoDB.
func Open(ctx context.Context, dsn, database string) (*Store, error) {
	backend := DetectBackend(dsn)
	switch backend {
	case BackendMongo:
		return openMongo(ctx, dsn, database)
	case BackendMemory:
		return &Store{
			Backend: backend,
			Users:   NewMemoryUserRepository(),
			Tasks:   NewMemoryTaskRepository(),
		}, nil
	case BackendPostgres:
		return openGORM(backend, postgres.Open(dsn))
	default:
		return openGORM(backend, sqlite.Open(dsn))
	}
}

// NewGORMStore wraps an already opened GORM connection, migrating the schema.
func NewGORMStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&models.User{}, &models.Task{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return &Store{
		Backend: Backend(db.Dialector.Name()),
		Users:   NewGORMUserRepository(db),
		Tasks:   NewGORMTaskRepository(db),
		close: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}, nil
}

func openGORM(backend Backend, dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(log.StandardLogger(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", backend, err)
	}
	return NewGORMStore(db)
}

func openMongo(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	if err := ensureMongoIndexes(ctx, db); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &Store{
		Backend: BackendMongo,
		Users:   NewMongoUserRepository(db),
		Tasks:   NewMongoTaskRepository(db),
		close:   client.Disconnect,
	}, nil
}

func ensureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	_, err = db.Collection(tasksCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "priority", Value: 1}}},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create tasks indexes: %w", err)
	}
	return nil
}

package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store on a single JSONB documents table. Equality
// filters map to the @> containment operator and field merges to the ||
// concatenation operator, so no store-specific query language leaks out.
type Postgres struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration read from the environment.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    collection TEXT NOT NULL,
    id         TEXT NOT NULL,
    data       JSONB NOT NULL DEFAULT '{}'::jsonb,
    PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_data_idx ON documents USING GIN (data jsonb_path_ops);
`

// NewPostgres connects to the document database with retry logic for
// serverless backends that cold start.
func NewPostgres(ctx context.Context) (*Postgres, error) {
	return NewPostgresWithRetry(ctx, 5, time.Second)
}

// NewPostgresWithRetry connects with configurable retry/backoff.
func NewPostgresWithRetry(ctx context.Context, maxRetries int, initialDelay time.Duration) (*Postgres, error) {
	var poolConfig *pgxpool.Config
	var err error
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		poolConfig, err = pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
	} else {
		config := getConfigFromEnv()
		connStr := fmt.Sprintf(
			"host=%s port=%d user=%s dbname=%s sslmode=%s",
			config.Host, config.Port, config.User, config.DBName, config.SSLMode,
		)
		if config.Password != "" {
			connStr += " password=" + config.Password
		}
		poolConfig, err = pgxpool.ParseConfig(connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse database config: %w", err)
		}
	}

	poolConfig.MaxConns = 20
	poolConfig.MinConns = 0
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	// Simple protocol keeps connection poolers happy (no prepared statements).
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	var pool *pgxpool.Pool
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		log.Printf("[DOCSTORE] Connection attempt %d/%d to %s@%s:%d",
			attempt, maxRetries, poolConfig.ConnConfig.User, poolConfig.ConnConfig.Host, poolConfig.ConnConfig.Port)

		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			lastErr = fmt.Errorf("failed to create connection pool: %w", err)
		} else {
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err = pool.Ping(pingCtx)
			cancel()
			if err == nil {
				break
			}
			lastErr = fmt.Errorf("failed to ping database: %w", err)
			pool.Close()
			pool = nil
		}

		log.Printf("[DOCSTORE] Connection failed (attempt %d): %v", attempt, lastErr)
		if attempt < maxRetries {
			delay := initialDelay * time.Duration(1<<(attempt-1))
			log.Printf("[DOCSTORE] Retrying in %v...", delay)
			time.Sleep(delay)
		}
	}
	if pool == nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, lastErr)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure documents schema: %w", err)
	}

	log.Println("[DOCSTORE] Document store connection established")
	return &Postgres{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
		log.Println("Document store connection pool closed")
	}
}

// Health checks if the store is reachable.
func (p *Postgres) Health(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

// Get fetches one document by ID.
func (p *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw []byte
	err := p.Pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return Document{}, fmt.Errorf("failed to unmarshal %s/%s: %w", collection, id, err)
	}
	return Document{ID: id, Data: data}, nil
}

// Create inserts a new document under a generated ID and returns the ID.
func (p *Postgres) Create(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	id := uuid.NewString()
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}
	_, err = p.Pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`,
		collection, id, raw,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create document in %s: %w", collection, err)
	}
	return id, nil
}

// Set writes a document under an explicit ID, replacing any existing payload.
func (p *Postgres) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	_, err = p.Pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data`,
		collection, id, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update merges top-level fields into an existing document.
func (p *Postgres) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}
	tag, err := p.Pool.Exec(ctx,
		`UPDATE documents SET data = data || $3::jsonb WHERE collection = $1 AND id = $2`,
		collection, id, raw,
	)
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Find lists documents matching all equality filters, in the store's natural
// order.
func (p *Postgres) Find(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	match := make(map[string]interface{}, len(filters))
	for _, f := range filters {
		match[f.Field] = f.Value
	}
	raw, err := json.Marshal(match)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal filters: %w", err)
	}

	rows, err := p.Pool.Query(ctx,
		`SELECT id, data FROM documents WHERE collection = $1 AND data @> $2::jsonb`,
		collection, raw,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		var data map[string]interface{}
		if err := json.Unmarshal(payload, &data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document %s: %w", id, err)
		}
		docs = append(docs, Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", collection, err)
	}
	return docs, nil
}

// getConfigFromEnv reads database configuration from environment variables.
func getConfigFromEnv() Config {
	config := Config{
		Host:     getEnv("DB_HOST", "localhost"),
		User:     getEnv("DB_USER", "chatstore"),
		Password: getEnv("DB_PASSWORD", ""),
		DBName:   getEnv("DB_NAME", "chatstore_db"),
		SSLMode:  getEnv("DB_SSLMODE", "prefer"),
	}

	portStr := getEnv("DB_PORT", "5432")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Printf("Invalid DB_PORT value: %s, using default 5432", portStr)
		port = 5432
	}
	config.Port = port

	return config
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

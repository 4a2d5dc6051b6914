package vector

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"routeqa/llm"

	"github.com/redis/go-redis/v9"
)

const (
	// Default HNSW configuration
	defaultEFConstruction = 200
	defaultM              = 16

	// Field names in Redis hash
	fieldVector     = "vector"
	fieldText       = "text"
	fieldDocumentID = "document_id"
	fieldPayload    = "payload"
	fieldScore      = "score"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	PoolSize       int
	EFConstruction int
	M              int
}

// RedisIndex implements Index using Redis with RediSearch vector search.
// Each collection is a search index over hashes keyed "<collection>:<id>".
type RedisIndex struct {
	client         *redis.Client
	efConstruction int
	m              int
}

// NewRedisIndex connects to Redis and verifies the connection
func NewRedisIndex(ctx context.Context, cfg RedisConfig) (*RedisIndex, error) {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}
	if cfg.EFConstruction <= 0 {
		cfg.EFConstruction = defaultEFConstruction
	}
	if cfg.M <= 0 {
		cfg.M = defaultM
	}

	// RESP2 keeps FT.SEARCH replies as flat arrays.
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
		Protocol: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to connect to Redis: %v", ErrIndexUnavailable, err)
	}

	return &RedisIndex{
		client:         client,
		efConstruction: cfg.EFConstruction,
		m:              cfg.M,
	}, nil
}

func keyPrefix(collection string) string {
	return collection + ":"
}

// Exists checks the index with FT.INFO. A server-side error reply means the index is missing.
func (s *RedisIndex) Exists(ctx context.Context, collection string) (bool, error) {
	_, err := s.client.Do(ctx, "FT.INFO", collection).Result()
	if err == nil {
		return true, nil
	}

	var replyErr redis.Error
	if errors.As(err, &replyErr) {
		return false, nil
	}
	return false, fmt.Errorf("%w: FT.INFO %s: %v", ErrIndexUnavailable, collection, err)
}

// Create creates the HNSW vector index for collection.
func (s *RedisIndex) Create(ctx context.Context, collection string, dim int, metric Metric) error {
	if metric != MetricCosine {
		return fmt.Errorf("redis: unsupported metric %q", metric)
	}

	// FT.CREATE <collection>
	//   ON HASH PREFIX 1 "<collection>:"
	//   SCHEMA vector VECTOR HNSW 10 TYPE FLOAT32 DIM 384 DISTANCE_METRIC COSINE EF_CONSTRUCTION 200 M 16
	//          text TEXT
	//          document_id TAG
	_, err := s.client.Do(ctx, "FT.CREATE", collection,
		"ON", "HASH",
		"PREFIX", "1", keyPrefix(collection),
		"SCHEMA",
		fieldVector, "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(dim),
		"DISTANCE_METRIC", "COSINE",
		"EF_CONSTRUCTION", strconv.Itoa(s.efConstruction),
		"M", strconv.Itoa(s.m),
		fieldText, "TEXT",
		fieldDocumentID, "TAG",
	).Result()
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "index already exists") {
			return nil
		}
		return fmt.Errorf("redis: failed to create index %s: %w", collection, err)
	}
	return nil
}

// Upsert writes all items in one pipeline; HSET overwrites existing keys.
func (s *RedisIndex) Upsert(ctx context.Context, collection string, items []llm.EmbeddedItem) error {
	if len(items) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, item := range items {
		payloadJSON, err := json.Marshal(item.Payload)
		if err != nil {
			return fmt.Errorf("redis: encode payload for %s: %w", item.ID, err)
		}

		text, _ := item.Payload[llm.PayloadText].(string)
		docID, _ := item.Payload[llm.PayloadDocumentID].(string)

		pipe.HSet(ctx, keyPrefix(collection)+item.ID,
			fieldVector, encodeVector(item.Vector),
			fieldText, text,
			fieldDocumentID, docID,
			fieldPayload, payloadJSON,
		)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: redis upsert into %s: %v", ErrIndexUnavailable, collection, err)
	}
	return nil
}

// encodeVector encodes a float32 vector as little-endian bytes, the layout RediSearch expects
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// Search runs a KNN query. RediSearch reports cosine distance, converted here to similarity.
func (s *RedisIndex) Search(ctx context.Context, collection string, vector []float32, limit int) ([]llm.SearchHit, error) {
	// FT.SEARCH <collection> "*=>[KNN 4 @vector $query_vector AS score]"
	//   PARAMS 2 query_vector "<bytes>"
	//   RETURN 2 score payload
	//   SORTBY score
	//   LIMIT 0 4
	//   DIALECT 2
	queryStr := fmt.Sprintf("*=>[KNN %d @%s $query_vector AS %s]", limit, fieldVector, fieldScore)

	result, err := s.client.Do(ctx, "FT.SEARCH", collection, queryStr,
		"PARAMS", "2", "query_vector", encodeVector(vector),
		"RETURN", "2", fieldScore, fieldPayload,
		"SORTBY", fieldScore,
		"LIMIT", "0", strconv.Itoa(limit),
		"DIALECT", "2",
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: vector search on %s: %v", ErrIndexUnavailable, collection, err)
	}

	return parseSearchResults(result, keyPrefix(collection))
}

// parseSearchResults parses the RESP2 FT.SEARCH reply:
// [count, key1, [field, value, ...], key2, [...], ...]
func parseSearchResults(result interface{}, prefix string) ([]llm.SearchHit, error) {
	values, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("redis: unexpected search result format %T", result)
	}

	hits := make([]llm.SearchHit, 0, len(values)/2)
	for i := 1; i+1 < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		fields, ok := values[i+1].([]interface{})
		if !ok {
			continue
		}

		hit := llm.SearchHit{
			ID:      strings.TrimPrefix(key, prefix),
			Payload: map[string]any{},
		}
		for j := 0; j+1 < len(fields); j += 2 {
			name, _ := fields[j].(string)
			value, _ := fields[j+1].(string)
			switch name {
			case fieldScore:
				if dist, err := strconv.ParseFloat(value, 32); err == nil {
					hit.Score = float32(1 - dist)
				}
			case fieldPayload:
				if err := json.Unmarshal([]byte(value), &hit.Payload); err != nil {
					return nil, fmt.Errorf("redis: decode payload of %s: %w", key, err)
				}
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Close closes the Redis connection
func (s *RedisIndex) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/swimlane/pkg/domain"
	"github.com/aretw0/swimlane/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the adapter writes.
const DefaultPrefix = "swimlane:"

// entry is the stored form of a Record. The sequence number is the list
// position, so it is not stored.
type entry struct {
	At    time.Time       `json:"at"`
	Event domain.Envelope `json:"event"`
}

// Log implements ports.EventLog using one Redis list per board plus a
// sorted-set index of boards.
type Log struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Log.
type Option func(*Log)

// WithTTL sets the expiration of an idle board log. Every append renews it.
func WithTTL(ttl time.Duration) Option {
	return func(l *Log) {
		l.ttl = ttl
	}
}

// WithPrefix sets the key prefix for board logs.
func WithPrefix(prefix string) Option {
	return func(l *Log) {
		l.prefix = prefix
	}
}

// New creates a new Redis event log with options.
func New(address, password string, db int, opts ...Option) *Log {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis event log from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Log {
	log := &Log{
		client: client,
		prefix: DefaultPrefix,
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(log)
	}

	return log
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (l *Log) Client() *backend.Client {
	return l.client
}

// Keys live in three namespaces under the prefix: "log:<board>",
// "index" and the Locker's "lock:<board>", so no board id can collide
// with another key.
func (l *Log) key(boardID string) string {
	return l.prefix + "log:" + boardID
}

func (l *Log) indexKey() string {
	return l.prefix + "index"
}

// Append pushes the event onto the board's list. RPUSH returns the new list
// length, which is the event's sequence number.
func (l *Log) Append(ctx context.Context, boardID string, e domain.Event) (uint64, error) {
	raw, err := domain.MarshalEvent(e)
	if err != nil {
		return 0, err
	}
	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return 0, fmt.Errorf("failed to re-read envelope: %w", err)
	}

	data, err := json.Marshal(entry{At: time.Now().UTC(), Event: env})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal entry: %w", err)
	}

	pipe := l.client.TxPipeline()
	push := pipe.RPush(ctx, l.key(boardID), data)
	if l.ttl > 0 {
		pipe.Expire(ctx, l.key(boardID), l.ttl)
	}

	// Score = Now + TTL. If TTL = 0, Score = far future.
	score := float64(time.Now().Add(l.ttl).Unix())
	if l.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, l.indexKey(), backend.Z{
		Score:  score,
		Member: boardID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to append to redis: %w", err)
	}

	return uint64(push.Val()), nil
}

// Load reads the board's whole list.
func (l *Log) Load(ctx context.Context, boardID string) ([]ports.Record, error) {
	return l.LoadSince(ctx, boardID, 0)
}

// LoadSince reads the list from position seq on. The length and the tail
// are read in one transaction so they describe the same log.
func (l *Log) LoadSince(ctx context.Context, boardID string, seq uint64) ([]ports.Record, error) {
	pipe := l.client.TxPipeline()
	length := pipe.LLen(ctx, l.key(boardID))
	tail := pipe.LRange(ctx, l.key(boardID), int64(seq), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read from redis: %w", err)
	}

	n := uint64(length.Val())
	switch {
	case n == 0:
		return nil, domain.ErrBoardNotFound
	case n < seq:
		return nil, fmt.Errorf("%w: board %q has %d events, reader is at %d", domain.ErrLogTruncated, boardID, n, seq)
	}

	vals := tail.Val()
	records := make([]ports.Record, 0, len(vals))
	for i, val := range vals {
		pos := seq + uint64(i) + 1
		var en entry
		if err := json.Unmarshal([]byte(val), &en); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry %d: %w", pos, err)
		}
		e, err := en.Event.Event()
		if err != nil {
			return nil, fmt.Errorf("failed to decode entry %d: %w", pos, err)
		}
		records = append(records, ports.Record{
			Seq:   pos,
			At:    en.At,
			Event: e,
		})
	}
	return records, nil
}

// Delete removes the board's list and index entry.
func (l *Log) Delete(ctx context.Context, boardID string) error {
	pipe := l.client.Pipeline()

	pipe.Del(ctx, l.key(boardID))
	pipe.ZRem(ctx, l.indexKey(), boardID)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns boards from the index, pruning entries whose TTL has passed.
func (l *Log) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	// ZREMRANGEBYSCORE key -inf (now)
	err := l.client.ZRemRangeByScore(ctx, l.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired boards: %w", err)
	}

	boards, err := l.client.ZRange(ctx, l.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}

	return boards, nil
}

// Close closes the redis client.
func (l *Log) Close() error {
	return l.client.Close()
}

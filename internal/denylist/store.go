// Package denylist is a redis-backed set of addresses the bot refuses to
// buy from: known ruggers, serial deployers, blocked pools.
package denylist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/redis/go-redis/v9"

	"github.com/hamza-farooq/solsniper/internal/sniper"
)

const (
	indexKey    = "denylist:index"
	entryPrefix = "denylist:"
)

var ErrNotFound = errors.New("address not on deny list")

// Entry is one denied address with its reason.
type Entry struct {
	Address string    `json:"address"`
	Reason  string    `json:"reason"`
	AddedAt time.Time `json:"added_at"`
}

type Store struct {
	client redis.Cmdable
}

func NewStore(client redis.Cmdable) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Store{client: client}, nil
}

// ValidateAddress rejects anything that is not a 32-byte base58 public key
// before it can touch redis.
func ValidateAddress(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("invalid address: expected 32 bytes, got %d", len(raw))
	}
	return nil
}

func (s *Store) Add(ctx context.Context, addr, reason string) (*Entry, error) {
	if err := ValidateAddress(addr); err != nil {
		return nil, err
	}

	entry := &Entry{Address: addr, Reason: reason, AddedAt: time.Now().UTC()}
	b, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshal entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, entryKey(addr), b, 0)
	pipe.SAdd(ctx, indexKey, addr)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("add deny entry: %w", err)
	}
	return entry, nil
}

func (s *Store) Get(ctx context.Context, addr string) (*Entry, error) {
	if err := ValidateAddress(addr); err != nil {
		return nil, err
	}

	b, err := s.client.Get(ctx, entryKey(addr)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get deny entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(b, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal entry: %w", err)
	}
	return &entry, nil
}

func (s *Store) Remove(ctx context.Context, addr string) error {
	if err := ValidateAddress(addr); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, entryKey(addr))
	pipe.SRem(ctx, indexKey, addr)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove deny entry: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]*Entry, error) {
	addrs, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list deny entries: %w", err)
	}

	entries := make([]*Entry, 0, len(addrs))
	for _, addr := range addrs {
		entry, err := s.Get(ctx, addr)
		if errors.Is(err, ErrNotFound) {
			continue // index and value can race; skip the orphan
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// CheckAddress implements sniper.DenyChecker.
func (s *Store) CheckAddress(ctx context.Context, addr solana.PublicKey) (sniper.Denial, error) {
	entry, err := s.Get(ctx, addr.String())
	if errors.Is(err, ErrNotFound) {
		return sniper.Denial{}, nil
	}
	if err != nil {
		return sniper.Denial{}, err
	}
	return sniper.Denial{Blocked: true, Reason: entry.Reason}, nil
}

func entryKey(addr string) string {
	return entryPrefix + addr
}

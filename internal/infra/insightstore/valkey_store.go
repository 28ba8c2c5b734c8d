package insightstore

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/seadrift/dive-insights/internal/domain/insight"
)

// ValkeyStore is the read-through cache in front of the dive row's insight
// column. The row-store stays the source of truth; this only shortcuts
// repeat reads.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "dive"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

func (s *ValkeyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	cmd := s.client.B().Get().Key(s.fullKey(key)).Build()
	payload, err := s.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return payload, true, nil
}

func (s *ValkeyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	builder := s.client.B().Set().Key(s.fullKey(key)).Value(string(value))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) fullKey(key string) string {
	return s.prefix + ":" + key
}

var _ insight.KVStore = (*ValkeyStore)(nil)

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dealscout/internal/dialogue"
)

// ErrNotFound is returned when a session id has no stored state, either
// because it never existed or because it expired.
var ErrNotFound = errors.New("session not found")

// Store persists per-session dialogue state between chat turns. Entries
// expire after the configured TTL of inactivity.
type Store interface {
	Get(ctx context.Context, id string) (*dialogue.State, error)
	Put(ctx context.Context, id string, state *dialogue.State) error
	Delete(ctx context.Context, id string) error
	Close() error
}

func encodeState(state *dialogue.State) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode session state: %w", err)
	}
	return data, nil
}

func decodeState(data []byte) (*dialogue.State, error) {
	var state dialogue.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	return &state, nil
}

func expiry(ttlSeconds int) time.Duration {
	if ttlSeconds <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(ttlSeconds) * time.Second
}

// Checkpointing persists ExecutionState snapshots to a NATS JetStream
// key-value bucket after every step, so a crashed runner process can
// resume an execution from its last completed step instead of restarting
// it from the beginning. This is the transport spec.md §9's design note
// "at-most-once step execution with checkpointing" calls for; the
// teacher wires the same nats.go/jetstream client for its own execution
// event stream (internal/workflows/runtime/nats_engine.go).
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/relaykit/orchestrate/internal/model"
)

const checkpointBucket = "engine_checkpoints"

// CheckpointStore persists and restores ExecutionState snapshots.
type CheckpointStore struct {
	kv jetstream.KeyValue
}

// NewCheckpointStore creates (or reuses) the checkpoint bucket on js.
func NewCheckpointStore(ctx context.Context, js jetstream.JetStream) (*CheckpointStore, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: checkpointBucket,
		TTL:    7 * 24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint bucket: %w", err)
	}
	return &CheckpointStore{kv: kv}, nil
}

// Save snapshots state under its ExecutionID, overwriting any prior
// checkpoint for that execution.
func (c *CheckpointStore) Save(ctx context.Context, state *model.ExecutionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal execution state: %w", err)
	}
	_, err = c.kv.Put(ctx, state.ExecutionID, data)
	return err
}

// Load restores a previously checkpointed ExecutionState, ok=false if
// none exists.
func (c *CheckpointStore) Load(ctx context.Context, executionID string) (*model.ExecutionState, bool, error) {
	entry, err := c.kv.Get(ctx, executionID)
	if err != nil {
		if err == jetstream.ErrKeyNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	var state model.ExecutionState
	if err := json.Unmarshal(entry.Value(), &state); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &state, true, nil
}

// Delete removes an execution's checkpoint once it reaches a terminal
// status, so the bucket doesn't grow unbounded with finished runs.
func (c *CheckpointStore) Delete(ctx context.Context, executionID string) error {
	err := c.kv.Delete(ctx, executionID)
	if err != nil && err != jetstream.ErrKeyNotFound {
		return err
	}
	return nil
}

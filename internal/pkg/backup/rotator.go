// Package backup snapshots persisted blobs before each overwrite and keeps
// a bounded history per key. Backups are best-effort: failures are logged
// and swallowed, never surfaced, because correctness does not depend on a
// snapshot existing.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/light-bringer/cart-service/internal/app/cart/contracts"
	"github.com/light-bringer/cart-service/internal/pkg/clock"
)

// DefaultKeep is how many snapshots survive per original key.
const DefaultKeep = 5

const recordVersion = 1

// ErrNoBackups is returned by RestoreLatest when no snapshots exist.
var ErrNoBackups = errors.New("no backups found")

// Record is the serialized snapshot stored under a derived key.
type Record struct {
	ID          string `json:"id"`
	OriginalKey string `json:"originalKey"`
	Data        string `json:"data"`
	Timestamp   string `json:"timestamp"`
	Version     int    `json:"version"`
}

// RestoreResult reports a completed restore.
type RestoreResult struct {
	Data            string
	BackupTimestamp time.Time
}

// Rotator writes timestamped snapshots and prunes old ones.
type Rotator struct {
	store contracts.KVStore
	clk   clock.Clock
	log   *zap.Logger
	keep  int
}

// NewRotator creates a rotator. keep <= 0 selects DefaultKeep; logger may
// be nil.
func NewRotator(store contracts.KVStore, clk clock.Clock, logger *zap.Logger, keep int) *Rotator {
	if keep <= 0 {
		keep = DefaultKeep
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Rotator{store: store, clk: clk, log: logger, keep: keep}
}

// Create snapshots data under a key derived from key and the current time,
// then prunes the key's history. Never returns an error.
func (r *Rotator) Create(key, data string) {
	now := r.clk.Now()
	rec := Record{
		ID:          uuid.New().String(),
		OriginalKey: key,
		Data:        data,
		Timestamp:   now.UTC().Format(time.RFC3339),
		Version:     recordVersion,
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		r.log.Warn("backup serialization failed", zap.String("key", key), zap.Error(err))
		return
	}

	backupKey := fmt.Sprintf("%s_backup_%d", key, now.UnixMilli())
	if err := r.store.Set(backupKey, string(raw)); err != nil {
		r.log.Warn("backup write failed", zap.String("key", backupKey), zap.Error(err))
		return
	}

	r.CleanupOld(key)
}

// CleanupOld prunes the key's snapshots to the most recent keep entries,
// oldest discarded first.
func (r *Rotator) CleanupOld(key string) {
	keys, err := r.backupKeys(key)
	if err != nil {
		r.log.Warn("backup enumeration failed", zap.String("key", key), zap.Error(err))
		return
	}
	if len(keys) <= r.keep {
		return
	}
	for _, stale := range keys[r.keep:] {
		if err := r.store.Delete(stale); err != nil {
			r.log.Warn("backup prune failed", zap.String("key", stale), zap.Error(err))
		}
	}
}

// RestoreLatest writes the most recent snapshot's data back to key.
func (r *Rotator) RestoreLatest(key string) (RestoreResult, error) {
	keys, err := r.backupKeys(key)
	if err != nil {
		return RestoreResult{}, fmt.Errorf("failed to enumerate backups: %w", err)
	}
	if len(keys) == 0 {
		return RestoreResult{}, ErrNoBackups
	}

	raw, err := r.store.Get(keys[0])
	if err != nil {
		return RestoreResult{}, fmt.Errorf("failed to read backup %s: %w", keys[0], err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return RestoreResult{}, fmt.Errorf("backup %s is corrupted: %w", keys[0], err)
	}
	if err := r.store.Set(key, rec.Data); err != nil {
		return RestoreResult{}, fmt.Errorf("failed to restore backup: %w", err)
	}

	ts, err := time.Parse(time.RFC3339, rec.Timestamp)
	if err != nil {
		ts = time.UnixMilli(backupEpoch(keys[0]))
	}
	return RestoreResult{Data: rec.Data, BackupTimestamp: ts}, nil
}

// backupKeys returns the key's snapshot keys, most recent first.
func (r *Rotator) backupKeys(key string) ([]string, error) {
	keys, err := r.store.Keys(key + "_backup_")
	if err != nil {
		return nil, err
	}
	sort.Slice(keys, func(i, j int) bool {
		return backupEpoch(keys[i]) > backupEpoch(keys[j])
	})
	return keys, nil
}

// backupEpoch extracts the epoch-millis suffix of a derived backup key.
func backupEpoch(key string) int64 {
	idx := strings.LastIndex(key, "_")
	if idx < 0 {
		return 0
	}
	millis, err := strconv.ParseInt(key[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return millis
}

// ABOUTME: Charm KV mirror for stored analysis records
// ABOUTME: Copies records to Charm cloud storage with SSH key auth, keyed by analysis key
package charm

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/charm/kv"
	"github.com/harper/worldcafe/internal/models"
)

// AnalysisPrefix namespaces analysis records in the KV store
const AnalysisPrefix = "analysis:"

// Config holds charm client configuration
type Config struct {
	Host     string
	DBName   string
	AutoSync bool
}

// DefaultConfig returns default configuration for the mirror
func DefaultConfig() Config {
	host := os.Getenv("CHARM_HOST")
	if host == "" {
		host = "cloud.charm.sh"
	}
	return Config{
		Host:   host,
		DBName: "worldcafe",
	}
}

// KV is the subset of charm's kv.KV the mirror uses
type KV interface {
	Set(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Keys() ([][]byte, error)
	Sync() error
	Close() error
}

// Mirror stores AnalysisRecords in a Charm KV database
type Mirror struct {
	kv       KV
	autoSync bool
	mu       sync.Mutex
}

// Open connects to Charm KV using the local SSH identity
func Open(cfg Config) (*Mirror, error) {
	// charm reads the host from the environment when opening
	if cfg.Host != "" {
		os.Setenv("CHARM_HOST", cfg.Host)
	}

	db, err := kv.OpenWithDefaults(cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}
	m := NewMirror(db, cfg.AutoSync)
	if cfg.AutoSync {
		_ = db.Sync()
	}
	return m, nil
}

// NewMirror wraps an already opened KV
func NewMirror(store KV, autoSync bool) *Mirror {
	return &Mirror{kv: store, autoSync: autoSync}
}

// Close closes the KV database
func (m *Mirror) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.kv == nil {
		return nil
	}
	err := m.kv.Close()
	m.kv = nil
	return err
}

// Sync pulls remote changes and pushes local ones
func (m *Mirror) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.kv.Sync(); err != nil {
		return fmt.Errorf("charm sync failed: %w", err)
	}
	return nil
}

// RecordKey generates the KV key for an analysis key
func RecordKey(key models.AnalysisKey) string {
	return AnalysisPrefix + key.String()
}

// Put stores rec unless the mirror already holds a copy that is at least as new.
// Reports whether anything was written.
func (m *Mirror) Put(rec models.AnalysisRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := []byte(RecordKey(rec.Key))
	if existing, err := m.kv.Get(key); err == nil && existing != nil {
		var current models.AnalysisRecord
		if json.Unmarshal(existing, &current) == nil && !current.UpdatedAt.Before(rec.UpdatedAt) {
			return false, nil
		}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := m.kv.Set(key, data); err != nil {
		return false, fmt.Errorf("failed to set key %s: %w", key, err)
	}
	if m.autoSync {
		_ = m.kv.Sync()
	}
	return true, nil
}

// Get returns the mirrored record for key, or nil when absent
func (m *Mirror) Get(key models.AnalysisKey) (*models.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := m.kv.Get([]byte(RecordKey(key)))
	if err != nil || data == nil {
		return nil, nil
	}
	var rec models.AnalysisRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", RecordKey(key), err)
	}
	return &rec, nil
}

// List returns every mirrored record of a session
func (m *Mirror) List(sessionID string) ([]models.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, err := m.kv.Keys()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	prefix := AnalysisPrefix + sessionID + ":"
	records := []models.AnalysisRecord{}
	for _, key := range keys {
		if !strings.HasPrefix(string(key), prefix) {
			continue
		}
		data, err := m.kv.Get(key)
		if err != nil || data == nil {
			continue
		}
		var rec models.AnalysisRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", key, err)
		}
		// Session ids may contain ':', so the prefix alone also matches "a:b" for "a".
		if rec.Key.SessionID != sessionID {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

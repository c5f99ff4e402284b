package store

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sync"

	"github.com/TobiSchelling/stockdiary/internal/metrics"
	"github.com/TobiSchelling/stockdiary/internal/observation"
)

// Memory keeps the journal document in process.
type Memory struct {
	mu       sync.Mutex
	doc      []byte
	revision string
}

// NewMemory returns a store holding obs. With no observations the file is
// treated as absent.
func NewMemory(obs ...observation.Observation) *Memory {
	m := &Memory{}
	if len(obs) > 0 {
		if err := m.set(obs); err != nil {
			panic(err)
		}
	}
	return m
}

func (m *Memory) Read(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := &Snapshot{Observations: []observation.Observation{}, Revision: m.revision}
	if m.doc != nil {
		obs, err := observation.Decode(bytes.NewReader(m.doc))
		if err != nil {
			metrics.StoreOperations.WithLabelValues("read", "error").Inc()
			return nil, err
		}
		snap.Observations = obs
	}
	metrics.StoreOperations.WithLabelValues("read", "ok").Inc()
	return snap, nil
}

func (m *Memory) Write(ctx context.Context, obs []observation.Observation, revision string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if revision != m.revision {
		metrics.StoreOperations.WithLabelValues("write", "conflict").Inc()
		return "", ErrConflict
	}
	err := m.set(obs)
	metrics.StoreOperations.WithLabelValues("write", metrics.Result(err)).Inc()
	if err != nil {
		return "", err
	}
	return m.revision, nil
}

// Revision returns the current revision.
func (m *Memory) Revision() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revision
}

func (m *Memory) set(obs []observation.Observation) error {
	var buf bytes.Buffer
	if err := observation.Encode(&buf, obs); err != nil {
		return err
	}
	sum := sha1.Sum(buf.Bytes())
	m.doc = buf.Bytes()
	m.revision = hex.EncodeToString(sum[:])
	return nil
}

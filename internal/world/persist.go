// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package world

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// Persister stores world documents durably. Save must be atomic: a crash
// mid-write never leaves a partially written record behind.
type Persister interface {
	// Save durably writes the world document.
	Save(w *World) error
	// LoadAll returns every persisted world document.
	LoadAll() ([]*World, error)
}

// FilePersister keeps one JSON document per world under a directory,
// writing to <id>.json.tmp and renaming over the durable copy.
type FilePersister struct {
	dir string
}

// NewFilePersister creates the directory if needed and returns a persister
// rooted at dir.
func NewFilePersister(dir string) (*FilePersister, error) {
	if dir == "" {
		return nil, validationErr("data directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, oops.Wrapf(err, "create data directory %s", dir)
	}
	return &FilePersister{dir: dir}, nil
}

// Save writes the world to a temporary file and atomically replaces the
// previous document.
func (p *FilePersister) Save(w *World) error {
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return oops.Wrapf(err, "marshal world %s", w.ID)
	}
	final := p.path(w.ID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return oops.Wrapf(err, "write %s", tmp)
	}
	if err := os.Rename(tmp, final); err != nil {
		return oops.Wrapf(err, "replace %s", final)
	}
	return nil
}

// LoadAll reads every *.json document under the data directory. Leftover
// .tmp files from a crashed write are ignored.
func (p *FilePersister) LoadAll() ([]*World, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, oops.Wrapf(err, "read data directory %s", p.dir)
	}
	var worlds []*World
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(p.dir, entry.Name()))
		if err != nil {
			return nil, oops.Wrapf(err, "read %s", entry.Name())
		}
		var w World
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, oops.Wrapf(err, "decode %s", entry.Name())
		}
		worlds = append(worlds, &w)
	}
	return worlds, nil
}

func (p *FilePersister) path(id string) string {
	return filepath.Join(p.dir, id+".json")
}

// MemoryPersister is an in-memory Persister for tests. The store only
// serializes saves per world, so the map needs its own lock.
type MemoryPersister struct {
	mu    sync.Mutex
	saved map[string]*World
}

// NewMemoryPersister creates an empty in-memory persister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{saved: make(map[string]*World)}
}

// Save records a deep copy of the world.
func (p *MemoryPersister) Save(w *World) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved[w.ID] = w.clone()
	return nil
}

// LoadAll returns copies of everything saved so far.
func (p *MemoryPersister) LoadAll() ([]*World, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	worlds := make([]*World, 0, len(p.saved))
	for _, w := range p.saved {
		worlds = append(worlds, w.clone())
	}
	return worlds, nil
}

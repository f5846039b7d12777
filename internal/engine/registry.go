package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/genesis/pkg/models"
)

// StaticRegistry is a fixed list of agents.
type StaticRegistry struct {
	agents []string
}

// NewStaticRegistry returns a registry that always lists ids.
func NewStaticRegistry(ids ...string) *StaticRegistry {
	return &StaticRegistry{agents: append([]string(nil), ids...)}
}

// ListAgents returns a copy of the configured IDs.
func (r *StaticRegistry) ListAgents() []string {
	return append([]string(nil), r.agents...)
}

// agentsFile is the on-disk shape read by FileRegistry.
type agentsFile struct {
	Agents []models.Agent `yaml:"agents"`
}

// FileRegistry lists the agents declared in a YAML file:
//
//	agents:
//	  - id: architect_agent
//	    actions: [analyze_requirements, design_architecture]
//	  - id: backend_agent
//	    status: disabled
//
// Disabled agents are not listed. When a bus is set, every agent seen for
// the first time is announced on TopicAgentRegistered.
type FileRegistry struct {
	path   string
	bus    *Bus
	logger zerolog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	agents map[string]models.Agent

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewFileRegistry loads path. A missing file yields an empty registry so
// the file can be created after startup.
func NewFileRegistry(path string, bus *Bus, logger zerolog.Logger) (*FileRegistry, error) {
	r := &FileRegistry{
		path:   path,
		bus:    bus,
		logger: logger,
		now:    time.Now,
		agents: make(map[string]models.Agent),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the file. Agents keep their RegisteredAt across reloads.
func (r *FileRegistry) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			data = nil
		} else {
			return fmt.Errorf("read agents file: %w", err)
		}
	}

	var file agentsFile
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &file); err != nil {
			return fmt.Errorf("parse agents file %s: %w", r.path, err)
		}
	}

	r.mu.Lock()
	next := make(map[string]models.Agent, len(file.Agents))
	var added []string
	for _, a := range file.Agents {
		if a.ID == "" {
			continue
		}
		if a.Status != "" && !a.Status.Valid() {
			r.mu.Unlock()
			return fmt.Errorf("agent %s: unknown status %q", a.ID, a.Status)
		}
		if prev, ok := r.agents[a.ID]; ok {
			a.RegisteredAt = prev.RegisteredAt
		} else {
			a.RegisteredAt = r.now()
			added = append(added, a.ID)
		}
		next[a.ID] = a
	}
	r.agents = next
	r.mu.Unlock()

	sort.Strings(added)
	for _, id := range added {
		r.logger.Debug().Str("agent_id", id).Msg("agent registered")
		if r.bus != nil {
			r.bus.Publish(Event{Topic: TopicAgentRegistered, AgentID: id})
		}
	}
	return nil
}

// ListAgents returns the IDs of available agents, sorted.
func (r *FileRegistry) ListAgents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.agents))
	for id, a := range r.agents {
		if a.Available() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Agent returns the declaration for id.
func (r *FileRegistry) Agent(id string) (models.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// Watch reloads the registry whenever the file is written or replaced.
// The parent directory is watched so editors that rename over the file
// are picked up.
func (r *FileRegistry) Watch() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(r.path), err)
	}
	r.watcher = watcher
	r.done = make(chan struct{})

	r.wg.Add(1)
	go r.watchLoop(watcher, r.done)
	return nil
}

func (r *FileRegistry) watchLoop(watcher *fsnotify.Watcher, done <-chan struct{}) {
	defer r.wg.Done()
	target := filepath.Clean(r.path)
	for {
		select {
		case <-done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := r.Reload(); err != nil {
				r.logger.Warn().Err(err).Str("path", r.path).Msg("reload agents file")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn().Err(err).Msg("agents file watcher")
		}
	}
}

// Close stops watching.
func (r *FileRegistry) Close() error {
	r.mu.Lock()
	watcher, done := r.watcher, r.done
	r.watcher, r.done = nil, nil
	r.mu.Unlock()

	if watcher == nil {
		return nil
	}
	close(done)
	err := watcher.Close()
	r.wg.Wait()
	return err
}

// Package store loads projects, with their schema and service provider
// account, for the publisher and the webhook endpoint.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-errors"

	assistant "github.com/goliatone/go-assistant"
	"github.com/goliatone/go-assistant/model"
	"github.com/goliatone/go-assistant/schema"
)

const CodeProjectNotFound = "PROJECT_NOT_FOUND"

var ErrProjectNotFound = errors.New("project not found", errors.CategoryNotFound).
	WithTextCode(CodeProjectNotFound)

// ProjectStore returns hydrated projects by id.
type ProjectStore interface {
	FindByID(ctx context.Context, id string) (*model.Project, error)
}

func notFound(id string) error {
	return assistant.CloneError(ErrProjectNotFound, fmt.Sprintf("project %q not found", id), nil, map[string]any{
		"project_id": id,
	})
}

// MemoryStore keeps projects in process. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]model.Project
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[string]model.Project)}
}

// Put stores p, hydrating it from its original schema when one is set.
func (s *MemoryStore) Put(p *model.Project) error {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return errors.New("project id required", errors.CategoryBadInput).
			WithTextCode("PROJECT_REQUIRED")
	}
	cp := *p
	if len(cp.OriginalSchema) > 0 {
		if err := schema.Hydrate(&cp); err != nil {
			return err
		}
	} else if err := cp.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[cp.ID] = cp
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, notFound(id)
	}
	return &p, nil
}

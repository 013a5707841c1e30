package ecs

import (
	"fmt"
	"sync"
)

type storageProvider struct {
	mu     sync.RWMutex
	stores map[ComponentType]ComponentStore
}

func newStorageProvider() *storageProvider {
	return &storageProvider{stores: make(map[ComponentType]ComponentStore)}
}

func (p *storageProvider) RegisterComponent(t ComponentType, strategy StorageStrategy) error {
	if strategy == nil {
		return ErrNilStorageStrategy
	}

	store := strategy.NewStore(t)
	if store == nil {
		return ErrNilComponentStore
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.stores[t]; exists {
		return ErrComponentAlreadyRegistered
	}

	p.stores[t] = store
	return nil
}

func (p *storageProvider) View(t ComponentType) (ComponentView, error) {
	p.mu.RLock()
	store, ok := p.stores[t]
	p.mu.RUnlock()

	if !ok {
		return nil, ErrComponentNotRegistered
	}

	return store, nil
}

// Apply runs commands in order and stops at the first failure. Commands before
// the failing one stay applied.
func (p *storageProvider) Apply(world *World, commands []Command) error {
	for i, cmd := range commands {
		if cmd == nil {
			continue
		}
		if err := cmd.Apply(world); err != nil {
			return fmt.Errorf("ecs: command %d of %d: %w", i+1, len(commands), err)
		}
	}
	return nil
}

// removeEntity drops every component held by id. Used when an entity is destroyed.
func (p *storageProvider) removeEntity(id EntityID) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, store := range p.stores {
		store.Remove(id)
	}
}

var _ StorageProvider = (*storageProvider)(nil)

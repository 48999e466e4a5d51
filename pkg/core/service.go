package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/lifecycle"
	"github.com/google/uuid"
)

const defaultEventBuffer = 100

// Service handles placement of blocks and change streams on top of a Store.
type Service struct {
	store           Store
	logger          *slog.Logger
	mu              sync.RWMutex
	eventBufferSize int
}

// NewService creates a new Service.
func NewService(store Store, logger *slog.Logger, eventBufferSize int) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if eventBufferSize <= 0 {
		eventBufferSize = defaultEventBuffer
	}
	return &Service{store: store, logger: logger, eventBufferSize: eventBufferSize}
}

// Store exposes the underlying store.
func (s *Service) Store() Store {
	return s.store
}

// PlaceBlock adds a placement of blockType to a post. An empty id gets a generated one.
func (s *Service) PlaceBlock(ctx context.Context, postID, blockType, id string) (BlockInstance, error) {
	if postID == "" {
		return BlockInstance{}, fmt.Errorf("%w: post ID cannot be empty", ErrInvalidScope)
	}
	if blockType == "" {
		return BlockInstance{}, errors.New("block type cannot be empty")
	}
	if id == "" {
		id = uuid.NewString()
	}

	inst := BlockInstance{ID: id, Type: blockType, PostID: postID, Attributes: Metadata{}}
	if err := s.store.Place(ctx, inst); err != nil {
		return BlockInstance{}, &PersistenceError{Op: "place", Key: id, Err: err}
	}
	s.logger.Debug("block placed", "post", postID, "type", blockType, "instance", id)
	return inst, nil
}

// RemoveBlock destroys a placement and its attribute values.
func (s *Service) RemoveBlock(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: instance ID cannot be empty", ErrInvalidScope)
	}
	if err := s.store.Remove(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return &PersistenceError{Op: "remove", Key: id, Err: err}
	}
	s.logger.Debug("block removed", "instance", id)
	return nil
}

// Blocks lists the placements of a post in order.
func (s *Service) Blocks(ctx context.Context, postID string) ([]BlockInstance, error) {
	if postID == "" {
		return nil, fmt.Errorf("%w: post ID cannot be empty", ErrInvalidScope)
	}
	return s.store.Instances(ctx, postID)
}

// Watch observes changes in the store if supported.
// Events are buffered so a slow consumer does not stall the store's watcher.
func (s *Service) Watch(ctx context.Context, pattern string) (<-chan Event, error) {
	w, ok := s.store.(Watchable)
	if !ok {
		return nil, errors.New("store does not support watching")
	}
	upstream, err := w.Watch(ctx, pattern)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make(chan Event, s.eventBufferSize)
	s.mu.RUnlock()

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-upstream:
				if !ok {
					return nil
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return out, nil
}

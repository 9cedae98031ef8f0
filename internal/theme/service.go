// Package theme persists the light/dark preference under a fixed key.
package theme

import (
	"context"
	"log"
	"sync"

	"github.com/luizfelipeneves/dcortex-dashboard/internal/model"
)

const Key = "theme"

type Service struct {
	mu    sync.Mutex
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Current returns the stored theme. A missing or unknown value reads as light.
func (s *Service) Current(ctx context.Context) (model.Theme, error) {
	v, ok, err := s.store.Get(ctx, Key)
	if err != nil {
		return model.ThemeLight, err
	}
	if !ok {
		return model.ThemeLight, nil
	}
	return model.ParseTheme(v), nil
}

// Toggle flips the stored theme and returns the new one. Concurrent toggles serialize here;
// across processes the last write wins.
func (s *Service) Toggle(ctx context.Context) (model.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.Current(ctx)
	if err != nil {
		log.Printf("[theme] level=warn read failed, toggling from light err=%v\n", err)
	}
	next := cur.Toggle()
	if err := s.store.Set(ctx, Key, string(next)); err != nil {
		return cur, err
	}
	return next, nil
}

func (s *Service) Set(ctx context.Context, t model.Theme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Set(ctx, Key, string(model.ParseTheme(string(t))))
}

func (s *Service) Close() error {
	return s.store.Close()
}

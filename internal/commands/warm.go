package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/dwizi/playbot/internal/cache"
)

// Warm refetches the toolchain versions and the crate list and overwrites
// their cache entries so chat lookups never wait on the playground.
func (s *Service) Warm(ctx context.Context) error {
	var errs []error
	versions, err := s.playground.Versions(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("refresh versions: %w", err))
	} else if err := cache.Set(ctx, s.cache, cache.KeyVersions, versions, s.cfg.CacheTTLSeconds); err != nil {
		errs = append(errs, err)
	}
	crates, err := s.playground.Crates(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("refresh crates: %w", err))
	} else if err := cache.Set(ctx, s.cache, cache.KeyCrates, crates, s.cfg.CacheTTLSeconds); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

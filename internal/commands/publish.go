package commands

import (
	"context"
	"fmt"

	"github.com/dwizi/playbot/internal/boterr"
	"github.com/dwizi/playbot/internal/codeblock"
)

// Publish uploads the first ```rust block of body as a gist. Each scope may
// publish once per cooldown window.
func (s *Service) Publish(ctx context.Context, scope, body string) (Reply, error) {
	code, err := codeblock.Extract(body)
	if err != nil {
		return Reply{}, err
	}
	if ok, remaining := s.cooldown.Allow(scope); !ok {
		return Reply{}, boterr.Cooldown(remaining)
	}
	return s.createGist(ctx, code)
}

// Share is like Publish but accepts any fence tag and has no cooldown.
func (s *Service) Share(ctx context.Context, body string) (Reply, error) {
	code, err := codeblock.ExtractRelaxed(body)
	if err != nil {
		return Reply{}, err
	}
	return s.createGist(ctx, code)
}

func (s *Service) createGist(ctx context.Context, code string) (Reply, error) {
	gist, err := s.playground.GistCreate(ctx, code)
	if err != nil {
		return Reply{}, err
	}
	s.logger.Info("gist created", "gist_id", gist.ID)
	return Reply{Content: fmt.Sprintf("Done uploading your code to GitHub Gists [#%s](<%s>)", gist.ID, gist.URL)}, nil
}

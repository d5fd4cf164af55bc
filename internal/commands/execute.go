package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dwizi/playbot/internal/boterr"
	"github.com/dwizi/playbot/internal/cache"
	"github.com/dwizi/playbot/internal/codeblock"
	"github.com/dwizi/playbot/internal/playground"
)

type tool int

const (
	toolRun tool = iota
	toolMiri
)

func (t tool) phrase() string {
	if t == toolMiri {
		return "Running your code with miri"
	}
	return "Running your code"
}

// RunInline runs the first ```rust block of body. The first body line,
// unless it opens the fence, holds the configuration tokens.
func (s *Service) RunInline(ctx context.Context, userID, body string) (Reply, error) {
	code, err := s.inlineCode(body)
	if err != nil {
		return Reply{}, err
	}
	request := playground.ParseExecute(codeblock.ParamLine(body), code)
	response, err := s.playground.Execute(ctx, request)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Content: s.inlineReply(toolRun, userID, response)}, nil
}

func (s *Service) MiriInline(ctx context.Context, userID, body string) (Reply, error) {
	code, err := s.inlineCode(body)
	if err != nil {
		return Reply{}, err
	}
	request := playground.ParseMiri(codeblock.ParamLine(body), code)
	response, err := s.playground.Miri(ctx, request)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Content: s.inlineReply(toolMiri, userID, response)}, nil
}

func (s *Service) inlineCode(body string) (string, error) {
	code, err := codeblock.Extract(body)
	if err != nil {
		return "", err
	}
	if len(code) > s.cfg.MaxCodeSize {
		return "", boterr.CodeTooLong(len(code), s.cfg.MaxCodeSize)
	}
	return code, nil
}

func (s *Service) RunGist(ctx context.Context, reference string, params playground.Params) (Reply, error) {
	gist, err := s.loadGist(ctx, reference)
	if err != nil {
		return Reply{}, err
	}
	response, err := s.playground.Execute(ctx, params.ExecuteRequest(gist.Code))
	if err != nil {
		return Reply{}, err
	}
	return Reply{Content: s.sourceReply(fmt.Sprintf("[#%s](<%s>)", gist.ID, gist.URL), response)}, nil
}

func (s *Service) MiriGist(ctx context.Context, reference string, params playground.Params) (Reply, error) {
	gist, err := s.loadGist(ctx, reference)
	if err != nil {
		return Reply{}, err
	}
	response, err := s.playground.Miri(ctx, params.MiriRequest(gist.Code))
	if err != nil {
		return Reply{}, err
	}
	return Reply{Content: s.sourceReply(fmt.Sprintf("[#%s](<%s>)", gist.ID, gist.URL), response)}, nil
}

func (s *Service) RunFile(ctx context.Context, attachment *Attachment, params playground.Params) (Reply, error) {
	code, err := s.loadAttachment(ctx, attachment)
	if err != nil {
		return Reply{}, err
	}
	response, err := s.playground.Execute(ctx, params.ExecuteRequest(code))
	if err != nil {
		return Reply{}, err
	}
	return Reply{Content: s.sourceReply(fmt.Sprintf("[%s](<%s>)", attachment.Filename, attachment.URL), response)}, nil
}

func (s *Service) MiriFile(ctx context.Context, attachment *Attachment, params playground.Params) (Reply, error) {
	code, err := s.loadAttachment(ctx, attachment)
	if err != nil {
		return Reply{}, err
	}
	response, err := s.playground.Miri(ctx, params.MiriRequest(code))
	if err != nil {
		return Reply{}, err
	}
	return Reply{Content: s.sourceReply(fmt.Sprintf("[%s](<%s>)", attachment.Filename, attachment.URL), response)}, nil
}

func (s *Service) loadGist(ctx context.Context, reference string) (playground.Gist, error) {
	id, ok := codeblock.GistID(reference)
	if !ok {
		return playground.Gist{}, boterr.InvalidID(reference)
	}
	return cache.Load(ctx, s.cache, cache.GistKey(id), s.cfg.CacheTTLSeconds, func(ctx context.Context) (playground.Gist, error) {
		s.logger.Debug("gist cache miss", "gist_id", id)
		return s.playground.GistGet(ctx, id)
	})
}

func (s *Service) loadAttachment(ctx context.Context, attachment *Attachment) (string, error) {
	if attachment == nil {
		return "", boterr.NotValidFile("")
	}
	if !strings.EqualFold(filepath.Ext(attachment.Filename), ".rs") {
		return "", boterr.NotValidFile(attachment.Filename)
	}
	if attachment.Size > s.cfg.MaxCodeSize {
		return "", boterr.CodeTooLong(attachment.Size, s.cfg.MaxCodeSize)
	}
	if attachment.Load == nil {
		return "", fmt.Errorf("attachment %s has no loader", attachment.Filename)
	}
	content, err := attachment.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("download attachment %s: %w", attachment.Filename, err)
	}
	if len(content) > s.cfg.MaxCodeSize {
		return "", boterr.CodeTooLong(len(content), s.cfg.MaxCodeSize)
	}
	if !utf8.Valid(content) {
		return "", boterr.ErrNotValidUTF8
	}
	return string(content), nil
}

func (s *Service) output(response playground.ExecuteResponse) string {
	return truncateOutput(response.Content(), s.cfg.OutputMaxLines, s.cfg.OutputMaxBytes)
}

func (s *Service) inlineReply(t tool, userID string, response playground.ExecuteResponse) string {
	content := s.output(response)
	if content == "" {
		return fmt.Sprintf("%s gave no output <@%s>", t.phrase(), userID)
	}
	return fmt.Sprintf("%s returned the following output <@%s>\n```%s```", t.phrase(), userID, content)
}

func (s *Service) sourceReply(link string, response playground.ExecuteResponse) string {
	content := s.output(response)
	if content == "" {
		return fmt.Sprintf("Running the code from %s gave no output", link)
	}
	return fmt.Sprintf("Running the code from %s gave the following output\n```%s```", link, content)
}

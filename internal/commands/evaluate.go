package commands

import (
	"context"
	"strings"

	"github.com/dwizi/playbot/internal/boterr"
	"github.com/dwizi/playbot/internal/playground"
)

// EvalInput is unfenced source with a configuration line, as accepted by
// the HTTP and MCP surfaces.
type EvalInput struct {
	Params string
	Code   string
	Miri   bool
}

type EvalResult struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
}

func (s *Service) Evaluate(ctx context.Context, input EvalInput) (EvalResult, error) {
	if strings.TrimSpace(input.Code) == "" {
		return EvalResult{}, boterr.ErrNoCodeBlock
	}
	if len(input.Code) > s.cfg.MaxCodeSize {
		return EvalResult{}, boterr.CodeTooLong(len(input.Code), s.cfg.MaxCodeSize)
	}
	var (
		response playground.ExecuteResponse
		err      error
	)
	if input.Miri {
		response, err = s.playground.Miri(ctx, playground.ParseMiri(input.Params, input.Code))
	} else {
		response, err = s.playground.Execute(ctx, playground.ParseExecute(input.Params, input.Code))
	}
	if err != nil {
		return EvalResult{}, err
	}
	return EvalResult{Success: response.Success, Content: s.output(response)}, nil
}

package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dwizi/playbot/internal/app"
	"github.com/dwizi/playbot/internal/boterr"
	"github.com/dwizi/playbot/internal/commands"
	"github.com/dwizi/playbot/internal/config"
)

var errRunFailed = errors.New("program did not run successfully")

func newExecCommand(logger *slog.Logger) *cobra.Command {
	var (
		params       string
		miri         bool
		cacheBackend string
	)
	cmd := &cobra.Command{
		Use:   "exec <file.rs|->",
		Short: "Run a local Rust file on the playground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readSource(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			cfg := config.FromEnv()
			if strings.TrimSpace(cacheBackend) != "" {
				cfg.CacheBackend = cacheBackend
			}
			core, err := app.NewCore(cfg, logger)
			if err != nil {
				return err
			}
			defer core.Close()

			result, err := core.Service.Evaluate(cmd.Context(), commands.EvalInput{
				Params: params,
				Code:   code,
				Miri:   miri,
			})
			if err != nil {
				if boterr.IsUserError(err) {
					return errors.New(boterr.UserFacing(err))
				}
				return err
			}
			return printResult(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&params, "params", "", "configuration line, e.g. \"nightly release 2021\"")
	cmd.Flags().BoolVar(&miri, "miri", false, "run under Miri instead of executing")
	cmd.Flags().StringVar(&cacheBackend, "cache-backend", "", "override PLAYBOT_CACHE_BACKEND (redis or sqlite)")
	return cmd
}

func readSource(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	return string(data), nil
}

func printResult(out io.Writer, result commands.EvalResult) error {
	content := result.Content
	if strings.TrimSpace(content) == "" {
		content = "(no output)"
	}
	fmt.Fprintln(out, strings.TrimRight(content, "\n"))
	if !result.Success {
		return errRunFailed
	}
	return nil
}

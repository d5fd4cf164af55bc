package cli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dwizi/playbot/internal/adminclient"
	"github.com/dwizi/playbot/internal/config"
)

func addAPIFlags(cmd *cobra.Command, apiURL *string, timeout *time.Duration) {
	cmd.Flags().StringVar(apiURL, "api-url", "", "playbot API base URL (default PLAYBOT_API_URL)")
	cmd.Flags().DurationVar(timeout, "timeout", 2*time.Minute, "request timeout")
}

func newAPIClient(apiURL string, timeout time.Duration) *adminclient.Client {
	if strings.TrimSpace(apiURL) == "" {
		apiURL = config.FromEnv().APIURL
	}
	return adminclient.New(apiURL, timeout)
}

func newRunCommand() *cobra.Command {
	var (
		apiURL  string
		timeout time.Duration
		params  string
		miri    bool
	)
	cmd := &cobra.Command{
		Use:   "run <file.rs|->",
		Short: "Run a local Rust file through a running playbot server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readSource(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			result, err := newAPIClient(apiURL, timeout).Run(cmd.Context(), adminclient.RunRequest{
				Params: params,
				Code:   code,
				Miri:   miri,
			})
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), result)
		},
	}
	addAPIFlags(cmd, &apiURL, &timeout)
	cmd.Flags().StringVar(&params, "params", "", "configuration line, e.g. \"nightly release 2021\"")
	cmd.Flags().BoolVar(&miri, "miri", false, "run under Miri instead of executing")
	return cmd
}

func newChatCommand() *cobra.Command {
	var (
		apiURL    string
		timeout   time.Duration
		channelID string
		userID    string
	)
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send chat commands to a running playbot server",
		Long:  "Sends a single message when one is given, otherwise reads one message per line from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(apiURL, timeout)
			send := func(text string) error {
				response, err := client.Chat(cmd.Context(), adminclient.ChatRequest{
					ChannelID: channelID,
					UserID:    userID,
					Text:      text,
				})
				if err != nil {
					return err
				}
				if !response.Handled {
					fmt.Fprintln(cmd.OutOrStdout(), "(not a command)")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), response.Reply.Text())
				return nil
			}

			if len(args) > 0 {
				return send(strings.Join(args, " "))
			}
			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 64<<10), 1<<20)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if err := send(line); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
				}
			}
			return scanner.Err()
		},
	}
	addAPIFlags(cmd, &apiURL, &timeout)
	cmd.Flags().StringVar(&channelID, "channel", "cli", "channel id reported to the server")
	cmd.Flags().StringVar(&userID, "user", "cli", "user id reported to the server")
	return cmd
}

func newStatusCommand() *cobra.Command {
	var (
		apiURL  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server info and component health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(apiURL, timeout)
			info, err := client.Info(cmd.Context())
			if err != nil {
				return err
			}
			snapshot, err := client.Heartbeat(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s (%s)\n", info.Name, info.Version, info.Environment)
			fmt.Fprintf(out, "cache: %s  prefix: %s  mcp: %t\n", info.CacheBackend, info.CommandPrefix, info.MCPEnabled)
			fmt.Fprintf(out, "overall: %s\n", snapshot.Overall)
			for _, component := range snapshot.Components {
				line := fmt.Sprintf("  %-32s %s", component.Name, component.State)
				if component.Message != "" {
					line += "  " + component.Message
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	addAPIFlags(cmd, &apiURL, &timeout)
	return cmd
}

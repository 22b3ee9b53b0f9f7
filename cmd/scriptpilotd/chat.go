package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ScriptPilot/internal/agent"
)

var chatPlatform string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive session on the terminal",
	Long: `Reads one message per line from stdin and prints the reply.

Lines starting with a slash are commands:
  /persona <id>   switch persona and start a new conversation
  /channel <id>   switch channel and start a new conversation
  /stats          print automation statistics
  /quit           leave the session`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := bootstrap(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()
		return runChat(cmd.Context(), a.agent, os.Stdin, cmd.OutOrStdout())
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatPlatform, "platform", "", "Force every message to produce a script for this platform")
}

func runChat(ctx context.Context, ag *agent.Agent, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "%s\n> ", ag.CurrentPersona().Greeting)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit" || line == "/exit":
			return nil
		case strings.HasPrefix(line, "/"):
			runChatCommand(ctx, ag, line, out)
		default:
			result, err := ag.ProcessMessage(ctx, agent.MessageRequest{Text: line, Platform: chatPlatform})
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			} else {
				printResult(out, result)
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func runChatCommand(ctx context.Context, ag *agent.Agent, line string, out io.Writer) {
	fields := strings.Fields(line)
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	switch fields[0] {
	case "/persona":
		if p := ag.SwitchPersona(arg); p != nil {
			fmt.Fprintf(out, "%s\n", p.Greeting)
			return
		}
		fmt.Fprintf(out, "unknown persona %q\n", arg)
	case "/channel":
		if ch := ag.SwitchChannel(arg); ch != nil {
			fmt.Fprintf(out, "switched to %s\n", ch.Name)
			return
		}
		fmt.Fprintf(out, "unknown channel %q\n", arg)
	case "/stats":
		stats, err := ag.Stats(ctx)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			return
		}
		fmt.Fprintf(out, "automations: %d\n", stats.TotalAutomations)
		for platform, count := range stats.PlatformDistribution {
			fmt.Fprintf(out, "  %s: %d\n", platform, count)
		}
	default:
		fmt.Fprintf(out, "unknown command %s\n", fields[0])
	}
}

func printResult(out io.Writer, result *agent.MessageResult) {
	switch result.Type {
	case agent.ResultAutomation:
		fmt.Fprintf(out, "%s\n\n%s\n", result.Message, result.Automation.Script)
		for _, related := range result.Related {
			fmt.Fprintf(out, "  related: %s (%s)\n", related.Filename, related.Platform)
		}
	case agent.ResultError:
		fmt.Fprintf(out, "error [%s]: %s\n", result.ErrorCode, result.Error)
	default:
		fmt.Fprintln(out, result.Message)
	}
}

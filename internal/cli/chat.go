package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/factoryos/console-sync/internal/console"
	"github.com/factoryos/console-sync/internal/graphview"
)

var (
	chatMachine string
	chatSources []string
)

var chatCmd = &cobra.Command{
	Use:   "chat [query]",
	Short: "Ask the knowledge graph a question",
	Long:  "Ask a single question, or start an interactive session when no query is given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()
		page, err := mount[*console.ChatPage](ctx, a, console.KindChat)
		if err != nil {
			return err
		}
		if err := applyFilters(page.Options(), chatMachine, chatSources); err != nil {
			return err
		}

		if len(args) > 0 {
			return ask(ctx, a.out, page, strings.Join(args, " "))
		}
		return converse(ctx, cmd.InOrStdin(), a.out, page)
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatMachine, "machine", "", "Scope the question to a machine")
	chatCmd.Flags().StringSliceVar(&chatSources, "source", nil, "Only consult these sources (repeatable)")
}

// applyFilters narrows the loaded options to the requested machine and sources.
func applyFilters(options *console.OptionLoader, machine string, sources []string) error {
	if machine != "" {
		if err := options.SelectMachine(machine); err != nil {
			return err
		}
	}
	if len(sources) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(sources))
	for _, s := range sources {
		wanted[s] = true
	}
	for name := range options.State().Selection.SelectedSources {
		if err := options.SetSource(name, wanted[name]); err != nil {
			return err
		}
		delete(wanted, name)
	}
	for name := range wanted {
		return fmt.Errorf("unknown source %q", name)
	}
	return nil
}

func ask(ctx context.Context, w io.Writer, page *console.ChatPage, query string) error {
	before := len(page.Messages())
	err := page.Send(ctx, query)
	msgs := page.Messages()
	if len(msgs) == before {
		// Rejected before anything was appended.
		return err
	}
	for _, msg := range msgs[before:] {
		renderMessage(w, msg)
	}
	if _, ok := page.LastTrace(); ok && err == nil {
		renderTrace(w, page.Graph().View())
	}
	return nil
}

func converse(ctx context.Context, in io.Reader, w io.Writer, page *console.ChatPage) error {
	for _, msg := range page.Messages() {
		renderMessage(w, msg)
	}
	scanner := bufio.NewScanner(in)
	interactive := in == os.Stdin
	for {
		if interactive {
			fmt.Fprint(w, "> ")
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := ask(ctx, w, page, line); err != nil {
			return err
		}
	}
}

// renderTrace lists the reasoning path from the latest reply.
func renderTrace(w io.Writer, view graphview.View) {
	if view.Empty {
		return
	}
	labels := make([]string, 0, len(view.Nodes))
	for _, n := range view.Nodes {
		labels = append(labels, n.Label)
	}
	dimColor.Fprintf(w, "trace: %s\n", strings.Join(labels, " -> "))
}

package cmd

import (
	"fmt"

	"routeqa/llm/agent"
	"routeqa/tui/chat"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var chatDocument string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Opens the terminal chat UI.

Controls:
  Enter       - Send question
  /doc <path> - Select the document for document questions
  /doc        - Clear the document
  Up, Down    - Recall earlier questions
  PgUp, PgDn  - Scroll the transcript
  Esc, Ctrl+C - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatDocument, "doc", "d", "", "document to start the session with")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	comps, cleanup, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	rt := agent.NewRuntime(cmd.Context(), comps.Flow, agent.WithRuntimeLogger(logger.Named("runtime")))
	defer rt.Close()

	if chatDocument != "" {
		if err := rt.SetDocument(chatDocument); err != nil {
			return err
		}
	}

	p := tea.NewProgram(chat.InitialModel(rt), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

package cmd

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var outlineCmd = &cobra.Command{
	Use:   "outline [topic]",
	Short: "Generate a study outline for a course topic",
	Long: `Generate a Markdown study outline grounded in the course materials.
The outline streams to the terminal as it is generated.

Example:
  courseta outline "Transformer 架构"`,
	Args: cobra.ExactArgs(1),
	RunE: runOutline,
}

func init() {
	rootCmd.AddCommand(outlineCmd)
}

func runOutline(cmd *cobra.Command, args []string) error {
	topic := args[0]
	ctx := context.Background()

	st, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	agent, err := st.newAssistant()
	if err != nil {
		return err
	}

	titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F780FF")).Bold(true)
	fmt.Println(titleStyle.Render(fmt.Sprintf("学习大纲：%s", topic)))
	fmt.Println()

	stream, err := agent.GenerateOutlineStream(ctx, topic)
	if err != nil {
		return err
	}

	for frag := range stream.Fragments {
		fmt.Print(frag)
	}
	fmt.Println()

	return stream.Err()
}

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hjh12035/NLP-Proj2/internal/assistant"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question-answering over the course materials",
	Long: `Start an interactive session with the course assistant.

Each question is classified against the conversation so far, relevant
passages are retrieved from the knowledge base, and the answer streams to
the terminal. Type "exit" or press Ctrl-D to quit.

Required environment variables:
  OPENAI_API_KEY     - API key for the model provider
  MILVUS_ADDRESS     - Milvus server address (default: localhost:19530)`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
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

	var (
		headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F780FF")).Bold(true)
		studentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BE9FD")).Bold(true)
		answerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E9E9F4"))
		sourceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4")).Italic(true)
	)

	fmt.Println(headerStyle.Render("欢迎使用智能课程助教系统！"))
	fmt.Println(sourceStyle.Render("输入问题开始对话，输入 exit 退出。"))
	fmt.Println()

	var history []assistant.Message
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)

	for {
		fmt.Print(studentStyle.Render("学生: "))
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			break
		}

		fmt.Print(headerStyle.Render("助教: "))

		stream, resp := agent.AnswerStream(ctx, query, history)
		var answer strings.Builder
		for frag := range stream.Fragments {
			fmt.Print(answerStyle.Render(frag))
			answer.WriteString(frag)
		}
		fmt.Println()
		if err := stream.Err(); err != nil {
			fmt.Println(sourceStyle.Render(fmt.Sprintf("（回答中断: %v）", err)))
		}

		if verbose && len(resp.Sources) > 0 {
			fmt.Println(sourceStyle.Render(fmt.Sprintf("[意图: %s | 上下文片段: %d]",
				resp.Intent, len(resp.Sources))))
		}
		fmt.Println()

		history = append(history,
			assistant.Message{Role: assistant.RoleUser, Content: query},
			assistant.Message{Role: assistant.RoleAssistant, Content: answer.String()},
		)
	}

	return nil
}

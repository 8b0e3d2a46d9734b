package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	quizCount      int
	quizDifficulty string
	quizType       string
)

var quizCmd = &cobra.Command{
	Use:   "quiz [topic]",
	Short: "Generate quiz questions about a course topic",
	Long: `Generate quiz questions grounded in the course materials.

The topic is expanded into a retrieval query, relevant passages are
fetched from the knowledge base, and each question is generated as an
independent model call. Failed generations are dropped.

Examples:
  courseta quiz "词向量"
  courseta quiz "注意力机制" --count 5 --difficulty 困难 --type 简答题`,
	Args: cobra.ExactArgs(1),
	RunE: runQuiz,
}

func init() {
	rootCmd.AddCommand(quizCmd)
	quizCmd.Flags().IntVar(&quizCount, "count", 3, "Number of questions to generate")
	quizCmd.Flags().StringVar(&quizDifficulty, "difficulty", "中等", "Difficulty: 简单 / 中等 / 困难")
	quizCmd.Flags().StringVar(&quizType, "type", "选择题", "Question type: 选择题 / 简答题")
}

func runQuiz(cmd *cobra.Command, args []string) error {
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

	var (
		titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F780FF")).Bold(true)
		questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E9E9F4")).Bold(true)
		optionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E9E9F4"))
		answerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))
		sourceStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4")).Italic(true)
	)

	fmt.Println(titleStyle.Render(fmt.Sprintf("测验：%s（%s · %s）", topic, quizDifficulty, quizType)))
	fmt.Println()

	questions := agent.GenerateQuiz(ctx, topic, quizDifficulty, quizType, quizCount)
	if len(questions) == 0 {
		return fmt.Errorf("no questions could be generated for %q", topic)
	}
	if len(questions) < quizCount {
		fmt.Println(sourceStyle.Render(fmt.Sprintf("（%d 道题生成失败，已跳过）", quizCount-len(questions))))
		fmt.Println()
	}

	for _, q := range questions {
		fmt.Println(questionStyle.Render(fmt.Sprintf("%d. %s", q.ID, q.Question)))
		for i, opt := range q.Options {
			fmt.Println(optionStyle.Render(fmt.Sprintf("   %c. %s", 'A'+i, opt)))
		}
		fmt.Println(answerStyle.Render("   答案: " + q.Answer))
		if q.Explanation != "" {
			fmt.Println(optionStyle.Render("   解析: " + q.Explanation))
		}
		if q.Source != "" {
			fmt.Println(sourceStyle.Render("   来源: " + strings.TrimSpace(q.Source)))
		}
		fmt.Println()
	}

	return nil
}

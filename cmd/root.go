package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "courseta",
	Short: "Courseta - Retrieval-augmented course teaching assistant",
	Long: `Courseta answers student questions about course materials using RAG.

It ingests lecture slides, PDFs and notes into a vector store (Milvus),
retrieves relevant passages per question, tracks conversational context
across turns, and generates answers, quizzes and outlines with an LLM.`,
}

// Execute runs the root command
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to JSON config file (defaults and env apply otherwise)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Show detailed progress")
}

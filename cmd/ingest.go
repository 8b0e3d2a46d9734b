package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hjh12035/NLP-Proj2/internal/ingest"
)

var (
	ingestGitURL  string
	ingestGitRef  string
	ingestGitHub  string
	ingestGHPath  string
	ingestGHToken string
	ingestForce   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build the knowledge base from course materials",
	Long: `Load course materials, split them into chunks, embed them and index
them into Milvus.

Materials are read from the data directory (DATA_DIR). Before loading,
they can optionally be synced from a git repository or from GitHub:

  courseta ingest
  courseta ingest --git https://github.com/org/course-materials --ref main
  courseta ingest --github org/course-materials --path slides
  courseta ingest --force`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestGitURL, "git", "", "Git repository URL to sync materials from")
	ingestCmd.Flags().StringVar(&ingestGitRef, "ref", "", "Git branch to sync (default: remote HEAD)")
	ingestCmd.Flags().StringVar(&ingestGitHub, "github", "", "GitHub repository (owner/repo) to sync materials from")
	ingestCmd.Flags().StringVar(&ingestGHPath, "path", "", "Path inside the GitHub repository")
	ingestCmd.Flags().StringVar(&ingestGHToken, "token", "", "GitHub token (default: GITHUB_TOKEN env)")
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "Reindex chunks even if they already exist")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	st, err := buildStack(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	progressStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4")).Italic(true)
	successStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))

	if ingestGitURL != "" {
		fmt.Println(progressStyle.Render("→ Syncing materials from git..."))
		n, err := ingest.SyncFromGit(ctx, ingestGitURL, ingestGitRef, st.cfg.DataDir, st.logger)
		if err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ Synced %d files", n)))
	}

	if ingestGitHub != "" {
		owner, repo, ok := strings.Cut(ingestGitHub, "/")
		if !ok {
			return fmt.Errorf("--github expects owner/repo, got %q", ingestGitHub)
		}
		client := ingest.NewGitHubClient(githubToken())

		fmt.Println(progressStyle.Render("→ Syncing materials from GitHub..."))
		n, err := ingest.SyncFromGitHub(ctx, client, owner, repo, ingestGHPath, ingestGitRef, st.cfg.DataDir, st.logger)
		if err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ Synced %d files", n)))
	}

	fmt.Println(progressStyle.Render("→ Loading and indexing documents..."))
	count, err := st.buildKnowledgeBase(ctx, ingestForce)
	if err != nil {
		return err
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("✓ Indexed %d chunks into %s", count, st.cfg.CollectionName)))
	return nil
}

func githubToken() string {
	if ingestGHToken != "" {
		return ingestGHToken
	}
	return os.Getenv("GITHUB_TOKEN")
}

package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v77/github"
	"go.uber.org/zap"
)

// NewGitHubClient creates a GitHub API client. token may be empty for
// public repositories.
func NewGitHubClient(token string) *github.Client {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return client
}

// SyncFromGitHub downloads every supported file under repoPath of the
// given repository into destDir via the Contents API. Subdirectories are
// walked recursively. ref may name a branch or tag, or be empty for the
// default branch. Returns the number of files written.
func SyncFromGitHub(ctx context.Context, client *github.Client, owner, repo, repoPath, ref, destDir string, logger *zap.Logger) (int, error) {
	if client == nil {
		return 0, fmt.Errorf("github client cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := &github.RepositoryContentGetOptions{Ref: ref}
	written, err := syncGitHubDir(ctx, client, owner, repo, repoPath, destDir, opts, logger)
	if err != nil {
		return written, err
	}

	logger.Info("synced materials from github",
		zap.String("repo", owner+"/"+repo),
		zap.String("path", repoPath),
		zap.Int("files", written))

	return written, nil
}

func syncGitHubDir(ctx context.Context, client *github.Client, owner, repo, repoPath, destDir string, opts *github.RepositoryContentGetOptions, logger *zap.Logger) (int, error) {
	_, contents, _, err := client.Repositories.GetContents(ctx, owner, repo, repoPath, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", repoPath, err)
	}

	written := 0
	for _, item := range contents {
		switch item.GetType() {
		case "dir":
			n, err := syncGitHubDir(ctx, client, owner, repo, item.GetPath(), destDir, opts, logger)
			written += n
			if err != nil {
				return written, err
			}

		case "file":
			if !supportedExt(strings.ToLower(filepath.Ext(item.GetName()))) {
				continue
			}
			if err := downloadGitHubFile(ctx, client, owner, repo, item.GetPath(), destDir, opts); err != nil {
				logger.Warn("skipping file", zap.String("path", item.GetPath()), zap.Error(err))
				continue
			}
			written++
		}
	}

	return written, nil
}

func downloadGitHubFile(ctx context.Context, client *github.Client, owner, repo, repoPath, destDir string, opts *github.RepositoryContentGetOptions) error {
	reader, _, err := client.Repositories.DownloadContents(ctx, owner, repo, repoPath, opts)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read: %w", err)
	}

	dest := filepath.Join(destDir, filepath.FromSlash(repoPath))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

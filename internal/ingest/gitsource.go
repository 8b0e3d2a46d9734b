package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/storage/memory"
	"go.uber.org/zap"
)

// SyncFromGit clones a course-materials repository into memory and writes
// every supported file under its tree into destDir, preserving relative
// paths. ref may name a branch ("main") or be empty for the remote HEAD.
// Returns the number of files written.
func SyncFromGit(ctx context.Context, url, ref, destDir string, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := &git.CloneOptions{
		URL:   url,
		Depth: 1,
	}
	if ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref)
		opts.SingleBranch = true
	}

	repo, err := git.Clone(memory.NewStorage(), nil, opts)
	if err != nil {
		return 0, fmt.Errorf("failed to clone %s: %w", url, err)
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	head, err := repo.Head()
	if err != nil {
		return 0, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return 0, fmt.Errorf("failed to read HEAD commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return 0, fmt.Errorf("failed to read tree: %w", err)
	}

	written := 0
	files := tree.Files()
	for {
		file, err := files.Next()
		if err != nil {
			break
		}
		if !supportedExt(strings.ToLower(filepath.Ext(file.Name))) {
			continue
		}

		reader, err := file.Blob.Reader()
		if err != nil {
			logger.Warn("skipping unreadable file", zap.String("path", file.Name), zap.Error(err))
			continue
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			logger.Warn("skipping unreadable file", zap.String("path", file.Name), zap.Error(err))
			continue
		}

		dest := filepath.Join(destDir, filepath.FromSlash(file.Name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return written, fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", dest, err)
		}
		written++
	}

	logger.Info("synced materials from git",
		zap.String("url", url),
		zap.String("commit", head.Hash().String()),
		zap.Int("files", written))

	return written, nil
}

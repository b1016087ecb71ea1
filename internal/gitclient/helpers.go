package gitclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// errRecloneRequired は pull による更新が不可能で、再クローンが必要なことを示します。
var errRecloneRequired = errors.New("pull failed, reclone required")

// cloneRepository は go-git.PlainClone を使用してクローン処理を実行するヘルパー関数です。
func (c *Client) cloneRepository(ctx context.Context, repositoryURL, localPath string) error {
	parentDir := filepath.Dir(localPath)
	if _, err := os.Stat(parentDir); os.IsNotExist(err) {
		if err := os.MkdirAll(parentDir, 0755); err != nil {
			return fmt.Errorf("親ディレクトリの作成に失敗しました: %w", err)
		}
	}

	slog.Info("リポジトリのクローンを開始します。", "url", repositoryURL, "path", localPath, "depth", c.CloneDepth)

	_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{
		URL:          repositoryURL,
		Depth:        c.CloneDepth,
		SingleBranch: true,
		Auth:         c.auth,
		Progress:     io.Discard,
	})
	if err != nil {
		return fmt.Errorf("go-git クローンに失敗しました: %w", err)
	}
	slog.Info("リポジトリのクローンに成功しました。")
	return nil
}

// recloneRepository は、既存リポジトリを削除し、再クローンします。
func (c *Client) recloneRepository(ctx context.Context, repositoryURL, localPath string) (*git.Repository, error) {
	if _, err := os.Stat(localPath); err == nil {
		if err := os.RemoveAll(localPath); err != nil {
			return nil, fmt.Errorf("既存リポジトリディレクトリ (%s) の削除に失敗しました: %w", localPath, err)
		}
		slog.Info("再クローンのため、既存のリポジトリディレクトリを削除しました。", "path", localPath)
	}

	if err := c.cloneRepository(ctx, repositoryURL, localPath); err != nil {
		return nil, fmt.Errorf("リポジトリのクローンに失敗しました: %w", err)
	}

	repo, err := git.PlainOpen(localPath)
	if err != nil {
		return nil, fmt.Errorf("クローン後のリポジトリのオープンに失敗しました: %w", err)
	}
	return repo, nil
}

// updateExistingRepository は、既存リポジトリをプルで更新し、失敗した場合は再クローンが必要なエラーを返します。
func (c *Client) updateExistingRepository(ctx context.Context, repo *git.Repository) error {
	slog.Info("リポジトリが既に存在します。pullで更新します。", "path", c.LocalPath)
	w, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("ワークツリーの取得に失敗しました: %w", err)
	}

	// 前回の実行が残したローカル編集を破棄してからpullする
	if err := w.Checkout(&git.CheckoutOptions{Force: true}); err != nil {
		return fmt.Errorf("ローカル変更の破棄に失敗しました: %w", err)
	}

	pullErr := w.PullContext(ctx, &git.PullOptions{
		RemoteName:   "origin",
		Auth:         c.auth,
		SingleBranch: true,
	})

	if pullErr == nil || pullErr == git.NoErrAlreadyUpToDate {
		slog.Info("pullによるリポジトリの更新に成功しました。")
		return nil
	}

	slog.Warn("pullに失敗しました。リカバリのために再クローンを試行します。", "error", pullErr)
	if err := os.RemoveAll(c.LocalPath); err != nil {
		return fmt.Errorf("pull失敗後の既存リポジトリディレクトリ (%s) の削除に失敗しました: %w", c.LocalPath, err)
	}

	return fmt.Errorf("%w: %v", errRecloneRequired, pullErr)
}

// repoNeedsReclone はリポジトリを再クローンする必要があるかをチェックするヘルパー関数
func (c *Client) repoNeedsReclone(repositoryURL, localPath string) bool {
	gitDir := filepath.Join(localPath, ".git")
	if _, err := os.Stat(gitDir); os.IsNotExist(err) {
		slog.Info(".gitディレクトリが見つかりません。クローンが必要です。", "path", localPath)
		return true
	}
	repo, err := git.PlainOpen(localPath)
	if err != nil {
		slog.Warn("既存のリポジトリを開けませんでした。再クローンを試行します。", "path", localPath, "error", err)
		return true
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		slog.Warn("既存のリポジトリにリモート 'origin' が見つかりません。再クローンを試行します。", "path", localPath, "error", err)
		return true
	}
	remoteURLs := remote.Config().URLs
	if len(remoteURLs) == 0 || remoteURLs[0] != repositoryURL {
		slog.Warn("既存リポジトリのリモートURLが要求されたURLと一致しません。再クローンを試行します。", "existing_urls", remoteURLs, "requested_url", repositoryURL)
		return true
	}
	return false
}

// setCommitterIdentity はコミッター情報をリポジトリ設定 (user.name / user.email) に書き込みます。
func (c *Client) setCommitterIdentity(repo *git.Repository) error {
	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("リポジトリ設定の読み込みに失敗しました: %w", err)
	}
	cfg.User.Name = c.CommitterName
	cfg.User.Email = c.CommitterEmail
	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("コミッター情報の書き込みに失敗しました: %w", err)
	}
	slog.Debug("コミッター情報をリポジトリ設定に書き込みました。", "name", c.CommitterName, "email", c.CommitterEmail)
	return nil
}

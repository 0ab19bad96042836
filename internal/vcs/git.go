package vcs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"driftsync/internal/api"
	"driftsync/internal/reconciler"
	"driftsync/pkg/logging"
)

// Options configures the git client.
type Options struct {
	// Dir is where checkouts land. Empty means a fresh temporary
	// directory per checkout.
	Dir string

	// Username and Token authenticate HTTP(S) remotes. SSH remotes use
	// the ambient agent/key setup.
	Username string
	Token    string
}

// Git implements reconciler.VersionControl on go-git. Every Checkout is a
// fresh clone; runs hold no VCS state between each other.
type Git struct {
	opts Options
	auth transport.AuthMethod

	repo *git.Repository
	wt   *git.Worktree
	dir  string
}

// New creates a git client.
func New(opts Options) *Git {
	g := &Git{opts: opts}
	if opts.Token != "" {
		username := opts.Username
		if username == "" {
			username = "driftsync"
		}
		g.auth = &githttp.BasicAuth{Username: username, Password: opts.Token}
	}
	return g
}

// Checkout clones the branch into the working directory and returns its
// root. An unresolvable branch is a ResolutionError.
func (g *Git) Checkout(ctx context.Context, url, branch string, depth int) (string, error) {
	dir := g.opts.Dir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "driftsync-checkout-")
		if err != nil {
			return "", fmt.Errorf("creating checkout directory: %w", err)
		}
		dir = tmp
	} else {
		// Reuse of a fixed directory starts clean.
		if err := os.RemoveAll(dir); err != nil {
			return "", fmt.Errorf("clearing checkout directory %s: %w", dir, err)
		}
	}

	logging.Info("VCS", "Checking out %s (branch %s) into %s", url, branch, dir)
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           url,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         depth,
		Auth:          g.auth,
	})
	if err != nil {
		if isRefError(err) {
			return "", api.NewResolutionError(branch, err)
		}
		return "", fmt.Errorf("cloning %s: %w", url, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("opening worktree: %w", err)
	}

	g.repo = repo
	g.wt = wt
	g.dir = dir
	return dir, nil
}

// StageAll stages everything matching the pattern ("." stages the whole
// tree, including deletions).
func (g *Git) StageAll(pattern string) error {
	if g.wt == nil {
		return fmt.Errorf("no worktree: Checkout must run first")
	}
	if pattern == "" || pattern == "." {
		return g.wt.AddWithOptions(&git.AddOptions{All: true})
	}
	return g.wt.AddGlob(pattern)
}

// Commit records the staged changes and returns the commit id. A clean tree
// returns reconciler.ErrNoChanges.
func (g *Git) Commit(message string, author reconciler.CommitAuthor) (string, error) {
	if g.wt == nil {
		return "", fmt.Errorf("no worktree: Checkout must run first")
	}

	status, err := g.wt.Status()
	if err != nil {
		return "", fmt.Errorf("reading worktree status: %w", err)
	}
	if status.IsClean() {
		return "", reconciler.ErrNoChanges
	}

	name := author.Name
	if name == "" {
		name = "driftsync"
	}
	hash, err := g.wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  name,
			Email: author.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", fmt.Errorf("committing: %w", err)
	}
	return hash.String(), nil
}

// Push sends the branch to the remote. A rejected push (non-fast-forward,
// remote moved) is a ConflictError; it is never retried or rebased here.
func (g *Git) Push(ctx context.Context) error {
	if g.repo == nil {
		return fmt.Errorf("no repository: Checkout must run first")
	}

	err := g.repo.PushContext(ctx, &git.PushOptions{Auth: g.auth})
	if err == nil || errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if strings.Contains(err.Error(), "non-fast-forward") || strings.Contains(err.Error(), "remote ref") {
		return api.NewConflictError("push rejected by remote", err)
	}
	return fmt.Errorf("pushing: %w", err)
}

// DiffStats reports per-file add/delete counts. With cached=true it covers
// the last commit on HEAD; otherwise it lists the currently changed paths
// from worktree status (counts unavailable without a commit).
func (g *Git) DiffStats(cached bool) ([]reconciler.FileStat, error) {
	if g.repo == nil {
		return nil, fmt.Errorf("no repository: Checkout must run first")
	}

	if cached {
		head, err := g.repo.Head()
		if err != nil {
			return nil, fmt.Errorf("resolving HEAD: %w", err)
		}
		commit, err := g.repo.CommitObject(head.Hash())
		if err != nil {
			return nil, fmt.Errorf("loading HEAD commit: %w", err)
		}
		stats, err := commit.Stats()
		if err != nil {
			return nil, fmt.Errorf("computing commit stats: %w", err)
		}
		out := make([]reconciler.FileStat, 0, len(stats))
		for _, s := range stats {
			out = append(out, reconciler.FileStat{Path: s.Name, Added: s.Addition, Deleted: s.Deletion})
		}
		return out, nil
	}

	status, err := g.wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading worktree status: %w", err)
	}
	out := make([]reconciler.FileStat, 0, len(status))
	for path, st := range status {
		if st.Worktree == git.Unmodified && st.Staging == git.Unmodified {
			continue
		}
		out = append(out, reconciler.FileStat{Path: path})
	}
	return out, nil
}

// Dir returns the current checkout root, "" before the first Checkout.
func (g *Git) Dir() string {
	return g.dir
}

// Cleanup removes a temporary checkout directory. No-op when a fixed
// directory was configured.
func (g *Git) Cleanup() {
	if g.opts.Dir == "" && g.dir != "" {
		os.RemoveAll(g.dir)
		g.dir = ""
	}
}

// isRefError classifies clone failures caused by an unresolvable branch.
func isRefError(err error) bool {
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "reference not found") || strings.Contains(msg, "couldn't find remote ref")
}

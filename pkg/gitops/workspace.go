// Package gitops materializes patch artifacts into a git working copy:
// clone, reuse-or-create the rolling change branch, write the artifact,
// detect no-op cycles, and force-push.
//
// The change branch is a single rolling proposal, so pushes rewrite its
// history; the review request always reflects the latest recommendation
// rather than an append-only log. Each Workspace is private to one
// reconciliation cycle and discarded afterwards.
package gitops

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/google/uuid"

	"github.com/thc1006/vpa-gitops-recommender/pkg/logging"
	"github.com/thc1006/vpa-gitops-recommender/pkg/patch"
	"github.com/thc1006/vpa-gitops-recommender/pkg/recerrors"
)

// Options configures workspace construction.
type Options struct {
	// WorkdirRoot is the parent directory for per-cycle working copies.
	WorkdirRoot string

	// AuthorName and AuthorEmail form the commit signature.
	AuthorName  string
	AuthorEmail string
}

// Workspace is a working copy of the configuration repository, scoped to a
// single reconciliation cycle.
type Workspace struct {
	dir    string
	repo   *git.Repository
	auth   transport.AuthMethod
	branch string
	opts   Options
	log    *logging.Logger
}

// Clone fetches a fresh working copy of repoURL into a unique directory
// under opts.WorkdirRoot. An empty token clones anonymously; otherwise the
// token authenticates as HTTP basic auth the way GitHub app tokens do.
func Clone(ctx context.Context, repoURL, token string, opts Options, log *logging.Logger) (*Workspace, error) {
	if strings.Contains(repoURL, "://") {
		parsed, err := url.Parse(repoURL)
		if err != nil || parsed.Host == "" {
			return nil, recerrors.Permanentf("git clone", "malformed repository URL %q", repoURL)
		}
	}

	var auth transport.AuthMethod
	if token != "" {
		auth = &githttp.BasicAuth{Username: "token", Password: token}
	}

	dir := filepath.Join(opts.WorkdirRoot, "vpa-gitops-"+uuid.NewString())

	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:  repoURL,
		Auth: auth,
	})
	if err != nil {
		os.RemoveAll(dir)
		if isAuthError(err) {
			return nil, recerrors.Permanent("git clone", err)
		}
		return nil, recerrors.Retryable("git clone", err)
	}

	log.DebugEvent("Repository cloned", "dir", dir)

	return &Workspace{
		dir:  dir,
		repo: repo,
		auth: auth,
		opts: opts,
		log:  log,
	}, nil
}

// Close discards the working copy. Safe to call on every exit path.
func (w *Workspace) Close() error {
	return os.RemoveAll(w.dir)
}

// Dir returns the working copy root, for tests.
func (w *Workspace) Dir() string {
	return w.dir
}

// Branch returns the checked-out change branch name.
func (w *Workspace) Branch() string {
	return w.branch
}

// EnsureBranch checks the remote first: when the change branch already
// exists there the local branch is created at the remote tip (reuse),
// otherwise a fresh branch starts from the default branch tip. Returns
// whether the branch was newly created.
func (w *Workspace) EnsureBranch(ctx context.Context, name string) (bool, error) {
	err := w.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: "origin",
		Auth:       w.auth,
		RefSpecs:   []gitconfig.RefSpec{"+refs/heads/*:refs/remotes/origin/*"},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return false, recerrors.Retryable("git fetch", err)
	}

	worktree, err := w.repo.Worktree()
	if err != nil {
		return false, recerrors.Retryable("git worktree", err)
	}

	branchRef := plumbing.NewBranchReferenceName(name)

	remoteRef, err := w.repo.Reference(plumbing.NewRemoteReferenceName("origin", name), true)
	switch {
	case err == nil:
		// Reuse: pin the local branch to the remote tip.
		if err := worktree.Checkout(&git.CheckoutOptions{
			Hash:   remoteRef.Hash(),
			Branch: branchRef,
			Create: true,
			Force:  true,
		}); err != nil {
			return false, recerrors.Retryable("git checkout", err)
		}
		w.branch = name
		w.log.BranchEnsured(name, false)
		return false, nil

	case errors.Is(err, plumbing.ErrReferenceNotFound):
		// Create fresh from the current default branch tip.
		if err := worktree.Checkout(&git.CheckoutOptions{
			Branch: branchRef,
			Create: true,
		}); err != nil {
			return false, recerrors.Retryable("git checkout", err)
		}
		w.branch = name
		w.log.BranchEnsured(name, true)
		return true, nil

	default:
		return false, recerrors.Retryable("git resolve remote branch", err)
	}
}

// WriteArtifact writes the patch artifact at its canonical path, creating
// parent directories as needed, and stages it.
func (w *Workspace) WriteArtifact(artifact patch.Artifact) error {
	data, err := artifact.Marshal()
	if err != nil {
		return recerrors.Retryable("marshal artifact", err)
	}

	fullPath := filepath.Join(w.dir, filepath.FromSlash(artifact.FilePath))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return recerrors.Retryable("create artifact directory", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return recerrors.Retryable("write artifact", err)
	}

	worktree, err := w.repo.Worktree()
	if err != nil {
		return recerrors.Retryable("git worktree", err)
	}
	if _, err := worktree.Add(artifact.FilePath); err != nil {
		return recerrors.Retryable("git add", err)
	}

	w.log.PatchWritten(artifact.FilePath, len(artifact.Operations))
	return nil
}

// HasChanges reports whether the working tree differs from the last
// commit. A clean tree means the recommendation produced an artifact
// identical to what the branch already carries, so the cycle is a no-op
// and nothing is committed or pushed.
func (w *Workspace) HasChanges() (bool, error) {
	worktree, err := w.repo.Worktree()
	if err != nil {
		return false, recerrors.Retryable("git worktree", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return false, recerrors.Retryable("git status", err)
	}

	return !status.IsClean(), nil
}

// CommitAndPush commits the staged artifact with the bot signature and
// force-pushes the change branch. Returns the commit hash.
func (w *Workspace) CommitAndPush(ctx context.Context, message string) (string, error) {
	worktree, err := w.repo.Worktree()
	if err != nil {
		return "", recerrors.Retryable("git worktree", err)
	}

	commit, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  w.opts.AuthorName,
			Email: w.opts.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return "", recerrors.Retryable("git commit", err)
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/heads/%s", w.branch, w.branch))
	err = w.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Auth:       w.auth,
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		if isAuthError(err) {
			return "", recerrors.Permanent("git push", err)
		}
		return "", recerrors.Retryable("git push", err)
	}

	w.log.PushCompleted(w.branch, commit.String())
	return commit.String(), nil
}

func isAuthError(err error) bool {
	return errors.Is(err, transport.ErrAuthenticationRequired) ||
		errors.Is(err, transport.ErrAuthorizationFailed)
}

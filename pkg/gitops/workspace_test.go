package gitops

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recv1alpha1 "github.com/thc1006/vpa-gitops-recommender/api/recommender/v1alpha1"
	"github.com/thc1006/vpa-gitops-recommender/pkg/logging"
	"github.com/thc1006/vpa-gitops-recommender/pkg/patch"
	"github.com/thc1006/vpa-gitops-recommender/pkg/recerrors"
	"github.com/thc1006/vpa-gitops-recommender/pkg/recommend"
)

const changeBranch = "vpa-recommendations/prod-api"

func testLogger() *logging.Logger {
	return logging.NewLoggerWithOptions(logging.ComponentGitOps, logging.Options{
		Level:  "error",
		Output: io.Discard,
	})
}

func testOptions(t *testing.T) Options {
	return Options{
		WorkdirRoot: t.TempDir(),
		AuthorName:  "VPA Recommender Bot",
		AuthorEmail: "vpa-recommender@k8s.io",
	}
}

// seedRemote creates a bare "origin" repository whose default branch
// contains the given files.
func seedRemote(t *testing.T, files map[string]string) string {
	t.Helper()

	remoteDir := t.TempDir()
	_, err := git.PlainInit(remoteDir, true)
	require.NoError(t, err)

	seedDir := t.TempDir()
	seed, err := git.PlainInit(seedDir, false)
	require.NoError(t, err)

	worktree, err := seed.Worktree()
	require.NoError(t, err)

	for name, content := range files {
		full := filepath.Join(seedDir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
		_, err = worktree.Add(name)
		require.NoError(t, err)
	}

	_, err = worktree.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "seed", Email: "seed@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	_, err = seed.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{remoteDir},
	})
	require.NoError(t, err)

	err = seed.Push(&git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{"refs/heads/master:refs/heads/master"},
	})
	require.NoError(t, err)

	return remoteDir
}

func testArtifact() patch.Artifact {
	builder := patch.NewBuilder("manifests", recv1alpha1.LimitsMirrorRequests)
	return builder.Build(
		recv1alpha1.TargetResource{Kind: "Deployment", Name: "api", Namespace: "prod"},
		recommend.Recommendation{"cpu": "250m", "memory": "512Mi"},
	)
}

func TestCloneMalformedURLIsPermanent(t *testing.T) {
	_, err := Clone(context.Background(), "https://", "", testOptions(t), testLogger())

	require.Error(t, err)
	assert.True(t, recerrors.IsPermanent(err))
}

func TestCloneUnreachableRemoteIsRetryable(t *testing.T) {
	_, err := Clone(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"), "", testOptions(t), testLogger())

	require.Error(t, err)
	assert.Equal(t, recerrors.ClassRetryable, recerrors.ClassificationOf(err))
}

func TestEnsureBranchCreatesWhenAbsentOnRemote(t *testing.T) {
	remote := seedRemote(t, map[string]string{"README.md": "config repo\n"})

	ws, err := Clone(context.Background(), remote, "", testOptions(t), testLogger())
	require.NoError(t, err)
	defer ws.Close()

	created, err := ws.EnsureBranch(context.Background(), changeBranch)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, changeBranch, ws.Branch())
}

func TestMaterializeCommitAndPush(t *testing.T) {
	remote := seedRemote(t, map[string]string{"README.md": "config repo\n"})

	ws, err := Clone(context.Background(), remote, "", testOptions(t), testLogger())
	require.NoError(t, err)
	defer ws.Close()

	_, err = ws.EnsureBranch(context.Background(), changeBranch)
	require.NoError(t, err)

	artifact := testArtifact()
	require.NoError(t, ws.WriteArtifact(artifact))

	changed, err := ws.HasChanges()
	require.NoError(t, err)
	assert.True(t, changed)

	hash, err := ws.CommitAndPush(context.Background(), "Update Deployment/api resource sizing from VPA recommendation")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	// The bare remote must now carry the change branch at the new commit.
	remoteRepo, err := git.PlainOpen(remote)
	require.NoError(t, err)
	ref, err := remoteRepo.Reference(plumbing.NewBranchReferenceName(changeBranch), true)
	require.NoError(t, err)
	assert.Equal(t, hash, ref.Hash().String())
}

func TestSecondCycleReusesBranchAndDetectsNoOp(t *testing.T) {
	remote := seedRemote(t, map[string]string{"README.md": "config repo\n"})
	artifact := testArtifact()

	// First cycle: create branch, write artifact, push.
	first, err := Clone(context.Background(), remote, "", testOptions(t), testLogger())
	require.NoError(t, err)
	defer first.Close()

	created, err := first.EnsureBranch(context.Background(), changeBranch)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, first.WriteArtifact(artifact))
	firstHash, err := first.CommitAndPush(context.Background(), "first")
	require.NoError(t, err)

	// Second cycle: fresh working copy, identical recommendation.
	second, err := Clone(context.Background(), remote, "", testOptions(t), testLogger())
	require.NoError(t, err)
	defer second.Close()

	created, err = second.EnsureBranch(context.Background(), changeBranch)
	require.NoError(t, err)
	assert.False(t, created, "existing remote branch must be reused")

	head, err := second.repo.Head()
	require.NoError(t, err)
	assert.Equal(t, firstHash, head.Hash().String(), "local branch must track the remote tip")

	require.NoError(t, second.WriteArtifact(artifact))

	changed, err := second.HasChanges()
	require.NoError(t, err)
	assert.False(t, changed, "identical artifact must be a no-op")
}

func TestChangedRecommendationForcePushesRollingBranch(t *testing.T) {
	remote := seedRemote(t, map[string]string{"README.md": "config repo\n"})

	first, err := Clone(context.Background(), remote, "", testOptions(t), testLogger())
	require.NoError(t, err)
	defer first.Close()
	_, err = first.EnsureBranch(context.Background(), changeBranch)
	require.NoError(t, err)
	require.NoError(t, first.WriteArtifact(testArtifact()))
	_, err = first.CommitAndPush(context.Background(), "first")
	require.NoError(t, err)

	// Second cycle with a different recommendation rewrites the proposal.
	builder := patch.NewBuilder("manifests", recv1alpha1.LimitsMirrorRequests)
	updated := builder.Build(
		recv1alpha1.TargetResource{Kind: "Deployment", Name: "api", Namespace: "prod"},
		recommend.Recommendation{"cpu": "900m", "memory": "2Gi"},
	)
	assert.Equal(t, testArtifact().FilePath, updated.FilePath, "same target must overwrite in place")

	second, err := Clone(context.Background(), remote, "", testOptions(t), testLogger())
	require.NoError(t, err)
	defer second.Close()
	_, err = second.EnsureBranch(context.Background(), changeBranch)
	require.NoError(t, err)
	require.NoError(t, second.WriteArtifact(updated))

	changed, err := second.HasChanges()
	require.NoError(t, err)
	require.True(t, changed)

	hash, err := second.CommitAndPush(context.Background(), "second")
	require.NoError(t, err)

	remoteRepo, err := git.PlainOpen(remote)
	require.NoError(t, err)
	ref, err := remoteRepo.Reference(plumbing.NewBranchReferenceName(changeBranch), true)
	require.NoError(t, err)
	assert.Equal(t, hash, ref.Hash().String())
}

func TestCloseRemovesWorkingCopy(t *testing.T) {
	remote := seedRemote(t, map[string]string{"README.md": "config repo\n"})

	ws, err := Clone(context.Background(), remote, "", testOptions(t), testLogger())
	require.NoError(t, err)

	dir := ws.Dir()
	require.DirExists(t, dir)
	require.NoError(t, ws.Close())
	assert.NoDirExists(t, dir)
}

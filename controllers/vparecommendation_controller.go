// Package controllers hosts the reconciliation orchestrator tying the
// fetch/build/materialize/review pipeline together.
package controllers

import (
	"context"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	recv1alpha1 "github.com/thc1006/vpa-gitops-recommender/api/recommender/v1alpha1"
	"github.com/thc1006/vpa-gitops-recommender/pkg/config"
	"github.com/thc1006/vpa-gitops-recommender/pkg/gitops"
	"github.com/thc1006/vpa-gitops-recommender/pkg/logging"
	"github.com/thc1006/vpa-gitops-recommender/pkg/metrics"
	"github.com/thc1006/vpa-gitops-recommender/pkg/patch"
	"github.com/thc1006/vpa-gitops-recommender/pkg/recerrors"
	"github.com/thc1006/vpa-gitops-recommender/pkg/recommend"
	"github.com/thc1006/vpa-gitops-recommender/pkg/review"
	"github.com/thc1006/vpa-gitops-recommender/pkg/secrets"
	"github.com/thc1006/vpa-gitops-recommender/pkg/status"
)

// Collaborator seams. Production wiring happens in SetupWithManager; tests
// substitute in-memory doubles.
type recommendationSource interface {
	Fetch(ctx context.Context, name, namespace string, containerIndex int) (recommend.Recommendation, error)
}

type tokenSource interface {
	ResolveToken(ctx context.Context, name, namespace string) (string, error)
}

type changeWorkspace interface {
	EnsureBranch(ctx context.Context, name string) (bool, error)
	WriteArtifact(artifact patch.Artifact) error
	HasChanges() (bool, error)
	CommitAndPush(ctx context.Context, message string) (string, error)
	Close() error
}

type workspaceFactory func(ctx context.Context, repoURL, token string) (changeWorkspace, error)

type reviewService interface {
	FindOpen(ctx context.Context, branch, base string) (review.Lookup, error)
	Create(ctx context.Context, branch, base, title, body string) (*review.Request, error)
	CommitCount(ctx context.Context, branch string) int
}

type reviewFactory func(repoURL, token string) (reviewService, error)

type statusPersister interface {
	Write(ctx context.Context, key types.NamespacedName, st recv1alpha1.VPARecommendationStatus) error
}

// VPARecommendationReconciler drives one VPARecommendation through a full
// cycle: read the VPA recommendation, materialize the patch artifact on the
// rolling change branch, and converge the open review request. The status
// subresource is rewritten on every exit path, error or not.
type VPARecommendationReconciler struct {
	client.Client
	Scheme  *runtime.Scheme
	Config  *config.Config
	Log     *logging.Logger
	Metrics *metrics.Recorder

	fetcher      recommendationSource
	tokens       tokenSource
	newWorkspace workspaceFactory
	newReview    reviewFactory
	statusWriter statusPersister
}

// +kubebuilder:rbac:groups=recommender.gitops.io,resources=vparecommendations,verbs=get;list;watch
// +kubebuilder:rbac:groups=recommender.gitops.io,resources=vparecommendations/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=autoscaling.k8s.io,resources=verticalpodautoscalers,verbs=get;list;watch
// +kubebuilder:rbac:groups="",resources=secrets,verbs=get

// Reconcile runs one cycle for the named resource. Outcomes map to results
// as follows: retryable failures return the error so controller-runtime
// backs off; permanent configuration failures skip backoff and retry on
// the resync tick (a missing Secret created later emits no event for this
// resource, so the timer is the only path to recovery); everything else
// requeues after the resolved resync interval.
func (r *VPARecommendationReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	start := time.Now()
	r.ensureDeps()
	log := r.Log.ReconcileStart(req.Namespace, req.Name)

	resource := &recv1alpha1.VPARecommendation{}
	if err := r.Get(ctx, req.NamespacedName, resource); err != nil {
		if apierrors.IsNotFound(err) {
			log.DebugEvent("Resource deleted, nothing to reconcile")
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	outcome := r.runCycle(ctx, resource, log)

	projected := status.Project(outcome, metav1.Now(), resource.Generation)
	if err := r.statusWriter.Write(ctx, req.NamespacedName, projected); err != nil {
		log.ErrorEvent(err, "Status write failed")
		return ctrl.Result{}, err
	}

	duration := time.Since(start).Seconds()
	resync := resource.Spec.ResolvedResyncInterval(r.Config.ResyncInterval)

	switch {
	case outcome.Err != nil:
		r.Metrics.CycleCompleted(metrics.OutcomeError, duration)
		log.ReconcileError(req.Namespace, req.Name, outcome.Err, duration)
		if recerrors.IsPermanent(outcome.Err) {
			return ctrl.Result{RequeueAfter: resync}, nil
		}
		return ctrl.Result{}, outcome.Err

	case outcome.Recommendation.Empty():
		r.Metrics.CycleCompleted(metrics.OutcomeNoRecommendation, duration)
		log.ReconcileSuccess(req.Namespace, req.Name, duration)
		return ctrl.Result{RequeueAfter: resync}, nil

	case outcome.NoOp:
		r.Metrics.CycleCompleted(metrics.OutcomeNoOp, duration)
		log.ReconcileSuccess(req.Namespace, req.Name, duration)
		return ctrl.Result{RequeueAfter: resync}, nil

	default:
		r.Metrics.CycleCompleted(metrics.OutcomeSuccess, duration)
		log.ReconcileSuccess(req.Namespace, req.Name, duration)
		return ctrl.Result{RequeueAfter: resync}, nil
	}
}

// runCycle executes the pipeline and never lets a failure escape as
// anything but outcome.Err, so the caller's status write always happens.
func (r *VPARecommendationReconciler) runCycle(ctx context.Context, resource *recv1alpha1.VPARecommendation, log *logging.Logger) (outcome status.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			outcome.Err = recerrors.Retryablef("reconcile cycle", "panic: %v", p)
		}
	}()

	spec := resource.Spec
	outcome.Target = spec.TargetResource.String()

	rec, err := r.fetcher.Fetch(ctx, spec.VPAName, spec.VPANamespace, spec.TargetResource.ContainerIndex)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Recommendation = rec
	if rec.Empty() {
		return outcome
	}

	token, err := r.tokens.ResolveToken(ctx, spec.SecretRef, resource.Namespace)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	builder := patch.NewBuilder(spec.GitPath, spec.ResolvedLimitsPolicy())
	artifact := builder.Build(spec.TargetResource, rec)
	outcome.PatchFile = artifact.FilePath

	cloneCtx, cancel := context.WithTimeout(ctx, r.Config.CloneTimeout)
	defer cancel()

	workspace, err := r.newWorkspace(cloneCtx, spec.GitRepo, token)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	defer func() {
		if cerr := workspace.Close(); cerr != nil {
			log.WarnEvent("Working copy cleanup failed", "error", cerr.Error())
		}
	}()

	branch := resource.ChangeBranch()
	if _, err := workspace.EnsureBranch(ctx, branch); err != nil {
		outcome.Err = err
		return outcome
	}
	if err := workspace.WriteArtifact(artifact); err != nil {
		outcome.Err = err
		return outcome
	}

	changed, err := workspace.HasChanges()
	if err != nil {
		outcome.Err = err
		return outcome
	}

	if changed {
		if _, err := workspace.CommitAndPush(ctx, patch.CommitMessage(spec.TargetResource)); err != nil {
			outcome.Err = err
			return outcome
		}
		r.Metrics.BranchPushed()
	} else {
		outcome.NoOp = true
	}

	// The review request is converged on no-op cycles too, so the status
	// keeps pointing at the open request even when nothing was pushed.
	svc, err := r.newReview(spec.GitRepo, token)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	base := spec.ResolvedBaseBranch()
	lookup, lookupErr := svc.FindOpen(ctx, branch, base)

	var request *review.Request
	switch lookup.State {
	case review.LookupFound:
		request = lookup.Request
		log.PRReused(request.Number, request.URL)

	case review.LookupAbsent:
		created, err := svc.Create(ctx, branch, base,
			review.Title(spec.TargetResource),
			review.Body(spec.TargetResource, spec.VPAName, spec.VPANamespace, rec, spec.ResolvedLimitsPolicy()))
		if err != nil {
			// Benign means the branch already matches base (previous
			// request merged): the cycle succeeded, there is just
			// nothing left to review.
			if recerrors.IsBenign(err) {
				outcome.NoOp = true
				return outcome
			}
			outcome.Err = err
			return outcome
		}
		r.Metrics.PullRequestCreated()
		request = created

	default:
		// Creating blind after a failed lookup risks a duplicate request,
		// so an unknown lookup fails the cycle.
		outcome.Err = lookupErr
		return outcome
	}

	summary := &recv1alpha1.PullRequestSummary{
		Number:      request.Number,
		URL:         request.URL,
		CommitCount: svc.CommitCount(ctx, branch),
	}
	if !request.CreatedAt.IsZero() {
		created := metav1.NewTime(request.CreatedAt)
		summary.CreatedAt = &created
	}
	outcome.PullRequest = summary

	return outcome
}

// ensureDeps wires production collaborators for any seam left unset.
func (r *VPARecommendationReconciler) ensureDeps() {
	if r.Config == nil {
		r.Config = config.DefaultConfig()
	}
	if r.Log == nil {
		r.Log = logging.NewLogger(logging.ComponentController)
	}
	if r.Metrics == nil {
		r.Metrics = metrics.NewDefaultRecorder()
	}
	if r.fetcher == nil {
		r.fetcher = recommend.NewFetcher(r.Client, logging.NewLogger(logging.ComponentFetcher))
	}
	if r.tokens == nil {
		r.tokens = secrets.NewResolver(r.Client, logging.NewLogger(logging.ComponentSecrets))
	}
	if r.statusWriter == nil {
		r.statusWriter = status.NewWriter(r.Client, logging.NewLogger(logging.ComponentStatus))
	}
	if r.newWorkspace == nil {
		opts := gitops.Options{
			WorkdirRoot: r.Config.WorkdirRoot,
			AuthorName:  r.Config.CommitAuthorName,
			AuthorEmail: r.Config.CommitAuthorEmail,
		}
		gitLog := logging.NewLogger(logging.ComponentGitOps)
		r.newWorkspace = func(ctx context.Context, repoURL, token string) (changeWorkspace, error) {
			return gitops.Clone(ctx, repoURL, token, opts, gitLog)
		}
	}
	if r.newReview == nil {
		apiBase := r.Config.GitHubAPIBaseURL
		reviewLog := logging.NewLogger(logging.ComponentReview)
		r.newReview = func(repoURL, token string) (reviewService, error) {
			return review.NewClient(repoURL, token, apiBase, reviewLog)
		}
	}
}

// SetupWithManager registers the controller with the manager.
func (r *VPARecommendationReconciler) SetupWithManager(mgr ctrl.Manager) error {
	if r.Client == nil {
		r.Client = mgr.GetClient()
	}
	if r.Scheme == nil {
		r.Scheme = mgr.GetScheme()
	}
	r.ensureDeps()

	return ctrl.NewControllerManagedBy(mgr).
		For(&recv1alpha1.VPARecommendation{}).
		Named("vparecommendation").
		Complete(r)
}

// Package status projects the outcome of a reconciliation cycle into the
// externally visible VPARecommendation status and persists it.
package status

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	recv1alpha1 "github.com/thc1006/vpa-gitops-recommender/api/recommender/v1alpha1"
	"github.com/thc1006/vpa-gitops-recommender/pkg/logging"
	"github.com/thc1006/vpa-gitops-recommender/pkg/recerrors"
	"github.com/thc1006/vpa-gitops-recommender/pkg/recommend"
)

// Outcome collects what one reconciliation cycle produced. Exactly one of
// the terminal shapes applies: an error, an empty recommendation, or a
// completed patch/review sequence (possibly a no-op).
type Outcome struct {
	Recommendation recommend.Recommendation
	PatchFile      string
	Target         string
	NoOp           bool
	PullRequest    *recv1alpha1.PullRequestSummary
	Err            error
}

// Project is a pure function from a cycle outcome to a fresh status record.
// Status is recreated every cycle, never accumulated.
func Project(outcome Outcome, now metav1.Time, generation int64) recv1alpha1.VPARecommendationStatus {
	condition := metav1.Condition{
		Type:               recv1alpha1.ConditionRecommended,
		ObservedGeneration: generation,
		LastTransitionTime: now,
	}

	switch {
	case outcome.Err != nil:
		condition.Status = metav1.ConditionFalse
		condition.Reason = recv1alpha1.ReasonProcessingError
		condition.Message = outcome.Err.Error()

	case outcome.Recommendation.Empty():
		condition.Status = metav1.ConditionFalse
		condition.Reason = recv1alpha1.ReasonNoRecommendations
		condition.Message = "VPA carries no actionable recommendation"

	case outcome.NoOp:
		condition.Status = metav1.ConditionTrue
		condition.Reason = recv1alpha1.ReasonPatchCreated
		condition.Message = fmt.Sprintf("Patch %s unchanged, nothing to push", outcome.PatchFile)
		if outcome.PullRequest != nil {
			condition.Message = fmt.Sprintf("Patch %s unchanged, PR #%d still open",
				outcome.PatchFile, outcome.PullRequest.Number)
		}

	default:
		condition.Status = metav1.ConditionTrue
		condition.Reason = recv1alpha1.ReasonPRCreated
		condition.Message = fmt.Sprintf("Patch %s pushed", outcome.PatchFile)
		if outcome.PullRequest != nil {
			condition.Message = fmt.Sprintf("Patch %s pushed, PR %s", outcome.PatchFile, outcome.PullRequest.URL)
		}
	}

	return recv1alpha1.VPARecommendationStatus{
		LastRecommendation: outcome.Recommendation,
		LastPatchFile:      outcome.PatchFile,
		LastTarget:         outcome.Target,
		PullRequest:        outcome.PullRequest,
		LastRunTime:        &now,
		Conditions:         []metav1.Condition{condition},
	}
}

// Writer persists projected statuses against the owning resource.
type Writer struct {
	client client.Client
	log    *logging.Logger
}

// NewWriter returns a status Writer.
func NewWriter(c client.Client, log *logging.Logger) *Writer {
	return &Writer{client: c, log: log}
}

// Write updates the status subresource of the named VPARecommendation.
// When the resource no longer exists the write is skipped without error:
// deletion races benignly with in-flight cycles and must never surface as
// a retryable failure. A conflicting concurrent update is retried once
// against a re-read copy.
func (w *Writer) Write(ctx context.Context, key types.NamespacedName, status recv1alpha1.VPARecommendationStatus) error {
	for attempt := 0; attempt < 2; attempt++ {
		current := &recv1alpha1.VPARecommendation{}
		if err := w.client.Get(ctx, key, current); err != nil {
			if apierrors.IsNotFound(err) {
				w.log.DebugEvent("Owning resource deleted, skipping status write",
					"namespace", key.Namespace, "name", key.Name)
				return nil
			}
			return recerrors.Retryable("read owning resource", err)
		}

		current.Status = status
		err := w.client.Status().Update(ctx, current)
		if err == nil {
			return nil
		}
		if apierrors.IsNotFound(err) {
			return nil
		}
		if apierrors.IsConflict(err) && attempt == 0 {
			continue
		}
		return recerrors.Retryable("write status", err)
	}
	return nil
}

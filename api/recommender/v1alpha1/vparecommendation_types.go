package v1alpha1

import (
	"fmt"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// LimitsPolicy controls whether container limits are emitted alongside
// requests in generated patch artifacts.
type LimitsPolicy string

const (
	// LimitsMirrorRequests emits a limit for every recommended request,
	// defaulting the limit value to the request value when no explicit
	// limit is recommended.
	LimitsMirrorRequests LimitsPolicy = "MirrorRequests"

	// LimitsRequestsOnly never emits limit operations.
	LimitsRequestsOnly LimitsPolicy = "RequestsOnly"
)

// ConditionRecommended is the single condition type reported on
// VPARecommendation status.
const ConditionRecommended = "Recommended"

// Condition reasons surfaced by the status projector.
const (
	ReasonNoRecommendations = "NoRecommendations"
	ReasonPatchCreated      = "PatchCreated"
	ReasonPRCreated         = "PRCreated"
	ReasonProcessingError   = "ProcessingError"
)

// TargetResource identifies the workload object a patch artifact applies to.
type TargetResource struct {
	// +kubebuilder:validation:MinLength=1

	Kind string `json:"kind"`

	// +kubebuilder:validation:MinLength=1

	Name string `json:"name"`

	// +kubebuilder:default="default"

	Namespace string `json:"namespace,omitempty"`

	// +kubebuilder:validation:Minimum=0
	// +kubebuilder:default=0

	ContainerIndex int `json:"containerIndex,omitempty"`
}

// String renders the target as namespace/kind/name for log and status use.
func (t TargetResource) String() string {
	ns := t.Namespace
	if ns == "" {
		ns = "default"
	}
	return fmt.Sprintf("%s/%s/%s", ns, strings.ToLower(t.Kind), t.Name)
}

// VPARecommendationSpec defines the desired reconciliation inputs: which
// VPA to read, which repository to materialize patches into, and which
// workload the patch targets.
type VPARecommendationSpec struct {
	// +kubebuilder:validation:MinLength=1

	VPAName string `json:"vpaName"`

	// +kubebuilder:validation:MinLength=1

	VPANamespace string `json:"vpaNamespace"`

	// GitRepo is the HTTPS clone URL of the configuration repository.
	// +kubebuilder:validation:Pattern=`^https://.+`

	GitRepo string `json:"gitRepo"`

	// GitPath is the repository subpath under which patches/ lives.
	// +optional

	GitPath string `json:"gitPath,omitempty"`

	// BaseBranch is the branch review requests merge into.
	// +kubebuilder:default="main"

	BaseBranch string `json:"baseBranch,omitempty"`

	// BranchName is the fixed rolling change branch. When empty a
	// deterministic name is derived from this resource.
	// +optional

	BranchName string `json:"branchName,omitempty"`

	TargetResource TargetResource `json:"targetResource"`

	// SecretRef names a Secret in this resource's namespace holding the
	// git/review-service token under the key "token".
	// +kubebuilder:validation:MinLength=1

	SecretRef string `json:"secretRef"`

	// +kubebuilder:validation:Enum=MirrorRequests;RequestsOnly
	// +kubebuilder:default="MirrorRequests"

	LimitsPolicy LimitsPolicy `json:"limitsPolicy,omitempty"`

	// ResyncInterval is the timer-tick period between reconciliations.
	// +optional

	ResyncInterval *metav1.Duration `json:"resyncInterval,omitempty"`
}

// ResolvedBaseBranch returns the configured base branch or "main".
func (s *VPARecommendationSpec) ResolvedBaseBranch() string {
	if s.BaseBranch == "" {
		return "main"
	}
	return s.BaseBranch
}

// ResolvedLimitsPolicy returns the configured limits policy or the
// MirrorRequests default.
func (s *VPARecommendationSpec) ResolvedLimitsPolicy() LimitsPolicy {
	if s.LimitsPolicy == "" {
		return LimitsMirrorRequests
	}
	return s.LimitsPolicy
}

// ResolvedResyncInterval returns the configured resync interval or the
// supplied default.
func (s *VPARecommendationSpec) ResolvedResyncInterval(def time.Duration) time.Duration {
	if s.ResyncInterval == nil || s.ResyncInterval.Duration <= 0 {
		return def
	}
	return s.ResyncInterval.Duration
}

// PullRequestSummary records the open review request covering the change
// branch, refreshed on every cycle.
type PullRequestSummary struct {
	Number int `json:"number"`

	// +optional

	URL string `json:"url,omitempty"`

	// +optional

	CreatedAt *metav1.Time `json:"createdAt,omitempty"`

	// CommitCount is best-effort and may lag the branch tip.
	// +optional

	CommitCount int `json:"commitCount,omitempty"`
}

// VPARecommendationStatus is recreated fresh on every reconciliation cycle.
type VPARecommendationStatus struct {
	// +optional

	LastRecommendation map[string]string `json:"lastRecommendation,omitempty"`

	// +optional

	LastPatchFile string `json:"lastPatchFile,omitempty"`

	// +optional

	LastTarget string `json:"lastTarget,omitempty"`

	// +optional

	PullRequest *PullRequestSummary `json:"pullRequest,omitempty"`

	// +optional

	LastRunTime *metav1.Time `json:"lastRunTime,omitempty"`

	// +optional

	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true

// +kubebuilder:subresource:status

// +kubebuilder:resource:scope=Namespaced,shortName=vparec

// +kubebuilder:printcolumn:name="Target",type=string,JSONPath=`.status.lastTarget`

// +kubebuilder:printcolumn:name="PR",type=integer,JSONPath=`.status.pullRequest.number`

// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// VPARecommendation is the Schema for the vparecommendations API.
// It routes VPA sizing recommendations into a review-gated git workflow.
type VPARecommendation struct {
	metav1.TypeMeta `json:",inline"`

	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec VPARecommendationSpec `json:"spec,omitempty"`

	Status VPARecommendationStatus `json:"status,omitempty"`
}

// ChangeBranch returns the fixed rolling branch for this resource: the
// configured name when set, otherwise a deterministic derivation. The same
// resource always maps to the same branch so repeated cycles reuse it.
func (r *VPARecommendation) ChangeBranch() string {
	if r.Spec.BranchName != "" {
		return r.Spec.BranchName
	}
	return fmt.Sprintf("vpa-recommendations/%s-%s", r.Namespace, r.Name)
}

// +kubebuilder:object:root=true

// VPARecommendationList contains a list of VPARecommendation resources.
type VPARecommendationList struct {
	metav1.TypeMeta `json:",inline"`

	metav1.ListMeta `json:"metadata,omitempty"`

	Items []VPARecommendation `json:"items"`
}

func init() {
	SchemeBuilder.Register(&VPARecommendation{}, &VPARecommendationList{})
}

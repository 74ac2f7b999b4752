// Package recommend reads the current target sizing for a workload from a
// VerticalPodAutoscaler object.
package recommend

import (
	"context"
	"sort"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/thc1006/vpa-gitops-recommender/pkg/logging"
	"github.com/thc1006/vpa-gitops-recommender/pkg/recerrors"
)

// Dimension keys carried in a Recommendation.
const (
	DimensionCPU         = "cpu"
	DimensionMemory      = "memory"
	DimensionCPULimit    = "cpuLimit"
	DimensionMemoryLimit = "memoryLimit"
)

// Recommendation maps a resource dimension to a quantity string. An empty
// map is the valid "no actionable data" state, distinct from an error.
type Recommendation map[string]string

// Empty reports whether the recommendation carries no actionable data.
func (r Recommendation) Empty() bool {
	return len(r) == 0
}

// Dimensions returns the dimension keys in stable order.
func (r Recommendation) Dimensions() []string {
	dims := make([]string, 0, len(r))
	for d := range r {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	return dims
}

var vpaGVK = schema.GroupVersionKind{
	Group:   "autoscaling.k8s.io",
	Version: "v1",
	Kind:    "VerticalPodAutoscaler",
}

// Fetcher retrieves VPA target recommendations. Read-only.
type Fetcher struct {
	reader client.Reader
	log    *logging.Logger
}

// NewFetcher returns a Fetcher reading through the given client.
func NewFetcher(reader client.Reader, log *logging.Logger) *Fetcher {
	return &Fetcher{reader: reader, log: log}
}

// Fetch reads the VPA identified by name/namespace and extracts the target
// recommendation for the container at containerIndex (falling back to the
// first container when the index is out of range).
//
// A missing VPA is "no recommendation", not an error: operators may
// intentionally leave a target unmanaged, and retry storms on those would
// be pure noise. Any other API failure is retryable.
func (f *Fetcher) Fetch(ctx context.Context, name, namespace string, containerIndex int) (Recommendation, error) {
	vpa := &unstructured.Unstructured{}
	vpa.SetGroupVersionKind(vpaGVK)

	err := f.reader.Get(ctx, types.NamespacedName{Name: name, Namespace: namespace}, vpa)
	if err != nil {
		if apierrors.IsNotFound(err) {
			f.log.WarnEvent("VPA not found, treating as no recommendation",
				"vpa", name, "vpaNamespace", namespace)
			return Recommendation{}, nil
		}
		return nil, recerrors.Retryable("fetch vpa", err)
	}

	containerRecs, found, err := unstructured.NestedSlice(vpa.Object,
		"status", "recommendation", "containerRecommendations")
	if err != nil || !found || len(containerRecs) == 0 {
		f.log.DebugEvent("VPA carries no container recommendations",
			"vpa", name, "vpaNamespace", namespace)
		return Recommendation{}, nil
	}

	idx := containerIndex
	if idx < 0 || idx >= len(containerRecs) {
		idx = 0
	}

	entry, ok := containerRecs[idx].(map[string]interface{})
	if !ok {
		return Recommendation{}, nil
	}

	target, ok := entry["target"].(map[string]interface{})
	if !ok {
		return Recommendation{}, nil
	}

	rec := Recommendation{}
	if cpu, ok := target["cpu"].(string); ok && cpu != "" {
		rec[DimensionCPU] = cpu
	}
	if mem, ok := target["memory"].(string); ok && mem != "" {
		rec[DimensionMemory] = mem
	}

	f.log.InfoEvent("Retrieved VPA recommendation",
		"vpa", name, "vpaNamespace", namespace, "dimensions", rec.Dimensions())

	return rec, nil
}

// Package patch deterministically computes the patch artifact for a target
// workload from a sizing recommendation. Pure computation, no side effects.
package patch

import (
	"fmt"
	"path"
	"strings"

	"sigs.k8s.io/yaml"

	recv1alpha1 "github.com/thc1006/vpa-gitops-recommender/api/recommender/v1alpha1"
	"github.com/thc1006/vpa-gitops-recommender/pkg/recommend"
)

// Operation is a single add operation in a patch artifact.
type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value string `json:"value"`
}

// Artifact is an ordered sequence of patch operations plus the canonical
// repository-relative file path it is written to.
type Artifact struct {
	Operations []Operation
	FilePath   string
}

// Marshal serializes the operation list as YAML.
func (a Artifact) Marshal() ([]byte, error) {
	return yaml.Marshal(a.Operations)
}

// Builder computes patch artifacts under a repository subpath with a fixed
// limits policy.
type Builder struct {
	gitPath      string
	limitsPolicy recv1alpha1.LimitsPolicy
}

// NewBuilder returns a Builder rooted at gitPath.
func NewBuilder(gitPath string, limitsPolicy recv1alpha1.LimitsPolicy) *Builder {
	return &Builder{gitPath: gitPath, limitsPolicy: limitsPolicy}
}

// FilePath is a pure function of the target: the same target always yields
// the same path, so re-running reconciliation overwrites in place instead
// of accumulating timestamped artifacts. Missing kind/name degrade to
// lower-cased empty segments; callers wanting stricter behavior validate
// the target before building.
func (b *Builder) FilePath(target recv1alpha1.TargetResource) string {
	namespace := strings.ToLower(target.Namespace)
	if namespace == "" {
		namespace = "default"
	}
	kind := strings.ToLower(target.Kind)
	name := strings.ToLower(target.Name)

	return path.Join(b.gitPath, "patches", namespace, kind, name+".yaml")
}

// Build emits one requests operation per dimension present in the
// recommendation, plus a limits operation per dimension under the
// MirrorRequests policy (explicit limit value when recommended, otherwise
// mirroring the request). Absent dimensions produce no operations.
func (b *Builder) Build(target recv1alpha1.TargetResource, rec recommend.Recommendation) Artifact {
	resourcesPath := fmt.Sprintf("/spec/template/spec/containers/%d/resources", target.ContainerIndex)

	var ops []Operation

	if cpu, ok := rec[recommend.DimensionCPU]; ok {
		ops = append(ops, Operation{
			Op:    "add",
			Path:  resourcesPath + "/requests/cpu",
			Value: cpu,
		})
		if b.limitsPolicy == recv1alpha1.LimitsMirrorRequests {
			limit := cpu
			if explicit, ok := rec[recommend.DimensionCPULimit]; ok {
				limit = explicit
			}
			ops = append(ops, Operation{
				Op:    "add",
				Path:  resourcesPath + "/limits/cpu",
				Value: limit,
			})
		}
	}

	if mem, ok := rec[recommend.DimensionMemory]; ok {
		ops = append(ops, Operation{
			Op:    "add",
			Path:  resourcesPath + "/requests/memory",
			Value: mem,
		})
		if b.limitsPolicy == recv1alpha1.LimitsMirrorRequests {
			limit := mem
			if explicit, ok := rec[recommend.DimensionMemoryLimit]; ok {
				limit = explicit
			}
			ops = append(ops, Operation{
				Op:    "add",
				Path:  resourcesPath + "/limits/memory",
				Value: limit,
			})
		}
	}

	return Artifact{
		Operations: ops,
		FilePath:   b.FilePath(target),
	}
}

// CommitMessage derives the deterministic commit message for a target.
func CommitMessage(target recv1alpha1.TargetResource) string {
	return fmt.Sprintf("Update %s/%s resource sizing from VPA recommendation", target.Kind, target.Name)
}

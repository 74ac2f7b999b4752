// Package secrets resolves the git/review-service token referenced by a
// VPARecommendation spec.
package secrets

import (
	"context"
	"strings"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/thc1006/vpa-gitops-recommender/pkg/logging"
	"github.com/thc1006/vpa-gitops-recommender/pkg/recerrors"
)

// TokenKey is the Secret data key holding the token.
const TokenKey = "token"

// Resolver reads tokens from Kubernetes Secrets.
type Resolver struct {
	reader client.Reader
	log    *logging.Logger
}

// NewResolver returns a Resolver reading through the given client.
func NewResolver(reader client.Reader, log *logging.Logger) *Resolver {
	return &Resolver{reader: reader, log: log}
}

// ResolveToken fetches the named Secret and returns its whitespace-trimmed
// token. A missing secret or key is a permanent configuration error: it
// will not heal without operator action, so retrying faster than the next
// spec change is pointless.
func (r *Resolver) ResolveToken(ctx context.Context, name, namespace string) (string, error) {
	secret := &corev1.Secret{}
	err := r.reader.Get(ctx, types.NamespacedName{Name: name, Namespace: namespace}, secret)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return "", recerrors.Permanentf("resolve credential", "secret %s/%s not found", namespace, name)
		}
		return "", recerrors.Retryable("resolve credential", err)
	}

	data, ok := secret.Data[TokenKey]
	if !ok {
		return "", recerrors.Permanentf("resolve credential", "secret %s/%s has no %q key", namespace, name, TokenKey)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", recerrors.Permanentf("resolve credential", "secret %s/%s has an empty token", namespace, name)
	}

	r.log.DebugEvent("Credential resolved", "secret", name, "namespace", namespace)
	return token, nil
}

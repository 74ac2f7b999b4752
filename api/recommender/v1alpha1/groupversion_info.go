// Package v1alpha1 contains the recommender.gitops.io API group types.
package v1alpha1

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/scheme"
)

var (
	// GroupVersion identifies this API group/version.
	GroupVersion = schema.GroupVersion{Group: "recommender.gitops.io", Version: "v1alpha1"}

	// SchemeBuilder registers the types with a Scheme.
	SchemeBuilder = &scheme.Builder{GroupVersion: GroupVersion}

	// AddToScheme is called from main to register the group.
	AddToScheme = SchemeBuilder.AddToScheme
)

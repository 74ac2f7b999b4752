package recerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassificationOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Classification
	}{
		{
			name: "retryable transport failure",
			err:  Retryable("git push", errors.New("connection reset")),
			want: ClassRetryable,
		},
		{
			name: "permanent config error",
			err:  Permanentf("resolve credential", "secret %q has no token key", "git-creds"),
			want: ClassPermanent,
		},
		{
			name: "benign outcome",
			err:  Benign("fetch recommendation", errors.New("vpa not found")),
			want: ClassBenign,
		},
		{
			name: "wrapped classified error",
			err:  fmt.Errorf("cycle failed: %w", Permanent("clone", errors.New("bad url"))),
			want: ClassPermanent,
		},
		{
			name: "unclassified defaults to retryable",
			err:  errors.New("something broke"),
			want: ClassRetryable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassificationOf(tt.err))
		})
	}
}

func TestClassifiedErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Retryable("git clone", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "git clone")
	assert.Contains(t, err.Error(), "dial tcp")
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsPermanent(Permanent("x", errors.New("y"))))
	assert.False(t, IsPermanent(Retryable("x", errors.New("y"))))
	assert.True(t, IsBenign(Benign("x", nil)))
	assert.False(t, IsBenign(errors.New("plain")))
}

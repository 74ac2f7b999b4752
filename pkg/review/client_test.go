package review

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	recv1alpha1 "github.com/thc1006/vpa-gitops-recommender/api/recommender/v1alpha1"
	"github.com/thc1006/vpa-gitops-recommender/pkg/logging"
	"github.com/thc1006/vpa-gitops-recommender/pkg/recerrors"
	"github.com/thc1006/vpa-gitops-recommender/pkg/recommend"
)

func reviewLogger() *logging.Logger {
	return logging.NewLoggerWithOptions(logging.ComponentReview, logging.Options{
		Level:  "error",
		Output: io.Discard,
	})
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("https://github.com/acme/config-repo.git", "test-token", server.URL+"/", reviewLogger())
	require.NoError(t, err)
	return client
}

func TestParseRepoURL(t *testing.T) {
	tests := []struct {
		url       string
		owner     string
		repo      string
		expectErr bool
	}{
		{"https://github.com/acme/config-repo.git", "acme", "config-repo", false},
		{"https://github.com/acme/config-repo", "acme", "config-repo", false},
		{"https://github.internal.example.com/platform/sizing.git", "platform", "sizing", false},
		{"https://github.com/acme", "", "", true},
		{"://not-a-url", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			owner, repo, err := ParseRepoURL(tt.url)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.repo, repo)
		})
	}
}

func TestNewClientMalformedURLIsPermanent(t *testing.T) {
	_, err := NewClient("https://github.com/acme", "token", "", reviewLogger())

	require.Error(t, err)
	assert.True(t, recerrors.IsPermanent(err))
}

func TestFindOpenFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/config-repo/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "open", r.URL.Query().Get("state"))
		assert.Equal(t, "acme:vpa-recommendations/prod-api", r.URL.Query().Get("head"))
		assert.Equal(t, "main", r.URL.Query().Get("base"))

		fmt.Fprint(w, `[{"number": 42, "html_url": "https://github.com/acme/config-repo/pull/42", "created_at": "2026-08-01T10:00:00Z"}]`)
	})

	client := newTestClient(t, mux)
	lookup, err := client.FindOpen(context.Background(), "vpa-recommendations/prod-api", "main")

	require.NoError(t, err)
	assert.Equal(t, LookupFound, lookup.State)
	require.NotNil(t, lookup.Request)
	assert.Equal(t, 42, lookup.Request.Number)
	assert.Equal(t, "https://github.com/acme/config-repo/pull/42", lookup.Request.URL)
}

func TestFindOpenAbsent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/config-repo/pulls", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})

	client := newTestClient(t, mux)
	lookup, err := client.FindOpen(context.Background(), "vpa-recommendations/prod-api", "main")

	require.NoError(t, err)
	assert.Equal(t, LookupAbsent, lookup.State)
	assert.Nil(t, lookup.Request)
}

func TestFindOpenAPIFailureIsUnknown(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/config-repo/pulls", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "boom"}`, http.StatusInternalServerError)
	})

	client := newTestClient(t, mux)
	lookup, err := client.FindOpen(context.Background(), "vpa-recommendations/prod-api", "main")

	require.Error(t, err)
	assert.Equal(t, LookupUnknown, lookup.State, "lookup failure must never be collapsed into absent")
	assert.Equal(t, recerrors.ClassRetryable, recerrors.ClassificationOf(err))
}

func TestCreate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/config-repo/pulls", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "vpa-recommendations/prod-api", payload["head"])
		assert.Equal(t, "main", payload["base"])
		assert.Equal(t, "Resource update for prod/deployment/api", payload["title"])

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"number": 7, "html_url": "https://github.com/acme/config-repo/pull/7", "created_at": "2026-08-23T09:00:00Z"}`)
	})

	client := newTestClient(t, mux)
	created, err := client.Create(context.Background(),
		"vpa-recommendations/prod-api", "main",
		"Resource update for prod/deployment/api", "body")

	require.NoError(t, err)
	assert.Equal(t, 7, created.Number)
	assert.Equal(t, "https://github.com/acme/config-repo/pull/7", created.URL)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestCreateNoCommitsBetweenIsBenign(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/config-repo/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "Validation Failed", "errors": [{"resource": "PullRequest", "code": "custom", "message": "No commits between main and vpa-recommendations/prod-api"}]}`)
	})

	client := newTestClient(t, mux)
	created, err := client.Create(context.Background(),
		"vpa-recommendations/prod-api", "main", "title", "body")

	require.Error(t, err)
	assert.Nil(t, created)
	assert.True(t, recerrors.IsBenign(err),
		"a branch already matching base cannot heal through retries")
}

func TestCreateFailureIsRetryable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/acme/config-repo/pulls", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "validation failed"}`, http.StatusUnprocessableEntity)
	})

	client := newTestClient(t, mux)
	_, err := client.Create(context.Background(), "branch", "main", "title", "body")

	require.Error(t, err)
	assert.Equal(t, recerrors.ClassRetryable, recerrors.ClassificationOf(err))
}

func TestCommitCountBestEffort(t *testing.T) {
	t.Run("uses last page from pagination", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /repos/acme/config-repo/commits", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Link",
				fmt.Sprintf(`<http://%s/repos/acme/config-repo/commits?per_page=1&page=3>; rel="last"`, r.Host))
			fmt.Fprint(w, `[{"sha": "abc"}]`)
		})

		client := newTestClient(t, mux)
		assert.Equal(t, 3, client.CommitCount(context.Background(), "vpa-recommendations/prod-api"))
	})

	t.Run("falls back to result length without pagination", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /repos/acme/config-repo/commits", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[{"sha": "abc"}]`)
		})

		client := newTestClient(t, mux)
		assert.Equal(t, 1, client.CommitCount(context.Background(), "vpa-recommendations/prod-api"))
	})

	t.Run("failure yields zero, not an error", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /repos/acme/config-repo/commits", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message": "boom"}`, http.StatusBadGateway)
		})

		client := newTestClient(t, mux)
		assert.Equal(t, 0, client.CommitCount(context.Background(), "vpa-recommendations/prod-api"))
	})
}

func TestTitleAndBody(t *testing.T) {
	target := recv1alpha1.TargetResource{Kind: "Deployment", Name: "api", Namespace: "prod"}
	rec := recommend.Recommendation{"cpu": "250m", "memory": "512Mi"}

	assert.Equal(t, "Resource update for prod/deployment/api", Title(target))

	body := Body(target, "api-vpa", "prod", rec, recv1alpha1.LimitsMirrorRequests)
	assert.Contains(t, body, "CPU request: 250m")
	assert.Contains(t, body, "Memory request: 512Mi")
	assert.Contains(t, body, "CPU limit: 250m")

	requestsOnly := Body(target, "api-vpa", "prod", rec, recv1alpha1.LimitsRequestsOnly)
	assert.NotContains(t, requestsOnly, "CPU limit")
}

// Package review reconciles the open pull request covering the change
// branch: lookup-before-create keeps repeated cycles converging on a single
// request instead of opening duplicates.
package review

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v74/github"

	recv1alpha1 "github.com/thc1006/vpa-gitops-recommender/api/recommender/v1alpha1"
	"github.com/thc1006/vpa-gitops-recommender/pkg/logging"
	"github.com/thc1006/vpa-gitops-recommender/pkg/recerrors"
	"github.com/thc1006/vpa-gitops-recommender/pkg/recommend"
)

// LookupState is the tri-state outcome of an open-request lookup. Unknown
// is deliberately distinct from Absent: a failed lookup must never be
// silently collapsed into "create another one".
type LookupState string

const (
	LookupFound   LookupState = "found"
	LookupAbsent  LookupState = "absent"
	LookupUnknown LookupState = "unknown"
)

// Request summarizes an open review request.
type Request struct {
	Number    int
	URL       string
	CreatedAt time.Time
}

// Lookup carries the tri-state result of FindOpen.
type Lookup struct {
	State   LookupState
	Request *Request
}

// Client talks to the GitHub pull-request API for one repository.
type Client struct {
	gh    *github.Client
	owner string
	repo  string
	log   *logging.Logger
}

// NewClient builds a client for the repository identified by its HTTPS
// clone URL. apiBaseURL overrides the API endpoint (GitHub Enterprise,
// tests); empty means api.github.com.
func NewClient(repoURL, token, apiBaseURL string, log *logging.Logger) (*Client, error) {
	owner, repo, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, recerrors.Permanent("parse repository URL", err)
	}

	gh := github.NewClient(nil).WithAuthToken(token)
	if apiBaseURL != "" {
		base, err := url.Parse(apiBaseURL)
		if err != nil {
			return nil, recerrors.Permanentf("parse API base URL", "malformed API base URL %q: %v", apiBaseURL, err)
		}
		if !strings.HasSuffix(base.Path, "/") {
			base.Path += "/"
		}
		gh.BaseURL = base
	}

	return &Client{gh: gh, owner: owner, repo: repo, log: log}, nil
}

// ParseRepoURL extracts owner and repository name from an HTTPS clone URL,
// tolerating a trailing .git suffix.
func ParseRepoURL(repoURL string) (owner, repo string, err error) {
	parsed, err := url.Parse(repoURL)
	if err != nil {
		return "", "", fmt.Errorf("malformed repository URL %q: %w", repoURL, err)
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return "", "", fmt.Errorf("repository URL %q does not contain owner/name", repoURL)
	}

	return segments[0], strings.TrimSuffix(segments[1], ".git"), nil
}

// FindOpen looks up the open request merging branch into base. An API
// failure yields LookupUnknown together with a retryable error; the caller
// decides the policy for the unknown case.
func (c *Client) FindOpen(ctx context.Context, branch, base string) (Lookup, error) {
	prs, _, err := c.gh.PullRequests.List(ctx, c.owner, c.repo, &github.PullRequestListOptions{
		State: "open",
		Head:  c.owner + ":" + branch,
		Base:  base,
	})
	if err != nil {
		return Lookup{State: LookupUnknown}, recerrors.Retryable("list pull requests", err)
	}

	if len(prs) == 0 {
		return Lookup{State: LookupAbsent}, nil
	}

	pr := prs[0]
	return Lookup{
		State: LookupFound,
		Request: &Request{
			Number:    pr.GetNumber(),
			URL:       pr.GetHTMLURL(),
			CreatedAt: pr.GetCreatedAt().Time,
		},
	}, nil
}

// Create opens a new request merging branch into base. A 422 for "no
// commits between base and head" is classified benign: it means the branch
// content already matches base (typically after the previous request was
// merged), so there is nothing left to review and retrying cannot change
// that.
func (c *Client) Create(ctx context.Context, branch, base, title, body string) (*Request, error) {
	pr, _, err := c.gh.PullRequests.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: github.Ptr(title),
		Head:  github.Ptr(branch),
		Base:  github.Ptr(base),
		Body:  github.Ptr(body),
	})
	if err != nil {
		if isNoCommitsError(err) {
			c.log.InfoEvent("Branch has no commits against base, nothing to review",
				"branch", branch, "base", base)
			return nil, recerrors.Benign("create pull request", err)
		}
		return nil, recerrors.Retryable("create pull request", err)
	}

	created := &Request{
		Number:    pr.GetNumber(),
		URL:       pr.GetHTMLURL(),
		CreatedAt: pr.GetCreatedAt().Time,
	}
	c.log.PRCreated(created.Number, created.URL)
	return created, nil
}

// isNoCommitsError matches the validation failure GitHub returns when the
// head branch carries no commits against the base branch.
func isNoCommitsError(err error) bool {
	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) || ghErr.Response == nil ||
		ghErr.Response.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	if strings.Contains(ghErr.Message, "No commits between") {
		return true
	}
	for _, e := range ghErr.Errors {
		if strings.Contains(e.Message, "No commits between") {
			return true
		}
	}
	return false
}

// CommitCount resolves the number of commits on branch. Best-effort: a
// failure is logged and reported as zero, never failing the cycle.
func (c *Client) CommitCount(ctx context.Context, branch string) int {
	commits, resp, err := c.gh.Repositories.ListCommits(ctx, c.owner, c.repo, &github.CommitsListOptions{
		SHA:         branch,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		c.log.WarnEvent("Commit count lookup failed", "branch", branch, "error", err.Error())
		return 0
	}

	if resp.LastPage > 0 {
		return resp.LastPage
	}
	return len(commits)
}

// Title renders the request title for a target.
func Title(target recv1alpha1.TargetResource) string {
	return fmt.Sprintf("Resource update for %s", target.String())
}

// Body renders the request body summarizing the recommended dimensions.
func Body(target recv1alpha1.TargetResource, vpaName, vpaNamespace string, rec recommend.Recommendation, policy recv1alpha1.LimitsPolicy) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "This PR was automatically generated by the VPA GitOps recommender.\n\n")
	fmt.Fprintf(&sb, "It updates the resource sizing for %s `%s` in namespace `%s` based on the recommendation from VPA `%s` in namespace `%s`.\n\n",
		target.Kind, target.Name, target.Namespace, vpaName, vpaNamespace)
	sb.WriteString("New recommended values:\n")

	valueOr := func(key, fallback string) string {
		if v, ok := rec[key]; ok {
			return v
		}
		return fallback
	}

	fmt.Fprintf(&sb, "- CPU request: %s\n", valueOr(recommend.DimensionCPU, "not updated"))
	fmt.Fprintf(&sb, "- Memory request: %s\n", valueOr(recommend.DimensionMemory, "not updated"))

	if policy == recv1alpha1.LimitsMirrorRequests {
		fmt.Fprintf(&sb, "- CPU limit: %s\n", valueOr(recommend.DimensionCPULimit, valueOr(recommend.DimensionCPU, "not updated")))
		fmt.Fprintf(&sb, "- Memory limit: %s\n", valueOr(recommend.DimensionMemoryLimit, valueOr(recommend.DimensionMemory, "not updated")))
	}

	return sb.String()
}

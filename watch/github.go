package watch

import (
	"context"
	"log"
	"strings"

	"github.com/google/go-github/v27/github"
	"golang.org/x/oauth2"
	"golang.org/x/xerrors"

	"github.com/distr1/buildset"
)

// GitHub updates a commit's combined status on github.com as a BuildSet
// progresses, the way cmd/autobuilder tracks a commit's build by polling
// github.Repositories.ListCommits and would otherwise report outcomes back
// by hand. One GitHub watcher reports for exactly one commit SHA.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
	sha    string
	// Context is the status context name reported to GitHub (the "ci/name"
	// string shown next to the commit).
	Context string
	// TargetURL, if set, is linked from the status check.
	TargetURL string
}

// NewGitHub returns a GitHub watcher authenticated with accessToken,
// reporting status for owner/repo@sha under the given status context name.
func NewGitHub(ctx context.Context, accessToken, owner, repo, sha, statusContext string) *GitHub {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	tc := oauth2.NewClient(ctx, ts)
	return &GitHub{
		client:  github.NewClient(tc),
		owner:   owner,
		repo:    repo,
		sha:     sha,
		Context: statusContext,
	}
}

// RepoFromURL splits a "https://github.com/owner/repo" URL into its owner
// and repo components, the way cmd/autobuilder derives them from its -repo
// flag before calling the GitHub API.
func RepoFromURL(url string) (owner, repo string) {
	parts := strings.Split(strings.TrimPrefix(url, "https://github.com/"), "/")
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

func (g *GitHub) setStatus(ctx context.Context, state, description string) error {
	status := &github.RepoStatus{
		State:       github.String(state),
		Description: github.String(description),
		Context:     github.String(g.Context),
	}
	if g.TargetURL != "" {
		status.TargetURL = github.String(g.TargetURL)
	}
	_, _, err := g.client.Repositories.CreateStatus(ctx, g.owner, g.repo, g.sha, status)
	if err != nil {
		return xerrors.Errorf("creating commit status for %s: %w", g.sha, err)
	}
	return nil
}

// HopeLost implements buildset.Watcher: it reports "failure" as soon as
// overall success becomes impossible, rather than waiting for every builder
// to drain, so a PR's status check goes red as early as the spec allows.
func (g *GitHub) HopeLost() {
	if err := g.setStatus(context.Background(), "failure", "a builder failed"); err != nil {
		fallbackLog(err)
	}
}

// Success implements buildset.Watcher. It is a no-op when result is FAILURE,
// since HopeLost already reported that state; a non-FAILURE result reports
// the corresponding GitHub state.
func (g *GitHub) Success(result buildset.Result) {
	if result == buildset.FAILURE {
		return
	}
	state := githubState(result)
	if err := g.setStatus(context.Background(), state, result.String()); err != nil {
		fallbackLog(err)
	}
}

// Finished implements buildset.Watcher: it reports the final result,
// overwriting whatever state Success or HopeLost already set.
func (g *GitHub) Finished(result buildset.Result) {
	if err := g.setStatus(context.Background(), githubState(result), "build set finished: "+result.String()); err != nil {
		fallbackLog(err)
	}
}

func githubState(result buildset.Result) string {
	switch result {
	case buildset.SUCCESS, buildset.WARNINGS, buildset.SKIPPED:
		return "success"
	default:
		return "failure"
	}
}

// fallbackLog logs err with log.Println. It is a package var so it can be
// replaced, and so GitHub's exported methods never need an error return to
// satisfy buildset.Watcher's signature.
var fallbackLog = func(err error) {
	log.Println("watch:", err)
}

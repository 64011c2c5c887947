package bitbucket_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/bitbucket-mcp/internal/adapter/bitbucket"
	"github.com/bkyoung/bitbucket-mcp/internal/adapter/httpx"
	"github.com/bkyoung/bitbucket-mcp/internal/domain"
)

func newTestClient(serverURL string) *bitbucket.Client {
	client := bitbucket.NewClient(bitbucket.ClientConfig{
		Username:    "alice",
		AppPassword: "app-password",
		Workspace:   "acme",
		RepoSlug:    "widgets",
	})
	client.SetBaseURL(serverURL)
	return client
}

const pullRequestFixture = `{
	"id": 42,
	"title": "Add login throttling",
	"description": "Slow down brute force attempts",
	"state": "OPEN",
	"author": {"display_name": "Alice Example"},
	"created_on": "2024-03-01T10:30:00.000000+00:00",
	"updated_on": "2024-03-02T09:00:00.000000+00:00",
	"source": {"branch": {"name": "feature/throttle"}},
	"destination": {"branch": {"name": "main"}},
	"links": {"html": {"href": "https://bitbucket.org/acme/widgets/pull-requests/42"}},
	"participants": [
		{"user": {"display_name": "Bob Reviewer"}, "role": "REVIEWER", "approved": true},
		{"user": {"display_name": "Carol Reviewer"}, "role": "REVIEWER", "approved": false},
		{"user": {"display_name": "Dave Bystander"}, "role": "PARTICIPANT", "approved": false}
	]
}`

func TestNewClient(t *testing.T) {
	client := bitbucket.NewClient(bitbucket.ClientConfig{})

	require.NotNil(t, client)
}

func TestClient_GetPullRequest_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/2.0/repositories/acme/widgets/pullrequests/42", r.URL.Path)

		wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:app-password"))
		assert.Equal(t, wantAuth, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pullRequestFixture))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	pr, err := client.GetPullRequest(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, 42, pr.ID)
	assert.Equal(t, "Add login throttling", pr.Title)
	assert.Equal(t, domain.PullRequestOpen, pr.State)
	assert.Equal(t, "Alice Example", pr.Author)
	assert.Equal(t, "feature/throttle", pr.SourceBranch)
	assert.Equal(t, "main", pr.DestinationBranch)
	assert.Equal(t, "https://bitbucket.org/acme/widgets/pull-requests/42", pr.URL)
	assert.Equal(t, 2024, pr.CreatedOn.Year())

	// PARTICIPANT role is not a reviewer
	require.Len(t, pr.Reviewers, 2)
	assert.Equal(t, "Bob Reviewer", pr.Reviewers[0].DisplayName)
	assert.True(t, pr.Reviewers[0].Approved)
	assert.False(t, pr.Reviewers[1].Approved)
}

func TestClient_GetPullRequest_NoParticipants_EmptyReviewers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": 7,
			"title": "No reviewers yet",
			"state": "OPEN",
			"source": {"branch": {"name": "fix/typo"}},
			"destination": {"branch": {"name": "main"}}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	pr, err := client.GetPullRequest(context.Background(), 7)
	require.NoError(t, err)

	require.NotNil(t, pr.Reviewers)
	assert.Empty(t, pr.Reviewers)
}

func TestClient_GetPullRequest_MissingBranch_Fails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 9, "title": "Malformed", "state": "OPEN"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetPullRequest(context.Background(), 9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing source branch")
}

func TestClient_GetPullRequest_NotFound(t *testing.T) {
	body := `{"type": "error", "error": {"message": "Resource not found"}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetPullRequest(context.Background(), 999)
	require.Error(t, err)

	var typed *httpx.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, httpx.ErrTypeNotFound, typed.Type)
	assert.Equal(t, 404, typed.StatusCode)
	assert.Equal(t, body, typed.Body)
	assert.Contains(t, typed.Message, "Resource not found")
}

func TestClient_GetPullRequest_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"message": "Access denied"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetPullRequest(context.Background(), 1)

	var typed *httpx.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, httpx.ErrTypeAuthentication, typed.Type)
}

func TestClient_ListPullRequests_QueryParameters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2.0/repositories/acme/widgets/pullrequests", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "10", q.Get("pagelen"))
		assert.Equal(t, "MERGED", q.Get("state"))
		assert.Equal(t, `destination.branch.name = "main"`, q.Get("q"))

		_, _ = w.Write([]byte(`{"size": 0, "page": 2, "pagelen": 10, "values": []}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	page, err := client.ListPullRequests(context.Background(), bitbucket.ListPullRequestsOptions{
		State:        "MERGED",
		TargetBranch: "main",
		Page:         bitbucket.PageParams{Page: 2, PageLen: 10},
	})
	require.NoError(t, err)
	assert.Empty(t, page.Values)
	assert.Equal(t, 2, page.Page)
}

func TestClient_ListPullRequests_SourceBranchFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `source.branch.name = "feature/throttle"`, r.URL.Query().Get("q"))

		_, _ = w.Write([]byte(`{"size": 1, "page": 1, "pagelen": 10, "values": [` + pullRequestFixture + `]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	page, err := client.ListPullRequests(context.Background(), bitbucket.ListPullRequestsOptions{
		SourceBranch: "feature/throttle",
	})
	require.NoError(t, err)
	require.Len(t, page.Values, 1)
	assert.Equal(t, 42, page.Values[0].ID)
}

func TestClient_ListPullRequests_ContinuationTokensPassThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"size": 30, "page": 2, "pagelen": 10,
			"next": "https://api.bitbucket.org/2.0/repositories/acme/widgets/pullrequests?page=3",
			"previous": "https://api.bitbucket.org/2.0/repositories/acme/widgets/pullrequests?page=1",
			"values": []
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	page, err := client.ListPullRequests(context.Background(), bitbucket.ListPullRequestsOptions{})
	require.NoError(t, err)

	assert.Equal(t, 30, page.Size)
	assert.Contains(t, page.Next, "page=3")
	assert.Contains(t, page.Previous, "page=1")
}

func TestClient_ListCommits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2.0/repositories/acme/widgets/pullrequests/42/commits", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("pagelen"))

		_, _ = w.Write([]byte(`{"values": [
			{"hash": "abc123", "message": "Fix login bug #42", "date": "2024-03-01T10:30:00+00:00",
			 "author": {"raw": "Alice <alice@example.com>", "user": {"display_name": "Alice Example"}}},
			{"hash": "def456", "message": "Tidy up",
			 "author": {"raw": "Bob <bob@example.com>"}}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	commits, err := client.ListCommits(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, commits, 2)

	assert.Equal(t, "abc123", commits[0].Hash)
	assert.Equal(t, "Fix login bug #42", commits[0].Message)
	assert.Equal(t, "Alice Example", commits[0].Author)
	assert.Nil(t, commits[0].Diff)

	// falls back to the raw author line when no account is linked
	assert.Equal(t, "Bob <bob@example.com>", commits[1].Author)
}

func TestClient_GetPullRequestDiff_RawText(t *testing.T) {
	const diff = "diff --git a/main.go b/main.go\n+added line\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2.0/repositories/acme/widgets/pullrequests/42/diff", r.URL.Path)
		_, _ = w.Write([]byte(diff))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	got, err := client.GetPullRequestDiff(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, diff, got)
}

func TestClient_GetCommitDiff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2.0/repositories/acme/widgets/diff/abc123", r.URL.Path)
		_, _ = w.Write([]byte("diff text"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	got, err := client.GetCommitDiff(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "diff text", got)
}

func TestClient_ListComments_NormalizesShapes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2.0/repositories/acme/widgets/pullrequests/42/comments", r.URL.Path)

		_, _ = w.Write([]byte(`{"size": 3, "page": 1, "pagelen": 10, "values": [
			{"id": 1, "content": {"raw": "Looks good overall"},
			 "user": {"display_name": "Bob Reviewer"},
			 "created_on": "2024-03-01T12:00:00+00:00",
			 "links": {"html": {"href": "https://bitbucket.org/acme/widgets/pull-requests/42#comment-1"}}},
			{"id": 2, "content": {"raw": "Off-by-one here"},
			 "user": {"display_name": "Carol Reviewer"},
			 "inline": {"path": "auth/login.go", "to": 57}},
			{"id": 3, "content": {"raw": ""}, "deleted": true}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	page, err := client.ListComments(context.Background(), 42, bitbucket.DefaultPageParams())
	require.NoError(t, err)
	require.Len(t, page.Values, 2, "deleted comments are skipped")

	general := page.Values[0]
	assert.Equal(t, domain.CommentGeneral, general.Type)
	assert.Nil(t, general.Inline)
	assert.Equal(t, "Looks good overall", general.Content)

	inline := page.Values[1]
	assert.Equal(t, domain.CommentInline, inline.Type)
	require.NotNil(t, inline.Inline)
	assert.Equal(t, "auth/login.go", inline.Inline.Path)
	assert.Equal(t, 57, inline.Inline.ToLine)
}

func TestClient_AddComment_General(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/2.0/repositories/acme/widgets/pullrequests/42/comments", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		content := body["content"].(map[string]any)
		assert.Equal(t, "hello", content["raw"])
		_, hasInline := body["inline"]
		assert.False(t, hasInline, "general comments must not carry an inline anchor")

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 10, "content": {"raw": "hello"},
			"user": {"display_name": "Alice Example"},
			"created_on": "2024-03-01T12:00:00+00:00"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	comment, err := client.AddComment(context.Background(), 42, "hello", nil)
	require.NoError(t, err)

	assert.Equal(t, 10, comment.ID)
	assert.Equal(t, "hello", comment.Content)
	assert.Equal(t, "Alice Example", comment.Author)
	assert.Equal(t, domain.CommentGeneral, comment.Type)
	assert.Nil(t, comment.Inline)
}

func TestClient_AddComment_Inline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		inline := body["inline"].(map[string]any)
		assert.Equal(t, "auth/login.go", inline["path"])
		assert.Equal(t, float64(57), inline["to"])
		_, hasFrom := inline["from"]
		assert.False(t, hasFrom, "unset from line is omitted")

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 11, "content": {"raw": "Off-by-one"},
			"user": {"display_name": "Alice Example"},
			"inline": {"path": "auth/login.go", "to": 57}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	comment, err := client.AddComment(context.Background(), 42, "Off-by-one",
		&domain.InlineAnchor{Path: "auth/login.go", ToLine: 57})
	require.NoError(t, err)

	assert.Equal(t, domain.CommentInline, comment.Type)
	require.NotNil(t, comment.Inline)
	assert.Equal(t, "auth/login.go", comment.Inline.Path)
	assert.Equal(t, 57, comment.Inline.ToLine)
}

func TestClient_AddComment_UpstreamErrorCarriesBody(t *testing.T) {
	body := `{"type": "error", "error": {"message": "You do not have permission to comment"}}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.AddComment(context.Background(), 42, "hello", nil)
	require.Error(t, err)

	var typed *httpx.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, body, typed.Body)
	assert.Contains(t, typed.Message, "permission")
}

func TestClient_ListPipelines_StateDerivation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2.0/repositories/acme/widgets/pipelines/", r.URL.Path)
		assert.Equal(t, "-created_on", r.URL.Query().Get("sort"))
		assert.Equal(t, "main", r.URL.Query().Get("target.branch"))

		_, _ = w.Write([]byte(`{"size": 3, "page": 1, "pagelen": 10, "values": [
			{"uuid": "{p1}", "build_number": 101,
			 "state": {"name": "COMPLETED", "result": {"name": "SUCCESSFUL"}},
			 "created_on": "2024-03-01T10:00:00+00:00",
			 "completed_on": "2024-03-01T10:05:00+00:00",
			 "duration_in_seconds": 300,
			 "target": {"ref_name": "main", "commit": {"hash": "abc123", "message": "Fix login bug #42"}},
			 "trigger": {"name": "PUSH"}},
			{"uuid": "{p2}", "build_number": 102,
			 "state": {"name": "IN_PROGRESS"},
			 "created_on": "2024-03-01T11:00:00+00:00",
			 "target": {"ref_name": "main", "commit": {"hash": "def456"}}},
			{"uuid": "{p3}", "build_number": 103,
			 "state": {"name": "COMPLETED", "result": {"name": "FAILED"}},
			 "created_on": "2024-03-01T12:00:00+00:00",
			 "target": {"ref_name": "main"}}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	page, err := client.ListPipelines(context.Background(), bitbucket.ListPipelinesOptions{
		TargetBranch: "main",
	})
	require.NoError(t, err)
	require.Len(t, page.Values, 3)

	first := page.Values[0]
	assert.Equal(t, domain.PipelineSuccessful, first.State)
	assert.Equal(t, 101, first.BuildNumber)
	assert.Equal(t, 300, first.DurationSeconds)
	assert.Equal(t, "main", first.Branch)
	assert.Equal(t, "abc123", first.CommitHash)
	assert.Equal(t, "Fix login bug #42", first.CommitMessage)
	require.NotNil(t, first.CompletedOn)

	second := page.Values[1]
	assert.Equal(t, domain.PipelineInProgress, second.State)
	assert.Empty(t, second.CommitMessage)
	assert.Nil(t, second.CompletedOn)

	assert.Equal(t, domain.PipelineFailed, page.Values[2].State)
}

func TestClient_ConnectionRefused_IsNotATimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetPullRequest(context.Background(), 1)
	require.Error(t, err)

	var typed *httpx.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, httpx.ErrTypeUnknown, typed.Type)
	assert.NotEqual(t, httpx.ErrTypeTimeout, typed.Type)
}

func TestClient_SlowServer_IsATimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	client := bitbucket.NewClient(bitbucket.ClientConfig{
		Username:    "alice",
		AppPassword: "app-password",
		Workspace:   "acme",
		RepoSlug:    "widgets",
		Timeout:     20 * time.Millisecond,
	})
	client.SetBaseURL(server.URL)

	_, err := client.GetPullRequest(context.Background(), 1)
	require.Error(t, err)

	var typed *httpx.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, httpx.ErrTypeTimeout, typed.Type)
}

func TestClient_ContextDeadline_IsATimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetPullRequest(ctx, 1)
	require.Error(t, err)

	var typed *httpx.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, httpx.ErrTypeTimeout, typed.Type)
}

package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	gosync "sync"
	"testing"
	"time"

	"github.com/nhle/notification-triage/internal/source/github"
)

// FixtureTime is the updated_at of the oldest fixture thread. Thread i is
// updated i minutes later.
var FixtureTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// publicAPI is the host embedded in fixture URLs. The client under test must
// rewrite it onto the fake server.
const publicAPI = "https://api.github.com"

// FakeGitHub is an in-process stand-in for the GitHub notifications API.
// It ignores the since filter and always serves the whole fixture.
type FakeGitHub struct {
	Server   *httptest.Server
	PageSize int

	mu           gosync.Mutex
	threads      []github.Notification
	notModified  bool
	pollInterval int
	mutations    []string
	listCalls    int
}

// NewFakeGitHub starts a fake API serving count generated threads, 20 per
// page. The server is closed when the test completes.
func NewFakeGitHub(t *testing.T, count int) *FakeGitHub {
	t.Helper()

	f := &FakeGitHub{
		PageSize:     20,
		threads:      FixtureThreads(count),
		pollInterval: 60,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/notifications", f.handleNotifications)
	mux.HandleFunc("/notifications/threads/{id}", f.handleThread)
	mux.HandleFunc("GET /repos/{owner}/{repo}/pulls/{num}", f.handlePull)
	mux.HandleFunc("GET /repos/{owner}/{repo}/issues/{num}", f.handleIssue)
	mux.HandleFunc("GET /repos/{owner}/{repo}/releases/{num}", f.handleRelease)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake API.
func (f *FakeGitHub) URL() string {
	return f.Server.URL
}

// SetNotModified makes conditional probes answer 304.
func (f *FakeGitHub) SetNotModified(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notModified = v
}

// Mutations returns the "METHOD id" of every mark-read/mark-done call.
func (f *FakeGitHub) Mutations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.mutations...)
}

// ListCalls returns how many notification pages were served.
func (f *FakeGitHub) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

// FixtureThreads generates count threads cycling through pull requests,
// issues and releases. Every tenth thread is a discussion, which has no
// detail object.
func FixtureThreads(count int) []github.Notification {
	threads := make([]github.Notification, 0, count)
	for i := 0; i < count; i++ {
		repo := "torvalds/linux"
		if i%2 == 1 {
			repo = "rust-lang/rust"
		}

		subject := github.Subject{Title: fmt.Sprintf("thread %d", i)}
		switch {
		case i%10 == 9:
			subject.Type = "Discussion"
		case i%3 == 0:
			subject.Type = "PullRequest"
			subject.URL = fmt.Sprintf("%s/repos/%s/pulls/%d", publicAPI, repo, i)
		case i%3 == 1:
			subject.Type = "Issue"
			subject.URL = fmt.Sprintf("%s/repos/%s/issues/%d", publicAPI, repo, i)
		default:
			subject.Type = "Release"
			subject.URL = fmt.Sprintf("%s/repos/%s/releases/%d", publicAPI, repo, i)
		}

		threads = append(threads, github.Notification{
			ID:         strconv.Itoa(1000 + i),
			Unread:     i%4 != 0,
			Reason:     "participating",
			UpdatedAt:  FixtureTime.Add(time.Duration(i) * time.Minute),
			Subject:    subject,
			Repository: github.Repository{FullName: repo},
		})
	}
	return threads
}

func (f *FakeGitHub) handleNotifications(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Poll-Interval", strconv.Itoa(f.pollInterval))
	w.Header().Set("X-RateLimit-Remaining", "4999")
	w.Header().Set("X-RateLimit-Used", "1")

	switch r.Method {
	case http.MethodHead:
		if f.notModified && r.Header.Get("If-Modified-Since") != "" {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		f.listCalls++
		f.servePage(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// servePage writes one page of threads. The first page carries the Link
// header announcing the remaining ones.
func (f *FakeGitHub) servePage(w http.ResponseWriter, r *http.Request) {
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			http.Error(w, "bad page", http.StatusBadRequest)
			return
		}
		page = n
	}

	last := (len(f.threads) + f.PageSize - 1) / f.PageSize
	if page == 1 && last > 1 {
		next := *r.URL
		q := next.Query()
		q.Set("page", "2")
		next.RawQuery = q.Encode()
		end := *r.URL
		q.Set("page", strconv.Itoa(last))
		end.RawQuery = q.Encode()
		w.Header().Set("Link", fmt.Sprintf(`<%s%s>; rel="next", <%s%s>; rel="last"`,
			f.Server.URL, next.RequestURI(), f.Server.URL, end.RequestURI()))
	}

	start := min((page-1)*f.PageSize, len(f.threads))
	stop := min(start+f.PageSize, len(f.threads))
	writeJSON(w, f.threads[start:stop])
}

func (f *FakeGitHub) handleThread(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.mutations = append(f.mutations, r.Method+" "+r.PathValue("id"))
	f.mu.Unlock()

	switch r.Method {
	case http.MethodPatch:
		w.WriteHeader(http.StatusResetContent)
	case http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handlePull serves a pull request. Numbers divisible by 6 are merged,
// those leaving 3 modulo 6 are drafts.
func (f *FakeGitHub) handlePull(w http.ResponseWriter, r *http.Request) {
	num, _ := strconv.Atoi(r.PathValue("num"))
	pr := github.PullRequest{
		URL:     publicAPI + r.URL.Path,
		HTMLURL: fmt.Sprintf("https://github.com/%s/%s/pull/%d", r.PathValue("owner"), r.PathValue("repo"), num),
		State:   "open",
		Draft:   num%6 == 3,
		User:    github.User{Login: "JohnDoe"},
	}
	if num%6 == 0 {
		pr.State = "closed"
		pr.Merged = true
	}
	writeJSON(w, pr)
}

func (f *FakeGitHub) handleIssue(w http.ResponseWriter, r *http.Request) {
	num, _ := strconv.Atoi(r.PathValue("num"))
	state := "open"
	if num%2 == 0 {
		state = "closed"
	}
	writeJSON(w, github.Issue{
		URL:     publicAPI + r.URL.Path,
		HTMLURL: fmt.Sprintf("https://github.com/%s/%s/issues/%d", r.PathValue("owner"), r.PathValue("repo"), num),
		State:   state,
		User:    github.User{Login: "alice"},
	})
}

func (f *FakeGitHub) handleRelease(w http.ResponseWriter, r *http.Request) {
	num, _ := strconv.Atoi(r.PathValue("num"))
	writeJSON(w, github.Release{
		URL:     publicAPI + r.URL.Path,
		HTMLURL: fmt.Sprintf("https://github.com/%s/%s/releases/tag/v%d", r.PathValue("owner"), r.PathValue("repo"), num),
		Author:  github.User{Login: "release-bot"},
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

package sync

import (
	"errors"
	"fmt"

	"github.com/nhle/notification-triage/internal/model"
	"github.com/nhle/notification-triage/internal/source/github"
)

// ErrMissingDetail is returned when a notification links to a detail object
// that the enrichment phase did not return.
var ErrMissingDetail = errors.New("missing detail object")

// pullRequestState derives the state of a pull request.
func pullRequestState(pr github.PullRequest) model.State {
	switch {
	case pr.State == "closed" && pr.Merged:
		return model.StateResolved
	case pr.State == "closed":
		return model.StateCanceled
	case pr.Draft:
		return model.StateDraft
	default:
		return model.StateOpen
	}
}

// issueState derives the state of an issue.
func issueState(is github.Issue) model.State {
	if is.State == "open" {
		return model.StateOpen
	}
	return model.StateResolved
}

// assemble builds the local record of a thread from the thread itself and
// its detail object. It does not set Score.
func assemble(
	n github.Notification,
	key string,
	details *github.Details,
) (model.Notification, error) {
	out := model.Notification{
		ID:        n.ID,
		Title:     n.Subject.Title,
		Repo:      n.Repository.FullName,
		Reason:    n.Reason,
		Kind:      model.ParseKind(n.Subject.Type),
		State:     model.StateCanceled,
		Unread:    n.Unread,
		UpdatedAt: n.UpdatedAt.UTC(),
	}

	if n.Subject.URL == "" {
		return out, nil
	}

	switch out.Kind {
	case model.KindPullRequest:
		pr, ok := details.PullRequests[key]
		if !ok {
			return out, missingDetail(n)
		}
		out.URL = pr.HTMLURL
		out.Author = pr.User.Login
		out.State = pullRequestState(pr)
	case model.KindIssue:
		is, ok := details.Issues[key]
		if !ok {
			return out, missingDetail(n)
		}
		out.URL = is.HTMLURL
		out.Author = is.User.Login
		out.State = issueState(is)
	case model.KindRelease:
		rel, ok := details.Releases[key]
		if !ok {
			return out, missingDetail(n)
		}
		out.URL = rel.HTMLURL
		out.Author = rel.Author.Login
		out.State = model.StateOpen
	case model.KindUnknown:
	}

	return out, nil
}

func missingDetail(n github.Notification) error {
	return fmt.Errorf("%w: %s %s of thread %s",
		ErrMissingDetail, n.Subject.Type, n.Subject.URL, n.ID)
}

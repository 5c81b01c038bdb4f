// Package filter parses the search query typed into the notification list.
//
// A query is a whitespace separated list of words. Words prefixed with
// author:, repo:, state: or title: narrow the matching field; every other
// word is free text matched against the title, author and repo of a
// notification.
package filter

import (
	"strings"

	"github.com/nhle/notification-triage/internal/model"
)

// Query is a parsed search query. Zero-valued fields do not constrain.
type Query struct {
	Author string
	Repo   string
	Title  string
	State  model.State
	Text   string
}

// Parse splits input into a Query. A state: value that is not a known state
// is ignored. When a keyword appears twice the last one wins, except title:
// whose values accumulate.
func Parse(input string) Query {
	var (
		q          Query
		titleParts []string
		textParts  []string
	)

	for _, word := range strings.Fields(input) {
		switch {
		case strings.HasPrefix(word, "author:"):
			q.Author = strings.TrimPrefix(word, "author:")
		case strings.HasPrefix(word, "repo:"):
			q.Repo = strings.TrimPrefix(word, "repo:")
		case strings.HasPrefix(word, "state:"):
			if st, ok := model.ParseState(strings.TrimPrefix(word, "state:")); ok {
				q.State = st
			} else {
				q.State = ""
			}
		case strings.HasPrefix(word, "title:"):
			titleParts = append(titleParts, strings.TrimPrefix(word, "title:"))
		default:
			textParts = append(textParts, word)
		}
	}

	q.Title = strings.Join(titleParts, " ")
	q.Text = strings.Join(textParts, " ")
	return q
}

// IsZero reports whether q matches every notification.
func (q Query) IsZero() bool {
	return q == Query{}
}

package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/notification-triage/internal/model"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Query
	}{
		{
			name:  "empty",
			input: "   ",
			want:  Query{},
		},
		{
			name:  "title keyword and author",
			input: "title:Rust Programming author:JohnDoe",
			want:  Query{Title: "Rust", Text: "Programming", Author: "JohnDoe"},
		},
		{
			name:  "author does not take spaces",
			input: "author:John Doe",
			want:  Query{Author: "John", Text: "Doe"},
		},
		{
			name:  "free text with repo",
			input: "Rust Programming author:JohnDoe repo:LedgerHQ/ledger-live",
			want: Query{
				Text:   "Rust Programming",
				Author: "JohnDoe",
				Repo:   "LedgerHQ/ledger-live",
			},
		},
		{
			name:  "state is case insensitive",
			input: "state:Open",
			want:  Query{State: model.StateOpen},
		},
		{
			name:  "closed is resolved",
			input: "state:closed",
			want:  Query{State: model.StateResolved},
		},
		{
			name:  "invalid state ignored",
			input: "state:merged fix",
			want:  Query{Text: "fix"},
		},
		{
			name:  "title keywords accumulate",
			input: "title:foo title:bar",
			want:  Query{Title: "foo bar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryIsZero(t *testing.T) {
	assert.True(t, Parse("").IsZero())
	assert.True(t, Parse("state:bogus").IsZero())
	assert.False(t, Parse("linux").IsZero())
}

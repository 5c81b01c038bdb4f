package github

import (
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageURLsBasic(t *testing.T) {
	header := `<https://api.github.com/notifications?page=2>; rel="next", ` +
		`<https://api.github.com/notifications?page=4>; rel="last"`

	got, err := pageURLs(header)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://api.github.com/notifications?page=2",
		"https://api.github.com/notifications?page=3",
		"https://api.github.com/notifications?page=4",
	}, got)
}

func TestPageURLsNextIsLast(t *testing.T) {
	header := `<https://api.github.com/notifications?page=2>; rel="next", ` +
		`<https://api.github.com/notifications?page=2>; rel="last"`

	got, err := pageURLs(header)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://api.github.com/notifications?page=2"}, got)
}

func TestPageURLsInvalid(t *testing.T) {
	for _, header := range []string{
		"not a link",
		`<https://api.github.com/notifications?page=2>; rel="next"`,
		`<https://api.github.com/notifications?page=x>; rel="next", <https://api.github.com/notifications?page=3>; rel="last"`,
		`<https://api.github.com/notifications?page=5>; rel="next", <https://api.github.com/notifications?page=3>; rel="last"`,
	} {
		t.Run(header, func(t *testing.T) {
			got, err := pageURLs(header)
			var linkErr *LinkParseError
			assert.ErrorAs(t, err, &linkErr)
			assert.Nil(t, got)
		})
	}
}

func TestPageURLsPreservesQuery(t *testing.T) {
	header := `<https://api.github.com/notifications?all=true&since=2024-03-01T12%3A00%3A00Z&page=2>; rel="next", ` +
		`<https://api.github.com/notifications?all=true&since=2024-03-01T12%3A00%3A00Z&page=3>; rel="last"`

	got, err := pageURLs(header)
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i, raw := range got {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "/notifications", u.Path)
		assert.Equal(t, "true", u.Query().Get("all"))
		assert.Equal(t, "2024-03-01T12:00:00Z", u.Query().Get("since"))
		assert.Equal(t, []string{[]string{"2", "3"}[i]}, u.Query()["page"])
	}
}

func TestPageURLsIgnoresOtherRelations(t *testing.T) {
	header := `<https://x/n?page=1>; rel="prev", <https://x/n?page=3>; rel="next", ` +
		`<https://x/n?page=3>; rel="last", <https://x/n?page=1>; rel="first"`

	got, err := pageURLs(header)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x/n?page=3"}, got)
}

func TestPageURLsCommaInURL(t *testing.T) {
	header := `<https://api.github.com/notifications?since=a,b&page=2>; rel="next", ` +
		`<https://api.github.com/notifications?since=a,b&page=3>; rel="last"`

	got, err := pageURLs(header)
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i, raw := range got {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "a,b", u.Query().Get("since"))
		assert.Equal(t, strconv.Itoa(i+2), u.Query().Get("page"))
	}
}

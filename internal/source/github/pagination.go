package github

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// LinkParseError is returned when a Link header cannot be turned into a
// list of page URLs.
type LinkParseError struct {
	Header string
	Reason string
}

func (e *LinkParseError) Error() string {
	return fmt.Sprintf("parsing link header %q: %s", e.Header, e.Reason)
}

// parseLinks parses an RFC 8288 Link header into a rel -> URL map.
func parseLinks(header string) (map[string]string, error) {
	links := make(map[string]string)

	for _, part := range splitLinks(header) {
		target, params, ok := strings.Cut(strings.TrimSpace(part), ";")
		target = strings.TrimSpace(target)
		if !ok || !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			return nil, &LinkParseError{Header: header, Reason: "expected <url>; rel=\"...\""}
		}

		rel := ""
		for _, p := range strings.Split(params, ";") {
			if v, found := strings.CutPrefix(strings.TrimSpace(p), "rel="); found {
				rel = strings.Trim(v, `"`)
			}
		}
		if rel == "" {
			return nil, &LinkParseError{Header: header, Reason: "link without rel"}
		}

		links[rel] = strings.TrimSuffix(strings.TrimPrefix(target, "<"), ">")
	}

	return links, nil
}

// splitLinks splits header on the commas between link values. Commas inside
// a <url> belong to the URL.
func splitLinks(header string) []string {
	var (
		parts []string
		start int
		inURL bool
	)
	for i, r := range header {
		switch r {
		case '<':
			inURL = true
		case '>':
			inURL = false
		case ',':
			if !inURL {
				parts = append(parts, header[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, header[start:])
}

// pageNumber extracts the page query parameter of u.
func pageNumber(u *url.URL) (int, error) {
	page, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil {
		return 0, fmt.Errorf("page parameter of %s: %w", u, err)
	}
	return page, nil
}

// pageURLs expands the next and last links of header into the URL of every
// page from next to last inclusive. Each URL is a copy of the next link with
// only its page parameter replaced.
func pageURLs(header string) ([]string, error) {
	links, err := parseLinks(header)
	if err != nil {
		return nil, err
	}

	nextRaw, hasNext := links["next"]
	lastRaw, hasLast := links["last"]
	if !hasNext || !hasLast {
		return nil, &LinkParseError{Header: header, Reason: "missing next or last relation"}
	}

	next, err := url.Parse(nextRaw)
	if err != nil {
		return nil, &LinkParseError{Header: header, Reason: err.Error()}
	}
	last, err := url.Parse(lastRaw)
	if err != nil {
		return nil, &LinkParseError{Header: header, Reason: err.Error()}
	}

	first, err := pageNumber(next)
	if err != nil {
		return nil, &LinkParseError{Header: header, Reason: err.Error()}
	}
	final, err := pageNumber(last)
	if err != nil {
		return nil, &LinkParseError{Header: header, Reason: err.Error()}
	}
	if final < first {
		return nil, &LinkParseError{Header: header, Reason: "last page before next page"}
	}

	urls := make([]string, 0, final-first+1)
	for page := first; page <= final; page++ {
		u := *next
		q := u.Query()
		q.Set("page", strconv.Itoa(page))
		u.RawQuery = q.Encode()
		urls = append(urls, u.String())
	}

	return urls, nil
}

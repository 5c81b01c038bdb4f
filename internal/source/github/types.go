package github

import "time"

// Notification is a thread of the notifications API.
type Notification struct {
	ID         string     `json:"id"`
	Unread     bool       `json:"unread"`
	Reason     string     `json:"reason"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Subject    Subject    `json:"subject"`
	Repository Repository `json:"repository"`
}

// Subject is the object a notification thread is about.
type Subject struct {
	Title string `json:"title"`

	// URL is the API URL of the pull request, issue or release. It is
	// empty for subjects without a detail object.
	URL  string `json:"url"`
	Type string `json:"type"`
}

// Repository is the repository a thread belongs to.
type Repository struct {
	FullName string `json:"full_name"`
}

// User is a GitHub account reference.
type User struct {
	Login string `json:"login"`
}

// PullRequest holds the fields of a pull request used to derive state.
type PullRequest struct {
	URL     string `json:"url"`
	HTMLURL string `json:"html_url"`
	State   string `json:"state"`
	Draft   bool   `json:"draft"`
	Merged  bool   `json:"merged"`
	User    User   `json:"user"`
}

// Issue holds the fields of an issue used to derive state.
type Issue struct {
	URL     string `json:"url"`
	HTMLURL string `json:"html_url"`
	State   string `json:"state"`
	User    User   `json:"user"`
}

// Release holds the fields of a release used for the link and author.
type Release struct {
	URL     string `json:"url"`
	HTMLURL string `json:"html_url"`
	Author  User   `json:"author"`
}

// Details are the detail objects of a batch of notifications, keyed by
// their API URL on the client's base URL.
type Details struct {
	PullRequests map[string]PullRequest
	Issues       map[string]Issue
	Releases     map[string]Release
}

package domain

// PullRequestSelector identifies a pull request either by its Bitbucket id
// or by its source branch name. The zero selector identifies nothing and
// must be rejected by callers before any network traffic.
type PullRequestSelector struct {
	id     int
	branch string
}

// SelectByID selects a pull request by its numeric Bitbucket id.
func SelectByID(id int) PullRequestSelector {
	return PullRequestSelector{id: id}
}

// SelectByBranch selects the pull request whose source branch has the
// given name.
func SelectByBranch(name string) PullRequestSelector {
	return PullRequestSelector{branch: name}
}

// ByID returns the id selector if one was set.
func (s PullRequestSelector) ByID() (int, bool) {
	return s.id, s.id > 0
}

// ByBranch returns the branch selector if one was set and no id takes
// precedence over it.
func (s PullRequestSelector) ByBranch() (string, bool) {
	if s.id > 0 {
		return "", false
	}
	return s.branch, s.branch != ""
}

// IsZero reports whether neither selector was supplied.
func (s PullRequestSelector) IsZero() bool {
	return s.id <= 0 && s.branch == ""
}

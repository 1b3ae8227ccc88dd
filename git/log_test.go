package git

import (
	"testing"

	"github.com/grovetools/gcpd/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestParseCherry(t *testing.T) {
	testCases := []struct {
		name     string
		output   string
		expected []models.Commit
	}{
		{
			name:     "empty output",
			output:   "",
			expected: []models.Commit{},
		},
		{
			name: "keeps unapplied commits in order",
			output: "+ 1111111111111111111111111111111111111111 first change\n" +
				"+ 2222222222222222222222222222222222222222 second change\n",
			expected: []models.Commit{
				{Hash: "1111111111111111111111111111111111111111", Message: "first change"},
				{Hash: "2222222222222222222222222222222222222222", Message: "second change"},
			},
		},
		{
			name: "drops commits already in upstream",
			output: "- aaaa already picked\n" +
				"+ bbbb still pending\n",
			expected: []models.Commit{{Hash: "bbbb", Message: "still pending"}},
		},
		{
			name:     "drops blank and malformed lines",
			output:   "\n+\nnot a cherry line\n+ cccc   spaced   message \n\n",
			expected: []models.Commit{{Hash: "cccc", Message: "spaced   message "}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseCherry(tc.output))
		})
	}
}

func TestParseLog(t *testing.T) {
	out := "abc\x1fsubject one\n\ndef\x1fsubject | with pipes\nbroken line\n"
	assert.Equal(t, []models.Commit{
		{Hash: "abc", Message: "subject one"},
		{Hash: "def", Message: "subject | with pipes"},
	}, parseLog(out))
}

func TestParseRemotes(t *testing.T) {
	out := "origin\tgit@example.com:team/app.git (fetch)\n" +
		"origin\tgit@example.com:team/app.git (push)\n" +
		"fork\thttps://example.com/me/app.git (fetch)\n" +
		"fork\tno_push (push)\n"

	remotes := parseRemotes(out)
	assert.Equal(t, []Remote{
		{Name: "origin", FetchURL: "git@example.com:team/app.git", PushURL: "git@example.com:team/app.git"},
		{Name: "fork", FetchURL: "https://example.com/me/app.git", PushURL: "no_push"},
	}, remotes)

	found, err := FindRemote(remotes, "fork")
	assert.NoError(t, err)
	assert.Equal(t, "fork", found.Name)

	_, err = FindRemote(remotes, "upstream")
	assert.EqualError(t, err, "Cannot find remote upstream")
}

func TestRemoteBranchNames(t *testing.T) {
	refs := []string{
		"refs/heads/master",
		"refs/remotes/origin/HEAD",
		"refs/remotes/origin/master",
		"refs/remotes/origin/feature/login",
		"refs/remotes/fork/experiment",
		"refs/remotes/origin-old/stale",
	}
	assert.Equal(t, []string{"master", "feature/login"}, RemoteBranchNames(refs, "origin"))
	assert.Equal(t, []string{"experiment"}, RemoteBranchNames(refs, "fork"))
	assert.Empty(t, RemoteBranchNames(refs, "missing"))
}

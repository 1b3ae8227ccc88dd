package git

import (
	"bufio"
	"context"
	"strings"

	"github.com/grovetools/gcpd/errors"
)

// Remote is a configured remote with its fetch and push URLs.
type Remote struct {
	Name     string `json:"name"`
	FetchURL string `json:"fetch_url"`
	PushURL  string `json:"push_url"`
}

// GetRemotes lists the repository's remotes.
func (c *Client) GetRemotes(ctx context.Context) ([]Remote, error) {
	out, err := c.run(ctx, "remote", "-v")
	if err != nil {
		return nil, err
	}
	return parseRemotes(out), nil
}

// parseRemotes parses `git remote -v` output, preserving first-seen order.
func parseRemotes(output string) []Remote {
	var remotes []Remote
	index := make(map[string]int)

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		name, url, kind := fields[0], fields[1], fields[2]

		i, ok := index[name]
		if !ok {
			remotes = append(remotes, Remote{Name: name})
			i = len(remotes) - 1
			index[name] = i
		}
		switch kind {
		case "(fetch)":
			remotes[i].FetchURL = url
		case "(push)":
			remotes[i].PushURL = url
		}
	}
	return remotes
}

// FindRemote returns the named remote or a REMOTE_NOT_FOUND error.
func FindRemote(remotes []Remote, name string) (Remote, error) {
	for _, r := range remotes {
		if r.Name == name {
			return r, nil
		}
	}
	return Remote{}, errors.RemoteNotFound(name)
}

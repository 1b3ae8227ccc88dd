package git

import (
	"bufio"
	"context"
	"strings"
)

// ListBranches returns every local and remote-tracking ref name, fully
// qualified (refs/heads/..., refs/remotes/...).
func (c *Client) ListBranches(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "for-each-ref", "--format=%(refname)", "refs/heads", "refs/remotes")
	if err != nil {
		return nil, err
	}

	var refs []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		if ref := strings.TrimSpace(scanner.Text()); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

// RemoteBranchNames extracts the branch names tracked from remote, in the
// order given. The symbolic HEAD ref is skipped.
func RemoteBranchNames(refs []string, remote string) []string {
	prefix := "refs/remotes/" + remote + "/"
	var names []string
	for _, ref := range refs {
		if !strings.HasPrefix(ref, prefix) {
			continue
		}
		name := strings.TrimPrefix(ref, prefix)
		if name == "" || name == "HEAD" {
			continue
		}
		names = append(names, name)
	}
	return names
}

package git

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/grovetools/gcpd/errors"
	"github.com/grovetools/gcpd/pkg/models"
)

// Unit separator between hash and subject in log output.
const logFieldSep = "\x1f"

// Log returns the commits selected by revs (anything `git log` accepts:
// refs, ranges, -N limits), newest first.
func (c *Client) Log(ctx context.Context, revs ...string) ([]models.Commit, error) {
	args := append([]string{"log", "--format=%H%x1f%s"}, revs...)
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLog(out), nil
}

// Tip returns the commit ref points at.
func (c *Client) Tip(ctx context.Context, ref string) (models.Commit, error) {
	if err := c.validateRef(ref); err != nil {
		return models.Commit{}, err
	}
	commits, err := c.Log(ctx, "-1", ref, "--")
	if err != nil {
		return models.Commit{}, err
	}
	if len(commits) == 0 {
		return models.Commit{}, errors.New(errors.ErrCodeQueryFailed, fmt.Sprintf("no commits on %s", ref))
	}
	return commits[0], nil
}

func parseLog(output string) []models.Commit {
	var commits []models.Commit
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), logFieldSep, 2)
		if len(parts) != 2 || parts[0] == "" {
			continue
		}
		commits = append(commits, models.Commit{Hash: parts[0], Message: parts[1]})
	}
	return commits
}

// cherryLine matches `git cherry --verbose` lines for commits whose change
// is not yet in upstream.
var cherryLine = regexp.MustCompile(`^\+\s+(\w+)\s+(.*)$`)

// AheadOfBase returns the commits reachable from head whose changes are not
// in base, earliest first.
func (c *Client) AheadOfBase(ctx context.Context, base, head string) ([]models.Commit, error) {
	if err := c.validateRef(base); err != nil {
		return nil, err
	}
	if err := c.validateRef(head); err != nil {
		return nil, err
	}
	out, err := c.run(ctx, "cherry", "--verbose", base, head)
	if err != nil {
		return nil, err
	}
	return ParseCherry(out), nil
}

// ParseCherry keeps the `+` lines of `git cherry --verbose` output. Lines
// marked `-` (already applied upstream), blank lines, and anything else
// that does not match are dropped.
func ParseCherry(output string) []models.Commit {
	commits := []models.Commit{}
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		match := cherryLine.FindStringSubmatch(scanner.Text())
		if match == nil {
			continue
		}
		commits = append(commits, models.Commit{Hash: match[1], Message: match[2]})
	}
	return commits
}

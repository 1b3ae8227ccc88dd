package git

import (
	"context"

	"github.com/grovetools/gcpd/pkg/models"
)

// Repository is the query surface the reconciliation loop needs from a
// local mirror. Implementations must serialize calls against one working copy.
type Repository interface {
	// EnsureMirror clones the mirror if absent, otherwise fetches the remote
	// and force-resets the local base branch to the remote base branch.
	EnsureMirror(ctx context.Context, opts MirrorOptions) error
	Fetch(ctx context.Context, remote string) error
	GetRemotes(ctx context.Context) ([]Remote, error)
	ListBranches(ctx context.Context) ([]string, error)
	Log(ctx context.Context, revs ...string) ([]models.Commit, error)
	Tip(ctx context.Context, ref string) (models.Commit, error)
	AheadOfBase(ctx context.Context, base, head string) ([]models.Commit, error)
	Dir() string
}

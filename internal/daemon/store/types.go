// Package store holds the single in-memory aggregate the daemon reconciles:
// the branch inventory, the base branch tip and the target branch record.
package store

import "github.com/grovetools/gcpd/pkg/models"

// InventoryDiff reports how a SyncInventory call changed the inventory.
type InventoryDiff struct {
	Added   []string
	Removed []string
}

// Changed reports whether any branch was added or removed.
func (d InventoryDiff) Changed() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0
}

func copyCommits(commits []models.Commit) []models.Commit {
	if commits == nil {
		return []models.Commit{}
	}
	out := make([]models.Commit, len(commits))
	copy(out, commits)
	return out
}

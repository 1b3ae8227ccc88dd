package store

import (
	"sync"
	"time"

	"github.com/grovetools/gcpd/pkg/models"
)

// Store is the state aggregate shared by the controller, the pipeline and
// the hub. It is safe for concurrent use; readers receive copies.
type Store struct {
	mu       sync.RWMutex
	branches []*models.Branch
	index    map[string]*models.Branch
	base     models.BaseBranch
	target   models.TargetBranch
}

// New creates a Store for the given target and base branch names.
func New(targetBranch, baseBranch string) *Store {
	return &Store{
		index: make(map[string]*models.Branch),
		base:  models.BaseBranch{Name: baseBranch},
		target: models.TargetBranch{
			Name:    targetBranch,
			Commits: []models.Commit{},
		},
	}
}

// SyncInventory replaces the branch inventory with names, in the given
// order. Known branches keep their commits and active flag; new branches
// start inactive with no commits; missing branches are dropped whether or
// not they were active.
func (s *Store) SyncInventory(names []string) InventoryDiff {
	s.mu.Lock()
	defer s.mu.Unlock()

	var diff InventoryDiff
	seen := make(map[string]struct{}, len(names))
	branches := make([]*models.Branch, 0, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		b, ok := s.index[name]
		if !ok {
			b = &models.Branch{Name: name, Commits: []models.Commit{}}
			diff.Added = append(diff.Added, name)
		}
		branches = append(branches, b)
	}

	for _, b := range s.branches {
		if _, ok := seen[b.Name]; !ok {
			diff.Removed = append(diff.Removed, b.Name)
		}
	}

	s.branches = branches
	s.index = make(map[string]*models.Branch, len(branches))
	for _, b := range branches {
		s.index[b.Name] = b
	}
	return diff
}

// BranchNames returns the inventory names in order.
func (s *Store) BranchNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.branches))
	for i, b := range s.branches {
		names[i] = b.Name
	}
	return names
}

// SetBranchCommits records the ahead-of-base commits of a branch. Unknown
// branches are ignored.
func (s *Store) SetBranchCommits(name string, commits []models.Commit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.index[name]; ok {
		b.Commits = copyCommits(commits)
	}
}

// ToggleActive flips the active flag of a branch and reports whether the
// branch exists.
func (s *Store) ToggleActive(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.index[name]
	if !ok {
		return false
	}
	b.Active = !b.Active
	return true
}

// SetBaseCommit records the base branch tip.
func (s *Store) SetBaseCommit(commit models.Commit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base.Commit = commit
}

// TargetCommits returns the desired target sequence: the base tip followed
// by the commits of every active branch in inventory order.
func (s *Store) TargetCommits() []models.Commit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	commits := []models.Commit{s.base.Commit}
	for _, b := range s.branches {
		if b.Active {
			commits = append(commits, b.Commits...)
		}
	}
	return commits
}

// Target returns a copy of the target branch record.
func (s *Store) Target() models.TargetBranch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyTarget()
}

// BeginProcessing marks the target branch as being rebuilt.
func (s *Store) BeginProcessing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target.Processing = true
}

// CompleteTarget records a successful rebuild. Commits, timestamp and error
// change together.
func (s *Store) CompleteTarget(commits []models.Commit, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target.Commits = copyCommits(commits)
	s.target.UpdatedAt = &at
	s.target.Error = nil
	s.target.Processing = false
}

// FailTarget records a failed rebuild, leaving the last good commits and
// timestamp untouched.
func (s *Store) FailTarget(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target.Error = &message
	s.target.Processing = false
}

// ClearTargetError removes a recorded rebuild error and reports whether one
// was present.
func (s *Store) ClearTargetError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.target.Error == nil {
		return false
	}
	s.target.Error = nil
	return true
}

// Snapshot returns a deep copy of the state combined with the given
// terminal state.
func (s *Store) Snapshot(terminal models.TerminalState) models.State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	branches := make([]models.Branch, len(s.branches))
	for i, b := range s.branches {
		branches[i] = models.Branch{
			Name:    b.Name,
			Commits: copyCommits(b.Commits),
			Active:  b.Active,
		}
	}

	return models.State{
		Branches:     branches,
		BaseBranch:   s.base,
		TargetBranch: s.copyTarget(),
		Terminal:     terminal,
	}
}

func (s *Store) copyTarget() models.TargetBranch {
	t := s.target
	t.Commits = copyCommits(s.target.Commits)
	if s.target.Error != nil {
		msg := *s.target.Error
		t.Error = &msg
	}
	if s.target.UpdatedAt != nil {
		at := *s.target.UpdatedAt
		t.UpdatedAt = &at
	}
	return t
}

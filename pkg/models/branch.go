// Package models holds the shared data model for branches, commits and the
// snapshot sent to observers.
package models

import "time"

// Commit is a single commit produced by a repository query. Identity is the hash.
type Commit struct {
	Hash    string `json:"hash"`
	Message string `json:"message"`
}

// Branch is one remote-tracking branch in the inventory.
type Branch struct {
	Name string `json:"name"`
	// Commits are the commits on this branch that are not on the base branch,
	// earliest first.
	Commits []Commit `json:"commits"`
	Active  bool     `json:"active"`
}

// BaseBranch is the branch whose tip anchors every rebuild.
type BaseBranch struct {
	Name   string `json:"name"`
	Commit Commit `json:"commit"`
}

// TargetBranch is the synthesized branch and the commit sequence last
// successfully pushed to it.
type TargetBranch struct {
	Name       string     `json:"name"`
	Processing bool       `json:"processing"`
	Error      *string    `json:"error"`
	Commits    []Commit   `json:"commits"`
	UpdatedAt  *time.Time `json:"updatedAt"`
}

// Hashes returns the hashes of commits in order.
func Hashes(commits []Commit) []string {
	hashes := make([]string, len(commits))
	for i, c := range commits {
		hashes[i] = c.Hash
	}
	return hashes
}

// SameHashes reports whether two commit sequences have identical hashes,
// element by element.
func SameHashes(a, b []Commit) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Hash != b[i].Hash {
			return false
		}
	}
	return true
}

package controller

import (
	"github.com/moby/patternmatcher"
)

// branchFilter keeps branches matching include (or everything when include
// is empty) and drops branches matching exclude.
type branchFilter struct {
	include *patternmatcher.PatternMatcher
	exclude *patternmatcher.PatternMatcher
}

func newBranchFilter(include, exclude []string) (*branchFilter, error) {
	f := &branchFilter{}
	if len(include) > 0 {
		pm, err := patternmatcher.New(include)
		if err != nil {
			return nil, err
		}
		f.include = pm
	}
	if len(exclude) > 0 {
		pm, err := patternmatcher.New(exclude)
		if err != nil {
			return nil, err
		}
		f.exclude = pm
	}
	return f, nil
}

func (f *branchFilter) keep(name string) bool {
	if f.include != nil {
		ok, err := f.include.MatchesOrParentMatches(name)
		if err != nil || !ok {
			return false
		}
	}
	if f.exclude != nil {
		if ok, err := f.exclude.MatchesOrParentMatches(name); err == nil && ok {
			return false
		}
	}
	return true
}

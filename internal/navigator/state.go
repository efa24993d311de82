package navigator

import (
	"maps"
	"slices"

	"github.com/jun/drivelookup/internal/model"
)

// NoFetch is the FetchingFile value while no file is being fetched.
const NoFetch = -1

// State is an immutable snapshot of one search's match cursor.
// Snapshots handed out by a Navigator are never modified afterwards.
type State struct {
	SearchID     string `json:"searchId"`
	CurrentIndex int    `json:"currentIndex"`
	// TotalMatchCount is nil until some file content has been fetched.
	TotalMatchCount *int               `json:"totalMatchCount"`
	Files           []model.FileRecord `json:"files"`
	Expanded        map[int]bool       `json:"expanded"`
	ActiveMarkerID  string             `json:"activeMarkerId,omitempty"`
	MoreFilesToOpen bool               `json:"moreFilesToOpen"`
	FetchingFile    int                `json:"fetchingFile"`
	FileErrors      map[int]string     `json:"fileErrors"`
}

func (s State) clone() State {
	c := s
	c.Files = slices.Clone(s.Files)
	c.Expanded = maps.Clone(s.Expanded)
	c.FileErrors = maps.Clone(s.FileErrors)
	if s.TotalMatchCount != nil {
		total := *s.TotalMatchCount
		c.TotalMatchCount = &total
	}
	return c
}

// Total returns the known match total, 0 while unknown.
func (s State) Total() int {
	if s.TotalMatchCount == nil {
		return 0
	}
	return *s.TotalMatchCount
}

// FileFor returns the index of the file whose range holds match n, or -1.
func (s State) FileFor(n int) int {
	for i, f := range s.Files {
		if f.Range != nil && f.Range.Contains(n) {
			return i
		}
	}
	return -1
}

func (s State) nextPending() int {
	for i, f := range s.Files {
		if f.Pending() {
			return i
		}
	}
	return -1
}

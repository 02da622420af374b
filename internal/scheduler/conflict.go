package scheduler

import "sort"

// Entry is a placed reservation as seen by the conflict detector.
type Entry struct {
	ID       string
	RoomID   string
	Interval Interval
}

// Conflict details an entry that overlaps a candidate in the same room.
type Conflict struct {
	WithID   string
	RoomID   string
	Interval Interval
}

// Pair is an unordered pair of overlapping entries in one room. First precedes Second
// in the input order.
type Pair struct {
	RoomID string
	First  Entry
	Second Entry
}

// DetectConflicts identifies entries in the candidate's room whose interval overlaps it.
// Entries whose ID equals ignoreID are skipped so callers can test a relocation.
func DetectConflicts(existing []Entry, candidate Entry, ignoreID string) []Conflict {
	var conflicts []Conflict
	for _, entry := range existing {
		if entry.RoomID != candidate.RoomID {
			continue
		}
		if ignoreID != "" && entry.ID == ignoreID {
			continue
		}
		if !entry.Interval.Overlaps(candidate.Interval) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			WithID:   entry.ID,
			RoomID:   entry.RoomID,
			Interval: entry.Interval,
		})
	}
	return conflicts
}

// ConflictPairs enumerates every overlapping pair sharing a room. Entries are bucketed
// by room first; the result is ordered as a nested i<j scan over the input would emit it.
func ConflictPairs(entries []Entry) []Pair {
	byRoom := make(map[string][]int)
	for i, entry := range entries {
		byRoom[entry.RoomID] = append(byRoom[entry.RoomID], i)
	}

	type indexed struct {
		i, j int
	}
	var found []indexed
	for _, idx := range byRoom {
		for a := 0; a < len(idx); a++ {
			for b := a + 1; b < len(idx); b++ {
				if entries[idx[a]].Interval.Overlaps(entries[idx[b]].Interval) {
					found = append(found, indexed{i: idx[a], j: idx[b]})
				}
			}
		}
	}
	sort.Slice(found, func(x, y int) bool {
		if found[x].i == found[y].i {
			return found[x].j < found[y].j
		}
		return found[x].i < found[y].i
	})

	pairs := make([]Pair, 0, len(found))
	for _, f := range found {
		pairs = append(pairs, Pair{
			RoomID: entries[f.i].RoomID,
			First:  entries[f.i],
			Second: entries[f.j],
		})
	}
	return pairs
}

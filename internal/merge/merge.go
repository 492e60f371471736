// Package merge reconciles a remote and a local task collection with a
// per-record last-write-wins rule.
package merge

import "github.com/TWRT/tasksync/internal/models"

// Merge returns the union of remote and local. For ids present in both, the
// local record wins only when its UpdatedAt is strictly later; equal stamps keep
// the remote record. Local order comes first, then remote-only records in their
// remote order. Neither input is modified.
func Merge(remote, local models.Collection) models.Collection {
	winners := make(map[string]models.Task, len(remote)+len(local))
	remoteOrder := make([]string, 0, len(remote))

	for _, r := range remote {
		if _, seen := winners[r.Id]; !seen {
			remoteOrder = append(remoteOrder, r.Id)
		}
		winners[r.Id] = r
	}

	for _, l := range local {
		r, ok := winners[l.Id]
		if !ok || l.UpdatedAt.After(r.UpdatedAt) {
			winners[l.Id] = l
		}
	}

	out := make(models.Collection, 0, len(winners))
	for _, l := range local {
		if t, ok := winners[l.Id]; ok {
			out = append(out, t)
			delete(winners, l.Id)
		}
	}
	for _, id := range remoteOrder {
		if t, ok := winners[id]; ok {
			out = append(out, t)
			delete(winners, id)
		}
	}

	return out.Clone()
}

// Stats summarizes how a merge resolved, for logging and sync history.
type Stats struct {
	LocalOnly  int
	RemoteOnly int
	LocalWins  int
	RemoteWins int
}

// Diff classifies every id of the merge inputs without merging them.
func Diff(remote, local models.Collection) Stats {
	var s Stats
	remoteByID := make(map[string]models.Task, len(remote))
	for _, r := range remote {
		remoteByID[r.Id] = r
	}
	localSeen := make(map[string]struct{}, len(local))
	for _, l := range local {
		if _, dup := localSeen[l.Id]; dup {
			continue
		}
		localSeen[l.Id] = struct{}{}
		r, ok := remoteByID[l.Id]
		switch {
		case !ok:
			s.LocalOnly++
		case l.UpdatedAt.After(r.UpdatedAt):
			s.LocalWins++
		default:
			s.RemoteWins++
		}
	}
	for id := range remoteByID {
		if _, ok := localSeen[id]; !ok {
			s.RemoteOnly++
		}
	}
	return s
}

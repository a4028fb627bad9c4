package services

import (
	"sort"
	"time"

	"github.com/google/uuid"

	types "github.com/taskforge/taskforge-backend/internal/domain"
)

// selectPurgeCandidates computes the deletion set for one version chain
// under a policy's limits. Pure function of its inputs so the purge
// arithmetic is testable without a database or a clock.
//
// Rules: the highest-numbered version is never a candidate. Age-based
// candidates are the non-latest versions created strictly before
// now - keepDays. Count-based candidates are the oldest versions among
// the age survivors beyond maxVersions. The result is the union of
// both sets, ascending by version number.
func selectPurgeCandidates(versions []*types.FileVersion, maxVersions, keepDays *int, now time.Time) []*types.FileVersion {
	if len(versions) < 2 {
		return nil
	}

	sorted := make([]*types.FileVersion, len(versions))
	copy(sorted, versions)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].VersionNumber < sorted[j].VersionNumber
	})
	latest := sorted[len(sorted)-1]

	doomed := make(map[uuid.UUID]bool)

	if keepDays != nil {
		cutoff := now.Add(-time.Duration(*keepDays) * 24 * time.Hour)
		for _, v := range sorted {
			if v.ID == latest.ID {
				continue
			}
			if v.CreatedAt.Before(cutoff) {
				doomed[v.ID] = true
			}
		}
	}

	if maxVersions != nil {
		remaining := 0
		for _, v := range sorted {
			if !doomed[v.ID] {
				remaining++
			}
		}
		excess := remaining - *maxVersions
		for _, v := range sorted {
			if excess <= 0 {
				break
			}
			if doomed[v.ID] || v.ID == latest.ID {
				continue
			}
			doomed[v.ID] = true
			excess--
		}
	}

	if len(doomed) == 0 {
		return nil
	}
	out := make([]*types.FileVersion, 0, len(doomed))
	for _, v := range sorted {
		if doomed[v.ID] {
			out = append(out, v)
		}
	}
	return out
}

package pipeline

import (
	"sort"

	"facetrace/internal/models"
)

// Aggregate folds a detection log into the per-video summary. Person order
// is first appearance, ties broken by person id, so repeated runs over the
// same log produce identical summaries.
func Aggregate(detections []*models.Detection) models.Summary {
	summary := models.EmptySummary()
	summary.TotalDetections = len(detections)

	index := make(map[string]int)
	for _, d := range detections {
		i, ok := index[d.PersonID]
		if !ok {
			i = len(summary.PerPerson)
			index[d.PersonID] = i
			summary.PerPerson = append(summary.PerPerson, models.PersonSummary{
				PersonID: d.PersonID,
				Name:     d.PersonName,
			})
		}
		ps := &summary.PerPerson[i]
		ps.Appearances++
		ps.Details = append(ps.Details, models.Appearance{
			Timestamp:    d.Timestamp,
			FrameIndex:   d.FrameIndex,
			Box:          d.Box,
			SnapshotPath: d.SnapshotPath,
		})
	}
	summary.UniquePeople = len(summary.PerPerson)

	sort.SliceStable(summary.PerPerson, func(i, j int) bool {
		a, b := summary.PerPerson[i], summary.PerPerson[j]
		if a.Details[0].FrameIndex != b.Details[0].FrameIndex {
			return a.Details[0].FrameIndex < b.Details[0].FrameIndex
		}
		return a.PersonID < b.PersonID
	})
	for i := range summary.PerPerson {
		details := summary.PerPerson[i].Details
		sort.SliceStable(details, func(a, b int) bool {
			return details[a].FrameIndex < details[b].FrameIndex
		})
	}
	return summary
}

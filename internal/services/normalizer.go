package services

import (
	"fmt"
	"sort"

	"walkgen-backend/internal/models"
	"walkgen-backend/internal/timeutil"
)

const defaultSegmentSpan = 60

// NormalizeSegments turns untrusted model proposals into a clean,
// chronological, non-overlapping timeline. Deterministic; order matters:
// sort by start, clamp into the video bounds, push overlapping starts
// forward to the previous accepted end, drop fully subsumed proposals,
// apply the difficulty policy, then number the survivors.
func NormalizeSegments(proposals []models.SegmentProposal, totalDuration int) []models.Segment {
	if len(proposals) == 0 {
		return []models.Segment{}
	}

	sorted := make([]models.SegmentProposal, len(proposals))
	copy(sorted, proposals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return startOf(sorted[i]) < startOf(sorted[j])
	})

	segments := make([]models.Segment, 0, len(sorted))
	prevEnd := 0

	for _, p := range sorted {
		start := int(startOf(p))
		if start < 0 {
			start = 0
		}
		if start > totalDuration {
			start = totalDuration
		}

		end := start + defaultSegmentSpan
		if p.EndSeconds != nil {
			end = int(*p.EndSeconds)
		}
		if end > totalDuration {
			end = totalDuration
		}
		if end <= start {
			end = min(start+defaultSegmentSpan, totalDuration)
		}
		if end <= start {
			continue // start at or past the video end, nothing left to cover
		}

		// Overlap resolution favors the earlier, already accepted segment
		if len(segments) > 0 && start < prevEnd {
			start = prevEnd
			if start >= end {
				continue // fully subsumed, dropped rather than kept zero-length
			}
		}

		segType := models.SegmentType(p.Type)
		if p.Type == "" {
			segType = models.SegmentExploration
		}

		label := p.Label
		if label == "" {
			label = fmt.Sprintf("Segment %d", len(segments)+1)
		}

		tags := p.Tags
		if tags == nil {
			tags = []string{}
		}

		segments = append(segments, models.Segment{
			ID:           len(segments) + 1,
			Type:         segType,
			Label:        label,
			StartSeconds: start,
			EndSeconds:   end,
			StartLabel:   timeutil.FormatDuration(start),
			EndLabel:     timeutil.FormatDuration(end),
			Description:  p.Description,
			Tags:         tags,
			Difficulty:   resolveDifficulty(segType, p.Difficulty),
		})
		prevEnd = end
	}

	return segments
}

// resolveDifficulty enforces the difficulty policy: always null for
// exploration/collectible/cutscene, and null for anything outside the
// fixed enumeration.
func resolveDifficulty(segType models.SegmentType, raw *string) *models.Difficulty {
	if raw == nil || models.NoDifficultyTypes[segType] {
		return nil
	}
	d := models.Difficulty(*raw)
	if !models.ValidDifficulties[d] {
		return nil
	}
	return &d
}

func startOf(p models.SegmentProposal) float64 {
	if p.StartSeconds == nil {
		return 0
	}
	return *p.StartSeconds
}

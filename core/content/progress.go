package content

import (
	"math"
	"sort"
)

type (
	// LessonRef is the slice of a published Lesson the progress aggregator
	// needs: identity plus position in the module/lesson ordering.
	LessonRef struct {
		ID          string `json:"id"`
		ModuleID    string `json:"module_id"`
		ModuleOrder int    `json:"-"`
		LessonOrder int    `json:"-"`
	}

	// ModuleProgress is the per-module completion breakdown.
	ModuleProgress struct {
		ModuleID       string `json:"module_id"`
		TotalLessons   int    `json:"total_lessons"`
		CompletedCount int    `json:"completed_count"`
		Percentage     int    `json:"percentage"`
	}

	// ProgressSummary is a user's completion state over a school's published
	// lessons. NextLesson is nil exactly when every published lesson is done.
	ProgressSummary struct {
		TotalLessons   int              `json:"total_lessons"`
		CompletedCount int              `json:"completed_count"`
		Percentage     int              `json:"percentage"`
		Modules        []ModuleProgress `json:"modules"`
		NextLesson     *LessonRef       `json:"next_lesson,omitempty"`
		AllComplete    bool             `json:"all_complete"`
	}
)

// Percentage computes the integer completion percentage, rounded half-up.
// No lessons means 0, never a division error.
func Percentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

// Summarize computes a user's progress over the given published lessons.
// Pure function of its inputs; `lessons` need not be pre-sorted.
func Summarize(lessons []LessonRef, completedIDs map[string]bool) ProgressSummary {
	ordered := make([]LessonRef, len(lessons))
	copy(ordered, lessons)
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.ModuleOrder != b.ModuleOrder {
			return a.ModuleOrder < b.ModuleOrder
		}
		if a.ModuleID != b.ModuleID {
			return a.ModuleID < b.ModuleID
		}
		if a.LessonOrder != b.LessonOrder {
			return a.LessonOrder < b.LessonOrder
		}
		return a.ID < b.ID
	})

	summary := ProgressSummary{TotalLessons: len(ordered)}

	// lessons are sorted, so each module is one contiguous run
	for i, ref := range ordered {
		if n := len(summary.Modules); n == 0 || summary.Modules[n-1].ModuleID != ref.ModuleID {
			summary.Modules = append(summary.Modules, ModuleProgress{ModuleID: ref.ModuleID})
		}
		mp := &summary.Modules[len(summary.Modules)-1]
		mp.TotalLessons++

		if completedIDs[ref.ID] {
			summary.CompletedCount++
			mp.CompletedCount++
		} else if summary.NextLesson == nil {
			next := ordered[i]
			summary.NextLesson = &next
		}
	}

	for i := range summary.Modules {
		mp := &summary.Modules[i]
		mp.Percentage = Percentage(mp.CompletedCount, mp.TotalLessons)
	}
	summary.Percentage = Percentage(summary.CompletedCount, summary.TotalLessons)
	summary.AllComplete = summary.NextLesson == nil
	return summary
}

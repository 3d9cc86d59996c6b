package content

import (
	"fmt"
	"testing"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{5, 0, 0}, // no lessons can never divide by zero
		{-1, 0, 0},
		{0, 5, 0},
		{2, 5, 40},
		{2, 3, 67}, // rounds half-up
		{1, 3, 33},
		{1, 2, 50},
		{5, 5, 100},
		{1, 8, 13}, // 12.5 rounds up
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d of %d", tt.completed, tt.total), func(t *testing.T) {
			if got := Percentage(tt.completed, tt.total); got != tt.want {
				t.Errorf("Percentage(%d, %d) = %d, want %d", tt.completed, tt.total, got, tt.want)
			}
		})
	}
}

func TestPercentageMonotonic(t *testing.T) {
	const total = 37
	prev := 0
	for completed := 0; completed <= total; completed++ {
		got := Percentage(completed, total)
		if got < prev {
			t.Fatalf("Percentage(%d, %d) = %d < previous %d; must be non-decreasing", completed, total, got, prev)
		}
		prev = got
	}
}

// two modules with 3 and 2 published lessons; 2 lessons of module 1 completed
func TestSummarize(t *testing.T) {
	lessons := []LessonRef{
		// deliberately unsorted input
		{ID: "l22", ModuleID: "m2", ModuleOrder: 2, LessonOrder: 2},
		{ID: "l13", ModuleID: "m1", ModuleOrder: 1, LessonOrder: 3},
		{ID: "l11", ModuleID: "m1", ModuleOrder: 1, LessonOrder: 1},
		{ID: "l21", ModuleID: "m2", ModuleOrder: 2, LessonOrder: 1},
		{ID: "l12", ModuleID: "m1", ModuleOrder: 1, LessonOrder: 2},
	}
	completed := map[string]bool{"l11": true, "l12": true}

	sum := Summarize(lessons, completed)

	if sum.TotalLessons != 5 {
		t.Errorf("TotalLessons = %d, want 5", sum.TotalLessons)
	}
	if sum.CompletedCount != 2 {
		t.Errorf("CompletedCount = %d, want 2", sum.CompletedCount)
	}
	if sum.Percentage != 40 {
		t.Errorf("Percentage = %d, want 40", sum.Percentage)
	}
	if len(sum.Modules) != 2 {
		t.Fatalf("len(Modules) = %d, want 2", len(sum.Modules))
	}
	m1, m2 := sum.Modules[0], sum.Modules[1]
	if m1.ModuleID != "m1" || m1.TotalLessons != 3 || m1.CompletedCount != 2 || m1.Percentage != 67 {
		t.Errorf("module 1 = %+v, want 2/3 complete (67%%)", m1)
	}
	if m2.ModuleID != "m2" || m2.TotalLessons != 2 || m2.CompletedCount != 0 || m2.Percentage != 0 {
		t.Errorf("module 2 = %+v, want 0/2 complete", m2)
	}
	if sum.NextLesson == nil || sum.NextLesson.ID != "l13" {
		t.Errorf("NextLesson = %+v, want 3rd lesson of module 1", sum.NextLesson)
	}
	if sum.AllComplete {
		t.Error("AllComplete = true, want false")
	}
}

func TestSummarizeNextLesson(t *testing.T) {
	lessons := []LessonRef{
		{ID: "a", ModuleID: "m1", ModuleOrder: 1, LessonOrder: 1},
		{ID: "b", ModuleID: "m1", ModuleOrder: 1, LessonOrder: 2},
		{ID: "c", ModuleID: "m2", ModuleOrder: 2, LessonOrder: 1},
	}

	tests := []struct {
		name      string
		completed map[string]bool
		wantNext  string // "" for terminal
	}{
		{name: "nothing completed", completed: nil, wantNext: "a"},
		{name: "first done", completed: map[string]bool{"a": true}, wantNext: "b"},
		{name: "first module done", completed: map[string]bool{"a": true, "b": true}, wantNext: "c"},
		{name: "gap in first module", completed: map[string]bool{"b": true, "c": true}, wantNext: "a"},
		{name: "all done", completed: map[string]bool{"a": true, "b": true, "c": true}},
		{name: "superset of published", completed: map[string]bool{"a": true, "b": true, "c": true, "gone": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := Summarize(lessons, tt.completed)
			if tt.wantNext == "" {
				if sum.NextLesson != nil || !sum.AllComplete {
					t.Errorf("want terminal state; got NextLesson=%+v AllComplete=%v", sum.NextLesson, sum.AllComplete)
				}
				return
			}
			if sum.NextLesson == nil || sum.NextLesson.ID != tt.wantNext {
				t.Errorf("NextLesson = %+v, want %q", sum.NextLesson, tt.wantNext)
			}
		})
	}
}

func TestSummarizeNoLessons(t *testing.T) {
	sum := Summarize(nil, map[string]bool{"ghost": true})
	if sum.TotalLessons != 0 || sum.CompletedCount != 0 || sum.Percentage != 0 {
		t.Errorf("Summarize(nil) = %+v, want all zeroes", sum)
	}
	if sum.NextLesson != nil {
		t.Errorf("NextLesson = %+v, want nil", sum.NextLesson)
	}
	// completed ids of unpublished/deleted lessons never count
	lessons := []LessonRef{{ID: "x", ModuleID: "m", ModuleOrder: 1, LessonOrder: 1}}
	sum = Summarize(lessons, map[string]bool{"ghost": true})
	if sum.CompletedCount != 0 {
		t.Errorf("CompletedCount = %d, want 0 (ghost completion ignored)", sum.CompletedCount)
	}
}

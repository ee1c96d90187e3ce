package recorder

import "github.com/Spok95/attendance-tracker/internal/models"

var (
	theorySlots = []string{
		"10:15 - 11:15",
		"11:15 - 12:15",
		"1:15 - 2:15",
		"2:15 - 3:15",
		"3:30 - 4:30",
		"4:30 - 5:30",
	}
	practicalSlots = []string{
		"10:15 - 12:15",
		"1:15 - 3:15",
		"3:30 - 5:30",
	}
)

// Slots — допустимые временные окна для типа курса.
func Slots(t models.CourseType) []string {
	var src []string
	switch t {
	case models.Theory:
		src = theorySlots
	case models.Practical:
		src = practicalSlots
	}
	return append([]string(nil), src...)
}

func validSlot(t models.CourseType, slot string) bool {
	for _, s := range Slots(t) {
		if s == slot {
			return true
		}
	}
	return false
}

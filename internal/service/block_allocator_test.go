package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gux-htm/EmersonSched-sub000/internal/models"
)

func strPtr(v string) *string { return &v }

func morningSlots(ids ...string) []models.TimeSlot {
	slots := make([]models.TimeSlot, 0, len(ids))
	for i, id := range ids {
		start := 480 + i*60
		slots = append(slots, models.TimeSlot{
			ID:          id,
			Shift:       models.ShiftMorning,
			StartTime:   formatClock(start),
			EndTime:     formatClock(start + 60),
			DurationMin: 60,
		})
	}
	return slots
}

func candidate(reqID, courseID, credits, teacherID, sectionID string, size int, prefs models.RequestPreferences) blockCandidate {
	return blockCandidate{
		Request: models.CourseRequest{
			ID:           reqID,
			CourseID:     courseID,
			SectionID:    sectionID,
			Shift:        models.ShiftMorning,
			Status:       models.CourseRequestAccepted,
			InstructorID: strPtr(teacherID),
		},
		Course:  models.Course{ID: courseID, CreditHours: credits},
		Section: models.Section{ID: sectionID, Size: size, Shift: models.ShiftMorning},
		Prefs:   prefs,
	}
}

func TestParseCreditHours(t *testing.T) {
	split, err := parseCreditHours("3+1")
	require.NoError(t, err)
	assert.Equal(t, 3, split.Theory)
	assert.Equal(t, 1, split.Lab)
	assert.Equal(t, 4, split.total())

	split, err = parseCreditHours("3")
	require.NoError(t, err)
	assert.Equal(t, 3, split.Theory)
	assert.Equal(t, 0, split.Lab)

	for _, raw := range []string{"", "abc", "3+x", "-1+2", "0+0"} {
		_, err := parseCreditHours(raw)
		assert.Error(t, err, raw)
	}
}

func TestAllocateBlocksSplitsTheoryAndLab(t *testing.T) {
	rooms := []models.Room{
		{ID: "lec-big", Type: models.RoomTypeLecture, Capacity: 50},
		{ID: "lec-small", Type: models.RoomTypeLecture, Capacity: 30},
		{ID: "lab-1", Type: models.RoomTypeLab, Capacity: 40},
	}
	slots := map[models.Shift][]models.TimeSlot{
		models.ShiftMorning: morningSlots("s1", "s2", "s3", "s4"),
	}
	cands := []blockCandidate{
		candidate("req-a", "course-a", "3+1", "t1", "sec-a", 40, models.RequestPreferences{Days: []int{1}}),
	}

	result := allocateBlocks(cands, rooms, slots, []int{1, 2, 3, 4, 5})
	require.Empty(t, result.Unassigned)
	require.Len(t, result.Blocks, 4)
	assert.Equal(t, []string{"req-a"}, result.Committed)

	theory, lab := 0, 0
	for _, block := range result.Blocks {
		switch block.Component {
		case models.BlockComponentTheory:
			theory++
			assert.Equal(t, "lec-big", block.RoomID)
		case models.BlockComponentLab:
			lab++
			assert.Equal(t, "lab-1", block.RoomID)
		}
		assert.Equal(t, 1, block.DayOfWeek)
	}
	assert.Equal(t, 3, theory)
	assert.Equal(t, 1, lab)
}

func TestAllocateBlocksDisjointOccupancy(t *testing.T) {
	rooms := []models.Room{
		{ID: "lec-1", Type: models.RoomTypeLecture, Capacity: 60},
		{ID: "lec-2", Type: models.RoomTypeLecture, Capacity: 60},
	}
	slots := map[models.Shift][]models.TimeSlot{
		models.ShiftMorning: morningSlots("s1", "s2", "s3", "s4"),
	}
	cands := []blockCandidate{
		candidate("req-a", "course-a", "2", "t1", "sec-a", 30, models.RequestPreferences{Days: []int{1}}),
		candidate("req-b", "course-b", "2", "t2", "sec-b", 30, models.RequestPreferences{Days: []int{1}}),
	}

	result := allocateBlocks(cands, rooms, slots, []int{1})
	require.Empty(t, result.Unassigned)
	require.Len(t, result.Blocks, 4)

	type key struct {
		day  int
		slot string
		id   string
	}
	roomSeen := map[key]bool{}
	teacherSeen := map[key]bool{}
	sectionSeen := map[key]bool{}
	for _, block := range result.Blocks {
		rk := key{block.DayOfWeek, block.TimeSlotID, block.RoomID}
		tk := key{block.DayOfWeek, block.TimeSlotID, block.InstructorID}
		sk := key{block.DayOfWeek, block.TimeSlotID, block.SectionID}
		assert.False(t, roomSeen[rk], "room reused in same day+slot")
		assert.False(t, teacherSeen[tk], "teacher reused in same day+slot")
		assert.False(t, sectionSeen[sk], "section reused in same day+slot")
		roomSeen[rk] = true
		teacherSeen[tk] = true
		sectionSeen[sk] = true
	}
}

func TestAllocateBlocksSameSectionContendsForSlot(t *testing.T) {
	rooms := []models.Room{
		{ID: "lec-1", Type: models.RoomTypeLecture, Capacity: 60},
		{ID: "lab-1", Type: models.RoomTypeLab, Capacity: 60},
	}
	slots := map[models.Shift][]models.TimeSlot{
		models.ShiftMorning: morningSlots("s1", "s2"),
	}
	// Same section, different rooms and teachers: only the section occupancy
	// can push the second request off the first slot.
	prefs := models.RequestPreferences{Days: []int{1}, SlotIDs: []string{"s1", "s2"}}
	cands := []blockCandidate{
		candidate("req-a", "course-a", "1", "t1", "sec-x", 30, prefs),
		candidate("req-b", "course-b", "0+1", "t2", "sec-x", 30, prefs),
	}

	result := allocateBlocks(cands, rooms, slots, []int{1})
	require.Empty(t, result.Unassigned)
	require.Len(t, result.Blocks, 2)
	assert.Equal(t, []string{"req-a", "req-b"}, result.Committed)

	slotByCourse := map[string]string{}
	for _, block := range result.Blocks {
		assert.Equal(t, 1, block.DayOfWeek)
		assert.Equal(t, "sec-x", block.SectionID)
		slotByCourse[block.CourseID] = block.TimeSlotID
	}
	assert.Equal(t, "s1", slotByCourse["course-a"])
	assert.Equal(t, "s2", slotByCourse["course-b"])
}

func TestAllocateBlocksIsDeterministic(t *testing.T) {
	rooms := []models.Room{
		{ID: "lec-1", Type: models.RoomTypeLecture, Capacity: 60},
		{ID: "lab-1", Type: models.RoomTypeLab, Capacity: 60},
	}
	slots := map[models.Shift][]models.TimeSlot{
		models.ShiftMorning: morningSlots("s1", "s2", "s3", "s4", "s5"),
	}
	cands := []blockCandidate{
		candidate("req-b", "course-b", "2+1", "t2", "sec-b", 30, models.RequestPreferences{}),
		candidate("req-a", "course-a", "3", "t1", "sec-a", 30, models.RequestPreferences{}),
		candidate("req-c", "course-c", "3", "t3", "sec-c", 45, models.RequestPreferences{}),
	}

	first := allocateBlocks(cands, rooms, slots, []int{1, 2})
	second := allocateBlocks(cands, rooms, slots, []int{1, 2})
	assert.Equal(t, first, second)

	// priority: equal slot-units resolve by section size, then request id
	assert.Equal(t, []string{"req-c", "req-a", "req-b"}, first.Committed)
}

func TestAllocateBlocksAllOrNothingReleasesTentativePlacements(t *testing.T) {
	rooms := []models.Room{{ID: "lec-1", Type: models.RoomTypeLecture, Capacity: 60}}
	slots := map[models.Shift][]models.TimeSlot{
		models.ShiftMorning: morningSlots("s1"),
	}
	cands := []blockCandidate{
		// needs two units but only one (day, slot) position is reachable
		candidate("req-a", "course-a", "2", "t1", "sec-a", 30, models.RequestPreferences{Days: []int{1}, SlotIDs: []string{"s1"}}),
		candidate("req-b", "course-b", "1", "t2", "sec-b", 30, models.RequestPreferences{Days: []int{1}, SlotIDs: []string{"s1"}}),
	}

	result := allocateBlocks(cands, rooms, slots, []int{1})
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, "req-a", result.Unassigned[0].RequestID)
	assert.Equal(t, models.UnassignedNoSlot, result.Unassigned[0].Reason)

	// the failed request's tentative hold on (day 1, s1) was released
	require.Len(t, result.Blocks, 1)
	assert.Equal(t, "req-b", result.Committed[0])
	assert.Equal(t, "s1", result.Blocks[0].TimeSlotID)
}

func TestAllocateBlocksFastFailsWithoutRequiredRoomType(t *testing.T) {
	rooms := []models.Room{{ID: "lec-1", Type: models.RoomTypeLecture, Capacity: 60}}
	slots := map[models.Shift][]models.TimeSlot{
		models.ShiftMorning: morningSlots("s1", "s2", "s3"),
	}
	cands := []blockCandidate{
		candidate("req-a", "course-a", "1+1", "t1", "sec-a", 30, models.RequestPreferences{}),
	}

	result := allocateBlocks(cands, rooms, slots, []int{1, 2, 3, 4, 5})
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, models.UnassignedNoRoom, result.Unassigned[0].Reason)
	assert.Empty(t, result.Blocks)
}

func TestAllocateBlocksReportsTeacherConflict(t *testing.T) {
	rooms := []models.Room{
		{ID: "lec-1", Type: models.RoomTypeLecture, Capacity: 60},
		{ID: "lab-1", Type: models.RoomTypeLab, Capacity: 60},
	}
	slots := map[models.Shift][]models.TimeSlot{
		models.ShiftMorning: morningSlots("s1"),
	}
	// same teacher, different rooms: the lab room is free, the teacher is not
	cands := []blockCandidate{
		candidate("req-a", "course-a", "1", "t1", "sec-a", 40, models.RequestPreferences{Days: []int{1}}),
		candidate("req-b", "course-b", "0+1", "t1", "sec-b", 30, models.RequestPreferences{Days: []int{1}}),
	}

	result := allocateBlocks(cands, rooms, slots, []int{1})
	require.Len(t, result.Blocks, 1)
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, "req-b", result.Unassigned[0].RequestID)
	assert.Equal(t, models.UnassignedTeacherConflict, result.Unassigned[0].Reason)
}

func TestAllocateBlocksReportsBadCreditFormat(t *testing.T) {
	cands := []blockCandidate{
		candidate("req-a", "course-a", "three", "t1", "sec-a", 30, models.RequestPreferences{}),
	}
	result := allocateBlocks(cands, nil, nil, []int{1})
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, models.UnassignedBadCreditFormat, result.Unassigned[0].Reason)
	assert.Empty(t, result.Committed)
}

func TestAllocateBlocksHonoursDayScopedSlots(t *testing.T) {
	day2 := 2
	rooms := []models.Room{{ID: "lec-1", Type: models.RoomTypeLecture, Capacity: 60}}
	slots := map[models.Shift][]models.TimeSlot{
		models.ShiftMorning: {
			{ID: "s-tue", Shift: models.ShiftMorning, DayOfWeek: &day2, StartTime: "08:00", EndTime: "09:00", DurationMin: 60},
		},
	}
	cands := []blockCandidate{
		candidate("req-a", "course-a", "1", "t1", "sec-a", 30, models.RequestPreferences{Days: []int{1, 2}}),
	}

	result := allocateBlocks(cands, rooms, slots, []int{1, 2})
	require.Len(t, result.Blocks, 1)
	assert.Equal(t, 2, result.Blocks[0].DayOfWeek)
}

package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gux-htm/EmersonSched-sub000/internal/models"
	"github.com/gux-htm/EmersonSched-sub000/pkg/config"
)

func examRooms(n int) []models.Room {
	rooms := make([]models.Room, 0, n)
	for i := 0; i < n; i++ {
		rooms = append(rooms, models.Room{
			ID:       string(rune('a' + i)),
			Type:     models.RoomTypeLecture,
			Capacity: 100,
		})
	}
	return rooms
}

func examInstructors(ids ...string) []models.Instructor {
	list := make([]models.Instructor, 0, len(ids))
	for _, id := range ids {
		list = append(list, models.Instructor{ID: id, Active: true})
	}
	return list
}

func examinee(courseID, name string, semester int, sectionID, teacherID string, size int) examCandidate {
	return examCandidate{
		Course:    models.Course{ID: courseID, Name: name, Semester: semester},
		Section:   models.Section{ID: sectionID, Size: size},
		TeacherID: teacherID,
	}
}

func TestBuildExamSlotsSkipsWeekendsAndMissingDays(t *testing.T) {
	// 2026-03-02 is a Monday
	slots, err := buildExamSlots(examGridParams{
		StartDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
		WorkingHours: map[string]models.WorkingWindow{
			"monday":   {StartTime: "09:00", EndTime: "14:00"},
			"tuesday":  {StartTime: "09:00", EndTime: "13:00"},
			"saturday": {StartTime: "09:00", EndTime: "14:00"},
		},
		DurationMin: 120,
		BufferMin:   30,
	})
	require.NoError(t, err)

	// monday holds 09:00 and 11:30, tuesday only 09:00; saturday is skipped
	require.Len(t, slots, 3)
	assert.Equal(t, time.Monday, slots[0].Date.Weekday())
	assert.Equal(t, 540, slots[0].StartMin)
	assert.Equal(t, 690, slots[1].StartMin)
	assert.Equal(t, time.Tuesday, slots[2].Date.Weekday())
	assert.Equal(t, 540, slots[2].StartMin)
}

func TestBuildExamSlotsRejectsBadClock(t *testing.T) {
	_, err := buildExamSlots(examGridParams{
		StartDate:    time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		WorkingHours: map[string]models.WorkingWindow{"monday": {StartTime: "9am", EndTime: "14:00"}},
		DurationMin:  60,
	})
	require.Error(t, err)
}

func weekSlots(t *testing.T) []examSlot {
	t.Helper()
	slots, err := buildExamSlots(examGridParams{
		StartDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC),
		WorkingHours: map[string]models.WorkingWindow{
			"monday":    {StartTime: "09:00", EndTime: "17:00"},
			"tuesday":   {StartTime: "09:00", EndTime: "17:00"},
			"wednesday": {StartTime: "09:00", EndTime: "17:00"},
			"thursday":  {StartTime: "09:00", EndTime: "17:00"},
			"friday":    {StartTime: "09:00", EndTime: "17:00"},
		},
		DurationMin: 120,
		BufferMin:   30,
	})
	require.NoError(t, err)
	return slots
}

func TestAllocateExamsShuffleBalancesLoad(t *testing.T) {
	cands := []examCandidate{
		examinee("c1", "Algebra", 1, "s1", "", 40),
		examinee("c2", "Biology", 1, "s2", "", 40),
		examinee("c3", "Chemistry", 1, "s3", "", 40),
		examinee("c4", "Databases", 2, "s4", "", 40),
		examinee("c5", "Electronics", 2, "s5", "", 40),
		examinee("c6", "Formal Methods", 2, "s6", "", 40),
	}
	result := allocateExams("session-1", cands, weekSlots(t), examRooms(3), examInstructors("i1", "i2", "i3"), models.InvigilatorModeShuffle, config.MatchFallbackFail, 120)
	require.Empty(t, result.Unassigned)
	require.Len(t, result.Exams, 6)

	load := map[string]int{}
	for _, exam := range result.Exams {
		load[exam.InvigilatorID]++
	}
	for id, count := range load {
		assert.Equal(t, 2, count, "invigilator %s", id)
	}
}

func TestAllocateExamsProcessesCoursesInCatalogOrder(t *testing.T) {
	cands := []examCandidate{
		examinee("c2", "Zoology", 1, "s2", "", 40),
		examinee("c3", "Algebra", 2, "s3", "", 40),
		examinee("c1", "Algebra", 1, "s1", "", 40),
	}
	result := allocateExams("session-1", cands, weekSlots(t), examRooms(1), examInstructors("i1"), models.InvigilatorModeShuffle, config.MatchFallbackFail, 120)
	require.Len(t, result.Exams, 3)
	// semester ascending, then name: Algebra(1), Zoology(1), Algebra(2)
	assert.Equal(t, "c1", result.Exams[0].CourseID)
	assert.Equal(t, "c2", result.Exams[1].CourseID)
	assert.Equal(t, "c3", result.Exams[2].CourseID)
	// one room and one invigilator force strictly increasing datetimes
	assert.True(t, result.Exams[0].ExamDate.Before(result.Exams[1].ExamDate) || result.Exams[0].StartTime < result.Exams[1].StartTime)
}

func TestAllocateExamsMatchUsesTeachingInstructor(t *testing.T) {
	cands := []examCandidate{
		examinee("c1", "Algebra", 1, "s1", "teacher-7", 40),
	}
	result := allocateExams("session-1", cands, weekSlots(t), examRooms(1), examInstructors("i1", "teacher-7"), models.InvigilatorModeMatch, config.MatchFallbackFail, 120)
	require.Len(t, result.Exams, 1)
	assert.Equal(t, "teacher-7", result.Exams[0].InvigilatorID)
}

func TestAllocateExamsMatchFailsWithoutTeacher(t *testing.T) {
	cands := []examCandidate{
		examinee("c1", "Algebra", 1, "s1", "", 40),
	}
	result := allocateExams("session-1", cands, weekSlots(t), examRooms(1), examInstructors("i1"), models.InvigilatorModeMatch, config.MatchFallbackFail, 120)
	assert.Empty(t, result.Exams)
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, examReasonNoInvigilator, result.Unassigned[0].Reason)
}

func TestAllocateExamsMatchRoundRobinFallback(t *testing.T) {
	cands := []examCandidate{
		examinee("c1", "Algebra", 1, "s1", "", 40),
		examinee("c2", "Biology", 1, "s2", "", 40),
	}
	result := allocateExams("session-1", cands, weekSlots(t), examRooms(2), examInstructors("i1", "i2"), models.InvigilatorModeMatch, config.MatchFallbackRoundRobin, 120)
	require.Len(t, result.Exams, 2)
	assert.Equal(t, "i1", result.Exams[0].InvigilatorID)
	assert.Equal(t, "i2", result.Exams[1].InvigilatorID)
}

func TestAllocateExamsReportsOversizedSection(t *testing.T) {
	cands := []examCandidate{
		examinee("c1", "Algebra", 1, "s1", "", 500),
	}
	result := allocateExams("session-1", cands, weekSlots(t), examRooms(1), examInstructors("i1"), models.InvigilatorModeShuffle, config.MatchFallbackFail, 120)
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, examReasonNoRoom, result.Unassigned[0].Reason)
}

func TestAllocateExamsExhaustedGridReportsConflict(t *testing.T) {
	slots := []examSlot{{Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), StartMin: 540}}
	cands := []examCandidate{
		examinee("c1", "Algebra", 1, "s1", "", 40),
		examinee("c2", "Biology", 1, "s2", "", 40),
	}
	result := allocateExams("session-1", cands, slots, examRooms(1), examInstructors("i1"), models.InvigilatorModeShuffle, config.MatchFallbackFail, 120)
	require.Len(t, result.Exams, 1)
	require.Len(t, result.Unassigned, 1)
	assert.Equal(t, examReasonNoDatetime, result.Unassigned[0].Reason)
}

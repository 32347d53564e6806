package service

import (
	"sort"
	"strings"
	"time"

	"github.com/gux-htm/EmersonSched-sub000/internal/models"
	"github.com/gux-htm/EmersonSched-sub000/pkg/config"
)

// examSlot is one candidate sitting start.
type examSlot struct {
	Date     time.Time
	StartMin int
}

// examCandidate is one (course, section) pair to examine. TeacherID is the
// instructor teaching that pair in the active block schedule, empty when the
// pair is not currently staffed.
type examCandidate struct {
	Course    models.Course
	Section   models.Section
	TeacherID string
}

// examAllocation is the result of one exam allocator pass.
type examAllocation struct {
	Exams      []models.Exam
	Unassigned []models.UnassignedExam
}

// examGridParams bounds the candidate datetime grid.
type examGridParams struct {
	StartDate    time.Time
	EndDate      time.Time
	WorkingHours map[string]models.WorkingWindow
	DurationMin  int
	BufferMin    int
}

const (
	examReasonNoRoom        = "no_room"
	examReasonNoInvigilator = "no_matching_invigilator"
	examReasonNoDatetime    = "no_free_datetime"
)

// buildExamSlots expands the session window into the ordered set of candidate
// sitting starts. Weekends and days absent from the working-hours map hold no
// exams; within a day, starts step by duration plus the inter-exam buffer.
func buildExamSlots(params examGridParams) ([]examSlot, error) {
	slots := []examSlot{}
	for day := params.StartDate; !day.After(params.EndDate); day = day.AddDate(0, 0, 1) {
		weekday := day.Weekday()
		if weekday == time.Saturday || weekday == time.Sunday {
			continue
		}
		window, ok := params.WorkingHours[strings.ToLower(weekday.String())]
		if !ok {
			continue
		}
		start, err := parseClock(window.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := parseClock(window.EndTime)
		if err != nil {
			return nil, err
		}
		for cursor := start; cursor+params.DurationMin <= end; cursor += params.DurationMin + params.BufferMin {
			slots = append(slots, examSlot{Date: day, StartMin: cursor})
		}
	}
	return slots, nil
}

// allocateExams places each (course, section) pair at the earliest candidate
// datetime offering both a free capacity-sufficient room and an available
// invigilator. Courses are processed in (semester, name, id) order; the run
// never aborts on a single unplaceable pair.
func allocateExams(sessionID string, candidates []examCandidate, slots []examSlot, rooms []models.Room, instructors []models.Instructor, mode models.InvigilatorMode, matchFallback string, durationMin int) examAllocation {
	result := examAllocation{
		Exams:      []models.Exam{},
		Unassigned: []models.UnassignedExam{},
	}

	ordered := make([]examCandidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Course.Semester != ordered[j].Course.Semester {
			return ordered[i].Course.Semester < ordered[j].Course.Semester
		}
		if ordered[i].Course.Name != ordered[j].Course.Name {
			return ordered[i].Course.Name < ordered[j].Course.Name
		}
		if ordered[i].Course.ID != ordered[j].Course.ID {
			return ordered[i].Course.ID < ordered[j].Course.ID
		}
		return ordered[i].Section.ID < ordered[j].Section.ID
	})

	sortedRooms := make([]models.Room, len(rooms))
	copy(sortedRooms, rooms)
	sort.SliceStable(sortedRooms, func(i, j int) bool {
		if sortedRooms[i].Capacity != sortedRooms[j].Capacity {
			return sortedRooms[i].Capacity > sortedRooms[j].Capacity
		}
		return sortedRooms[i].ID < sortedRooms[j].ID
	})
	maxCapacity := 0
	if len(sortedRooms) > 0 {
		maxCapacity = sortedRooms[0].Capacity
	}

	type datetimeKey struct {
		Date  string
		Start int
		Owner string
	}
	roomBusy := map[datetimeKey]struct{}{}
	invigilatorBusy := map[datetimeKey]struct{}{}
	sectionBusy := map[datetimeKey]struct{}{}
	load := map[string]int{}
	roundRobin := 0

	for _, cand := range ordered {
		if cand.Section.Size > maxCapacity {
			result.Unassigned = append(result.Unassigned, models.UnassignedExam{
				CourseID:  cand.Course.ID,
				SectionID: cand.Section.ID,
				Reason:    examReasonNoRoom,
			})
			continue
		}
		if mode == models.InvigilatorModeMatch && cand.TeacherID == "" && matchFallback != config.MatchFallbackRoundRobin {
			result.Unassigned = append(result.Unassigned, models.UnassignedExam{
				CourseID:  cand.Course.ID,
				SectionID: cand.Section.ID,
				Reason:    examReasonNoInvigilator,
			})
			continue
		}

		placed := false
		for _, slot := range slots {
			date := slot.Date.Format("2006-01-02")
			if _, busy := sectionBusy[datetimeKey{date, slot.StartMin, cand.Section.ID}]; busy {
				continue
			}

			roomID := ""
			for _, room := range sortedRooms {
				if room.Capacity < cand.Section.Size {
					break
				}
				if _, busy := roomBusy[datetimeKey{date, slot.StartMin, room.ID}]; !busy {
					roomID = room.ID
					break
				}
			}
			if roomID == "" {
				continue
			}

			invigilatorID := ""
			switch mode {
			case models.InvigilatorModeMatch:
				if cand.TeacherID != "" {
					if _, busy := invigilatorBusy[datetimeKey{date, slot.StartMin, cand.TeacherID}]; !busy {
						invigilatorID = cand.TeacherID
					}
				} else {
					invigilatorID, roundRobin = pickRoundRobin(instructors, roundRobin, func(id string) bool {
						_, busy := invigilatorBusy[datetimeKey{date, slot.StartMin, id}]
						return !busy
					})
				}
			case models.InvigilatorModeShuffle:
				invigilatorID = pickLeastLoaded(instructors, load, func(id string) bool {
					_, busy := invigilatorBusy[datetimeKey{date, slot.StartMin, id}]
					return !busy
				})
			}
			if invigilatorID == "" {
				continue
			}

			roomBusy[datetimeKey{date, slot.StartMin, roomID}] = struct{}{}
			invigilatorBusy[datetimeKey{date, slot.StartMin, invigilatorID}] = struct{}{}
			sectionBusy[datetimeKey{date, slot.StartMin, cand.Section.ID}] = struct{}{}
			load[invigilatorID]++
			result.Exams = append(result.Exams, models.Exam{
				SessionID:     sessionID,
				CourseID:      cand.Course.ID,
				SectionID:     cand.Section.ID,
				RoomID:        roomID,
				InvigilatorID: invigilatorID,
				ExamDate:      slot.Date,
				StartTime:     formatClock(slot.StartMin),
				EndTime:       formatClock(slot.StartMin + durationMin),
			})
			placed = true
			break
		}

		if !placed {
			result.Unassigned = append(result.Unassigned, models.UnassignedExam{
				CourseID:  cand.Course.ID,
				SectionID: cand.Section.ID,
				Reason:    examReasonNoDatetime,
			})
		}
	}

	return result
}

// pickLeastLoaded returns the free instructor with the fewest exams so far,
// ties broken by id. Instructors arrive ordered by id, so the first minimum
// wins the tie.
func pickLeastLoaded(instructors []models.Instructor, load map[string]int, free func(string) bool) string {
	best := ""
	bestLoad := -1
	for _, instructor := range instructors {
		if !free(instructor.ID) {
			continue
		}
		if bestLoad == -1 || load[instructor.ID] < bestLoad {
			best = instructor.ID
			bestLoad = load[instructor.ID]
		}
	}
	return best
}

// pickRoundRobin returns the next free instructor starting from the cursor,
// advancing the cursor past the pick.
func pickRoundRobin(instructors []models.Instructor, cursor int, free func(string) bool) (string, int) {
	if len(instructors) == 0 {
		return "", cursor
	}
	for i := 0; i < len(instructors); i++ {
		idx := (cursor + i) % len(instructors)
		if free(instructors[idx].ID) {
			return instructors[idx].ID, idx + 1
		}
	}
	return "", cursor
}

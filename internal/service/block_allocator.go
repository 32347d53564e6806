package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gux-htm/EmersonSched-sub000/internal/models"
)

// blockCandidate is one accepted request joined with the catalog rows the
// allocator needs to place it.
type blockCandidate struct {
	Request models.CourseRequest
	Course  models.Course
	Section models.Section
	Prefs   models.RequestPreferences
}

// creditSplit is the parsed "X+Y" credit-hours encoding.
type creditSplit struct {
	Theory int
	Lab    int
}

func (c creditSplit) total() int { return c.Theory + c.Lab }

// parseCreditHours accepts "X+Y" or a bare "X" (all theory). Units must be
// non-negative and at least one must be positive.
func parseCreditHours(raw string) (creditSplit, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), "+", 2)
	theory, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || theory < 0 {
		return creditSplit{}, fmt.Errorf("invalid credit hours %q", raw)
	}
	lab := 0
	if len(parts) == 2 {
		lab, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || lab < 0 {
			return creditSplit{}, fmt.Errorf("invalid credit hours %q", raw)
		}
	}
	if theory+lab == 0 {
		return creditSplit{}, fmt.Errorf("invalid credit hours %q", raw)
	}
	return creditSplit{Theory: theory, Lab: lab}, nil
}

// occupancyKey marks one owner (room, instructor or section) as busy at one
// (day, time slot) position.
type occupancyKey struct {
	Day    int
	SlotID string
	Owner  string
}

// blockAllocation is the result of one allocator pass.
type blockAllocation struct {
	Blocks     []models.Block
	Unassigned []models.UnassignedRequest
	Committed  []string
}

// allocateBlocks runs the deterministic greedy pass. It is pure: callers load
// the snapshot, this function only computes. Requests are placed in priority
// order (most slot-units first, then largest section, then request id) and
// each request is all-or-nothing: a request that cannot receive every unit it
// needs releases its tentative placements and is reported unassigned.
func allocateBlocks(candidates []blockCandidate, rooms []models.Room, slotsByShift map[models.Shift][]models.TimeSlot, workingDays []int) blockAllocation {
	result := blockAllocation{
		Blocks:     []models.Block{},
		Unassigned: []models.UnassignedRequest{},
		Committed:  []string{},
	}

	type queued struct {
		blockCandidate
		Credits creditSplit
	}
	queue := make([]queued, 0, len(candidates))
	for _, cand := range candidates {
		credits, err := parseCreditHours(cand.Course.CreditHours)
		if err != nil {
			result.Unassigned = append(result.Unassigned, models.UnassignedRequest{
				RequestID: cand.Request.ID,
				CourseID:  cand.Course.ID,
				SectionID: cand.Section.ID,
				Reason:    models.UnassignedBadCreditFormat,
				Detail:    err.Error(),
			})
			continue
		}
		queue = append(queue, queued{blockCandidate: cand, Credits: credits})
	}

	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].Credits.total() != queue[j].Credits.total() {
			return queue[i].Credits.total() > queue[j].Credits.total()
		}
		if queue[i].Section.Size != queue[j].Section.Size {
			return queue[i].Section.Size > queue[j].Section.Size
		}
		return queue[i].Request.ID < queue[j].Request.ID
	})

	sortedRooms := make([]models.Room, len(rooms))
	copy(sortedRooms, rooms)
	sort.SliceStable(sortedRooms, func(i, j int) bool {
		if sortedRooms[i].Capacity != sortedRooms[j].Capacity {
			return sortedRooms[i].Capacity > sortedRooms[j].Capacity
		}
		return sortedRooms[i].ID < sortedRooms[j].ID
	})

	roomUsed := map[occupancyKey]struct{}{}
	teacherUsed := map[occupancyKey]struct{}{}
	sectionUsed := map[occupancyKey]struct{}{}

	for _, item := range queue {
		instructorID := ""
		if item.Request.InstructorID != nil {
			instructorID = *item.Request.InstructorID
		}

		components := []struct {
			Kind  models.BlockComponent
			Units int
			Type  models.RoomType
		}{
			{models.BlockComponentTheory, item.Credits.Theory, models.RoomTypeLecture},
			{models.BlockComponentLab, item.Credits.Lab, models.RoomTypeLab},
		}

		days := normalizeDays(item.Prefs.Days)
		if len(days) == 0 {
			days = normalizeDays(workingDays)
		}
		slots := eligibleSlots(slotsByShift[item.Request.Shift], item.Prefs.SlotIDs)

		tentative := []models.Block{}
		tentativeKeys := []struct{ room, teacher, section occupancyKey }{}
		teacherBlocked := false
		failed := models.UnassignedReason("")

	componentLoop:
		for _, component := range components {
			if component.Units == 0 {
				continue
			}
			room, ok := pickRoom(sortedRooms, component.Type, item.Section.Size)
			if !ok {
				failed = models.UnassignedNoRoom
				break componentLoop
			}

			placed := 0
			for _, day := range days {
				for _, slot := range slots {
					if placed == component.Units {
						break
					}
					if slot.DayOfWeek != nil && *slot.DayOfWeek != day {
						continue
					}
					roomKey := occupancyKey{Day: day, SlotID: slot.ID, Owner: room.ID}
					teacherKey := occupancyKey{Day: day, SlotID: slot.ID, Owner: instructorID}
					sectionKey := occupancyKey{Day: day, SlotID: slot.ID, Owner: item.Section.ID}
					_, roomBusy := roomUsed[roomKey]
					_, teacherBusy := teacherUsed[teacherKey]
					_, sectionBusy := sectionUsed[sectionKey]
					if teacherBusy && !roomBusy && !sectionBusy {
						teacherBlocked = true
					}
					if roomBusy || teacherBusy || sectionBusy {
						continue
					}
					roomUsed[roomKey] = struct{}{}
					teacherUsed[teacherKey] = struct{}{}
					sectionUsed[sectionKey] = struct{}{}
					tentativeKeys = append(tentativeKeys, struct{ room, teacher, section occupancyKey }{roomKey, teacherKey, sectionKey})
					tentative = append(tentative, models.Block{
						CourseID:     item.Course.ID,
						SectionID:    item.Section.ID,
						InstructorID: instructorID,
						RoomID:       room.ID,
						DayOfWeek:    day,
						TimeSlotID:   slot.ID,
						Shift:        item.Request.Shift,
						Component:    component.Kind,
					})
					placed++
				}
				if placed == component.Units {
					break
				}
			}
			if placed < component.Units {
				if teacherBlocked {
					failed = models.UnassignedTeacherConflict
				} else {
					failed = models.UnassignedNoSlot
				}
				break componentLoop
			}
		}

		if failed != "" {
			for _, keys := range tentativeKeys {
				delete(roomUsed, keys.room)
				delete(teacherUsed, keys.teacher)
				delete(sectionUsed, keys.section)
			}
			result.Unassigned = append(result.Unassigned, models.UnassignedRequest{
				RequestID: item.Request.ID,
				CourseID:  item.Course.ID,
				SectionID: item.Section.ID,
				Reason:    failed,
			})
			continue
		}

		result.Blocks = append(result.Blocks, tentative...)
		result.Committed = append(result.Committed, item.Request.ID)
	}

	return result
}

// pickRoom returns the largest capacity-sufficient room of the required type.
// One room per component keeps placements predictable across the scan.
func pickRoom(roomsByCapacity []models.Room, roomType models.RoomType, size int) (models.Room, bool) {
	for _, room := range roomsByCapacity {
		if room.Type == roomType && room.Capacity >= size {
			return room, true
		}
	}
	return models.Room{}, false
}

// eligibleSlots filters a shift's chronologically ordered slots down to the
// requested ids, preserving order. An empty filter keeps every slot.
func eligibleSlots(slots []models.TimeSlot, slotIDs []string) []models.TimeSlot {
	if len(slotIDs) == 0 {
		return slots
	}
	wanted := make(map[string]struct{}, len(slotIDs))
	for _, id := range slotIDs {
		wanted[id] = struct{}{}
	}
	filtered := make([]models.TimeSlot, 0, len(slotIDs))
	for _, slot := range slots {
		if _, ok := wanted[slot.ID]; ok {
			filtered = append(filtered, slot)
		}
	}
	return filtered
}

package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const taskSeparator = "-task-"

var (
	trackIDRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	legacyDayRe = regexp.MustCompile(`^(\d+)-(\d+)$`)
	legacyTask  = regexp.MustCompile(`^(\d+)-(\d+)-task-(\d+)$`)
)

// DayKey identifies one curriculum day of a track. It encodes as "{track}-{day}".
type DayKey struct {
	Track string
	Day   int
}

// String encodes the key.
func (k DayKey) String() string {
	return k.Track + "-" + strconv.Itoa(k.Day)
}

// TaskPrefix is the prefix every task key of this day starts with.
func (k DayKey) TaskPrefix() string {
	return k.String() + taskSeparator
}

// Task returns the key of the index-th task of this day.
func (k DayKey) Task(index int) TaskKey {
	return TaskKey{Track: k.Track, Day: k.Day, Index: index}
}

// ParseDayKey decodes "{track}-{day}". The day is taken after the last '-', so
// it must be a positive integer; the track is everything before it.
func ParseDayKey(s string) (DayKey, error) {
	if strings.Contains(s, taskSeparator) {
		return DayKey{}, fmt.Errorf("day key %q: looks like a task key", s)
	}
	idx := strings.LastIndex(s, "-")
	if idx <= 0 || idx == len(s)-1 {
		return DayKey{}, fmt.Errorf("day key %q: want {track}-{day}", s)
	}
	day, err := strconv.Atoi(s[idx+1:])
	if err != nil || day < 1 {
		return DayKey{}, fmt.Errorf("day key %q: day must be a positive integer", s)
	}
	return DayKey{Track: s[:idx], Day: day}, nil
}

// TaskKey identifies one task of a curriculum day. It encodes as "{track}-{day}-task-{index}".
type TaskKey struct {
	Track string
	Day   int
	Index int
}

// String encodes the key.
func (k TaskKey) String() string {
	return k.DayKey().TaskPrefix() + strconv.Itoa(k.Index)
}

// DayKey returns the day this task belongs to.
func (k TaskKey) DayKey() DayKey {
	return DayKey{Track: k.Track, Day: k.Day}
}

// ParseTaskKey decodes "{track}-{day}-task-{index}".
func ParseTaskKey(s string) (TaskKey, error) {
	idx := strings.LastIndex(s, taskSeparator)
	if idx <= 0 {
		return TaskKey{}, fmt.Errorf("task key %q: want {track}-{day}-task-{index}", s)
	}
	day, err := ParseDayKey(s[:idx])
	if err != nil {
		return TaskKey{}, fmt.Errorf("task key %q: %w", s, err)
	}
	index, err := strconv.Atoi(s[idx+len(taskSeparator):])
	if err != nil || index < 0 {
		return TaskKey{}, fmt.Errorf("task key %q: index must be a non-negative integer", s)
	}
	return day.Task(index), nil
}

// ValidTrackID reports whether id can be used as a track identifier on the wire.
func ValidTrackID(id string) bool {
	return trackIDRe.MatchString(id)
}

// MigrateLegacyKey rewrites the old numeric "{week}-{day}" and
// "{week}-{day}-task-{i}" keys into the canonical scheme under defaultTrack.
// Day ids in the old scheme were numbered across the whole curriculum, so the
// week segment is dropped. Any other key is returned unchanged.
func MigrateLegacyKey(key, defaultTrack string) (string, bool) {
	if m := legacyTask.FindStringSubmatch(key); m != nil {
		day, _ := strconv.Atoi(m[2])
		index, _ := strconv.Atoi(m[3])
		if day < 1 {
			return key, false
		}
		return TaskKey{Track: defaultTrack, Day: day, Index: index}.String(), true
	}
	if m := legacyDayRe.FindStringSubmatch(key); m != nil {
		day, _ := strconv.Atoi(m[2])
		if day < 1 {
			return key, false
		}
		return DayKey{Track: defaultTrack, Day: day}.String(), true
	}
	return key, false
}

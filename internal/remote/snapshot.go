package remote

import (
	"context"
	"reflect"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vytor/prepportal/internal/models"
)

// pushConcurrency bounds the number of in-flight per-day upserts.
const pushConcurrency = 4

// Snapshot is the remote side of one reconciliation.
type Snapshot struct {
	Days  []models.DayProgress
	Stats *models.RemoteStats
}

// Timestamp is the remote last activity, or zero when the backend has none.
func (s *Snapshot) Timestamp() time.Time {
	return s.Stats.LastActivityTime()
}

// FetchSnapshot loads progress and stats concurrently. track may be empty for all tracks.
func FetchSnapshot(ctx context.Context, s Store, track string) (*Snapshot, error) {
	snap := &Snapshot{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		days, err := s.FetchProgress(gctx, track)
		snap.Days = days
		return err
	})
	g.Go(func() error {
		stats, err := s.FetchStats(gctx)
		snap.Stats = stats
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Record converts the snapshot into a canonical record tagged database.
// Each row contributes "{track}-{day}" to CompletedDays and its task flags to
// Tasks. Numeric task ids become "{track}-{day}-task-{i}"; ids that already
// are full task keys are kept as they are.
func (s *Snapshot) Record() *models.ProgressRecord {
	rec := models.NewProgressRecord()
	rec.Source = models.SourceDatabase
	for _, row := range s.Days {
		day := row.Key()
		rec.CompletedDays[day.String()] = row.Completed
		for id, done := range row.TasksCompleted {
			rec.Tasks[taskKey(day, id)] = done
		}
	}
	if ts := s.Timestamp(); !ts.IsZero() {
		rec.LastSynced = &ts
	}
	rec.Analytics = s.Stats.Analytics()
	return rec
}

func taskKey(day models.DayKey, id string) string {
	if i, err := strconv.Atoi(id); err == nil && i >= 0 {
		return day.Task(i).String()
	}
	if _, err := models.ParseTaskKey(id); err == nil {
		return id
	}
	return day.TaskPrefix() + id
}

// DayEntry is one per-day upsert derived from a local record.
type DayEntry struct {
	Day    models.DayKey
	Update models.DayUpdate
}

// Entries converts a record into per-day upserts, ordered by track then day.
// A day is sent when it appears in CompletedDays or has at least one task.
// Keys that do not decode as canonical keys of a valid track are returned in
// skipped and never sent.
func Entries(rec *models.ProgressRecord) (entries []DayEntry, skipped []string) {
	byDay := make(map[models.DayKey]*models.DayUpdate)
	get := func(k models.DayKey) *models.DayUpdate {
		u, ok := byDay[k]
		if !ok {
			u = &models.DayUpdate{TasksCompleted: models.TaskFlags{}}
			byDay[k] = u
		}
		return u
	}

	for key, done := range rec.CompletedDays {
		k, err := models.ParseDayKey(key)
		if err != nil || !models.ValidTrackID(k.Track) {
			skipped = append(skipped, key)
			continue
		}
		get(k).Completed = done
	}
	for key, done := range rec.Tasks {
		k, err := models.ParseTaskKey(key)
		if err != nil || !models.ValidTrackID(k.Track) {
			skipped = append(skipped, key)
			continue
		}
		get(k.DayKey()).TasksCompleted[strconv.Itoa(k.Index)] = done
	}

	entries = make([]DayEntry, 0, len(byDay))
	for k, u := range byDay {
		entries = append(entries, DayEntry{Day: k, Update: *u})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Day.Track != entries[j].Day.Track {
			return entries[i].Day.Track < entries[j].Day.Track
		}
		return entries[i].Day.Day < entries[j].Day.Day
	})
	sort.Strings(skipped)
	return entries, skipped
}

// InSync reports whether pushing rec would leave a remote holding current
// unchanged: both produce the same per-day upserts. Keys that are never sent
// do not count.
func InSync(rec, current *models.ProgressRecord) bool {
	want, _ := Entries(rec)
	have, _ := Entries(current)
	return reflect.DeepEqual(want, have)
}

// PushRecord upserts every entry of rec. It returns the latest server
// timestamp among the stored rows, which is zero when nothing was sent.
func PushRecord(ctx context.Context, s Store, rec *models.ProgressRecord) (time.Time, error) {
	entries, _ := Entries(rec)

	stamps := make([]time.Time, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pushConcurrency)
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			stored, err := s.UpdateProgress(gctx, e.Day.Track, e.Day.Day, e.Update)
			if err != nil {
				return err
			}
			if stored != nil {
				if t, perr := time.Parse(models.TimestampLayout, stored.UpdatedAt); perr == nil {
					stamps[i] = t
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return time.Time{}, err
	}

	var latest time.Time
	for _, t := range stamps {
		if t.After(latest) {
			latest = t
		}
	}
	return latest, nil
}

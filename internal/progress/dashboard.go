package progress

import (
	"context"

	"github.com/google/uuid"

	"github.com/vytor/prepportal/internal/gamification"
	"github.com/vytor/prepportal/internal/logger"
	"github.com/vytor/prepportal/internal/models"
	"github.com/vytor/prepportal/internal/notice"
)

// LoadDashboard reads the dashboard, substituting defaults when it is absent or
// corrupt, recomputes the streak for today and persists the result.
func (s *Store) LoadDashboard(ctx context.Context) *models.DashboardRecord {
	log := logger.FromContext(ctx).WithPrefix("progress_store")

	d := s.readDashboard(ctx)
	if gamification.UpdateStreak(d, s.clock.Now()) {
		log.Debug("streak recomputed: current=%d longest=%d", d.Streak.Current, d.Streak.Longest)
	}
	if err := s.SaveDashboard(ctx, d); err != nil {
		log.Warn("failed to persist dashboard after load: %v", err)
	}
	return d
}

func (s *Store) readDashboard(ctx context.Context) *models.DashboardRecord {
	log := logger.FromContext(ctx).WithPrefix("progress_store")

	raw, ok, err := s.kv.Get(ctx, KeyDashboard)
	if err != nil {
		log.Error("failed to read dashboard: %v", err)
		return models.NewDashboardRecord()
	}
	if !ok {
		return models.NewDashboardRecord()
	}
	d, err := ParseDashboard([]byte(raw))
	if err != nil {
		log.Warn("dashboard data is corrupt, replacing with defaults: %v", err)
		s.notifier.Notify(ctx, notice.Notice{
			Level:       notice.Warning,
			Kind:        NoticeCorruptData,
			Message:     "Dashboard data was corrupt and has been reset.",
			Remediation: "Import a previous export to restore your streaks and achievements.",
		})
		return models.NewDashboardRecord()
	}
	return d
}

// SaveDashboard validates and writes the dashboard locally.
func (s *Store) SaveDashboard(ctx context.Context, d *models.DashboardRecord) error {
	if err := ValidateDashboard(d); err != nil {
		return err
	}
	return s.write(ctx, KeyDashboard, d, DashboardWarnBytes)
}

// LoadSettings reads the settings object. A device id is assigned on first use.
func (s *Store) LoadSettings(ctx context.Context) models.Settings {
	log := logger.FromContext(ctx).WithPrefix("progress_store")

	settings := models.Settings{}
	raw, ok, err := s.kv.Get(ctx, KeySettings)
	switch {
	case err != nil:
		log.Error("failed to read settings: %v", err)
	case ok:
		if parsed, perr := ParseSettings([]byte(raw)); perr == nil {
			settings = parsed
		} else {
			log.Warn("settings are corrupt, using defaults: %v", perr)
		}
	}

	if id, _ := settings[models.SettingDeviceID].(string); id == "" {
		settings[models.SettingDeviceID] = uuid.NewString()
		if err := s.SaveSettings(ctx, settings); err != nil {
			log.Warn("failed to persist new device id: %v", err)
		}
	}
	return settings
}

// SaveSettings writes the settings object locally.
func (s *Store) SaveSettings(ctx context.Context, settings models.Settings) error {
	if settings == nil {
		settings = models.Settings{}
	}
	return s.write(ctx, KeySettings, settings, DashboardWarnBytes)
}

// Reset replaces all three records with defaults. The device id survives.
func (s *Store) Reset(ctx context.Context) (*models.ProgressRecord, *models.DashboardRecord, error) {
	deviceID, _ := s.LoadSettings(ctx)[models.SettingDeviceID].(string)

	rec := models.NewProgressRecord()
	if err := s.SaveLocal(ctx, rec); err != nil {
		return nil, nil, err
	}
	d := models.NewDashboardRecord()
	if err := s.SaveDashboard(ctx, d); err != nil {
		return nil, nil, err
	}
	settings := models.Settings{}
	if deviceID != "" {
		settings[models.SettingDeviceID] = deviceID
	}
	if err := s.SaveSettings(ctx, settings); err != nil {
		return nil, nil, err
	}
	return rec, d, nil
}

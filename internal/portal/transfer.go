package portal

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/mod/semver"

	"github.com/vytor/prepportal/internal/errors"
	"github.com/vytor/prepportal/internal/events"
	"github.com/vytor/prepportal/internal/logger"
	"github.com/vytor/prepportal/internal/models"
	"github.com/vytor/prepportal/internal/progress"
)

const recordExport = "export"

// Export serializes the three records into a backup document.
func (p *Portal) Export(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.requireStarted(); err != nil {
		return nil, err
	}

	progressJSON, err := json.Marshal(p.progress)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	dashboardJSON, err := json.Marshal(p.dashboard)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	settingsJSON, err := json.Marshal(p.settings)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	doc := models.ExportDocument{
		Progress:      progressJSON,
		DashboardData: dashboardJSON,
		Settings:      settingsJSON,
		ExportedAt:    p.clock.Now().UTC().Format(time.RFC3339),
		Version:       models.ExportVersion,
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.NewInternalError(err)
	}
	logger.FromContext(ctx).WithPrefix("portal").Info("exported %d bytes", len(out))
	return out, nil
}

// CompatibleVersion reports whether an export written at version can be
// imported: it must be valid semver with the current major version.
func CompatibleVersion(version string) bool {
	v := "v" + version
	return semver.IsValid(v) && semver.Major(v) == semver.Major("v"+models.ExportVersion)
}

// Import replaces all three records with the contents of a backup document.
// Every section is validated before anything is written, and a failed write
// restores what was there before, so the import either fully applies or
// leaves the existing state as it was.
func (p *Portal) Import(ctx context.Context, data []byte) error {
	log := logger.FromContext(ctx).WithPrefix("portal")

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.NewShapeValidationError(recordExport, "not a JSON object")
	}
	for _, section := range []string{"progress", "dashboardData", "settings", "version"} {
		if raw, ok := doc[section]; !ok || len(raw) == 0 || string(raw) == "null" {
			return errors.NewShapeValidationError(recordExport, "missing "+section)
		}
	}
	var version string
	if err := json.Unmarshal(doc["version"], &version); err != nil || !CompatibleVersion(version) {
		return errors.NewShapeValidationError(recordExport, "unsupported version "+string(doc["version"]))
	}

	rec, err := progress.ParseProgress(doc["progress"])
	if err != nil {
		return err
	}
	d, err := progress.ParseDashboard(doc["dashboardData"])
	if err != nil {
		return err
	}
	settings, err := progress.ParseSettings(doc["settings"])
	if err != nil {
		return err
	}

	p.mu.Lock()
	if err := p.requireStarted(); err != nil {
		p.mu.Unlock()
		return err
	}
	prevProgress, prevDashboard, prevSettings := p.progress, p.dashboard, p.settings

	if id, _ := settings[models.SettingDeviceID].(string); id == "" {
		if current, _ := prevSettings[models.SettingDeviceID].(string); current != "" {
			settings[models.SettingDeviceID] = current
		}
	}
	rec.Source = models.SourceLocal

	err = p.store.Commit(ctx, rec)
	if err == nil {
		err = p.store.SaveDashboard(ctx, d)
	}
	if err == nil {
		err = p.store.SaveSettings(ctx, settings)
	}
	if err != nil {
		log.Warn("import failed while writing, restoring previous state: %v", err)
		p.restore(ctx, prevProgress, prevDashboard, prevSettings)
		p.mu.Unlock()
		return err
	}
	p.progress, p.dashboard, p.settings = rec, d, settings
	p.mu.Unlock()

	log.Info("imported %d days, %d tasks (export version %s)", len(rec.CompletedDays), len(rec.Tasks), version)
	p.bus.Publish(ctx, events.ProgressChanged{Kind: events.KindImported})
	return nil
}

func (p *Portal) restore(ctx context.Context, rec *models.ProgressRecord, d *models.DashboardRecord, settings models.Settings) {
	log := logger.FromContext(ctx).WithPrefix("portal")
	if err := p.store.SaveLocal(ctx, rec); err != nil {
		log.Error("failed to restore progress: %v", err)
	}
	if err := p.store.SaveDashboard(ctx, d); err != nil {
		log.Error("failed to restore dashboard: %v", err)
	}
	if err := p.store.SaveSettings(ctx, settings); err != nil {
		log.Error("failed to restore settings: %v", err)
	}
}

// Reset replaces every record with defaults, locally and, when reachable, on
// the remote. Achievements are only ever cleared here.
func (p *Portal) Reset(ctx context.Context) error {
	log := logger.FromContext(ctx).WithPrefix("portal")

	p.mu.Lock()
	if err := p.requireStarted(); err != nil {
		p.mu.Unlock()
		return err
	}
	rec, d, err := p.store.Reset(ctx)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.progress, p.dashboard = rec, d
	p.settings = p.store.LoadSettings(ctx)
	p.mu.Unlock()

	if p.store.RemoteReady() {
		if rerr := p.store.Remote().ResetProgress(ctx); rerr != nil {
			log.Warn("remote reset failed, remote progress kept: %v", rerr)
		} else {
			p.mu.Lock()
			p.lastSync = p.clock.Now()
			p.mu.Unlock()
		}
	}
	log.Info("progress reset")
	p.bus.Publish(ctx, events.ProgressChanged{Kind: events.KindReset})
	return nil
}

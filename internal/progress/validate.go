package progress

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vytor/prepportal/internal/errors"
	"github.com/vytor/prepportal/internal/models"
)

const (
	recordProgress  = "progress"
	recordDashboard = "dashboard"
	recordSettings  = "settings"
)

// Validate is a structural check: the record exists and both maps are present.
// Value-level invariants are not checked.
func Validate(r *models.ProgressRecord) error {
	if r == nil {
		return errors.NewShapeValidationError(recordProgress, "record is missing")
	}
	if r.CompletedDays == nil {
		return errors.NewShapeValidationError(recordProgress, "completedDays is missing")
	}
	if r.Tasks == nil {
		return errors.NewShapeValidationError(recordProgress, "tasks is missing")
	}
	return nil
}

// ParseProgress decodes and structurally validates a serialized record.
// completedDays and tasks must both be present as objects of booleans.
func ParseProgress(data []byte) (*models.ProgressRecord, error) {
	obj, err := object(recordProgress, data)
	if err != nil {
		return nil, err
	}
	for _, field := range []string{"completedDays", "tasks"} {
		if err := boolMap(obj, field); err != nil {
			return nil, err
		}
	}
	var r models.ProgressRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.NewShapeValidationError(recordProgress, err.Error())
	}
	if err := Validate(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ValidateDashboard is the structural check for the dashboard record.
func ValidateDashboard(d *models.DashboardRecord) error {
	if d == nil {
		return errors.NewShapeValidationError(recordDashboard, "record is missing")
	}
	return nil
}

// ParseDashboard decodes a serialized dashboard. streak, studyTime and questions
// must be objects; everything missing inside them is filled with defaults.
func ParseDashboard(data []byte) (*models.DashboardRecord, error) {
	obj, err := object(recordDashboard, data)
	if err != nil {
		return nil, err
	}
	for _, field := range []string{"streak", "studyTime", "questions"} {
		raw, ok := obj[field]
		if !ok || !isObject(raw) {
			return nil, errors.NewShapeValidationError(recordDashboard, field+" must be an object")
		}
	}
	d := models.NewDashboardRecord()
	if err := json.Unmarshal(data, d); err != nil {
		return nil, errors.NewShapeValidationError(recordDashboard, err.Error())
	}
	d.Normalize()
	return d, nil
}

// ParseSettings decodes a settings object.
func ParseSettings(data []byte) (models.Settings, error) {
	if _, err := object(recordSettings, data); err != nil {
		return nil, err
	}
	s := models.Settings{}
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.NewShapeValidationError(recordSettings, err.Error())
	}
	return s, nil
}

func object(record string, data []byte) (map[string]json.RawMessage, error) {
	if !isObject(data) {
		return nil, errors.NewShapeValidationError(record, "not a JSON object")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, errors.NewShapeValidationError(record, err.Error())
	}
	return obj, nil
}

func boolMap(obj map[string]json.RawMessage, field string) error {
	raw, ok := obj[field]
	if !ok || !isObject(raw) {
		return errors.NewShapeValidationError(recordProgress, field+" must be an object")
	}
	var m map[string]bool
	if err := json.Unmarshal(raw, &m); err != nil {
		return errors.NewShapeValidationError(recordProgress, fmt.Sprintf("%s must map to booleans", field))
	}
	return nil
}

func isObject(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '{'
}

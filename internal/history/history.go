// Package history stores prediction results so the web UI can show
// past classifications and aggregate statistics.
package history

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"
)

// History is the prediction record store.
type History struct {
	log logs.Log
	db  *gorm.DB
}

// Open opens or creates the history database.
func Open(log logs.Log, dbFilename string) (*History, error) {
	os.MkdirAll(filepath.Dir(dbFilename), 0770)
	db, err := dbh.OpenDB(log, dbh.MakeSqliteConfig(dbFilename), Migrations(log), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open history database %v: %w", dbFilename, err)
	}
	return &History{log: log, db: db}, nil
}

// Add stores one prediction.
func (h *History) Add(rec *Record) error {
	return h.db.Create(rec).Error
}

// Latest returns up to limit records, newest first. Image payloads are
// omitted; fetch a single record to get one.
func (h *History) Latest(limit int) ([]Record, error) {
	var recs []Record
	err := h.db.
		Select("id", "filename", "prediction", "confidence", "raw_score", "time").
		Order("time DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

// Get returns one record including its image payload, or nil if no
// such record exists.
func (h *History) Get(id int64) (*Record, error) {
	var rec Record
	err := h.db.First(&rec, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Stats aggregates over all stored records.
func (h *History) Stats() (*Stats, error) {
	s := &Stats{}
	if err := h.db.Model(&Record{}).Count(&s.Total).Error; err != nil {
		return nil, err
	}
	if err := h.db.Model(&Record{}).Where("prediction = ?", "LIGHTS ON").Count(&s.LightsOn).Error; err != nil {
		return nil, err
	}
	if err := h.db.Model(&Record{}).Where("prediction = ?", "LIGHTS OFF").Count(&s.LightsOff).Error; err != nil {
		return nil, err
	}
	if s.Total > 0 {
		var avg *float64
		if err := h.db.Model(&Record{}).Select("AVG(confidence)").Scan(&avg).Error; err != nil {
			return nil, err
		}
		if avg != nil {
			s.AverageConfidence = *avg
		}
	}
	return s, nil
}

// Clear deletes all records and returns how many were removed.
func (h *History) Clear() (int64, error) {
	res := h.db.Where("1 = 1").Delete(&Record{})
	return res.RowsAffected, res.Error
}

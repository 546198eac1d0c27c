package history

import (
	"github.com/cyclopcam/dbh"
)

// BaseModel is our base class for a GORM model, with an int64 ID.
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

// Record is one stored prediction, including the original encoded
// image so past results can be reviewed.
type Record struct {
	BaseModel
	Filename   string      `json:"filename"`
	Prediction string      `json:"prediction"` // LIGHTS ON / LIGHTS OFF
	Confidence float64     `json:"confidence"`
	RawScore   float64     `json:"rawScore"`
	Time       dbh.IntTime `json:"time"`
	Image      []byte      `json:"-"` // original encoded upload
}

// Stats are the aggregates served by the stats endpoint.
type Stats struct {
	Total             int64   `json:"total_predictions"`
	LightsOn          int64   `json:"lights_on_count"`
	LightsOff         int64   `json:"lights_off_count"`
	AverageConfidence float64 `json:"average_confidence"`
}

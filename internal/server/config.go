package server

// Config is the server's JSON config file.
type Config struct {
	Artifact    string  `json:"artifact"`    // trained model artifact path
	HistoryDB   string  `json:"historyDB"`   // sqlite file for prediction history
	UploadDir   string  `json:"uploadDir"`   // where uploaded images are kept
	Threshold   float32 `json:"threshold"`   // decision threshold, 0 means default
	MaxUploadMB int64   `json:"maxUploadMB"` // max upload size, 0 means 16
}

func (c *Config) applyDefaults() {
	if c.Artifact == "" {
		c.Artifact = "light_detection_model.bin"
	}
	if c.HistoryDB == "" {
		c.HistoryDB = "history.sqlite"
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.MaxUploadMB == 0 {
		c.MaxUploadMB = 16
	}
}

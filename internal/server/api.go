package server

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"

	"github.com/Mahdi-Kalfat/IdeaTon/internal/history"
	"github.com/Mahdi-Kalfat/IdeaTon/internal/imgproc"
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

func (s *Server) setupHttpRoutes() error {
	router := httprouter.New()

	www.Handle(s.Log, router, "GET", "/health", s.httpHealth)
	www.Handle(s.Log, router, "POST", "/api/predict", s.httpPredict)
	www.Handle(s.Log, router, "GET", "/api/history", s.httpHistory)
	www.Handle(s.Log, router, "GET", "/api/prediction/:id", s.httpGetPrediction)
	www.Handle(s.Log, router, "GET", "/api/stats", s.httpStats)
	www.Handle(s.Log, router, "DELETE", "/api/clear-history", s.httpClearHistory)
	www.Handle(s.Log, router, "GET", "/uploads/:filename", s.httpUploadedFile)

	s.httpRouter = router
	return nil
}

func (s *Server) httpHealth(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.SendJSON(w, map[string]any{
		"status":       "ok",
		"model_loaded": true,
	})
}

// predictResponse mirrors the record plus the URL of the saved upload.
type predictResponse struct {
	ID         int64   `json:"id"`
	Filename   string  `json:"filename"`
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
	RawScore   float64 `json:"raw_score"`
	Timestamp  string  `json:"timestamp"`
	ImageURL   string  `json:"image_url"`
}

func (s *Server) httpPredict(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	www.CheckClient(r.ParseMultipartForm(s.cfg.MaxUploadMB << 20))
	file, header, err := r.FormFile("file")
	if err != nil {
		www.PanicBadRequestf("No file provided")
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		www.PanicBadRequestf("Invalid file type '%v'. Allowed: PNG, JPG, JPEG, GIF, BMP, WEBP", ext)
	}

	raw, err := io.ReadAll(file)
	www.Check(err)

	threshold := s.threshold()
	if tq := www.QueryValue(r, "threshold"); tq != "" {
		t64, err := strconv.ParseFloat(tq, 32)
		if err != nil || t64 < 0 || t64 > 1 {
			www.PanicBadRequestf("Invalid threshold '%v'", tq)
		}
		threshold = float32(t64)
	}

	pred, err := s.detector.Predict(raw, threshold)
	if _, isDecode := err.(*imgproc.DecodeError); isDecode {
		www.PanicBadRequestf("%v", err)
	}
	www.Check(err)

	now := time.Now()
	storedName := now.Format("20060102_150405") + "_" + filename
	www.Check(os.WriteFile(filepath.Join(s.cfg.UploadDir, storedName), raw, 0660))

	rec := &history.Record{
		Filename:   filename,
		Prediction: pred.Label,
		Confidence: pred.Confidence,
		RawScore:   pred.RawScore,
		Time:       dbh.MakeIntTime(now),
		Image:      raw,
	}
	www.Check(s.history.Add(rec))

	www.SendJSON(w, &predictResponse{
		ID:         rec.ID,
		Filename:   filename,
		Prediction: pred.Label,
		Confidence: round2(pred.Confidence),
		RawScore:   round4(pred.RawScore),
		Timestamp:  now.Format(time.RFC3339),
		ImageURL:   "/uploads/" + storedName,
	})
}

type historyItem struct {
	ID         int64   `json:"id"`
	Filename   string  `json:"filename"`
	Prediction string  `json:"prediction"`
	Confidence float64 `json:"confidence"`
	RawScore   float64 `json:"raw_score"`
	Timestamp  string  `json:"timestamp"`
}

func (s *Server) httpHistory(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	limit := www.QueryInt(r, "limit")
	if limit <= 0 {
		limit = 50
	}
	recs, err := s.history.Latest(limit)
	www.Check(err)
	items := make([]historyItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, historyItem{
			ID:         rec.ID,
			Filename:   rec.Filename,
			Prediction: rec.Prediction,
			Confidence: round2(rec.Confidence),
			RawScore:   round4(rec.RawScore),
			Timestamp:  rec.Time.Get().Format(time.RFC3339),
		})
	}
	www.SendJSON(w, items)
}

func (s *Server) httpGetPrediction(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := www.ParseID(params.ByName("id"))
	rec, err := s.history.Get(id)
	www.Check(err)
	if rec == nil {
		www.PanicNotFound()
	}
	www.SendJSON(w, map[string]any{
		"id":         rec.ID,
		"filename":   rec.Filename,
		"prediction": rec.Prediction,
		"confidence": round2(rec.Confidence),
		"raw_score":  round4(rec.RawScore),
		"timestamp":  rec.Time.Get().Format(time.RFC3339),
		"image_data": base64.StdEncoding.EncodeToString(rec.Image),
	})
}

func (s *Server) httpStats(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	stats, err := s.history.Stats()
	www.Check(err)
	stats.AverageConfidence = round2(stats.AverageConfidence)
	www.SendJSON(w, stats)
}

func (s *Server) httpClearHistory(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	n, err := s.history.Clear()
	www.Check(err)
	www.SendJSON(w, map[string]any{
		"message": fmt.Sprintf("Deleted %v predictions", n),
		"count":   n,
	})
}

func (s *Server) httpUploadedFile(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	filename := sanitizeFilename(params.ByName("filename"))
	path := filepath.Join(s.cfg.UploadDir, filename)
	if _, err := os.Stat(path); err != nil {
		www.PanicNotFound()
	}
	http.ServeFile(w, r, path)
}

// sanitizeFilename keeps only the base name and replaces anything that
// isn't a word character, dash or dot.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_', c == '.':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

func round4(v float64) float64 {
	return float64(int64(v*10000+0.5)) / 10000
}

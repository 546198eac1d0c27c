// Package server is the HTTP surface of the light detector: image
// upload and prediction, history, and aggregate stats. It is a thin
// wrapper; classification lives in detect, storage in history.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/julienschmidt/httprouter"

	"github.com/Mahdi-Kalfat/IdeaTon/internal/detect"
	"github.com/Mahdi-Kalfat/IdeaTon/internal/history"
)

type Server struct {
	Log logs.Log

	cfg      Config
	detector *detect.Detector
	history  *history.History

	signalIn   chan os.Signal
	httpServer *http.Server
	httpRouter *httprouter.Router
}

// NewServer loads the config file, the model artifact, and the history
// DB. A missing artifact is fatal here: a prediction service without a
// model has nothing to serve.
func NewServer(configFile string) (*Server, error) {
	logger, err := logs.NewLog()
	if err != nil {
		return nil, err
	}

	cfg := Config{}
	if cfgB, err := os.ReadFile(configFile); err == nil {
		if err := json.Unmarshal(cfgB, &cfg); err != nil {
			return nil, fmt.Errorf("Error parsing config file %v: %w", configFile, err)
		}
	} else if os.IsNotExist(err) {
		logger.Infof("Config file %v not found, using defaults", configFile)
	} else {
		return nil, err
	}
	cfg.applyDefaults()

	detector, err := detect.NewDetector(logger, cfg.Artifact)
	if err != nil {
		return nil, err
	}
	hist, err := history.Open(logger, cfg.HistoryDB)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.UploadDir, 0770); err != nil {
		return nil, fmt.Errorf("Failed to create upload directory '%v': %w", cfg.UploadDir, err)
	}

	s := &Server{
		Log:      logger,
		cfg:      cfg,
		detector: detector,
		history:  hist,
	}
	if err := s.setupHttpRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) threshold() float32 {
	if s.cfg.Threshold > 0 {
		return s.cfg.Threshold
	}
	return detect.DefaultThreshold
}

// ListenForInterruptSignal starts a goroutine that shuts the HTTP
// server down on SIGINT/SIGTERM.
func (s *Server) ListenForInterruptSignal() {
	s.signalIn = make(chan os.Signal, 1)
	signal.Notify(s.signalIn, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig, ok := <-s.signalIn
		if ok {
			s.Log.Infof("Received OS signal '%v', shutting down", sig.String())
			s.Shutdown()
		}
	}()
}

func (s *Server) Shutdown() {
	if s.httpServer != nil {
		s.httpServer.Close()
	}
}

// ListenHTTP blocks until the server is shut down.
func (s *Server) ListenHTTP(addr string) error {
	s.Log.Infof("Listening on %v", addr)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.httpRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/himanishpuri/audioprints/internal/audio"
	"github.com/himanishpuri/audioprints/pkg/audioprints"
	"github.com/himanishpuri/audioprints/pkg/audioprints/fingerprint"
	"github.com/himanishpuri/audioprints/pkg/logger"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service audioprints.Service
	config  *ServerConfig
	log     audioprints.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Addr           string
	DBPath         string
	Backend        audioprints.Backend
	Extraction     fingerprint.Config
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service audioprints.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// readUpload decodes the WAV file posted in the "audio" form field.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*audio.Clip, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		s.log.Warnf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return nil, "", false
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return nil, "", false
	}
	defer file.Close()

	clip, err := audio.ReadWav(file)
	if err != nil {
		s.log.Warnf("Rejected upload %s: %v", header.Filename, err)
		s.respondError(w, http.StatusUnsupportedMediaType, fmt.Sprintf("audio must be a PCM WAV file: %v", err))
		return nil, "", false
	}
	return clip, header.Filename, true
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "audioprints API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":      "GET /health",
			"metrics":     "GET /api/health/metrics",
			"fingerprint": "POST /api/fingerprint",
			"tracks":      "GET /api/tracks",
			"addTrack":    "POST /api/tracks",
			"getTrack":    "GET /api/tracks/{id}",
			"deleteTrack": "DELETE /api/tracks/{id}",
			"hash":        "GET /api/hashes/{hash}",
			"lookup":      "POST /api/lookup",
			"search":      "GET /api/search?q=",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.service.ListTracks()
	if err != nil {
		s.log.Errorf("Failed to get track count: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	total := 0
	for _, t := range tracks {
		total += t.FingerprintCount
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:           "healthy",
		Backend:          string(s.config.Backend),
		DatabasePath:     s.config.DBPath,
		TrackCount:       len(tracks),
		FingerprintCount: total,
		HashAlgorithm:    string(s.config.Extraction.HashAlgorithm),
	})
}

// handleFingerprint handles POST /api/fingerprint. Nothing is stored.
func (s *Server) handleFingerprint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	clip, filename, ok := s.readUpload(w, r, MaxQueryUploadBytes)
	if !ok {
		return
	}

	cfg := s.config.Extraction
	cfg.SampleRate = clip.SampleRate
	fps, err := fingerprint.ExtractFingerprints(clip.Samples, r.FormValue("track_id"), cfg)
	if err != nil {
		s.log.Warnf("Fingerprinting %s failed: %v", filename, err)
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, FingerprintResponse{
		SampleRate:   clip.SampleRate,
		DurationMs:   int(clip.Duration().Milliseconds()),
		Algorithm:    string(cfg.HashAlgorithm),
		Fingerprints: fps,
		Count:        len(fps),
	})
}

// handleListTracks handles GET /api/tracks
func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.service.ListTracks()
	if err != nil {
		s.log.Errorf("Failed to list tracks: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve tracks")
		return
	}

	s.respondJSON(w, http.StatusOK, ListTracksResponse{
		Tracks: newTrackDTOs(tracks),
		Count:  len(tracks),
	})
}

// handleAddTrack handles POST /api/tracks (multipart: audio, optional name)
func (s *Server) handleAddTrack(w http.ResponseWriter, r *http.Request) {
	clip, filename, ok := s.readUpload(w, r, MaxTrackUploadBytes)
	if !ok {
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = strings.TrimSuffix(filename, filepath.Ext(filename))
	}
	if name == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	s.log.Infof("Adding track from upload: %s", name)
	trackID, err := s.service.AddSamples(r.Context(), name, clip.Samples, clip.SampleRate)
	switch {
	case errors.Is(err, audioprints.ErrTrackExists):
		s.respondJSON(w, http.StatusConflict, AddTrackResponse{
			Message: "Track already indexed",
			ID:      trackID,
			Name:    name,
		})
		return
	case err != nil:
		s.log.Errorf("Failed to add track: %v", err)
		s.respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Failed to add track: %v", err))
		return
	}

	s.respondJSON(w, http.StatusCreated, AddTrackResponse{
		Message: "Track added successfully",
		ID:      trackID,
		Name:    name,
	})
}

// handleGetTrack handles GET /api/tracks/{id}
func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request, trackID string) {
	track, err := s.service.GetTrack(trackID)
	if err != nil {
		s.trackError(w, trackID, err)
		return
	}
	s.respondJSON(w, http.StatusOK, newTrackDTO(*track))
}

// handleDeleteTrack handles DELETE /api/tracks/{id}
func (s *Server) handleDeleteTrack(w http.ResponseWriter, r *http.Request, trackID string) {
	if err := s.service.DeleteTrack(trackID); err != nil {
		s.trackError(w, trackID, err)
		return
	}

	s.respondJSON(w, http.StatusOK, DeleteTrackResponse{
		Message: "Track deleted successfully",
		ID:      trackID,
	})
}

func (s *Server) trackError(w http.ResponseWriter, trackID string, err error) {
	if errors.Is(err, audioprints.ErrTrackNotFound) {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Track with ID %s not found", trackID))
		return
	}
	s.log.Errorf("Track %s: %v", trackID, err)
	s.respondError(w, http.StatusInternalServerError, "Failed to access track")
}

// handleHash handles GET /api/hashes/{hash}
func (s *Server) handleHash(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	hash := strings.TrimPrefix(r.URL.Path, "/api/hashes/")
	if err := validateHash(hash, s.config.Extraction.HashAlgorithm); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	postings, err := s.service.HashPostings(hash)
	if err != nil {
		s.log.Errorf("Hash lookup failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to look up hash")
		return
	}

	s.respondJSON(w, http.StatusOK, HashResponse{
		Hash:     strings.ToLower(hash),
		Postings: postings,
		Count:    len(postings),
	})
}

// handleLookup handles POST /api/lookup (multipart: audio)
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	clip, filename, ok := s.readUpload(w, r, MaxQueryUploadBytes)
	if !ok {
		return
	}

	s.log.Infof("Looking up uploaded file: %s", filename)
	hits, err := s.service.LookupSamples(r.Context(), clip.Samples, clip.SampleRate)
	if err != nil {
		s.log.Warnf("Lookup failed: %v", err)
		s.respondError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Lookup failed: %v", err))
		return
	}

	s.respondJSON(w, http.StatusOK, LookupResponse{
		Hits:  hits,
		Count: len(hits),
	})
}

// handleSearch handles GET /api/search?q=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	tracks, err := s.service.SearchTracks(q)
	if err != nil {
		s.log.Errorf("Search failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to search tracks")
		return
	}

	s.respondJSON(w, http.StatusOK, ListTracksResponse{
		Tracks: newTrackDTOs(tracks),
		Count:  len(tracks),
	})
}

// handleTracks routes requests to /api/tracks
func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTracks(w, r)
	case http.MethodPost:
		s.handleAddTrack(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleTrack routes requests to /api/tracks/{id}
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	trackID := strings.TrimPrefix(r.URL.Path, "/api/tracks/")
	if trackID == "" || strings.Contains(trackID, "/") {
		s.respondError(w, http.StatusBadRequest, "Track ID required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetTrack(w, r, trackID)
	case http.MethodDelete:
		s.handleDeleteTrack(w, r, trackID)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

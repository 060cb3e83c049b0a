package api

import (
	"encoding/json"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"facetrace/internal/config"
	"facetrace/internal/database"
	"facetrace/internal/models"
	"facetrace/internal/pipeline"
	"facetrace/internal/storage"
)

type App struct {
	Uploads       storage.Storage
	Outputs       storage.Storage
	DB            *database.DB
	Videos        *database.VideoRepository
	People        *database.PersonRepository
	Detections    *database.DetectionRepository
	Manager       *pipeline.Manager
	MaxUploadSize int64
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

// videoResponse is the wire shape for a scan job. Summary is only included
// in the detail view.
type videoResponse struct {
	ID                    string          `json:"id"`
	Filename              string          `json:"filename"`
	Status                string          `json:"status"`
	Progress              float64         `json:"progress"`
	ProcessedFrames       int             `json:"processed_frames"`
	TotalFrames           int             `json:"total_frames"`
	ProcessingTimeSeconds float64         `json:"processing_time_seconds"`
	Error                 string          `json:"error,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	Summary               *models.Summary `json:"summary,omitempty"`
}

func toVideoResponse(v *models.Video, withSummary bool) videoResponse {
	resp := videoResponse{
		ID:                    v.ID,
		Filename:              v.Filename,
		Status:                v.Status,
		Progress:              v.Progress,
		ProcessedFrames:       v.ProcessedFrames,
		TotalFrames:           v.TotalFrames,
		ProcessingTimeSeconds: v.ProcessingTimeSeconds,
		Error:                 v.Error,
		CreatedAt:             v.CreatedAt,
		UpdatedAt:             v.UpdatedAt,
	}
	if withSummary {
		resp.Summary = &v.Summary
	}
	return resp
}

// UploadHandler accepts either a multipart "video" file or a "video_path"
// form value naming a server-local file, stores it, and starts the scan.
func (app *App) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	if err := r.ParseMultipartForm(app.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "file too large or malformed form")
		return
	}

	var video *models.Video
	file, header, err := r.FormFile("video")
	switch {
	case err == nil:
		defer file.Close()
		video, err = app.saveUpload(file, header.Filename, header.Header.Get("Content-Type"), header.Size)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	case r.FormValue("video_path") != "":
		video, err = app.saveLocalFile(r.FormValue("video_path"))
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	default:
		respondError(w, http.StatusBadRequest, "missing video file or video_path")
		return
	}

	if err := app.Videos.Insert(r.Context(), video); err != nil {
		app.Uploads.DeleteFile(video.StoredFilename)
		log.Printf("[API] Failed to insert video: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save video")
		return
	}

	if err := app.Manager.Start(video.ID); err != nil {
		log.Printf("[API] Failed to start scan for %s: %v", video.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to start scan")
		return
	}

	respondJSON(w, http.StatusCreated, toVideoResponse(video, false))
}

func (app *App) saveUpload(file multipart.File, filename, contentType string, size int64) (*models.Video, error) {
	contentType, err := checkVideoType(filename, contentType)
	if err != nil {
		return nil, err
	}
	stored, err := app.Uploads.SaveUpload(file, storage.FileInfo{
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
	})
	if err != nil {
		return nil, errors.New("failed to save file")
	}
	return models.NewVideo(filename, stored, contentType, size), nil
}

// saveLocalFile ingests a file already on the server's filesystem, for the
// CLI and for bulk imports.
func (app *App) saveLocalFile(path string) (*models.Video, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New("video_path not readable")
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		return nil, errors.New("video_path is not a regular file")
	}
	return app.saveUpload(f, filepath.Base(path), "", stat.Size())
}

func checkVideoType(filename, contentType string) (string, error) {
	if strings.HasPrefix(contentType, "video/") {
		return contentType, nil
	}
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mp4", ".mov", ".avi", ".mkv", ".webm":
		return "video/" + strings.TrimPrefix(ext, "."), nil
	}
	return "", errors.New("unsupported video type")
}

func (app *App) ListVideosHandler(w http.ResponseWriter, r *http.Request) {
	videos, err := app.Videos.List(r.Context())
	if err != nil {
		log.Printf("[API] Failed to list videos: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list videos")
		return
	}

	resp := make([]videoResponse, 0, len(videos))
	for _, v := range videos {
		resp = append(resp, toVideoResponse(v, false))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (app *App) GetVideoHandler(w http.ResponseWriter, r *http.Request) {
	video, ok := app.lookupVideo(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toVideoResponse(video, true))
}

// AnnotatedHandler streams the annotated output video with Range support.
func (app *App) AnnotatedHandler(w http.ResponseWriter, r *http.Request) {
	video, ok := app.lookupVideo(w, r)
	if !ok {
		return
	}
	if video.AnnotatedPath == "" {
		respondError(w, http.StatusConflict, "annotated video not ready")
		return
	}
	app.serveArtifact(w, r, video.AnnotatedPath, "video/mp4")
}

func (app *App) ReportHandler(w http.ResponseWriter, r *http.Request) {
	video, ok := app.lookupVideo(w, r)
	if !ok {
		return
	}
	if video.ReportPath == "" {
		respondError(w, http.StatusConflict, "report not ready")
		return
	}
	app.serveArtifact(w, r, video.ReportPath, "text/html; charset=utf-8")
}

// DeleteVideoHandler removes a job, its detection log, and all stored
// artifacts. Running scans must be cancelled first.
func (app *App) DeleteVideoHandler(w http.ResponseWriter, r *http.Request) {
	video, ok := app.lookupVideo(w, r)
	if !ok {
		return
	}
	if app.Manager.Running(video.ID) {
		respondError(w, http.StatusConflict, "scan in progress; cancel it first")
		return
	}

	if err := app.Detections.DeleteByVideo(r.Context(), video.ID); err != nil {
		log.Printf("[API] Failed to delete detections for %s: %v", video.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to delete video")
		return
	}
	if video.AnnotatedPath != "" {
		app.Outputs.DeleteFile(video.AnnotatedPath)
	}
	if video.ReportPath != "" {
		app.Outputs.DeleteFile(video.ReportPath)
	}
	app.Outputs.DeleteDir(path.Join(config.SnapshotsDir, video.ID))
	app.Uploads.DeleteFile(video.StoredFilename)

	if err := app.Videos.Delete(r.Context(), video.ID); err != nil {
		log.Printf("[API] Failed to delete video %s: %v", video.ID, err)
		respondError(w, http.StatusInternalServerError, "failed to delete video")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (app *App) CancelHandler(w http.ResponseWriter, r *http.Request) {
	video, ok := app.lookupVideo(w, r)
	if !ok {
		return
	}
	if err := app.Manager.Cancel(video.ID); err != nil {
		respondError(w, http.StatusConflict, "no running scan for this video")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

type personResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	EmbeddingCount int       `json:"embedding_count"`
	CreatedAt      time.Time `json:"created_at"`
}

func (app *App) ListPeopleHandler(w http.ResponseWriter, r *http.Request) {
	people, err := app.People.List(r.Context())
	if err != nil {
		log.Printf("[API] Failed to list people: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list people")
		return
	}

	resp := make([]personResponse, 0, len(people))
	for _, p := range people {
		resp = append(resp, personResponse{
			ID:             p.ID,
			Name:           p.Name,
			EmbeddingCount: len(p.Embeddings),
			CreatedAt:      p.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// CreatePersonHandler pre-registers a named identity with an optional
// reference embedding, so later scans resolve to the given name instead of
// an auto-assigned one.
func (app *App) CreatePersonHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string    `json:"name"`
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	person := models.NewPerson(strings.TrimSpace(req.Name), req.Embedding)
	if err := app.People.Create(r.Context(), person); err != nil {
		log.Printf("[API] Failed to create person: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create person")
		return
	}

	respondJSON(w, http.StatusCreated, personResponse{
		ID:             person.ID,
		Name:           person.Name,
		EmbeddingCount: len(person.Embeddings),
		CreatedAt:      person.CreatedAt,
	})
}

func (app *App) lookupVideo(w http.ResponseWriter, r *http.Request) (*models.Video, bool) {
	videoID := chi.URLParam(r, "id")
	if videoID == "" {
		respondError(w, http.StatusNotFound, "video not found")
		return nil, false
	}
	video, err := app.Videos.GetByID(r.Context(), videoID)
	if err != nil {
		respondError(w, http.StatusNotFound, "video not found")
		return nil, false
	}
	return video, true
}

func (app *App) serveArtifact(w http.ResponseWriter, r *http.Request, relPath, contentType string) {
	file, err := app.Outputs.OpenFile(relPath)
	if err != nil {
		respondError(w, http.StatusNotFound, "artifact not found")
		return
	}
	defer file.Close()

	modTime := time.Now()
	if stat, err := file.(interface{ Stat() (os.FileInfo, error) }).Stat(); err == nil {
		modTime = stat.ModTime()
	}

	w.Header().Set("Content-Type", contentType)
	// ServeContent handles Range requests for video seeking.
	http.ServeContent(w, r, filepath.Base(relPath), modTime, file)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

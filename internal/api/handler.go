package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	zlog "github.com/rs/zerolog/log"
	"go.uber.org/zap"

	"fable-server/internal/model"
	"fable-server/internal/repository"
	"fable-server/internal/worker"
)

// Handler обслуживает синхронный HTTP API сервиса генерации.
type Handler struct {
	orchestrator *worker.Orchestrator
	stories      repository.StoryRepository
	audioDir     string
	logger       *zap.Logger
}

// NewHandler создает новый HTTP-обработчик.
func NewHandler(orchestrator *worker.Orchestrator, stories repository.StoryRepository, audioDir string, logger *zap.Logger) *Handler {
	if orchestrator == nil {
		zlog.Fatal().Msg("api.Handler: orchestrator не может быть nil")
	}
	if stories == nil {
		zlog.Fatal().Msg("api.Handler: stories repository не может быть nil")
	}
	if logger == nil {
		zlog.Fatal().Msg("api.Handler: logger не может быть nil")
	}
	return &Handler{
		orchestrator: orchestrator,
		stories:      stories,
		audioDir:     audioDir,
		logger:       logger,
	}
}

// Register настраивает маршруты на переданном mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /generate", h.handleGenerate)
	mux.HandleFunc("GET /stories/{id}", h.handleGetStory)
	mux.HandleFunc("GET /health", h.handleHealth)
	if h.audioDir != "" {
		mux.Handle("GET /audio/", http.StripPrefix("/audio/", http.FileServer(http.Dir(h.audioDir))))
	}
}

type errorResponse struct {
	Error string          `json:"error"`
	Code  model.ErrorCode `json:"code"`
}

// handleGenerate синхронно выполняет полный конвейер генерации.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req model.StoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, model.ValidationErrorf("невалидный JSON: %v", err))
		return
	}

	story, err := h.orchestrator.Execute(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, story)
}

// handleGetStory возвращает сохраненную историю по идентификатору.
func (h *Handler) handleGetStory(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		h.writeError(w, model.ValidationErrorf("пустой идентификатор истории"))
		return
	}

	story, err := h.stories.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, story)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Ошибка записи JSON-ответа", zap.Error(err))
	}
}

// writeError сопоставляет ошибку конвейера с HTTP-статусом и кодом.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := model.CodeForError(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrExternalService):
		status = http.StatusBadGateway
	}
	if status >= 500 {
		h.logger.Error("Запрос завершился ошибкой", zap.Error(err))
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/parrotlabs/voiceforge/internal/models"
	"github.com/parrotlabs/voiceforge/internal/service"
)

var allowedAudioMimes = map[string]bool{
	"audio/mpeg": true,
	"audio/mp3":  true,
	"audio/wav":  true,
	"audio/wave": true,
}

type voiceModelResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	State     string `json:"state"`
	CreatedAt string `json:"createdAt"`
}

func toVoiceModelResponse(m models.VoiceModel) voiceModelResponse {
	return voiceModelResponse{
		ID:        m.ID,
		Title:     m.Title,
		State:     string(m.State),
		CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleCreateVoiceModel(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.writeError(w, fmt.Errorf("%w: parse upload: %v", service.ErrInvalidInput, err))
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: no audio file provided", service.ErrInvalidInput))
		return
	}
	defer file.Close()

	if mime := header.Header.Get("Content-Type"); !allowedAudioMimes[mime] {
		s.writeError(w, fmt.Errorf("%w: invalid file type, only MP3 and WAV files are allowed", service.ErrInvalidInput))
		return
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: read upload: %v", service.ErrInvalidInput, err))
		return
	}

	model, err := s.voiceModels.Create(r.Context(), user.ID, service.CreateVoiceModelInput{
		Title:    r.FormValue("title"),
		Audio:    audio,
		Filename: header.Filename,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toVoiceModelResponse(*model))
}

func (s *Server) handleListVoiceModels(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	list, err := s.voiceModels.List(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]voiceModelResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toVoiceModelResponse(m))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRenameVoiceModel(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid json", service.ErrInvalidInput))
		return
	}

	if err := s.voiceModels.Rename(r.Context(), user.ID, chi.URLParam(r, "id"), req.Title); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "title": req.Title})
}

func (s *Server) handleDeleteVoiceModel(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	if err := s.voiceModels.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleGenerateSpeech(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req struct {
		Text         string `json:"text"`
		VoiceModelID string `json:"voiceModelId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid json", service.ErrInvalidInput))
		return
	}

	result, err := s.generations.Generate(r.Context(), user, service.GenerationRequest{
		Text:         req.Text,
		VoiceModelID: req.VoiceModelID,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"id":           result.Audio.ID,
		"voiceModelId": result.Audio.VoiceModelID,
		"text":         result.Audio.Text,
		"audioUrl":     result.Audio.AudioURL,
		"audioBuffer":  base64.StdEncoding.EncodeToString(result.AudioMP3),
	})
}

func (s *Server) handleGeneratedAudio(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	list, err := s.generations.History(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	type audioResponse struct {
		ID           string `json:"id"`
		VoiceModelID string `json:"voiceModelId"`
		Text         string `json:"text"`
		AudioURL     string `json:"audioUrl"`
		CreatedAt    string `json:"createdAt"`
	}
	out := make([]audioResponse, 0, len(list))
	for _, a := range list {
		out = append(out, audioResponse{
			ID:           a.ID,
			VoiceModelID: a.VoiceModelID,
			Text:         a.Text,
			AudioURL:     a.AudioURL,
			CreatedAt:    a.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	credits, err := s.users.Credits(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"credits": credits})
}

func (s *Server) handleCreditPackages(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.payments.Packages())
}

func (s *Server) handleCharge(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req struct {
		PackageID string `json:"packageId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid json", service.ErrInvalidInput))
		return
	}
	if req.PackageID == "" {
		s.writeError(w, fmt.Errorf("%w: package id is required", service.ErrInvalidInput))
		return
	}

	purchase, err := s.payments.CreateCharge(r.Context(), user, req.PackageID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"id":        purchase.ID,
		"planId":    purchase.PlanID,
		"packageId": req.PackageID,
	})
}

func (s *Server) handleProcessPayment(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req struct {
		PackageID string `json:"packageId"`
		ReceiptID string `json:"receiptId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid json", service.ErrInvalidInput))
		return
	}
	if req.PackageID == "" || req.ReceiptID == "" {
		s.writeError(w, fmt.Errorf("%w: package id and receipt id are required", service.ErrInvalidInput))
		return
	}

	if err := s.payments.ConfirmPurchase(r.Context(), user.ID, req.PackageID, req.ReceiptID); err != nil {
		s.writeError(w, err)
		return
	}

	credits, err := s.users.Credits(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"success": true, "credits": credits})
}

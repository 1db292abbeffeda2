package api

import (
	"errors"
	"net/http"

	"dailymind-api/internal/response"
	"dailymind-api/internal/services"
	"dailymind-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// SynthesizeSpeechRequest represents a text-to-speech request
type SynthesizeSpeechRequest struct {
	Text string `json:"text" binding:"required"`
	Lang string `json:"lang"`
}

// SynthesizeSpeech returns spoken audio for a text, serving cached audio
// when the same text was synthesized before
func SynthesizeSpeech(c *gin.Context) {
	var req SynthesizeSpeechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}
	if req.Lang == "" {
		req.Lang = "zh"
	}

	data, err := deps.Speech.Synthesize(c.Request.Context(), req.Text, req.Lang)
	if err != nil {
		if errors.Is(err, services.ErrSynthesizerNotConfigured) {
			response.ErrorJSON(c, http.StatusServiceUnavailable, "Speech synthesis is not configured")
			return
		}
		logging.Errorf("Speech synthesis failed: %v", err)
		response.ErrorJSON(c, http.StatusBadGateway, "Speech synthesis failed")
		return
	}

	c.Data(http.StatusOK, "audio/mpeg", data)
}

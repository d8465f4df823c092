package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/models"
	"pdf-rag/internal/parser"
	"pdf-rag/internal/rag"
)

type uploadResponse struct {
	Status   string               `json:"status"`
	Chunks   int                  `json:"chunks"`
	Message  string               `json:"message,omitempty"`
	Document *models.DocumentInfo `json:"document,omitempty"`
}

type askRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			uploadError(c, http.StatusRequestEntityTooLarge, "file exceeds the upload size limit")
			return
		}
		uploadError(c, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}

	f, err := fh.Open()
	if err != nil {
		uploadError(c, http.StatusBadRequest, err.Error())
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		uploadError(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.rag.Upload(c.Request.Context(), fh.Filename, data)
	if err != nil {
		status := statusFor(err)
		log.Warn().Err(err).Str("filename", fh.Filename).Int("status", status).Msg("Upload failed")
		uploadError(c, status, err.Error())
		return
	}

	c.JSON(http.StatusOK, uploadResponse{Status: res.Status, Chunks: res.Chunks, Document: &res.Document})
}

func uploadError(c *gin.Context, status int, msg string) {
	c.JSON(status, uploadResponse{Status: models.StatusError, Chunks: 0, Message: msg})
}

// handleAsk reads the question from a JSON body, falling back to the
// ?query= parameter.
func (s *Server) handleAsk(c *gin.Context) {
	var req askRequest
	if c.Request.ContentLength != 0 && strings.Contains(c.ContentType(), "json") {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
	}
	if strings.TrimSpace(req.Query) == "" {
		req.Query = c.Query("query")
	}

	res, err := s.rag.Ask(c.Request.Context(), req.Query)
	if err != nil {
		status := statusFor(err)
		log.Warn().Err(err).Int("status", status).Msg("Ask failed")
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": models.StatusOK, "chunks": s.rag.Corpus().Size()})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.rag.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleReset(c *gin.Context) {
	if err := s.rag.Reset(c.Request.Context()); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.StatusOK})
}

// statusFor maps content errors to 4xx and collaborator failures to 502.
func statusFor(err error) int {
	var svcErr *rag.ServiceError
	switch {
	case errors.Is(err, parser.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, rag.ErrNoText),
		errors.Is(err, rag.ErrEmptyQuery),
		errors.Is(err, parser.ErrUnreadableDocument):
		return http.StatusBadRequest
	case errors.As(err, &svcErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

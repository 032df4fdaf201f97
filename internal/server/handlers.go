package server

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wordcelclub/upload-gateway/pkg/auth"
	"github.com/wordcelclub/upload-gateway/pkg/bundlr"
	"github.com/wordcelclub/upload-gateway/pkg/upload"
)

func (s *Server) handleLiveness(c *gin.Context) {
	c.String(http.StatusOK, "Never gonna give you up")
}

// authenticate verifies the caller's detached signature and writes the 401
// rejection itself. It must run before any directory, funding, or upload
// work; a false return means the response is already committed.
func (s *Server) authenticate(c *gin.Context, publicKey string, rawSignature json.RawMessage) bool {
	sig, err := auth.ParseSignature(rawSignature)
	if err != nil || !s.auth.Verify(publicKey, sig) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Unauthenticated"})
		return false
	}
	return true
}

// requireUser rejects identities the user directory does not know.
func (s *Server) requireUser(c *gin.Context, publicKey string) bool {
	if !s.directory.Exists(c.Request.Context(), publicKey) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User does not exist"})
		return false
	}
	return true
}

// warmCache primes the CDN for a successful upload. Best effort: the content
// is already durable, so a warm failure only gets a log line.
func (s *Server) warmCache(c *gin.Context, result upload.Result) {
	if !result.Succeeded() {
		return
	}
	if err := s.cdn.Warm(c.Request.Context(), *result.URL); err != nil {
		zap.L().Warn("cache warm failed", zap.String("url", *result.URL), zap.Error(err))
	}
}

// handleFormUpload serves POST /upload: a multipart form carrying public_key
// and signature fields plus the image file itself.
func (s *Server) handleFormUpload(c *gin.Context) {
	publicKey := c.PostForm("public_key")
	signature := c.PostForm("signature")
	if publicKey == "" || signature == "" {
		observe("form", outcomeRejected)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient authorization data"})
		return
	}

	if !s.authenticate(c, publicKey, json.RawMessage(signature)) {
		observe("form", outcomeRejected)
		return
	}
	if !s.requireUser(c, publicKey) {
		observe("form", outcomeRejected)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		observe("form", outcomeRejected)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient upload data"})
		return
	}
	header := firstFile(form.File)
	if header == nil {
		observe("form", outcomeRejected)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient upload data"})
		return
	}

	// Stage the payload to a temporary file; the uploader reads it back only
	// after funding resolves.
	staged := filepath.Join(os.TempDir(), uuid.New().String())
	if err := c.SaveUploadedFile(header, staged); err != nil {
		observe("form", outcomeError)
		zap.L().Error("failed to stage uploaded file", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error while trying to upload image to arweave"})
		return
	}
	defer func() {
		if err := os.Remove(staged); err != nil {
			zap.L().Warn("failed to remove staged file", zap.String("path", staged), zap.Error(err))
		}
	}()

	result := s.uploader.Upload(c.Request.Context(), upload.FileSource{
		Name:   header.Filename,
		Path:   staged,
		Size:   header.Size,
		Policy: s.imagePolicy,
	})
	if result.Succeeded() {
		observe("form", outcomeSuccess)
		c.JSON(http.StatusOK, result)
		return
	}
	observe("form", outcomeError)
	c.JSON(http.StatusInternalServerError, result)
}

// blobRequest is the body of POST /url.
type blobRequest struct {
	PublicKey string          `json:"public_key"`
	Signature json.RawMessage `json:"signature"`
	URL       string          `json:"url"`
}

// handleBlobUpload serves POST /url: the gateway fetches the remote content
// and uploads it on the caller's behalf.
func (s *Server) handleBlobUpload(c *gin.Context) {
	var req blobRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PublicKey == "" || len(req.Signature) == 0 || req.URL == "" {
		observe("blob", outcomeRejected)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient upload data"})
		return
	}

	if !s.authenticate(c, req.PublicKey, req.Signature) {
		observe("blob", outcomeRejected)
		return
	}
	if !s.requireUser(c, req.PublicKey) {
		observe("blob", outcomeRejected)
		return
	}

	contentType, data, err := s.fetcher.Fetch(c.Request.Context(), req.URL)
	if err != nil {
		observe("blob", outcomeError)
		zap.L().Error("remote blob fetch failed", zap.String("url", req.URL), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not fetch the content to upload"})
		return
	}

	result := s.uploader.Upload(c.Request.Context(), upload.BlobSource{
		ContentType: contentType,
		Data:        data,
		Policy:      s.imagePolicy,
	})
	if result.Succeeded() {
		observe("blob", outcomeSuccess)
		s.warmCache(c, result)
		c.JSON(http.StatusOK, result)
		return
	}
	observe("blob", outcomeError)
	c.JSON(http.StatusBadRequest, result)
}

// jsonRequest is the body of POST /json.
type jsonRequest struct {
	PublicKey string          `json:"public_key"`
	Signature json.RawMessage `json:"signature"`
	Data      json.RawMessage `json:"data"`
	Tags      []bundlr.Tag    `json:"tags"`
}

// handleJSONUpload serves POST /json: a document plus caller-supplied tags.
func (s *Server) handleJSONUpload(c *gin.Context) {
	var req jsonRequest
	if err := c.ShouldBindJSON(&req); err != nil ||
		req.PublicKey == "" || len(req.Signature) == 0 || len(req.Data) == 0 || len(req.Tags) == 0 {
		observe("json", outcomeRejected)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Insufficient request data"})
		return
	}

	if !s.authenticate(c, req.PublicKey, req.Signature) {
		observe("json", outcomeRejected)
		return
	}
	if !s.requireUser(c, req.PublicKey) {
		observe("json", outcomeRejected)
		return
	}

	result := s.uploader.Upload(c.Request.Context(), upload.JSONSource{
		Data:   compactJSON(req.Data),
		Tags:   req.Tags,
		Policy: s.jsonPolicy,
	})
	if result.Succeeded() {
		observe("json", outcomeSuccess)
		s.warmCache(c, result)
		c.JSON(http.StatusOK, result)
		return
	}
	observe("json", outcomeError)
	c.JSON(http.StatusInternalServerError, result)
}

// firstFile returns the first uploaded file of any form field, matching the
// permissive decoding of the original form clients.
func firstFile(files map[string][]*multipart.FileHeader) *multipart.FileHeader {
	for _, headers := range files {
		if len(headers) > 0 {
			return headers[0]
		}
	}
	return nil
}

// compactJSON re-serializes the raw document without insignificant
// whitespace so identical documents upload identical bytes.
func compactJSON(raw json.RawMessage) []byte {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	out, err := json.Marshal(v)
	if err != nil {
		return raw
	}
	return out
}

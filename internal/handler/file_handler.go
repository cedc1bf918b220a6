package handler

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ja-yanga/keep-ph-api/internal/service"
	"github.com/ja-yanga/keep-ph-api/pkg/response"
)

// FileHandler exposes signed download endpoints for package media.
type FileHandler struct {
	files *service.FileService
}

// NewFileHandler constructs FileHandler.
func NewFileHandler(files *service.FileService) *FileHandler {
	return &FileHandler{files: files}
}

// Sign godoc
// @Summary Issue a signed download link
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{id}/sign [post]
func (h *FileHandler) Sign(c *gin.Context) {
	link, err := h.files.Sign(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link, nil)
}

// Download godoc
// @Summary Redeem a signed download token
// @Description Tokens are self-authorizing; no session is required
// @Tags Files
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} byte
// @Failure 401 {object} response.Envelope
// @Router /files/download/{token} [get]
func (h *FileHandler) Download(c *gin.Context) {
	download, err := h.files.Redeem(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	c.Header("Content-Disposition", "attachment; filename="+filepath.Base(download.Name))
	c.Header("Content-Type", download.MimeType)
	http.ServeContent(c.Writer, c.Request, filepath.Base(download.Name), fileModTime(download), download.File)
}

func fileModTime(download *service.FileDownload) time.Time {
	if info, err := download.File.Stat(); err == nil {
		return info.ModTime()
	}
	return time.Time{}
}

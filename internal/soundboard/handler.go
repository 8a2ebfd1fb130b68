package soundboard

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/couchparty/backend/internal/middleware"
	"github.com/couchparty/backend/internal/models"
	"github.com/couchparty/backend/internal/parties"
	"github.com/couchparty/backend/pkg/response"
	"github.com/couchparty/backend/pkg/storage"
)

// Handler handles soundboard clip endpoints. Clip audio lives in S3; party
// events reference clips by id and every client fetches the audio itself
// via a presigned URL.
type Handler struct {
	repo    *Repository
	parties *parties.Repository
	s3      *storage.S3
	logger  *zap.Logger
}

// NewHandler creates a soundboard handler.
func NewHandler(repo *Repository, partyRepo *parties.Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, parties: partyRepo, s3: s3, logger: logger}
}

// Upload handles POST /parties/:id/sounds (host only, multipart form with
// "file" and optional "name").
func (h *Handler) Upload(c *gin.Context) {
	if h.s3 == nil {
		response.ServiceUnavailable(c, "clip storage not configured")
		return
	}
	partyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid party id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	p, err := h.parties.GetByID(c.Request.Context(), partyID)
	if err != nil {
		if errors.Is(err, parties.ErrNotFound) {
			response.NotFound(c, "party not found")
			return
		}
		response.Internal(c, "failed to load party")
		return
	}
	if p.HostID != userID {
		response.Forbidden(c, "only the host may upload sounds")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file required")
		return
	}
	if fileHeader.Size > storage.MaxClipFileSize {
		response.BadRequest(c, "file too large")
		return
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !storage.ValidateClipFileType(contentType, fileHeader.Filename) {
		response.BadRequest(c, "unsupported audio type")
		return
	}
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(fileHeader.Filename)
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Internal(c, "failed to read upload")
		return
	}
	defer file.Close()

	key := storage.ClipKey(partyID.String(), fileHeader.Filename)
	url, err := h.s3.Upload(c.Request.Context(), h.s3.ClipsBucket(), key, contentType, file, fileHeader.Size)
	if err != nil {
		h.logger.Error("clip upload", zap.Error(err))
		response.Internal(c, "failed to store clip")
		return
	}

	name := c.PostForm("name")
	if name == "" {
		name = fileHeader.Filename
	}
	clip := &models.SoundClip{
		PartyID:     partyID,
		Name:        name,
		FileURL:     url,
		S3Key:       key,
		ContentType: contentType,
		FileSize:    fileHeader.Size,
		UploadedBy:  userID,
	}
	if err := h.repo.Create(c.Request.Context(), clip); err != nil {
		h.logger.Error("clip metadata insert", zap.Error(err))
		response.Internal(c, "failed to save clip")
		return
	}
	response.Created(c, clip)
}

// List handles GET /parties/:id/sounds (members only).
func (h *Handler) List(c *gin.Context) {
	partyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid party id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	member, err := h.parties.IsMember(c.Request.Context(), partyID, userID)
	if err != nil || !member {
		response.NotFound(c, "party not found")
		return
	}

	list, err := h.repo.ListByParty(c.Request.Context(), partyID)
	if err != nil {
		response.Internal(c, "failed to list clips")
		return
	}
	response.OK(c, gin.H{"sounds": list})
}

// DownloadURL handles GET /sounds/:id/url: a presigned GET URL for the clip
// so members can play the audio a "play_sound" event refers to.
func (h *Handler) DownloadURL(c *gin.Context) {
	if h.s3 == nil {
		response.ServiceUnavailable(c, "clip storage not configured")
		return
	}
	clipID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid clip id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	clip, err := h.repo.GetByID(c.Request.Context(), clipID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "sound clip not found")
			return
		}
		response.Internal(c, "failed to load clip")
		return
	}
	member, err := h.parties.IsMember(c.Request.Context(), clip.PartyID, userID)
	if err != nil || !member {
		response.NotFound(c, "sound clip not found")
		return
	}

	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), h.s3.ClipsBucket(), clip.S3Key, h.s3.PresignExpire())
	if err != nil {
		h.logger.Error("presign clip url", zap.Error(err))
		response.Internal(c, "failed to presign url")
		return
	}
	response.OK(c, gin.H{"id": clip.ID, "url": url})
}

// Delete handles DELETE /sounds/:id (host of the clip's party only).
func (h *Handler) Delete(c *gin.Context) {
	clipID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid clip id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	clip, err := h.repo.GetByID(c.Request.Context(), clipID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "sound clip not found")
			return
		}
		response.Internal(c, "failed to load clip")
		return
	}
	p, err := h.parties.GetByID(c.Request.Context(), clip.PartyID)
	if err != nil {
		response.Internal(c, "failed to load party")
		return
	}
	if p.HostID != userID {
		response.Forbidden(c, "only the host may delete sounds")
		return
	}

	if h.s3 != nil && clip.S3Key != "" {
		if err := h.s3.DeleteClip(c.Request.Context(), clip.S3Key); err != nil {
			h.logger.Warn("clip object delete", zap.Error(err))
		}
	}
	if err := h.repo.Delete(c.Request.Context(), clipID); err != nil {
		response.Internal(c, "failed to delete clip")
		return
	}
	response.NoContent(c)
}

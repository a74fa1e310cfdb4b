package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	repostudy "github.com/yungbote/studyforge-backend/internal/data/repos/study"
	"github.com/yungbote/studyforge-backend/internal/domain/study"
	"github.com/yungbote/studyforge-backend/internal/http/middleware"
	"github.com/yungbote/studyforge-backend/internal/http/response"
	"github.com/yungbote/studyforge-backend/internal/platform/apierr"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
	"github.com/yungbote/studyforge-backend/internal/services"
)

const multipartMemory = 32 << 20

type DocumentHandler struct {
	log            *logger.Logger
	documents      services.DocumentService
	generation     services.GenerationService
	maxUploadBytes int64
}

func NewDocumentHandler(log *logger.Logger, documents services.DocumentService, generation services.GenerationService, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{
		log:            log.With("handler", "DocumentHandler"),
		documents:      documents,
		generation:     generation,
		maxUploadBytes: maxUploadBytes,
	}
}

// Upload takes multipart field "file" plus optional "title" and "folderId".
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID := middleware.UserID(c)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		response.RespondErr(c, apierr.FileTooLarge(h.maxUploadBytes))
		return
	}
	folderID, err := optionalUUID(c.PostForm("folderId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_folder_id", err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}
	defer f.Close()
	limit := h.maxUploadBytes
	if limit <= 0 {
		limit = fh.Size
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_file", err)
		return
	}

	doc, err := h.documents.Upload(c.Request.Context(), services.UploadInput{
		UserID:   userID,
		FolderID: folderID,
		Title:    c.PostForm("title"),
		FileName: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"document": doc})
}

func (h *DocumentHandler) List(c *gin.Context) {
	folderID, err := optionalUUID(c.Query("folderId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_folder_id", err)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	docs, err := h.documents.ListDocuments(c.Request.Context(), middleware.UserID(c), repostudy.DocumentListFilter{
		FolderID: folderID,
		Limit:    limit,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"documents": docs})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	docID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	doc, err := h.documents.GetDocument(c.Request.Context(), middleware.UserID(c), docID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"document": doc})
}

func (h *DocumentHandler) Retry(c *gin.Context) {
	docID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	doc, err := h.documents.RetryDocument(c.Request.Context(), middleware.UserID(c), docID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"document": doc})
}

func (h *DocumentHandler) Chunks(c *gin.Context) {
	docID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	chunks, err := h.generation.ListChunks(c.Request.Context(), middleware.UserID(c), docID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"chunks": chunks})
}

func (h *DocumentHandler) Artifacts(c *gin.Context) {
	docID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	f := repostudy.ArtifactFilter{
		Type:       study.ArtifactType(strings.TrimSpace(c.Query("type"))),
		SourceHash: strings.TrimSpace(c.Query("sourceHash")),
	}
	if m := strings.TrimSpace(c.Query("mode")); m != "" {
		mode, ok := study.ParseMode(m)
		if !ok {
			response.RespondErr(c, apierr.InvalidMode(m))
			return
		}
		f.Mode = mode
	}
	arts, err := h.generation.ListArtifacts(c.Request.Context(), middleware.UserID(c), docID, f)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"artifacts": arts})
}

type generateRequest struct {
	Mode string `json:"mode"`
}

// Generate returns the cached set when one exists for the current text.
func (h *DocumentHandler) Generate(c *gin.Context) {
	docID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req generateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	mode := study.ModeFaithful
	if m := strings.TrimSpace(req.Mode); m != "" {
		mode = study.Mode(m)
	}
	res, err := h.generation.GenerateForDocument(c.Request.Context(), middleware.UserID(c), docID, mode)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, res)
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_"+name, fmt.Errorf("%s must be a uuid", name))
		return uuid.Nil, false
	}
	return id, true
}

func optionalUUID(raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

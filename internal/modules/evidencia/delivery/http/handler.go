package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"perito.app/casetrack/internal/modules/evidencia/dto"
	evidencia "perito.app/casetrack/internal/modules/evidencia/service"
	"perito.app/casetrack/pkg/apperror"
	"perito.app/casetrack/pkg/response"
)

const fileField = "arquivo"

const MsgFileTooLarge = "Arquivo excede o tamanho máximo permitido"

type EvidenciaHandler struct {
	service evidencia.EvidenceService
}

func NewEvidenciaHandler(service evidencia.EvidenceService) *EvidenciaHandler {
	return &EvidenciaHandler{service: service}
}

// readUpload buffers the optional "arquivo" part. A request without the
// part yields nil.
func readUpload(c *gin.Context) (*dto.Upload, error) {
	header, err := c.FormFile(fileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		if tooLarge(err) {
			return nil, apperror.New(http.StatusRequestEntityTooLarge, MsgFileTooLarge, err)
		}
		return nil, apperror.BadRequest("Falha ao ler o arquivo enviado")
	}
	return bufferFile(header)
}

// tooLarge reports whether err was raised by the body size limit.
func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func bindForm(c *gin.Context, form any) bool {
	err := c.ShouldBind(form)
	if err == nil {
		return true
	}
	if tooLarge(err) {
		response.Error(c, apperror.New(http.StatusRequestEntityTooLarge, MsgFileTooLarge, err))
		return false
	}
	response.BindError(c, err)
	return false
}

func bufferFile(header *multipart.FileHeader) (*dto.Upload, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &dto.Upload{Data: data, ContentType: contentType, Filename: header.Filename}, nil
}

func (h *EvidenciaHandler) Create(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var form dto.EvidenceForm
	if !bindForm(c, &form) {
		return
	}
	upload, err := readUpload(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), actor, form, upload)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Evidência criada com sucesso",
		"evidencia": created,
	})
}

func (h *EvidenciaHandler) ListByCase(c *gin.Context) {
	casoID, err := response.ParamUUID(c, "casoId")
	if err != nil {
		response.Error(c, err)
		return
	}

	evidencias, err := h.service.ListByCase(c.Request.Context(), casoID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"evidencias": evidencias})
}

func (h *EvidenciaHandler) GetByID(c *gin.Context) {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	evidence, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, evidence)
}

func (h *EvidenciaHandler) Download(c *gin.Context) {
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	file, err := h.service.DownloadFile(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	filename := strings.ReplaceAll(file.Filename, `"`, "")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, file.Data)
}

func (h *EvidenciaHandler) Update(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var form dto.EvidenceUpdateForm
	if !bindForm(c, &form) {
		return
	}
	upload, err := readUpload(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	updated, err := h.service.Update(c.Request.Context(), actor, id, form, upload)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Evidência atualizada com sucesso",
		"evidencia": updated,
	})
}

func (h *EvidenciaHandler) Delete(c *gin.Context) {
	actor, err := response.GetActor(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := response.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Evidência excluída com sucesso"})
}

package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"answer-grading-service/internal/adapters/primary/http/dto"
	"answer-grading-service/internal/core/domain"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	formFieldFile          = "file"
	formFieldCorrectAnswer = "correct_answer"
)

func (h *Handler) SubmitAnswer(c *gin.Context) {
	if h.uploadMaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploadMaxBytes)
	}

	fh, err := c.FormFile(formFieldFile)
	if err != nil {
		mapDomainError(c, uploadError(err))
		return
	}

	image, err := readUpload(fh)
	if err != nil {
		log.WithError(err).Error("read upload failed")
		mapDomainError(c, err)
		return
	}

	sub := domain.Submission{
		Image:          image,
		ExpectedAnswer: c.PostForm(formFieldCorrectAnswer),
	}

	outcome, err := h.gradingSvc.Grade(c.Request.Context(), sub)
	if err != nil {
		log.WithFields(log.Fields{
			"request_id": c.GetString("request_id"),
			"filename":   fh.Filename,
			"size":       fh.Size,
		}).WithError(err).Error("grade submission failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToGradeResponse(outcome))
}

// uploadError classifies a failure to pull the file part out of the form.
func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return domain.ErrImageTooLarge
	}
	return domain.ErrImageRequired
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

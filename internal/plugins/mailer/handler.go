package mailer

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/mailcraft/internal/apperror"
	"github.com/keyxmakerx/mailcraft/internal/config"
)

// allowedAttachmentTypes is the MIME allow-list for uploaded attachments.
var allowedAttachmentTypes = map[string]bool{
	"image/jpeg":         true,
	"image/png":          true,
	"image/gif":          true,
	"application/pdf":    true,
	"text/plain":         true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// attachmentField is the multipart field carrying attachment files.
const attachmentField = "attachments"

// sendForm is the wire shape of POST /api/email/send. Multipart forms and
// JSON bodies bind to the same struct.
type sendForm struct {
	Email       string `json:"email" form:"email"`
	Password    string `json:"password" form:"password"`
	AccessToken string `json:"accessToken" form:"accessToken"`
	To          string `json:"to" form:"to"`
	Subject     string `json:"subject" form:"subject"`
	HTML        string `json:"html" form:"html"`
}

// testConnectionForm is the wire shape of POST /api/email/test-connection.
type testConnectionForm struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Handler serves the /api/email routes.
type Handler struct {
	service    MailService
	mail       config.MailConfig
	upload     config.UploadConfig
	showDetail bool
}

// NewHandler creates a new mail handler. showDetail exposes provider
// diagnostics in responses and must only be set in development.
func NewHandler(service MailService, mail config.MailConfig, upload config.UploadConfig, showDetail bool) *Handler {
	return &Handler{
		service:    service,
		mail:       mail,
		upload:     upload,
		showDetail: showDetail,
	}
}

// Send dispatches one message (POST /api/email/send). Attachments are
// checked here, before the dispatch core sees the request.
func (h *Handler) Send(c echo.Context) error {
	var form sendForm
	if err := c.Bind(&form); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	attachments, err := h.readAttachments(c)
	if err != nil {
		return err
	}

	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()

	result := h.service.SendEmail(ctx, SendRequest{
		Credentials: Credentials{
			Email:       strings.TrimSpace(form.Email),
			Password:    form.Password,
			AccessToken: form.AccessToken,
		},
		To:          form.To,
		Subject:     form.Subject,
		HTML:        form.HTML,
		Attachments: attachments,
	})
	return c.JSON(result.StatusCode(), result.Response(h.showDetail))
}

// TestConnection checks SMTP credentials without sending
// (POST /api/email/test-connection).
func (h *Handler) TestConnection(c echo.Context) error {
	var form testConnectionForm
	if err := c.Bind(&form); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if strings.TrimSpace(form.Email) == "" || form.Password == "" {
		return apperror.NewBadRequest("Email and password are required")
	}

	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()

	ok := h.service.TestConnection(ctx, Credentials{
		Email:    strings.TrimSpace(form.Email),
		Password: form.Password,
	})
	if !ok {
		return c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Message: "Connection test failed. Please check your credentials.",
		})
	}
	return c.JSON(http.StatusOK, Response{
		Success: true,
		Message: "Connection test successful",
	})
}

// Config returns the password-mode transport defaults (GET /api/email/config).
func (h *Handler) Config(c echo.Context) error {
	return c.JSON(http.StatusOK, ConfigResponse{
		Host:   h.mail.Host,
		Port:   h.mail.Port,
		Secure: h.mail.ImplicitTLS,
	})
}

func (h *Handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.mail.Timeout <= 0 {
		return context.WithTimeout(ctx, 30*time.Second)
	}
	return context.WithTimeout(ctx, h.mail.Timeout)
}

// readAttachments enforces the count, size and type limits on uploaded
// files and reads them into memory. Non-multipart requests carry none.
func (h *Handler) readAttachments(c echo.Context) ([]Attachment, error) {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		return nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperror.NewBadRequest("invalid multipart form")
	}
	files := form.File[attachmentField]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > h.upload.MaxFiles {
		return nil, apperror.NewBadRequest(fmt.Sprintf("Too many files. Maximum is %d attachments.", h.upload.MaxFiles))
	}

	attachments := make([]Attachment, 0, len(files))
	for _, fh := range files {
		a, err := h.readAttachment(fh)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, nil
}

func (h *Handler) readAttachment(fh *multipart.FileHeader) (Attachment, error) {
	if fh.Size > h.upload.MaxSize {
		return Attachment{}, apperror.NewBadRequest(fmt.Sprintf(
			"File %q is too large. Maximum size is %dMB.", fh.Filename, h.upload.MaxSize/(1024*1024)))
	}

	mediaType, _, err := mime.ParseMediaType(fh.Header.Get(echo.HeaderContentType))
	if err != nil || !allowedAttachmentTypes[mediaType] {
		return Attachment{}, apperror.NewBadRequest(fmt.Sprintf("Invalid file type for %q", fh.Filename))
	}

	f, err := fh.Open()
	if err != nil {
		return Attachment{}, apperror.NewInternal(fmt.Errorf("opening upload %q: %w", fh.Filename, err))
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, h.upload.MaxSize+1))
	if err != nil {
		return Attachment{}, apperror.NewInternal(fmt.Errorf("reading upload %q: %w", fh.Filename, err))
	}
	if int64(len(content)) > h.upload.MaxSize {
		return Attachment{}, apperror.NewBadRequest(fmt.Sprintf(
			"File %q is too large. Maximum size is %dMB.", fh.Filename, h.upload.MaxSize/(1024*1024)))
	}

	return Attachment{
		Filename:    fh.Filename,
		Content:     content,
		ContentType: mediaType,
	}, nil
}

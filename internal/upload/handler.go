package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/img2prompt/service/internal/apperr"
	"github.com/img2prompt/service/internal/middleware"
	"github.com/img2prompt/service/internal/response"
)

// Provider names accepted in the provider query parameter.
const (
	ProviderOSS     = "oss"
	ProviderStorage = "storage"
)

// multipart framing allowance on top of the file itself
const formOverhead = 1 << 20

// Uploader stores a blob and returns the URL it is served from.
type Uploader interface {
	Upload(ctx context.Context, data []byte, fileName, contentType string) (string, error)
}

// Handler holds the HTTP handler for image uploads.
type Handler struct {
	providers map[string]Uploader
	validate  *validator.Validate
	log       zerolog.Logger
}

// NewHandler creates an upload Handler. providers is keyed by provider name.
func NewHandler(providers map[string]Uploader, log zerolog.Logger) *Handler {
	return &Handler{
		providers: providers,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		log:       log,
	}
}

type uploadQuery struct {
	Provider string `validate:"oneof=oss storage"`
}

type uploadData struct {
	URL string `json:"url" example:"https://cdn.img2prompt.com/images/1700000000123-k3x9q0.png"`
}

// Upload godoc
//
//	@Summary		Upload an image
//	@Description	Validates an image (image/* up to 10 MiB) and stores it with the selected provider. Returns the public URL.
//	@Tags			upload
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file		formData	file	true	"Image file"
//	@Param			provider	query		string	false	"Storage provider"	Enums(oss, storage)	default(oss)
//	@Success		200			{object}	response.Envelope{data=uploadData}
//	@Failure		400			{object}	response.Envelope
//	@Failure		401			{object}	response.Envelope
//	@Failure		413			{object}	response.Envelope
//	@Failure		502			{object}	response.Envelope
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	q := uploadQuery{Provider: r.URL.Query().Get("provider")}
	if q.Provider == "" {
		q.Provider = ProviderOSS
	}
	up, found := h.providers[q.Provider]
	if err := h.validate.Struct(q); err != nil || !found {
		response.BadRequest(w, "provider must be one of: oss, storage")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxFileSize+formOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.RequestTooLarge(w, "file is too large: the limit is 10 MiB")
			return
		}
		response.BadRequest(w, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxFileSize+1))
	if err != nil {
		h.log.Error().Err(err).Str("uid", id.UID).Msg("read upload")
		response.BadRequest(w, "could not read file")
		return
	}

	contentType, err := resolveContentType(header.Header.Get("Content-Type"), data)
	if err == nil {
		err = Validate(File{Name: header.Filename, ContentType: contentType, Size: int64(len(data))})
	}
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	u, err := up.Upload(r.Context(), data, header.Filename, contentType)
	if err != nil {
		h.log.Error().Err(err).Str("uid", id.UID).Str("provider", q.Provider).Msg("upload failed")
		if apperr.IsUploadFailure(err) {
			response.BadGateway(w, err.Error())
			return
		}
		response.ErrorDetails(w, http.StatusInternalServerError, "Failed to upload file", err.Error())
		return
	}

	h.log.Info().Str("uid", id.UID).Str("provider", q.Provider).Int("bytes", len(data)).Msg("image uploaded")
	response.OK(w, uploadData{URL: u})
}

// resolveContentType trusts the declared type only when the content agrees with it.
// A missing or generic declaration is replaced by the sniffed type.
func resolveContentType(declared string, data []byte) (string, error) {
	sniffed := mimetype.Detect(data)
	if declared == "" || declared == "application/octet-stream" {
		return sniffed.String(), nil
	}
	if strings.HasPrefix(declared, "image/") && !strings.HasPrefix(sniffed.String(), "image/") {
		return "", apperr.NewValidation("file content is not an image")
	}
	return declared, nil
}

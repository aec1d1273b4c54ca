package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Yulian302/lfusys-services-media/internal/apperror"
	logger "github.com/Yulian302/lfusys-services-media/internal/logging"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/Yulian302/lfusys-services-media/services"
	"github.com/aws/aws-lambda-go/events"
)

// APIFunc is the shape of every API Gateway proxy function.
type APIFunc func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

type userFunc func(ctx context.Context, req events.APIGatewayProxyRequest, user *models.UserInfo) (events.APIGatewayProxyResponse, error)

type Services struct {
	Auth    services.AuthService
	Uploads services.UploadService
	Media   services.MediaService
	Faces   services.FaceService
	Albums  services.AlbumService
	Ingest  services.IngestService
}

type Handler struct {
	auth    services.AuthService
	uploads services.UploadService
	media   services.MediaService
	faces   services.FaceService
	albums  services.AlbumService
	ingest  services.IngestService

	allowOrigin string
	logger      logger.Logger
}

func NewHandler(svcs Services, allowOrigin string, l logger.Logger) *Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}

	return &Handler{
		auth:        svcs.Auth,
		uploads:     svcs.Uploads,
		media:       svcs.Media,
		faces:       svcs.Faces,
		albums:      svcs.Albums,
		ingest:      svcs.Ingest,
		allowOrigin: allowOrigin,
		logger:      l,
	}
}

var errInvalidJSON = errors.New("invalid JSON in request body")

type message struct {
	Message string `json:"message"`
}

func (h *Handler) headers() map[string]string {
	return map[string]string{
		"Content-Type":                     "application/json",
		"Access-Control-Allow-Origin":      h.allowOrigin,
		"Access-Control-Allow-Headers":     "Content-Type,Authorization",
		"Access-Control-Allow-Methods":     "OPTIONS,GET,POST,PUT,DELETE",
		"Access-Control-Allow-Credentials": "true",
	}
}

func (h *Handler) respond(status int, body any) (events.APIGatewayProxyResponse, error) {
	b, err := json.Marshal(body)
	if err != nil {
		h.logger.Error("failed to encode response", "error", err)
		status = http.StatusInternalServerError
		b = []byte(`{"message":"Internal server error"}`)
	}

	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    h.headers(),
		Body:       string(b),
	}, nil
}

func (h *Handler) ok(body any) (events.APIGatewayProxyResponse, error) {
	return h.respond(http.StatusOK, body)
}

// fail maps err to a status code. Server-side failures never leak their
// cause to the client.
func (h *Handler) fail(function string, err error) (events.APIGatewayProxyResponse, error) {
	status, msg := errorStatus(err)

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "function", function, "error", err)
	} else {
		h.logger.Debug("request rejected", "function", function, "status", status, "error", err)
	}

	return h.respond(status, message{Message: msg})
}

func errorStatus(err error) (int, string) {
	if msg, ok := apperror.ValidationMessage(err); ok {
		return http.StatusBadRequest, msg
	}

	switch {
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, errInvalidJSON):
		return http.StatusBadRequest, "Invalid JSON in request body"
	case errors.Is(err, apperror.ErrInvalidToken):
		return http.StatusBadRequest, "Invalid nextToken"
	case errors.Is(err, apperror.ErrInvalidInput):
		return http.StatusBadRequest, "Invalid request"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, apperror.ErrAlbumNotFound):
		return http.StatusNotFound, "Album not found"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "Item not found"
	case errors.Is(err, apperror.ErrAlbumNameTaken):
		return http.StatusConflict, "An album with this name already exists"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// withUser resolves the caller before running fn.
func (h *Handler) withUser(function string, fn userFunc) APIFunc {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		token := accessToken(req.Headers)
		if token == "" {
			return h.fail(function, apperror.ErrUnauthorized)
		}

		user, err := h.auth.Authenticate(ctx, token)
		if err != nil {
			return h.fail(function, err)
		}

		return fn(ctx, req, user)
	}
}

// accessToken reads the Authorization header in any case, with or without
// a Bearer prefix.
func accessToken(headers map[string]string) string {
	for k, v := range headers {
		if !strings.EqualFold(k, "Authorization") {
			continue
		}
		v = strings.TrimSpace(v)
		if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
			v = strings.TrimSpace(v[7:])
		}
		return v
	}
	return ""
}

// decodeBody unmarshals the request body into out. An empty body leaves out
// untouched.
func decodeBody(req events.APIGatewayProxyRequest, out any) error {
	body := req.Body
	if req.IsBase64Encoded && body != "" {
		b, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errInvalidJSON
		}
		body = string(b)
	}

	if strings.TrimSpace(body) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return errInvalidJSON
	}
	return nil
}

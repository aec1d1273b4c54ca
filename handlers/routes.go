package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/aws/aws-lambda-go/events"
)

// Route binds one API function to its REST path. Paths use gorilla/mux
// variable syntax, which matches API Gateway's.
type Route struct {
	Function string
	Method   string
	Path     string
	Handle   APIFunc
}

func (h *Handler) Routes() []Route {
	return []Route{
		{"signin", http.MethodPost, "/auth/signin", h.SignIn},
		{"signout", http.MethodPost, "/auth/signout", h.SignOut},
		{"me", http.MethodGet, "/auth/me", h.withUser("me", h.Me)},

		{"upload-initiate", http.MethodPost, "/uploads/initiate", h.withUser("upload-initiate", h.InitiateUpload)},
		{"upload-complete", http.MethodPost, "/uploads/complete", h.withUser("upload-complete", h.CompleteUpload)},
		{"upload-abort", http.MethodPost, "/uploads/abort", h.withUser("upload-abort", h.AbortUpload)},
		{"download", http.MethodPost, "/downloads", h.withUser("download", h.Download)},
		{"list-objects", http.MethodGet, "/objects", h.withUser("list-objects", h.ListObjects)},

		{"list-media", http.MethodPost, "/media/list", h.withUser("list-media", h.ListMedia)},
		{"get-media", http.MethodPost, "/media/get", h.withUser("get-media", h.GetMedia)},
		{"delete-media", http.MethodPost, "/media/delete", h.withUser("delete-media", h.DeleteMedia)},

		{"get-faces", http.MethodPost, "/faces/get", h.withUser("get-faces", h.GetFaces)},
		{"name-face", http.MethodPut, "/faces/name", h.withUser("name-face", h.NameFace)},

		{"album-save", http.MethodPost, "/albums", h.withUser("album-save", h.SaveAlbum)},
		{"album-list", http.MethodGet, "/albums", h.withUser("album-list", h.ListAlbums)},
		{"album-unassign", http.MethodPost, "/albums/unassign", h.withUser("album-unassign", h.UnassignAlbum)},
		{"album-photos", http.MethodPost, "/albums/{albumId}/photos", h.withUser("album-photos", h.AlbumPhotos)},
		{"album-assign", http.MethodPost, "/albums/{albumId}/assign", h.withUser("album-assign", h.AssignAlbum)},
		{"album-unassign", http.MethodPost, "/albums/{albumId}/unassign", h.withUser("album-unassign", h.UnassignAlbum)},
		{"album-delete", http.MethodDelete, "/albums/{albumId}", h.withUser("album-delete", h.DeleteAlbum)},
	}
}

// APIFunction returns the handler deployed as the named Lambda function.
func (h *Handler) APIFunction(function string) (APIFunc, bool) {
	for _, r := range h.Routes() {
		if r.Function == function {
			return r.Handle, true
		}
	}
	return nil, false
}

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) SignIn(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var body signInRequest
	if err := decodeBody(req, &body); err != nil {
		return h.fail("signin", err)
	}

	res, err := h.auth.SignIn(ctx, body.Username, body.Password)
	if err != nil {
		return h.fail("signin", err)
	}
	return h.ok(res)
}

func (h *Handler) SignOut(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if err := h.auth.SignOut(ctx, accessToken(req.Headers)); err != nil {
		return h.fail("signout", err)
	}
	return h.ok(message{Message: "Successfully signed out."})
}

func (h *Handler) Me(ctx context.Context, req events.APIGatewayProxyRequest, user *models.UserInfo) (events.APIGatewayProxyResponse, error) {
	return h.ok(user)
}

func (h *Handler) InitiateUpload(ctx context.Context, req events.APIGatewayProxyRequest, user *models.UserInfo) (events.APIGatewayProxyResponse, error) {
	var body models.InitiateUploadRequest
	if err := decodeBody(req, &body); err != nil {
		return h.fail("upload-initiate", err)
	}

	res, err := h.uploads.Initiate(ctx, user.UserID, body)
	if err != nil {
		return h.fail("upload-initiate", err)
	}
	return h.ok(res)
}

type completeUploadRequest struct {
	UploadID string                 `json:"uploadId"`
	Key      string                 `json:"key"`
	Parts    []models.CompletedPart `json:"parts"`
}

func (h *Handler) CompleteUpload(ctx context.Context, req events.APIGatewayProxyRequest, user *models.UserInfo) (events.APIGatewayProxyResponse, error) {
	var body completeUploadRequest
	if err := decodeBody(req, &body); err != nil {
		return h.fail("upload-complete", err)
	}

	res, err := h.uploads.Complete(ctx, user.UserID, body.UploadID, body.Key, body.Parts)
	if err != nil {
		return h.fail("upload-complete", err)
	}
	return h.ok(res)
}

func (h *Handler) AbortUpload(ctx context.Context, req events.APIGatewayProxyRequest, user *models.UserInfo) (events.APIGatewayProxyResponse, error) {
	var body completeUploadRequest
	if err := decodeBody(req, &body); err != nil {
		return h.fail("upload-abort", err)
	}

	if err := h.uploads.Abort(ctx, user.UserID, body.UploadID, body.Key); err != nil {
		return h.fail("upload-abort", err)
	}
	return h.ok(message{Message: "Upload aborted"})
}

type downloadRequest struct {
	FileName  string `json:"fileName"`
	Thumbnail bool   `json:"thumbnail"`
}

func (h *Handler) Download(ctx context.Context, req events.APIGatewayProxyRequest, user *models.UserInfo) (events.APIGatewayProxyResponse, error) {
	var body downloadRequest
	if err := decodeBody(req, &body); err != nil {
		return h.fail("download", err)
	}

	url, err := h.uploads.DownloadURL(ctx, user.UserID, body.FileName, body.Thumbnail)
	if err != nil {
		return h.fail("download", err)
	}
	return h.ok(map[string]string{"signedUrl": url})
}

func (h *Handler) ListObjects(ctx context.Context, req events.APIGatewayProxyRequest, user *models.UserInfo) (events.APIGatewayProxyResponse, error) {
	keys, err := h.uploads.ListObjects(ctx, user.UserID)
	if err != nil {
		return h.fail("list-objects", err)
	}
	if keys == nil {
		keys = []string{}
	}
	return h.ok(keys)
}

type listMediaRequest struct {
	Date string `json:"date"`
}

func (h *Handler) ListMedia(ctx context.Context, req events.APIGatewayProxyRequest, user *models.UserInfo) (events.APIGatewayProxyResponse, error) {
	var body listMediaRequest
	if err := decodeBody(req, &body); err != nil {
		return h.fail("list-media", err)
	}

	items, err := h.media.List(ctx, user.UserID, strings.TrimSpace(body.Date))
	if err != nil {
		return h.fail("list-media", err)
	}
	return h.ok(map[string]any{"items": items})
}

func (h *Handler) GetMedia(ctx context.Context, req events.APIGatewayProxyRequest, user *models.UserInfo) (events.APIGatewayProxyResponse, error) {
	var key models.ItemKey
	if err := decodeBody(req, &key); err != nil {
		return h.fail("get-media", err)
	}

	item, err := h.media.Get(ctx, user.UserID, key)
	if err != nil {
		return h.fail("get-media", err)
	}
	return h.ok(map[string]any{"item": item})
}

type deleteMediaRequest struct {
	Files []models.DeleteFile `json:"files"`
}

type deleteMediaResponse struct {
	Message string `json:"message"`
	*models.DeleteResult
}

func (h *Handler) DeleteMedia(ctx context.Context, req events.APIGatewayProxyRequest, user *models.UserInfo) (events.APIGatewayProxyResponse, error) {
	var body deleteMediaRequest
	if err := decodeBody(req, &body); err != nil {
		return h.fail("delete-media", err)
	}

	res, err := h.media.Delete(ctx, user.UserID, body.Files)
	if err != nil {
		return h.fail("delete-media", err)
	}
	return h.ok(deleteMediaResponse{Message: "Files and records deleted successfully", DeleteResult: res})
}

type getFacesRequest struct {
	PK      string `json:"PK"`
	ImageID string `json:"imageId"`
}

func (h *Handler) GetFaces(ctx context.Context, req events.APIGatewayProxyRequest, user *models.UserInfo) (events.APIGatewayProxyResponse, error) {
	var body getFacesRequest
	if err := decodeBody(req, &body); err != nil {
		return h.fail("get-faces", err)
	}

	imageID := body.ImageID
	if imageID == "" {
		imageID = body.PK
	}

	faces, err := h.faces.Get(ctx, user.UserID, imageID)
	if err != nil {
		return h.fail("get-faces", err)
	}
	return h.ok(faces)
}

type nameFaceRequest struct {
	ImageID  string `json:"imageId"`
	FaceID   string `json:"faceId"`
	FaceName string `json:"faceName"`
}

func (h *Handler) NameFace(ctx context.Context, req events.APIGatewayProxyRequest, user *models.UserInfo) (events.APIGatewayProxyResponse, error) {
	var body nameFaceRequest
	if err := decodeBody(req, &body); err != nil {
		return h.fail("name-face", err)
	}

	similar, err := h.faces.Rename(ctx, user.UserID, body.ImageID, body.FaceID, body.FaceName)
	if err != nil {
		return h.fail("name-face", err)
	}
	return h.ok(map[string]any{
		"message":      "Face name updated successfully",
		"similarFaces": similar,
	})
}

type albumRequest struct {
	AlbumID   string           `json:"albumId"`
	AlbumName string           `json:"albumName"`
	NextToken string           `json:"nextToken"`
	Items     []models.ItemKey `json:"items"`
}

// albumID prefers the path parameter over the body.
func (r albumRequest) albumID(req events.APIGatewayProxyRequest) string {
	if id := req.PathParameters["albumId"]; id != "" {
		return id
	}
	return r.AlbumID
}

type saveAlbumResponse struct {
	AlbumID   string `json:"albumId"`
	AlbumName string `json:"albumName"`
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt"`
}

func (h *Handler) SaveAlbum(ctx context.Context, req events.APIGatewayProxyRequest, user *models.UserInfo) (events.APIGatewayProxyResponse, error) {
	var body albumRequest
	if err := decodeBody(req, &body); err != nil {
		return h.fail("album-save", err)
	}

	res, err := h.albums.Save(ctx, user.UserID, body.albumID(req), body.AlbumName)
	if err != nil {
		return h.fail("album-save", err)
	}

	out := saveAlbumResponse{
		AlbumID:   res.Album.SK,
		AlbumName: res.Album.AlbumName,
		Message:   "Album updated successfully",
		UpdatedAt: res.Album.UpdatedAt,
	}
	if res.Created {
		out.Message = "Album created successfully"
		out.CreatedAt = res.Album.CreatedAt
	}
	return h.ok(out)
}

func (h *Handler) ListAlbums(ctx context.Context, req events.APIGatewayProxyRequest, user *models.UserInfo) (events.APIGatewayProxyResponse, error) {
	albums, err := h.albums.List(ctx, user.UserID)
	if err != nil {
		return h.fail("album-list", err)
	}
	if albums == nil {
		albums = []models.AlbumView{}
	}
	return h.ok(map[string]any{"albums": albums})
}

func (h *Handler) AlbumPhotos(ctx context.Context, req events.APIGatewayProxyRequest, user *models.UserInfo) (events.APIGatewayProxyResponse, error) {
	var body albumRequest
	if err := decodeBody(req, &body); err != nil {
		return h.fail("album-photos", err)
	}

	page, err := h.albums.Photos(ctx, user.UserID, body.albumID(req), body.NextToken)
	if err != nil {
		return h.fail("album-photos", err)
	}
	if page.Items == nil {
		page.Items = []models.MediaItem{}
	}
	return h.ok(page)
}

type assignResponse struct {
	Message string `json:"message"`
	*models.AssignResult
}

func (h *Handler) AssignAlbum(ctx context.Context, req events.APIGatewayProxyRequest, user *models.UserInfo) (events.APIGatewayProxyResponse, error) {
	var body albumRequest
	if err := decodeBody(req, &body); err != nil {
		return h.fail("album-assign", err)
	}

	res, err := h.albums.Assign(ctx, user.UserID, body.albumID(req), body.Items)
	if err != nil {
		return h.fail("album-assign", err)
	}
	return h.ok(assignResponse{
		Message:      fmt.Sprintf("Assignment completed. %d items assigned successfully.", res.Success),
		AssignResult: res,
	})
}

func (h *Handler) UnassignAlbum(ctx context.Context, req events.APIGatewayProxyRequest, user *models.UserInfo) (events.APIGatewayProxyResponse, error) {
	var body albumRequest
	if err := decodeBody(req, &body); err != nil {
		return h.fail("album-unassign", err)
	}

	albumID := body.albumID(req)
	res, err := h.albums.Unassign(ctx, user.UserID, albumID, body.Items)
	if err != nil {
		return h.fail("album-unassign", err)
	}

	msg := fmt.Sprintf("Unassignment from all albums completed. %d items unassigned successfully.", res.Success)
	if albumID != "" {
		msg = fmt.Sprintf("Unassignment from album completed. %d items unassigned successfully.", res.Success)
	}
	return h.ok(assignResponse{Message: msg, AssignResult: res})
}

func (h *Handler) DeleteAlbum(ctx context.Context, req events.APIGatewayProxyRequest, user *models.UserInfo) (events.APIGatewayProxyResponse, error) {
	n, err := h.albums.Delete(ctx, user.UserID, req.PathParameters["albumId"])
	if err != nil {
		return h.fail("album-delete", err)
	}
	return h.ok(map[string]any{
		"message":    "Album deleted successfully",
		"unassigned": n,
	})
}

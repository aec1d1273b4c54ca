package models

import (
	"mime"
	"path"
	"strings"
	"time"
)

const (
	AlbumPrefix = "ALBUM#"
	ImagePrefix = "IMAGE#"
	FacePrefix  = "FACE#"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

// Timestamp formats t the way every row stores time: UTC, millisecond
// precision, lexically sortable.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func AlbumSK(albumID string) string {
	if strings.HasPrefix(albumID, AlbumPrefix) {
		return albumID
	}
	return AlbumPrefix + albumID
}

func ImagePK(imageID string) string {
	if strings.HasPrefix(imageID, ImagePrefix) {
		return imageID
	}
	return ImagePrefix + imageID
}

func FaceSK(faceID string) string {
	if strings.HasPrefix(faceID, FacePrefix) {
		return faceID
	}
	return FacePrefix + faceID
}

func TrimImagePrefix(id string) string {
	return strings.TrimPrefix(id, ImagePrefix)
}

func TrimFacePrefix(id string) string {
	return strings.TrimPrefix(id, FacePrefix)
}

func IsAlbumSK(sk string) bool {
	return strings.HasPrefix(sk, AlbumPrefix)
}

// IsMediaRow reports whether pk/sk address a user's media item rather than an
// album or a face row.
func IsMediaRow(pk, sk string) bool {
	return pk != "" && !strings.HasPrefix(pk, ImagePrefix) && sk != "" && !IsAlbumSK(sk)
}

func ObjectKey(userID, fileName string) string {
	return userID + "/" + fileName
}

// SplitObjectKey splits "<userId>/<fileName>". Keys with any other shape are
// not user media.
func SplitObjectKey(key string) (userID, fileName string, ok bool) {
	userID, fileName, found := strings.Cut(key, "/")
	if !found || userID == "" || fileName == "" || strings.Contains(fileName, "/") {
		return "", "", false
	}
	return userID, fileName, true
}

func ValidFileName(name string) bool {
	if name == "" || name == "." || name == ".." || len(name) > 1024 {
		return false
	}
	return !strings.Contains(name, "/")
}

// ValidDatePrefix reports whether prefix can only match media timestamps:
// digits and dashes, no longer than a date.
func ValidDatePrefix(prefix string) bool {
	if prefix == "" || len(prefix) > len("2006-01-02") {
		return false
	}
	return strings.Trim(prefix, "0123456789-") == ""
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".bmp":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

func IsImageFile(name string) bool {
	_, ok := imageExtensions[strings.ToLower(path.Ext(name))]
	return ok
}

// IsFaceIndexable reports whether the vision service accepts the file; it
// only reads JPEG and PNG.
func IsFaceIndexable(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

func ContentTypeFor(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

package models

// MediaItem is one uploaded photo or video of a user.
type MediaItem struct {
	PK           string `dynamodbav:"PK" json:"PK"`                                           // Owner user id (Cognito sub)
	SK           string `dynamodbav:"SK" json:"SK"`                                           // Upload timestamp, sorts newest last
	FileName     string `dynamodbav:"fileName" json:"fileName"`                               // Object name below the user prefix
	FileSize     int64  `dynamodbav:"fileSize" json:"fileSize"`                               // Size in bytes reported by S3
	ContentType  string `dynamodbav:"contentType,omitempty" json:"contentType,omitempty"`     // Guessed from the extension
	ThumbnailKey string `dynamodbav:"thumbnailKey,omitempty" json:"thumbnailKey,omitempty"`   // Key in the thumbnail bucket
	ImageID      string `dynamodbav:"imageId,omitempty" json:"imageId,omitempty"`             // Rekognition image id once faces are indexed
	AlbumID      string `dynamodbav:"albumId,omitempty" json:"albumId,omitempty"`             // ALBUM#<id> when assigned
	CreatedAt    string `dynamodbav:"createdAt,omitempty" json:"createdAt,omitempty"`         // Time of creation
	UpdatedAt    string `dynamodbav:"updatedAt,omitempty" json:"updatedAt,omitempty"`         // Time of last update
}

func (m MediaItem) Key() ItemKey {
	return ItemKey{PK: m.PK, SK: m.SK}
}

type ItemKey struct {
	PK string `dynamodbav:"PK" json:"PK"`
	SK string `dynamodbav:"SK" json:"SK"`
}

// DeleteFile identifies one media item to remove together with its objects.
type DeleteFile struct {
	PK       string `json:"PK"`
	SK       string `json:"SK"`
	FileName string `json:"fileName"`
	ImageID  string `json:"imageId,omitempty"`
}

type DeleteResult struct {
	UploadFilesDeleted    []string `json:"uploadFilesDeleted"`
	ThumbnailFilesDeleted []string `json:"thumbnailFilesDeleted"`
	FaceRecordsDeleted    int      `json:"faceRecordsDeleted"`
}

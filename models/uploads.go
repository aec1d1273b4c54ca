package models

// MultipartUpload is returned when a client starts an upload; it PUTs each
// part to its URL and then completes the upload with the returned ETags.
type MultipartUpload struct {
	UploadID string       `json:"uploadId"`
	Key      string       `json:"key"`
	Parts    []UploadPart `json:"parts"`
}

type UploadPart struct {
	PartNumber int32  `json:"partNumber"`
	URL        string `json:"url"`
}

type CompletedPart struct {
	ETag       string `json:"ETag"`
	PartNumber int32  `json:"PartNumber"`
}

type CompletedUpload struct {
	Location string `json:"location"`
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	ETag     string `json:"eTag"`
}

// ObjectCreatedDetail is the detail of an EventBridge "Object Created" event.
type ObjectCreatedDetail struct {
	Bucket struct {
		Name string `json:"name"`
	} `json:"bucket"`
	Object struct {
		Key  string `json:"key"`
		Size int64  `json:"size"`
		ETag string `json:"etag"`
	} `json:"object"`
}

type UserInfo struct {
	UserID     string            `json:"userId"`
	Username   string            `json:"username"`
	Attributes map[string]string `json:"attributes"`
}

// AuthResult mirrors the identity provider's authentication result.
type AuthResult struct {
	AccessToken  string `json:"AccessToken,omitempty"`
	IdToken      string `json:"IdToken,omitempty"`
	RefreshToken string `json:"RefreshToken,omitempty"`
	TokenType    string `json:"TokenType,omitempty"`
	ExpiresIn    int32  `json:"ExpiresIn,omitempty"`
}

type SignInResult struct {
	AuthenticationResult *AuthResult `json:"AuthenticationResult,omitempty"`
	ChallengeName        string      `json:"ChallengeName,omitempty"`
	Session              string      `json:"Session,omitempty"`
}

// InitiateUploadRequest starts a multipart upload. Either FileSize or
// PartCount decides how many part URLs are presigned.
type InitiateUploadRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType,omitempty"`
	FileSize    int64  `json:"fileSize,omitempty"`
	PartCount   int    `json:"partCount,omitempty"`
}

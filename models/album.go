package models

type Album struct {
	PK        string `dynamodbav:"PK"`                  // Owner user id
	SK        string `dynamodbav:"SK"`                  // ALBUM#<uuid>
	AlbumName string `dynamodbav:"albumName"`           // Unique per user, case-insensitive
	CreatedAt string `dynamodbav:"createdAt,omitempty"` // Time of creation
	UpdatedAt string `dynamodbav:"updatedAt"`           // Time of last rename
}

// AlbumView is the client-facing shape of an album.
type AlbumView struct {
	AlbumID   string `json:"albumId"`
	AlbumName string `json:"albumName"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt"`
}

func (a Album) View() AlbumView {
	return AlbumView{
		AlbumID:   a.SK,
		AlbumName: a.AlbumName,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

type SaveAlbumResult struct {
	Album   Album
	Created bool
}

// AssignResult counts per-item outcomes of album assignment changes.
type AssignResult struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

type AlbumPage struct {
	Items     []MediaItem `json:"items"`
	NextToken *string     `json:"nextToken"`
	Count     int         `json:"count"`
}

package models

type Face struct {
	PK          string       `dynamodbav:"PK" json:"PK"`                                     // IMAGE#<imageId>
	SK          string       `dynamodbav:"SK" json:"SK"`                                     // FACE#<faceId>
	UserID      string       `dynamodbav:"userId,omitempty" json:"userId,omitempty"`         // Owner, also the collection id
	BoundingBox *BoundingBox `dynamodbav:"boundingBox,omitempty" json:"boundingBox,omitempty"` // Ratios of the image size
	Confidence  float32      `dynamodbav:"confidence" json:"confidence"`                     // Detection confidence
	FaceName    string       `dynamodbav:"faceName,omitempty" json:"faceName,omitempty"`     // Set by the user or copied from a match
	UpdatedAt   string       `dynamodbav:"updatedAt" json:"updatedAt"`
}

func (f Face) FaceID() string {
	return TrimFacePrefix(f.SK)
}

func (f Face) ImageID() string {
	return TrimImagePrefix(f.PK)
}

type BoundingBox struct {
	Width  float32 `dynamodbav:"Width" json:"Width"`
	Height float32 `dynamodbav:"Height" json:"Height"`
	Left   float32 `dynamodbav:"Left" json:"Left"`
	Top    float32 `dynamodbav:"Top" json:"Top"`
}

// IndexedFace is what the vision service reports for one detected face.
type IndexedFace struct {
	FaceID      string
	ImageID     string
	Confidence  float32
	BoundingBox *BoundingBox
}

// FaceMatch is one search hit in a face collection.
type FaceMatch struct {
	FaceID     string
	ImageID    string
	Similarity float32
}

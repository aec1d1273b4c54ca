package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/Yulian302/lfusys-services-media/store"
	"github.com/aws/aws-lambda-go/events"
)

const (
	streamInsert = "INSERT"
	streamModify = "MODIFY"
)

// Ingest handles EventBridge "Object Created" events of the upload bucket.
// Errors are returned only for failures worth a retry.
func (h *Handler) Ingest(ctx context.Context, evt events.CloudWatchEvent) error {
	if evt.DetailType != "" && evt.DetailType != "Object Created" {
		h.logger.Debug("ignoring event", "function", "ingest", "detail_type", evt.DetailType)
		return nil
	}

	var detail models.ObjectCreatedDetail
	if err := json.Unmarshal(evt.Detail, &detail); err != nil {
		h.logger.Warn("dropping malformed event", "function", "ingest", "event_id", evt.ID, "error", err)
		return nil
	}

	if _, err := h.ingest.ProcessObjectCreated(ctx, detail); err != nil {
		return fmt.Errorf("failed to ingest %s: %w", detail.Object.Key, err)
	}
	return nil
}

// IndexFaces indexes the faces of every newly inserted image row. The stream
// is redelivered from the first reported failure, so processing stops there.
func (h *Handler) IndexFaces(ctx context.Context, evt events.DynamoDBEvent) (events.DynamoDBEventResponse, error) {
	var res events.DynamoDBEventResponse

	for _, record := range evt.Records {
		if record.EventName != streamInsert {
			continue
		}

		var item models.MediaItem
		if err := store.UnmarshalStreamImage(record.Change.NewImage, &item); err != nil {
			h.logger.Warn("skipping undecodable record", "function", "index-faces", "event_id", record.EventID, "error", err)
			continue
		}
		if !models.IsMediaRow(item.PK, item.SK) || !models.IsFaceIndexable(item.FileName) {
			continue
		}

		if _, err := h.faces.IndexImage(ctx, item); err != nil {
			h.logger.Error("face indexing failed",
				"function", "index-faces",
				"user_id", item.PK,
				"sk", item.SK,
				"error", err,
			)
			res.BatchItemFailures = append(res.BatchItemFailures, events.DynamoDBBatchItemFailure{
				ItemIdentifier: record.Change.SequenceNumber,
			})
			break
		}
	}

	return res, nil
}

// MatchFaces names new faces after similar named ones. It runs only when a
// row's imageId is set or changes, so other updates of matched rows do not
// trigger it again.
func (h *Handler) MatchFaces(ctx context.Context, evt events.DynamoDBEvent) (events.DynamoDBEventResponse, error) {
	var res events.DynamoDBEventResponse

	for _, record := range evt.Records {
		if record.EventName != streamModify {
			continue
		}

		var before, after models.MediaItem
		if err := store.UnmarshalStreamImage(record.Change.NewImage, &after); err != nil {
			h.logger.Warn("skipping undecodable record", "function", "match-faces", "event_id", record.EventID, "error", err)
			continue
		}
		if err := store.UnmarshalStreamImage(record.Change.OldImage, &before); err != nil {
			h.logger.Warn("skipping undecodable record", "function", "match-faces", "event_id", record.EventID, "error", err)
			continue
		}

		if !models.IsMediaRow(after.PK, after.SK) || after.ImageID == "" || after.ImageID == before.ImageID {
			continue
		}

		if _, err := h.faces.MatchImage(ctx, after.PK, after.ImageID); err != nil {
			h.logger.Error("face matching failed",
				"function", "match-faces",
				"user_id", after.PK,
				"image_id", after.ImageID,
				"error", err,
			)
			res.BatchItemFailures = append(res.BatchItemFailures, events.DynamoDBBatchItemFailure{
				ItemIdentifier: record.Change.SequenceNumber,
			})
			break
		}
	}

	return res, nil
}

// LambdaHandler returns the handler deployed as the named function, in a
// shape lambda.Start accepts.
func (h *Handler) LambdaHandler(function string) (any, error) {
	switch function {
	case "ingest":
		return h.Ingest, nil
	case "index-faces":
		return h.IndexFaces, nil
	case "match-faces":
		return h.MatchFaces, nil
	}

	if fn, ok := h.APIFunction(function); ok {
		return fn, nil
	}
	return nil, fmt.Errorf("unknown function %q", function)
}

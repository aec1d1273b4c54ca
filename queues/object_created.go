package queues

import (
	"context"
	"errors"
	"sync"
	"time"

	logger "github.com/Yulian302/lfusys-services-media/internal/logging"
	"github.com/Yulian302/lfusys-services-media/models"
	"github.com/Yulian302/lfusys-services-media/services"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/tidwall/gjson"
)

// receiveErrorDelay is how long the loop waits after a failed receive.
const receiveErrorDelay = time.Second

var errMalformedEvent = errors.New("malformed object created event")

type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type ObjectCreatedReceiver interface {
	Start()
	Shutdown(ctx context.Context) error
}

type ReceiverOptions struct {
	WaitSeconds       int32
	VisibilityTimeout int32
	MaxMessages       int32
}

// ObjectCreatedReceiverImpl long-polls a queue subscribed to the upload
// bucket's "Object Created" events and records each upload.
type ObjectCreatedReceiverImpl struct {
	client   SQSAPI
	ingest   services.IngestService
	queueUrl string
	opts     ReceiverOptions

	logger logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewObjectCreatedReceiverImpl(
	parent context.Context,
	client SQSAPI,
	ingest services.IngestService,
	queueUrl string,
	opts ReceiverOptions,
	l logger.Logger,
) *ObjectCreatedReceiverImpl {
	if opts.MaxMessages <= 0 || opts.MaxMessages > 10 {
		opts.MaxMessages = 10
	}

	ctx, cancel := context.WithCancel(parent)

	return &ObjectCreatedReceiverImpl{
		client:   client,
		ingest:   ingest,
		queueUrl: queueUrl,
		opts:     opts,
		logger:   l.With("queue", queueUrl),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (r *ObjectCreatedReceiverImpl) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.pollLoop(); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("poll loop exited", "error", err)
		}
	}()
	r.logger.Info("object created receiver started")
}

func (r *ObjectCreatedReceiverImpl) pollLoop() error {
	for {
		select {
		case <-r.ctx.Done():
			return r.ctx.Err()
		default:
		}

		out, err := r.client.ReceiveMessage(r.ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(r.queueUrl),
			MaxNumberOfMessages: r.opts.MaxMessages,
			WaitTimeSeconds:     r.opts.WaitSeconds, // long poll
			VisibilityTimeout:   r.opts.VisibilityTimeout,
		})
		if err != nil {
			if r.ctx.Err() != nil {
				return r.ctx.Err()
			}
			r.logger.Warn("receive failed", "error", err)
			select {
			case <-r.ctx.Done():
				return r.ctx.Err()
			case <-time.After(receiveErrorDelay):
			}
			continue
		}

		for _, msg := range out.Messages {
			r.handleMessage(r.ctx, msg)
		}
	}
}

func (r *ObjectCreatedReceiverImpl) handleMessage(ctx context.Context, msg types.Message) {
	if msg.Body == nil {
		r.deleteMessage(ctx, msg)
		return
	}

	detail, err := parseObjectCreated(*msg.Body)
	if err != nil {
		// poison message → delete or DLQ
		r.logger.Warn("dropping malformed message", "message_id", aws.ToString(msg.MessageId), "error", err)
		r.deleteMessage(ctx, msg)
		return
	}

	if _, err := r.ingest.ProcessObjectCreated(ctx, detail); err != nil {
		r.logger.Error("ingest failed, leaving message for redelivery",
			"message_id", aws.ToString(msg.MessageId),
			"key", detail.Object.Key,
			"error", err,
		)
		return // retry
	}

	r.deleteMessage(ctx, msg)
}

func (r *ObjectCreatedReceiverImpl) deleteMessage(ctx context.Context, msg types.Message) {
	_, err := r.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(r.queueUrl),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		r.logger.Warn("delete message failed", "message_id", aws.ToString(msg.MessageId), "error", err)
	}
}

// parseObjectCreated reads an EventBridge envelope. Bodies delivered through
// SNS carry the envelope as a JSON string in "Message".
func parseObjectCreated(body string) (models.ObjectCreatedDetail, error) {
	var detail models.ObjectCreatedDetail

	if !gjson.Valid(body) {
		return detail, errMalformedEvent
	}

	root := gjson.Parse(body)
	if msg := root.Get("Message"); msg.Type == gjson.String && gjson.Valid(msg.Str) {
		root = gjson.Parse(msg.Str)
	}

	if dt := root.Get("detail-type"); dt.Exists() && dt.String() != "Object Created" {
		return detail, errMalformedEvent
	}

	d := root.Get("detail")
	detail.Bucket.Name = d.Get("bucket.name").String()
	detail.Object.Key = d.Get("object.key").String()
	detail.Object.Size = d.Get("object.size").Int()
	detail.Object.ETag = d.Get("object.etag").String()

	if detail.Object.Key == "" {
		return detail, errMalformedEvent
	}
	return detail, nil
}

func (r *ObjectCreatedReceiverImpl) Shutdown(ctx context.Context) error {
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("object created receiver stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

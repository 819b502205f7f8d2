package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/s3"
	"log/slog"
	"strings"
	"sync"
)

type Handler struct {
	config   Config
	ingestor ObjectProcessor
	api      *AccessAPI
	s3Client S3Api
}

// concurrency is the max number of objects ingested at once
const concurrency = 10

func NewHandler(config Config) *Handler {
	sess := session.Must(session.NewSession())
	s3Client := s3.New(sess)
	store := NewDynamoDBEventStore(dynamodb.New(sess), config.TableName)

	return &Handler{
		config:   config,
		ingestor: NewEventIngestor(s3Client, store),
		api:      NewAccessAPI(NewAccessReader(store)),
		s3Client: s3Client,
	}
}

// lambdaPayload holds just enough of an invocation payload to tell an S3
// notification from an API Gateway proxy request.
type lambdaPayload struct {
	Records []struct {
		EventSource string `json:"eventSource"`
	} `json:"Records"`
	HTTPMethod string `json:"httpMethod"`
}

// HandleLambdaEvent is the single Lambda entry point for both functions.
func (h *Handler) HandleLambdaEvent(ctx context.Context, payload json.RawMessage) (any, error) {
	var envelope lambdaPayload
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode lambda payload: %w", err)
	}

	switch {
	case len(envelope.Records) > 0:
		var event events.S3Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("failed to decode S3 event: %w", err)
		}
		return h.HandleS3Event(ctx, event)
	case envelope.HTTPMethod != "":
		var req events.APIGatewayProxyRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("failed to decode API Gateway request: %w", err)
		}
		return h.api.HandleAPIGatewayRequest(ctx, req)
	default:
		return nil, errors.New("unsupported lambda event")
	}
}

// HandleS3Event ingests every record of an object-created notification and
// returns the events that were written.
func (h *Handler) HandleS3Event(ctx context.Context, event events.S3Event) ([]AccessEvent, error) {
	var s3Objects []S3ObjectInfo
	for _, record := range event.Records {
		key, err := DecodeObjectKey(record.S3.Object.Key)
		if err != nil {
			slog.ErrorContext(ctx, "skipping record", "bucket", record.S3.Bucket.Name, "error", err)
			continue
		}
		s3obj := S3ObjectInfo{Bucket: record.S3.Bucket.Name, Key: key}
		if !h.config.Accepts(s3obj) {
			slog.DebugContext(ctx, "ignoring object outside trigger", "bucket", s3obj.Bucket, "key", s3obj.Key)
			continue
		}
		s3Objects = append(s3Objects, s3obj)
	}

	return h.processS3Objects(ctx, s3Objects)
}

// processS3Objects ingests the objects concurrently. Every failure is
// reported: the returned error joins them in object order.
func (h *Handler) processS3Objects(ctx context.Context, s3Objects []S3ObjectInfo) ([]AccessEvent, error) {
	errs := make([]error, len(s3Objects))
	results := &ingestResults{}
	var wg sync.WaitGroup
	concurrent := make(chan struct{}, concurrency) // limit concurrent processing
	for i, s3obj := range s3Objects {
		wg.Add(1)
		concurrent <- struct{}{}
		go func(i int, s3obj S3ObjectInfo) {
			defer func() { wg.Done(); <-concurrent }()
			ev, err := h.ingestor.ProcessObject(ctx, s3obj)
			if err != nil {
				errs[i] = fmt.Errorf("error processing s3://%s/%s: %w", s3obj.Bucket, s3obj.Key, err)
				return
			}
			results.Add(ev)
		}(i, s3obj)
	}
	wg.Wait()

	written := results.Events()
	slog.InfoContext(ctx, "processed objects", "total", len(s3Objects), "written", len(written), "dropped", results.Dropped())

	return written, errors.Join(errs...)
}

// HandleS3URL ingests every .json object under s3://bucket/prefix.
func (h *Handler) HandleS3URL(ctx context.Context, url string) error {
	bucket, prefix, err := ParseS3URL(url)
	if err != nil {
		return fmt.Errorf("failed to parse S3 URL: %w", err)
	}

	var s3Objects []S3ObjectInfo
	var continuationToken *string
	for {
		resp, err := h.s3Client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}

		for _, item := range resp.Contents {
			key := aws.StringValue(item.Key)
			if !strings.HasSuffix(key, objectSuffix) {
				continue
			}
			s3Objects = append(s3Objects, S3ObjectInfo{
				Bucket: bucket,
				Key:    key,
			})
		}

		if !aws.BoolValue(resp.IsTruncated) {
			break
		}
		continuationToken = resp.NextContinuationToken
	}

	_, err = h.processS3Objects(ctx, s3Objects)

	return err
}

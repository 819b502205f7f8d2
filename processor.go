package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"io"
	"log/slog"
	"unicode/utf8"
)

type ObjectProcessor interface {
	ProcessObject(ctx context.Context, s3Object S3ObjectInfo) (*AccessEvent, error)
}

type S3Api interface {
	GetObjectWithContext(aws.Context, *s3.GetObjectInput, ...request.Option) (*s3.GetObjectOutput, error)
	ListObjectsV2WithContext(aws.Context, *s3.ListObjectsV2Input, ...request.Option) (*s3.ListObjectsV2Output, error)
}

// EventIngestor turns one uploaded access event object into one stored item.
type EventIngestor struct {
	s3Client S3Api
	store    EventStore
}

func NewEventIngestor(s3Client S3Api, store EventStore) *EventIngestor {
	return &EventIngestor{s3Client: s3Client, store: store}
}

// fetchResult is the outcome of reading and parsing an object. Exactly one of
// doc and err is set.
type fetchResult struct {
	doc map[string]json.RawMessage
	err error
}

func (r fetchResult) ok() bool {
	return r.err == nil
}

// ProcessObject fetches, decodes and stores a single object.
//
// Objects that cannot be fetched or are not a JSON object are logged and
// dropped: the result is (nil, nil). A JSON object lacking a required field
// and a failed store write are returned as errors.
func (p *EventIngestor) ProcessObject(ctx context.Context, s3Object S3ObjectInfo) (*AccessEvent, error) {
	slog.DebugContext(ctx, "received bucket event", "bucket", s3Object.Bucket, "key", s3Object.Key)

	res := p.fetchObject(ctx, s3Object)
	if !res.ok() {
		slog.ErrorContext(ctx, "dropping object", "bucket", s3Object.Bucket, "key", s3Object.Key, "error", res.err)
		ingestedObjectsTotal.WithLabelValues(outcomeDropped).Inc()

		return nil, nil
	}

	ev, err := DecodeAccessEvent(res.doc)
	if err != nil {
		ingestedObjectsTotal.WithLabelValues(outcomeRejected).Inc()

		return nil, err
	}

	if err := p.store.PutAccessEvent(ctx, ev); err != nil {
		ingestedObjectsTotal.WithLabelValues(outcomeStoreError).Inc()

		return nil, err
	}
	ingestedObjectsTotal.WithLabelValues(outcomeWritten).Inc()

	return &ev, nil
}

func (p *EventIngestor) fetchObject(ctx context.Context, s3Object S3ObjectInfo) fetchResult {
	obj, err := p.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s3Object.Bucket),
		Key:    aws.String(s3Object.Key),
	})
	if err != nil {
		return fetchResult{err: fmt.Errorf("failed to get object: %w", err)}
	}
	defer obj.Body.Close()

	body, err := io.ReadAll(obj.Body)
	if err != nil {
		return fetchResult{err: fmt.Errorf("failed to read object body: %w", err)}
	}
	doc, err := parseDocument(body)
	if err != nil {
		return fetchResult{err: err}
	}

	return fetchResult{doc: doc}
}

// parseDocument accepts UTF-8 text holding exactly one JSON object.
func parseDocument(body []byte) (map[string]json.RawMessage, error) {
	if !utf8.Valid(body) {
		return nil, errors.New("object body is not valid UTF-8")
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse object as a JSON object: %w", err)
	}
	if doc == nil {
		return nil, errors.New("object body is null, expected a JSON object")
	}

	return doc, nil
}

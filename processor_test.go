package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const door42Body = `{"event_key":"e1","building_code":"B1","building_door_id":"D7","access_time":"2024-01-01T10:00:00Z","user_identity":"u1"}`

var door42Event = AccessEvent{
	EventKey:       StringValue("e1"),
	BuildingCode:   StringValue("B1"),
	BuildingDoorID: StringValue("D7"),
	AccessTime:     StringValue("2024-01-01T10:00:00Z"),
	UserIdentity:   StringValue("u1"),
}

type MockS3Api struct {
	mock.Mock
}

func (m *MockS3Api) GetObjectWithContext(ctx aws.Context, input *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *MockS3Api) ListObjectsV2WithContext(ctx aws.Context, input *s3.ListObjectsV2Input, _ ...request.Option) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)
	return out, args.Error(1)
}

type MockEventStore struct {
	mock.Mock
}

func (m *MockEventStore) PutAccessEvent(ctx context.Context, ev AccessEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

func (m *MockEventStore) ScanAccessEvents(ctx context.Context) ([]AccessEvent, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]AccessEvent)
	return items, args.Error(1)
}

// captureLogs routes the default logger into a buffer for the rest of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(newLogger(&buf, "json", "debug"))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func objectWithBody(body string) *s3.GetObjectOutput {
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}
}

func TestProcessObject(t *testing.T) {
	s3obj := S3ObjectInfo{Bucket: "test-bucket", Key: "events/door42.json"}

	t.Run("Successful Processing", func(t *testing.T) {
		mockS3 := new(MockS3Api)
		mockStore := new(MockEventStore)
		mockS3.On("GetObjectWithContext", mock.Anything, &s3.GetObjectInput{
			Bucket: aws.String("test-bucket"),
			Key:    aws.String("events/door42.json"),
		}).Return(objectWithBody(door42Body), nil)
		mockStore.On("PutAccessEvent", mock.Anything, door42Event).Return(nil)

		ingestor := NewEventIngestor(mockS3, mockStore)
		ev, err := ingestor.ProcessObject(context.Background(), s3obj)
		require.NoError(t, err)
		require.NotNil(t, ev)
		assert.Equal(t, door42Event, *ev)

		mockS3.AssertExpectations(t)
		mockStore.AssertNumberOfCalls(t, "PutAccessEvent", 1)
	})

	t.Run("Numeric access time", func(t *testing.T) {
		mockS3 := new(MockS3Api)
		mockStore := new(MockEventStore)
		body := `{"event_key":"e2","building_code":"B1","building_door_id":"D7","access_time":1704103200,"user_identity":"u2","badge_color":"red"}`
		mockS3.On("GetObjectWithContext", mock.Anything, mock.Anything).Return(objectWithBody(body), nil)
		mockStore.On("PutAccessEvent", mock.Anything, mock.Anything).Return(nil)

		ev, err := NewEventIngestor(mockS3, mockStore).ProcessObject(context.Background(), s3obj)
		require.NoError(t, err)
		require.NotNil(t, ev)
		assert.True(t, ev.AccessTime.IsNumeric())
		assert.Equal(t, "1704103200", ev.AccessTime.String())
		mockStore.AssertCalled(t, "PutAccessEvent", mock.Anything, *ev)
	})

	t.Run("Missing field", func(t *testing.T) {
		mockS3 := new(MockS3Api)
		mockStore := new(MockEventStore)
		body := `{"event_key":"e1","building_code":"B1","building_door_id":"D7","access_time":"2024-01-01T10:00:00Z"}`
		mockS3.On("GetObjectWithContext", mock.Anything, mock.Anything).Return(objectWithBody(body), nil)

		ev, err := NewEventIngestor(mockS3, mockStore).ProcessObject(context.Background(), s3obj)
		require.Error(t, err)
		assert.Nil(t, ev)

		var missing *MissingFieldsError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, []string{"user_identity"}, missing.Fields)
		mockStore.AssertNotCalled(t, "PutAccessEvent", mock.Anything, mock.Anything)
	})

	t.Run("Unfetchable object is dropped", func(t *testing.T) {
		logs := captureLogs(t)
		mockS3 := new(MockS3Api)
		mockStore := new(MockEventStore)
		mockS3.On("GetObjectWithContext", mock.Anything, mock.Anything).
			Return(nil, awserr.New(s3.ErrCodeNoSuchKey, "The specified key does not exist.", nil))

		ev, err := NewEventIngestor(mockS3, mockStore).ProcessObject(context.Background(), s3obj)
		require.NoError(t, err)
		assert.Nil(t, ev)
		mockStore.AssertNotCalled(t, "PutAccessEvent", mock.Anything, mock.Anything)
		assert.Contains(t, logs.String(), `"level":"ERROR"`)
		assert.Contains(t, logs.String(), "dropping object")
		assert.Contains(t, logs.String(), "NoSuchKey")
	})

	t.Run("Malformed bodies are dropped", func(t *testing.T) {
		bodies := map[string]string{
			"not json":      `event_key=e1`,
			"truncated":     `{"event_key":"e1"`,
			"json array":    `[{"event_key":"e1"}]`,
			"json null":     `null`,
			"two objects":   `{"event_key":"e1"} {"event_key":"e2"}`,
			"invalid utf-8": "{\"event_key\":\"\xff\"}",
		}
		for name, body := range bodies {
			t.Run(name, func(t *testing.T) {
				logs := captureLogs(t)
				mockS3 := new(MockS3Api)
				mockStore := new(MockEventStore)
				mockS3.On("GetObjectWithContext", mock.Anything, mock.Anything).Return(objectWithBody(body), nil)

				ev, err := NewEventIngestor(mockS3, mockStore).ProcessObject(context.Background(), s3obj)
				require.NoError(t, err)
				assert.Nil(t, ev)
				mockStore.AssertNotCalled(t, "PutAccessEvent", mock.Anything, mock.Anything)
				assert.Contains(t, logs.String(), "dropping object")
			})
		}
	})

	t.Run("Store error is returned unchanged", func(t *testing.T) {
		mockS3 := new(MockS3Api)
		mockStore := new(MockEventStore)
		storeErr := awserr.New("ProvisionedThroughputExceededException", "rate exceeded", nil)
		mockS3.On("GetObjectWithContext", mock.Anything, mock.Anything).Return(objectWithBody(door42Body), nil)
		mockStore.On("PutAccessEvent", mock.Anything, door42Event).Return(storeErr)

		ev, err := NewEventIngestor(mockS3, mockStore).ProcessObject(context.Background(), s3obj)
		assert.Nil(t, ev)
		assert.Equal(t, storeErr, err)
	})
}

func TestParseDocument(t *testing.T) {
	t.Run("Single JSON object", func(t *testing.T) {
		doc, err := parseDocument([]byte(door42Body))
		require.NoError(t, err)
		assert.Len(t, doc, 5)
		assert.JSONEq(t, `"u1"`, string(doc["user_identity"]))
	})

	t.Run("Invalid UTF-8", func(t *testing.T) {
		_, err := parseDocument([]byte{'{', '}', 0xfe})
		require.Error(t, err)
		assert.Equal(t, "object body is not valid UTF-8", err.Error())
	})

	t.Run("Null document", func(t *testing.T) {
		_, err := parseDocument([]byte(" null "))
		require.Error(t, err)
		assert.Equal(t, "object body is null, expected a JSON object", err.Error())
	})
}

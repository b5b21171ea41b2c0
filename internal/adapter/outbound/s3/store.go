package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/port/outbound"
	apperrors "github.com/devmob/onboard/internal/shared/errors"
)

const (
	storiesDir = "stories"
	historyDir = "invite-history"
)

// Store keeps one object per biography and one per join record.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// Compile-time checks
var (
	_ outbound.StoryStorePort    = (*Store)(nil)
	_ outbound.InviteHistoryPort = historyView{}
)

// NewStore creates a new object store.
func NewStore(client *s3.Client, bucket, prefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (s *Store) key(dir string, memberID model.Snowflake, ext string) string {
	return path.Join(s.prefix, dir, memberID.String()+ext)
}

// Ping checks that the bucket is reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

// ===== StoryStorePort =====

// Get returns the member's biography.
func (s *Store) Get(ctx context.Context, memberID model.Snowflake) (string, bool, error) {
	data, found, err := s.read(ctx, s.key(storiesDir, memberID, ".md"))
	if err != nil {
		return "", false, apperrors.Persistence("stories.get", err)
	}
	return string(data), found, nil
}

// Save stores the member's biography, replacing any previous one.
func (s *Store) Save(ctx context.Context, memberID model.Snowflake, story string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(storiesDir, memberID, ".md")),
		Body:        strings.NewReader(story),
		ContentType: aws.String("text/markdown; charset=utf-8"),
	})
	if err != nil {
		return apperrors.Persistence("stories.save", err)
	}
	return nil
}

// Delete removes the member's biography.
func (s *Store) Delete(ctx context.Context, memberID model.Snowflake) (bool, error) {
	key := s.key(storiesDir, memberID, ".md")
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if statusCode(err) == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Persistence("stories.delete", err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return false, apperrors.Persistence("stories.delete", err)
	}
	return true, nil
}

// ===== InviteHistoryPort =====

// History returns the store as an invite history.
func (s *Store) History() outbound.InviteHistoryPort {
	return historyView{s}
}

type historyView struct {
	s *Store
}

func (h historyView) Get(ctx context.Context, memberID model.Snowflake) (*model.InviteHistoryRecord, error) {
	data, found, err := h.s.read(ctx, h.s.key(historyDir, memberID, ".json"))
	if err != nil {
		return nil, apperrors.Persistence("invite_history.get", err)
	}
	if !found {
		return nil, nil
	}
	var rec model.InviteHistoryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, apperrors.Persistence("invite_history.get", err)
	}
	return &rec, nil
}

// SaveIfAbsent writes the record with a conditional put, so concurrent
// writers cannot overwrite an existing record.
func (h historyView) SaveIfAbsent(ctx context.Context, memberID model.Snowflake, record *model.InviteHistoryRecord) (bool, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return false, apperrors.Persistence("invite_history.save", err)
	}
	_, err = h.s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.s.bucket),
		Key:         aws.String(h.s.key(historyDir, memberID, ".json")),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		IfNoneMatch: aws.String("*"),
	})
	if statusCode(err) == http.StatusPreconditionFailed {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Persistence("invite_history.save", err)
	}
	return true, nil
}

// ===== Helpers =====

func (s *Store) read(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if statusCode(err) == http.StatusNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// statusCode returns the HTTP status of a failed call, or 0.
func statusCode(err error) int {
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}

package filestore

import (
	"context"

	"github.com/devmob/onboard/internal/model"
	"github.com/devmob/onboard/internal/port/outbound"
	apperrors "github.com/devmob/onboard/internal/shared/errors"
)

// storyStore implements outbound.StoryStorePort on a JSON file.
type storyStore struct {
	file *jsonFile[string]
}

// NewStoryStore creates a story store backed by path.
func NewStoryStore(path string) outbound.StoryStorePort {
	return &storyStore{file: newJSONFile[string](path)}
}

func (s *storyStore) Get(ctx context.Context, memberID model.Snowflake) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	story, ok, err := s.file.get(memberID)
	if err != nil {
		return "", false, apperrors.Persistence("stories.get", err)
	}
	return story, ok, nil
}

func (s *storyStore) Save(ctx context.Context, memberID model.Snowflake, story string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.file.update(func(doc map[model.Snowflake]string) bool {
		doc[memberID] = story
		return true
	})
	if err != nil {
		return apperrors.Persistence("stories.save", err)
	}
	return nil
}

func (s *storyStore) Delete(ctx context.Context, memberID model.Snowflake) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var existed bool
	err := s.file.update(func(doc map[model.Snowflake]string) bool {
		_, existed = doc[memberID]
		delete(doc, memberID)
		return existed
	})
	if err != nil {
		return false, apperrors.Persistence("stories.delete", err)
	}
	return existed, nil
}

// Compile-time check
var _ outbound.StoryStorePort = (*storyStore)(nil)

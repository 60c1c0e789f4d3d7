package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const bracketPrefix = "brackets"

// BracketArchive keeps the latest built bracket of each content as a JSON
// object under brackets/<contentID>/<uuid>.json. A rebuilt bracket replaces
// the snapshot archived before it.
type BracketArchive struct {
	uploader FileUploader
	logger   *slog.Logger

	mu     sync.Mutex
	latest map[int]string
}

func NewBracketArchive(uploader FileUploader, logger *slog.Logger) *BracketArchive {
	if logger == nil {
		logger = slog.Default()
	}
	return &BracketArchive{uploader: uploader, logger: logger, latest: make(map[int]string)}
}

func (a *BracketArchive) ArchiveBracket(ctx context.Context, contentID int, snapshot []byte) (string, error) {
	key := fmt.Sprintf("%s/%d/%s.json", bracketPrefix, contentID, uuid.NewString())
	result, err := a.uploader.Upload(ctx, key, "application/json", bytes.NewReader(snapshot))
	if err != nil {
		return "", fmt.Errorf("failed to archive bracket of content %d: %w", contentID, err)
	}

	a.mu.Lock()
	previous, ok := a.latest[contentID]
	a.latest[contentID] = key
	a.mu.Unlock()

	if ok {
		if err := a.uploader.Delete(ctx, previous); err != nil {
			a.logger.WarnContext(ctx, "failed to delete superseded bracket snapshot",
				slog.Int("content_id", contentID), slog.String("key", previous), slog.Any("error", err))
		}
	}
	return result.Location, nil
}

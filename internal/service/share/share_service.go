package share

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"chat-relay/internal/apperr"
	"chat-relay/internal/logger"
	"chat-relay/internal/repository/db"
	"chat-relay/pkg/chat"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTitle = "Shared conversation"
	DefaultModel = "unknown"

	idAttempts = 3
)

// ShareService creates and manages public conversation snapshots
type ShareService struct {
	db    db.Database
	newID func() string
}

// NewShareService creates a new ShareService
func NewShareService(database db.Database) *ShareService {
	return &ShareService{db: database, newID: NewShareID}
}

// NewShareID returns the epoch milliseconds in base 36 followed by six
// random characters.
func NewShareID() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strconv.FormatInt(chat.NowMillis(), 36) + random[:6]
}

// CreateShare stores a snapshot of messages attributed to sharedBy
func (s *ShareService) CreateShare(ctx context.Context, sharedBy, title string, messages []chat.Message, model string) (*chat.Share, error) {
	if len(messages) == 0 {
		return nil, apperr.Validation("No messages to share")
	}
	if title == "" {
		title = DefaultTitle
	}
	if model == "" {
		model = DefaultModel
	}

	share := chat.Share{
		Title:     title,
		Messages:  chat.CloneMessages(messages),
		Model:     model,
		SharedBy:  sharedBy,
		CreatedAt: chat.NowMillis(),
	}

	var err error
	for attempt := 0; attempt < idAttempts; attempt++ {
		share.ID = s.newID()
		err = s.db.CreateShare(ctx, share)
		if !errors.Is(err, apperr.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create share: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"share_id":      share.ID,
		"username":      sharedBy,
		"message_count": len(share.Messages),
	}).Info("Created share")
	return &share, nil
}

// GetShare returns a snapshot by id
func (s *ShareService) GetShare(ctx context.Context, id string) (*chat.Share, error) {
	return s.db.GetShare(ctx, id)
}

// DeleteShare removes a snapshot. Only its author or an admin may do so.
func (s *ShareService) DeleteShare(ctx context.Context, requester *db.User, id string) error {
	share, err := s.db.GetShare(ctx, id)
	if err != nil {
		return err
	}
	if share.SharedBy != requester.Username && !requester.IsAdmin() {
		return fmt.Errorf("%w: Not authorized", apperr.ErrForbidden)
	}
	if err := s.db.DeleteShare(ctx, id); err != nil {
		return err
	}
	logger.Log.WithFields(logrus.Fields{"share_id": id, "username": requester.Username}).Info("Deleted share")
	return nil
}

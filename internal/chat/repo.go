package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ramikart/ramikart-backend/pkg/db/models"
	pkgerrors "github.com/ramikart/ramikart-backend/pkg/errors"
	"github.com/ramikart/ramikart-backend/pkg/pagination"
)

// Repository is the persistence surface for conversations and messages.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateConversation(ctx context.Context, conversation *models.Conversation) error
	FindConversationByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	FindConversationByPair(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Conversation, error)
	TouchConversation(ctx context.Context, id uuid.UUID, preview string, at time.Time) error

	CreateMessage(ctx context.Context, message *models.Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Message, error)
	// MarkRead flags every message in the conversation not sent by readerID
	// as read and returns how many rows changed.
	MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error)
	UnreadCounts(ctx context.Context, conversationIDs []uuid.UUID, readerID uuid.UUID) (map[uuid.UUID]int64, error)

	FindUsersByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds the gorm-backed chat repository.
func NewRepository(db *gorm.DB) (Repository, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &repository{db: db}, nil
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateConversation(ctx context.Context, conversation *models.Conversation) error {
	if err := r.db.WithContext(ctx).Create(conversation).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || pkgerrors.IsUniqueViolation(err) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "conversation already exists")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create conversation")
	}
	return nil
}

func (r *repository) FindConversationByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).First(&conversation, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find conversation")
	}
	return &conversation, nil
}

func (r *repository) FindConversationByPair(ctx context.Context, a, b uuid.UUID) (*models.Conversation, error) {
	first, second := models.NormalizePair(a, b)
	var conversation models.Conversation
	err := r.db.WithContext(ctx).
		First(&conversation, "user_a_id = ? AND user_b_id = ?", first, second).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find conversation by pair")
	}
	return &conversation, nil
}

func (r *repository) ListConversations(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Conversation, error) {
	q := r.db.WithContext(ctx).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID)
	if cursor != nil {
		q = q.Where("(updated_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var conversations []models.Conversation
	err := q.Order("updated_at DESC, id DESC").Limit(limit).Find(&conversations).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list conversations")
	}
	return conversations, nil
}

func (r *repository) TouchConversation(ctx context.Context, id uuid.UUID, preview string, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_message":    preview,
			"last_message_at": at,
			"updated_at":      at,
		}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "touch conversation")
	}
	return nil
}

func (r *repository) CreateMessage(ctx context.Context, message *models.Message) error {
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create message")
	}
	return nil
}

func (r *repository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Message, error) {
	q := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var messages []models.Message
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	return messages, nil
}

func (r *repository) MarkRead(ctx context.Context, conversationID, readerID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read = ?", conversationID, readerID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark messages read")
	}
	return res.RowsAffected, nil
}

func (r *repository) UnreadCounts(ctx context.Context, conversationIDs []uuid.UUID, readerID uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(conversationIDs))
	if len(conversationIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		ConversationID uuid.UUID
		Total          int64
	}
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Select("conversation_id, COUNT(*) AS total").
		Where("conversation_id IN ? AND sender_id <> ? AND read = ?", conversationIDs, readerID, false).
		Group("conversation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread messages")
	}
	for _, row := range rows {
		counts[row.ConversationID] = row.Total
	}
	return counts, nil
}

func (r *repository) FindUsersByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	users := make(map[uuid.UUID]models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	var rows []models.User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load users")
	}
	for _, user := range rows {
		users[user.ID] = user
	}
	return users, nil
}

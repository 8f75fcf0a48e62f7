package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"agrivote/contexts/farmer-advisory/question-lifecycle/domain/entities"
	domainerrors "agrivote/contexts/farmer-advisory/question-lifecycle/domain/errors"
	"agrivote/contexts/farmer-advisory/question-lifecycle/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// Repository stores question snapshots, the expert projection, the lifecycle
// outbox and consumer dedup rows in Postgres.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the tables owned by this module.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&questionModel{},
		&expertModel{},
		&outboxModel{},
		&eventDedupModel{},
	); err != nil {
		return r.logError("question_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) CreateQuestion(ctx context.Context, question entities.Question) (entities.Question, error) {
	question.Version = 1
	row, err := questionModelFromEntity(question)
	if err != nil {
		return entities.Question{}, r.logError("question_repo_encode_failed", err, "question_id", question.QuestionID)
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return entities.Question{}, domainerrors.ErrConflict
		}
		return entities.Question{}, r.logError("question_repo_create_failed", err, "question_id", row.ID)
	}
	return row.toEntity()
}

// UpdateQuestion writes the snapshot only when the stored version still
// equals expectedVersion.
func (r *Repository) UpdateQuestion(
	ctx context.Context,
	question entities.Question,
	expectedVersion int64,
) (entities.Question, error) {
	question.Version = expectedVersion + 1
	row, err := questionModelFromEntity(question)
	if err != nil {
		return entities.Question{}, r.logError("question_repo_encode_failed", err, "question_id", question.QuestionID)
	}
	result := r.db.WithContext(ctx).
		Model(&questionModel{}).
		Where("id = ? AND version = ?", row.ID, expectedVersion).
		Updates(map[string]any{
			"cleaned_text":      row.CleanedText,
			"suggestions":       row.Suggestions,
			"domain":            row.Domain,
			"status":            row.Status,
			"allocated_experts": row.AllocatedExperts,
			"answers":           row.Answers,
			"peer_reviews":      row.PeerReviews,
			"moderator_review":  row.ModeratorReview,
			"rejection_history": row.RejectionHistory,
			"is_duplicate":      row.IsDuplicate,
			"duplicate_of":      row.DuplicateOf,
			"version":           row.Version,
			"updated_at":        row.UpdatedAt,
		})
	if result.Error != nil {
		return entities.Question{}, r.logError("question_repo_update_failed", result.Error,
			"question_id", row.ID,
			"expected_version", expectedVersion,
		)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&questionModel{}).
			Where("id = ?", row.ID).
			Count(&count).Error; err != nil {
			return entities.Question{}, r.logError("question_repo_update_probe_failed", err, "question_id", row.ID)
		}
		if count == 0 {
			return entities.Question{}, domainerrors.ErrQuestionNotFound
		}
		return entities.Question{}, domainerrors.ErrConcurrentUpdate
	}
	return row.toEntity()
}

func (r *Repository) GetQuestion(ctx context.Context, questionID string) (entities.Question, error) {
	var row questionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(questionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Question{}, domainerrors.ErrQuestionNotFound
		}
		return entities.Question{}, r.logError("question_repo_get_failed", err, "question_id", strings.TrimSpace(questionID))
	}
	return row.toEntity()
}

func (r *Repository) ListQuestions(ctx context.Context, filter ports.QuestionFilter) ([]entities.Question, error) {
	tx := r.db.WithContext(ctx).Model(&questionModel{})
	if filter.Status != "" {
		tx = tx.Where("status = ?", string(filter.Status))
	}
	if filter.Domain != "" {
		tx = tx.Where("domain = ?", string(filter.Domain))
	}
	if farmerID := strings.TrimSpace(filter.FarmerID); farmerID != "" {
		tx = tx.Where("farmer_id = ?", farmerID)
	}
	if expertID := strings.TrimSpace(filter.ExpertID); expertID != "" {
		contains, err := encodeJSON([]string{expertID})
		if err != nil {
			return nil, err
		}
		tx = tx.Where("allocated_experts @> ?", contains)
	}
	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}

	var rows []questionModel
	if err := tx.Order("submitted_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("question_repo_list_failed", err,
			"status", string(filter.Status),
			"domain", string(filter.Domain),
		)
	}
	items := make([]entities.Question, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, r.logError("question_repo_decode_failed", err, "question_id", row.ID)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) ListApprovedByDomain(ctx context.Context, domain entities.Domain) ([]entities.Question, error) {
	return r.ListQuestions(ctx, ports.QuestionFilter{
		Status: entities.QuestionStatusApproved,
		Domain: domain,
	})
}

func (r *Repository) ListExperts(ctx context.Context) ([]entities.Expert, error) {
	var rows []expertModel
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC").
		Order("expert_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("question_repo_list_experts_failed", err)
	}
	items := make([]entities.Expert, 0, len(rows))
	for _, row := range rows {
		item, err := row.toEntity()
		if err != nil {
			return nil, r.logError("question_repo_decode_expert_failed", err, "expert_id", row.ExpertID)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Repository) GetExpert(ctx context.Context, expertID string) (entities.Expert, error) {
	var row expertModel
	err := r.db.WithContext(ctx).
		Where("expert_id = ?", strings.TrimSpace(expertID)).
		Where("active = ?", true).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Expert{}, domainerrors.ErrExpertNotFound
		}
		return entities.Expert{}, r.logError("question_repo_get_expert_failed", err, "expert_id", strings.TrimSpace(expertID))
	}
	return row.toEntity()
}

func (r *Repository) UpsertExpert(ctx context.Context, expert entities.Expert) error {
	row, err := expertModelFromEntity(expert, time.Now().UTC())
	if err != nil {
		return r.logError("question_repo_encode_expert_failed", err, "expert_id", expert.ExpertID)
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "expert_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"name":                        row.Name,
			"specializations":             row.Specializations,
			"accuracy_score":              row.AccuracyScore,
			"moderator_acceptance_rate":   row.ModeratorAcceptanceRate,
			"peer_votes_received":         row.PeerVotesReceived,
			"consistency_score":           row.ConsistencyScore,
			"average_response_time_hours": row.AverageResponseTimeHours,
			"active":                      true,
			"updated_at":                  row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("question_repo_upsert_expert_failed", create.Error, "expert_id", row.ExpertID)
	}
	return nil
}

func (r *Repository) DeactivateExpert(ctx context.Context, expertID string) error {
	if err := r.db.WithContext(ctx).
		Model(&expertModel{}).
		Where("expert_id = ?", strings.TrimSpace(expertID)).
		Updates(map[string]any{
			"active":     false,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		return r.logError("question_repo_deactivate_expert_failed", err, "expert_id", strings.TrimSpace(expertID))
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("question_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("question_repo_append_outbox_insert_failed", create.Error, "outbox_id", row.OutboxID)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("question_repo_append_outbox_load_existing_failed", err, "outbox_id", row.OutboxID)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Order("seq ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("question_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("question_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).
		Where("event_id = ? AND expires_at < ?", row.EventID, row.ProcessedAt).
		Delete(&eventDedupModel{}).Error; err != nil {
		return false, r.logError("question_repo_reserve_event_expire_failed", err, "event_id", row.EventID)
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return false, r.logError("question_repo_reserve_event_failed", create.Error, "event_id", row.EventID)
	}
	if create.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", row.EventID).
		First(&existing).Error; err != nil {
		return false, r.logError("question_repo_reserve_event_load_existing_failed", err, "event_id", row.EventID)
	}
	if existing.PayloadHash != row.PayloadHash {
		return false, domainerrors.ErrConflict
	}
	return true, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "farmer-advisory/question-lifecycle",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("question repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.QuestionRepository = (*Repository)(nil)
var _ ports.ExpertDirectory = (*Repository)(nil)
var _ ports.ExpertProjectionWriter = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)

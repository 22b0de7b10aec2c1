package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"conclave/contexts/governance/council-engine/domain/entities"
	domainerrors "conclave/contexts/governance/council-engine/domain/errors"
	"conclave/contexts/governance/council-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending = "pending"
	outboxStatusSent    = "sent"
)

// Repository is the durable adapter behind the vote repository and outbox
// ports. Ballot maps and report payloads are stored as JSONB documents keyed
// by vote id; relational shape is reserved for the fields queries filter on.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

func (r *Repository) SaveVote(ctx context.Context, vote entities.Vote) error {
	row, err := voteModelFromEntity(vote)
	if err != nil {
		return r.logError("governance_repo_encode_vote_failed", err, "vote_id", vote.VoteID)
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"status":    row.Status,
			"ballots":   row.Ballots,
			"closed_at": row.ClosedAt,
			"result":    row.Result,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_vote_failed", create.Error, "vote_id", vote.VoteID)
	}
	return nil
}

func (r *Repository) GetVote(ctx context.Context, voteID string) (entities.Vote, error) {
	var row voteModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(voteID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Vote{}, domainerrors.ErrVoteNotFound
		}
		return entities.Vote{}, r.logError("governance_repo_get_vote_failed", err, "vote_id", strings.TrimSpace(voteID))
	}
	return row.toEntity()
}

func (r *Repository) ListVotes(ctx context.Context) ([]entities.Vote, error) {
	var rows []voteModel
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_votes_failed", err)
	}
	return toVoteEntities(rows)
}

func (r *Repository) ListOpenVotes(ctx context.Context) ([]entities.Vote, error) {
	var rows []voteModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.StatusOpen)).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_open_votes_failed", err)
	}
	return toVoteEntities(rows)
}

func (r *Repository) SaveVeto(ctx context.Context, record entities.VetoRecord) error {
	row := vetoModel{
		ID:       strings.TrimSpace(record.VetoID),
		VoteID:   strings.TrimSpace(record.VoteID),
		MemberID: strings.TrimSpace(record.MemberID),
		Domain:   strings.TrimSpace(record.Domain),
		Reason:   record.Reason,
		RuleRef:  record.RuleRef,
		CastAt:   record.CastAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return nil
		}
		return r.logError("governance_repo_save_veto_failed", create.Error, "veto_id", row.ID)
	}
	return nil
}

func (r *Repository) ListVetoes(ctx context.Context, voteID string) ([]entities.VetoRecord, error) {
	var rows []vetoModel
	if err := r.db.WithContext(ctx).
		Where("vote_id = ?", strings.TrimSpace(voteID)).
		Order("cast_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_vetoes_failed", err, "vote_id", strings.TrimSpace(voteID))
	}
	records := make([]entities.VetoRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, entities.VetoRecord{
			VetoID:   row.ID,
			VoteID:   row.VoteID,
			MemberID: row.MemberID,
			Domain:   row.Domain,
			Reason:   row.Reason,
			RuleRef:  row.RuleRef,
			CastAt:   row.CastAt.UTC(),
		})
	}
	return records, nil
}

func (r *Repository) SaveDissentReport(ctx context.Context, report entities.DissentReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return r.logError("governance_repo_encode_dissent_failed", err, "vote_id", report.VoteID)
	}
	row := dissentModel{
		VoteID:     strings.TrimSpace(report.VoteID),
		Domains:    strings.Join(report.Domains, ","),
		Report:     payload,
		RecordedAt: report.RecordedAt.UTC(),
	}
	// Reports are created at most once per vote; a replay keeps the original.
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "vote_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_dissent_failed", create.Error, "vote_id", row.VoteID)
	}
	return nil
}

func (r *Repository) GetDissentReport(ctx context.Context, voteID string) (entities.DissentReport, error) {
	var row dissentModel
	err := r.db.WithContext(ctx).
		Where("vote_id = ?", strings.TrimSpace(voteID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.DissentReport{}, domainerrors.ErrDissentReportNotFound
		}
		return entities.DissentReport{}, r.logError("governance_repo_get_dissent_failed", err, "vote_id", strings.TrimSpace(voteID))
	}
	return row.toEntity()
}

func (r *Repository) ListDissentReports(ctx context.Context) ([]entities.DissentReport, error) {
	var rows []dissentModel
	if err := r.db.WithContext(ctx).
		Order("recorded_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_dissent_failed", err)
	}
	reports := make([]entities.DissentReport, 0, len(rows))
	for _, row := range rows {
		report, err := row.toEntity()
		if err != nil {
			return nil, r.logError("governance_repo_decode_dissent_failed", err, "vote_id", row.VoteID)
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (r *Repository) SaveEmergencyMeta(ctx context.Context, meta entities.EmergencyMeta) error {
	panel, err := json.Marshal(meta.Panel)
	if err != nil {
		return r.logError("governance_repo_encode_panel_failed", err, "vote_id", meta.VoteID)
	}
	row := emergencyModel{
		VoteID:           strings.TrimSpace(meta.VoteID),
		Panel:            panel,
		UrgencyReason:    meta.UrgencyReason,
		NotifiedAt:       meta.NotifiedAt.UTC(),
		OverturnDeadline: meta.OverturnDeadline.UTC(),
		Overturned:       meta.Overturned,
	}
	if strings.TrimSpace(meta.OverturnVoteID) != "" {
		overturnVoteID := strings.TrimSpace(meta.OverturnVoteID)
		row.OverturnVoteID = &overturnVoteID
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "vote_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"overturn_vote_id": row.OverturnVoteID,
			"overturned":       row.Overturned,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_emergency_failed", create.Error, "vote_id", row.VoteID)
	}
	return nil
}

func (r *Repository) GetEmergencyMeta(ctx context.Context, voteID string) (entities.EmergencyMeta, error) {
	var row emergencyModel
	err := r.db.WithContext(ctx).
		Where("vote_id = ?", strings.TrimSpace(voteID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.EmergencyMeta{}, domainerrors.ErrEmergencyMetaNotFound
		}
		return entities.EmergencyMeta{}, r.logError("governance_repo_get_emergency_failed", err, "vote_id", strings.TrimSpace(voteID))
	}
	return row.toEntity()
}

func (r *Repository) GetEmergencyMetaByOverturnVote(ctx context.Context, overturnVoteID string) (entities.EmergencyMeta, error) {
	var row emergencyModel
	err := r.db.WithContext(ctx).
		Where("overturn_vote_id = ?", strings.TrimSpace(overturnVoteID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.EmergencyMeta{}, domainerrors.ErrEmergencyMetaNotFound
		}
		return entities.EmergencyMeta{}, r.logError("governance_repo_get_emergency_by_overturn_failed", err,
			"overturn_vote_id", strings.TrimSpace(overturnVoteID),
		)
	}
	return row.toEntity()
}

func (r *Repository) ListEmergencyMeta(ctx context.Context) ([]entities.EmergencyMeta, error) {
	var rows []emergencyModel
	if err := r.db.WithContext(ctx).
		Order("notified_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_emergency_failed", err)
	}
	metas := make([]entities.EmergencyMeta, 0, len(rows))
	for _, row := range rows {
		meta, err := row.toEntity()
		if err != nil {
			return nil, r.logError("governance_repo_decode_emergency_failed", err, "vote_id", row.VoteID)
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("governance_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
		)
	}
	row := outboxModel{
		OutboxID:  strings.TrimSpace(envelope.EventID),
		EventType: strings.TrimSpace(envelope.EventType),
		Payload:   payload,
		Status:    outboxStatusPending,
		CreatedAt: envelope.OccurredAtUTC.UTC(),
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
		return r.logError("governance_repo_append_outbox_failed", create.Error, "outbox_id", row.OutboxID)
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
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:  row.OutboxID,
			EventType: row.EventType,
			Payload:   append([]byte(nil), row.Payload...),
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":  outboxStatusSent,
			"sent_at": sentAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("governance_repo_mark_outbox_sent_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/council-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("governance repository operation failed", fields...)
	return err
}

type voteModel struct {
	ID             string     `gorm:"column:id;primaryKey"`
	Topic          string     `gorm:"column:topic"`
	Description    string     `gorm:"column:description"`
	Threshold      string     `gorm:"column:threshold"`
	Status         string     `gorm:"column:status"`
	InitiatorID    string     `gorm:"column:initiator_id"`
	Domains        string     `gorm:"column:domains"`
	EligibleVoters []byte     `gorm:"column:eligible_voters;type:jsonb"`
	Ballots        []byte     `gorm:"column:ballots;type:jsonb"`
	Emergency      bool       `gorm:"column:emergency"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	Deadline       time.Time  `gorm:"column:deadline"`
	ClosedAt       *time.Time `gorm:"column:closed_at"`
	Result         []byte     `gorm:"column:result;type:jsonb"`
}

func (voteModel) TableName() string {
	return "governance_votes"
}

func voteModelFromEntity(vote entities.Vote) (voteModel, error) {
	eligible, err := json.Marshal(vote.EligibleVoters)
	if err != nil {
		return voteModel{}, err
	}
	ballots, err := json.Marshal(vote.Ballots)
	if err != nil {
		return voteModel{}, err
	}
	row := voteModel{
		ID:             strings.TrimSpace(vote.VoteID),
		Topic:          vote.Topic,
		Description:    vote.Description,
		Threshold:      string(vote.Threshold),
		Status:         string(vote.Status),
		InitiatorID:    vote.InitiatorID,
		Domains:        strings.Join(vote.Domains, ","),
		EligibleVoters: eligible,
		Ballots:        ballots,
		Emergency:      vote.Emergency,
		CreatedAt:      vote.CreatedAt.UTC(),
		Deadline:       vote.Deadline.UTC(),
	}
	if vote.ClosedAt != nil {
		closedAt := vote.ClosedAt.UTC()
		row.ClosedAt = &closedAt
	}
	if vote.Result != nil {
		result, err := json.Marshal(vote.Result)
		if err != nil {
			return voteModel{}, err
		}
		row.Result = result
	}
	return row, nil
}

func (m voteModel) toEntity() (entities.Vote, error) {
	vote := entities.Vote{
		VoteID:      m.ID,
		Topic:       m.Topic,
		Description: m.Description,
		Threshold:   entities.ThresholdClass(m.Threshold),
		Status:      entities.VoteStatus(m.Status),
		InitiatorID: m.InitiatorID,
		Emergency:   m.Emergency,
		CreatedAt:   m.CreatedAt.UTC(),
		Deadline:    m.Deadline.UTC(),
	}
	if m.Domains != "" {
		vote.Domains = strings.Split(m.Domains, ",")
	}
	if err := json.Unmarshal(m.EligibleVoters, &vote.EligibleVoters); err != nil {
		return entities.Vote{}, err
	}
	if err := json.Unmarshal(m.Ballots, &vote.Ballots); err != nil {
		return entities.Vote{}, err
	}
	if m.ClosedAt != nil {
		closedAt := m.ClosedAt.UTC()
		vote.ClosedAt = &closedAt
	}
	if len(m.Result) > 0 {
		var result entities.Result
		if err := json.Unmarshal(m.Result, &result); err != nil {
			return entities.Vote{}, err
		}
		vote.Result = &result
	}
	return vote, nil
}

type vetoModel struct {
	ID       string    `gorm:"column:id;primaryKey"`
	VoteID   string    `gorm:"column:vote_id"`
	MemberID string    `gorm:"column:member_id"`
	Domain   string    `gorm:"column:domain"`
	Reason   string    `gorm:"column:reason"`
	RuleRef  string    `gorm:"column:rule_ref"`
	CastAt   time.Time `gorm:"column:cast_at"`
}

func (vetoModel) TableName() string {
	return "governance_vetoes"
}

type dissentModel struct {
	VoteID     string    `gorm:"column:vote_id;primaryKey"`
	Domains    string    `gorm:"column:domains"`
	Report     []byte    `gorm:"column:report;type:jsonb"`
	RecordedAt time.Time `gorm:"column:recorded_at"`
}

func (dissentModel) TableName() string {
	return "governance_dissent_reports"
}

func (m dissentModel) toEntity() (entities.DissentReport, error) {
	var report entities.DissentReport
	if err := json.Unmarshal(m.Report, &report); err != nil {
		return entities.DissentReport{}, err
	}
	return report, nil
}

type emergencyModel struct {
	VoteID           string    `gorm:"column:vote_id;primaryKey"`
	Panel            []byte    `gorm:"column:panel;type:jsonb"`
	UrgencyReason    string    `gorm:"column:urgency_reason"`
	NotifiedAt       time.Time `gorm:"column:notified_at"`
	OverturnDeadline time.Time `gorm:"column:overturn_deadline"`
	OverturnVoteID   *string   `gorm:"column:overturn_vote_id"`
	Overturned       bool      `gorm:"column:overturned"`
}

func (emergencyModel) TableName() string {
	return "governance_emergency_meta"
}

func (m emergencyModel) toEntity() (entities.EmergencyMeta, error) {
	meta := entities.EmergencyMeta{
		VoteID:           m.VoteID,
		UrgencyReason:    m.UrgencyReason,
		NotifiedAt:       m.NotifiedAt.UTC(),
		OverturnDeadline: m.OverturnDeadline.UTC(),
		Overturned:       m.Overturned,
	}
	if err := json.Unmarshal(m.Panel, &meta.Panel); err != nil {
		return entities.EmergencyMeta{}, err
	}
	if m.OverturnVoteID != nil {
		meta.OverturnVoteID = *m.OverturnVoteID
	}
	return meta, nil
}

type outboxModel struct {
	OutboxID  string     `gorm:"column:outbox_id;primaryKey"`
	EventType string     `gorm:"column:event_type"`
	Payload   []byte     `gorm:"column:payload;type:jsonb"`
	Status    string     `gorm:"column:status"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	SentAt    *time.Time `gorm:"column:sent_at"`
}

func (outboxModel) TableName() string {
	return "governance_outbox"
}

func toVoteEntities(rows []voteModel) ([]entities.Vote, error) {
	votes := make([]entities.Vote, 0, len(rows))
	for _, row := range rows {
		vote, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		votes = append(votes, vote)
	}
	return votes, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

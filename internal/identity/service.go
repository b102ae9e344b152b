package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/contactrelay/internal/database"
	"github.com/edgard/contactrelay/internal/logger"
)

// Store is the subset of database.Store the service needs.
type Store interface {
	GetIdentity(ctx context.Context, chatID string) (*database.Identity, error)
	InsertIdentity(ctx context.Context, identity *database.Identity) (bool, error)
	UpdateIdentity(ctx context.Context, identity *database.Identity) error
	FindIdentitiesByPhone(ctx context.Context, phone string) ([]*database.Identity, error)
	ListIdentities(ctx context.Context, limit, offset int) ([]*database.Identity, error)
}

// UpsertResult is the outcome of Service.Upsert. Err is set when the store
// failed; Record then holds whatever was merged before the failure.
type UpsertResult struct {
	Record     Record
	Created    bool
	Transition Transition
	Err        error
}

// OK reports whether the record was persisted.
func (r UpsertResult) OK() bool {
	return r.Err == nil
}

// Service upserts and reads identity records.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates an identity service on top of the given store.
func NewService(store Store, log *slog.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		store:  store,
		logger: log.With("component", "identity"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Upsert inserts a record for a chat seen for the first time, or merges obs
// into the existing one. It never panics or returns early without a result;
// store failures are reported through UpsertResult.Err.
func (s *Service) Upsert(ctx context.Context, obs Observation) UpsertResult {
	if obs.ChatID == "" {
		return UpsertResult{Err: fmt.Errorf("observation has no chat_id")}
	}

	existing, err := s.get(ctx, obs.ChatID)
	if err != nil {
		return UpsertResult{Err: fmt.Errorf("lookup identity: %w", err)}
	}

	if existing == nil {
		merged, transition := Merge(nil, obs, s.now())
		created, err := s.store.InsertIdentity(ctx, toModel(merged))
		if err != nil {
			return UpsertResult{Record: merged, Transition: transition, Err: fmt.Errorf("insert identity: %w", err)}
		}
		if created {
			s.logger.InfoContext(ctx, "New identity saved", "chat_id", obs.ChatID, "state", merged.State)
			return UpsertResult{Record: merged, Created: true, Transition: transition}
		}

		// Another update for the same chat inserted first; merge into its row.
		s.logger.DebugContext(ctx, "Identity inserted concurrently, merging", "chat_id", obs.ChatID)
		existing, err = s.get(ctx, obs.ChatID)
		if err != nil {
			return UpsertResult{Record: merged, Transition: transition, Err: fmt.Errorf("lookup identity after conflict: %w", err)}
		}
		if existing == nil {
			return UpsertResult{Record: merged, Transition: transition, Err: fmt.Errorf("identity %s vanished after insert conflict", obs.ChatID)}
		}
	}

	merged, transition := Merge(existing, obs, s.now())
	if err := s.store.UpdateIdentity(ctx, toModel(merged)); err != nil {
		return UpsertResult{Record: merged, Transition: transition, Err: fmt.Errorf("update identity: %w", err)}
	}

	if transition.Changed() {
		s.logger.InfoContext(ctx, "Identity state changed",
			"chat_id", obs.ChatID, "from", transition.From, "to", transition.To)
	}
	return UpsertResult{Record: merged, Transition: transition}
}

// Get returns the record for chatID, or nil when the chat is unknown.
func (s *Service) Get(ctx context.Context, chatID string) (*Record, error) {
	return s.get(ctx, chatID)
}

// FindByPhone returns records whose phone matches; the phone is normalized first.
func (s *Service) FindByPhone(ctx context.Context, phone string) ([]Record, error) {
	phone = NormalizePhone(phone)
	if phone == "" {
		return nil, fmt.Errorf("phone is required")
	}
	rows, err := s.store.FindIdentitiesByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	return fromModels(rows), nil
}

// List returns a page of records, most recently updated first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Record, error) {
	rows, err := s.store.ListIdentities(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return fromModels(rows), nil
}

func (s *Service) get(ctx context.Context, chatID string) (*Record, error) {
	row, err := s.store.GetIdentity(ctx, chatID)
	if err != nil || row == nil {
		return nil, err
	}
	rec := fromModel(row)
	return &rec, nil
}

func toModel(r Record) *database.Identity {
	return &database.Identity{
		ChatID:      r.ChatID,
		Username:    database.NullString(r.Username),
		FirstName:   database.NullString(r.FirstName),
		LastName:    database.NullString(r.LastName),
		PhoneNumber: database.NullString(r.PhoneNumber),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func fromModel(m *database.Identity) Record {
	rec := Record{
		ChatID:      m.ChatID,
		Username:    m.Username.String,
		FirstName:   m.FirstName.String,
		LastName:    m.LastName.String,
		PhoneNumber: m.PhoneNumber.String,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	rec.State = StateOf(&rec)
	return rec
}

func fromModels(rows []*database.Identity) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			records = append(records, fromModel(row))
		}
	}
	return records
}

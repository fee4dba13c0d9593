package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lab-tracker-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	RegisterPerson(ctx context.Context, p *model.Person) error
	GetPerson(ctx context.Context, id int64) (model.Person, error)
	ListPersons(ctx context.Context) ([]model.Person, error)

	EnsureLabs(ctx context.Context, names []string) error
	ListLabs(ctx context.Context) ([]model.Lab, error)

	ToggleOccupancy(ctx context.Context, personID int64, labName string, now time.Time) (Transition, error)

	ListRecords(ctx context.Context) ([]model.LabRecord, error)
	OpenRecords(ctx context.Context) ([]model.LabRecord, error)
	LastExits(ctx context.Context) ([]LastExit, error)
	DeleteRecord(ctx context.Context, id int64) error
	DeleteAllRecords(ctx context.Context) (int64, error)

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// RegisterPerson inserts p and fills in its ID.
func (s *gormStore) RegisterPerson(ctx context.Context, p *model.Person) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Person{}).Where("email = ?", p.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check email %q: %w", p.Email, err)
	}
	if count > 0 {
		return ErrEmailExists
	}

	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		// Lost a race against another registration with the same email.
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to register person %q: %w", p.Email, err)
	}
	return nil
}

func (s *gormStore) GetPerson(ctx context.Context, id int64) (model.Person, error) {
	var p model.Person
	err := s.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Person{}, ErrPersonNotFound
	}
	if err != nil {
		return model.Person{}, fmt.Errorf("failed to fetch person %d: %w", id, err)
	}
	return p, nil
}

func (s *gormStore) ListPersons(ctx context.Context) ([]model.Person, error) {
	var persons []model.Person
	if err := s.db.WithContext(ctx).Order("id").Find(&persons).Error; err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	return persons, nil
}

// EnsureLabs inserts any lab names that do not exist yet.
func (s *gormStore) EnsureLabs(ctx context.Context, names []string) error {
	labs := make([]model.Lab, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok || n == "" {
			continue
		}
		seen[n] = struct{}{}
		labs = append(labs, model.Lab{Name: n})
	}
	if len(labs) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&labs).Error; err != nil {
		return fmt.Errorf("batch upsert labs failed: %w", err)
	}
	return nil
}

func (s *gormStore) ListLabs(ctx context.Context) ([]model.Lab, error) {
	var labs []model.Lab
	if err := s.db.WithContext(ctx).Order("id").Find(&labs).Error; err != nil {
		return nil, fmt.Errorf("failed to list labs: %w", err)
	}
	return labs, nil
}

// ToggleOccupancy closes the open record of (personID, labName) if there is
// one, otherwise opens a new record. Both paths run in one transaction.
func (s *gormStore) ToggleOccupancy(ctx context.Context, personID int64, labName string, now time.Time) (Transition, error) {
	var result Transition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open model.LabRecord
		err := tx.Where("person_id = ? AND lab_name = ? AND exit_time IS NULL", personID, labName).
			First(&open).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			record := model.LabRecord{PersonID: personID, LabName: labName, EntryTime: now}
			if err := tx.Omit(clause.Associations).Create(&record).Error; err != nil {
				// idx_lab_records_open: a concurrent scan opened the pair first.
				if isUniqueViolation(err) {
					return ErrToggleConflict
				}
				return fmt.Errorf("failed to open record for person %d in %q: %w", personID, labName, err)
			}
			result = Transition{Action: ActionEntry, Record: record, At: now}
			return nil

		case err != nil:
			return fmt.Errorf("failed to look up open record for person %d in %q: %w", personID, labName, err)
		}

		res := tx.Model(&model.LabRecord{}).
			Where("id = ? AND exit_time IS NULL", open.ID).
			Update("exit_time", now)
		if res.Error != nil {
			return fmt.Errorf("failed to close record %d: %w", open.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrToggleConflict
		}

		exit := now
		open.ExitTime = &exit
		result = Transition{Action: ActionExit, Record: open, At: now}
		return nil
	})
	if err != nil {
		return Transition{}, err
	}
	return result, nil
}

// ListRecords returns every record with its person, newest entry first.
func (s *gormStore) ListRecords(ctx context.Context) ([]model.LabRecord, error) {
	var records []model.LabRecord
	if err := s.db.WithContext(ctx).
		Joins("Person").
		Order("lab_records.entry_time DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

// OpenRecords returns the records of everyone currently inside a lab.
func (s *gormStore) OpenRecords(ctx context.Context) ([]model.LabRecord, error) {
	var records []model.LabRecord
	if err := s.db.WithContext(ctx).
		Joins("Person").
		Where("lab_records.exit_time IS NULL").
		Order("lab_records.entry_time DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list open records: %w", err)
	}
	return records, nil
}

// LastExits returns, per person, the lab they most recently left.
func (s *gormStore) LastExits(ctx context.Context) ([]LastExit, error) {
	var closed []model.LabRecord
	if err := s.db.WithContext(ctx).
		Joins("Person").
		Where("lab_records.exit_time IS NOT NULL").
		Order("lab_records.exit_time DESC").
		Find(&closed).Error; err != nil {
		return nil, fmt.Errorf("failed to list closed records: %w", err)
	}

	seen := make(map[int64]struct{})
	var exits []LastExit
	for _, r := range closed {
		if _, ok := seen[r.PersonID]; ok {
			continue
		}
		seen[r.PersonID] = struct{}{}
		exits = append(exits, LastExit{
			PersonID: r.PersonID,
			Name:     r.Person.Name,
			LabName:  r.LabName,
			ExitTime: *r.ExitTime,
		})
	}
	return exits, nil
}

func (s *gormStore) DeleteRecord(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.LabRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete record %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *gormStore) DeleteAllRecords(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.LabRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete records: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// isUniqueViolation matches duplicate-key errors from both drivers. The
// sqlite driver does not translate them to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}

package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/qZheng/CavityProof/pkg/logger"
	"github.com/qZheng/CavityProof/pkg/reasoncodes"
)

// ProgressRecord is the gorm row backing a Progress account.
type ProgressRecord struct {
	Owner          string `gorm:"primaryKey;size:44"`
	Streak         uint32
	LastDayClaimed int64
	TotalClaims    uint32
}

// ReplayRecord exists exactly once per consumed (user, nonce); the primary
// key constraint is the compare-and-create guarantee. Rows are never
// updated or deleted.
type ReplayRecord struct {
	Address   string `gorm:"primaryKey;size:64"`
	Owner     string `gorm:"index;size:44"`
	CreatedAt time.Time
}

// ConnectToDatabase opens a sqlite database (dev and tests). TranslateError
// is required so duplicate-key inserts surface as gorm.ErrDuplicatedKey.
func ConnectToDatabase(connectionString string) (*gorm.DB, error) {
	logger.Default().Infof("Establishing connection to ledger database: %s", connectionString)
	db, err := gorm.Open(sqlite.Open(connectionString), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return db, RunMigrations(db)
}

// ConnectToPostgres opens the production database.
func ConnectToPostgres(connectionString string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return db, RunMigrations(db)
}

func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&ProgressRecord{},
		&ReplayRecord{},
	)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetProgress(ctx context.Context, user solana.PublicKey) (Progress, bool, error) {
	var rec ProgressRecord
	err := s.db.WithContext(ctx).Where("owner = ?", user.String()).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Progress{}, false, nil
	}
	if err != nil {
		return Progress{}, false, err
	}

	p, err := recordToProgress(rec)
	return p, err == nil, err
}

func (s *GormStore) InitUser(ctx context.Context, user solana.PublicKey) (Progress, error) {
	fresh := NewProgress(user)
	rec := progressToRecord(fresh)

	// FirstOrCreate keeps init idempotent: an existing row wins
	err := s.db.WithContext(ctx).Where("owner = ?", rec.Owner).FirstOrCreate(&rec).Error
	if err != nil {
		return Progress{}, err
	}
	return recordToProgress(rec)
}

func (s *GormStore) HasReplay(ctx context.Context, key ReplayKey) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&ReplayRecord{}).
		Where("address = ?", key.String()).
		Count(&count).Error
	return count > 0, err
}

func (s *GormStore) CommitClaim(ctx context.Context, key ReplayKey, updated Progress) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		replay := ReplayRecord{
			Address:   key.String(),
			Owner:     updated.Owner.String(),
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Create(&replay).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return reasoncodes.New(
					reasoncodes.ErrNonceAlreadyUsed,
					"replay record already exists for this nonce",
				)
			}
			return err
		}

		rec := progressToRecord(updated)
		return tx.Save(&rec).Error
	})
}

func (s *GormStore) ListProgress(ctx context.Context) ([]Progress, error) {
	var recs []ProgressRecord
	if err := s.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, err
	}

	out := make([]Progress, 0, len(recs))
	for _, rec := range recs {
		p, err := recordToProgress(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func progressToRecord(p Progress) ProgressRecord {
	return ProgressRecord{
		Owner:          p.Owner.String(),
		Streak:         p.Streak,
		LastDayClaimed: p.LastDayClaimed,
		TotalClaims:    p.TotalClaims,
	}
}

func recordToProgress(rec ProgressRecord) (Progress, error) {
	owner, err := solana.PublicKeyFromBase58(rec.Owner)
	if err != nil {
		return Progress{}, err
	}
	return Progress{
		Owner:          owner,
		Streak:         rec.Streak,
		LastDayClaimed: rec.LastDayClaimed,
		TotalClaims:    rec.TotalClaims,
	}, nil
}

package store

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Postgres backs Store with gorm over the league schema.
type Postgres struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewPostgres(dsn string, log *zap.Logger) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	return &Postgres{db: db, log: log}, nil
}

// Migrate creates the league tables. Dev convenience; production schemas
// are managed out of band.
func (p *Postgres) Migrate(ctx context.Context) error {
	return p.db.WithContext(ctx).AutoMigrate(&League{}, &LeagueMember{}, &UserStock{})
}

func (p *Postgres) Members(ctx context.Context, leagueID string) ([]Member, error) {
	var rows []LeagueMember
	err := p.db.WithContext(ctx).
		Where("league_id = ?", leagueID).
		Order("position asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrLeagueNotFound
	}

	members := make([]Member, 0, len(rows))
	for _, r := range rows {
		members = append(members, Member{UserID: r.UserID, DisplayName: r.DisplayName, Position: r.Position})
	}
	return members, nil
}

func (p *Postgres) SetDraftPhase(ctx context.Context, leagueID, phase string) error {
	res := p.db.WithContext(ctx).
		Model(&League{}).
		Where("id = ?", leagueID).
		Update("draft_phase", phase)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLeagueNotFound
	}
	return nil
}

func (p *Postgres) AddStock(ctx context.Context, s Stock) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing UserStock
		err := tx.Where("league_id = ? AND ticker = ?", s.LeagueID, s.Ticker).
			First(&existing).Error
		if err == nil {
			return ErrDuplicateStock
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&UserStock{LeagueID: s.LeagueID, Ticker: s.Ticker, MemberID: s.MemberID}).Error
	})
}

func (p *Postgres) RemoveStock(ctx context.Context, s Stock) error {
	res := p.db.WithContext(ctx).
		Where("league_id = ? AND ticker = ? AND member_id = ?", s.LeagueID, s.Ticker, s.MemberID).
		Delete(&UserStock{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStockNotOwned
	}
	return nil
}

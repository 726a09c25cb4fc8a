package store

import "time"

type League struct {
	ID         string `gorm:"primaryKey"`
	Name       string
	DraftPhase string `gorm:"default:'NOT_STARTED'"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type LeagueMember struct {
	LeagueID    string `gorm:"primaryKey"`
	UserID      string `gorm:"primaryKey"`
	DisplayName string
	Position    int // draft order within the league
	CreatedAt   time.Time
}

type UserStock struct {
	LeagueID  string `gorm:"primaryKey"`
	Ticker    string `gorm:"primaryKey"`
	MemberID  string `gorm:"index"`
	CreatedAt time.Time
}

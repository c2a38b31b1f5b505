package repository

import (
	"context"
	"database/sql"
	"time"

	"kettle_protocol/internal/models"
	"kettle_protocol/internal/repository/db"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// AnchorRepo persists the runtime anchor per configuration instance.
// Load returns (nil, nil) when nothing was saved yet (first run).
type AnchorRepo interface {
	Save(ctx context.Context, entryID string, a models.RuntimeAnchor) error
	Load(ctx context.Context, entryID string) (*models.RuntimeAnchor, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.KettleEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.KettleEvent, error)
}

type Repository struct {
	AnchorRepo AnchorRepo
	EventRepo  EventRepo
	Auth       Authorization
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{
		AnchorRepo: NewAnchorSQLite(database),
		EventRepo:  NewEventSQLite(database),
		Auth:       NewUserRepository(database),
	}
}

// InitDB opens the SQLite database and ensures the schema exists.
func InitDB(path string) (*sql.DB, error) {
	return db.InitDB(path)
}

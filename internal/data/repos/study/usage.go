package study

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/studyforge-backend/internal/domain"
	"github.com/yungbote/studyforge-backend/internal/platform/dbctx"
	"github.com/yungbote/studyforge-backend/internal/platform/logger"
)

type DailyUsageRepo interface {
	Get(dbc dbctx.Context, userID uuid.UUID, day string) (int, error)
	Increment(dbc dbctx.Context, userID uuid.UUID, day string) (int, error)
}

type dailyUsageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDailyUsageRepo(db *gorm.DB, baseLog *logger.Logger) DailyUsageRepo {
	return &dailyUsageRepo{db: db, log: baseLog.With("repo", "DailyUsageRepo")}
}

func (r *dailyUsageRepo) Get(dbc dbctx.Context, userID uuid.UUID, day string) (int, error) {
	var row types.DailyUsage
	err := dbc.Conn(r.db).Where("user_id = ? AND day = ?", userID, day).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Conversions, nil
}

func (r *dailyUsageRepo) Increment(dbc dbctx.Context, userID uuid.UUID, day string) (int, error) {
	row := &types.DailyUsage{UserID: userID, Day: day, Conversions: 1, UpdatedAt: time.Now().UTC()}
	conn := dbc.Conn(r.db)
	err := conn.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"conversions": gorm.Expr("daily_usage.conversions + 1"),
			"updated_at":  row.UpdatedAt,
		}),
	}).Create(row).Error
	if err != nil {
		return 0, err
	}
	return r.Get(dbc, userID, day)
}

// IsUniqueViolation recognises duplicate-key errors from Postgres, SQLite and
// gorm's translated form.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate key value")
}

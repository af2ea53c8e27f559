package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"unibook/infras/otel"
	"unibook/infras/postgres"
	"unibook/internal/domains/slot/model"
	"unibook/shared/constant"
	gDto "unibook/shared/dto"
	"unibook/shared/logger"
	gRepo "unibook/shared/repository"
)

type Slot interface {
	Insert(ctx context.Context, model model.Slot) error
	InsertBulkTx(ctx context.Context, tx *sqlx.Tx, models []model.Slot) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Slot, error)
	GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, filter gDto.FilterGroup, columns ...string) (model.Slot, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Slot, error)
	GetOwnedOnDateForUpdateTx(ctx context.Context, tx *sqlx.Tx, ownerID string, date time.Time) ([]model.Slot, error)
	LockOwnerDateTx(ctx context.Context, tx *sqlx.Tx, ownerID string, date time.Time) error
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	DeleteTx(ctx context.Context, tx *sqlx.Tx, filter gDto.FilterGroup) error
}

type repositoryImpl struct {
	gRepo.Repository[model.Slot]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Slot {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Slot](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// LockOwnerDateTx takes a transaction-scoped advisory lock on the (owner, date)
// pair. Row locks cannot serialize two batches when the provider has no
// instances on the date yet, so every writer for an owner/date must take this
// lock before reading. Released automatically at commit or rollback.
func (repo *repositoryImpl) LockOwnerDateTx(ctx context.Context, tx *sqlx.Tx, ownerID string, date time.Time) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".slot_instance.LockOwnerDateTx")
	defer scope.End()

	query := `SELECT pg_advisory_xact_lock(hashtext($1), ($2::date - DATE '2000-01-01'))`

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	if _, err := tx.ExecContext(ctx, query, ownerID, date); err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to lock owner date (%s): %w", model.EntityName, err)
	}

	return nil
}

// GetOwnedOnDateForUpdateTx loads and locks every instance a provider owns on
// the given date, whether the instance is ad-hoc (created_by) or materialized
// from one of the provider's templates.
func (repo *repositoryImpl) GetOwnedOnDateForUpdateTx(ctx context.Context, tx *sqlx.Tx, ownerID string, date time.Time) ([]model.Slot, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".slot_instance.GetOwnedOnDateForUpdateTx")
	defer scope.End()

	query := fmt.Sprintf(`SELECT id, template_id, slot_date, start_at, end_at, capacity, notes, created_at, modified_at, created_by, modified_by
		FROM %s
		WHERE slot_date = :slot_date
		AND (created_by = :owner_id OR template_id IN (SELECT id FROM slot_templates WHERE owner_id = :owner_id))
		FOR UPDATE`, model.TableName)

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	args := map[string]any{
		"slot_date": date,
		"owner_id":  ownerID,
	}

	var slots []model.Slot

	prepare, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to prepare statement (%s): %w", model.EntityName, err)
	}
	defer prepare.Close()

	err = prepare.SelectContext(ctx, &slots, args)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to get owned instances (%s): %w", model.EntityName, err)
	}

	return slots, nil
}

// Package library - контент-библиотека бренда: доступна на тарифах с hasContentLibrary
// и ограничена суммарным объёмом storageLimitBytes.
package library

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/entitlement"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
	"github.com/ignatzorin/collab-backend/internal/storage"
	"github.com/ignatzorin/collab-backend/internal/usecase/subscription"
)

const storageCounter = "storage_bytes"

type FileStorage interface {
	Detect(r io.ReadSeeker) (storage.Detected, error)
	Save(ctx context.Context, brandID uuid.UUID, originalName string, r io.Reader) (string, int64, error)
	Delete(ctx context.Context, relativePath string) error
}

type Deps struct {
	Tx      repository.Transactor
	Storage FileStorage
	Clock   func() time.Time
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock().UTC()
	}
	return time.Now().UTC()
}

type UploadInput struct {
	FileName  string
	Size      int64
	Content   io.ReadSeeker
	BookingID *uuid.UUID
}

type UploadUseCase struct {
	deps Deps
}

func NewUploadUseCase(deps Deps) *UploadUseCase {
	return &UploadUseCase{deps: deps}
}

// Execute проверяет тариф и свободное место по заявленному размеру, пишет файл
// и повторно проверяет лимит по фактическому размеру перед сохранением записи.
func (uc *UploadUseCase) Execute(ctx context.Context, actor entity.Principal, input UploadInput) (*entity.LibraryItem, error) {
	if !actor.IsBrand() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "контент-библиотека доступна только брендам")
	}
	if input.Content == nil || input.Size <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "файл не может быть пустым")
	}
	now := uc.deps.now()

	if err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return checkSpace(ctx, tx, actor.ProfileID, input.Size, now)
	}); err != nil {
		return nil, err
	}

	kind, err := uc.deps.Storage.Detect(input.Content)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			return nil, apperror.New(apperror.ErrCodeValidation, "неподдерживаемый тип файла")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось прочитать файл")
	}

	path, size, err := uc.deps.Storage.Save(ctx, actor.ProfileID, input.FileName, input.Content)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, apperror.New(apperror.ErrCodeValidation, "файл превышает допустимый размер загрузки")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сохранить файл")
	}

	item := &entity.LibraryItem{
		ID:             uuid.New(),
		BrandProfileID: actor.ProfileID,
		BookingID:      input.BookingID,
		FileName:       input.FileName,
		MimeType:       kind.MIME,
		SizeBytes:      size,
		StoragePath:    path,
		CreatedAt:      now,
	}
	err = uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := checkSpace(ctx, tx, actor.ProfileID, size, now); err != nil {
			return err
		}
		if item.BookingID != nil {
			b, err := tx.Bookings().FindByID(ctx, *item.BookingID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperror.ErrBookingNotFound
				}
				return err
			}
			if b.BrandID != actor.ProfileID {
				return apperror.ErrNotParticipant
			}
		}
		return tx.Library().Create(ctx, item)
	})
	if err != nil {
		if delErr := uc.deps.Storage.Delete(context.WithoutCancel(ctx), path); delErr != nil {
			logger.FromContext(ctx).WithError(delErr).WithField("path", path).Warn("orphaned library file")
		}
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"brand_id": actor.ProfileID,
		"item_id":  item.ID,
		"mime":     item.MimeType,
		"size":     item.SizeBytes,
	}).Info("library item uploaded")
	return item, nil
}

func checkSpace(ctx context.Context, tx repository.Tx, brandID uuid.UUID, size int64, now time.Time) error {
	plan, err := subscription.ActivePlan(ctx, tx, brandID, now)
	if err != nil {
		return err
	}
	if err := entitlement.Require(plan, entitlement.CapContentLibrary); err != nil {
		return err
	}

	limit := entitlement.For(plan).StorageLimitBytes
	if limit.IsUnlimited() {
		return nil
	}
	used, err := tx.Library().UsedBytes(ctx, brandID)
	if err != nil {
		return err
	}
	if used+size > int64(limit) {
		return apperror.QuotaExceeded(storageCounter, used, int64(limit)).WithDetail("requested", size)
	}
	return nil
}

type ListUseCase struct {
	deps Deps
}

func NewListUseCase(deps Deps) *ListUseCase {
	return &ListUseCase{deps: deps}
}

type Listing struct {
	Items     []*entity.LibraryItem `json:"items"`
	UsedBytes int64                 `json:"used_bytes"`
	Limit     entitlement.Limit     `json:"limit_bytes"`
}

func (uc *ListUseCase) Execute(ctx context.Context, actor entity.Principal, limit, offset int) (*Listing, error) {
	if !actor.IsBrand() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "контент-библиотека доступна только брендам")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	now := uc.deps.now()

	var listing Listing
	err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		plan, err := subscription.ActivePlan(ctx, tx, actor.ProfileID, now)
		if err != nil {
			return err
		}
		listing.Limit = entitlement.For(plan).StorageLimitBytes
		if listing.UsedBytes, err = tx.Library().UsedBytes(ctx, actor.ProfileID); err != nil {
			return err
		}
		listing.Items, err = tx.Library().List(ctx, actor.ProfileID, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

package repository

import (
	"context"

	"github.com/questx-lab/swapd/internal/entity"
	"github.com/questx-lab/swapd/pkg/xcontext"
)

type ReverseSwapRepository interface {
	Create(ctx context.Context, reverseSwap *entity.ReverseSwap) error
	GetByID(ctx context.Context, id string) (*entity.ReverseSwap, error)
	GetByPreimageHash(ctx context.Context, preimageHash string, statusIn []entity.SwapUpdateEvent) (*entity.ReverseSwap, error)
	GetByPreimageHashNotIn(ctx context.Context, preimageHash string, statusNotIn []entity.SwapUpdateEvent) (*entity.ReverseSwap, error)
	GetByTransactionID(ctx context.Context, txID string, status entity.SwapUpdateEvent) (*entity.ReverseSwap, error)
	GetByStatus(ctx context.Context, status entity.SwapUpdateEvent) ([]entity.ReverseSwap, error)
	GetExpirable(ctx context.Context, height int64) ([]entity.ReverseSwap, error)

	// SetLockupTransaction records our broadcast lockup, the reverse swap waits
	// in the mempool status for its confirmation.
	SetLockupTransaction(ctx context.Context, reverseSwap *entity.ReverseSwap, txID string) (bool, error)
	SetStatus(ctx context.Context, reverseSwap *entity.ReverseSwap, status entity.SwapUpdateEvent) (bool, error)
	SetFailed(ctx context.Context, reverseSwap *entity.ReverseSwap, status entity.SwapUpdateEvent, reason string) (bool, error)
}

type reverseSwapRepository struct{}

func NewReverseSwapRepository() *reverseSwapRepository {
	return &reverseSwapRepository{}
}

func (r *reverseSwapRepository) Create(ctx context.Context, reverseSwap *entity.ReverseSwap) error {
	return xcontext.DB(ctx).Create(reverseSwap).Error
}

func (r *reverseSwapRepository) GetByID(ctx context.Context, id string) (*entity.ReverseSwap, error) {
	var result entity.ReverseSwap
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *reverseSwapRepository) GetByPreimageHash(
	ctx context.Context, preimageHash string, statusIn []entity.SwapUpdateEvent,
) (*entity.ReverseSwap, error) {
	var result entity.ReverseSwap
	err := xcontext.DB(ctx).
		Where("preimage_hash=? AND status IN (?)", preimageHash, statusIn).
		Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *reverseSwapRepository) GetByPreimageHashNotIn(
	ctx context.Context, preimageHash string, statusNotIn []entity.SwapUpdateEvent,
) (*entity.ReverseSwap, error) {
	var result entity.ReverseSwap
	err := xcontext.DB(ctx).
		Where("preimage_hash=? AND status NOT IN (?)", preimageHash, statusNotIn).
		Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *reverseSwapRepository) GetByTransactionID(
	ctx context.Context, txID string, status entity.SwapUpdateEvent,
) (*entity.ReverseSwap, error) {
	var result entity.ReverseSwap
	err := xcontext.DB(ctx).
		Take(&result, "transaction_id=? AND status=?", txID, status).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *reverseSwapRepository) GetByStatus(
	ctx context.Context, status entity.SwapUpdateEvent,
) ([]entity.ReverseSwap, error) {
	var result []entity.ReverseSwap
	if err := xcontext.DB(ctx).Find(&result, "status=?", status).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *reverseSwapRepository) GetExpirable(ctx context.Context, height int64) ([]entity.ReverseSwap, error) {
	var result []entity.ReverseSwap
	err := xcontext.DB(ctx).
		Where("timeout_block_height <= ? AND status NOT IN (?)", height, entity.TerminalStatuses).
		Order("timeout_block_height ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *reverseSwapRepository) SetLockupTransaction(
	ctx context.Context, reverseSwap *entity.ReverseSwap, txID string,
) (bool, error) {
	status := entity.TransactionMempool
	data := map[string]any{"status": status, "transaction_id": txID}
	return r.update(ctx, reverseSwap, status, data, func() {
		reverseSwap.Status = status
		reverseSwap.TransactionID = txID
	})
}

func (r *reverseSwapRepository) SetStatus(
	ctx context.Context, reverseSwap *entity.ReverseSwap, status entity.SwapUpdateEvent,
) (bool, error) {
	return r.update(ctx, reverseSwap, status, map[string]any{"status": status}, func() {
		reverseSwap.Status = status
	})
}

func (r *reverseSwapRepository) SetFailed(
	ctx context.Context, reverseSwap *entity.ReverseSwap, status entity.SwapUpdateEvent, reason string,
) (bool, error) {
	data := map[string]any{"status": status, "failure_reason": reason}
	return r.update(ctx, reverseSwap, status, data, func() {
		reverseSwap.Status = status
		reverseSwap.FailureReason = reason
	})
}

func (r *reverseSwapRepository) update(
	ctx context.Context, reverseSwap *entity.ReverseSwap, status entity.SwapUpdateEvent, data map[string]any, apply func(),
) (bool, error) {
	tx := xcontext.DB(ctx).
		Model(&entity.ReverseSwap{}).
		Where("id=? AND status NOT IN (?)", reverseSwap.ID, entity.FinalStatusesFor(status)).
		Updates(data)
	if tx.Error != nil {
		return false, tx.Error
	}

	if tx.RowsAffected == 0 {
		return false, nil
	}

	apply()
	return true, nil
}

package repository

import (
	"context"

	"github.com/questx-lab/swapd/internal/entity"
	"github.com/questx-lab/swapd/pkg/xcontext"
)

type SwapRepository interface {
	Create(ctx context.Context, swap *entity.Swap) error
	GetByID(ctx context.Context, id string) (*entity.Swap, error)
	GetByPreimageHash(ctx context.Context, preimageHash string, statusIn []entity.SwapUpdateEvent) (*entity.Swap, error)
	GetByStatus(ctx context.Context, status entity.SwapUpdateEvent) ([]entity.Swap, error)
	GetExpirable(ctx context.Context, height int64) ([]entity.Swap, error)

	// SetLockupTransaction records the lockup of a swap which is still waiting
	// for it. It returns false if the swap already left the waiting statuses.
	SetLockupTransaction(ctx context.Context, swap *entity.Swap, txID string, amount int64, confirmed bool) (bool, error)

	// SetStatus and SetFailed never move a swap out of a terminal status, they
	// return false in that case.
	SetStatus(ctx context.Context, swap *entity.Swap, status entity.SwapUpdateEvent) (bool, error)
	SetFailed(ctx context.Context, swap *entity.Swap, status entity.SwapUpdateEvent, reason string) (bool, error)
}

type swapRepository struct{}

func NewSwapRepository() *swapRepository {
	return &swapRepository{}
}

func (r *swapRepository) Create(ctx context.Context, swap *entity.Swap) error {
	return xcontext.DB(ctx).Create(swap).Error
}

func (r *swapRepository) GetByID(ctx context.Context, id string) (*entity.Swap, error) {
	var result entity.Swap
	if err := xcontext.DB(ctx).Take(&result, "id=?", id).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *swapRepository) GetByPreimageHash(
	ctx context.Context, preimageHash string, statusIn []entity.SwapUpdateEvent,
) (*entity.Swap, error) {
	var result entity.Swap
	err := xcontext.DB(ctx).
		Where("preimage_hash=? AND status IN (?)", preimageHash, statusIn).
		Take(&result).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *swapRepository) GetByStatus(ctx context.Context, status entity.SwapUpdateEvent) ([]entity.Swap, error) {
	var result []entity.Swap
	if err := xcontext.DB(ctx).Find(&result, "status=?", status).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *swapRepository) GetExpirable(ctx context.Context, height int64) ([]entity.Swap, error) {
	var result []entity.Swap
	err := xcontext.DB(ctx).
		Where("timeout_block_height <= ? AND status NOT IN (?)", height, entity.TerminalStatuses).
		Order("timeout_block_height ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *swapRepository) SetLockupTransaction(
	ctx context.Context, swap *entity.Swap, txID string, amount int64, confirmed bool,
) (bool, error) {
	status := entity.TransactionMempool
	if confirmed {
		status = entity.TransactionConfirmed
	}

	tx := xcontext.DB(ctx).
		Model(&entity.Swap{}).
		Where("id=? AND status IN (?)", swap.ID, entity.LockupPendingStatuses).
		Updates(map[string]any{
			"lockup_transaction_id": txID,
			"onchain_amount":        amount,
			"status":                status,
		})
	if tx.Error != nil {
		return false, tx.Error
	}

	if tx.RowsAffected == 0 {
		return false, nil
	}

	swap.LockupTransactionID = txID
	swap.OnchainAmount.Int64 = amount
	swap.OnchainAmount.Valid = true
	swap.Status = status
	return true, nil
}

func (r *swapRepository) SetStatus(
	ctx context.Context, swap *entity.Swap, status entity.SwapUpdateEvent,
) (bool, error) {
	return r.update(ctx, swap, status, map[string]any{"status": status}, func() {
		swap.Status = status
	})
}

func (r *swapRepository) SetFailed(
	ctx context.Context, swap *entity.Swap, status entity.SwapUpdateEvent, reason string,
) (bool, error) {
	return r.update(ctx, swap, status, map[string]any{"status": status, "failure_reason": reason}, func() {
		swap.Status = status
		swap.FailureReason = reason
	})
}

func (r *swapRepository) update(
	ctx context.Context, swap *entity.Swap, status entity.SwapUpdateEvent, data map[string]any, apply func(),
) (bool, error) {
	tx := xcontext.DB(ctx).
		Model(&entity.Swap{}).
		Where("id=? AND status NOT IN (?)", swap.ID, entity.FinalStatusesFor(status)).
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

package repository

import (
	"context"
	"database/sql"

	"github.com/questx-lab/swapd/internal/entity"
	"github.com/questx-lab/swapd/pkg/xcontext"
)

type ChannelCreationRepository interface {
	Create(ctx context.Context, channelCreation *entity.ChannelCreation) error
	GetBySwapID(ctx context.Context, swapID string) (*entity.ChannelCreation, error)
	SetFundingTransaction(ctx context.Context, channelCreation *entity.ChannelCreation, txID string, vout int) error
}

type channelCreationRepository struct{}

func NewChannelCreationRepository() *channelCreationRepository {
	return &channelCreationRepository{}
}

func (r *channelCreationRepository) Create(ctx context.Context, channelCreation *entity.ChannelCreation) error {
	return xcontext.DB(ctx).Create(channelCreation).Error
}

func (r *channelCreationRepository) GetBySwapID(
	ctx context.Context, swapID string,
) (*entity.ChannelCreation, error) {
	var result entity.ChannelCreation
	if err := xcontext.DB(ctx).Take(&result, "swap_id=?", swapID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *channelCreationRepository) SetFundingTransaction(
	ctx context.Context, channelCreation *entity.ChannelCreation, txID string, vout int,
) error {
	err := xcontext.DB(ctx).
		Model(&entity.ChannelCreation{}).
		Where("swap_id=?", channelCreation.SwapID).
		Updates(map[string]any{
			"funding_transaction_id":   txID,
			"funding_transaction_vout": vout,
		}).Error
	if err != nil {
		return err
	}

	channelCreation.FundingTransactionID = sql.NullString{String: txID, Valid: true}
	channelCreation.FundingTransactionVout = sql.NullInt32{Int32: int32(vout), Valid: true}
	return nil
}

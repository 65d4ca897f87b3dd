package migration

import (
	"context"

	"github.com/questx-lab/swapd/internal/entity"
	"github.com/questx-lab/swapd/pkg/xcontext"
)

func migrate0001(ctx context.Context) error {
	migrator := xcontext.DB(ctx).Migrator()

	if !migrator.HasColumn(&entity.Swap{}, "onchain_amount") {
		if err := migrator.AddColumn(&entity.Swap{}, "onchain_amount"); err != nil {
			return err
		}
	}

	if !migrator.HasTable(&entity.ChannelCreation{}) {
		if err := migrator.CreateTable(&entity.ChannelCreation{}); err != nil {
			return err
		}
	}

	return nil
}

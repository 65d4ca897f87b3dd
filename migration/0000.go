package migration

import (
	"context"

	"github.com/questx-lab/swapd/internal/entity"
	"github.com/questx-lab/swapd/pkg/xcontext"
)

// migrate0000 will create the database with the first version.
func migrate0000(ctx context.Context) error {
	return xcontext.DB(ctx).Migrator().CreateTable(
		&entity.Swap{},
		&entity.ReverseSwap{},
	)
}

package normalizer

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/questx-lab/swapd/internal/domain/blockchain/types"
	"github.com/questx-lab/swapd/internal/domain/swapevent"
	"github.com/questx-lab/swapd/internal/entity"
	"github.com/questx-lab/swapd/internal/model"
	"github.com/questx-lab/swapd/pkg/testutil"
	"github.com/stretchr/testify/require"
)

type outcome struct {
	ID              string
	IsReverse       bool
	Reason          string
	ChannelCreation *entity.ChannelCreation
}

type recordingObserver struct {
	mu        sync.Mutex
	updates   []model.SwapUpdate
	successes []outcome
	failures  []outcome
	backups   []swapevent.ChannelBackup
}

func (o *recordingObserver) SwapUpdate(ctx context.Context, id string, update *model.SwapUpdate) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.updates = append(o.updates, *update)
}

func (o *recordingObserver) SwapSuccess(
	ctx context.Context, record entity.SwapRecord, isReverse bool, channelCreation *entity.ChannelCreation,
) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.successes = append(o.successes, outcome{ID: record.GetID(), IsReverse: isReverse, ChannelCreation: channelCreation})
}

func (o *recordingObserver) SwapFailure(ctx context.Context, record entity.SwapRecord, isReverse bool, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, outcome{ID: record.GetID(), IsReverse: isReverse, Reason: reason})
}

func (o *recordingObserver) ChannelBackup(ctx context.Context, currency, backup string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.backups = append(o.backups, swapevent.ChannelBackup{Currency: currency, Backup: backup})
}

func (o *recordingObserver) counts() (int, int, int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.updates), len(o.successes), len(o.failures), len(o.backups)
}

func newTestNormalizer() (*EventNormalizer, *recordingObserver) {
	observer := &recordingObserver{}
	normalizer := NewEventNormalizer(2)
	normalizer.Register(observer)
	return normalizer, observer
}

func TestEventNormalizer_Updates(t *testing.T) {
	swap := &entity.Swap{Base: entity.Base{ID: "swap1"}}
	reverseSwap := &entity.ReverseSwap{Base: entity.Base{ID: "rswap1"}}
	channelCreation := &entity.ChannelCreation{
		SwapID:                 "swap1",
		FundingTransactionID:   sql.NullString{String: "fundingtx", Valid: true},
		FundingTransactionVout: sql.NullInt32{Int32: 1, Valid: true},
	}

	tests := []struct {
		name  string
		event swapevent.Event
		want  []model.SwapUpdate
	}{
		{
			name:  "swap created",
			event: &swapevent.SwapCreated{ID: "swap1"},
			want:  []model.SwapUpdate{{Status: "swap.created"}},
		},
		{
			name:  "invoice set",
			event: &swapevent.InvoiceSet{ID: "swap1"},
			want:  []model.SwapUpdate{{Status: "invoice.set"}},
		},
		{
			name: "unconfirmed lockup",
			event: &swapevent.Transaction{
				Record: swap, Transaction: types.NewNativeTransaction("tx1", []byte{0xab}),
			},
			want: []model.SwapUpdate{{
				Status:      "transaction.mempool",
				Transaction: &model.TransactionInfo{ID: "tx1", Hex: "ab"},
			}},
		},
		{
			name: "confirmed lockup",
			event: &swapevent.Transaction{
				Record: swap, Transaction: types.NewReferenceTransaction("0xa"), Confirmed: true,
			},
			want: []model.SwapUpdate{{
				Status:      "transaction.confirmed",
				Transaction: &model.TransactionInfo{ID: "0xa"},
			}},
		},
		{
			name: "zero conf rejected",
			event: &swapevent.ZeroConfRejected{
				Swap: swap, Transaction: types.NewReferenceTransaction("tx1"),
			},
			want: []model.SwapUpdate{{
				Status:           "transaction.mempool",
				ZeroConfRejected: true,
				Transaction:      &model.TransactionInfo{ID: "tx1"},
			}},
		},
		{
			name:  "invoice pending",
			event: &swapevent.InvoicePending{Swap: swap},
			want:  []model.SwapUpdate{{Status: "invoice.pending"}},
		},
		{
			name:  "invoice paid",
			event: &swapevent.InvoicePaid{Swap: swap},
			want:  []model.SwapUpdate{{Status: "invoice.paid"}},
		},
		{
			name:  "invoice expired",
			event: &swapevent.InvoiceExpired{ReverseSwap: reverseSwap},
			want:  []model.SwapUpdate{{Status: "invoice.expired"}},
		},
		{
			name:  "miner fee paid",
			event: &swapevent.MinerFeePaid{ReverseSwap: reverseSwap},
			want:  []model.SwapUpdate{{Status: "minerfee.paid"}},
		},
		{
			name: "coins sent",
			event: &swapevent.CoinsSent{
				ReverseSwap: reverseSwap, Transaction: types.NewNativeTransaction("0xlockup", []byte{1}),
			},
			want: []model.SwapUpdate{{
				Status:      "transaction.mempool",
				Transaction: &model.TransactionInfo{ID: "0xlockup", Hex: "01", Eta: 2},
			}},
		},
		{
			name:  "channel created",
			event: &swapevent.ChannelCreated{Swap: swap, ChannelCreation: channelCreation},
			want: []model.SwapUpdate{{
				Status:  "channel.created",
				Channel: &model.ChannelInfo{FundingTransactionID: "fundingtx", FundingTransactionVout: 1},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalizer, observer := newTestNormalizer()
			normalizer.Handle(testutil.NewMockContext(), tt.event)

			require.Equal(t, tt.want, observer.updates)
			require.Empty(t, observer.successes)
			require.Empty(t, observer.failures)
		})
	}
}

func TestEventNormalizer_ReverseTransaction(t *testing.T) {
	tests := []struct {
		name        string
		status      entity.SwapUpdateEvent
		transaction *types.Transaction
		want        []model.SwapUpdate
	}{
		{
			name:        "native",
			status:      entity.TransactionMempool,
			transaction: types.NewNativeTransaction("0xa", []byte{1}),
			want: []model.SwapUpdate{{
				Status:      "transaction.confirmed",
				Transaction: &model.TransactionInfo{ID: "0xa"},
			}},
		},
		{
			name:        "reference of confirmed reverse swap",
			status:      entity.TransactionConfirmed,
			transaction: types.NewReferenceTransaction("0xa"),
			want: []model.SwapUpdate{{
				Status:      "transaction.confirmed",
				Transaction: &model.TransactionInfo{ID: "0xa"},
			}},
		},
		{
			name:        "reference of pending reverse swap",
			status:      entity.TransactionMempool,
			transaction: types.NewReferenceTransaction("0xa"),
			want:        nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalizer, observer := newTestNormalizer()
			normalizer.Handle(testutil.NewMockContext(), &swapevent.Transaction{
				Record:      &entity.ReverseSwap{Base: entity.Base{ID: "rswap1"}, Status: tt.status},
				Transaction: tt.transaction,
				Confirmed:   true,
				IsReverse:   true,
			})

			require.Equal(t, tt.want, observer.updates)
		})
	}
}

func TestEventNormalizer_Successes(t *testing.T) {
	ctx := testutil.NewMockContext()
	normalizer, observer := newTestNormalizer()

	channelCreation := &entity.ChannelCreation{SwapID: "swap1"}
	normalizer.Handle(ctx, &swapevent.ClaimSucceeded{
		Swap:            &entity.Swap{Base: entity.Base{ID: "swap1"}},
		ChannelCreation: channelCreation,
	})
	normalizer.Handle(ctx, &swapevent.InvoiceSettled{ReverseSwap: &entity.ReverseSwap{Base: entity.Base{ID: "rswap1"}}})

	require.Equal(t, []model.SwapUpdate{{Status: "transaction.claimed"}, {Status: "invoice.settled"}}, observer.updates)
	require.Equal(t, []outcome{
		{ID: "swap1", ChannelCreation: channelCreation},
		{ID: "rswap1", IsReverse: true},
	}, observer.successes)
	require.Empty(t, observer.failures)
}

func TestEventNormalizer_Failures(t *testing.T) {
	swap := &entity.Swap{Base: entity.Base{ID: "swap1"}}
	expiredSwap := &entity.Swap{Base: entity.Base{ID: "swap1"}, FailureReason: "onchain HTLC timed out"}
	reverseSwap := &entity.ReverseSwap{Base: entity.Base{ID: "rswap1"}}
	failedReverseSwap := &entity.ReverseSwap{Base: entity.Base{ID: "rswap1"}, FailureReason: "execution reverted"}

	tests := []struct {
		name      string
		event     swapevent.Event
		status    string
		reason    string
		isReverse bool
	}{
		{
			name:   "lockup failed",
			event:  &swapevent.LockupFailed{Swap: swap, Reason: "locked coins have invalid timelock 99, expected 100"},
			status: "transaction.lockupFailed",
			reason: "locked coins have invalid timelock 99, expected 100",
		},
		{
			name:   "swap expired",
			event:  &swapevent.Expiration{Record: expiredSwap},
			status: "swap.expired",
			reason: "onchain HTLC timed out",
		},
		{
			name:   "swap expired without reason",
			event:  &swapevent.Expiration{Record: swap},
			status: "swap.expired",
			reason: "onchain HTLC timed out",
		},
		{
			name:      "reverse swap expired",
			event:     &swapevent.Expiration{Record: reverseSwap, IsReverse: true},
			status:    "swap.expired",
			reason:    "onchain HTLC timed out",
			isReverse: true,
		},
		{
			name:   "invoice failed to pay",
			event:  &swapevent.InvoiceFailedToPay{Swap: swap},
			status: "invoice.failedToPay",
			reason: "invoice could not be paid",
		},
		{
			name:      "coins failed to send",
			event:     &swapevent.CoinsFailedToSend{ReverseSwap: failedReverseSwap},
			status:    "transaction.failed",
			reason:    "execution reverted",
			isReverse: true,
		},
		{
			name:      "coins failed to send without reason",
			event:     &swapevent.CoinsFailedToSend{ReverseSwap: reverseSwap},
			status:    "transaction.failed",
			reason:    "onchain coins could not be sent",
			isReverse: true,
		},
		{
			name:      "refund",
			event:     &swapevent.Refund{ReverseSwap: reverseSwap, TransactionID: "0xrefund"},
			status:    "transaction.refunded",
			reason:    "onchain coins were refunded",
			isReverse: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalizer, observer := newTestNormalizer()
			normalizer.Handle(testutil.NewMockContext(), tt.event)

			require.Equal(t, []model.SwapUpdate{{Status: tt.status, FailureReason: tt.reason}}, observer.updates)
			require.Len(t, observer.failures, 1)
			require.Equal(t, tt.event.SwapID(), observer.failures[0].ID)
			require.Equal(t, tt.reason, observer.failures[0].Reason)
			require.Equal(t, tt.isReverse, observer.failures[0].IsReverse)
			require.Empty(t, observer.successes)
		})
	}
}

type backupSource struct {
	backups chan swapevent.ChannelBackup
}

func (s *backupSource) Backups() <-chan swapevent.ChannelBackup { return s.backups }

func TestEventNormalizer_Start(t *testing.T) {
	ctx, cancel := context.WithCancel(testutil.NewMockContext())
	defer cancel()

	normalizer, observer := newTestNormalizer()

	events := make(chan swapevent.Event, 2)
	btc := &backupSource{backups: make(chan swapevent.ChannelBackup, 1)}
	ltc := &backupSource{backups: make(chan swapevent.ChannelBackup, 1)}
	normalizer.Start(ctx, events, btc, ltc)

	events <- &swapevent.SwapCreated{ID: "swap1"}
	events <- &swapevent.LockupFailed{Swap: &entity.Swap{Base: entity.Base{ID: "swap1"}}, Reason: "bad"}
	btc.backups <- swapevent.ChannelBackup{Currency: "BTC", Backup: "b1"}
	ltc.backups <- swapevent.ChannelBackup{Currency: "LTC", Backup: "b2"}

	require.Eventually(t, func() bool {
		updates, successes, failures, backups := observer.counts()
		return updates == 2 && successes == 0 && failures == 1 && backups == 2
	}, 5*time.Second, 10*time.Millisecond)

	require.ElementsMatch(t, []swapevent.ChannelBackup{
		{Currency: "BTC", Backup: "b1"},
		{Currency: "LTC", Backup: "b2"},
	}, observer.backups)
}

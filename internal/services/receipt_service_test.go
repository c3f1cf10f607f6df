package services

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/goldline/backend/internal/models"
	"github.com/goldline/backend/internal/repository"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiptService_ReceiptQR(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	logger, _ := test.NewNullLogger()

	settled, err := f.engine.RecordOffline(ctx, OfflineRequest{LoanID: "loan-1", Amount: dec("5000"), Method: models.MethodCash, Actor: agent})
	require.NoError(t, err)

	payments := NewPaymentRecordStore(f.store)

	t.Run("renders a png for a settled payment", func(t *testing.T) {
		svc := NewReceiptService(payments, nil, logger)
		img, err := svc.ReceiptQR(ctx, settled.PaymentNumber, 128)
		require.NoError(t, err)

		decoded, err := png.Decode(bytes.NewReader(img))
		require.NoError(t, err)
		assert.Equal(t, 128, decoded.Bounds().Dx())
	})

	t.Run("serves and fills the redis cache", func(t *testing.T) {
		plain, err := NewReceiptService(payments, nil, logger).ReceiptQR(ctx, settled.ID, 256)
		require.NoError(t, err)

		client, redisMock := redismock.NewClientMock()
		svc := NewReceiptService(payments, client, logger)
		key := "receipt_qr:" + *settled.ReceiptNumber + ":256"

		redisMock.ExpectGet(key).RedisNil()
		redisMock.ExpectSet(key, plain, receiptCacheTTL).SetVal("OK")
		img, err := svc.ReceiptQR(ctx, settled.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, plain, img)

		redisMock.ExpectGet(key).SetVal("cached-image")
		img, err = svc.ReceiptQR(ctx, settled.ID, 256)
		require.NoError(t, err)
		assert.Equal(t, []byte("cached-image"), img)

		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("pending payments have no receipt", func(t *testing.T) {
		pending := f.initiate(t, "1000", "T1")
		_, err := NewReceiptService(payments, nil, logger).ReceiptQR(ctx, pending.ID, 0)
		assert.ErrorIs(t, err, models.ErrPaymentNotSettled)
	})

	t.Run("unknown payment", func(t *testing.T) {
		_, err := NewReceiptService(NewPaymentRecordStore(repository.NewMemoryStore()), nil, logger).ReceiptQR(ctx, "nope", 0)
		assert.ErrorIs(t, err, models.ErrPaymentNotFound)
	})
}

package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetbook/budgetbook/internal/model"
	"github.com/budgetbook/budgetbook/internal/store"
)

type memBucket struct {
	objects map[string][]byte
}

func (b *memBucket) Put(_ context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *memBucket) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := b.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBucket) Close() error { return nil }

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in      string
		want    Location
		wantErr string
	}{
		{in: "s3://books/backups/latest.json", want: Location{"s3", "books", "backups/latest.json"}},
		{in: "gs://books/backups/", want: Location{"gs", "books", "backups/default.json"}},
		{in: "gs://books", want: Location{"gs", "books", "default.json"}},
		{in: "ftp://books/x.json", wantErr: "unsupported"},
		{in: "s3:///x.json", wantErr: "no bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLocation(tt.in, "default.json")
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}

	_, err := ParseLocation("s3://books/", "")
	assert.ErrorContains(t, err, "no object key")
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("s3://b/k"))
	assert.True(t, IsRemote("gs://b/k"))
	assert.False(t, IsRemote("backup.json"))
	assert.False(t, IsRemote("/tmp/s3://odd"))
}

func TestUploadDownload(t *testing.T) {
	bkt := &memBucket{objects: map[string][]byte{}}
	b := store.NewBundle([]model.TransactionRecord{{
		ID:          "transaction-1",
		Date:        model.NewDate(2024, 3, 1),
		Amount:      decimal.RequireFromString("-12.50"),
		Description: "Кофе",
		Category:    "Food",
		Institution: "Sberbank",
	}}, []string{"Food"}, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))

	require.NoError(t, Upload(t.Context(), bkt, "b/latest.json", b))
	assert.Contains(t, string(bkt.objects["b/latest.json"]), `"version": "2.0"`)

	got, err := Download(t.Context(), bkt, "b/latest.json")
	require.NoError(t, err)
	require.Len(t, got.Transactions, 1)
	assert.Equal(t, "Кофе", got.Transactions[0].Description)
	assert.True(t, got.Transactions[0].Amount.Equal(decimal.RequireFromString("-12.5")))
	assert.Equal(t, []string{"Food"}, got.Categories)

	_, err = Download(t.Context(), bkt, "missing.json")
	assert.ErrorContains(t, err, "downloading missing.json")
}

func TestOpen_UnknownScheme(t *testing.T) {
	_, err := Open(t.Context(), Location{Scheme: "ftp", Bucket: "b"}, Options{})
	assert.Error(t, err)
}

package postgres

import (
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"skusync/internal/core/apperror"
	"skusync/internal/domain/activity"
)

// Compile-time check that ActivityRepo implements activity.Repository.
var _ activity.Repository = (*ActivityRepo)(nil)

// CompressionAlgo specifies the compression applied to a details blob.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// ActivityRepo stores activity log entries in app_logs. Bulk sync
// summaries carry per-product results and can get large, so details
// blobs beyond a threshold are zstd-compressed at rest.
type ActivityRepo struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewActivityRepo creates a new activity repository.
func NewActivityRepo(txManager *TxManager) (*ActivityRepo, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &ActivityRepo{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Insert appends one entry.
func (r *ActivityRepo) Insert(ctx context.Context, entry *activity.Entry) error {
	details := []byte(entry.Details)
	var compressed []byte
	algo := CompressionNone
	if len(details) > r.compressThreshold {
		compressed = r.encoder.EncodeAll(details, nil)
		details = nil
		algo = CompressionZstd
	}

	sql := `
		INSERT INTO app_logs (kind, message, details, details_compressed, compression_algo, user_id, user_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	querier := r.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		entry.Kind, entry.Message, details, compressed, algo,
		nullIfEmpty(entry.UserID), nullIfEmpty(entry.UserName),
	)
	if err != nil {
		return apperror.NewDatabase(err)
	}
	return nil
}

// ListRecent returns the newest entries first.
func (r *ActivityRepo) ListRecent(ctx context.Context, limit int) ([]activity.Entry, error) {
	sql := `
		SELECT id, kind, message, details, details_compressed, compression_algo,
		       COALESCE(user_id, ''), COALESCE(user_name, ''), created_at
		FROM app_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := r.txManager.GetQuerier(ctx).Query(ctx, sql, limit)
	if err != nil {
		return nil, apperror.NewDatabase(err)
	}
	defer rows.Close()

	var entries []activity.Entry
	for rows.Next() {
		var e activity.Entry
		var compressed []byte
		var algo CompressionAlgo
		if err := rows.Scan(&e.ID, &e.Kind, &e.Message, &e.Details, &compressed, &algo,
			&e.UserID, &e.UserName, &e.CreatedAt); err != nil {
			return nil, apperror.NewDatabase(err)
		}

		if algo == CompressionZstd && len(compressed) > 0 {
			details, err := r.decoder.DecodeAll(compressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress log details: %w", err)
			}
			e.Details = details
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDatabase(err)
	}
	return entries, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

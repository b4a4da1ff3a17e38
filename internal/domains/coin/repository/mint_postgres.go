package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"wordmint-backend/internal/domains/coin/model"
	usermodel "wordmint-backend/internal/domains/user/model"
)

const mintColumns = `
	id, fid, symbol, metadata_uri, status, simulated, coin_address, tx_hash,
	error, payload, attempts, writing_id, write_date, created_at, updated_at`

type mintRepository struct {
	db DB
}

func NewMintRepository(db DB) MintRepository {
	return &mintRepository{db: db}
}

func scanMint(row pgx.Row) (*model.Mint, error) {
	var (
		m       model.Mint
		status  string
		payload []byte
	)
	err := row.Scan(
		&m.ID, &m.FID, &m.Symbol, &m.MetadataURI, &status, &m.Simulated, &m.CoinAddress, &m.TxHash,
		&m.Error, &payload, &m.Attempts, &m.WritingID, &m.WriteDate, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Status = model.MintStatus(status)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &m.Payload); err != nil {
			return nil, fmt.Errorf("decode mint payload: %w", err)
		}
	}
	return &m, nil
}

func (r *mintRepository) CreateIntent(ctx context.Context, m *model.Mint) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.Status = model.MintPendingChain
	m.WriteDate = usermodel.Day(m.WriteDate)

	payload, err := json.Marshal(m.Payload)
	if err != nil {
		return fmt.Errorf("encode mint payload: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO coin_mints (id, fid, symbol, metadata_uri, status, payload, write_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		m.ID, m.FID, m.Symbol, m.MetadataURI, string(m.Status), payload, m.WriteDate,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create mint intent: %w", err)
	}
	return nil
}

func (r *mintRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Mint, error) {
	m, err := scanMint(r.db.QueryRow(ctx, `SELECT `+mintColumns+` FROM coin_mints WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrMintNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get mint: %w", err)
	}
	return m, nil
}

func (r *mintRepository) MarkChainConfirmed(ctx context.Context, id uuid.UUID, res model.DeploymentResult, payload model.CommitParams) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode mint payload: %w", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE coin_mints SET
			status = $2, simulated = $3, coin_address = $4, tx_hash = $5, payload = $6, updated_at = NOW()
		WHERE id = $1 AND status = $7`,
		id, string(model.MintChainConfirmed), res.Simulated(), res.CoinAddress, res.TxHash, raw, string(model.MintPendingChain))
	if err != nil {
		return fmt.Errorf("mark mint chain_confirmed: %w", err)
	}
	return expectOne(tag.RowsAffected(), id, model.MintChainConfirmed)
}

func (r *mintRepository) RecordPendingTx(ctx context.Context, id uuid.UUID, txHash, reason string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE coin_mints SET tx_hash = $2, error = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`,
		id, txHash, reason, string(model.MintPendingChain))
	if err != nil {
		return fmt.Errorf("record pending mint tx: %w", err)
	}
	return expectOne(tag.RowsAffected(), id, model.MintPendingChain)
}

func (r *mintRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE coin_mints SET status = $2, error = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4`,
		id, string(model.MintFailed), reason, string(model.MintPendingChain))
	if err != nil {
		return fmt.Errorf("mark mint failed: %w", err)
	}
	return expectOne(tag.RowsAffected(), id, model.MintFailed)
}

func (r *mintRepository) MarkOrphaned(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE coin_mints SET status = $2, error = $3, updated_at = NOW()
		WHERE id = $1 AND status = ANY($4)`,
		id, string(model.MintOrphaned), reason,
		[]string{string(model.MintPendingChain), string(model.MintChainConfirmed)})
	if err != nil {
		return fmt.Errorf("mark mint orphaned: %w", err)
	}
	return expectOne(tag.RowsAffected(), id, model.MintOrphaned)
}

func (r *mintRepository) RecordCommitFailure(ctx context.Context, id uuid.UUID, reason string) (int, error) {
	var attempts int
	err := r.db.QueryRow(ctx, `
		UPDATE coin_mints SET attempts = attempts + 1, error = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING attempts`, id, reason,
	).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, model.ErrMintNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("record commit failure: %w", err)
	}
	return attempts, nil
}

func (r *mintRepository) ListStale(ctx context.Context, status model.MintStatus, cutoff time.Time, limit int) ([]*model.Mint, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+mintColumns+`
		FROM coin_mints
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at ASC
		LIMIT $3`, string(status), cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale mints: %w", err)
	}
	defer rows.Close()

	var mints []*model.Mint
	for rows.Next() {
		m, err := scanMint(rows)
		if err != nil {
			return nil, err
		}
		mints = append(mints, m)
	}
	return mints, rows.Err()
}

func expectOne(affected int64, id uuid.UUID, to model.MintStatus) error {
	if affected == 0 {
		return model.NewCoinError(model.ErrCodeInvalidStatusChange,
			fmt.Sprintf("mint %s cannot move to %s", id, to), model.ErrInvalidStatusChange)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ChartVerdict/internal/domain/models"
	domrepo "ChartVerdict/internal/domain/repository"
	pkgch "ChartVerdict/pkg/clickhouse"
	applogger "ChartVerdict/pkg/logger"
)

// CHCandleStore implements CandleStore backed by ClickHouse.
type CHCandleStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client, l *applogger.Logger) *CHCandleStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHCandleStore{
		db:    ch.DB(),
		table: ch.Database() + "." + pkgch.DailyCandlesTable,
		l:     l,
	}
}

// GetLatestNDaily returns up to n most recent daily candles in ascending order.
func (s *CHCandleStore) GetLatestNDaily(ctx context.Context, symbol string, n int) ([]models.Candle, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT bucket, symbol, open, high, low, close, vol
        FROM %s FINAL
        WHERE symbol = ?
        ORDER BY bucket DESC
        LIMIT ?
    `, s.table)

	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		s.l.Error("clickhouse latest_daily query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Int("limit", n),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get latest candles: %w", err)
	}
	defer rows.Close()

	out := make([]models.Candle, 0, n)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Bucket, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(out) == 0 {
		return nil, domrepo.ErrNoData
	}

	reverseCandles(out)
	s.l.Debug("clickhouse latest_daily ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func reverseCandles(c []models.Candle) {
	for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
		c[i], c[j] = c[j], c[i]
	}
}

var _ domrepo.CandleStore = (*CHCandleStore)(nil)

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertFuelObservationSQL = `INSERT INTO fuel_observations (
        observed_at,
        jet_fuel,
        brent_crude,
        wti_crude,
        source
    ) VALUES (
        $1,$2,$3,$4,$5
    );`

	insertCurrencyObservationSQL = `INSERT INTO currency_observations (
        observed_at,
        usd_inr,
        eur_inr,
        gbp_inr,
        jpy_inr,
        source
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    );`

	listRecentFuelSQL = `SELECT
        observed_at,
        jet_fuel,
        brent_crude,
        wti_crude,
        source,
        created_at
    FROM fuel_observations
    ORDER BY observed_at DESC
    LIMIT $1;`

	listRecentCurrencySQL = `SELECT
        observed_at,
        usd_inr,
        eur_inr,
        gbp_inr,
        jpy_inr,
        source,
        created_at
    FROM currency_observations
    ORDER BY observed_at DESC
    LIMIT $1;`

	listFuelBetweenSQL = `SELECT
        observed_at,
        jet_fuel,
        brent_crude,
        wti_crude,
        source,
        created_at
    FROM fuel_observations
    WHERE observed_at >= $1
      AND observed_at < $2
    ORDER BY observed_at;`

	listCurrencyBetweenSQL = `SELECT
        observed_at,
        usd_inr,
        eur_inr,
        gbp_inr,
        jpy_inr,
        source,
        created_at
    FROM currency_observations
    WHERE observed_at >= $1
      AND observed_at < $2
    ORDER BY observed_at;`

	countFuelSQL     = `SELECT COUNT(*) FROM fuel_observations;`
	countCurrencySQL = `SELECT COUNT(*) FROM currency_observations;`

	insertAlertSQL = `INSERT INTO signal_alerts (
        domain,
        signal,
        change_pct,
        channels
    ) VALUES (
        $1,$2,$3,$4
    )
    RETURNING id, domain, signal, change_pct, channels, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        domain,
        signal,
        change_pct,
        channels,
        created_at
    FROM signal_alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// ObservationStore defines operations for the two append-only price series.
type ObservationStore interface {
	InsertFuelObservation(ctx context.Context, obs FuelObservation) error
	InsertCurrencyObservation(ctx context.Context, obs CurrencyObservation) error
	ListRecentFuel(ctx context.Context, limit int) ([]FuelObservation, error)
	ListRecentCurrency(ctx context.Context, limit int) ([]CurrencyObservation, error)
}

// SeriesExporter defines windowed reads backing the export command.
type SeriesExporter interface {
	ListFuelBetween(ctx context.Context, from, to time.Time) ([]FuelObservation, error)
	ListCurrencyBetween(ctx context.Context, from, to time.Time) ([]CurrencyObservation, error)
}

// AlertStore defines operations for signal-alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to the price series and signal alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertFuelObservation appends one row to the fuel series.
func (s *Store) InsertFuelObservation(ctx context.Context, obs FuelObservation) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertFuelObservationSQL,
		obs.Timestamp,
		obs.JetFuel.String(),
		obs.BrentCrude.String(),
		obs.WTICrude.String(),
		obs.Source,
	)
	if execErr != nil {
		return fmt.Errorf("insert fuel observation: %w", execErr)
	}
	return nil
}

// InsertCurrencyObservation appends one row to the currency series.
func (s *Store) InsertCurrencyObservation(ctx context.Context, obs CurrencyObservation) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertCurrencyObservationSQL,
		obs.Timestamp,
		obs.USDINR.String(),
		obs.EURINR.String(),
		obs.GBPINR.String(),
		obs.JPYINR.String(),
		obs.Source,
	)
	if execErr != nil {
		return fmt.Errorf("insert currency observation: %w", execErr)
	}
	return nil
}

// ListRecentFuel lists the most recent fuel observations newest-first.
// An empty slice with a nil error means the series genuinely has no rows.
func (s *Store) ListRecentFuel(ctx context.Context, limit int) ([]FuelObservation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentFuelSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent fuel: %w", queryErr)
	}
	defer rows.Close()

	return collectFuel(rows, limit)
}

// ListRecentCurrency lists the most recent currency observations newest-first.
func (s *Store) ListRecentCurrency(ctx context.Context, limit int) ([]CurrencyObservation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentCurrencySQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent currency: %w", queryErr)
	}
	defer rows.Close()

	return collectCurrency(rows, limit)
}

// ListFuelBetween lists fuel observations within a time window, oldest-first.
func (s *Store) ListFuelBetween(ctx context.Context, from, to time.Time) ([]FuelObservation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listFuelBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list fuel between: %w", queryErr)
	}
	defer rows.Close()

	return collectFuel(rows, 0)
}

// ListCurrencyBetween lists currency observations within a time window, oldest-first.
func (s *Store) ListCurrencyBetween(ctx context.Context, from, to time.Time) ([]CurrencyObservation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listCurrencyBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list currency between: %w", queryErr)
	}
	defer rows.Close()

	return collectCurrency(rows, 0)
}

// CountFuelObservations counts stored fuel rows.
func (s *Store) CountFuelObservations(ctx context.Context) (int64, error) {
	return s.count(ctx, countFuelSQL)
}

// CountCurrencyObservations counts stored currency rows.
func (s *Store) CountCurrencyObservations(ctx context.Context) (int64, error) {
	return s.count(ctx, countCurrencySQL)
}

func (s *Store) count(ctx context.Context, query string) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, query).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count observations: %w", scanErr)
	}
	return count, nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.Domain,
		alert.Signal,
		alert.ChangePct.String(),
		alert.Channels,
	)

	rec, scanErr := scanAlert(row)
	if scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

func collectFuel(rows pgx.Rows, capacity int) ([]FuelObservation, error) {
	observations := make([]FuelObservation, 0, capacity)
	for rows.Next() {
		obs, scanErr := scanFuelObservation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		observations = append(observations, obs)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return observations, nil
}

func collectCurrency(rows pgx.Rows, capacity int) ([]CurrencyObservation, error) {
	observations := make([]CurrencyObservation, 0, capacity)
	for rows.Next() {
		obs, scanErr := scanCurrencyObservation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		observations = append(observations, obs)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return observations, nil
}

func scanFuelObservation(rows pgx.Rows) (FuelObservation, error) {
	var (
		observedAt time.Time
		jetStr     string
		brentStr   string
		wtiStr     string
		source     string
		createdAt  time.Time
	)

	if err := rows.Scan(&observedAt, &jetStr, &brentStr, &wtiStr, &source, &createdAt); err != nil {
		return FuelObservation{}, err
	}

	jet, err := decimal.NewFromString(jetStr)
	if err != nil {
		return FuelObservation{}, fmt.Errorf("parse jet fuel: %w", err)
	}
	brent, err := decimal.NewFromString(brentStr)
	if err != nil {
		return FuelObservation{}, fmt.Errorf("parse brent crude: %w", err)
	}
	wti, err := decimal.NewFromString(wtiStr)
	if err != nil {
		return FuelObservation{}, fmt.Errorf("parse wti crude: %w", err)
	}

	return FuelObservation{
		Timestamp:  observedAt,
		JetFuel:    jet,
		BrentCrude: brent,
		WTICrude:   wti,
		Source:     source,
		CreatedAt:  createdAt,
	}, nil
}

func scanCurrencyObservation(rows pgx.Rows) (CurrencyObservation, error) {
	var (
		observedAt time.Time
		usdStr     string
		eurStr     string
		gbpStr     string
		jpyStr     string
		source     string
		createdAt  time.Time
	)

	if err := rows.Scan(&observedAt, &usdStr, &eurStr, &gbpStr, &jpyStr, &source, &createdAt); err != nil {
		return CurrencyObservation{}, err
	}

	usd, err := decimal.NewFromString(usdStr)
	if err != nil {
		return CurrencyObservation{}, fmt.Errorf("parse usd_inr: %w", err)
	}
	eur, err := decimal.NewFromString(eurStr)
	if err != nil {
		return CurrencyObservation{}, fmt.Errorf("parse eur_inr: %w", err)
	}
	gbp, err := decimal.NewFromString(gbpStr)
	if err != nil {
		return CurrencyObservation{}, fmt.Errorf("parse gbp_inr: %w", err)
	}
	jpy, err := decimal.NewFromString(jpyStr)
	if err != nil {
		return CurrencyObservation{}, fmt.Errorf("parse jpy_inr: %w", err)
	}

	return CurrencyObservation{
		Timestamp: observedAt,
		USDINR:    usd,
		EURINR:    eur,
		GBPINR:    gbp,
		JPYINR:    jpy,
		Source:    source,
		CreatedAt: createdAt,
	}, nil
}

func scanAlert(row pgx.Row) (AlertRecord, error) {
	var (
		rec       AlertRecord
		changeStr string
	)

	if err := row.Scan(
		&rec.ID,
		&rec.Domain,
		&rec.Signal,
		&changeStr,
		&rec.Channels,
		&rec.CreatedAt,
	); err != nil {
		return AlertRecord{}, err
	}

	change, err := decimal.NewFromString(changeStr)
	if err != nil {
		return AlertRecord{}, fmt.Errorf("parse change pct: %w", err)
	}
	rec.ChangePct = change

	return rec, nil
}

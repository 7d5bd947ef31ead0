package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"map-chat/internal/storage/zapadapter"
)

var (
	ErrUserExists    = errors.New("user already exists")
	ErrUserNotExist  = errors.New("user does not exist")
	ErrGroupExists   = errors.New("group already exists")
	ErrGroupNotExist = errors.New("group does not exist")
)

// Store defines fields used in db interaction processes
type Store struct {
	logger *zap.SugaredLogger
	db     *pgxpool.Pool
}

// New sets provided zap.Logger via zapadapter to pgxpool.Pool and returns instance of Store struct
func New(ctx context.Context, logger *zap.SugaredLogger, cfg Config, opts ...Option) (*Store, error) {
	config, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}
	config.ConnConfig.Logger = zapadapter.NewLogger(logger.Desugar())

	for _, opt := range opts {
		opt.apply(config)
	}

	pool, err := pgxpool.ConnectConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Store{
		logger: logger,
		db:     pool,
	}, nil
}

// Migrate creates missing tables
func (s *Store) Migrate(ctx context.Context) error {
	s.logger.Debug("Applying schema")
	_, err := s.db.Exec(ctx, schema)
	return err
}

// Close closes all pool connections
func (s *Store) Close() {
	s.db.Close()
}

// pgCode returns postgres error code and constraint name, or empty strings for non-postgres errors
func pgCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

func isUniqueViolation(err error) bool {
	code, _ := pgCode(err)
	return code == pgerrcode.UniqueViolation
}

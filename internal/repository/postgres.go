package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"righthome/internal/model"
	"righthome/internal/utils"
)

const listingColumns = `
	id, address, city, locality, property_type, price, currency, bedrooms,
	bathrooms, square_feet, year_built, amenities, description, images,
	latitude, longitude, listed_at, created_at, updated_at`

// PostgresRepository handles property listing queries
type PostgresRepository struct {
	db *sqlx.DB
}

// OpenPostgres connects and configures a connection pool
func OpenPostgres(dsn string, maxConn, maxIdleConn int) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// NewPostgresRepository wraps an open connection pool
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// DB exposes the pool so other stores can share it
func (r *PostgresRepository) DB() *sqlx.DB {
	return r.db
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// SearchProperties returns listings matching filters. When queryEmbedding is
// set, results are ordered by cosine distance to it; otherwise newest first.
func (r *PostgresRepository) SearchProperties(
	ctx context.Context,
	filters *model.PropertyFilters,
	queryEmbedding []float32,
	limit, offset int,
) ([]model.Listing, int, error) {
	whereClause, args, argIndex := buildPropertyWhere(filters)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM properties WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count properties: %w", err)
	}
	if total == 0 {
		return []model.Listing{}, 0, nil
	}

	orderBy := "listed_at DESC NULLS LAST, id"
	if len(queryEmbedding) > 0 {
		orderBy = fmt.Sprintf("embedding <=> $%d ASC NULLS LAST, id", argIndex)
		args = append(args, pgvector.NewVector(queryEmbedding))
		argIndex++
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM properties
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, listingColumns, whereClause, orderBy, argIndex, argIndex+1)
	args = append(args, limit, offset)

	var listings []model.Listing
	if err := r.db.SelectContext(ctx, &listings, selectQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to fetch properties: %w", err)
	}

	return listings, total, nil
}

// GetPropertyByID returns nil without error when the listing does not exist
func (r *PostgresRepository) GetPropertyByID(ctx context.Context, id int64) (*model.Listing, error) {
	var listing model.Listing
	query := fmt.Sprintf("SELECT %s FROM properties WHERE id = $1", listingColumns)
	err := r.db.GetContext(ctx, &listing, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return &listing, nil
}

// BatchUpdateEmbeddings stores listing embeddings in one transaction.
// Per-row failures are reported and do not abort the batch.
func (r *PostgresRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	success := 0
	var failures []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, []string{fmt.Sprintf("failed to start transaction: %v", err)}
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `UPDATE properties SET embedding = $1, updated_at = NOW() WHERE id = $2`)
	if err != nil {
		return 0, []string{fmt.Sprintf("failed to prepare statement: %v", err)}
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, pgvector.NewVector(item.Embedding), item.ListingID); err != nil {
			failures = append(failures, fmt.Sprintf("listing_id %d: %v", item.ListingID, err))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		return 0, append(failures, fmt.Sprintf("failed to commit transaction: %v", err))
	}

	return success, failures
}

// buildPropertyWhere returns the WHERE clause, its args and the next free placeholder index
func buildPropertyWhere(filters *model.PropertyFilters) (string, []interface{}, int) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	if filters == nil {
		return strings.Join(whereClauses, " AND "), args, argIndex
	}

	if len(filters.PropertyTypes) > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("property_type ILIKE ANY($%d)", argIndex))
		args = append(args, pq.Array(filters.PropertyTypes))
		argIndex++
	}
	if len(filters.Locations) > 0 {
		patterns := make([]string, len(filters.Locations))
		for i, loc := range filters.Locations {
			patterns[i] = "%" + loc + "%"
		}
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(city ILIKE ANY($%[1]d) OR locality ILIKE ANY($%[1]d) OR address ILIKE ANY($%[1]d))", argIndex))
		args = append(args, pq.Array(patterns))
		argIndex++
	}
	if filters.Bedrooms != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("bedrooms = $%d", argIndex))
		args = append(args, *filters.Bedrooms)
		argIndex++
	}
	if filters.BathroomsMin != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("bathrooms >= $%d", argIndex))
		args = append(args, *filters.BathroomsMin)
		argIndex++
	}
	if filters.PriceMin != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("price >= $%d", argIndex))
		args = append(args, *filters.PriceMin)
		argIndex++
	}
	if filters.PriceMax != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("price <= $%d", argIndex))
		args = append(args, *filters.PriceMax)
		argIndex++
	}
	if filters.Currency != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("currency = $%d", argIndex))
		args = append(args, filters.Currency)
		argIndex++
	}
	if len(filters.Amenities) > 0 {
		amenityConds, amenityParams, newIndex := utils.BuildFuzzyAmenityQuery(filters.Amenities, argIndex)
		whereClauses = append(whereClauses, amenityConds...)
		args = append(args, amenityParams...)
		argIndex = newIndex
	}

	return strings.Join(whereClauses, " AND "), args, argIndex
}

package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"dealscout/internal/model"
)

// Postgres serves property searches from a local properties table, used
// for self-hosted data sets imported from public records.
type Postgres struct {
	db  *sqlx.DB
	log *zap.Logger
}

// NewPostgres connects to the database and verifies the connection.
func NewPostgres(dsn string, maxConn, maxIdleConn int, log *zap.Logger) (*Postgres, error) {
	// Disable prepared statement caching to avoid "unnamed prepared
	// statement does not exist" errors behind connection poolers
	if !strings.Contains(dsn, "?") {
		dsn += "?prefer_simple_protocol=true"
	} else {
		dsn += "&prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}
	return &Postgres{db: db, log: log}, nil
}

// Close closes the database connection
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) Name() string { return "postgres" }

// Search runs a filtered query built from the criteria.
func (p *Postgres) Search(ctx context.Context, criteria model.SearchCriteria) ([]model.Property, error) {
	query, args := buildSearchQuery(criteria)

	var props []model.Property
	if err := p.db.SelectContext(ctx, &props, query, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch properties: %w", err)
	}

	p.log.Debug("postgres search finished", zap.Int("results", len(props)))
	return props, nil
}

// buildSearchQuery maps criteria to SQL. Absent criteria fields produce
// no clause at all, so a zero bound is never invented.
func buildSearchQuery(criteria model.SearchCriteria) (string, []interface{}) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	if len(criteria.ZipCodes) > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("zip_code = ANY($%d)", argIndex))
		args = append(args, pq.Array(criteria.ZipCodes))
		argIndex++
	} else if criteria.City != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("city ILIKE $%d", argIndex))
		args = append(args, criteria.City)
		argIndex++
		if criteria.State != "" {
			whereClauses = append(whereClauses, fmt.Sprintf("state = $%d", argIndex))
			args = append(args, strings.ToUpper(criteria.State))
			argIndex++
		}
	}

	if criteria.MinPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("market_value >= $%d", argIndex))
		args = append(args, *criteria.MinPrice)
		argIndex++
	}
	if criteria.MaxPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("market_value <= $%d", argIndex))
		args = append(args, *criteria.MaxPrice)
		argIndex++
	}
	if criteria.MinBeds != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("bedrooms >= $%d", argIndex))
		args = append(args, *criteria.MinBeds)
		argIndex++
	}
	if criteria.MaxBeds != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("bedrooms <= $%d", argIndex))
		args = append(args, *criteria.MaxBeds)
		argIndex++
	}
	if criteria.MinBaths != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("bathrooms >= $%d", argIndex))
		args = append(args, *criteria.MinBaths)
		argIndex++
	}
	if criteria.MaxBaths != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("bathrooms <= $%d", argIndex))
		args = append(args, *criteria.MaxBaths)
		argIndex++
	}
	if criteria.MinSquareFeet != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("square_feet >= $%d", argIndex))
		args = append(args, *criteria.MinSquareFeet)
		argIndex++
	}
	if criteria.MaxSquareFeet != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("square_feet <= $%d", argIndex))
		args = append(args, *criteria.MaxSquareFeet)
		argIndex++
	}
	if patterns := typePatterns(criteria.PropertyTypes); len(patterns) > 0 {
		likes := make([]string, len(patterns))
		for i, pat := range patterns {
			likes[i] = fmt.Sprintf("property_type ILIKE $%d", argIndex)
			args = append(args, "%"+pat+"%")
			argIndex++
		}
		whereClauses = append(whereClauses, "("+strings.Join(likes, " OR ")+")")
	}

	limit := criteria.MaxResults
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT
			id, address, city, state, zip_code, property_type, bedrooms,
			bathrooms, square_feet, lot_size, year_built, market_value,
			assessed_value, third_party_estimate, last_sale_price,
			last_sale_date, property_taxes, rent_estimate
		FROM properties
		WHERE %s
		ORDER BY market_value DESC NULLS LAST
		LIMIT $%d
	`, strings.Join(whereClauses, " AND "), argIndex)
	args = append(args, limit)

	return query, args
}

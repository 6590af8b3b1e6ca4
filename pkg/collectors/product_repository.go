package collectors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yair/merchpulse/pkg/domain"
)

type ProductRepository struct {
	conn
}

const productColumns = `id, title, product_url, external_id, platform, price, original_price, sold_count,
	rating, review_count, seller_name, seller_location, category, related_artist, related_event,
	search_term, image_url, first_seen_at, last_scraped_at`

func (r *ProductRepository) Create(ctx context.Context, product *domain.MarketplaceProduct) error {
	if product == nil {
		return fmt.Errorf("product cannot be nil")
	}
	if product.ProductURL == "" {
		return domain.ValidationError{Field: "product_url", Message: "is required"}
	}

	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	product.FirstSeenAt = now
	product.LastScrapedAt = now

	query := `
	INSERT INTO marketplace_products (` + productColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT DO NOTHING
	`

	res, err := r.exec(ctx, query,
		product.ID,
		product.Title,
		product.ProductURL,
		nullString(product.ExternalID),
		product.Platform,
		product.Price,
		nullFloat(product.OriginalPrice),
		product.SoldCount,
		nullFloat(product.Rating),
		product.ReviewCount,
		nullString(product.SellerName),
		nullString(product.SellerLocation),
		nullString(product.Category),
		nullString(product.RelatedArtist),
		nullString(product.RelatedEvent),
		nullString(product.SearchTerm),
		nullString(product.ImageURL),
		product.FirstSeenAt,
		product.LastScrapedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateProduct
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	ok, err := inserted(res)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	if !ok {
		return domain.ErrDuplicateProduct
	}
	return nil
}

func (r *ProductRepository) GetByExternalID(ctx context.Context, externalID, platform string) (*domain.MarketplaceProduct, error) {
	if externalID == "" {
		return nil, domain.ErrProductNotFound
	}
	query := `SELECT ` + productColumns + ` FROM marketplace_products WHERE external_id = ? AND platform = ? LIMIT 1`
	return r.get(ctx, query, externalID, platform)
}

func (r *ProductRepository) GetByURL(ctx context.Context, productURL string) (*domain.MarketplaceProduct, error) {
	if productURL == "" {
		return nil, domain.ErrProductNotFound
	}
	query := `SELECT ` + productColumns + ` FROM marketplace_products WHERE product_url = ?`
	return r.get(ctx, query, productURL)
}

func (r *ProductRepository) get(ctx context.Context, query string, args ...any) (*domain.MarketplaceProduct, error) {
	product, err := scanProduct(r.queryRow(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// UpdateMetrics refreshes the mutable marketplace metrics of an existing listing.
func (r *ProductRepository) UpdateMetrics(ctx context.Context, product *domain.MarketplaceProduct) error {
	if product == nil {
		return fmt.Errorf("product cannot be nil")
	}
	product.LastScrapedAt = time.Now().UTC()

	query := `
	UPDATE marketplace_products
	SET price = ?, original_price = ?, sold_count = ?, rating = ?, review_count = ?,
		image_url = ?, last_scraped_at = ?
	WHERE id = ?
	`

	res, err := r.exec(ctx, query,
		product.Price,
		nullFloat(product.OriginalPrice),
		product.SoldCount,
		nullFloat(product.Rating),
		product.ReviewCount,
		nullString(product.ImageURL),
		product.LastScrapedAt,
		product.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.MarketplaceProduct, int, error) {
	var where []string
	var args []any

	if filter.Platform != "" {
		where = append(where, "platform = ?")
		args = append(args, filter.Platform)
	}
	if filter.RelatedArtist != "" {
		where = append(where, "LOWER(related_artist) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.RelatedArtist)+"%")
	}
	if filter.Category != "" {
		where = append(where, "LOWER(category) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.Category)+"%")
	}
	if filter.Search != "" {
		where = append(where, "LOWER(title) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.MinPrice != nil {
		where = append(where, "price >= ?")
		args = append(args, *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		where = append(where, "price <= ?")
		args = append(args, *filter.MaxPrice)
	}
	if filter.MinSold != nil {
		where = append(where, "sold_count >= ?")
		args = append(args, *filter.MinSold)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.queryRow(ctx, `SELECT COUNT(*) FROM marketplace_products`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	order := "sold_count DESC"
	switch filter.SortBy {
	case "price_asc":
		order = "price ASC"
	case "price_desc":
		order = "price DESC"
	case "rating":
		order = "CASE WHEN rating IS NULL THEN 1 ELSE 0 END, rating DESC"
	}

	page, pageSize := pagination(filter.Page, filter.PageSize, 30)
	query := `SELECT ` + productColumns + ` FROM marketplace_products` + clause +
		` ORDER BY ` + order + `, id LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	products, err := r.list(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *ProductRepository) All(ctx context.Context) ([]domain.MarketplaceProduct, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM marketplace_products ORDER BY sold_count DESC, id`)
}

func (r *ProductRepository) list(ctx context.Context, query string, args ...any) ([]domain.MarketplaceProduct, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []domain.MarketplaceProduct
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

func scanProduct(row rowScanner) (*domain.MarketplaceProduct, error) {
	var p domain.MarketplaceProduct
	var (
		externalID, sellerName, sellerLocation, category sql.NullString
		relatedArtist, relatedEvent, searchTerm, imageURL sql.NullString
		originalPrice, rating                             sql.NullFloat64
	)

	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.ProductURL,
		&externalID,
		&p.Platform,
		&p.Price,
		&originalPrice,
		&p.SoldCount,
		&rating,
		&p.ReviewCount,
		&sellerName,
		&sellerLocation,
		&category,
		&relatedArtist,
		&relatedEvent,
		&searchTerm,
		&imageURL,
		&p.FirstSeenAt,
		&p.LastScrapedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ExternalID = externalID.String
	p.OriginalPrice = floatPtr(originalPrice)
	p.Rating = floatPtr(rating)
	p.SellerName = sellerName.String
	p.SellerLocation = sellerLocation.String
	p.Category = category.String
	p.RelatedArtist = relatedArtist.String
	p.RelatedEvent = relatedEvent.String
	p.SearchTerm = searchTerm.String
	p.ImageURL = imageURL.String
	return &p, nil
}

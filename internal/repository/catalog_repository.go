package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/iliyamo/loyalty-rewards/internal/model"
	"github.com/iliyamo/loyalty-rewards/internal/tier"
)

// CatalogRepo lists the public, non user-specific tables: deals, rewards
// and stores.  Only active rows are ever returned.
type CatalogRepo struct{ DB *sql.DB }

func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{DB: db} }

// ActiveDeals returns active deals that have not expired, newest first.
func (r *CatalogRepo) ActiveDeals(ctx context.Context) ([]model.Deal, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, title, description, category, discount_value, image_url, is_active,
		 is_member_only, min_points, min_tier, valid_from, valid_until, created_at
		 FROM deals WHERE is_active=TRUE AND valid_until > UTC_TIMESTAMP()
		 ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Deal{}
	for rows.Next() {
		var (
			d                 model.Deal
			desc, img, minTie sql.NullString
			minPoints         sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &d.Title, &desc, &d.Category, &d.DiscountValue, &img, &d.IsActive,
			&d.IsMemberOnly, &minPoints, &minTie, &d.ValidFrom, &d.ValidUntil, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Description = strPtr(desc)
		d.ImageURL = strPtr(img)
		d.MinPoints = int64Ptr(minPoints)
		d.MinTier = tierPtr(minTie)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ActiveRewards returns active rewards, cheapest first.
func (r *CatalogRepo) ActiveRewards(ctx context.Context) ([]model.Reward, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, title, description, category, image_url, points_cost, min_tier,
		 stock_quantity, is_active, created_at
		 FROM rewards WHERE is_active=TRUE ORDER BY points_cost ASC, title ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Reward{}
	for rows.Next() {
		var (
			rw                 model.Reward
			desc, img, minTier sql.NullString
			stock              sql.NullInt64
		)
		if err := rows.Scan(&rw.ID, &rw.Title, &desc, &rw.Category, &img, &rw.PointsCost, &minTier,
			&stock, &rw.IsActive, &rw.CreatedAt); err != nil {
			return nil, err
		}
		rw.Description = strPtr(desc)
		rw.ImageURL = strPtr(img)
		rw.MinTier = tierPtr(minTier)
		if stock.Valid {
			n := int(stock.Int64)
			rw.StockQuantity = &n
		}
		out = append(out, rw)
	}
	return out, rows.Err()
}

// ActiveStores returns active stores ordered by name.
func (r *CatalogRepo) ActiveStores(ctx context.Context) ([]model.Store, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name, address, city, province, postal_code, phone, latitude, longitude,
		 opening_hours, is_active
		 FROM stores WHERE is_active=TRUE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Store{}
	for rows.Next() {
		var (
			s             model.Store
			postal, phone sql.NullString
			lat, lng      sql.NullFloat64
			hours         []byte
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Address, &s.City, &s.Province, &postal, &phone,
			&lat, &lng, &hours, &s.IsActive); err != nil {
			return nil, err
		}
		s.PostalCode = strPtr(postal)
		s.Phone = strPtr(phone)
		s.Latitude = floatPtr(lat)
		s.Longitude = floatPtr(lng)
		if len(hours) > 0 {
			s.OpeningHours = json.RawMessage(hours)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func tierPtr(ns sql.NullString) *tier.Tier {
	if !ns.Valid {
		return nil
	}
	t := tier.Parse(ns.String)
	return &t
}

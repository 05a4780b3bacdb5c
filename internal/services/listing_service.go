package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bybo/bybo-be/internal/database"
	apperrors "github.com/bybo/bybo-be/internal/errors"
	"github.com/bybo/bybo-be/internal/models"
	"github.com/bybo/bybo-be/internal/storage"
	"github.com/google/uuid"
	"github.com/karlseguin/ccache/v3"
)

// ErrListingNotFound is returned when a listing id does not resolve.
var ErrListingNotFound = apperrors.NotFound("listing not found")

// ListingReader is the read side of the catalog used by the booking core.
type ListingReader interface {
	GetListing(ctx context.Context, id string) (models.Listing, error)
}

// ListingServiceProvider defines the interface for listing services.
type ListingServiceProvider interface {
	ListingReader
	CreateListing(ctx context.Context, ownerID string, in ListingInput, photo []byte) (models.Listing, error)
	ListListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error)
	DeleteListing(ctx context.Context, id, requesterID string) error
}

// ListingInput carries the descriptive attributes of a new listing.
type ListingInput struct {
	Name        string
	Description string
	Location    string
	Size        string
	Price       int
	HasPool     bool
	IsFenced    bool
	HasBarbecue bool
	PhotoURL    string // Used when no photo bytes are uploaded
}

// ListingService manages listing records. Reads go through a short-lived cache.
type ListingService struct {
	db       *sql.DB
	files    storage.FileStore
	cache    *ccache.Cache[models.Listing]
	cacheTTL time.Duration
}

// NewListingService creates a new ListingService.
func NewListingService(db *sql.DB, files storage.FileStore, cacheTTL time.Duration) *ListingService {
	return &ListingService{
		db:       db,
		files:    files,
		cache:    ccache.New(ccache.Configure[models.Listing]().MaxSize(1000)),
		cacheTTL: cacheTTL,
	}
}

// Stop releases the cache worker.
func (s *ListingService) Stop() {
	s.cache.Stop()
}

const listingColumns = `id, user_id, name, description, location, size, photo, price,
	has_pool, is_fenced, has_barbecue, created_at`

func scanListing(row interface{ Scan(...any) error }) (models.Listing, error) {
	var (
		l         models.Listing
		createdAt database.Timestamp
	)
	err := row.Scan(&l.ID, &l.OwnerID, &l.Name, &l.Description, &l.Location, &l.Size, &l.Photo,
		&l.Price, &l.HasPool, &l.IsFenced, &l.HasBarbecue, &createdAt)
	if err != nil {
		return models.Listing{}, err
	}
	l.CreatedAt = createdAt.Time
	return l, nil
}

// CreateListing stores the photo (if any) and inserts the listing.
func (s *ListingService) CreateListing(ctx context.Context, ownerID string, in ListingInput, photo []byte) (models.Listing, error) {
	photoURL := in.PhotoURL
	if len(photo) > 0 {
		url, err := s.files.Store(ctx, photo)
		if err != nil {
			if errors.Is(err, storage.ErrUnsupportedType) {
				return models.Listing{}, apperrors.Validation("photo must be a JPEG, PNG, WebP or GIF image")
			}
			return models.Listing{}, fmt.Errorf("store photo: %w", err)
		}
		photoURL = url
	}

	l := models.Listing{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Name:        in.Name,
		Description: in.Description,
		Location:    in.Location,
		Size:        in.Size,
		Photo:       photoURL,
		Price:       in.Price,
		HasPool:     in.HasPool,
		IsFenced:    in.IsFenced,
		HasBarbecue: in.HasBarbecue,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO listings (`+listingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.OwnerID, l.Name, l.Description, l.Location, l.Size, l.Photo, l.Price,
		l.HasPool, l.IsFenced, l.HasBarbecue, database.FormatTime(l.CreatedAt))
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return models.Listing{}, apperrors.NotFound("owner not found")
		}
		return models.Listing{}, fmt.Errorf("insert listing: %w", err)
	}
	return l, nil
}

// GetListing retrieves a listing by id, consulting the cache first.
func (s *ListingService) GetListing(ctx context.Context, id string) (models.Listing, error) {
	if item := s.cache.Get(id); item != nil && !item.Expired() {
		return item.Value(), nil
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id)
	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Listing{}, ErrListingNotFound
		}
		return models.Listing{}, fmt.Errorf("get listing: %w", err)
	}

	s.cache.Set(id, l, s.cacheTTL)
	return l, nil
}

// ListListings returns listings matching every non-empty filter field exactly.
func (s *ListingService) ListListings(ctx context.Context, filter models.ListingFilter) ([]models.Listing, error) {
	var (
		where []string
		args  []any
	)
	if filter.OwnerID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.Location != "" {
		where = append(where, "location = ?")
		args = append(args, filter.Location)
	}
	if filter.Size != "" {
		where = append(where, "size = ?")
		args = append(args, filter.Size)
	}

	query := `SELECT ` + listingColumns + ` FROM listings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	listings := []models.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// DeleteListing removes a listing owned by requesterID. Its bookings go with it.
func (s *ListingService) DeleteListing(ctx context.Context, id, requesterID string) error {
	l, err := s.GetListing(ctx, id)
	if err != nil {
		return err
	}
	if l.OwnerID != requesterID {
		return apperrors.Forbidden("only the owner can delete this listing")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM listings WHERE id = ? AND user_id = ?`, id, requesterID)
	s.cache.Delete(id)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrListingNotFound
	}
	return nil
}

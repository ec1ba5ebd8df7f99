package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// AnnouncementRepository encapsulates announcement persistence. Read
// receipts live in their own table keyed by (announcement, reader), so
// marking read is an idempotent insert rather than an array rewrite.
type AnnouncementRepository interface {
	Create(ctx context.Context, announcement *domain.Announcement) error
	GetByID(ctx context.Context, id string) (*domain.Announcement, error)
	List(ctx context.Context) ([]domain.Announcement, error)
	MarkRead(ctx context.Context, announcementID, readerID string) (bool, error)
	CountUnread(ctx context.Context, viewerID string) (int, error)
}

type announcementRepository struct {
	pool *pgxpool.Pool
}

// NewAnnouncementRepository instantiates the repository.
func NewAnnouncementRepository(pool *pgxpool.Pool) AnnouncementRepository {
	return &announcementRepository{pool: pool}
}

func (r *announcementRepository) Create(ctx context.Context, announcement *domain.Announcement) error {
	const query = `
        INSERT INTO announcements (title, description, created_by)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		announcement.Title,
		announcement.Description,
		announcement.CreatedBy,
	).Scan(&announcement.ID, &announcement.CreatedAt)
}

func (r *announcementRepository) GetByID(ctx context.Context, id string) (*domain.Announcement, error) {
	const query = `
        SELECT a.id, a.title, a.description, a.created_by, a.created_at,
               COALESCE(ARRAY_AGG(ar.reader_id) FILTER (WHERE ar.reader_id IS NOT NULL), '{}') AS read_by
        FROM announcements a
        LEFT JOIN announcement_reads ar ON ar.announcement_id = a.id
        WHERE a.id=$1
        GROUP BY a.id`

	var announcement domain.Announcement
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&announcement.ID,
		&announcement.Title,
		&announcement.Description,
		&announcement.CreatedBy,
		&announcement.CreatedAt,
		&announcement.ReadBy,
	); err != nil {
		return nil, err
	}
	return &announcement, nil
}

func (r *announcementRepository) List(ctx context.Context) ([]domain.Announcement, error) {
	const query = `
        SELECT a.id, a.title, a.description, a.created_by, a.created_at,
               COALESCE(ARRAY_AGG(ar.reader_id) FILTER (WHERE ar.reader_id IS NOT NULL), '{}') AS read_by
        FROM announcements a
        LEFT JOIN announcement_reads ar ON ar.announcement_id = a.id
        GROUP BY a.id
        ORDER BY a.created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Announcement
	for rows.Next() {
		var announcement domain.Announcement
		if err := rows.Scan(
			&announcement.ID,
			&announcement.Title,
			&announcement.Description,
			&announcement.CreatedBy,
			&announcement.CreatedAt,
			&announcement.ReadBy,
		); err != nil {
			return nil, err
		}
		result = append(result, announcement)
	}
	return result, rows.Err()
}

// MarkRead records the receipt, reporting whether a new row was inserted.
func (r *announcementRepository) MarkRead(ctx context.Context, announcementID, readerID string) (bool, error) {
	const query = `
        INSERT INTO announcement_reads (announcement_id, reader_id)
        VALUES ($1,$2)
        ON CONFLICT (announcement_id, reader_id) DO NOTHING`
	cmd, err := r.pool.Exec(ctx, query, announcementID, readerID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *announcementRepository) CountUnread(ctx context.Context, viewerID string) (int, error) {
	const query = `
        SELECT COUNT(*)
        FROM announcements a
        WHERE NOT EXISTS (
            SELECT 1 FROM announcement_reads ar
            WHERE ar.announcement_id = a.id AND ar.reader_id = $1
        )`
	var count int
	if err := r.pool.QueryRow(ctx, query, viewerID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

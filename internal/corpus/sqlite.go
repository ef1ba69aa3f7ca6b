package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/ppiankov/openplag/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const pageSize = 100

type documentRow struct {
	ID          string `gorm:"primaryKey"`
	Name        string
	Filename    string
	RawText     string
	ContentHash string    `gorm:"uniqueIndex"`
	CreatedAt   time.Time `gorm:"index"`
}

func (documentRow) TableName() string { return "documents" }

type segmentRow struct {
	DocumentID string `gorm:"primaryKey"`
	Position   int    `gorm:"primaryKey;autoIncrement:false"`
	Text       string
	Embedding  []byte
}

func (segmentRow) TableName() string { return "segments" }

// SQLiteStore keeps the corpus in a single SQLite file. Segments live in
// their own table so embeddings can be streamed without decoding whole
// documents.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (and migrates) the corpus database at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if !strings.Contains(path, "?") {
		// WAL lets readers proceed while a submission is being written
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.AutoMigrate(&documentRow{}, &segmentRow{}); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// ContentHash is the dedup key for raw submission text
func ContentHash(rawText string) string {
	sum := sha256.Sum256([]byte(rawText))
	return hex.EncodeToString(sum[:])
}

// Store appends doc and its segments in one transaction
func (s *SQLiteStore) Store(ctx context.Context, doc *model.Document) (string, error) {
	hash := ContentHash(doc.RawText)
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing documentRow
		err := tx.Select("id").Where("content_hash = ? OR id = ?", hash, doc.ID).Take(&existing).Error
		if err == nil {
			id = existing.ID
			return model.ErrAlreadyArchived
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		row := documentRow{
			ID:          doc.ID,
			Name:        doc.Name,
			Filename:    doc.Filename,
			RawText:     doc.RawText,
			ContentHash: hash,
			CreatedAt:   createdAt.UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		if len(doc.Segments) > 0 {
			rows := make([]segmentRow, len(doc.Segments))
			for i, seg := range doc.Segments {
				rows[i] = segmentRow{
					DocumentID: doc.ID,
					Position:   seg.Position,
					Text:       seg.Text,
					Embedding:  EncodeVector(seg.Embedding),
				}
			}
			if err := tx.CreateInBatches(rows, pageSize).Error; err != nil {
				return err
			}
		}

		id = doc.ID
		return nil
	})
	if errors.Is(err, model.ErrAlreadyArchived) {
		return id, err
	}
	if err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}
	return id, nil
}

// Get returns one document with its segments
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Document, error) {
	var row documentRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	segs, err := s.Segments(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDocument(row, segs), nil
}

// QueryAll pages through documents oldest first. New submissions always
// sort last, so offset paging stays stable while the corpus grows.
func (s *SQLiteStore) QueryAll(ctx context.Context) iter.Seq2[*model.Document, error] {
	return func(yield func(*model.Document, error) bool) {
		for offset := 0; ; offset += pageSize {
			var rows []documentRow
			err := s.db.WithContext(ctx).
				Order("created_at, id").
				Limit(pageSize).
				Offset(offset).
				Find(&rows).Error
			if err != nil {
				yield(nil, fmt.Errorf("query documents: %w", err))
				return
			}

			for _, row := range rows {
				segs, err := s.Segments(ctx, row.ID)
				if err != nil {
					yield(nil, err)
					return
				}
				if !yield(toDocument(row, segs), nil) {
					return
				}
			}

			if len(rows) < pageSize {
				return
			}
		}
	}
}

// Segments returns the segments of one document in position order
func (s *SQLiteStore) Segments(ctx context.Context, id string) ([]model.Segment, error) {
	var rows []segmentRow
	if err := s.db.WithContext(ctx).Where("document_id = ?", id).Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}

	segs := make([]model.Segment, len(rows))
	for i, row := range rows {
		segs[i] = model.Segment{
			Position:  row.Position,
			Text:      row.Text,
			Embedding: DecodeVector(row.Embedding),
		}
	}
	return segs, nil
}

// Embeddings streams embedded segments with one cursor
func (s *SQLiteStore) Embeddings(ctx context.Context) iter.Seq2[SegmentRecord, error] {
	return func(yield func(SegmentRecord, error) bool) {
		rows, err := s.db.WithContext(ctx).
			Table("segments").
			Select("segments.document_id, segments.position, segments.embedding, documents.created_at").
			Joins("JOIN documents ON documents.id = segments.document_id").
			Where("segments.embedding IS NOT NULL").
			Order("documents.created_at, segments.document_id, segments.position").
			Rows()
		if err != nil {
			yield(SegmentRecord{}, fmt.Errorf("query embeddings: %w", err))
			return
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var (
				rec  SegmentRecord
				blob []byte
			)
			if err := rows.Scan(&rec.DocumentID, &rec.Position, &blob, &rec.CreatedAt); err != nil {
				yield(SegmentRecord{}, fmt.Errorf("scan embedding: %w", err))
				return
			}
			rec.Embedding = DecodeVector(blob)
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(SegmentRecord{}, fmt.Errorf("iterate embeddings: %w", err))
		}
	}
}

// Count returns the number of stored documents
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&documentRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Clear deletes every document and segment
func (s *SQLiteStore) Clear(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&segmentRow{}).Error; err != nil {
			return fmt.Errorf("clear segments: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&documentRow{}).Error; err != nil {
			return fmt.Errorf("clear documents: %w", err)
		}
		return nil
	})
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toDocument(row documentRow, segs []model.Segment) *model.Document {
	return &model.Document{
		ID:        row.ID,
		Name:      row.Name,
		Filename:  row.Filename,
		RawText:   row.RawText,
		Segments:  segs,
		Label:     model.LabelLocal,
		CreatedAt: row.CreatedAt,
	}
}

package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/affiliateops/internal/signup/domain"
	pkgdb "github.com/wyfcoding/affiliateops/pkg/db"
	"gorm.io/gorm"
)

type noteRepository struct {
	db *gorm.DB
}

// NewNoteRepository 创建备注仓储
func NewNoteRepository(db *gorm.DB) domain.NoteRepository {
	return &noteRepository{db: db}
}

func (r *noteRepository) Save(ctx context.Context, note *domain.Note) error {
	db := pkgdb.Conn(ctx, r.db)
	if note.ID == 0 {
		model := toNoteModel(note)
		if err := db.Create(model).Error; err != nil {
			return err
		}
		note.ID = model.ID
		note.CreatedAt = model.CreatedAt
		note.UpdatedAt = model.UpdatedAt
		return nil
	}
	result := db.Model(&NoteModel{}).Where("id = ?", note.ID).Updates(map[string]any{
		"content":    note.Content,
		"updated_at": note.UpdatedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNoteNotFound
	}
	return nil
}

func (r *noteRepository) Get(ctx context.Context, id uint) (*domain.Note, error) {
	var model NoteModel
	if err := pkgdb.Conn(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoteNotFound
		}
		return nil, err
	}
	return toNote(&model), nil
}

func (r *noteRepository) ListBySignup(ctx context.Context, signupID string) ([]*domain.Note, error) {
	var models []*NoteModel
	if err := pkgdb.Conn(ctx, r.db).Where("signup_id = ?", signupID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	notes := make([]*domain.Note, len(models))
	for i, m := range models {
		notes[i] = toNote(m)
	}
	return notes, nil
}

func (r *noteRepository) Delete(ctx context.Context, id uint) error {
	result := pkgdb.Conn(ctx, r.db).Delete(&NoteModel{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNoteNotFound
	}
	return nil
}

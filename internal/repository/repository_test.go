package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"examgen/internal/model"
	"examgen/internal/platform/migration"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	_, err = migration.Run(context.Background(), db, migration.All(), nil)
	require.NoError(t, err)
	return db
}

func newQuestion(text string) *model.Question {
	return &model.Question{
		Version:       1,
		Question:      text,
		Options:       []string{"A", "B", "C", "D"},
		CorrectAnswer: "A",
		Sources:       []model.Source{{Source: "guide.pdf", Page: 2}},
		DocumentUsed:  "guide.pdf",
	}
}

func TestMigrationsApplyOnce(t *testing.T) {
	db := newTestDB(t)

	n, err := migration.Run(context.Background(), db, migration.All(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	var applied int64
	require.NoError(t, db.Model(&migration.SchemaMigration{}).Count(&applied).Error)
	assert.Equal(t, int64(len(migration.All())), applied)
	assert.True(t, db.Migrator().HasColumn(&model.QuestionRecord{}, "reviewed_by"))
}

func TestQuestionRepository_CreateStartsLineage(t *testing.T) {
	repo := NewQuestionRepository(newTestDB(t))

	root := newQuestion("first")
	require.NoError(t, repo.Create(root))
	require.NotZero(t, root.ID)
	assert.Equal(t, root.ID, root.RootID)

	stored, err := repo.GetByID(root.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, root.ID, stored.RootID)
	assert.Equal(t, []string{"A", "B", "C", "D"}, stored.Options)
	assert.Equal(t, []model.Source{{Source: "guide.pdf", Page: 2}}, stored.Sources)

	next := newQuestion("second")
	next.RootID = root.ID
	next.Version = 2
	require.NoError(t, repo.Create(next))
	assert.NotEqual(t, root.ID, next.ID)
	assert.Equal(t, root.ID, next.RootID)
}

func TestQuestionRepository_MaxVersion(t *testing.T) {
	repo := NewQuestionRepository(newTestDB(t))

	root := newQuestion("v1")
	require.NoError(t, repo.Create(root))
	for v := 2; v <= 3; v++ {
		q := newQuestion("next")
		q.RootID = root.ID
		q.Version = v
		require.NoError(t, repo.Create(q))
	}
	other := newQuestion("unrelated")
	require.NoError(t, repo.Create(other))

	tests := []struct {
		name   string
		rootID uint
		want   int
	}{
		{name: "lineage with versions", rootID: root.ID, want: 3},
		{name: "single question", rootID: other.ID, want: 1},
		{name: "unknown lineage", rootID: 999, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.MaxVersion(tt.rootID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuestionRepository_ListNewestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewQuestionRepository(db)

	var ids []uint
	for _, text := range []string{"a", "b", "c"} {
		q := newQuestion(text)
		require.NoError(t, repo.Create(q))
		ids = append(ids, q.ID)
	}
	// Same timestamp for all rows: ties fall back to id order.
	same := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Model(&model.QuestionRecord{}).Where("1 = 1").Update("created_at", same).Error)

	page, total, err := repo.List(0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)

	rest, _, err := repo.List(2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, ids[0], rest[0].ID)
}

func TestQuestionRepository_GetMissing(t *testing.T) {
	repo := NewQuestionRepository(newTestDB(t))

	got, err := repo.GetByID(42)

	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestQuestionRepository_UpdateReview(t *testing.T) {
	repo := NewQuestionRepository(newTestDB(t))
	q := newQuestion("rate me")
	require.NoError(t, repo.Create(q))

	rating := 5
	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateReview(q.ID, model.Review{
		Rating: &rating, AdminComments: "good", Approved: true, ReviewedBy: 7, ReviewedAt: &at,
	}))

	got, err := repo.GetByID(q.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Review.Rating)
	assert.Equal(t, 5, *got.Review.Rating)
	assert.Equal(t, "good", got.Review.AdminComments)
	assert.True(t, got.Review.Approved)
	assert.Equal(t, uint(7), got.Review.ReviewedBy)
	require.NotNil(t, got.Review.ReviewedAt)
	assert.True(t, at.Equal(*got.Review.ReviewedAt))

	n, err := repo.CountReviewedBy(7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = repo.CountReviewedBy(8)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQuestionRepository_UpdateEvaluation(t *testing.T) {
	repo := NewQuestionRepository(newTestDB(t))
	q := newQuestion("score me")
	require.NoError(t, repo.Create(q))

	eval := model.NeutralEvaluation()
	eval.OverallScore = 82
	require.NoError(t, repo.UpdateEvaluation(q.ID, eval))

	got, err := repo.GetByID(q.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Evaluation)
	assert.Equal(t, 82, got.Evaluation.OverallScore)

	require.NoError(t, repo.UpdateEvaluation(q.ID, nil))
	got, err = repo.GetByID(q.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Evaluation)
}

func TestDocumentStateRepository_SaveUpserts(t *testing.T) {
	repo := NewDocumentStateRepository(newTestDB(t))

	require.NoError(t, repo.Save(&model.DocumentState{Name: "b.pdf", Error: "boom"}))
	require.NoError(t, repo.Save(&model.DocumentState{Name: "a.pdf", Processed: true, Enabled: true, ChunkCount: 4}))
	require.NoError(t, repo.Save(&model.DocumentState{Name: "b.pdf", Processed: true, Enabled: true, ContentHash: "h", ChunkCount: 9}))

	got, err := repo.Get("b.pdf")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Ready())
	assert.Empty(t, got.Error)
	assert.Equal(t, "h", got.ContentHash)
	assert.Equal(t, 9, got.ChunkCount)

	list, err := repo.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.pdf", list[0].Name)
	assert.Equal(t, "b.pdf", list[1].Name)

	missing, err := repo.Get("nope.pdf")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestReviewerRepository_Lookups(t *testing.T) {
	repo := NewReviewerRepository(newTestDB(t))
	r := &model.Reviewer{Username: "ada", Email: "ada@example.com", PasswordHash: "x"}
	require.NoError(t, repo.Create(r))
	require.NotZero(t, r.ID)

	dup := &model.Reviewer{Username: "ada", Email: "other@example.com", PasswordHash: "x"}
	assert.Error(t, repo.Create(dup))

	tests := []struct {
		name   string
		lookup func() (*model.Reviewer, error)
		found  bool
	}{
		{name: "by username", lookup: func() (*model.Reviewer, error) { return repo.GetByUsername("ada") }, found: true},
		{name: "by email", lookup: func() (*model.Reviewer, error) { return repo.GetByEmail("ada@example.com") }, found: true},
		{name: "by id", lookup: func() (*model.Reviewer, error) { return repo.GetByID(r.ID) }, found: true},
		{name: "unknown username", lookup: func() (*model.Reviewer, error) { return repo.GetByUsername("bob") }},
		{name: "unknown id", lookup: func() (*model.Reviewer, error) { return repo.GetByID(r.ID + 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.lookup()
			require.NoError(t, err)
			if !tt.found {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, r.ID, got.ID)
		})
	}
}

package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/acervo-digital/biblioteca-back/internal/db"
)

// newTestDB opens a sqlite database private to the calling test. The DSN is
// keyed by test name so pooled connections keep hitting the same in-memory
// store, and foreign keys are switched on to match what the postgres store
// enforces.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// sqlite allows a single writer; one pooled connection keeps concurrent
	// transactions from tripping over its lock.
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(gdb))

	return gdb
}

func newTestLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func seedUser(t *testing.T, gdb *gorm.DB, name, email string) *db.User {
	t.Helper()

	user := db.User{
		Name:         name,
		Email:        email,
		PasswordHash: "$2a$14$invalidhashinvalidhashinvalidhashinvalidhashinvalid1",
	}
	require.NoError(t, gdb.Create(&user).Error)
	return &user
}

func seedCategory(t *testing.T, gdb *gorm.DB, name string) *db.Category {
	t.Helper()

	category := db.Category{Name: name}
	require.NoError(t, gdb.Create(&category).Error)
	return &category
}

func seedBook(t *testing.T, gdb *gorm.DB, title, author string, categories ...db.Category) *db.Book {
	t.Helper()

	book := db.Book{
		Title:       title,
		Author:      author,
		Categories:  categories,
		IsAvailable: true,
	}
	require.NoError(t, gdb.Create(&book).Error)
	return &book
}

func seedTask(t *testing.T, gdb *gorm.DB, title string) *db.Task {
	t.Helper()

	task := db.Task{Title: title}
	require.NoError(t, gdb.Create(&task).Error)
	return &task
}

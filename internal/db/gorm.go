package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/acervo-digital/biblioteca-back/internal/config"
)

type (
	GormForkedModel struct {
		ID        uint64 `gorm:"primarykey"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	User struct {
		GormForkedModel
		Name          string `gorm:"not null"`
		Email         string `gorm:"unique;not null"`
		PasswordHash  string `gorm:"not null"`
		ProfileID     *uint64
		Profile       *Profile `gorm:"foreignKey:ProfileID"`
		BorrowedBooks []Book   `gorm:"foreignKey:BorrowedByID"`
	}

	Profile struct {
		GormForkedModel
		UserID  uint64 `gorm:"not null;uniqueIndex"`
		Bio     string `gorm:"size:500"`
		Picture string `gorm:"not null"`
	}

	Book struct {
		GormForkedModel
		Title        string     `gorm:"not null;uniqueIndex:uidx_title_author"`
		Author       string     `gorm:"not null;uniqueIndex:uidx_title_author"`
		Categories   []Category `gorm:"many2many:book_categories;"`
		BorrowedByID *uint64
		BorrowedBy   *User `gorm:"foreignKey:BorrowedByID"`
		IsAvailable  bool  `gorm:"not null;default:true"`
	}

	Category struct {
		GormForkedModel
		Name  string `gorm:"unique;not null"`
		Books []Book `gorm:"many2many:book_categories;"`
	}

	Product struct {
		GormForkedModel
		Name        string  `gorm:"not null"`
		Price       float64 `gorm:"not null"`
		Description *string
	}

	Person struct {
		GormForkedModel
		Name  string `gorm:"not null"`
		Email *string
	}

	Task struct {
		GormForkedModel
		Title    string    `gorm:"not null"`
		Finished bool      `gorm:"not null;default:false"`
		Projects []Project `gorm:"many2many:project_tasks;"`
	}

	Project struct {
		GormForkedModel
		Name        string `gorm:"not null"`
		Description string
		StartDate   time.Time
		EndDate     time.Time
		Tasks       []Task `gorm:"many2many:project_tasks;"`
	}
)

func NewGormClient(cfg *config.Config) (*gorm.DB, error) {
	newLogger := logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Info,
		Colorful:                  true,
		IgnoreRecordNotFoundError: false,
	})

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}); err != nil {
		return errors.Wrap(err, "migrate user")
	}
	if err := db.AutoMigrate(&Profile{}); err != nil {
		return errors.Wrap(err, "migrate profile")
	}
	if err := db.AutoMigrate(&Category{}); err != nil {
		return errors.Wrap(err, "migrate category")
	}
	if err := db.AutoMigrate(&Book{}); err != nil {
		return errors.Wrap(err, "migrate book")
	}
	if err := db.AutoMigrate(&Product{}); err != nil {
		return errors.Wrap(err, "migrate product")
	}
	if err := db.AutoMigrate(&Person{}); err != nil {
		return errors.Wrap(err, "migrate person")
	}
	if err := db.AutoMigrate(&Task{}); err != nil {
		return errors.Wrap(err, "migrate task")
	}
	if err := db.AutoMigrate(&Project{}); err != nil {
		return errors.Wrap(err, "migrate project")
	}
	return nil
}

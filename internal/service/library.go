package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/acervo-digital/biblioteca-back/internal/db"
)

var (
	titleRegexp        = regexp.MustCompile(`^[A-Za-zÀ-ÖØ-öø-ÿ0-9\s'".,!?-]+$`)
	authorRegexp       = regexp.MustCompile(`^[A-Za-zÀ-ÖØ-öø-ÿ\s'-]+$`)
	categoryNameRegexp = regexp.MustCompile(`^[A-Za-zÀ-ÖØ-öø-ÿ\s'-]+$`)
)

type Library struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewLibrary(gdb *gorm.DB, l *zap.SugaredLogger) *Library {
	return &Library{
		db:     gdb,
		logger: l,
	}
}

// CreateBook inserts the book and registers it with every referenced
// category in one transaction. Every unknown category name is reported, not
// just the first.
func (s *Library) CreateBook(title, author string, categoryNames []string) (*db.Book, error) {
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateAuthor(author); err != nil {
		return nil, err
	}
	if categoryNames == nil {
		return nil, Invalid("category list is invalid")
	}

	book := db.Book{
		Title:       title,
		Author:      author,
		IsAvailable: true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		cats, err := categoriesByName(tx, categoryNames)
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&db.Book{}).Where("title = ? AND author = ?", title, author).Count(&count).Error; err != nil {
			return errors.Wrap(err, "check book")
		}
		if count > 0 {
			return Conflict("this book already exists")
		}

		book.Categories = cats
		if err := tx.Create(&book).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return Conflict("this book already exists")
			}
			return errors.Wrap(err, "create book")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &book, nil
}

// ListBooks returns books, optionally narrowed to a category name and/or an
// availability state.
func (s *Library) ListBooks(category *string, available *bool) ([]db.Book, error) {
	q := squirrel.Select("b.id").From("books b").OrderBy("b.id")
	if category != nil {
		q = q.Join("book_categories bc ON b.id = bc.book_id").
			Join("categories c ON c.id = bc.category_id").
			Where(squirrel.Eq{"c.name": *category})
	}
	if available != nil {
		q = q.Where(squirrel.Eq{"b.is_available": *available})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}

	ids := make([]uint64, 0)
	if err := s.db.Raw(sql, args...).Scan(&ids).Error; err != nil {
		return nil, errors.Wrap(err, "scan ids")
	}

	books := make([]db.Book, 0)
	if len(ids) == 0 {
		return books, nil
	}
	if err := s.db.Preload("Categories").Where("id IN ?", ids).Order("id").Find(&books).Error; err != nil {
		return nil, errors.Wrap(err, "find books")
	}
	return books, nil
}

func (s *Library) GetBook(id uint64) (*db.Book, error) {
	book := db.Book{}
	res := s.db.Preload("Categories").First(&book, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, NotFound("book not found")
		}
		return nil, errors.Wrap(res.Error, "find book")
	}
	return &book, nil
}

// UpdateBook changes title/author and, when a category list is given,
// rewrites the book↔category edges: removed from every old category, added
// to every new one, all inside one transaction so the inverse index is never
// observed half-updated.
func (s *Library) UpdateBook(id uint64, title, author *string, categoryNames []string) (*db.Book, error) {
	if title != nil {
		if err := validateTitle(*title); err != nil {
			return nil, err
		}
	}
	if author != nil {
		if err := validateAuthor(*author); err != nil {
			return nil, err
		}
	}

	book := db.Book{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Categories").First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("book not found")
			}
			return errors.Wrap(err, "find book")
		}

		if categoryNames != nil {
			cats, err := categoriesByName(tx, categoryNames)
			if err != nil {
				return err
			}
			if err := tx.Model(&book).Association("Categories").Replace(cats); err != nil {
				return errors.Wrap(err, "replace categories")
			}
			book.Categories = cats
		}

		updates := map[string]interface{}{}
		if title != nil {
			updates["title"] = *title
		}
		if author != nil {
			updates["author"] = *author
		}
		if len(updates) == 0 {
			return nil
		}

		newTitle, newAuthor := book.Title, book.Author
		if title != nil {
			newTitle = *title
		}
		if author != nil {
			newAuthor = *author
		}
		var count int64
		if err := tx.Model(&db.Book{}).
			Where("title = ? AND author = ? AND id <> ?", newTitle, newAuthor, id).
			Count(&count).Error; err != nil {
			return errors.Wrap(err, "check book")
		}
		if count > 0 {
			return Conflict("this book already exists")
		}

		if err := tx.Model(&book).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return Conflict("this book already exists")
			}
			return errors.Wrap(err, "update book")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &book, nil
}

// DeleteBook removes the book and pulls it from every category it belonged
// to, in one transaction.
func (s *Library) DeleteBook(id uint64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		book := db.Book{}
		if err := tx.First(&book, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("book not found")
			}
			return errors.Wrap(err, "find book")
		}

		if err := tx.Model(&book).Association("Categories").Clear(); err != nil {
			return errors.Wrap(err, "clear categories")
		}

		if err := tx.Delete(&book).Error; err != nil {
			return errors.Wrap(err, "delete book")
		}
		return nil
	})
}

// BorrowBook assigns the book to the user. The availability check and the
// write run in the same transaction, and the write itself is guarded on
// borrowed_by_id still being empty, so of two concurrent borrows exactly one
// wins and the other fails with a conflict.
func (s *Library) BorrowBook(bookID, userID uint64) (*db.Book, error) {
	book := db.Book{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("book not found")
			}
			return errors.Wrap(err, "find book")
		}
		if book.BorrowedByID != nil {
			return Conflict("this book is already borrowed")
		}

		user := db.User{}
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("user not found")
			}
			return errors.Wrap(err, "find user")
		}

		res := tx.Model(&db.Book{}).
			Where("id = ? AND borrowed_by_id IS NULL", bookID).
			Updates(map[string]interface{}{"borrowed_by_id": userID, "is_available": false})
		if res.Error != nil {
			return errors.Wrap(res.Error, "borrow book")
		}
		if res.RowsAffected == 0 {
			return Conflict("this book is already borrowed")
		}

		book.BorrowedByID = &user.ID
		book.IsAvailable = false
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &book, nil
}

// ReturnBook clears the borrower. Guarded the same way as BorrowBook, so
// returning an already-returned book fails with a conflict and mutates
// nothing.
func (s *Library) ReturnBook(bookID uint64) (*db.Book, error) {
	book := db.Book{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&book, bookID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("book not found")
			}
			return errors.Wrap(err, "find book")
		}
		if book.BorrowedByID == nil {
			return Conflict("this book is not borrowed")
		}

		user := db.User{}
		if err := tx.First(&user, *book.BorrowedByID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("user not found")
			}
			return errors.Wrap(err, "find user")
		}

		res := tx.Model(&db.Book{}).
			Where("id = ? AND borrowed_by_id = ?", bookID, user.ID).
			Updates(map[string]interface{}{"borrowed_by_id": nil, "is_available": true})
		if res.Error != nil {
			return errors.Wrap(res.Error, "return book")
		}
		if res.RowsAffected == 0 {
			return Conflict("this book is not borrowed")
		}

		book.BorrowedByID = nil
		book.IsAvailable = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &book, nil
}

func (s *Library) CreateCategory(name string) (*db.Category, error) {
	if err := validateCategoryName(name); err != nil {
		return nil, err
	}

	category := db.Category{Name: name}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.Category{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return errors.Wrap(err, "check category")
		}
		if count > 0 {
			return Conflict("this category already exists")
		}

		if err := tx.Create(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return Conflict("this category already exists")
			}
			return errors.Wrap(err, "create category")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &category, nil
}

func (s *Library) GetCategories() ([]db.Category, error) {
	categories := make([]db.Category, 0)
	if err := s.db.Preload("Books").Find(&categories).Error; err != nil {
		return nil, errors.Wrap(err, "find categories")
	}
	return categories, nil
}

func (s *Library) GetCategory(id uint64) (*db.Category, error) {
	category := db.Category{}
	res := s.db.Preload("Books").First(&category, id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, NotFound("category not found")
		}
		return nil, errors.Wrap(res.Error, "find category")
	}
	return &category, nil
}

func (s *Library) UpdateCategory(id uint64, name *string) (*db.Category, error) {
	if name != nil {
		if err := validateCategoryName(*name); err != nil {
			return nil, err
		}
	}

	category := db.Category{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&category, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("category not found")
			}
			return errors.Wrap(err, "find category")
		}
		if name == nil {
			return nil
		}

		var count int64
		if err := tx.Model(&db.Category{}).Where("name = ? AND id <> ?", *name, id).Count(&count).Error; err != nil {
			return errors.Wrap(err, "check category")
		}
		if count > 0 {
			return Conflict("this category already exists")
		}

		if err := tx.Model(&category).Update("name", *name).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return Conflict("this category already exists")
			}
			return errors.Wrap(err, "update category")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &category, nil
}

// DeleteCategory pulls the category from every book that carried it; the
// books themselves survive.
func (s *Library) DeleteCategory(id uint64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		category := db.Category{}
		if err := tx.First(&category, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFound("category not found")
			}
			return errors.Wrap(err, "find category")
		}

		if err := tx.Model(&category).Association("Books").Clear(); err != nil {
			return errors.Wrap(err, "clear books")
		}

		if err := tx.Delete(&category).Error; err != nil {
			return errors.Wrap(err, "delete category")
		}
		return nil
	})
}

// categoriesByName resolves category names, reporting every missing one in a
// single validation error.
func categoriesByName(tx *gorm.DB, names []string) ([]db.Category, error) {
	unique := make([]string, 0, len(names))
	seen := map[string]struct{}{}
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		unique = append(unique, n)
	}

	cats := make([]db.Category, 0, len(unique))
	if len(unique) == 0 {
		return cats, nil
	}

	if err := tx.Where("name IN ?", unique).Find(&cats).Error; err != nil {
		return nil, errors.Wrap(err, "find categories")
	}
	if len(cats) != len(unique) {
		found := map[string]struct{}{}
		for _, c := range cats {
			found[c.Name] = struct{}{}
		}
		missing := make([]string, 0)
		for _, n := range unique {
			if _, ok := found[n]; !ok {
				missing = append(missing, n)
			}
		}
		return nil, Invalid(fmt.Sprintf("the following categories do not exist: %s", strings.Join(missing, ", ")))
	}

	return cats, nil
}

func validateTitle(title string) error {
	if len(title) < 2 || len(title) > 200 {
		return Invalid("title must be between 2 and 200 characters")
	}
	if !titleRegexp.MatchString(title) {
		return Invalid("title contains invalid characters")
	}
	return nil
}

func validateAuthor(author string) error {
	if len(author) < 2 || len(author) > 100 {
		return Invalid("author must be between 2 and 100 characters")
	}
	if !authorRegexp.MatchString(author) {
		return Invalid("author contains invalid characters")
	}
	return nil
}

func validateCategoryName(name string) error {
	if len(name) < 2 || len(name) > 50 {
		return Invalid("category name must be between 2 and 50 characters")
	}
	if !categoryNameRegexp.MatchString(name) {
		return Invalid("category name contains invalid characters")
	}
	return nil
}

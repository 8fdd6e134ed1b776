package service

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acervo-digital/biblioteca-back/internal/db"
)

func TestCreateBook(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewLibrary(gdb, newTestLogger())

	seedCategory(t, gdb, "Fiction")
	seedCategory(t, gdb, "Drama")

	t.Run("creates with categories", func(t *testing.T) {
		book, err := svc.CreateBook("Dom Casmurro", "Machado de Assis", []string{"Fiction", "Drama", "Fiction"})
		require.NoError(t, err)
		assert.True(t, book.IsAvailable)
		assert.Len(t, book.Categories, 2)

		joined := int64(0)
		require.NoError(t, gdb.Table("book_categories").Where("book_id = ?", book.ID).Count(&joined).Error)
		assert.EqualValues(t, 2, joined)
	})

	t.Run("reports every missing category", func(t *testing.T) {
		_, err := svc.CreateBook("Quincas Borba", "Machado de Assis", []string{"Fiction", "Ghost", "Phantom"})
		assert.ErrorIs(t, err, ErrValidation)
		assert.EqualError(t, err, "the following categories do not exist: Ghost, Phantom")

		count := int64(0)
		require.NoError(t, gdb.Model(&db.Book{}).Where("title = ?", "Quincas Borba").Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("duplicate title and author conflicts", func(t *testing.T) {
		_, err := svc.CreateBook("Dom Casmurro", "Machado de Assis", []string{})
		assert.ErrorIs(t, err, ErrConflict)
		assert.EqualError(t, err, "this book already exists")
	})

	t.Run("same title by another author is fine", func(t *testing.T) {
		_, err := svc.CreateBook("Dom Casmurro", "Someone Else", []string{})
		assert.NoError(t, err)
	})

	t.Run("nil category list is invalid", func(t *testing.T) {
		_, err := svc.CreateBook("Valid Title", "Valid Author", nil)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects bad title", func(t *testing.T) {
		_, err := svc.CreateBook("X", "Valid Author", []string{})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestListBooks(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewLibrary(gdb, newTestLogger())

	fiction := seedCategory(t, gdb, "Fiction")
	poetry := seedCategory(t, gdb, "Poetry")
	user := seedUser(t, gdb, "Some Reader", "reader@example.com")

	seedBook(t, gdb, "First Novel", "Author One", *fiction)
	second := seedBook(t, gdb, "Second Novel", "Author Two", *fiction)
	seedBook(t, gdb, "Poem Collection", "Author Three", *poetry)

	_, err := svc.BorrowBook(second.ID, user.ID)
	require.NoError(t, err)

	titles := func(books []db.Book) []string {
		out := make([]string, 0, len(books))
		for i := range books {
			out = append(out, books[i].Title)
		}
		return out
	}

	t.Run("no filters", func(t *testing.T) {
		books, err := svc.ListBooks(nil, nil)
		require.NoError(t, err)
		assert.Len(t, books, 3)
	})

	t.Run("by category", func(t *testing.T) {
		name := "Fiction"
		books, err := svc.ListBooks(&name, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"First Novel", "Second Novel"}, titles(books))
	})

	t.Run("by availability", func(t *testing.T) {
		available := true
		books, err := svc.ListBooks(nil, &available)
		require.NoError(t, err)
		assert.Equal(t, []string{"First Novel", "Poem Collection"}, titles(books))
	})

	t.Run("both filters", func(t *testing.T) {
		name := "Fiction"
		available := false
		books, err := svc.ListBooks(&name, &available)
		require.NoError(t, err)
		assert.Equal(t, []string{"Second Novel"}, titles(books))
	})

	t.Run("unknown category yields empty list", func(t *testing.T) {
		name := "Nonexistent"
		books, err := svc.ListBooks(&name, nil)
		require.NoError(t, err)
		assert.Empty(t, books)
	})
}

func TestUpdateBook(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewLibrary(gdb, newTestLogger())

	old := seedCategory(t, gdb, "Old Category")
	seedCategory(t, gdb, "New Category")
	book := seedBook(t, gdb, "Original Title", "Original Author", *old)
	seedBook(t, gdb, "Taken Title", "Taken Author")

	t.Run("replaces categories", func(t *testing.T) {
		got, err := svc.UpdateBook(book.ID, nil, nil, []string{"New Category"})
		require.NoError(t, err)
		require.Len(t, got.Categories, 1)
		assert.Equal(t, "New Category", got.Categories[0].Name)

		oldSide, err := svc.GetCategory(old.ID)
		require.NoError(t, err)
		assert.Empty(t, oldSide.Books)
	})

	t.Run("missing category rolls everything back", func(t *testing.T) {
		title := "Should Not Stick"
		_, err := svc.UpdateBook(book.ID, &title, nil, []string{"Missing One"})
		assert.ErrorIs(t, err, ErrValidation)

		got, err := svc.GetBook(book.ID)
		require.NoError(t, err)
		assert.Equal(t, "Original Title", got.Title)
		require.Len(t, got.Categories, 1)
		assert.Equal(t, "New Category", got.Categories[0].Name)
	})

	t.Run("nil category list leaves categories alone", func(t *testing.T) {
		title := "Renamed Title"
		got, err := svc.UpdateBook(book.ID, &title, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "Renamed Title", got.Title)

		fresh, err := svc.GetBook(book.ID)
		require.NoError(t, err)
		assert.Len(t, fresh.Categories, 1)
	})

	t.Run("colliding with another book conflicts", func(t *testing.T) {
		title := "Taken Title"
		author := "Taken Author"
		_, err := svc.UpdateBook(book.ID, &title, &author, nil)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unknown book", func(t *testing.T) {
		title := "Whatever Title"
		_, err := svc.UpdateBook(99999, &title, nil, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDeleteBook(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewLibrary(gdb, newTestLogger())

	category := seedCategory(t, gdb, "Doomed Shelf")
	book := seedBook(t, gdb, "Doomed Book", "Some Author", *category)

	require.NoError(t, svc.DeleteBook(book.ID))

	_, err := svc.GetBook(book.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	joined := int64(0)
	require.NoError(t, gdb.Table("book_categories").Where("book_id = ?", book.ID).Count(&joined).Error)
	assert.Zero(t, joined)

	got, err := svc.GetCategory(category.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Books)

	assert.ErrorIs(t, svc.DeleteBook(book.ID), ErrNotFound)
}

func TestBorrowBook(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewLibrary(gdb, newTestLogger())

	user := seedUser(t, gdb, "Borrower One", "one@example.com")
	other := seedUser(t, gdb, "Borrower Two", "two@example.com")
	book := seedBook(t, gdb, "Wanted Book", "Some Author")

	t.Run("borrow marks the book", func(t *testing.T) {
		got, err := svc.BorrowBook(book.ID, user.ID)
		require.NoError(t, err)
		require.NotNil(t, got.BorrowedByID)
		assert.Equal(t, user.ID, *got.BorrowedByID)
		assert.False(t, got.IsAvailable)
	})

	t.Run("borrowed book shows up under the user", func(t *testing.T) {
		users := NewUsers(gdb, newTestLogger())
		got, err := users.GetUser(user.ID)
		require.NoError(t, err)
		require.Len(t, got.BorrowedBooks, 1)
		assert.Equal(t, book.ID, got.BorrowedBooks[0].ID)
	})

	t.Run("second borrow conflicts", func(t *testing.T) {
		_, err := svc.BorrowBook(book.ID, other.ID)
		assert.ErrorIs(t, err, ErrConflict)
		assert.EqualError(t, err, "this book is already borrowed")

		got, err := svc.GetBook(book.ID)
		require.NoError(t, err)
		require.NotNil(t, got.BorrowedByID)
		assert.Equal(t, user.ID, *got.BorrowedByID)
	})

	t.Run("unknown user leaves the book untouched", func(t *testing.T) {
		free := seedBook(t, gdb, "Free Book", "Some Author")
		_, err := svc.BorrowBook(free.ID, 99999)
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := svc.GetBook(free.ID)
		require.NoError(t, err)
		assert.Nil(t, got.BorrowedByID)
		assert.True(t, got.IsAvailable)
	})

	t.Run("unknown book", func(t *testing.T) {
		_, err := svc.BorrowBook(99999, user.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestBorrowBookConcurrent(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewLibrary(gdb, newTestLogger())

	book := seedBook(t, gdb, "Contested Book", "Some Author")

	const workers = 8
	users := make([]*db.User, workers)
	for i := range users {
		users[i] = seedUser(t, gdb, "Concurrent Reader", "reader"+string(rune('a'+i))+"@example.com")
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			_, err := svc.BorrowBook(book.ID, userID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(users[i].ID)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, conflicts)

	got, err := svc.GetBook(book.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.BorrowedByID)
	assert.False(t, got.IsAvailable)
}

func TestReturnBook(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewLibrary(gdb, newTestLogger())

	user := seedUser(t, gdb, "Returning Reader", "return@example.com")
	book := seedBook(t, gdb, "Returned Book", "Some Author")

	_, err := svc.BorrowBook(book.ID, user.ID)
	require.NoError(t, err)

	t.Run("return frees the book", func(t *testing.T) {
		got, err := svc.ReturnBook(book.ID)
		require.NoError(t, err)
		assert.Nil(t, got.BorrowedByID)
		assert.True(t, got.IsAvailable)
	})

	t.Run("returning again conflicts", func(t *testing.T) {
		_, err := svc.ReturnBook(book.ID)
		assert.ErrorIs(t, err, ErrConflict)
		assert.EqualError(t, err, "this book is not borrowed")
	})

	t.Run("book can be borrowed again", func(t *testing.T) {
		_, err := svc.BorrowBook(book.ID, user.ID)
		assert.NoError(t, err)
	})

	t.Run("unknown book", func(t *testing.T) {
		_, err := svc.ReturnBook(99999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCategoryCRUD(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewLibrary(gdb, newTestLogger())

	t.Run("create and duplicate", func(t *testing.T) {
		created, err := svc.CreateCategory("History")
		require.NoError(t, err)
		assert.Equal(t, "History", created.Name)

		_, err = svc.CreateCategory("History")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("rejects bad name", func(t *testing.T) {
		_, err := svc.CreateCategory("H")
		assert.ErrorIs(t, err, ErrValidation)

		_, err = svc.CreateCategory("Cat42")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rename respects uniqueness", func(t *testing.T) {
		other, err := svc.CreateCategory("Science")
		require.NoError(t, err)

		name := "History"
		_, err = svc.UpdateCategory(other.ID, &name)
		assert.ErrorIs(t, err, ErrConflict)

		name = "Natural Science"
		got, err := svc.UpdateCategory(other.ID, &name)
		require.NoError(t, err)
		assert.Equal(t, "Natural Science", got.Name)
	})

	t.Run("delete detaches books but keeps them", func(t *testing.T) {
		doomed, err := svc.CreateCategory("Doomed")
		require.NoError(t, err)
		book := seedBook(t, gdb, "Surviving Book", "Some Author", *doomed)

		require.NoError(t, svc.DeleteCategory(doomed.ID))

		_, err = svc.GetCategory(doomed.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := svc.GetBook(book.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Categories)
	})
}

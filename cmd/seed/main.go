// Command seed fills a library database with public domain books and a few
// weeks of reading sessions.
// Usage: go run ./cmd/seed [-db path/to/bookshelf.db] [-days 45]
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/pagelogs"
	"github.com/mrlokans/bookshelf/internal/database/tags"
	"github.com/mrlokans/bookshelf/internal/entities"
)

const defaultSeedDatabasePath = "./seed/bookshelf.db"

func main() {
	dbPath := flag.String("db", defaultSeedDatabasePath, "path to the database file")
	days := flag.Int("days", 45, "number of days of reading history to generate")
	seed := flag.Int64("seed", 1, "random seed for reading sessions")
	keep := flag.Bool("keep", false, "add to an existing database instead of starting fresh")
	flag.Parse()

	log.Printf("Seeding database at %s...", *dbPath)

	if !*keep {
		if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
			log.Fatalf("Failed to remove existing database: %v", err)
		}
	}

	db, err := database.NewDatabase(*dbPath)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	bookRepo := books.NewRepository(db.DB, tags.NewRepository(db.DB))
	logRepo := pagelogs.NewRepository(db.DB)
	rng := rand.New(rand.NewSource(*seed))
	today := entities.DateOf(time.Now())

	for _, in := range publicDomainBooks() {
		book, err := bookRepo.Create(ctx, in)
		if err != nil {
			log.Printf("Failed to save book %s: %v", in.Title, err)
			continue
		}

		sessions := readBook(ctx, logRepo, rng, book.ID, book.NumberOfPages, today, *days)
		log.Printf("Saved: %s by %v (%d sessions)", book.Title, book.Authors, sessions)
	}

	log.Println("Seed database generated successfully!")
}

// readBook logs sessions on random days of the window, moving forward
// through the book until it is finished or the window ends. Some books are
// left untouched.
func readBook(ctx context.Context, repo *pagelogs.Repository, rng *rand.Rand, bookID uint, pages int, today entities.Date, days int) int {
	if rng.Intn(4) == 0 {
		return 0
	}

	page := 0
	sessions := 0
	for offset := days; offset >= 0 && page < pages; offset-- {
		if rng.Intn(3) == 0 {
			continue
		}
		end := min(page+10+rng.Intn(40), pages)
		_, err := repo.Create(ctx, bookID, entities.PageLogInput{
			StartPage: page,
			EndPage:   end,
			ReadDate:  today.AddDays(-offset),
		})
		if err != nil {
			log.Printf("Failed to log pages %d-%d: %v", page, end, err)
			return sessions
		}
		page = end
		sessions++
	}
	return sessions
}

func intPtr(v int) *int { return &v }

func publicDomainBooks() []entities.BookInput {
	return []entities.BookInput{
		{
			Title:         "Meditations",
			NumberOfPages: 254,
			YearPublished: intPtr(180),
			Stars:         intPtr(5),
			Authors:       []string{"Marcus Aurelius"},
			Categories:    []string{"Philosophy", "Classics"},
			Publishers:    []string{"Penguin Classics"},
			Review:        "You have power over your mind - not outside events.",
		},
		{
			Title:         "Pride and Prejudice",
			NumberOfPages: 432,
			YearPublished: intPtr(1813),
			Stars:         intPtr(4),
			Authors:       []string{"Jane Austen"},
			Categories:    []string{"Fiction", "Classics", "Romance"},
			Publishers:    []string{"T. Egerton"},
		},
		{
			Title:         "On the Origin of Species",
			NumberOfPages: 502,
			YearPublished: intPtr(1859),
			Authors:       []string{"Charles Darwin"},
			Categories:    []string{"Science", "Biology"},
			Publishers:    []string{"John Murray"},
		},
		{
			Title:         "The Adventures of Sherlock Holmes",
			NumberOfPages: 307,
			YearPublished: intPtr(1892),
			Stars:         intPtr(4),
			Authors:       []string{"Arthur Conan Doyle"},
			Categories:    []string{"Fiction", "Mystery"},
			Publishers:    []string{"George Newnes"},
		},
		{
			Title:         "Walden",
			NumberOfPages: 352,
			YearPublished: intPtr(1854),
			Authors:       []string{"Henry David Thoreau"},
			Categories:    []string{"Philosophy", "Nature"},
			Publishers:    []string{"Ticknor and Fields"},
		},
		{
			Title:         "The Federalist Papers",
			NumberOfPages: 624,
			YearPublished: intPtr(1788),
			Authors:       []string{"Alexander Hamilton", "James Madison", "John Jay"},
			Categories:    []string{"Politics", "History"},
			Publishers:    []string{"J. and A. McLean"},
		},
		{
			Title:         "Frankenstein",
			BookType:      entities.BookTypeEbook,
			NumberOfPages: 280,
			YearPublished: intPtr(1818),
			Stars:         intPtr(5),
			Authors:       []string{"Mary Shelley"},
			Categories:    []string{"Fiction", "Horror", "Classics"},
			Publishers:    []string{"Lackington, Hughes, Harding, Mavor & Jones"},
		},
	}
}

package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mrlokans/bookshelf/internal/metadata"
)

// LookupCommand queries OpenLibrary by ISBN or free text and prints the
// normalized metadata as JSON.
type LookupCommand struct {
	ISBN    string
	Query   string
	BaseURL string
	Timeout time.Duration

	out io.Writer
}

func NewLookupCommand() *LookupCommand {
	return &LookupCommand{out: os.Stdout}
}

func (cmd *LookupCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)

	fs.StringVar(&cmd.ISBN, "isbn", "", "ISBN-10 or ISBN-13 to look up")
	fs.StringVar(&cmd.Query, "q", "", "Free-text search (title, author)")
	fs.StringVar(&cmd.BaseURL, "url", metadata.DefaultConfig().BaseURL, "OpenLibrary base URL")
	fs.DurationVar(&cmd.Timeout, "timeout", 30*time.Second, "Overall lookup timeout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s lookup (-isbn <isbn> | -q <query>) [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Look up book metadata on OpenLibrary.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s lookup -isbn 9780441013593\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s lookup -q \"dune herbert\"\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if (cmd.ISBN == "") == (cmd.Query == "") {
		fs.Usage()
		return fmt.Errorf("exactly one of -isbn or -q is required")
	}
	return nil
}

func (cmd *LookupCommand) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, cmd.Timeout)
	defer cancel()

	client := metadata.NewOpenLibraryClient(metadata.Config{BaseURL: cmd.BaseURL})

	var result any
	if cmd.ISBN != "" {
		meta, err := client.LookupByISBN(ctx, cmd.ISBN)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", cmd.ISBN, err)
		}
		result = meta
	} else {
		results, err := client.Search(ctx, cmd.Query)
		if err != nil {
			return err
		}
		result = results
	}

	enc := json.NewEncoder(cmd.out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

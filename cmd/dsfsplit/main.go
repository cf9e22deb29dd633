// This command line tool splits the DSF files referenced by a cue sheet
// into one tagged DSF file per track, cutting at DSD block boundaries so
// the bitstream is copied untouched. Output files are written next to the
// cue sheet as "NN - Title.dsf".
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	dsf "github.com/ezhische/dsf-cue-splitter"
)

const usageMessage = "Usage: dsfsplit <cuefile>"

var errMissingPath = errors.New("missing cue sheet path argument")

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err == nil {
		return
	}

	if errors.Is(err, errMissingPath) {
		fmt.Println(usageMessage)
		os.Exit(1)
	}

	log.Fatal(err)
}

func run(args []string, out io.Writer) error {
	if len(args) != 1 {
		return errMissingPath
	}

	splitter, err := dsf.NewSplitter(args[0])
	if err != nil {
		return err
	}

	splitter.Status = func(format string, statusArgs ...any) {
		fmt.Fprintf(out, format+"\n", statusArgs...)
	}

	album := splitter.Album()
	fmt.Fprintf(out, "Album:  %s\n", orUnknown(album.Title))
	fmt.Fprintf(out, "Artist: %s\n", orUnknown(album.Performer))
	fmt.Fprintf(out, "Tracks: %d\n\n", len(splitter.Tracks()))

	if err := splitter.Run(); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nDone!")

	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}

	return s
}

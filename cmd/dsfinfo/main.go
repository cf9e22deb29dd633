// This tool prints the header fields and any appended ID3 tags of a DSF
// file.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/bogem/id3v2"

	dsf "github.com/ezhische/dsf-cue-splitter"
)

const missingPathMessage = "You must pass the path of the DSF file to inspect"

var errMissingPath = errors.New("missing path argument")

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err == nil {
		return
	}

	if errors.Is(err, errMissingPath) {
		fmt.Println(missingPathMessage)
		os.Exit(1)
	}

	log.Fatal(err)
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		return errMissingPath
	}

	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	dec := dsf.NewDecoder(file)
	dec.ReadInfo()

	if err := dec.Err(); err != nil {
		return err
	}

	dur, err := dec.Duration()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Channels: %d\n", dec.NumChans)
	fmt.Fprintf(out, "SampleRate: %d\n", dec.SampleRate)
	fmt.Fprintf(out, "BitsPerSample: %d\n", dec.BitsPerSample)
	fmt.Fprintf(out, "SampleCount: %d\n", dec.SampleCount)
	fmt.Fprintf(out, "BlockSize: %d\n", dec.BlockSize)
	fmt.Fprintf(out, "DataSize: %d\n", dec.DataSize)
	fmt.Fprintf(out, "Blocks: %d\n", dec.TotalBlocks())
	fmt.Fprintf(out, "Duration: %s\n", dur)

	if dec.MetadataOffset == 0 {
		fmt.Fprintln(out, "No metadata present")
		return nil
	}

	if _, err := file.Seek(int64(dec.MetadataOffset), io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to metadata: %w", err)
	}

	tag, err := id3v2.ParseReader(file, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to parse ID3 tag: %w", err)
	}

	fmt.Fprintf(out, "Title: %s\n", tag.Title())
	fmt.Fprintf(out, "Artist: %s\n", tag.Artist())
	fmt.Fprintf(out, "Album: %s\n", tag.Album())
	fmt.Fprintf(out, "Genre: %s\n", tag.Genre())
	fmt.Fprintf(out, "Year: %s\n", tag.Year())
	fmt.Fprintf(out, "Track: %s\n", tag.GetTextFrame("TRCK").Text)

	return nil
}

package dsf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

// ErrNoTracks is returned when the cue sheet declares no tracks at all.
var ErrNoTracks = errors.New("no tracks found in cue sheet")

var reUnsafeFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeFilename replaces characters that are unsafe in filenames
// with underscores.
func SanitizeFilename(name string) string {
	return reUnsafeFilenameChars.ReplaceAllString(name, "_")
}

// Splitter splits the tracks of one cue sheet into standalone, tagged DSF
// files, written next to the cue sheet. Source headers are read once per
// distinct file and cached; tracks are processed strictly in sheet order.
type Splitter struct {
	// Status receives human-readable progress and warning lines.
	// A nil Status discards them.
	Status func(format string, args ...any)

	cueDir  string
	album   Album
	tracks  []*Track
	headers map[string]*Decoder
}

// NewSplitter parses the cue sheet at cuePath and prepares a Splitter
// writing into the cue sheet's directory.
func NewSplitter(cuePath string) (*Splitter, error) {
	f, err := os.Open(cuePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cue sheet %s: %w", cuePath, err)
	}
	defer f.Close()

	album, tracks, err := ParseCueSheet(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cue sheet %s: %w", cuePath, err)
	}

	abs, err := filepath.Abs(cuePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cue sheet path %s: %w", cuePath, err)
	}

	return &Splitter{
		cueDir:  filepath.Dir(abs),
		album:   album,
		tracks:  tracks,
		headers: make(map[string]*Decoder),
	}, nil
}

// Album returns the album-level metadata parsed from the cue sheet.
func (s *Splitter) Album() Album {
	return s.album
}

// Tracks returns the parsed tracks in sheet order.
func (s *Splitter) Tracks() []*Track {
	return s.tracks
}

// Run splits every track of the cue sheet. Tracks without a usable start
// or file reference are reported and skipped; a structurally invalid or
// missing source file aborts the run. No partially written track file
// survives an abort.
func (s *Splitter) Run() error {
	if len(s.tracks) == 0 {
		return ErrNoTracks
	}

	for i := range s.tracks {
		if err := s.splitTrack(i); err != nil {
			return err
		}
	}

	return nil
}

func (s *Splitter) statusf(format string, args ...any) {
	if s.Status != nil {
		s.Status(format, args...)
	}
}

// header returns the cached descriptor for a source file, reading it on
// first use. The cached decoder is kept for its header fields only; its
// reader is closed before returning.
func (s *Splitter) header(name string) (*Decoder, error) {
	if hdr, ok := s.headers[name]; ok {
		return hdr, nil
	}

	path := filepath.Join(s.cueDir, name)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source file not found: %s: %w", path, err)
	}
	defer f.Close()

	s.statusf("Reading: %s", name)

	dec := NewDecoder(f)
	dec.ReadInfo()

	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	s.headers[name] = dec

	return dec, nil
}

func (s *Splitter) splitTrack(i int) error {
	track := s.tracks[i]

	if track.File == "" {
		s.statusf("ERROR: track %s has no FILE reference", track.Number)
		return nil
	}

	if track.Index == nil {
		s.statusf("ERROR: track %s has no INDEX 01", track.Number)
		return nil
	}

	hdr, err := s.header(track.File)
	if err != nil {
		return err
	}

	startBlock := SamplesToBlock(track.Index.Samples(hdr.SampleRate), hdr.BlockSize)

	// the last track per file runs to the end of that file
	endBlock := hdr.TotalBlocks()
	if i+1 < len(s.tracks) {
		next := s.tracks[i+1]
		if next.File == track.File && next.Index != nil {
			endBlock = SamplesToBlock(next.Index.Samples(hdr.SampleRate), hdr.BlockSize)
		}
	}

	outName := fmt.Sprintf("%s - %s.dsf", track.Number, SanitizeFilename(track.Title))
	outPath := filepath.Join(s.cueDir, outName)

	s.statusf("Track %s: %s", track.Number, track.Title)

	if endBlock <= startBlock {
		s.statusf("  WARNING: zero-length track, skipping: %s", outName)
		return nil
	}

	padded, err := s.extractTrack(track.File, hdr, startBlock, endBlock, outPath)
	if err != nil {
		return err
	}

	if padded > 0 {
		s.statusf("  WARNING: source ended early, zero-filled %d bytes: %s", padded, outName)
	}

	if err := s.tagTrack(outPath, track); err != nil {
		return err
	}

	seconds := float64(endBlock-startBlock) * float64(hdr.SamplesPerBlock()) / float64(hdr.SampleRate)
	s.statusf("  OK: %s (%.1fs, blocks %d-%d)", outName, seconds, startBlock, endBlock-1)

	return nil
}

// extractTrack streams one block range into a fresh DSF file. On any write
// failure the output file is removed so no half-written track survives.
func (s *Splitter) extractTrack(srcName string, hdr *Decoder, startBlock, endBlock int64, outPath string) (padded int64, err error) {
	src, err := os.Open(filepath.Join(s.cueDir, srcName))
	if err != nil {
		return 0, fmt.Errorf("failed to open source %s: %w", srcName, err)
	}
	defer src.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", outPath, err)
	}

	enc := NewEncoderFromDecoder(out, hdr)

	padded, err = enc.WriteBlocks(src, startBlock, endBlock)

	cerr := out.Close()
	if err == nil && cerr != nil {
		err = fmt.Errorf("failed to close %s: %w", outPath, cerr)
	}

	if err != nil {
		os.Remove(outPath)
		return 0, err
	}

	return padded, nil
}

func (s *Splitter) tagTrack(outPath string, track *Track) (err error) {
	f, err := os.OpenFile(outPath, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s for tagging: %w", outPath, err)
	}

	defer func() {
		cerr := f.Close()
		if cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", outPath, cerr)
		}
	}()

	return AppendTags(f, Tags{
		Title:       track.Title,
		Artist:      track.Performer,
		Album:       s.album.Title,
		TrackNum:    track.Number,
		TotalTracks: strconv.Itoa(len(s.tracks)),
		Genre:       s.album.Genre,
		Date:        s.album.Date,
	})
}

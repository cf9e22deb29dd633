package dsf

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Album holds cue-sheet-wide metadata. During parsing the last occurrence
// of a field wins.
type Album struct {
	Title     string
	Performer string
	Genre     string
	Date      string
}

// Timecode is a cue sheet index time: minutes, seconds and 1/75-second
// frames.
type Timecode struct {
	Min    int
	Sec    int
	Frames int
}

// Samples converts the timecode to an absolute sample offset at the given
// sample rate.
func (t Timecode) Samples(sampleRate uint32) int64 {
	return TimeToSamples(t.Min, t.Sec, t.Frames, sampleRate)
}

// Track is one TRACK entry of a cue sheet. Number keeps the literal digits
// from the sheet so leading zeros survive into output filenames. Index is
// nil until an INDEX 01 line fires; a track without one has no start time
// and cannot be split.
type Track struct {
	File      string
	Number    string
	Title     string
	Performer string
	Index     *Timecode
}

var (
	reCueFile      = regexp.MustCompile(`^FILE\s+"(.+?)"\s+\w+`)
	reCueRemGenre  = regexp.MustCompile(`^REM\s+GENRE\s+(.+)`)
	reCueRemDate   = regexp.MustCompile(`^REM\s+DATE\s+(.+)`)
	reCueTrack     = regexp.MustCompile(`^TRACK\s+(\d+)\s+AUDIO`)
	reCueTitle     = regexp.MustCompile(`^TITLE\s+"(.+?)"`)
	reCuePerformer = regexp.MustCompile(`^PERFORMER\s+"(.+?)"`)
	reCueIndex01   = regexp.MustCompile(`^INDEX\s+01\s+(\d+):(\d+):(\d+)`)
)

// ParseCueSheet parses cue sheet text into album metadata and the ordered
// track list. The text is read as UTF-8; a leading byte order mark is
// tolerated. Unrecognized or malformed lines are ignored.
//
// One track at a time is "open": TRACK opens it, INDEX 01 closes it.
// TITLE and PERFORMER lines seen while no track is open set album fields,
// which means metadata placed after a track's INDEX 01 is attributed to
// the album, not the track.
func ParseCueSheet(r io.Reader) (Album, []*Track, error) {
	var (
		album   Album
		tracks  []*Track
		curFile string
		open    *Track
	)

	scanner := bufio.NewScanner(r)

	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
		}

		line = strings.TrimSpace(strings.ReplaceAll(line, "\r", ""))
		if line == "" {
			continue
		}

		if m := reCueFile.FindStringSubmatch(line); m != nil {
			curFile = m[1]
			continue
		}

		if m := reCueRemGenre.FindStringSubmatch(line); m != nil {
			album.Genre = stripQuotes(m[1])
			continue
		}

		if m := reCueRemDate.FindStringSubmatch(line); m != nil {
			album.Date = stripQuotes(m[1])
			continue
		}

		if m := reCueTrack.FindStringSubmatch(line); m != nil {
			open = &Track{
				File:      curFile,
				Number:    m[1],
				Title:     "Track " + m[1],
				Performer: album.Performer,
			}
			tracks = append(tracks, open)

			continue
		}

		if m := reCueTitle.FindStringSubmatch(line); m != nil {
			if open != nil {
				open.Title = m[1]
			} else {
				album.Title = m[1]
			}

			continue
		}

		if m := reCuePerformer.FindStringSubmatch(line); m != nil {
			if open != nil {
				open.Performer = m[1]
			} else {
				album.Performer = m[1]
			}

			continue
		}

		if m := reCueIndex01.FindStringSubmatch(line); m != nil && open != nil {
			tc, ok := parseTimecode(m[1], m[2], m[3])
			if !ok {
				continue
			}

			open.Index = &tc
			// the track keeps collecting nothing past its start time
			open = nil
		}
	}

	if err := scanner.Err(); err != nil {
		return album, tracks, fmt.Errorf("failed to read cue sheet: %w", err)
	}

	return album, tracks, nil
}

func parseTimecode(mm, ss, ff string) (Timecode, bool) {
	m, err := strconv.Atoi(mm)
	if err != nil {
		return Timecode{}, false
	}

	s, err := strconv.Atoi(ss)
	if err != nil {
		return Timecode{}, false
	}

	f, err := strconv.Atoi(ff)
	if err != nil {
		return Timecode{}, false
	}

	return Timecode{Min: m, Sec: s, Frames: f}, true
}

func stripQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

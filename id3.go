package dsf

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Tags holds the optional text fields appended to a split track. Empty
// fields produce no frame; an all-empty Tags appends nothing.
type Tags struct {
	Title       string
	Artist      string
	Album       string
	TrackNum    string
	TotalTracks string
	Genre       string
	Date        string
}

const (
	id3HeaderSize = 10
	// frame text payloads start with this encoding marker
	id3EncodingUTF8 = 0x03
)

// trackFrameText renders the TRCK frame value, "<n>/<total>" when the
// total track count is known.
func (t Tags) trackFrameText() string {
	if t.TrackNum == "" {
		return ""
	}

	if t.TotalTracks == "" {
		return t.TrackNum
	}

	return t.TrackNum + "/" + t.TotalTracks
}

// BuildTag builds a minimal ID3v2.3 tag blob for the non-empty fields,
// ready to append to a DSF file. It returns nil when every field is empty.
func BuildTag(t Tags) []byte {
	var frames []byte
	frames = append(frames, id3TextFrame("TIT2", t.Title)...)
	frames = append(frames, id3TextFrame("TPE1", t.Artist)...)
	frames = append(frames, id3TextFrame("TALB", t.Album)...)
	frames = append(frames, id3TextFrame("TRCK", t.trackFrameText())...)
	frames = append(frames, id3TextFrame("TCON", t.Genre)...)
	frames = append(frames, id3TextFrame("TYER", t.Date)...)

	if len(frames) == 0 {
		return nil
	}

	tag := make([]byte, 0, id3HeaderSize+len(frames))
	tag = append(tag, 'I', 'D', '3')
	tag = append(tag, 0x03, 0x00) // version 2.3.0
	tag = append(tag, 0x00)       // no flags

	size := syncsafe(uint32(len(frames)))
	tag = append(tag, size[:]...)

	return append(tag, frames...)
}

// id3TextFrame builds a single ID3v2.3 text frame: 4-byte ID, big-endian
// payload size, two zero flag bytes, then the encoding marker and UTF-8
// text.
func id3TextFrame(id, text string) []byte {
	if text == "" {
		return nil
	}

	frame := make([]byte, 0, id3HeaderSize+1+len(text))
	frame = append(frame, id...)

	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(1+len(text)))
	frame = append(frame, size[:]...)

	frame = append(frame, 0x00, 0x00) // no flags
	frame = append(frame, id3EncodingUTF8)

	return append(frame, text...)
}

// syncsafe encodes n using seven bits per byte, most significant bit
// clear, as required for the ID3v2 tag size field.
func syncsafe(n uint32) [4]byte {
	var out [4]byte
	for i := 3; i >= 0; i-- {
		out[i] = byte(n & 0x7F)
		n >>= 7
	}

	return out
}

// AppendTags appends an ID3v2.3 tag block for the passed fields to the end
// of a DSF file and patches the DSD chunk in place: the total file size
// grows by the block length and the metadata pointer is set to the old
// total, the offset where the block now starts. When every field is empty
// the file is left untouched.
//
// The true total size is only known once the tag length is, hence the
// write-then-patch protocol. f needs random access; *os.File qualifies.
func AppendTags(f io.ReadWriteSeeker, t Tags) error {
	blob := BuildTag(t)
	if len(blob) == 0 {
		return nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to DSD chunk: %w", err)
	}

	var id [4]byte
	if _, err := io.ReadFull(f, id[:]); err != nil {
		return fmt.Errorf("failed to read chunk ID: %w", err)
	}

	if id != CIDDSD {
		return fmt.Errorf("expected %q, got %q: %w", CIDDSD[:], id[:], ErrUnexpectedChunkID)
	}

	var chunkSize, oldTotal uint64
	if err := binary.Read(f, binary.LittleEndian, &chunkSize); err != nil {
		return fmt.Errorf("failed to read DSD chunk size: %w", err)
	}

	if err := binary.Read(f, binary.LittleEndian, &oldTotal); err != nil {
		return fmt.Errorf("failed to read total file size: %w", err)
	}

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end of file: %w", err)
	}

	if _, err := f.Write(blob); err != nil {
		return fmt.Errorf("failed to append tag block: %w", err)
	}

	// patch total size and metadata pointer, adjacent fields at offset 12
	if _, err := f.Seek(totalSizeOffset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to total size field: %w", err)
	}

	newTotal := oldTotal + uint64(len(blob))
	if err := binary.Write(f, binary.LittleEndian, newTotal); err != nil {
		return fmt.Errorf("failed to patch total file size: %w", err)
	}

	if err := binary.Write(f, binary.LittleEndian, oldTotal); err != nil {
		return fmt.Errorf("failed to patch metadata pointer: %w", err)
	}

	return nil
}

package dsf

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestDecoderReadInfo(t *testing.T) {
	src := testDSF{
		numChans:   2,
		sampleRate: 2822400,
		blockSize:  4,
		payload:    seqPayload(6 * 8), // 6 blocks of 8-byte frames
		fmtExtra:   []byte{0xAA, 0xBB, 0xCC, 0xDD},
	}
	data := src.bytes()

	d := NewDecoder(bytes.NewReader(data))
	d.ReadInfo()

	if err := d.Err(); err != nil {
		t.Fatalf("ReadInfo failed: %v", err)
	}

	if d.TotalFileSize != uint64(len(data)) {
		t.Fatalf("TotalFileSize=%d, want %d", d.TotalFileSize, len(data))
	}

	if d.MetadataOffset != 0 {
		t.Fatalf("MetadataOffset=%d, want 0", d.MetadataOffset)
	}

	if d.FmtSize != fmtChunkStdSize+4 {
		t.Fatalf("FmtSize=%d, want %d", d.FmtSize, fmtChunkStdSize+4)
	}

	if d.FormatVersion != 1 || d.FormatID != 0 {
		t.Fatalf("FormatVersion=%d FormatID=%d, want 1 and 0", d.FormatVersion, d.FormatID)
	}

	if d.ChannelType != 2 || d.NumChans != 2 {
		t.Fatalf("ChannelType=%d NumChans=%d, want 2 and 2", d.ChannelType, d.NumChans)
	}

	if d.SampleRate != 2822400 || d.BitsPerSample != 1 {
		t.Fatalf("SampleRate=%d BitsPerSample=%d, want 2822400 and 1", d.SampleRate, d.BitsPerSample)
	}

	if d.SampleCount != 6*4*8 {
		t.Fatalf("SampleCount=%d, want %d", d.SampleCount, 6*4*8)
	}

	if d.BlockSize != 4 {
		t.Fatalf("BlockSize=%d, want 4", d.BlockSize)
	}

	if !bytes.Equal(d.FmtExtra, src.fmtExtra) {
		t.Fatalf("FmtExtra=%x, want %x", d.FmtExtra, src.fmtExtra)
	}

	wantDataOffset := int64(dsdChunkSize + fmtChunkStdSize + 4 + dataChunkHeaderSize)
	if d.DataOffset != wantDataOffset {
		t.Fatalf("DataOffset=%d, want %d", d.DataOffset, wantDataOffset)
	}

	if d.DataSize != int64(len(src.payload)) {
		t.Fatalf("DataSize=%d, want %d", d.DataSize, len(src.payload))
	}
}

func TestDecoderReadInfoIsRepeatable(t *testing.T) {
	data := testDSF{numChans: 1, sampleRate: 2822400, blockSize: 4, payload: seqPayload(16)}.bytes()

	d := NewDecoder(bytes.NewReader(data))
	d.ReadInfo()
	d.ReadInfo()

	if err := d.Err(); err != nil {
		t.Fatalf("repeated ReadInfo failed: %v", err)
	}

	if d.NumChans != 1 || d.TotalBlocks() != 4 {
		t.Fatalf("NumChans=%d TotalBlocks=%d, want 1 and 4", d.NumChans, d.TotalBlocks())
	}
}

func TestDecoderRejectsBadChunkIDs(t *testing.T) {
	valid := testDSF{numChans: 2, sampleRate: 2822400, blockSize: 4, payload: seqPayload(16)}.bytes()

	tests := []struct {
		name   string
		offset int
	}{
		{"DSD chunk", 0},
		{"fmt chunk", dsdChunkSize},
		{"data chunk", dsdChunkSize + fmtChunkStdSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append([]byte(nil), valid...)
			copy(data[tt.offset:], "XXXX")

			d := NewDecoder(bytes.NewReader(data))
			d.ReadInfo()

			if !errors.Is(d.Err(), ErrUnexpectedChunkID) {
				t.Fatalf("Err()=%v, want ErrUnexpectedChunkID", d.Err())
			}
		})
	}
}

func TestDecoderGeometry(t *testing.T) {
	data := testDSF{numChans: 2, sampleRate: 2822400, blockSize: 4096, payload: make([]byte, 3*8192+5)}.bytes()

	d := NewDecoder(bytes.NewReader(data))
	d.ReadInfo()

	if err := d.Err(); err != nil {
		t.Fatalf("ReadInfo failed: %v", err)
	}

	if got := d.FrameSize(); got != 8192 {
		t.Fatalf("FrameSize()=%d, want 8192", got)
	}

	if got := d.SamplesPerBlock(); got != 32768 {
		t.Fatalf("SamplesPerBlock()=%d, want 32768", got)
	}

	// the 5 trailing payload bytes are less than a frame and unindexable
	if got := d.TotalBlocks(); got != 3 {
		t.Fatalf("TotalBlocks()=%d, want 3", got)
	}

	format := d.Format()
	if format.NumChannels != 2 || format.SampleRate != 2822400 {
		t.Fatalf("Format()=%+v, want 2 channels at 2822400", format)
	}
}

func TestDecoderDuration(t *testing.T) {
	// 96 blocks of 2 bytes, 1 channel: 1536 samples at 768 Hz = 2s
	data := testDSF{numChans: 1, sampleRate: 768, blockSize: 2, payload: make([]byte, 192)}.bytes()

	d := NewDecoder(bytes.NewReader(data))
	d.ReadInfo()

	dur, err := d.Duration()
	if err != nil {
		t.Fatalf("Duration failed: %v", err)
	}

	if dur != 2*time.Second {
		t.Fatalf("Duration()=%v, want 2s", dur)
	}

	var nilDec *Decoder
	if _, err := nilDec.Duration(); !errors.Is(err, ErrDurationNilPointer) {
		t.Fatalf("nil Duration error=%v, want ErrDurationNilPointer", err)
	}
}

func TestDecoderIsValidFile(t *testing.T) {
	tests := []struct {
		name string
		src  testDSF
		want bool
	}{
		{"valid", testDSF{numChans: 2, sampleRate: 2822400, blockSize: 4096, payload: make([]byte, 8192)}, true},
		{"no channels", testDSF{numChans: 0, sampleRate: 2822400, blockSize: 4096, payload: make([]byte, 8192)}, false},
		{"no samples", testDSF{numChans: 2, sampleRate: 2822400, blockSize: 4096, payload: nil}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder(bytes.NewReader(tt.src.bytes()))
			if got := d.IsValidFile(); got != tt.want {
				t.Fatalf("IsValidFile()=%v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecoderTruncatedHeader(t *testing.T) {
	data := testDSF{numChans: 2, sampleRate: 2822400, blockSize: 4, payload: seqPayload(16)}.bytes()

	d := NewDecoder(bytes.NewReader(data[:40]))
	d.ReadInfo()

	if d.Err() == nil {
		t.Fatal("expected error decoding a truncated header")
	}
}

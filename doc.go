// Package dsf splits DSF (DSD stream file) containers at DSD block
// boundaries, driven by a cue sheet, without decoding or re-encoding the
// 1-bit audio payload.
//
// The package exposes the pieces individually:
//
//   - Decoder parses a DSF header (DSD, fmt and data chunks) into a
//     reusable descriptor.
//   - ParseCueSheet reads album metadata and track boundaries from a cue
//     sheet, including multi-FILE sheets.
//   - Encoder writes a standalone DSF file holding an exact block range
//     copied from a source file.
//   - AppendTags appends a minimal ID3v2.3 tag block to a written file and
//     patches the DSD chunk pointers in place.
//   - Splitter ties the above together for a whole cue sheet.
//
// Cutting happens on whole DSD blocks, so output files are bit-identical
// slices of the source stream.
package dsf

package dsf

// cueFramesPerSecond is the cue sheet frame rate (75 frames per second,
// inherited from CD audio sectors).
const cueFramesPerSecond = 75.0

// TimeToSamples converts a cue timecode to an absolute sample offset at
// the given sample rate, truncating toward zero.
func TimeToSamples(min, sec, frames int, sampleRate uint32) int64 {
	seconds := float64(min*60+sec) + float64(frames)/cueFramesPerSecond

	return int64(seconds * float64(sampleRate))
}

// SamplesToBlock converts a sample offset to the index of the DSD block
// containing it. Each block holds blockSize*8 samples per channel, one bit
// per sample.
func SamplesToBlock(samples int64, blockSize uint32) int64 {
	if blockSize == 0 {
		return 0
	}

	return samples / (int64(blockSize) * 8)
}

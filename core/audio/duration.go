package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"
)

// errNoDecoder means the format has no native duration decoder.
var errNoDecoder = errors.New("no native decoder")

func nativeDuration(path, ext string) (time.Duration, error) {
	switch ext {
	case ".mp3":
		return mp3Duration(path)
	case ".wav":
		return wavDuration(path)
	case ".flac":
		return flacDuration(path)
	}
	return 0, errNoDecoder
}

// mp3Duration sums the durations of all MPEG frames.
func mp3Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := skipID3v2(f); err != nil {
		return 0, err
	}

	d := mp3.NewDecoder(f)
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
		frames  int
	)
	for {
		if err := d.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || frames > 0 {
				// trailing ID3v1 or garbage after the last frame
				break
			}
			return 0, fmt.Errorf("failed to decode mp3 frame: %w", err)
		}
		total += frame.Duration()
		frames++
	}
	if frames == 0 {
		return 0, errors.New("no mp3 frames found")
	}
	return total, nil
}

// skipID3v2 positions r after a leading ID3v2 tag, or back at the start when there is none.
func skipID3v2(r io.ReadSeeker) error {
	var hdr [10]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		_, serr := r.Seek(0, io.SeekStart)
		return serr
	}
	if string(hdr[:3]) != "ID3" {
		_, err := r.Seek(0, io.SeekStart)
		return err
	}

	// synchsafe integer: 7 bits per byte
	size := int64(hdr[6]&0x7f)<<21 | int64(hdr[7]&0x7f)<<14 | int64(hdr[8]&0x7f)<<7 | int64(hdr[9]&0x7f)
	if hdr[5]&0x10 != 0 {
		size += 10 // footer
	}
	_, err := r.Seek(10+size, io.SeekStart)
	return err
}

func wavDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return 0, errors.New("invalid wav file")
	}
	if err := d.FwdToPCM(); err != nil {
		return 0, fmt.Errorf("failed to find wav data chunk: %w", err)
	}

	bytesPerSec := int64(d.SampleRate) * int64(d.NumChans) * int64(d.BitDepth/8)
	if bytesPerSec == 0 {
		return 0, errors.New("wav header has no sample format")
	}
	return time.Duration(int64(d.PCMSize) * int64(time.Second) / bytesPerSec), nil
}

// flacDuration reads the sample count from the STREAMINFO block.
func flacDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := skipID3v2(f); err != nil {
		return 0, err
	}

	stream, err := flac.New(f)
	if err != nil {
		return 0, fmt.Errorf("failed to parse flac stream: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	if info == nil || info.SampleRate == 0 || info.NSamples == 0 {
		return 0, errors.New("flac stream info has no length")
	}
	return time.Duration(info.NSamples * uint64(time.Second) / uint64(info.SampleRate)), nil
}

package mediaindex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/tcolgate/mp3"
)

// fileDuration determines the playable length of an audio file by format.
func fileDuration(path string) (time.Duration, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMP3:
		return durationMP3(path)
	case ExtFLAC:
		return durationFLAC(path)
	case ExtWAV:
		return durationWAV(path)
	case ExtM4A:
		return durationM4A(path)
	default:
		return 0, fmt.Errorf("unsupported format: %s", filepath.Ext(path))
	}
}

// MP3 duration by decoding frame headers; falls back to an average-bitrate
// estimate only when no frame decodes at all.
func durationMP3(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return estimateFromFileSize(path, 192000) // assume 192 kbps
			}
			break // partial decode; use what we have
		}
		total += fr.Duration()
		frames++
	}
	return total, nil
}

// FLAC duration via the STREAMINFO metadata block.
func durationFLAC(path string) (time.Duration, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return 0, err
	}
	si := stream.Info
	if si.NSamples == 0 || si.SampleRate == 0 {
		return 0, errors.New("flac stream missing sample info")
	}
	secs := float64(si.NSamples) / float64(si.SampleRate)
	return time.Duration(secs * float64(time.Second)), nil
}

// WAV duration from the header plus the PCM byte count.
func durationWAV(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, errors.New("invalid wav file")
	}
	if dec.SampleRate == 0 || dec.BitDepth == 0 || dec.NumChans == 0 {
		return 0, errors.New("invalid wav header")
	}

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	const headerSize = 44
	pcmBytes := st.Size() - headerSize
	if pcmBytes < 0 {
		pcmBytes = 0
	}
	bytesPerFrame := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if bytesPerFrame <= 0 {
		return 0, errors.New("invalid sample frame size")
	}
	frames := pcmBytes / bytesPerFrame
	secs := float64(frames) / float64(dec.SampleRate)
	return time.Duration(secs * float64(time.Second)), nil
}

// M4A duration from the mvhd atom inside moov. Minimal manual atom scan,
// best effort.
func durationM4A(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	for {
		head := make([]byte, 8)
		if _, err := io.ReadFull(f, head); err != nil {
			return 0, err
		}
		size := binary.BigEndian.Uint32(head[0:4])
		atom := string(head[4:8])
		if size < 8 {
			return 0, errors.New("invalid atom size")
		}
		if atom == "moov" {
			return scanMoovForDuration(f, int64(size)-8)
		}
		if _, err := f.Seek(int64(size)-8, io.SeekCurrent); err != nil {
			return 0, err
		}
	}
}

func scanMoovForDuration(f *os.File, limit int64) (time.Duration, error) {
	for read := int64(0); read < limit; {
		head := make([]byte, 8)
		if _, err := io.ReadFull(f, head); err != nil {
			return 0, err
		}
		size := binary.BigEndian.Uint32(head[0:4])
		atom := string(head[4:8])
		if size < 8 {
			return 0, errors.New("invalid sub-atom size")
		}
		if atom != "mvhd" {
			if _, err := f.Seek(int64(size)-8, io.SeekCurrent); err != nil {
				return 0, err
			}
			read += int64(size)
			continue
		}

		version := make([]byte, 1)
		if _, err := io.ReadFull(f, version); err != nil {
			return 0, err
		}
		var skip int64
		if version[0] == 1 {
			skip = 3 + 8 + 8 // flags + 64-bit creation/modification times
		} else {
			skip = 3 + 4 + 4
		}
		if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
			return 0, err
		}
		buf := make([]byte, 8)
		if _, err := io.ReadFull(f, buf); err != nil {
			return 0, err
		}
		timescale := binary.BigEndian.Uint32(buf[0:4])
		units := binary.BigEndian.Uint32(buf[4:8])
		if timescale == 0 {
			return 0, errors.New("invalid timescale")
		}
		secs := float64(units) / float64(timescale)
		return time.Duration(secs * float64(time.Second)), nil
	}
	return 0, errors.New("mvhd atom not found")
}

// estimateFromFileSize is a last resort when frame parsing fails.
func estimateFromFileSize(path string, bitrate int64) (time.Duration, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if bitrate <= 0 {
		return 0, errors.New("invalid bitrate")
	}
	secs := (st.Size() * 8) / bitrate
	return time.Duration(secs) * time.Second, nil
}

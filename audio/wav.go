// Package audio decodes RIFF/WAVE files into mono PCM for the embedding
// stage.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/kbukum/speakerbind/embedding"
	"github.com/kbukum/speakerbind/errors"
)

const (
	formatPCM        = 1
	formatIEEEFloat  = 3
	formatExtensible = 0xFFFE
)

type fmtChunk struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// ReadFile decodes the WAV file at path. The file's base name without
// extension becomes the audio source id.
func ReadFile(path string) (embedding.Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return embedding.Audio{}, errors.AudioUnreadable("open "+path, err)
	}
	defer f.Close()

	base := filepath.Base(path)
	return ReadWAV(f, strings.TrimSuffix(base, filepath.Ext(base)))
}

// ReadWAV decodes 16-bit or 32-bit integer PCM, or 32-bit float WAV data.
// Multi-channel audio is averaged down to mono. Unknown chunks are skipped.
func ReadWAV(r io.Reader, sourceID string) (embedding.Audio, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return embedding.Audio{}, errors.AudioUnreadable("read RIFF header", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return embedding.Audio{}, errors.AudioUnreadable("not a RIFF/WAVE file", nil)
	}

	var format *fmtChunk
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return embedding.Audio{}, errors.AudioUnreadable("missing data chunk", err)
		}
		id := string(hdr[0:4])
		size := binary.LittleEndian.Uint32(hdr[4:8])

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return embedding.Audio{}, errors.AudioUnreadable("read fmt chunk", err)
			}
			var fc fmtChunk
			if err := binary.Read(bytes.NewReader(body), binary.LittleEndian, &fc); err != nil {
				return embedding.Audio{}, errors.AudioUnreadable("parse fmt chunk", err)
			}
			if fc.AudioFormat == formatExtensible && len(body) >= 26 {
				fc.AudioFormat = binary.LittleEndian.Uint16(body[24:26])
			}
			format = &fc
		case "data":
			if format == nil {
				return embedding.Audio{}, errors.AudioUnreadable("data chunk before fmt chunk", nil)
			}
			data := make([]byte, size)
			n, err := io.ReadFull(r, data)
			if err != nil && err != io.ErrUnexpectedEOF {
				return embedding.Audio{}, errors.AudioUnreadable("read data chunk", err)
			}
			samples, err := decode(format, data[:n])
			if err != nil {
				return embedding.Audio{}, err
			}
			return embedding.Audio{SourceID: sourceID, SampleRate: int(format.SampleRate), Samples: samples}, nil
		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)); err != nil {
				return embedding.Audio{}, errors.AudioUnreadable("skip "+strings.TrimSpace(id)+" chunk", err)
			}
		}
		if size%2 == 1 {
			if _, err := io.CopyN(io.Discard, r, 1); err != nil {
				return embedding.Audio{}, errors.AudioUnreadable("read chunk padding", err)
			}
		}
	}
}

func decode(fc *fmtChunk, data []byte) ([]float32, error) {
	if fc.Channels == 0 || fc.SampleRate == 0 {
		return nil, errors.AudioUnreadable("fmt chunk declares no channels or sample rate", nil)
	}
	var sample func([]byte) float32
	width := int(fc.BitsPerSample / 8)
	switch {
	case fc.AudioFormat == formatPCM && fc.BitsPerSample == 16:
		sample = func(b []byte) float32 { return float32(int16(binary.LittleEndian.Uint16(b))) / 32768.0 }
	case fc.AudioFormat == formatPCM && fc.BitsPerSample == 32:
		sample = func(b []byte) float32 { return float32(float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648.0) }
	case fc.AudioFormat == formatIEEEFloat && fc.BitsPerSample == 32:
		sample = func(b []byte) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(b)) }
	default:
		return nil, errors.AudioUnreadable(fmt.Sprintf("unsupported encoding: format %d, %d bits", fc.AudioFormat, fc.BitsPerSample), nil)
	}

	channels := int(fc.Channels)
	frame := width * channels
	frames := len(data) / frame
	out := make([]float32, frames)
	for i := range frames {
		var sum float32
		for c := range channels {
			off := i*frame + c*width
			sum += sample(data[off : off+width])
		}
		out[i] = sum / float32(channels)
	}
	return out, nil
}

// WriteWAV encodes mono samples as 16-bit PCM. Samples are clipped to
// [-1, 1].
func WriteWAV(w io.Writer, a embedding.Audio) error {
	dataSize := uint32(len(a.Samples) * 2)
	hdr := struct {
		RIFF     [4]byte
		Size     uint32
		WAVE     [4]byte
		FmtID    [4]byte
		FmtSize  uint32
		Fmt      fmtChunk
		DataID   [4]byte
		DataSize uint32
	}{
		RIFF:    [4]byte{'R', 'I', 'F', 'F'},
		Size:    36 + dataSize,
		WAVE:    [4]byte{'W', 'A', 'V', 'E'},
		FmtID:   [4]byte{'f', 'm', 't', ' '},
		FmtSize: 16,
		Fmt: fmtChunk{
			AudioFormat:   formatPCM,
			Channels:      1,
			SampleRate:    uint32(a.SampleRate),
			ByteRate:      uint32(a.SampleRate * 2),
			BlockAlign:    2,
			BitsPerSample: 16,
		},
		DataID:   [4]byte{'d', 'a', 't', 'a'},
		DataSize: dataSize,
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("audio: write header: %w", err)
	}

	pcm := make([]int16, len(a.Samples))
	for i, s := range a.Samples {
		s = max(-1, min(1, s))
		pcm[i] = int16(s * 32767)
	}
	if err := binary.Write(w, binary.LittleEndian, pcm); err != nil {
		return fmt.Errorf("audio: write samples: %w", err)
	}
	return nil
}

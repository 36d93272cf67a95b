package recorder

import (
	"encoding/binary"
	"fmt"
	"os"
)

const wavHeaderSize = 44

// wavWriter streams s16le PCM into a RIFF/WAVE file. The header is written
// with zero sizes up front and patched on Close.
type wavWriter struct {
	f          *os.File
	sampleRate uint32
	channels   uint16
	dataLen    uint32
}

func newWAVWriter(path string, sampleRate uint32, channels uint16) (*wavWriter, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening wav destination: %w", err)
	}

	w := &wavWriter{f: f, sampleRate: sampleRate, channels: channels}
	if err := w.writeHeader(); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing wav header: %w", err)
	}
	return w, nil
}

func (w *wavWriter) writeHeader() error {
	const bitsPerSample = 16
	blockAlign := w.channels * bitsPerSample / 8
	byteRate := w.sampleRate * uint32(blockAlign)

	buf := make([]byte, wavHeaderSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], wavHeaderSize-8+w.dataLen)
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], w.channels)
	binary.LittleEndian.PutUint32(buf[24:28], w.sampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], byteRate)
	binary.LittleEndian.PutUint16(buf[32:34], blockAlign)
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], w.dataLen)

	if _, err := w.f.WriteAt(buf, 0); err != nil {
		return err
	}
	return nil
}

func (w *wavWriter) Write(pcm []byte) error {
	n, err := w.f.WriteAt(pcm, int64(wavHeaderSize+w.dataLen))
	w.dataLen += uint32(n)
	return err
}

func (w *wavWriter) Close() error {
	headerErr := w.writeHeader()
	syncErr := w.f.Sync()
	closeErr := w.f.Close()
	if headerErr != nil {
		return fmt.Errorf("patching wav header: %w", headerErr)
	}
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}

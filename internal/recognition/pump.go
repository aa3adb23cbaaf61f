package recognition

import (
	"errors"
	"fmt"
	"io"

	"voicewidget/internal/ports"
)

var (
	errAudioRead  = errors.New("audio capture error")
	errStreamSend = errors.New("failed to stream audio")
)

// pumpAudio copies microphone chunks into the provider stream until the
// microphone reaches EOF or either side fails.
func pumpAudio(audio ports.AudioSession, stream ports.StreamingSession, chunkSize int) error {
	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
				return fmt.Errorf("%w: %v", errStreamSend, sendErr)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: %v", errAudioRead, err)
		}
	}
}

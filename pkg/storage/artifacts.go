package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// TranscriptFile is the transcript artifact filename inside a meeting directory.
	TranscriptFile = "transcript.txt"
	// SummaryFile is the summary artifact filename inside a meeting directory.
	SummaryFile = "summary.md"
	// audioBaseName is the stored audio filename, extension decided per upload.
	audioBaseName = "audio"
)

// knownAudioExtensions are extensions accepted verbatim from the uploaded filename.
var knownAudioExtensions = map[string]bool{
	".webm": true,
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".mp4":  true,
	".ogg":  true,
}

// Artifacts stores per-meeting pipeline artifacts on the local filesystem,
// one directory per meeting id: raw audio, transcript.txt and summary.md.
// Artifacts are written once and never mutated.
type Artifacts struct {
	root string
}

// NewArtifacts creates an artifact store rooted at dir, creating it if needed.
func NewArtifacts(dir string) (*Artifacts, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Artifacts{root: dir}, nil
}

// MeetingDir returns the directory for one meeting's artifacts.
func (a *Artifacts) MeetingDir(meetingID string) string {
	return filepath.Join(a.root, meetingID)
}

// SaveAudio streams the uploaded recording into the meeting directory as
// audio.<ext>. The extension comes from the uploaded filename when it is a
// known audio type; otherwise the first bytes are sniffed for MP4/M4A, WAV
// or MP3 container markers, defaulting to .m4a.
func (a *Artifacts) SaveAudio(meetingID, filename string, r io.Reader) (string, error) {
	dir := a.MeetingDir(meetingID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create meeting dir: %w", err)
	}

	head := make([]byte, 12)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("read audio: %w", err)
	}
	head = head[:n]

	path := filepath.Join(dir, audioBaseName+AudioExtension(filename, head))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, io.MultiReader(bytes.NewReader(head), r)); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	return path, nil
}

// AudioExtension decides the stored audio extension from the uploaded
// filename, falling back to content-signature sniffing of head.
func AudioExtension(filename string, head []byte) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if knownAudioExtensions[ext] {
		return ext
	}
	switch {
	case len(head) >= 8 && bytes.Equal(head[4:8], []byte("ftyp")):
		return ".m4a"
	case len(head) >= 12 && bytes.HasPrefix(head, []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WAVE")):
		return ".wav"
	case bytes.HasPrefix(head, []byte("ID3")):
		return ".mp3"
	case len(head) >= 2 && head[0] == 0xFF && head[1]&0xE0 == 0xE0:
		return ".mp3"
	default:
		return ".m4a"
	}
}

// SaveTranscript writes the transcript artifact and returns its path.
func (a *Artifacts) SaveTranscript(meetingID, text string) (string, error) {
	return a.write(meetingID, TranscriptFile, text)
}

// SaveSummary writes the summary artifact and returns its path.
func (a *Artifacts) SaveSummary(meetingID, text string) (string, error) {
	return a.write(meetingID, SummaryFile, text)
}

func (a *Artifacts) write(meetingID, name, text string) (string, error) {
	dir := a.MeetingDir(meetingID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create meeting dir: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// ReadFile reads an artifact back by absolute path (as stored on the meeting
// record). Used by status/summary queries and the admin overview.
func ReadFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

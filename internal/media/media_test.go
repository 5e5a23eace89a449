package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/plumefeed/plume/internal/models"
)

func TestDetectType(t *testing.T) {
	cases := []struct {
		path string
		want models.MediaType
	}{
		{"photo.JPG", models.MediaImage},
		{"clip.mp4", models.MediaVideo},
		{"song.flac", models.MediaAudio},
		{"notes.pdf", models.MediaDocument},
		{"no-extension", models.MediaDocument},
	}

	for _, tc := range cases {
		if got := DetectType(tc.path); got != tc.want {
			t.Errorf("DetectType(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestStageWithoutUploaderPassesURIsThrough(t *testing.T) {
	got, err := Stage(context.Background(), nil, []string{
		"https://cdn.example/a.png",
		"https://cdn.example/b.mp4",
	})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 attachments got %d", len(got))
	}
	if got[0].Path != "https://cdn.example/a.png" || got[0].TypeID != models.MediaImage.TypeID() {
		t.Fatalf("unexpected attachment: %+v", got[0])
	}
	if got[1].TypeID != models.MediaVideo.TypeID() {
		t.Fatalf("unexpected attachment: %+v", got[1])
	}
}

func TestStageEmptyInput(t *testing.T) {
	got, err := Stage(context.Background(), nil, nil)
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil for no paths: %v %v", got, err)
	}
}

type fakeUploader struct {
	mu    sync.Mutex
	saved map[string]string
	err   error
}

func (u *fakeUploader) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	u.mu.Lock()
	if u.saved == nil {
		u.saved = make(map[string]string)
	}
	u.saved[name] = string(data)
	u.mu.Unlock()
	return "https://store.example/" + name, nil
}

func TestStageUploadsLocalFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.png")
	second := filepath.Join(dir, "b.mp3")
	if err := os.WriteFile(first, []byte("png-bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.WriteFile(second, []byte("mp3-bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	up := &fakeUploader{}
	got, err := Stage(context.Background(), up, []string{first, second})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 attachments got %d", len(got))
	}

	// order follows the input regardless of upload completion order
	if !strings.HasSuffix(got[0].Path, ".png") || got[0].TypeID != models.MediaImage.TypeID() {
		t.Fatalf("unexpected first attachment: %+v", got[0])
	}
	if !strings.HasSuffix(got[1].Path, ".mp3") || got[1].TypeID != models.MediaAudio.TypeID() {
		t.Fatalf("unexpected second attachment: %+v", got[1])
	}
	if len(up.saved) != 2 {
		t.Fatalf("expected 2 uploads got %d", len(up.saved))
	}
	for name := range up.saved {
		if name == "a.png" || name == "b.mp3" {
			t.Fatalf("expected generated storage key, got original name %q", name)
		}
	}
}

func TestStageUploadFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.png")
	if err := os.WriteFile(path, []byte("png-bytes"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	wantErr := errors.New("bucket unavailable")
	got, err := Stage(context.Background(), &fakeUploader{err: wantErr}, []string{path})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected upload error surfaced, got %v", err)
	}
	if got != nil {
		t.Fatal("no attachments may be returned on failure")
	}
}

func TestStageMissingFile(t *testing.T) {
	_, err := Stage(context.Background(), &fakeUploader{}, []string{filepath.Join(t.TempDir(), "absent.png")})
	if err == nil {
		t.Fatal("expected error for a missing local file")
	}
}

func TestPrefixedUploader(t *testing.T) {
	up := &fakeUploader{}
	prefixed := &PrefixedUploader{Prefix: "u1", Base: up}

	location, err := prefixed.Save(context.Background(), "key.png", strings.NewReader("bytes"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(location, "u1/key.png") {
		t.Fatalf("expected prefixed key in location, got %q", location)
	}
}

package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fitroom/internal/repository"
	"fitroom/pkg/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, pngHeader, 0644))
	return path
}

func newTestCLISession(t *testing.T, script string) (*CLISession, *repository.Workspace, *bytes.Buffer) {
	t.Helper()
	ws, err := repository.OpenWorkspace(filepath.Join(t.TempDir(), ".fitroom"))
	require.NoError(t, err)

	studio := NewStudio(testPoses, schema.DefaultScenes[0])
	engine := NewEngine(NewMockSynthesizer(), studio, ws.Wardrobe(), newSlogLogger("error", io.Discard))
	engine.SetEventSink(ws.Journal())

	out := &bytes.Buffer{}
	session := NewCLISession(engine, ws, schema.DefaultScenes)
	session.In = strings.NewReader(script)
	session.Out = out
	return session, ws, out
}

func TestCLISession_Run(t *testing.T) {
	dir := t.TempDir()
	photo := writePNG(t, dir, "me.png")
	tee := writePNG(t, dir, "linen-shirt.png")
	exported := filepath.Join(dir, "look.png")

	script := strings.Join([]string{
		"help",
		"photo " + photo,
		"wear " + tee,
		"pose 2",
		"scene 2",
		"layers",
		"remove 0",
		"undo",
		"redo",
		"export " + exported,
		"save",
		"reset",
		"resume",
		"wardrobe",
		"rate",
		"design Raincoat: yellow raincoat with toggles",
		"quit",
	}, "\n")

	session, ws, out := newTestCLISession(t, script)
	require.NoError(t, session.Run(context.Background()))

	output := out.String()
	assert.Contains(t, output, "Fitting room ready")
	assert.Contains(t, output, "Trying on linen-shirt")
	assert.Contains(t, output, "Paris street cafe")
	assert.Contains(t, output, "❌ Cannot remove the base model.")
	assert.Contains(t, output, "💾 Saved")
	assert.Contains(t, output, "Studio cleared")
	assert.Contains(t, output, "82/100")
	assert.Contains(t, output, "Added Raincoat")
	assert.Contains(t, output, "👋 Bye")

	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Equal(t, "TRYON", string(data))

	// Resumed studio carries the saved outfit.
	tl := session.Engine.Studio().Timeline
	assert.Equal(t, 2, tl.Len())
	assert.Equal(t, "Paris street cafe", session.Engine.Studio().Scene())

	items, err := ws.Wardrobe().List(context.Background())
	require.NoError(t, err)
	var names []string
	for _, item := range items {
		names = append(names, item.Name)
	}
	assert.Contains(t, names, "linen-shirt")
	assert.Contains(t, names, "Raincoat")

	events, err := ws.Journal().ReadJournal()
	require.NoError(t, err)
	assert.NotEmpty(t, events)
	assert.Equal(t, "BaseModelCreated", events[0].EventType())

	_, err = os.Stat(filepath.Join(ws.Dir(), ".lock"))
	assert.True(t, os.IsNotExist(err), "lock released")
}

func TestCLISession_Rejections(t *testing.T) {
	session, _, out := newTestCLISession(t, "wear gemini-tee\npose 9\nscene\nfly\n")
	require.NoError(t, session.Run(context.Background()))

	output := out.String()
	assert.Contains(t, output, "· no image is displayed yet")
	assert.Contains(t, output, `unknown command "fly"`)
	assert.Contains(t, output, "Tokyo neon night")
	assert.Empty(t, session.Engine.Studio().ErrorMessage())
}

func TestCLISession_WearFromWardrobe(t *testing.T) {
	dir := t.TempDir()
	photo := writePNG(t, dir, "me.png")

	session, _, out := newTestCLISession(t, "photo "+photo+"\nwear gemini-tee\nwear gemini-tee\nquit\n")
	synth := session.Engine.synth.(*MockSynthesizer)
	require.NoError(t, session.Run(context.Background()))

	assert.Equal(t, 1, synth.TryOnCalls)
	assert.Equal(t, schema.ImageRef(schema.DefaultWardrobe()[1].URL), synth.LastTryOn.Garment)
	assert.Contains(t, out.String(), "· garment is already worn")
}

func TestCLISession_LockHeld(t *testing.T) {
	session, ws, _ := newTestCLISession(t, "quit\n")

	other := ws.Lock("cli")
	require.NoError(t, other.Acquire())
	defer other.Release()

	err := session.Run(context.Background())

	var le *LockError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "acquire", le.Operation)
	assert.Contains(t, err.Error(), "failed to acquire lock")
}

func TestReadImageFile(t *testing.T) {
	dir := t.TempDir()

	img, err := ReadImageFile(writePNG(t, dir, "a.png"))
	require.NoError(t, err)
	assert.Equal(t, schema.MimePNG, img.MimeType())

	_, err = ReadImageFile("")
	assert.ErrorIs(t, err, ErrNoSelection)

	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0644))
	_, err = ReadImageFile(text)
	assert.ErrorIs(t, err, schema.ErrUnsupportedMimeType)
	assert.Equal(t, "This file type is not supported. Please use a format like PNG, JPEG, or WEBP.", UserMessage(err))
}

func TestWriteImageFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")

	require.NoError(t, WriteImageFile(path, "data:image/png;base64,UE9TRQ=="))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "POSE", string(data))

	assert.Error(t, WriteImageFile(path, "https://example.com/x.png"))
	var ve *ValidationError
	assert.True(t, errors.As(WriteImageFile("", "data:image/png;base64,eA=="), &ve))
}

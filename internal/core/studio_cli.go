package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fitroom/internal/repository"
	"fitroom/pkg/schema"

	"github.com/jedib0t/go-pretty/v6/table"
)

// SessionStore saves and restores studios.
type SessionStore interface {
	Save(snap *schema.SessionSnapshot) (string, error)
	LoadLatest() (*schema.SessionSnapshot, error)
}

// CLISession manages an interactive studio session.
type CLISession struct {
	Engine   *Engine
	Wardrobe Wardrobe
	Sessions SessionStore
	Lock     *repository.FileLock
	Scenes   []string

	In  io.Reader
	Out io.Writer
}

// NewCLISession creates a studio session over a workspace.
func NewCLISession(engine *Engine, ws *repository.Workspace, scenes []string) *CLISession {
	return &CLISession{
		Engine:   engine,
		Wardrobe: ws.Wardrobe(),
		Sessions: ws.Sessions(),
		Lock:     ws.Lock("studio"),
		Scenes:   scenes,
		In:       os.Stdin,
		Out:      os.Stdout,
	}
}

// Run executes the interactive session loop until quit or end of input.
func (s *CLISession) Run(ctx context.Context) error {
	if err := s.Lock.Acquire(); err != nil {
		return &LockError{Operation: "acquire", Message: "failed to acquire lock", Err: err}
	}
	defer func() {
		if err := s.Lock.Release(); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Failed to release lock: %v\n", err)
		}
	}()
	// Registrations still running are allowed to land before the lock goes.
	defer s.Engine.Wait()

	fmt.Fprintln(s.Out, "👗 Fitting room ready. Type 'help' for commands.")

	scanner := bufio.NewScanner(s.In)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(s.Out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		cmd, args, _ := strings.Cut(line, " ")
		args = strings.TrimSpace(args)
		if cmd == "quit" || cmd == "exit" {
			break
		}

		err := s.dispatch(ctx, strings.ToLower(cmd), args)
		s.report(err)
		s.drainRegistrations()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	fmt.Fprintln(s.Out, "👋 Bye")
	return nil
}

func (s *CLISession) dispatch(ctx context.Context, cmd, args string) error {
	studio := s.Engine.Studio()
	tl := studio.Timeline

	switch cmd {
	case "help":
		s.printHelp()
		return nil

	case "photo":
		photo, err := ReadImageFile(args)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.Out, "🧍 Creating your model...")
		if err := s.Engine.CreateBaseModel(ctx, photo); err != nil {
			return err
		}
		s.printStatus()
		return nil

	case "wear":
		ref, name, _ := strings.Cut(args, " ")
		upload, err := s.resolveGarment(ctx, ref, strings.TrimSpace(name))
		if err != nil {
			return err
		}
		fmt.Fprintf(s.Out, "👕 Trying on %s...\n", upload.Item.Name)
		if err := s.Engine.ApplyGarment(ctx, upload); err != nil {
			return err
		}
		s.printStatus()
		return nil

	case "outfit":
		var uploads []GarmentUpload
		for _, ref := range strings.Fields(args) {
			upload, err := s.resolveGarment(ctx, ref, "")
			if err != nil {
				return err
			}
			uploads = append(uploads, upload)
		}
		fmt.Fprintf(s.Out, "👔 Composing %d garments...\n", len(uploads))
		if err := s.Engine.ApplyGarments(ctx, uploads); err != nil {
			return err
		}
		s.printStatus()
		return nil

	case "pose":
		if args == "" {
			s.printPoses()
			return nil
		}
		n, err := strconv.Atoi(args)
		if err != nil {
			return &ValidationError{Field: "pose", Message: "expected a pose number"}
		}
		if err := s.Engine.ChangePose(ctx, n-1); err != nil {
			return err
		}
		s.printStatus()
		return nil

	case "scene":
		if args == "" {
			s.printScenes()
			return nil
		}
		scene := args
		if n, err := strconv.Atoi(args); err == nil && n >= 1 && n <= len(s.Scenes) {
			scene = s.Scenes[n-1]
		}
		if err := s.Engine.ChangeScene(ctx, scene); err != nil {
			return err
		}
		s.printStatus()
		return nil

	case "undo":
		if err := s.Engine.Undo(); err != nil {
			return err
		}
		s.printStatus()
		return nil

	case "redo":
		if err := s.Engine.Redo(); err != nil {
			return err
		}
		s.printStatus()
		return nil

	case "remove":
		n, err := strconv.Atoi(args)
		if err != nil {
			return &ValidationError{Field: "layer", Message: "expected a layer number"}
		}
		if err := s.Engine.RemoveLayer(n); err != nil {
			return err
		}
		s.printStatus()
		return nil

	case "layers":
		s.printLayers()
		return nil

	case "wardrobe":
		return s.printWardrobe(ctx)

	case "design":
		name, description, found := strings.Cut(args, ":")
		if !found {
			name, description = "", args
		}
		fmt.Fprintln(s.Out, "✂️  Designing garment...")
		item, err := s.Engine.CreateGarment(ctx, name, description)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.Out, "✅ Added %s (%s) to the wardrobe\n", item.Name, item.ID)
		return nil

	case "rate":
		fmt.Fprintln(s.Out, "🧐 Asking the stylist...")
		analysis, err := s.Engine.AnalyzeStyle(ctx)
		if err != nil {
			return err
		}
		PrintStyleAnalysis(s.Out, analysis)
		return nil

	case "save":
		name, err := s.Sessions.Save(studio.Snapshot())
		if err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		fmt.Fprintf(s.Out, "💾 Saved %s\n", name)
		return nil

	case "resume":
		snap, err := s.Sessions.LoadLatest()
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		if snap == nil {
			fmt.Fprintln(s.Out, "No saved sessions.")
			return nil
		}
		if err := s.Engine.Resume(snap); err != nil {
			return err
		}
		s.printStatus()
		return nil

	case "export":
		img, ok := tl.CurrentImage()
		if !ok {
			return ErrNotReady
		}
		if err := WriteImageFile(args, img); err != nil {
			return err
		}
		fmt.Fprintf(s.Out, "🖼  Wrote %s\n", args)
		return nil

	case "reset":
		if err := s.Engine.StartOver(); err != nil {
			return err
		}
		fmt.Fprintln(s.Out, "🔄 Studio cleared. Use 'photo <file>' to start again.")
		return nil

	default:
		return &ValidationError{Field: "command", Message: fmt.Sprintf("unknown command %q", cmd)}
	}
}

// resolveGarment turns a wardrobe id or an image path into an upload.
func (s *CLISession) resolveGarment(ctx context.Context, ref, name string) (GarmentUpload, error) {
	if ref == "" {
		return GarmentUpload{}, ErrNoSelection
	}

	items, err := s.Wardrobe.List(ctx)
	if err != nil {
		return GarmentUpload{}, fmt.Errorf("list wardrobe: %w", err)
	}
	for _, item := range items {
		if item.ID == ref {
			return GarmentUpload{Item: item, Image: schema.ImageRef(item.URL)}, nil
		}
	}

	img, err := ReadImageFile(ref)
	if err != nil {
		return GarmentUpload{}, err
	}
	id, err := schema.NewGarmentID()
	if err != nil {
		return GarmentUpload{}, fmt.Errorf("generate garment id: %w", err)
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(ref), filepath.Ext(ref))
	}
	return GarmentUpload{
		Item:  schema.WardrobeItem{ID: id, Name: name, URL: string(img)},
		Image: img,
	}, nil
}

func (s *CLISession) report(err error) {
	if err == nil {
		return
	}
	if IsRejected(err) {
		fmt.Fprintf(s.Out, "· %v\n", err)
		return
	}
	if msg := s.Engine.Studio().ErrorMessage(); msg != "" {
		fmt.Fprintf(s.Out, "❌ %s\n", msg)
		return
	}
	fmt.Fprintf(s.Out, "❌ %v\n", err)
}

func (s *CLISession) drainRegistrations() {
	for {
		select {
		case err := <-s.Engine.RegistrationErrors():
			fmt.Fprintf(s.Out, "⚠️  Wardrobe not updated: %v\n", err)
		default:
			return
		}
	}
}

func (s *CLISession) printStatus() {
	studio := s.Engine.Studio()
	tl := studio.Timeline
	if !tl.IsActive() {
		fmt.Fprintln(s.Out, "No model yet.")
		return
	}
	layer, _ := tl.ActiveLayer()
	poses := tl.Poses()
	img, _ := tl.CurrentImage()
	fmt.Fprintf(s.Out, "📸 Layer %d/%d %s | pose %d %q | scene %s | %s\n",
		tl.Cursor(), tl.Len()-1, layer.Label(),
		tl.ActivePoseIndex()+1, poses[tl.ActivePoseIndex()],
		studio.Scene(), img.Short())
}

func (s *CLISession) printLayers() {
	tl := s.Engine.Studio().Timeline
	cursor := tl.Cursor()

	t := table.NewWriter()
	t.SetOutputMirror(s.Out)
	t.AppendHeader(table.Row{"#", "Layer", "ID", "Poses", ""})
	for i, layer := range tl.Layers() {
		marker := ""
		switch {
		case i == cursor:
			marker = "◀ current"
		case i > cursor:
			marker = "redo"
		}
		t.AppendRow(table.Row{i, layer.Label(), layer.ID, layer.PoseImages.Len(), marker})
	}
	t.Render()
}

func (s *CLISession) printPoses() {
	tl := s.Engine.Studio().Timeline
	ready := map[string]bool{}
	for _, key := range tl.AvailablePoseKeys() {
		ready[key] = true
	}

	t := table.NewWriter()
	t.SetOutputMirror(s.Out)
	t.AppendHeader(table.Row{"#", "Pose", "Rendered"})
	for i, pose := range tl.Poses() {
		mark := ""
		if ready[pose] {
			mark = "✓"
		}
		if i == tl.ActivePoseIndex() {
			pose = pose + " ◀"
		}
		t.AppendRow(table.Row{i + 1, pose, mark})
	}
	t.Render()
}

func (s *CLISession) printScenes() {
	current := s.Engine.Studio().Scene()

	t := table.NewWriter()
	t.SetOutputMirror(s.Out)
	t.AppendHeader(table.Row{"#", "Scene"})
	for i, scene := range s.Scenes {
		if scene == current {
			scene = scene + " ◀"
		}
		t.AppendRow(table.Row{i + 1, scene})
	}
	t.Render()
}

func (s *CLISession) printWardrobe(ctx context.Context) error {
	items, err := s.Wardrobe.List(ctx)
	if err != nil {
		return fmt.Errorf("list wardrobe: %w", err)
	}
	tl := s.Engine.Studio().Timeline
	PrintWardrobe(s.Out, items, tl.IsWorn)
	return nil
}

func (s *CLISession) printHelp() {
	t := table.NewWriter()
	t.SetOutputMirror(s.Out)
	t.AppendHeader(table.Row{"Command", "Description"})
	t.AppendRows([]table.Row{
		{"photo <file>", "Create your model from a photo"},
		{"wear <id|file> [name]", "Try on a wardrobe garment or an image file"},
		{"outfit <id|file>...", "Try on several garments in one render"},
		{"pose [n]", "List poses or switch to pose n"},
		{"scene [n|text]", "List scenes or change the background"},
		{"undo / redo", "Step through the outfit history"},
		{"remove <n>", "Remove garment layer n"},
		{"layers", "Show the outfit history"},
		{"wardrobe", "Show the wardrobe"},
		{"design [name:] <text>", "Design a garment from a description"},
		{"rate", "Get a stylist's critique"},
		{"save / resume", "Save the studio or restore the last save"},
		{"export <file>", "Write the displayed image"},
		{"reset", "Start over"},
		{"quit", "Leave the fitting room"},
	})
	t.Render()
}

// PrintWardrobe renders items as a table. worn may be nil.
func PrintWardrobe(w io.Writer, items []schema.WardrobeItem, worn func(id string) bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Name", "Image", "Worn"})
	for _, item := range items {
		mark := ""
		if worn != nil && worn(item.ID) {
			mark = "✓"
		}
		t.AppendRow(table.Row{item.ID, item.Name, schema.ImageRef(item.URL).Short(), mark})
	}
	t.Render()
}

// PrintStyleAnalysis renders a stylist critique.
func PrintStyleAnalysis(w io.Writer, a *schema.StyleAnalysis) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("%d/100  %s", a.Score, a.Verdict))
	t.AppendRows([]table.Row{
		{"Fit", a.FitAnalysis},
		{"Color", a.ColorCoordination},
		{"Occasion", a.Occasion},
		{"Accessory", a.Accessory},
	})
	t.Render()
}

// ReadImageFile loads an image file as a data URL.
func ReadImageFile(path string) (schema.ImageRef, error) {
	if path == "" {
		return "", ErrNoSelection
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mime := http.DetectContentType(data)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return schema.EncodeDataURL(mime, data)
}

// WriteImageFile decodes a data URL image into path.
func WriteImageFile(path string, img schema.ImageRef) error {
	if path == "" {
		return &ValidationError{Field: "path", Message: "output file is required"}
	}
	_, data, err := schema.DecodeDataURL(img)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return nil
}

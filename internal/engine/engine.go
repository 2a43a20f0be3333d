package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/patrickmn/go-cache"
	"github.com/sgostarter/i/l"

	"github.com/ivlev/keyframer/internal/animation"
	"github.com/ivlev/keyframer/internal/camera"
	"github.com/ivlev/keyframer/internal/camerapath"
	"github.com/ivlev/keyframer/internal/config"
	"github.com/ivlev/keyframer/internal/director"
	"github.com/ivlev/keyframer/internal/interp"
	"github.com/ivlev/keyframer/internal/renderer"
	"github.com/ivlev/keyframer/internal/system"
)

// Result describes one sampled and rendered revision
type Result struct {
	Revision   uint64
	Paths      []*camerapath.Path
	Output     string
	SampleTime time.Duration
	RenderTime time.Duration
}

func (r *Result) Samples() int {
	n := 0
	for _, p := range r.Paths {
		n += p.Len()
	}
	return n
}

// Session loads a project, samples its camera paths and renders previews.
// In watch mode every edit of the project file publishes a new revision and
// a stale resample still in flight is cancelled.
type Session struct {
	Config *config.Config
	Camera *camera.Camera

	logger  l.Wrapper
	ic      *interp.Context
	cache   *cache.Cache
	preview *renderer.Preview

	anim        *animation.Animation
	projectPath string
	project     *director.Project

	mu     sync.Mutex
	cancel context.CancelFunc
	latest *Result
	wg     sync.WaitGroup

	writeMu sync.Mutex
	written uint64
}

func NewSession(cfg *config.Config, logger l.Wrapper) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := interp.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = l.NewNopLoggerWrapper()
	}

	preview := renderer.NewPreview(cfg.Width, cfg.Height)
	if !cfg.World {
		// lon across, lat up
		preview.Axes = [2]int{1, 0}
	}

	return &Session{
		Config:  cfg,
		Camera:  camera.New("camera"),
		logger:  logger.WithFields(l.StringField(l.ClsKey, "session")),
		ic:      interp.NewContext(interp.WithMode(mode), interp.WithCache()),
		cache:   camerapath.NewCache(),
		preview: preview,
	}, nil
}

// Animation returns the loaded animation, nil before Load
func (s *Session) Animation() *animation.Animation { return s.anim }

func (s *Session) ProjectPath() string { return s.projectPath }

func (s *Session) Run(ctx context.Context) error {
	startTime := time.Now()

	if s.Config.Generate {
		return s.handleGenerate()
	}

	if err := s.Load(); err != nil {
		return err
	}

	snap := s.anim.Snapshot()
	first, _ := snap.FirstFrame()
	last, _ := snap.LastFrame()
	fmt.Println("--- [KEYFRAMER] ---")
	fmt.Printf("[*] Проект: %s | Ключевых кадров: %d | Кадры %d..%d\n", s.projectPath, len(snap.KeyFrames()), first, last)
	fmt.Printf("[*] Интерполяция: %s | Шаг: %d | Потоки: %d\n", s.ic.Mode(), s.Config.Step, s.Config.Workers)
	fmt.Println("-----------------------------")

	res, err := s.Render(ctx)
	if err != nil {
		return err
	}
	s.setLatest(res)
	fmt.Printf("[+++] Превью сохранено: %s\n", res.Output)

	if s.Config.ExportExpr != "" {
		if err := s.exportExpressions(res.Paths); err != nil {
			return err
		}
	}

	if s.Config.ShowStats {
		s.printStats(res, time.Since(startTime))
	}

	if !s.Config.Watch {
		return nil
	}
	return s.Watch(ctx)
}

// Load reads the project file and builds the animation
func (s *Session) Load() error {
	path := s.Config.ProjectPath
	if path == "" {
		latest, err := director.FindLatestProject(s.Config.ProjectDir)
		if err != nil {
			return fmt.Errorf("проект не найден: %w", err)
		}
		path = latest
		fmt.Printf("[*] Выбран проект: %s\n", path)
	}

	project, err := director.ReadProject(path)
	if err != nil {
		return fmt.Errorf("ошибка чтения проекта: %w", err)
	}
	a, err := director.Decode(project, s.Camera.Parameters()...)
	if err != nil {
		return fmt.Errorf("ошибка проекта %s: %w", path, err)
	}

	s.projectPath = path
	s.project = project
	s.anim = a
	if s.Config.OutputImage == "" {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		s.Config.OutputImage = filepath.Join("output", name+"_preview.png")
	}

	s.logger.WithFields(l.StringField("project", path), l.IntField("keyFrames", len(a.KeyFrames()))).
		Debug("project loaded")
	return nil
}

// Reload re-reads the project file and replaces the animation contents in a
// single update, so subscribers see one new revision
func (s *Session) Reload() error {
	project, err := director.ReadProject(s.projectPath)
	if err != nil {
		return err
	}
	known := append(s.Camera.Parameters(), s.anim.Parameters()...)
	decoded, err := director.Decode(project, known...)
	if err != nil {
		return err
	}

	s.project = project
	return replaceContents(s.anim, decoded.Snapshot())
}

func replaceContents(dst *animation.Animation, src *animation.Snapshot) error {
	return dst.Update(func(tx *animation.Tx) error {
		for _, kf := range tx.Snapshot().KeyFrames() {
			tx.RemoveKeyFrame(kf.Frame())
		}
		for _, p := range src.Parameters() {
			if err := tx.SetEnabled(p, src.Enabled(p)); err != nil {
				return err
			}
		}
		for _, kf := range src.KeyFrames() {
			for _, pv := range kf.Values() {
				if err := tx.AddOrReplaceValue(pv.Owner, kf.Frame(), pv.Value); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// samplers returns the camera paths that are fully keyed plus one path for
// every other keyed parameter
func (s *Session) samplers(snap *animation.Snapshot) []*camerapath.Sampler {
	opts := []camerapath.Option{
		camerapath.WithContext(s.ic),
		camerapath.WithCache(s.cache),
		camerapath.WithLogger(s.logger),
	}
	var globe *camera.Globe
	if s.Config.World {
		globe = &camera.Earth
	}

	var out []*camerapath.Sampler
	for _, sampler := range []*camerapath.Sampler{
		s.Camera.LookatPath(globe, opts...),
		s.Camera.EyePath(globe, opts...),
	} {
		if keyed(snap, sampler.Tracked()...) {
			out = append(out, sampler)
		}
	}

	cameraParams := map[string]bool{}
	for _, p := range s.Camera.Parameters() {
		cameraParams[p.ID] = true
	}
	for _, p := range snap.Parameters() {
		if cameraParams[p.ID] || !keyed(snap, p) {
			continue
		}
		out = append(out, camerapath.New(p.ID, []*animation.Parameter{p}, camerapath.Identity, opts...))
	}
	return out
}

func keyed(snap *animation.Snapshot, params ...*animation.Parameter) bool {
	for _, p := range params {
		if len(snap.ControlPoints(p)) == 0 {
			return false
		}
	}
	return true
}

// Render samples all paths of the current revision and writes the preview
func (s *Session) Render(ctx context.Context) (*Result, error) {
	snap := s.anim.Snapshot()
	samplers := s.samplers(snap)
	if len(samplers) == 0 {
		return nil, fmt.Errorf("в проекте нет анимированных параметров")
	}

	sampleStart := time.Now()
	paths, err := camerapath.SampleAll(ctx, snap, s.Config.Step, s.Config.Workers, samplers...)
	if err != nil {
		return nil, err
	}
	sampleTime := time.Since(sampleStart)

	renderStart := time.Now()
	img, err := s.preview.Render(paths)
	if err != nil {
		return nil, err
	}
	defer s.preview.Release(img)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.writePreview(snap.Revision(), img); err != nil {
		return nil, err
	}

	return &Result{
		Revision:   snap.Revision(),
		Paths:      paths,
		Output:     s.Config.OutputImage,
		SampleTime: sampleTime,
		RenderTime: time.Since(renderStart),
	}, nil
}

// writePreview never lets an older revision overwrite a newer preview
func (s *Session) writePreview(revision uint64, img *image.RGBA) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if revision < s.written {
		return nil
	}

	out := s.Config.OutputImage
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}
	tmp := out + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := renderer.WritePNG(f, img); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, out); err != nil {
		os.Remove(tmp)
		return err
	}
	s.written = revision
	return nil
}

// Watch re-renders on every change of the project file until ctx is done
func (s *Session) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// editors often replace the file, so watch its directory
	if err := watcher.Add(filepath.Dir(s.projectPath)); err != nil {
		return err
	}
	s.anim.Subscribe(func(revision uint64) {
		s.resample(ctx, revision)
	})

	fmt.Printf("[*] Наблюдение за %s (Ctrl+C для выхода)\n", s.projectPath)
	target := filepath.Clean(s.projectPath)
	for {
		select {
		case <-ctx.Done():
			s.Wait()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target ||
				event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.Reload(); err != nil {
				fmt.Printf("[!] Проект не перезагружен: %v\n", err)
				s.logger.WithFields(l.ErrorField(err)).Error("reload failed")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.WithFields(l.ErrorField(err)).Error("watcher error")
		}
	}
}

// resample cancels the render in flight and starts one for revision
func (s *Session) resample(ctx context.Context, revision uint64) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	jobCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer cancel()

		logger := s.logger.WithFields(l.UInt64Field("revision", revision))
		res, err := s.Render(jobCtx)
		if errors.Is(err, context.Canceled) {
			logger.Debug("resample superseded")
			return
		}
		if err != nil {
			fmt.Printf("[!] Ошибка пересчёта ревизии %d: %v\n", revision, err)
			logger.WithFields(l.ErrorField(err)).Error("resample failed")
			return
		}
		s.setLatest(res)
		fmt.Printf("[>] Ревизия %d: %d точек за %s\n", res.Revision, res.Samples(), res.SampleTime.Round(time.Microsecond))
	}()
}

// Wait blocks until no resample is running
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) setLatest(res *Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil || res.Revision >= s.latest.Revision {
		s.latest = res
	}
}

// Latest returns the newest finished result
func (s *Session) Latest() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Session) exportExpressions(paths []*camerapath.Path) error {
	name := s.Config.ExportExpr
	if name == "zoompan" {
		eye := findPath(paths, s.Camera.Name+".eye")
		if eye == nil {
			return fmt.Errorf("zoompan требует географический путь %s.eye", s.Camera.Name)
		}
		filter, err := renderer.GenerateZoomPanFilter(eye, 3600, 1800, s.Config.Width, s.Config.Height, s.Config.FPS, 1e7)
		if err != nil {
			return err
		}
		fmt.Println(filter)
		return nil
	}

	path := findPath(paths, name)
	if path == nil {
		return fmt.Errorf("путь %s не найден", name)
	}
	dim := path.Positions[0].Kind().Dim()
	for c := 0; c < dim; c++ {
		expr, err := renderer.PiecewiseExpression(path, c)
		if err != nil {
			return err
		}
		fmt.Printf("%s[%d]=%s\n", path.Name, c, expr)
	}
	return nil
}

func findPath(paths []*camerapath.Path, name string) *camerapath.Path {
	for _, p := range paths {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (s *Session) handleGenerate() error {
	fmt.Println("[*] Режим генерации проекта...")

	dir := director.NewDirector(s.Config.FPS, s.logger)
	name := "fly-through"
	project, err := dir.Generate(name, s.Camera, DefaultWaypoints, s.Config.Duration)
	if err != nil {
		return err
	}

	outputPath := s.Config.ProjectPath
	if outputPath == "" {
		outputPath = director.GenerateProjectPath(s.Config.ProjectDir)
	}

	// Убеждаемся, что директория существует
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return err
	}
	if err := director.WriteProject(project, outputPath); err != nil {
		return err
	}

	s.projectPath = outputPath
	s.project = project
	fmt.Printf("[+++] Успех! Проект сохранен: %s\n", outputPath)
	return nil
}

func (s *Session) printStats(res *Result, total time.Duration) {
	rss, err := system.ResidentMemory()
	if err != nil {
		s.logger.WithFields(l.ErrorField(err)).Debug("no memory stats")
	}

	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.3fs\n"+
			"Sampling: %.3fs\n"+
			"Rendering: %.3fs\n"+
			"Paths: %d | Samples: %d\n"+
			"Cached paths: %d\n"+
			"RSS: %.1f MiB\n"+
			"----------------------------\n",
		s.Config.BuildVersion, total.Seconds(), res.SampleTime.Seconds(), res.RenderTime.Seconds(),
		len(res.Paths), res.Samples(), s.cache.ItemCount(), float64(rss)/(1<<20),
	)
	fmt.Print(report)

	// Логирование в файл
	logEntry := fmt.Sprintf("[%s] Build: %s | Project: %s | Samples: %d | Total: %.3fs | Sampling: %.3fs | Render: %.3fs\n",
		time.Now().Format("2006-01-02 15:04:05"),
		s.Config.BuildVersion,
		filepath.Base(s.projectPath),
		res.Samples(),
		total.Seconds(),
		res.SampleTime.Seconds(),
		res.RenderTime.Seconds(),
	)

	f, err := os.OpenFile("benchmark.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Printf("[!] Не удалось записать benchmark.log: %v\n", err)
	}
}

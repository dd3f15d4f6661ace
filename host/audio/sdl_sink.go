package audio

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/Zyko0/go-sdl3/sdl"
)

// sdlInitOnce guards the one-time library load + sdl.Init(INIT_AUDIO),
// mirroring the teacher's ensureSDLAudio pattern: multiple sessions in
// one process must not re-load or re-init the shared library.
var (
	sdlInitOnce   sync.Once
	sdlAvailable  bool
	sdlInitFailed bool
)

func ensureSDLAudio() bool {
	sdlInitOnce.Do(func() {
		if err := loadSDLLibrary(); err != nil {
			log.Printf("audio: failed to load SDL3 library: %v", err)
			sdlInitFailed = true
			return
		}
		if err := sdl.Init(sdl.INIT_AUDIO); err != nil {
			log.Printf("audio: failed to init SDL3 audio: %v", err)
			sdlInitFailed = true
			return
		}
		sdlAvailable = true
	})
	return sdlAvailable
}

// sdlSink is an alternate playback backend for platforms where oto's
// backend is unavailable or undesired. It pushes frames pulled from the
// FrameSource into an SDL3 audio stream on its own ticker goroutine,
// since SDL3's push-style PutData API (unlike oto's pull callback)
// expects the application to supply data proactively.
type sdlSink struct {
	mu     sync.Mutex
	stream *sdl.AudioStream
	stop   chan struct{}
	source FrameSource

	pushBuf  []int16
	pushByte []byte
}

func NewSDLSink() *sdlSink {
	return &sdlSink{}
}

// pushFramesPerTick is chosen so each push roughly matches one display-refresh
// worth of audio, keeping the SDL-side buffer shallow.
const pushFramesPerTick = 800

func (s *sdlSink) Reinit(sampleRate int, source FrameSource) error {
	s.Close()

	if !ensureSDLAudio() {
		return fmt.Errorf("audio: SDL3 not available")
	}

	spec := sdl.AudioSpec{
		Freq:     int32(sampleRate),
		Format:   sdl.AUDIO_S16LE,
		Channels: 2,
	}
	stream := sdl.AUDIO_DEVICE_DEFAULT_PLAYBACK.OpenAudioDeviceStream(&spec, 0)
	if stream == nil {
		return fmt.Errorf("audio: failed to open SDL3 audio stream")
	}
	if err := stream.ResumeDevice(); err != nil {
		stream.Destroy()
		return fmt.Errorf("audio: failed to resume SDL3 device: %w", err)
	}

	s.mu.Lock()
	s.stream = stream
	s.source = source
	s.pushBuf = make([]int16, pushFramesPerTick*2)
	s.pushByte = make([]byte, pushFramesPerTick*2*2)
	s.mu.Unlock()

	s.stop = make(chan struct{})
	go s.pushLoop(sampleRate, s.stop)
	return nil
}

func (s *sdlSink) pushLoop(sampleRate int, stop chan struct{}) {
	period := time.Second * time.Duration(pushFramesPerTick) / time.Duration(sampleRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.pushOnce()
		}
	}
}

func (s *sdlSink) pushOnce() {
	s.mu.Lock()
	stream, source := s.stream, s.source
	buf, byteBuf := s.pushBuf, s.pushByte
	s.mu.Unlock()

	if stream == nil || source == nil {
		return
	}

	source.Fill(buf)
	for i, v := range buf {
		byteBuf[i*2] = byte(v)
		byteBuf[i*2+1] = byte(v >> 8)
	}
	if err := stream.PutData(byteBuf); err != nil {
		log.Printf("audio: SDL3 PutData failed: %v", err)
	}
}

func (s *sdlSink) Close() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream != nil {
		s.stream.Destroy()
		s.stream = nil
	}
}

// loadSDLLibrary attempts to load the SDL3 shared library from a set of
// platform-specific candidate paths, trying each in turn (spec.md §6's
// "try the exact path given before any search logic" rule applies one
// layer up, at Core loading; here we just need any working SDL3).
func loadSDLLibrary() error {
	var lastErr error
	for _, path := range sdlLibrarySearchPaths() {
		if err := sdl.LoadLibrary(path); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if err := sdl.LoadLibrary(sdl.Path()); err == nil {
		return nil
	} else if lastErr == nil {
		lastErr = err
	}
	return fmt.Errorf("failed to load SDL3 from any candidate path: %w", lastErr)
}

func sdlLibrarySearchPaths() []string {
	switch runtime.GOOS {
	case "darwin":
		var paths []string
		if exe, err := os.Executable(); err == nil {
			dir := filepath.Dir(exe)
			paths = append(paths, filepath.Join(dir, "..", "Frameworks", "libSDL3.dylib"))
			paths = append(paths, filepath.Join(dir, "libSDL3.dylib"))
		}
		if runtime.GOARCH == "arm64" {
			paths = append(paths, "/opt/homebrew/lib/libSDL3.dylib")
		} else {
			paths = append(paths, "/usr/local/lib/libSDL3.dylib")
		}
		paths = append(paths, "/usr/lib/libSDL3.dylib")
		return paths
	case "linux", "freebsd":
		var paths []string
		if exe, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(exe), "libSDL3.so.0"))
		}
		paths = append(paths, "/usr/local/lib/libSDL3.so.0", "/usr/lib/libSDL3.so.0")
		return paths
	case "windows":
		var paths []string
		if exe, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(exe), "SDL3.dll"))
		}
		return paths
	default:
		return nil
	}
}

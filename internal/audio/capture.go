package audio

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/gen2brain/malgo"
	"github.com/google/uuid"
	"github.com/smallnest/ringbuffer"
	"github.com/tphakala/musicv-go/internal/errors"
)

// DeviceInfo holds information about an audio capture device.
type DeviceInfo struct {
	Index int
	Name  string
	ID    string
}

// ListCaptureDevices returns the available audio capture devices.
func ListCaptureDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.Newf("failed to initialize audio context: %v", err).
			Component("audio").
			Category(errors.CategoryAudioSource).
			Build()
	}
	defer ctx.Uninit() //nolint:errcheck

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.Newf("failed to get capture devices: %v", err).
			Component("audio").
			Category(errors.CategoryAudioSource).
			Build()
	}

	var devices []DeviceInfo
	for i, info := range infos {
		decodedID, err := hexToASCII(info.ID.String())
		if err != nil {
			continue
		}
		devices = append(devices, DeviceInfo{
			Index: i,
			Name:  info.Name(),
			ID:    decodedID,
		})
	}

	return devices, nil
}

// CaptureSource captures live audio through malgo. The device callback writes
// raw PCM into a ring buffer; a dedicated reader goroutine drains hop-sized
// chunks, converts them to float64 and emits frames. The callback itself never
// blocks on the consumer.
type CaptureSource struct {
	id         string
	deviceName string
	sampleRate int
	hopSize    int

	ring   *ringbuffer.RingBuffer
	frames chan Frame
	errs   chan error

	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device

	cancel context.CancelFunc
	active atomic.Bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewCaptureSource prepares a capture source for the named device. The ring
// buffer holds several seconds of audio so short consumer stalls do not drop
// samples inside the device callback.
func NewCaptureSource(deviceName string, sampleRate, hopSize int) *CaptureSource {
	const ringSeconds = 4
	return &CaptureSource{
		id:         uuid.NewString(),
		deviceName: deviceName,
		sampleRate: sampleRate,
		hopSize:    hopSize,
		ring:       ringbuffer.New(sampleRate * 2 * ringSeconds),
		frames:     make(chan Frame, 4),
		errs:       make(chan error, 4),
	}
}

func (s *CaptureSource) ID() string           { return s.id }
func (s *CaptureSource) Name() string         { return s.deviceName }
func (s *CaptureSource) SampleRate() int      { return s.sampleRate }
func (s *CaptureSource) Frames() <-chan Frame { return s.frames }
func (s *CaptureSource) Errs() <-chan error   { return s.errs }
func (s *CaptureSource) IsActive() bool       { return s.active.Load() }

// Start initializes the capture device and begins emitting frames.
func (s *CaptureSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active.Load() {
		return errors.Newf("capture source already started").
			Component("audio").
			Category(errors.CategoryState).
			Build()
	}

	backend := platformBackend()
	malgoCtx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, nil)
	if err != nil {
		return errors.Newf("audio context init failed: %v", err).
			Component("audio").
			Category(errors.CategoryAudioSource).
			Build()
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(s.sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	infos, err := malgoCtx.Devices(malgo.Capture)
	if err != nil {
		malgoCtx.Uninit() //nolint:errcheck
		return errors.Newf("failed to enumerate capture devices: %v", err).
			Component("audio").
			Category(errors.CategoryAudioSource).
			Build()
	}

	devicePtr, err := selectCaptureDevice(infos, s.deviceName)
	if err != nil {
		malgoCtx.Uninit() //nolint:errcheck
		return err
	}
	deviceConfig.Capture.DeviceID = devicePtr

	// The callback runs on the audio thread: copy into the ring and return.
	onReceiveFrames := func(outputSamples, inputSamples []byte, frameCount uint32) {
		if _, err := s.ring.Write(inputSamples); err != nil {
			select {
			case s.errs <- errors.Newf("capture ring overrun: %v", err).
				Component("audio").
				Category(errors.CategoryBuffer).
				Build():
			default:
			}
		}
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onReceiveFrames,
	})
	if err != nil {
		malgoCtx.Uninit() //nolint:errcheck
		return errors.Newf("capture device init failed: %v", err).
			Component("audio").
			Category(errors.CategoryAudioSource).
			Build()
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		malgoCtx.Uninit() //nolint:errcheck
		return errors.Newf("capture device start failed: %v", err).
			Component("audio").
			Category(errors.CategoryAudioSource).
			Build()
	}

	s.malgoCtx = malgoCtx
	s.device = device
	ctx, s.cancel = context.WithCancel(ctx)
	s.active.Store(true)

	s.wg.Add(1)
	go s.readLoop(ctx)

	return nil
}

// Stop halts capture and waits for the reader goroutine to exit.
func (s *CaptureSource) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device != nil {
		s.device.Stop() //nolint:errcheck
		s.device.Uninit()
		s.device = nil
	}
	if s.malgoCtx != nil {
		s.malgoCtx.Uninit() //nolint:errcheck
		s.malgoCtx = nil
	}
	return nil
}

// readLoop drains hop-sized chunks from the ring buffer and emits frames.
func (s *CaptureSource) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer s.active.Store(false)
	defer close(s.frames)

	hopBytes := s.hopSize * 2 // 16-bit mono
	buf := make([]byte, hopBytes)
	pollInterval := time.Duration(float64(s.hopSize) / float64(s.sampleRate) * float64(time.Second) / 4)

	var seq uint64
	start := time.Now()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for s.ring.Length() >= hopBytes {
			if _, err := s.ring.Read(buf); err != nil {
				break
			}

			samples := make([]float64, s.hopSize)
			for i := 0; i < s.hopSize; i++ {
				samples[i] = float64(int16(binary.LittleEndian.Uint16(buf[i*2:]))) / 32768.0
			}

			frame := Frame{
				Samples:    samples,
				SampleRate: s.sampleRate,
				Channels:   1,
				Timestamp:  time.Since(start),
				Seq:        seq,
			}
			seq++

			select {
			case s.frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}
}

// platformBackend picks the native audio backend for the current OS.
func platformBackend() malgo.Backend {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa
	case "windows":
		return malgo.BackendWasapi
	case "darwin":
		return malgo.BackendCoreaudio
	default:
		return malgo.BackendNull
	}
}

// selectCaptureDevice matches the configured device name against the
// enumerated devices and returns its ID pointer. "sysdefault" selects the
// system default device on platforms without a device of that name.
func selectCaptureDevice(infos []malgo.DeviceInfo, deviceName string) (unsafe.Pointer, error) {
	for i := range infos {
		decodedID, err := hexToASCII(infos[i].ID.String())
		if err != nil {
			continue
		}
		if matchesDevice(decodedID, &infos[i], deviceName) {
			return infos[i].ID.Pointer(), nil
		}
	}

	return nil, errors.Newf("no suitable capture device found for %q", deviceName).
		Component("audio").
		Category(errors.CategoryAudioSource).
		Context("device_count", len(infos)).
		Build()
}

func matchesDevice(decodedID string, info *malgo.DeviceInfo, deviceName string) bool {
	if runtime.GOOS == "windows" && deviceName == "sysdefault" {
		// On Windows there is no "sysdefault"; use the default device.
		return info.IsDefault == 1
	}
	return decodedID == deviceName || strings.Contains(info.Name(), deviceName)
}

// hexToASCII converts a hexadecimal string to an ASCII string.
func hexToASCII(hexStr string) (string, error) {
	bytes, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(bytes), "\x00"), nil
}

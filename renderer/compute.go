package renderer

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"unsafe"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fountain/particles"
	"github.com/pthm-cable/fountain/sim"
)

//go:embed shaders/particles.comp
var particlesComp string

// SSBO binding points used by shaders/particles.comp.
const (
	bindingPositions  = 0
	bindingVelocities = 1
	bindingFence      = 2 // Completion counter

	// Seeds travel through a float uniform, exact up to 2^24.
	seedMask     = 1<<24 - 1
	fenceBufSize = 16
)

var errNoBuffers = errors.New("compute buffers not allocated")

// ComputeDevice runs the particle kernel as an OpenGL 4.3 compute shader
// through rlgl. It needs a window (GL context) and raylib built with the
// opengl43 tag; otherwise Probe reports false.
type ComputeDevice struct {
	localSize  int
	shaderPath string
	logger     *slog.Logger

	program uint32

	// Uniform locations
	gravityLoc  int32
	originLoc   int32
	stepLoc     int32
	dispatchLoc int32

	posBuf   uint32
	velBuf   uint32
	fenceBuf uint32
	count    int
}

// NewComputeDevice creates a device. shaderPath overrides the embedded kernel
// source when non-empty.
func NewComputeDevice(localSize int, shaderPath string, logger *slog.Logger) *ComputeDevice {
	if localSize <= 0 {
		localSize = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ComputeDevice{localSize: localSize, shaderPath: shaderPath, logger: logger}
}

// source returns the kernel source with the work group size filled in.
func (d *ComputeDevice) source() (string, error) {
	src := particlesComp
	if d.shaderPath != "" {
		data, err := os.ReadFile(d.shaderPath)
		if err != nil {
			return "", fmt.Errorf("reading compute shader: %w", err)
		}
		src = string(data)
	}
	return strings.ReplaceAll(src, "LOCAL_SIZE", strconv.Itoa(d.localSize)), nil
}

// Probe checks for an OpenGL 4.3 context and builds the compute program.
func (d *ComputeDevice) Probe() bool {
	if v := rl.GetVersion(); v != rl.Opengl43 {
		d.logger.Info("compute shaders need OpenGL 4.3", "gl_version", v)
		return false
	}
	src, err := d.source()
	if err != nil {
		d.logger.Warn("compute shader source", "error", err)
		return false
	}
	shader := rl.CompileShader(src, rl.ComputeShader)
	if shader == 0 {
		d.logger.Warn("compute shader failed to compile")
		return false
	}
	d.program = rl.LoadComputeShaderProgram(shader)
	if d.program == 0 {
		d.logger.Warn("compute shader failed to link")
		return false
	}

	d.gravityLoc = rl.GetLocationUniform(d.program, "gravity")
	d.originLoc = rl.GetLocationUniform(d.program, "origin")
	d.stepLoc = rl.GetLocationUniform(d.program, "stepArgs")
	d.dispatchLoc = rl.GetLocationUniform(d.program, "dispatch")
	return true
}

// Allocate (re)creates the position, velocity and fence buffers for n particles.
func (d *ComputeDevice) Allocate(n int) error {
	d.unloadBuffers()

	size := particles.ByteSize(n)
	if size == 0 {
		size = particles.ByteSize(1)
	}
	d.posBuf = rl.LoadShaderBuffer(uint32(size), nil, rl.DynamicCopy)
	d.velBuf = rl.LoadShaderBuffer(uint32(size), nil, rl.DynamicCopy)
	d.fenceBuf = rl.LoadShaderBuffer(fenceBufSize, nil, rl.DynamicCopy)
	if d.posBuf == 0 || d.velBuf == 0 || d.fenceBuf == 0 {
		d.unloadBuffers()
		return fmt.Errorf("allocating %d bytes of shader storage", 2*size)
	}
	d.count = n
	return nil
}

func (d *ComputeDevice) UploadPositions(src []particles.Vec4) error {
	return d.upload(d.posBuf, src)
}

func (d *ComputeDevice) UploadVelocities(src []particles.Vec4) error {
	return d.upload(d.velBuf, src)
}

func (d *ComputeDevice) DownloadPositions(dst []particles.Vec4) error {
	return d.download(d.posBuf, dst)
}

func (d *ComputeDevice) DownloadVelocities(dst []particles.Vec4) error {
	return d.download(d.velBuf, dst)
}

func (d *ComputeDevice) upload(buf uint32, src []particles.Vec4) error {
	if err := d.checkTransfer(buf, len(src)); err != nil {
		return err
	}
	if len(src) == 0 {
		return nil
	}
	rl.UpdateShaderBuffer(buf, unsafe.Pointer(&src[0]), uint32(particles.ByteSize(len(src))), 0)
	return nil
}

func (d *ComputeDevice) download(buf uint32, dst []particles.Vec4) error {
	if err := d.checkTransfer(buf, len(dst)); err != nil {
		return err
	}
	if len(dst) == 0 {
		return nil
	}
	rl.ReadShaderBuffer(buf, unsafe.Pointer(&dst[0]), uint32(particles.ByteSize(len(dst))), 0)
	return nil
}

func (d *ComputeDevice) checkTransfer(buf uint32, n int) error {
	if buf == 0 {
		return errNoBuffers
	}
	if n != d.count {
		return fmt.Errorf("%w: transfer of %d with %d allocated", particles.ErrBadCount, n, d.count)
	}
	return nil
}

// vec4Uniform is one vec4 uniform upload.
type vec4Uniform struct {
	loc  int32
	vals []float32
}

// uniforms lays out the kernel arguments as the shader's four vec4 uniforms.
func (d *ComputeDevice) uniforms(args sim.DispatchArgs) []vec4Uniform {
	p := args.Params
	return []vec4Uniform{
		{d.gravityLoc, []float32{p.Gravity.X, p.Gravity.Y, p.Gravity.Z, 0}},
		{d.originLoc, []float32{p.Origin.X, p.Origin.Y, p.Origin.Z, p.SpawnRadius}},
		{d.stepLoc, []float32{args.DT, p.Friction, p.VelocityThreshold, args.Elapsed}},
		{d.dispatchLoc, []float32{float32(args.Count), float32(args.Seed & seedMask), 0, 0}},
	}
}

// groups returns the work group count covering n invocations.
func (d *ComputeDevice) groups(n int) uint32 {
	return uint32((n + d.localSize - 1) / d.localSize)
}

// checkCompletion compares the kernel's completion counter with the number
// of particles dispatched.
func checkCompletion(done uint32, count int) error {
	if done != uint32(count) {
		return fmt.Errorf("dispatch incomplete: %d of %d invocations finished", done, count)
	}
	return nil
}

// Dispatch runs one pass of the kernel. Every invocation increments the
// completion counter after its writes; reading the counter back blocks until
// the dispatch has retired, and the count must match the particle count.
func (d *ComputeDevice) Dispatch(args sim.DispatchArgs) error {
	if d.fenceBuf == 0 {
		return errNoBuffers
	}
	if args.Count != d.count {
		return fmt.Errorf("%w: dispatch of %d with %d allocated", particles.ErrBadCount, args.Count, d.count)
	}
	if args.Count == 0 {
		return nil
	}

	var done uint32
	rl.UpdateShaderBuffer(d.fenceBuf, unsafe.Pointer(&done), 4, 0)

	// SetShaderValue uploads a single vec4; SetUniform would pass len(vals)
	// as the array count.
	rl.EnableShader(d.program)
	shader := rl.Shader{ID: d.program}
	for _, u := range d.uniforms(args) {
		rl.SetShaderValue(shader, u.loc, u.vals, rl.ShaderUniformVec4)
	}

	rl.BindShaderBuffer(d.posBuf, bindingPositions)
	rl.BindShaderBuffer(d.velBuf, bindingVelocities)
	rl.BindShaderBuffer(d.fenceBuf, bindingFence)

	rl.ComputeShaderDispatch(d.groups(args.Count), 1, 1)
	rl.DisableShader()

	rl.ReadShaderBuffer(d.fenceBuf, unsafe.Pointer(&done), 4, 0)
	return checkCompletion(done, args.Count)
}

// Close releases buffers and the compute program.
func (d *ComputeDevice) Close() error {
	d.unloadBuffers()
	if d.program != 0 {
		rl.UnloadShaderProgram(d.program)
		d.program = 0
	}
	return nil
}

func (d *ComputeDevice) unloadBuffers() {
	for _, id := range []*uint32{&d.posBuf, &d.velBuf, &d.fenceBuf} {
		if *id != 0 {
			rl.UnloadShaderBuffer(*id)
			*id = 0
		}
	}
	d.count = 0
}

var _ sim.Device = (*ComputeDevice)(nil)

// Package gpu implements the compute-shader blend backend on WebGPU. It
// is strictly optional: construction failures leave the backend
// unavailable, and every job error is a signal for the compositor to fall
// back to the CPU path, never a failure surfaced to the user.
package gpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"

	"github.com/fabian-becker/Terrainy/internal/compose"
)

// workgroupSize matches @workgroup_size in the shader.
const workgroupSize = 16

// Backend holds the long-lived device resources: instance, device, queue
// and the compiled blend pipeline. Per-job buffers are created and
// released inside Blend.
type Backend struct {
	log *zap.Logger

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	layout   *wgpu.BindGroupLayout
	pipeline *wgpu.ComputePipeline

	available bool
}

var _ compose.Backend = (*Backend)(nil)

// New acquires a headless adapter/device and compiles the blend pipeline.
// On any failure (no adapter, no device, shader rejection) the backend
// comes back non-available and the reason is logged once. The native
// layer can panic instead of returning errors, so init is recover-guarded.
func New(log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Backend{log: log}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("webgpu init panic: %v", r)
			}
		}()
		return b.init()
	}()
	if err != nil {
		log.Warn("gpu backend unavailable", zap.Error(err))
		b.release()
		return b
	}

	b.available = true
	return b
}

func (b *Backend) init() error {
	b.instance = wgpu.CreateInstance(nil)
	if b.instance == nil {
		return errors.New("no webgpu instance")
	}

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "terrainy-blend",
	})
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	b.device = device
	b.queue = device.GetQueue()

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "blend",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: blendShader},
	})
	if err != nil {
		return fmt.Errorf("compile blend shader: %w", err)
	}
	defer module.Release()

	layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "blend-layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    3,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			},
			{
				Binding:    4,
				Visibility: wgpu.ShaderStageCompute,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	b.layout = layout

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "blend",
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	defer pipelineLayout.Release()

	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "blend",
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	b.pipeline = pipeline

	return nil
}

// Available reports whether the device and pipeline came up.
func (b *Backend) Available() bool {
	return b.available
}

// Blend uploads the flattened layers, dispatches the compute pass and
// reads the blended raster back. Every error path releases its resources
// and reports back so the caller can fall back to the CPU blend.
func (b *Backend) Blend(job *compose.BlendJob) (out []float32, err error) {
	if !b.available {
		return nil, errors.New("gpu backend not available")
	}
	if len(job.Layers) == 0 {
		return nil, errors.New("no layers to blend")
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("webgpu blend panic: %v", r)
			out = nil
		}
	}()

	n := job.Width * job.Height
	count := len(job.Layers)

	// Flatten layers and influences in list order; order is part of the
	// blend contract.
	layers := make([]float32, 0, n*count)
	influences := make([]float32, 0, n*count)
	blends := make([]float32, 0, count*2)
	for i := 0; i < count; i++ {
		if len(job.Layers[i]) != n || len(job.Influences[i]) != n {
			return nil, fmt.Errorf("layer %d size mismatch", i)
		}
		layers = append(layers, job.Layers[i]...)
		influences = append(influences, job.Influences[i]...)
		blends = append(blends, float32(job.Modes[i]), job.Strengths[i])
	}

	params := struct {
		Width  uint32
		Height uint32
		Count  uint32
		Base   float32
	}{uint32(job.Width), uint32(job.Height), uint32(count), job.BaseHeight}

	paramBuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "blend-params",
		Size:  16,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create params buffer: %w", err)
	}
	defer paramBuf.Release()

	layerBuf, err := b.storageBuffer("blend-layers", wgpu.ToBytes(layers))
	if err != nil {
		return nil, err
	}
	defer layerBuf.Release()

	influenceBuf, err := b.storageBuffer("blend-influences", wgpu.ToBytes(influences))
	if err != nil {
		return nil, err
	}
	defer influenceBuf.Release()

	blendBuf, err := b.storageBuffer("blend-modes", wgpu.ToBytes(blends))
	if err != nil {
		return nil, err
	}
	defer blendBuf.Release()

	outSize := uint64(n * 4)
	outBuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "blend-out",
		Size:  outSize,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create output buffer: %w", err)
	}
	defer outBuf.Release()

	staging, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "blend-staging",
		Size:  outSize,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer staging.Release()

	b.queue.WriteBuffer(paramBuf, 0, wgpu.ToBytes([]uint32{
		params.Width, params.Height, params.Count,
	}))
	b.queue.WriteBuffer(paramBuf, 12, wgpu.ToBytes([]float32{params.Base}))

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "blend",
		Layout: b.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: paramBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: layerBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: influenceBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: blendBuf, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: outBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	defer bindGroup.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DispatchWorkgroups(
		(uint32(job.Width)+workgroupSize-1)/workgroupSize,
		(uint32(job.Height)+workgroupSize-1)/workgroupSize,
		1,
	)
	pass.End()

	encoder.CopyBufferToBuffer(outBuf, 0, staging, 0, outSize)

	commands, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish encoder: %w", err)
	}
	defer commands.Release()

	b.queue.Submit(commands)

	var mapStatus wgpu.BufferMapAsyncStatus
	mapDone := false
	mapErr := staging.MapAsync(wgpu.MapModeRead, 0, outSize, func(status wgpu.BufferMapAsyncStatus) {
		mapStatus = status
		mapDone = true
	})
	if mapErr != nil {
		return nil, fmt.Errorf("map staging buffer: %w", mapErr)
	}
	b.device.Poll(true, nil)
	if !mapDone || mapStatus != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("staging map failed: status %v", mapStatus)
	}
	defer staging.Unmap()

	data := staging.GetMappedRange(0, uint(outSize))
	if data == nil {
		return nil, errors.New("staging mapped range is nil")
	}

	out = make([]float32, n)
	copy(out, wgpu.FromBytes[float32](data))
	return out, nil
}

// storageBuffer creates a read-only storage buffer initialized with data.
func (b *Backend) storageBuffer(label string, data []byte) (*wgpu.Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s buffer: %w", label, err)
	}
	b.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// Release frees the long-lived device resources.
func (b *Backend) Release() {
	b.release()
	b.available = false
}

func (b *Backend) release() {
	if b.pipeline != nil {
		b.pipeline.Release()
		b.pipeline = nil
	}
	if b.layout != nil {
		b.layout.Release()
		b.layout = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

package wgpudev

import (
	"errors"
	"fmt"

	"github.com/gekko3d/stripray"
	"github.com/gekko3d/stripray/striprt/rt/accum"
	"github.com/gekko3d/stripray/striprt/rt/gpu"
	"github.com/gekko3d/stripray/striprt/rt/mesh"
	"github.com/gekko3d/stripray/striprt/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
)

const targetFormat = wgpu.TextureFormatRGBA8Unorm

type Options struct {
	// Width and Height of the offscreen render target.
	Width, Height int
	// Label prefixes every GPU object name.
	Label  string
	Logger stripray.Logger
}

// Device renders the strip with WebGPU. Each frame draws into an offscreen
// RGBA8 target, optionally copies it into the feedback texture and blits it
// to the surface.
type Device struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	layout accum.FeedbackLayout
	label  string
	logger stripray.Logger

	UniformBuf *wgpu.Buffer
	VertexBuf  *wgpu.Buffer
	IndexBuf   *wgpu.Buffer
	indexGrid  *mesh.Grid

	Target       *wgpu.Texture
	TargetView   *wgpu.TextureView
	Feedback     *wgpu.Texture
	FeedbackView *wgpu.TextureView

	stripBGL            *wgpu.BindGroupLayout
	blitBGL             *wgpu.BindGroupLayout
	DirectPipeline      *wgpu.RenderPipeline
	ProgressivePipeline *wgpu.RenderPipeline
	BlitPipeline        *wgpu.RenderPipeline
	StripBG             *wgpu.BindGroup
	BlitBG              *wgpu.BindGroup

	frames     gpu.FrameTracker
	surfaceTex *wgpu.Texture
}

// New creates the device, its surface and every pipeline. Shader or pipeline
// creation failures are returned; the caller cannot render without them.
func New(desc *wgpu.SurfaceDescriptor, surfaceWidth, surfaceHeight int, opts Options) (*Device, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("wgpudev: invalid target size %dx%d", opts.Width, opts.Height)
	}
	d := &Device{
		layout: accum.NewFeedbackLayout(opts.Width, opts.Height, accum.OriginTopLeft),
		label:  opts.Label,
		logger: stripray.LoggerOrNop(opts.Logger),
	}

	d.Instance = wgpu.CreateInstance(nil)
	d.Surface = d.Instance.CreateSurface(desc)

	adapter, err := d.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: d.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("wgpudev: request adapter: %w", err)
	}
	d.Adapter = adapter

	d.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("wgpudev: request device: %w", err)
	}
	d.Queue = d.Device.GetQueue()

	caps := d.Surface.GetCapabilities(adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		d.Release()
		return nil, errors.New("wgpudev: surface is not supported by the adapter")
	}
	d.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(surfaceWidth),
		Height:      uint32(surfaceHeight),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	d.Surface.Configure(adapter, d.Device, d.Config)

	if err := d.setupTextures(); err != nil {
		d.Release()
		return nil, err
	}
	if err := d.setupPipelines(); err != nil {
		d.Release()
		return nil, err
	}
	if err := d.setupBindGroups(); err != nil {
		d.Release()
		return nil, err
	}

	d.logger.Infof("wgpu device ready: target %dx%d, feedback %dx%d, surface %v",
		d.layout.Width, d.layout.Height, d.layout.TexWidth, d.layout.TexHeight, d.Config.Format)
	return d, nil
}

func (d *Device) name(s string) string {
	if d.label == "" {
		return s
	}
	return d.label + " " + s
}

func (d *Device) FeedbackOrigin() accum.Origin {
	return accum.OriginTopLeft
}

// Resize reconfigures the surface. The render target keeps its size; the
// blit scales it to the new surface.
func (d *Device) Resize(width, height int) {
	if width == 0 || height == 0 || d.Config == nil {
		return
	}
	d.Config.Width = uint32(width)
	d.Config.Height = uint32(height)
	d.Surface.Configure(d.Adapter, d.Device, d.Config)
}

func (d *Device) setupTextures() error {
	var err error
	d.Target, err = d.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         d.name("Render Target"),
		Size:          wgpu.Extent3D{Width: uint32(d.layout.Width), Height: uint32(d.layout.Height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        targetFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return fmt.Errorf("wgpudev: render target: %w", err)
	}
	d.TargetView, err = d.Target.CreateView(nil)
	if err != nil {
		return fmt.Errorf("wgpudev: render target view: %w", err)
	}

	d.Feedback, err = d.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         d.name("Feedback"),
		Size:          wgpu.Extent3D{Width: uint32(d.layout.TexWidth), Height: uint32(d.layout.TexHeight), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        targetFormat,
		Usage:         wgpu.TextureUsageCopyDst | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return fmt.Errorf("wgpudev: feedback texture: %w", err)
	}
	d.FeedbackView, err = d.Feedback.CreateView(nil)
	if err != nil {
		return fmt.Errorf("wgpudev: feedback view: %w", err)
	}
	return nil
}

func (d *Device) setupPipelines() error {
	stripModule, err := d.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          d.name("Strip Shader"),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.StripWGSL},
	})
	if err != nil {
		return fmt.Errorf("wgpudev: strip shader: %w", err)
	}
	defer stripModule.Release()

	blitModule, err := d.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          d.name("Blit Shader"),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.BlitWGSL},
	})
	if err != nil {
		return fmt.Errorf("wgpudev: blit shader: %w", err)
	}
	defer blitModule.Release()

	// Group 0: Params uniform + feedback texture
	d.stripBGL, err = d.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: d.name("Strip BGL"),
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: gpu.UniformSize,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpudev: strip bind group layout: %w", err)
	}

	d.blitBGL, err = d.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: d.name("Blit BGL"),
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpudev: blit bind group layout: %w", err)
	}

	stripLayout, err := d.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            d.name("Strip Layout"),
		BindGroupLayouts: []*wgpu.BindGroupLayout{d.stripBGL},
	})
	if err != nil {
		return fmt.Errorf("wgpudev: strip pipeline layout: %w", err)
	}
	defer stripLayout.Release()

	blitLayout, err := d.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            d.name("Blit Layout"),
		BindGroupLayouts: []*wgpu.BindGroupLayout{d.blitBGL},
	})
	if err != nil {
		return fmt.Errorf("wgpudev: blit pipeline layout: %w", err)
	}
	defer blitLayout.Release()

	directVertex := wgpu.VertexBufferLayout{
		ArrayStride: 24,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},  // direction
			{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1}, // coords
		},
	}
	deferredVertex := wgpu.VertexBufferLayout{
		ArrayStride: 28,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},  // jitter uv
			{Format: wgpu.VertexFormatFloat32x3, Offset: 8, ShaderLocation: 1},  // coords
			{Format: wgpu.VertexFormatFloat32x2, Offset: 20, ShaderLocation: 2}, // feedback uv
		},
	}

	d.DirectPipeline, err = d.stripPipeline("Direct Pipeline", stripLayout, stripModule, shaders.VSDirect, shaders.FSSingle, directVertex)
	if err != nil {
		return err
	}
	d.ProgressivePipeline, err = d.stripPipeline("Progressive Pipeline", stripLayout, stripModule, shaders.VSDeferred, shaders.FSProgressive, deferredVertex)
	if err != nil {
		return err
	}

	d.BlitPipeline, err = d.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  d.name("Blit Pipeline"),
		Layout: blitLayout,
		Vertex: wgpu.VertexState{
			Module:     blitModule,
			EntryPoint: shaders.VSBlit,
		},
		Fragment: &wgpu.FragmentState{
			Module:     blitModule,
			EntryPoint: shaders.FSBlit,
			Targets: []wgpu.ColorTargetState{
				{Format: d.Config.Format, WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("wgpudev: blit pipeline: %w", err)
	}
	return nil
}

func (d *Device) stripPipeline(label string, layout *wgpu.PipelineLayout, module *wgpu.ShaderModule, vs, fs string, vertex wgpu.VertexBufferLayout) (*wgpu.RenderPipeline, error) {
	p, err := d.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  d.name(label),
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: vs,
			Buffers:    []wgpu.VertexBufferLayout{vertex},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: fs,
			Targets: []wgpu.ColorTargetState{
				{Format: targetFormat, WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:         wgpu.PrimitiveTopologyTriangleStrip,
			StripIndexFormat: wgpu.IndexFormatUint32,
			FrontFace:        wgpu.FrontFaceCCW,
			// Alternate strip triangles flip winding; degenerates join rows.
			CullMode: wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpudev: %s: %w", label, err)
	}
	return p, nil
}

func (d *Device) setupBindGroups() error {
	// Uniform buffer has a fixed size; create it now so the bind group never
	// needs rebuilding.
	if _, err := d.ensureBuffer("Params", &d.UniformBuf, make([]byte, gpu.UniformSize), wgpu.BufferUsageUniform, 0); err != nil {
		return err
	}

	var err error
	d.StripBG, err = d.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  d.name("Strip BG"),
		Layout: d.stripBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: d.UniformBuf, Size: gpu.UniformSize},
			{Binding: 1, TextureView: d.FeedbackView},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpudev: strip bind group: %w", err)
	}

	d.BlitBG, err = d.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  d.name("Blit BG"),
		Layout: d.blitBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: d.TargetView},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpudev: blit bind group: %w", err)
	}
	return nil
}

// ensureBuffer (re)creates buf when it is missing or too small and uploads
// data. It reports whether the buffer was recreated.
func (d *Device) ensureBuffer(name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage, headroom int) (bool, error) {
	neededSize := uint64(len(data) + headroom)
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}

	current := *buf
	if current == nil || current.GetSize() < neededSize {
		if current != nil {
			current.Release()
		}
		newBuf, err := d.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: d.name(name),
			Size:  neededSize,
			Usage: usage | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			*buf = nil
			return false, fmt.Errorf("wgpudev: buffer %s: %w", name, err)
		}
		*buf = newBuf
		if len(data) > 0 {
			d.Queue.WriteBuffer(*buf, 0, data)
		}
		return true, nil
	}
	if len(data) > 0 {
		d.Queue.WriteBuffer(*buf, 0, data)
	}
	return false, nil
}

func (d *Device) Submit(f *gpu.Frame) (gpu.FrameHandle, error) {
	if err := d.frames.Begin(); err != nil {
		return gpu.FrameHandle{}, err
	}
	if f == nil || f.Grid == nil || f.Uniforms == nil {
		return gpu.FrameHandle{}, errors.New("wgpudev: incomplete frame")
	}
	if d.surfaceTex != nil {
		// Previous frame was never presented.
		d.surfaceTex.Release()
		d.surfaceTex = nil
	}

	surfaceTex, err := d.Surface.GetCurrentTexture()
	if err != nil {
		d.logger.Debugf("surface texture unavailable: %v", err)
		return gpu.FrameHandle{}, fmt.Errorf("%w: %v", gpu.ErrFrameNotReady, err)
	}

	if _, err := d.ensureBuffer("Params", &d.UniformBuf, f.Uniforms.Bytes(), wgpu.BufferUsageUniform, 0); err != nil {
		surfaceTex.Release()
		return gpu.FrameHandle{}, err
	}
	if _, err := d.ensureBuffer("Strip Vertices", &d.VertexBuf, f.Grid.VertexBytes(), wgpu.BufferUsageVertex, 0); err != nil {
		surfaceTex.Release()
		return gpu.FrameHandle{}, err
	}
	if d.indexGrid != f.Grid {
		if _, err := d.ensureBuffer("Strip Indices", &d.IndexBuf, f.Grid.IndexBytes(), wgpu.BufferUsageIndex, 0); err != nil {
			surfaceTex.Release()
			return gpu.FrameHandle{}, err
		}
		d.indexGrid = f.Grid
	}

	encoder, err := d.Device.CreateCommandEncoder(nil)
	if err != nil {
		surfaceTex.Release()
		return gpu.FrameHandle{}, fmt.Errorf("wgpudev: command encoder: %w", err)
	}
	defer encoder.Release()

	cc := f.ClearColor
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: d.name("Strip Pass"),
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       d.TargetView,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: float64(cc[0]), G: float64(cc[1]), B: float64(cc[2]), A: float64(cc[3])},
		}},
	})
	defer pass.Release()
	if f.Grid.Deferred {
		pass.SetPipeline(d.ProgressivePipeline)
	} else {
		pass.SetPipeline(d.DirectPipeline)
	}
	pass.SetBindGroup(0, d.StripBG, nil)
	pass.SetVertexBuffer(0, d.VertexBuf, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(d.IndexBuf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexed(uint32(f.Grid.IndexCount()), 1, 0, 0, 0)
	if err := pass.End(); err != nil {
		surfaceTex.Release()
		return gpu.FrameHandle{}, fmt.Errorf("wgpudev: strip pass: %w", err)
	}

	if err := d.finish(encoder); err != nil {
		surfaceTex.Release()
		return gpu.FrameHandle{}, err
	}

	d.surfaceTex = surfaceTex
	return d.frames.Issue(), nil
}

func (d *Device) CopyFrame(h gpu.FrameHandle, region accum.CopyRegion) error {
	if err := d.frames.Check(h); err != nil {
		return err
	}
	encoder, err := d.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("wgpudev: command encoder: %w", err)
	}
	defer encoder.Release()
	encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{
			Texture:  d.Target,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: uint32(region.SrcOrigin.X), Y: uint32(region.SrcOrigin.Y)},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyTexture{
			Texture:  d.Feedback,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: uint32(region.DstOrigin.X), Y: uint32(region.DstOrigin.Y)},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.Extent3D{Width: uint32(region.Size.X), Height: uint32(region.Size.Y), DepthOrArrayLayers: 1},
	)
	return d.finish(encoder)
}

func (d *Device) Present(h gpu.FrameHandle) error {
	if err := d.frames.Retire(h); err != nil {
		return err
	}
	surfaceTex := d.surfaceTex
	d.surfaceTex = nil
	defer surfaceTex.Release()

	view, err := surfaceTex.CreateView(nil)
	if err != nil {
		return fmt.Errorf("wgpudev: surface view: %w", err)
	}
	defer view.Release()

	encoder, err := d.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("wgpudev: command encoder: %w", err)
	}
	defer encoder.Release()
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: d.name("Blit Pass"),
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	defer pass.Release()
	pass.SetPipeline(d.BlitPipeline)
	pass.SetBindGroup(0, d.BlitBG, nil)
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		return fmt.Errorf("wgpudev: blit pass: %w", err)
	}
	if err := d.finish(encoder); err != nil {
		return err
	}
	d.Surface.Present()
	return nil
}

func (d *Device) finish(encoder *wgpu.CommandEncoder) error {
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("wgpudev: encoder finish: %w", err)
	}
	defer cmd.Release()
	d.Queue.Submit(cmd)
	return nil
}

// Release frees every GPU object. It is safe to call more than once and on a
// partially constructed device.
func (d *Device) Release() {
	if !d.frames.Release() {
		return
	}

	if d.surfaceTex != nil {
		d.surfaceTex.Release()
		d.surfaceTex = nil
	}
	for _, bg := range []*wgpu.BindGroup{d.StripBG, d.BlitBG} {
		if bg != nil {
			bg.Release()
		}
	}
	for _, p := range []*wgpu.RenderPipeline{d.DirectPipeline, d.ProgressivePipeline, d.BlitPipeline} {
		if p != nil {
			p.Release()
		}
	}
	for _, l := range []*wgpu.BindGroupLayout{d.stripBGL, d.blitBGL} {
		if l != nil {
			l.Release()
		}
	}
	for _, b := range []*wgpu.Buffer{d.UniformBuf, d.VertexBuf, d.IndexBuf} {
		if b != nil {
			b.Release()
		}
	}
	for _, v := range []*wgpu.TextureView{d.TargetView, d.FeedbackView} {
		if v != nil {
			v.Release()
		}
	}
	for _, t := range []*wgpu.Texture{d.Target, d.Feedback} {
		if t != nil {
			t.Release()
		}
	}
	if d.Queue != nil {
		d.Queue.Release()
	}
	if d.Device != nil {
		d.Device.Release()
	}
	if d.Adapter != nil {
		d.Adapter.Release()
	}
	if d.Surface != nil {
		d.Surface.Release()
	}
	if d.Instance != nil {
		d.Instance.Release()
	}
	d.logger.Debugf("wgpu device released")
}

var _ gpu.Device = (*Device)(nil)

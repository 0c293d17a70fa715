package renderer

import (
	"errors"
	"fmt"
	"image"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/triangle/engine/assets"
	"github.com/spaghettifunk/triangle/engine/core"
	"github.com/spaghettifunk/triangle/engine/renderer/vulkan"
	"github.com/spaghettifunk/triangle/engine/resources"
)

type Config struct {
	ClearColor [4]float32
	// WGSL source with the vertex and fragment entry points. The bundled
	// triangle shader is used when empty.
	ShaderSource string
}

func DefaultConfig() Config {
	return Config{
		ClearColor: [4]float32{1, 0, 0, 1},
	}
}

// Renderer draws the triangle. Everything it owns is created once by New;
// Draw only records and submits commands.
type Renderer struct {
	description PipelineDescription
	clearColor  [4]float32

	renderpass   *vulkan.VulkanRenderpass
	pipeline     *vulkan.VulkanPipeline
	vertexBuffer *vulkan.VulkanBuffer
	vertexBytes  []byte

	commandBuffer  *vulkan.VulkanCommandBuffer
	inFlight       *vulkan.VulkanFence
	imageAvailable vk.Semaphore
}

// New compiles the shader and builds the pipeline and the vertex buffer for
// the context's surface format.
func New(ctx *vulkan.GraphicsContext, cfg Config) (*Renderer, error) {
	source, err := shaderSource(cfg)
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	code, err := vulkan.CompileWGSL(source)
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	r := &Renderer{
		description: DescribePipeline(ctx.Format().Format),
		clearColor:  cfg.ClearColor,
	}

	if err := r.createPipeline(ctx, code); err != nil {
		r.Destroy(ctx)
		return nil, err
	}

	// Vertex buffer
	r.vertexBytes = EncodeVertices(TriangleVertices)
	r.vertexBuffer, err = vulkan.BufferCreate(ctx, vk.DeviceSize(len(r.vertexBytes)),
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		r.Destroy(ctx)
		return nil, err
	}
	if err := r.vertexBuffer.LoadData(ctx, 0, r.vertexBytes); err != nil {
		r.Destroy(ctx)
		return nil, err
	}

	// Frame resources
	r.commandBuffer, err = vulkan.NewVulkanCommandBuffer(ctx, ctx.Device.GraphicsCommandPool, true)
	if err != nil {
		r.Destroy(ctx)
		return nil, err
	}
	r.inFlight, err = vulkan.NewFence(ctx, true)
	if err != nil {
		r.Destroy(ctx)
		return nil, err
	}
	r.imageAvailable, err = vulkan.NewSemaphore(ctx)
	if err != nil {
		r.Destroy(ctx)
		return nil, err
	}

	core.LogDebug("Renderer created for format %d.", r.description.ColorFormat)
	return r, nil
}

func shaderSource(cfg Config) (string, error) {
	if cfg.ShaderSource != "" {
		return cfg.ShaderSource, nil
	}
	manager := assets.NewAssetManager(nil)
	if err := manager.Initialize(); err != nil {
		return "", err
	}
	res, err := manager.LoadAsset("triangle", resources.ResourceTypeShader, nil)
	if err != nil {
		return "", err
	}
	defer manager.UnloadAsset(res)

	source, ok := res.Text()
	if !ok {
		return "", fmt.Errorf("shader %q is not text", res.Name)
	}
	return source, nil
}

func (r *Renderer) createPipeline(ctx *vulkan.GraphicsContext, code []uint32) error {
	d := r.description

	renderpass, err := vulkan.RenderpassCreate(ctx, d.ColorFormat, vk.ImageLayoutPresentSrc, r.clearColor)
	if err != nil {
		return err
	}
	r.renderpass = renderpass

	vertexStage, err := vulkan.NewShaderStage(ctx, code, vk.ShaderStageVertexBit, d.VertexEntryPoint)
	if err != nil {
		return err
	}
	defer vertexStage.Destroy(ctx)
	fragmentStage, err := vulkan.NewShaderStage(ctx, code, vk.ShaderStageFragmentBit, d.FragmentEntryPoint)
	if err != nil {
		return err
	}
	defer fragmentStage.Destroy(ctx)

	width, height := ctx.Extent()
	pipeline, err := vulkan.NewGraphicsPipeline(ctx, &vulkan.VulkanPipelineConfig{
		Renderpass: renderpass,
		Stride:     d.Stride,
		Attributes: []vk.VertexInputAttributeDescription{{
			Binding:  d.Binding,
			Location: d.AttributeLocation,
			Format:   d.AttributeFormat,
			Offset:   d.AttributeOffset,
		}},
		Stages: []vk.PipelineShaderStageCreateInfo{
			vertexStage.ShaderStageCreateInfo,
			fragmentStage.ShaderStageCreateInfo,
		},
		Viewport:     viewport(width, height),
		Scissor:      scissor(width, height),
		Topology:     d.Topology,
		Samples:      d.Samples,
		CullMode:     d.CullMode,
		IsWireframe:  d.Wireframe,
		BlendEnabled: d.BlendEnabled,
	})
	if err != nil {
		return err
	}
	r.pipeline = pipeline
	return nil
}

// Draw renders one frame to the surface and presents it. Validation errors
// raised while doing so are returned; a surface that cannot hand out an
// image yields an error wrapping core.ErrSurfaceTexture.
func (r *Renderer) Draw(ctx *vulkan.GraphicsContext) error {
	if ctx.Suspended() {
		return nil
	}

	ctx.PushErrorScope(vulkan.ErrorFilterValidation)
	err := r.drawFrame(ctx)
	scopeErr := ctx.PopErrorScope()
	if err != nil {
		return err
	}
	return scopeErr
}

func (r *Renderer) drawFrame(ctx *vulkan.GraphicsContext) (err error) {
	texture, err := ctx.AcquireSurfaceTexture(r.imageAvailable)
	if err != nil {
		return err
	}
	submitted := false
	defer func() {
		if !submitted {
			if discardErr := ctx.DiscardSurfaceTexture(r.imageAvailable); discardErr != nil {
				err = errors.Join(err, discardErr)
			}
		}
	}()
	width, height := texture.Extent.Width, texture.Extent.Height

	view, err := vulkan.CreateImageView(ctx, texture.Image, texture.Format)
	if err != nil {
		return err
	}
	defer vk.DestroyImageView(ctx.Device.LogicalDevice, view, ctx.Allocator)

	framebuffer, err := vulkan.FramebufferCreate(ctx, r.renderpass, width, height, []vk.ImageView{view})
	if err != nil {
		return err
	}
	defer framebuffer.Destroy(ctx)

	if err := r.inFlight.Reset(ctx); err != nil {
		return err
	}
	if err := r.commandBuffer.Reset(ctx); err != nil {
		return err
	}
	if err := r.commandBuffer.Begin(ctx, true, false, false); err != nil {
		return err
	}
	r.record(r.commandBuffer, r.renderpass, framebuffer)
	if err := r.commandBuffer.End(ctx); err != nil {
		return err
	}

	if err := ctx.Submit(r.commandBuffer, r.imageAvailable, texture, r.inFlight); err != nil {
		return err
	}
	submitted = true
	presentErr := ctx.Present(texture)

	// One frame in flight: the view and framebuffer are released by the
	// deferred calls once the GPU is done with them.
	if err := r.inFlight.Wait(ctx, math.MaxUint64); err != nil {
		return err
	}
	return presentErr
}

// record writes the single render pass of a frame.
func (r *Renderer) record(commandBuffer *vulkan.VulkanCommandBuffer, renderpass *vulkan.VulkanRenderpass, framebuffer *vulkan.VulkanFramebuffer) {
	renderpass.Begin(commandBuffer, framebuffer)

	r.pipeline.Bind(commandBuffer, vk.PipelineBindPointGraphics)
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport(framebuffer.Width, framebuffer.Height)})
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor(framebuffer.Width, framebuffer.Height)})
	vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 1, []vk.Buffer{r.vertexBuffer.Handle}, []vk.DeviceSize{0})
	vk.CmdDraw(commandBuffer.Handle, uint32(len(TriangleVertices)), 1, 0, 0)

	renderpass.End(commandBuffer)
}

// Capture renders the frame Draw would produce into an offscreen image of
// the given size and reads it back.
func (r *Renderer) Capture(ctx *vulkan.GraphicsContext, width, height uint32) (*image.RGBA, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("invalid capture size %dx%d", width, height)
	}

	ctx.PushErrorScope(vulkan.ErrorFilterValidation)
	img, err := r.capture(ctx, width, height)
	scopeErr := ctx.PopErrorScope()
	if err != nil {
		return nil, err
	}
	if scopeErr != nil {
		return nil, scopeErr
	}
	return img, nil
}

func (r *Renderer) capture(ctx *vulkan.GraphicsContext, width, height uint32) (*image.RGBA, error) {
	target, err := vulkan.NewOffscreenTarget(ctx, r.description.ColorFormat, width, height)
	if err != nil {
		return nil, err
	}
	defer target.Destroy(ctx)

	// Same attachment as the surface pass, so the pipeline stays compatible.
	renderpass, err := vulkan.RenderpassCreate(ctx, r.description.ColorFormat, vk.ImageLayoutTransferSrcOptimal, r.clearColor)
	if err != nil {
		return nil, err
	}
	defer renderpass.Destroy(ctx)

	framebuffer, err := vulkan.FramebufferCreate(ctx, renderpass, width, height, []vk.ImageView{target.Image.View})
	if err != nil {
		return nil, err
	}
	defer framebuffer.Destroy(ctx)

	pool := ctx.Device.GraphicsCommandPool
	commandBuffer, err := vulkan.AllocateAndBeginSingleUse(ctx, pool)
	if err != nil {
		return nil, err
	}
	r.record(commandBuffer, renderpass, framebuffer)
	target.RecordCopy(commandBuffer)
	if err := commandBuffer.EndSingleUse(ctx, pool, ctx.Device.GraphicsQueue); err != nil {
		return nil, err
	}

	return target.Pixels(ctx)
}

// VertexBytes returns a copy of the bytes uploaded to the vertex buffer.
func (r *Renderer) VertexBytes() []byte {
	return append([]byte(nil), r.vertexBytes...)
}

func (r *Renderer) Description() PipelineDescription {
	return r.description
}

// Destroy releases the GPU objects. The renderer must not be used after.
func (r *Renderer) Destroy(ctx *vulkan.GraphicsContext) error {
	var errs []error
	if ctx.Device.LogicalDevice != nil {
		errs = append(errs, ctx.WaitIdle())
	}

	if r.imageAvailable != vk.NullSemaphore {
		vk.DestroySemaphore(ctx.Device.LogicalDevice, r.imageAvailable, ctx.Allocator)
		r.imageAvailable = vk.NullSemaphore
	}
	if r.inFlight != nil {
		r.inFlight.Destroy(ctx)
		r.inFlight = nil
	}
	if r.commandBuffer != nil {
		r.commandBuffer.Free(ctx, ctx.Device.GraphicsCommandPool)
		r.commandBuffer = nil
	}
	if r.vertexBuffer != nil {
		r.vertexBuffer.Destroy(ctx)
		r.vertexBuffer = nil
	}
	if r.pipeline != nil {
		r.pipeline.Destroy(ctx)
		r.pipeline = nil
	}
	if r.renderpass != nil {
		r.renderpass.Destroy(ctx)
		r.renderpass = nil
	}
	return errors.Join(errs...)
}

package renderer

import (
	"encoding/binary"
	"math"

	vk "github.com/goki/vulkan"
)

// Vertex is one corner of the triangle in clip space.
type Vertex struct {
	Position [2]float32
}

const VertexStride = 8

// TriangleVertices are uploaded once and never change.
var TriangleVertices = []Vertex{
	{Position: [2]float32{-1, -1}},
	{Position: [2]float32{0, 1}},
	{Position: [2]float32{1, -1}},
}

// EncodeVertices lays the vertices out as consecutive little-endian float32
// pairs.
func EncodeVertices(vertices []Vertex) []byte {
	out := make([]byte, len(vertices)*VertexStride)
	for i, v := range vertices {
		binary.LittleEndian.PutUint32(out[i*VertexStride:], math.Float32bits(v.Position[0]))
		binary.LittleEndian.PutUint32(out[i*VertexStride+4:], math.Float32bits(v.Position[1]))
	}
	return out
}

// PipelineDescription is everything the pipeline is built from, as a plain
// comparable value.
type PipelineDescription struct {
	VertexEntryPoint   string
	FragmentEntryPoint string
	ColorFormat        vk.Format

	Binding           uint32
	Stride            uint32
	AttributeLocation uint32
	AttributeFormat   vk.Format
	AttributeOffset   uint32

	Topology     vk.PrimitiveTopology
	CullMode     vk.CullModeFlagBits
	Wireframe    bool
	Samples      vk.SampleCountFlagBits
	BlendEnabled bool
}

func DescribePipeline(colorFormat vk.Format) PipelineDescription {
	return PipelineDescription{
		VertexEntryPoint:   "vertex",
		FragmentEntryPoint: "fragment",
		ColorFormat:        colorFormat,
		Binding:            0,
		Stride:             VertexStride,
		AttributeLocation:  0,
		AttributeFormat:    vk.FormatR32g32Sfloat,
		AttributeOffset:    0,
		Topology:           vk.PrimitiveTopologyTriangleList,
		CullMode:           vk.CullModeNone,
		Wireframe:          false,
		Samples:            vk.SampleCount1Bit,
		BlendEnabled:       false,
	}
}

// viewport covers the whole target with a negative height so that +y
// points up like in the shader's clip space.
func viewport(width, height uint32) vk.Viewport {
	return vk.Viewport{
		X:        0,
		Y:        float32(height),
		Width:    float32(width),
		Height:   -float32(height),
		MinDepth: 0,
		MaxDepth: 1,
	}
}

func scissor(width, height uint32) vk.Rect2D {
	return vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: width, Height: height},
	}
}

package vulkan

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/triangle/engine/core"
)

const spirvMagic = 0x07230203

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The internal shader module Handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// CompileWGSL translates WGSL source into SPIR-V words.
func CompileWGSL(source string) ([]uint32, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrShaderCompile, err)
	}
	code, err := BytesToBytecode(spirv)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrShaderCompile, err)
	}
	return code, nil
}

// BytesToBytecode turns a little-endian SPIR-V binary into 32 bit words.
func BytesToBytecode(data []byte) ([]uint32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid SPIR-V length %d", len(data))
	}
	code := make([]uint32, len(data)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	if code[0] != spirvMagic {
		return nil, fmt.Errorf("invalid SPIR-V magic 0x%08x", code[0])
	}
	return code, nil
}

// NewShaderStage creates a module from SPIR-V code and describes the stage
// that runs entryPoint from it.
func NewShaderStage(context *GraphicsContext, code []uint32, stage vk.ShaderStageFlagBits, entryPoint string) (*VulkanShaderStage, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}

	var module vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &module); res != vk.Success {
		return nil, context.resultError("vkCreateShaderModule", res)
	}

	return &VulkanShaderStage{
		Handle: module,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: module,
			PName:  VulkanSafeString(entryPoint),
		},
	}, nil
}

func (s *VulkanShaderStage) Destroy(context *GraphicsContext) {
	if s.Handle != nil {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = nil
	}
}

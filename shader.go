package vkbind

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkbind/shader"
)

// ShaderModule is a compiled shader loaded onto the device.
type ShaderModule struct {
	Device         *Device
	Shader         shader.CompiledShader
	VKShaderModule vk.ShaderModule
}

// CreateShaderModule loads the SPIR-V words of cs.
func (d *Device) CreateShaderModule(cs shader.CompiledShader) (*ShaderModule, error) {
	var module vk.ShaderModule
	err := vk.Error(vk.CreateShaderModule(d.VKDevice, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(cs.Words) * 4),
		PCode:    cs.Words,
	}, nil, &module))
	if err != nil {
		return nil, errors.Wrapf(err, "create shader module for %s", cs.Source)
	}

	var ret ShaderModule
	ret.VKShaderModule = module
	ret.Device = d
	ret.Shader = cs
	return &ret, nil
}

// LoadShaderModuleFromFile compiles or loads path and creates a module
// for its entry point.
func (d *Device) LoadShaderModuleFromFile(path, entry string) (*ShaderModule, error) {
	cs, err := shader.Compile(path, entry)
	if err != nil {
		return nil, err
	}
	return d.CreateShaderModule(cs)
}

func (s *ShaderModule) VKPipelineShaderStageCreateInfo() vk.PipelineShaderStageCreateInfo {
	var shaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{}
	shaderStageCreateInfo.SType = vk.StructureTypePipelineShaderStageCreateInfo
	shaderStageCreateInfo.Stage = vk.ShaderStageFlagBits(s.Shader.Stage.Flags())
	shaderStageCreateInfo.Module = s.VKShaderModule
	shaderStageCreateInfo.PName = safeString(s.Shader.EntryPoint)
	return shaderStageCreateInfo
}

func (s *ShaderModule) Destroy() {
	vk.DestroyShaderModule(s.Device.VKDevice, s.VKShaderModule, nil)
}

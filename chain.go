package vkbind

import (
	"log"
	"sort"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkbind/descriptor"
	"github.com/celer/vkbind/shader"
	"github.com/celer/vkbind/spirv"
)

// Chain is the set of shader stages of one pipeline together with the
// descriptor pool and push-constant blocks built from their reflection.
type Chain struct {
	Device        *Device
	Modules       map[spirv.Stage]*ShaderModule
	Pool          *descriptor.Pool
	PushConstants descriptor.PushConstantMap

	driver *Driver
	// layouts for unused set indices below the highest one in use
	gaps []*DescriptorSetLayout
}

// BuildChain creates a shader module per stage and a descriptor pool for
// every binding the stages declare. A minAlign of 0 uses the device's
// minUniformBufferOffsetAlignment.
func (d *Device) BuildChain(shaders []shader.CompiledShader, minAlign uint64) (*Chain, error) {
	return d.BuildChainWithDriver(NewDriver(d), shaders, minAlign)
}

// BuildChainWithDriver is BuildChain using a caller supplied driver, for
// example one with a shared buffer arena.
func (d *Device) BuildChainWithDriver(driver *Driver, shaders []shader.CompiledShader, minAlign uint64) (*Chain, error) {
	if minAlign == 0 {
		minAlign = d.PhysicalDevice.MinUniformBufferOffsetAlignment()
	}

	seen := make(map[spirv.Stage]string)
	builder := descriptor.NewPoolBuilder(minAlign)
	for _, cs := range shaders {
		if prev, dup := seen[cs.Stage]; dup {
			return nil, errors.Errorf("%s and %s are both %s shaders", prev, cs.Source, cs.Stage)
		}
		seen[cs.Stage] = cs.Source
		if err := builder.Add(cs); err != nil {
			return nil, errors.Wrapf(err, "reflect %s", cs.Source)
		}
	}

	c := &Chain{
		Device:  d,
		Modules: make(map[spirv.Stage]*ShaderModule),
		driver:  driver,
	}
	for _, cs := range shaders {
		m, err := d.CreateShaderModule(cs)
		if err != nil {
			c.Destroy()
			return nil, err
		}
		c.Modules[cs.Stage] = m
	}

	pool, push, err := builder.Build(driver)
	if err != nil {
		c.Destroy()
		return nil, err
	}
	c.Pool = pool
	c.PushConstants = push

	limit := d.PhysicalDevice.MaxPushConstantsSize()
	for _, name := range push.Names() {
		if r := push[name].Range(); r.Offset+r.Size > limit {
			c.Destroy()
			return nil, errors.Errorf("push constant block %q needs %d bytes, device allows %d", name, r.Offset+r.Size, limit)
		}
	}
	return c, nil
}

// Driver returns the driver the chain's pool was built with.
func (c *Chain) Driver() *Driver {
	return c.driver
}

// Stages returns the chain's stages in pipeline order.
func (c *Chain) Stages() []spirv.Stage {
	ret := make([]spirv.Stage, 0, len(c.Modules))
	for s := range c.Modules {
		ret = append(ret, s)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// StageCreateInfos returns one stage create info per module, ordered by
// stage.
func (c *Chain) StageCreateInfos() []vk.PipelineShaderStageCreateInfo {
	stages := c.Stages()
	ret := make([]vk.PipelineShaderStageCreateInfo, len(stages))
	for i, s := range stages {
		ret[i] = c.Modules[s].VKPipelineShaderStageCreateInfo()
	}
	return ret
}

// SetLayouts returns the layout for every set index from 0 up to the highest
// used one. Unused indices get an empty layout owned by the chain.
func (c *Chain) SetLayouts() ([]*DescriptorSetLayout, error) {
	sets := c.Pool.Sets()
	if len(sets) == 0 {
		return nil, nil
	}
	ret := make([]*DescriptorSetLayout, sets[len(sets)-1].Set+1)
	for _, s := range sets {
		l, err := c.driver.Layout(s.Layout)
		if err != nil {
			return nil, err
		}
		ret[s.Set] = l
	}
	for i := range ret {
		if ret[i] != nil {
			continue
		}
		if len(c.gaps) == 0 {
			empty, err := c.Device.CreateDescriptorSetLayout(nil)
			if err != nil {
				return nil, err
			}
			c.gaps = append(c.gaps, empty)
		}
		ret[i] = c.gaps[0]
	}
	return ret, nil
}

// CreatePipelineLayout creates a pipeline layout from the chain's set
// layouts and push-constant ranges. The caller destroys it.
func (c *Chain) CreatePipelineLayout() (*PipelineLayout, error) {
	layouts, err := c.SetLayouts()
	if err != nil {
		return nil, err
	}
	return c.Device.CreatePipelineLayoutWithPushConstants(layouts, c.PushConstants.Ranges())
}

// MakeBuffers creates the uniform and storage buffers of every set.
func (c *Chain) MakeBuffers() (map[string]*descriptor.Buffer, error) {
	return c.Pool.MakeBuffers(c.driver)
}

// UpdateSets writes descriptors by resource name.
func (c *Chain) UpdateSets(writes []descriptor.NamedWrite) int {
	return c.Pool.UpdateSets(c.driver, writes)
}

// BindBuffers points every buffer's binding at the whole buffer. A buffer
// whose fields were moved off their declared offsets is still bound, with
// a warning, since the shader will not find those fields where it looks.
func (c *Chain) BindBuffers(buffers map[string]*descriptor.Buffer) int {
	writes := make([]descriptor.NamedWrite, 0, len(buffers))
	for name, b := range buffers {
		if !b.Packed() {
			log.Printf("binding all of %q although its fields are not at their declared offsets", name)
		}
		writes = append(writes, descriptor.NamedWrite{Name: name, Info: b.WholeInfo()})
	}
	return c.UpdateSets(writes)
}

func (c *Chain) Destroy() {
	if c.Pool != nil {
		c.Pool.Release()
		c.Pool = nil
	}
	for _, g := range c.gaps {
		g.Destroy()
	}
	c.gaps = nil
	for s, m := range c.Modules {
		m.Destroy()
		delete(c.Modules, s)
	}
}

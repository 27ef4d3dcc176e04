package main

import (
	"fmt"
	"io"
	"time"

	vk "github.com/vulkan-go/vulkan"

	"github.com/celer/vkbind"
	"github.com/celer/vkbind/shader"
)

type gpuContext struct {
	glfw     bool
	instance *vkbind.Instance
	device   *vkbind.Device
	family   *vkbind.QueueFamily
}

func openGPU(useGLFW bool) (*gpuContext, error) {
	var err error
	if useGLFW {
		err = vkbind.InitializeWithGLFW()
	} else {
		err = vkbind.InitializeForComputeOnly()
	}
	if err != nil {
		return nil, err
	}

	g := &gpuContext{glfw: useGLFW}

	app := &vkbind.App{Name: "vkreflect", APIVersion: vkbind.Version{Major: 1, Minor: 1}}
	g.instance, err = app.CreateInstance()
	if err != nil {
		g.Close()
		return nil, err
	}

	pds, err := g.instance.PhysicalDevices()
	if err != nil {
		g.Close()
		return nil, err
	}
	if len(pds) == 0 {
		g.Close()
		return nil, fmt.Errorf("no vulkan devices found")
	}

	qfs, err := pds[0].QueueFamilies()
	if err != nil {
		g.Close()
		return nil, err
	}
	graphics := qfs.FilterGraphics()
	if len(graphics) == 0 {
		g.Close()
		return nil, fmt.Errorf("%s has no graphics queue", pds[0])
	}
	g.family = graphics[0]

	g.device, err = pds[0].CreateLogicalDevice(graphics[:1])
	if err != nil {
		g.Close()
		return nil, err
	}
	return g, nil
}

// realize builds the chain on the device, fills its buffers with zeros and
// submits a command buffer that binds every set and pushes every constant.
func (g *gpuContext) realize(w io.Writer, shaders []shader.CompiledShader, align uint64) error {
	driver := vkbind.NewDriverWithOptions(g.device, vkbind.DriverOptions{ArenaSize: 1 << 20})
	defer driver.Close()

	chain, err := g.device.BuildChainWithDriver(driver, shaders, align)
	if err != nil {
		return err
	}
	defer chain.Destroy()

	layout, err := chain.CreatePipelineLayout()
	if err != nil {
		return err
	}
	defer layout.Destroy()

	buffers, err := chain.MakeBuffers()
	if err != nil {
		return err
	}
	for _, b := range buffers {
		for _, f := range b.Fields() {
			r, _ := b.Region(f)
			if err := b.Write(f, make([]byte, r.Size)); err != nil {
				return err
			}
		}
	}
	written := chain.BindBuffers(buffers)

	pool, err := g.device.CreateCommandPool(g.family)
	if err != nil {
		return err
	}
	defer pool.Destroy()
	cb, err := pool.AllocateBuffer()
	if err != nil {
		return err
	}
	defer pool.FreeBuffer(cb)

	if err := cb.BeginOneTime(); err != nil {
		return err
	}
	if err := cb.CmdBindChainSets(vk.PipelineBindPointGraphics, chain, layout); err != nil {
		return err
	}
	rec := cb.PushConstantRecorder(layout)
	for _, name := range chain.PushConstants.Names() {
		p := chain.PushConstants[name]
		for f, fl := range p.Fields {
			if err := p.Write(rec, f, make([]byte, fl.Size)); err != nil {
				return err
			}
		}
	}
	if err := cb.End(); err != nil {
		return err
	}

	fence, err := g.device.CreateFence(false)
	if err != nil {
		return err
	}
	defer fence.Destroy()
	if err := g.device.GetQueue(g.family).SubmitWithFence(fence, cb); err != nil {
		return err
	}
	if err := g.device.WaitForFences(true, 5*time.Second, fence); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nrealized on %s: %d stages, %d sets, %d buffers, %d descriptors written\n",
		g.device.PhysicalDevice, len(chain.Modules), len(chain.Pool.Sets()), len(buffers), written)
	return nil
}

func (g *gpuContext) Close() {
	if g.device != nil {
		g.device.WaitIdle()
		g.device.Destroy()
	}
	if g.instance != nil {
		g.instance.Destroy()
	}
	if g.glfw {
		vkbind.TerminateGLFW()
	}
}

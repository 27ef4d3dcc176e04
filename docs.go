/*
Package vkbind builds Vulkan descriptor pools, set layouts, buffers and
push-constant ranges from the reflection of SPIR-V shaders, so a pipeline's
resource bindings never have to be written out by hand.

The work is split across packages:

	spirv       parses SPIR-V and reports every descriptor binding and push
	            constant block of an entry point, with field layouts
	shader      compiles WGSL through naga, or loads SPIR-V, into a
	            CompiledShader tagged with its stage and entry point
	descriptor  merges the bindings of all stages of a pipeline into one
	            pool and creates buffers whose fields can be written by name
	vkbind      runs the descriptor package against a real device

The descriptor package only talks to a Driver. HostDriver keeps
everything in memory and is what the tests and the vkreflect tool use;
Driver in this package creates the real Vulkan objects.

Typical use against a device:

	vs, _ := shader.Compile("mesh.vert.wgsl", "vs_main")
	fs, _ := shader.Compile("mesh.frag.wgsl", "fs_main")

	chain, err := device.BuildChain([]shader.CompiledShader{vs, fs}, 0)
	if err != nil {
		return err
	}
	defer chain.Destroy()

	layout, _ := chain.CreatePipelineLayout()
	defer layout.Destroy()

	buffers, _ := chain.MakeBuffers()
	chain.BindBuffers(buffers)
	buffers["camera"].Write("view", viewMatrixBytes)

	cb.CmdBindChainSets(vk.PipelineBindPointGraphics, chain, layout)
	chain.PushConstants["push"].Write(cb.PushConstantRecorder(layout), "tint", tintBytes)

Uniform buffer fields are placed at their declared offset rounded up to
the alignment given to BuildChain, normally the device's
minUniformBufferOffsetAlignment, so each field can also be bound on its
own with a dynamic or ranged descriptor. Push constant fields keep their
declared offsets.

Native vulkan structures are exposed in all the objects prefixed with 'VK'
in the name, so applications aren't limited by what this package
provides.
*/
package vkbind

// Command vkreflect prints the descriptor plan of a set of shaders: the
// sets and bindings every stage declares, the effective layout of each
// buffer field, the descriptor pool sizes and the size of every buffer.
//
// Usage:
//
//	vkreflect [options] <shader>...
//
// A shader is a WGSL file or a SPIR-V binary. The stage is taken from the
// entry point, or from a tag in the file name such as mesh.vert.wgsl.
//
// Options:
//
//	-align <n>   Field alignment in bytes (default 256)
//	-device      Use the first GPU's minUniformBufferOffsetAlignment
//	-glfw        Load Vulkan through glfw instead of the system loader
//	-realize     Also build the pool, buffers and pipeline layout on the GPU
//	-entry <fn>  Entry point to use in every shader
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/celer/vkbind/descriptor"
	"github.com/celer/vkbind/shader"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		align   uint64
		device  bool
		useGLFW bool
		realize bool
		entry   string
		verbose bool
	)

	flag.Uint64Var(&align, "align", 256, "Field alignment in `bytes`")
	flag.BoolVar(&device, "device", false, "Query the alignment from the first GPU")
	flag.BoolVar(&useGLFW, "glfw", false, "Load Vulkan through glfw")
	flag.BoolVar(&realize, "realize", false, "Build the descriptor objects on the GPU")
	flag.StringVar(&entry, "entry", "", "Entry point `name` to use in every shader")
	flag.BoolVar(&verbose, "v", false, "Log descriptor objects as they are created")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: vkreflect [options] <shader>...\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return fmt.Errorf("no shaders given")
	}
	if !verbose {
		descriptor.SetLogger(nil)
	}

	sources := make([]shader.Source, flag.NArg())
	for i, path := range flag.Args() {
		sources[i] = shader.Source{Path: path, Entry: entry}
	}
	shaders, err := shader.CompileChain(sources)
	if err != nil {
		return err
	}

	var gpu *gpuContext
	if device || realize {
		gpu, err = openGPU(useGLFW)
		if err != nil {
			return err
		}
		defer gpu.Close()
		if device {
			pd := gpu.device.PhysicalDevice
			align = pd.MinUniformBufferOffsetAlignment()
			fmt.Printf("device %s\n", pd)
			fmt.Printf("  minUniformBufferOffsetAlignment  %d\n", align)
			fmt.Printf("  minStorageBufferOffsetAlignment  %d\n", pd.MinStorageBufferOffsetAlignment())
			fmt.Printf("  maxPushConstantsSize             %d\n", pd.MaxPushConstantsSize())
			fmt.Printf("  host visible memory types        %d\n\n", pd.HostVisibleMemoryTypes())
		}
	}

	if err := report(os.Stdout, shaders, align); err != nil {
		return err
	}

	if realize {
		return gpu.realize(os.Stdout, shaders, align)
	}
	return nil
}

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	gu "github.com/docker/go-units"

	"github.com/celer/vkbind/descriptor"
	"github.com/celer/vkbind/shader"
	"github.com/celer/vkbind/spirv"
)

// report builds the shaders against a host driver and prints the result.
func report(w io.Writer, shaders []shader.CompiledShader, align uint64) error {
	b := descriptor.NewPoolBuilder(align)
	for _, cs := range shaders {
		if err := b.Add(cs); err != nil {
			return fmt.Errorf("%s: %v", cs.Source, err)
		}
	}

	d := descriptor.NewHostDriver()
	pool, push, err := b.Build(d)
	if err != nil {
		return err
	}
	defer pool.Release()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	for _, cs := range shaders {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", cs.Stage, cs.EntryPoint, cs.Source)
	}
	fmt.Fprintln(tw)

	for _, s := range pool.Sets() {
		fmt.Fprintf(tw, "set %d\n", s.Set)
		for _, rb := range s.Bindings() {
			fmt.Fprintf(tw, "  binding %d\t%s\t%s\tx%d\t%s\n", rb.Binding, rb.Name, rb.Type, rb.Count, rb.Stages)
			printFields(tw, rb.Fields)
		}
	}

	for _, name := range push.Names() {
		p := push[name]
		fmt.Fprintf(tw, "push constant %s\toffset %d\tsize %d\t%s\n", p.Name, p.Offset, p.Size, p.Stages)
		printFields(tw, p.Fields)
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "pool\tmax sets %d\n", pool.MaxSets())
	for _, ps := range pool.PoolSizes() {
		fmt.Fprintf(tw, "  %s\t%d\n", ps.Type, ps.Count)
	}

	buffers, err := pool.MakeBuffers(d)
	if err != nil {
		return err
	}
	if len(buffers) > 0 {
		fmt.Fprintln(tw)
		var total uint64
		for _, s := range pool.Sets() {
			for _, rb := range s.Bindings() {
				buf, ok := buffers[rb.Name]
				if !ok || buf.Set != s.Set || buf.Binding != rb.Binding {
					continue
				}
				fmt.Fprintf(tw, "buffer %s\t%s\t(%d bytes)\n", buf.Name, gu.BytesSize(float64(buf.Size)), buf.Size)
				total += buf.Size
			}
		}
		fmt.Fprintf(tw, "total\t%s\n", gu.BytesSize(float64(total)))
	}

	return tw.Flush()
}

func printFields(w io.Writer, fields map[string]spirv.FieldLayout) {
	for _, name := range spirv.SortedFieldNames(fields) {
		f := fields[name]
		fmt.Fprintf(w, "    %s\t@%d\t(declared %d)\t%d bytes\n", name, f.Offset, f.DeclaredOffset, f.Size)
	}
}

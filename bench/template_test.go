package template_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dangdungcntt/go-dryml"
)

// makeLargeTemplate builds a tag library with enough definitions, calls and
// parts for parse and generation costs to show up in the benchmarks.
func makeLargeTemplate() string {
	var b strings.Builder
	for i := range 30 {
		fmt.Fprintf(&b, `<def tag="row%d" attrs="index, text">
  <div class="row" merge_attrs>
    <%%= index %%>: <%%= text %%>
    <tagbody/>
  </div>
</def>
`, i)
	}
	b.WriteString(`<def tag="Listing">
  <ul param="items">
`)
	for i := range 30 {
		fmt.Fprintf(&b, `    <li><row%d index="%d" text="&item.name" part="row_part_%d"><em>#%d</em></row%d></li>
`, i, i, i, i, i)
	}
	b.WriteString(`  </ul>
</def>
`)
	return b.String()
}

var tplSource = makeLargeTemplate()

type fixedModTime time.Time

func (m fixedModTime) ModTime(string) (time.Time, bool) { return time.Time(m), true }

// 1) Compile through a warm cache
func Benchmark_Compile_Cached(b *testing.B) {
	c := dryml.NewCompilerFS(nil, dryml.WithModTimeSource(fixedModTime(time.Now())))
	req := dryml.Request{Source: tplSource, Environment: dryml.TagLibrary, Path: "/big.taglib.dryml"}
	_, err := c.Compile(context.Background(), req)
	require.NoError(b, err, "compile template failed")

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			res, err := c.Compile(context.Background(), req)
			if err != nil {
				b.Fatalf("compile failed: %v", err)
			}
			if !res.FromCache {
				b.Fatal("expected a cache hit")
			}
		}
	})
}

// 2) Parse on every iteration (no mtime, never cached)
func Benchmark_Compile_ParseEachTime(b *testing.B) {
	c := dryml.NewCompilerFS(nil)
	req := dryml.Request{Source: tplSource, Environment: dryml.TagLibrary, Path: dryml.EmptyPage}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := c.Compile(context.Background(), req); err != nil {
				b.Fatalf("compile failed: %v", err)
			}
		}
	})
}

// 3) Template processing alone, without the compiler
func Benchmark_Template_Process(b *testing.B) {
	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		t := dryml.NewTemplate(tplSource, dryml.TagLibrary, "/big.taglib.dryml")
		if _, _, err := t.Process(); err != nil {
			b.Fatalf("process failed: %v", err)
		}
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/metabind"
	"github.com/aretw0/metabind/pkg/blocks"
	"github.com/aretw0/metabind/pkg/core"
	"github.com/aretw0/metabind/pkg/schema"
)

func main() {
	count := flag.Int("count", 1000, "Number of posts to generate")
	keep := flag.Bool("keep", false, "Keep the benchmark site after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "metabind_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	// Posts are written straight to disk to simulate an existing site.
	fmt.Printf("Generating %d posts in %s...\n", *count, benchDir)
	startGen := time.Now()
	postsDir := filepath.Join(benchDir, "posts")
	if err := os.MkdirAll(postsDir, 0o755); err != nil {
		panic(err)
	}
	for i := 0; i < *count; i++ {
		body, err := blocks.Serialize([]core.BlockInstance{
			{ID: fmt.Sprintf("book-%d", i), Type: schema.BookDetailsBlock},
			{ID: fmt.Sprintf("para-%d", i), Type: schema.ParagraphBlock, Attributes: core.Metadata{"content": "Post body", "align": "left"}},
		})
		if err != nil {
			panic(err)
		}
		content := fmt.Sprintf("---\n%s: Post %d\n%s: Gopher\n%s: \"2024-01-%02d\"\n---\n%s",
			schema.BookTitleKey, i, schema.BookAuthorKey, schema.BookDateKey, i%28+1, body)
		filename := filepath.Join(postsDir, fmt.Sprintf("post-%d.md", i))
		if err := os.WriteFile(filename, []byte(content), 0o644); err != nil {
			panic(err)
		}
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	open := func() (*metabind.Site, time.Duration) {
		start := time.Now()
		site, err := metabind.New(benchDir,
			metabind.WithLogger(logger),
			metabind.WithVersioning(false),
		)
		if err != nil {
			panic(err)
		}
		return site, time.Since(start)
	}

	// Run 1: cold, every post is parsed to build the index.
	fmt.Println("Opening site (Run 1 - Cold)...")
	site, cold := open()
	if err := site.Close(); err != nil {
		panic(err)
	}

	// Run 2: a new process reuses the persisted index.
	fmt.Println("Opening site (Run 2 - Warm)...")
	site, warm := open()
	defer site.Close()

	fmt.Println("Rendering every post...")
	ctx := context.Background()
	startRender := time.Now()
	var bytes int
	for i := 0; i < *count; i++ {
		out, err := site.Renderer.Post(ctx, fmt.Sprintf("post-%d", i))
		if err != nil {
			panic(err)
		}
		bytes += len(out)
	}
	render := time.Since(startRender)

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d posts):\n", *count)
	fmt.Printf("  Cold open: %v\n", cold)
	fmt.Printf("  Warm open: %v\n", warm)
	fmt.Printf("  Render:    %v (%d bytes)\n", render, bytes)
	fmt.Printf("--------------------------------------------------\n")
}

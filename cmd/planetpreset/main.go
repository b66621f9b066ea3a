// Command planetpreset fetches a bundle of planet config presets (seed,
// terrain layers, biome definitions) from a remote source into a local
// directory: a one-shot tool that keeps network/VCS access out of the
// engine's hot path.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	get "github.com/hashicorp/go-getter"
)

func main() {
	var (
		base = flag.String("base", "https://github.com/kvossen/planetforge-presets.git", "base repository url")
		name = flag.String("preset", "earthlike", "preset bundle name")
		out  = flag.String("o", "./presets", "output directory path")
	)
	flag.Parse()

	if *out == "" {
		log.Fatal("output dir path required")
	}
	if *name == "" {
		log.Fatal("preset name required")
	}

	path := fmt.Sprintf("%s/%s", *out, *name)

	if err := os.RemoveAll(path); err != nil {
		log.Fatalf("clear existing preset dir: %v", err)
	}

	log.Printf("fetching preset %q into %s", *name, path)

	url := fmt.Sprintf("git::%s//presets/%s", *base, *name)

	if err := get.Get(path, url); err != nil {
		log.Fatalf("fetch preset: %v", err)
	}

	log.Printf("done fetching preset %q", *name)
}

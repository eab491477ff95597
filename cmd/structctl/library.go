package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/dustin/go-humanize"

	"voxelforge.ai/internal/persistence/structfile"
)

func libraryCmd(args []string) {
	if len(args) == 0 {
		usageErr("usage: structctl library put|get|list|rm [flags]")
	}
	fs := flag.NewFlagSet("library "+args[0], flag.ExitOnError)
	cfgPath := configFlag(fs)
	key := fs.String("key", "", "registry key")
	in := fs.String("in", "", "structure file to store (put)")
	out := fs.String("out", "", "write the stored document here (get)")
	prefix := fs.String("prefix", "", "key prefix filter (list)")
	_ = fs.Parse(args[1:])

	e := loadEnv(*cfgPath)
	lib := e.openLibrary()
	defer lib.Close()
	ctx := context.Background()

	switch args[0] {
	case "put":
		if *key == "" || *in == "" {
			usageErr("missing -key or -in")
		}
		snap, err := structfile.ReadFile(*in, *key, e.blocks)
		if err != nil {
			fatal("read "+*in, err)
		}
		ent, err := lib.Put(ctx, *key, snap)
		if err != nil {
			fatal("put", err)
		}
		fmt.Printf("put ok: key=%s size=%v bytes=%s\n", ent.Key, ent.Size, humanize.Bytes(uint64(ent.Bytes)))
	case "get":
		if *key == "" || *out == "" {
			usageErr("missing -key or -out")
		}
		raw, err := lib.Raw(ctx, *key)
		if err != nil {
			fatal("get", err)
		}
		if err := structfile.WriteRaw(*out, raw); err != nil {
			fatal("write", err)
		}
		fmt.Printf("get ok: key=%s out=%s\n", *key, *out)
	case "list":
		ents, err := lib.List(ctx, *prefix)
		if err != nil {
			fatal("list", err)
		}
		for _, en := range ents {
			fmt.Printf("%-40s %3dx%-3dx%-3d %10s cells %9s  %s\n", en.Key, en.Size[0], en.Size[1], en.Size[2],
				humanize.Comma(int64(en.Volume)), humanize.Bytes(uint64(en.Bytes)), humanize.Time(en.UpdatedAt))
		}
	case "rm":
		if *key == "" {
			usageErr("missing -key")
		}
		if err := lib.Delete(ctx, *key); err != nil {
			fatal("rm", err)
		}
		fmt.Printf("rm ok: key=%s\n", *key)
	default:
		usageErr(fmt.Sprintf("unknown library command %q", args[0]))
	}
}

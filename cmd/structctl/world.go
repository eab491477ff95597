package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"voxelforge.ai/internal/sim/blockstate"
	"voxelforge.ai/internal/sim/geom"
	"voxelforge.ai/internal/sim/grid"
	"voxelforge.ai/internal/sim/ids"
	"voxelforge.ai/internal/sim/inventory"
)

func worldCmd(args []string) {
	if len(args) == 0 {
		usageErr("usage: structctl world new|set|get [flags]")
	}
	switch args[0] {
	case "new":
		worldNewCmd(args[1:])
	case "set":
		worldSetCmd(args[1:])
	case "get":
		worldGetCmd(args[1:])
	default:
		usageErr(fmt.Sprintf("unknown world command %q", args[0]))
	}
}

func (e *env) loadWorld() *grid.Grid {
	g, err := grid.ReadFile(e.cfg.WorldFile, e.blocks)
	if err != nil {
		fatal("read world", err)
	}
	return g
}

func (e *env) saveWorld(g *grid.Grid) {
	if err := grid.WriteFile(e.cfg.WorldFile, g); err != nil {
		fatal("write world", err)
	}
}

func worldNewCmd(args []string) {
	fs := flag.NewFlagSet("world new", flag.ExitOnError)
	cfgPath := configFlag(fs)
	seed := fs.Int64("seed", 0, "world seed (defaults to config seed)")
	force := fs.Bool("force", false, "overwrite an existing world file")
	_ = fs.Parse(args)

	e := loadEnv(*cfgPath)
	if _, err := os.Stat(e.cfg.WorldFile); err == nil && !*force {
		usageErr(fmt.Sprintf("%s exists; pass -force to overwrite", e.cfg.WorldFile))
	}
	s := e.cfg.Seed
	if *seed != 0 {
		s = *seed
	}
	e.saveWorld(grid.New(e.blocks, s))
	fmt.Printf("world ok: path=%s seed=%d\n", e.cfg.WorldFile, s)
}

// itemFlags collects repeated -item slot=ref*count values.
type itemFlags []inventory.Entry

func (f *itemFlags) String() string { return fmt.Sprint(len(*f)) }

func (f *itemFlags) Set(s string) error {
	slotStr, rest, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("want slot=item*count")
	}
	slot, err := strconv.Atoi(slotStr)
	if err != nil {
		return fmt.Errorf("slot: %w", err)
	}
	refStr, countStr, ok := strings.Cut(rest, "*")
	count := 1
	if ok {
		if count, err = strconv.Atoi(countStr); err != nil {
			return fmt.Errorf("count: %w", err)
		}
	}
	ref, err := ids.ParseItemRef(refStr)
	if err != nil {
		return err
	}
	*f = append(*f, inventory.Entry{Slot: slot, Stack: inventory.Stack{Item: ref.ID.String(), Variant: ref.Variant, Count: count}})
	return nil
}

func worldSetCmd(args []string) {
	fs := flag.NewFlagSet("world set", flag.ExitOnError)
	cfgPath := configFlag(fs)
	posStr := fs.String("pos", "", "position x,y,z (required)")
	blockID := fs.String("block", "", "block id (required)")
	props := fs.String("props", "", "properties name=value,... (unset ones use defaults)")
	var items itemFlags
	fs.Var(&items, "item", "container slot contents slot=item[:variant]*count (repeatable)")
	_ = fs.Parse(args)

	if *posStr == "" || *blockID == "" {
		usageErr("missing -pos or -block")
	}
	pos, err := parseVec3(*posStr)
	if err != nil {
		usageErr("bad -pos: " + err.Error())
	}
	e := loadEnv(*cfgPath)

	bt, ok := e.blocks.Lookup(*blockID)
	if !ok {
		if s := e.blocks.Suggest(*blockID); s != "" {
			fatal("block", fmt.Errorf("unknown block %s (did you mean %q?)", *blockID, s))
		}
		fatal("block", fmt.Errorf("unknown block %s", *blockID))
	}
	given, err := parseProps(*props)
	if err != nil {
		usageErr(err.Error())
	}
	full := blockstate.EncodeState(bt.Default())
	for k, v := range given {
		full[k] = v
	}
	st, err := blockstate.DecodeState(bt, full)
	if err != nil {
		fatal("props", err)
	}

	g := e.loadWorld()
	p := geom.FromArray(pos)
	if err := g.SetBlockState(p, st); err != nil {
		fatal("set", err)
	}
	if len(items) > 0 {
		raw, ok := g.ContainerAt(p)
		if !ok {
			fatal("item", fmt.Errorf("%s has no container", *blockID))
		}
		for _, it := range items {
			ref := ids.ItemRef{ID: mustResource(it.Stack.Item), Variant: it.Stack.Variant}
			if !e.items.Has(ref) {
				fatal("item", fmt.Errorf("unknown item %s", ref))
			}
		}
		if errs := inventory.Write(raw, items); len(errs) > 0 {
			fatal("item", errs[0])
		}
	}
	e.saveWorld(g)
	fmt.Printf("set ok: pos=%v state=%s items=%d\n", p, st, len(items))
}

func mustResource(s string) ids.ResourceID {
	r, err := ids.ParseResourceID(s)
	if err != nil {
		fatal("item", err)
	}
	return r
}

func worldGetCmd(args []string) {
	fs := flag.NewFlagSet("world get", flag.ExitOnError)
	cfgPath := configFlag(fs)
	posStr := fs.String("pos", "", "position x,y,z (required)")
	_ = fs.Parse(args)

	pos, err := parseVec3(*posStr)
	if err != nil {
		usageErr("bad -pos: " + err.Error())
	}
	e := loadEnv(*cfgPath)
	g := e.loadWorld()
	p := geom.FromArray(pos)
	st, err := g.BlockState(p)
	if err != nil {
		fatal("get", err)
	}
	fmt.Printf("%v %s\n", p, st)

	raw, ok := g.ContainerAt(p)
	if !ok {
		return
	}
	entries := inventory.Read(raw)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Slot < entries[j].Slot })
	for _, en := range entries {
		fmt.Printf("  slot %2d: %s x%d\n", en.Slot, en.Stack.Ref(), en.Stack.Count)
	}
}

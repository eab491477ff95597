package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"voxelforge.ai/internal/config"
	"voxelforge.ai/internal/sim/blockstate"
	"voxelforge.ai/internal/sim/catalogs"
	"voxelforge.ai/internal/sim/inventory"
	"voxelforge.ai/internal/sim/loot"
)

const usage = `usage: structctl <command> [flags]

commands:
  world new|set|get   create or edit the reference world file
  capture             capture a box of the world into a structure
  generate            rebuild a structure into the world
  inspect             summarize a structure
  validate            check structure files against the schema and catalogs
  library put|get|list|rm
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	args := os.Args[2:]
	switch os.Args[1] {
	case "world":
		worldCmd(args)
	case "capture":
		captureCmd(args)
	case "generate":
		generateCmd(args)
	case "inspect":
		inspectCmd(args)
	case "validate":
		validateCmd(args)
	case "library":
		libraryCmd(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
}

// env is the loaded configuration plus the registries built from catalogs.
type env struct {
	cfg    config.Config
	cats   *catalogs.Catalogs
	blocks *blockstate.Registry
	items  *inventory.Items
	loot   *loot.Tables
	logger *log.Logger
}

func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", "./configs/structctl.yaml", "structctl.yaml path (empty for defaults)")
}

func loadEnv(cfgPath string) *env {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal("config", err)
	}
	cats, err := catalogs.Load(cfg.CatalogDir, cfg.AirBlock)
	if err != nil {
		fatal("catalogs", err)
	}
	blocks, err := cats.BlockRegistry()
	if err != nil {
		fatal("blocks", err)
	}
	items, err := cats.ItemRegistry()
	if err != nil {
		fatal("items", err)
	}
	tables, err := cats.LootTables(items)
	if err != nil {
		fatal("loot", err)
	}
	return &env{
		cfg:    cfg,
		cats:   cats,
		blocks: blocks,
		items:  items,
		loot:   tables,
		logger: log.New(os.Stdout, "[structctl] ", log.LstdFlags|log.Lmicroseconds),
	}
}

func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", what, err)
	os.Exit(1)
}

func usageErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}

func parseVec3(s string) ([3]int, error) {
	var v [3]int
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected x,y,z")
	}
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}

func parseVec3f(s string) ([3]float64, error) {
	var v [3]float64
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 3 {
		return v, fmt.Errorf("expected x,y,z")
	}
	for i := 0; i < 3; i++ {
		n, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return v, err
		}
		v[i] = n
	}
	return v, nil
}

// parseProps reads "k=v,k=v".
func parseProps(s string) (map[string]string, error) {
	out := map[string]string{}
	s = strings.TrimSpace(s)
	if s == "" {
		return out, nil
	}
	for _, kv := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("bad property %q (want name=value)", kv)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

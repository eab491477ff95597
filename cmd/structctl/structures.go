package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/oklog/ulid/v2"
	"github.com/schollz/progressbar/v3"

	"voxelforge.ai/internal/persistence/indexdb"
	persistlog "voxelforge.ai/internal/persistence/log"
	"voxelforge.ai/internal/persistence/structfile"
	"voxelforge.ai/internal/sim/geom"
	"voxelforge.ai/internal/structure"
)

func (e *env) openLibrary() *indexdb.Library {
	lib, err := indexdb.OpenSQLite(e.cfg.LibraryDB)
	if err != nil {
		fatal("library", err)
	}
	lib.MaxVolume = e.cfg.Limits.MaxVolume
	lib.CatalogDigest = e.cats.Blocks.Digest
	lib.Logger = e.logger
	return lib
}

// loadStructure reads a snapshot from -in when set, otherwise from the
// library under key.
func (e *env) loadStructure(ctx context.Context, key, in string) *structure.Snapshot {
	if in != "" {
		if key == "" {
			key = keyFromPath(in)
		}
		s, err := structfile.ReadFile(in, key, e.blocks)
		if err != nil {
			fatal("read "+in, err)
		}
		return s
	}
	if key == "" {
		usageErr("missing -key or -in")
	}
	lib := e.openLibrary()
	defer lib.Close()
	raw, err := lib.Raw(ctx, key)
	if err != nil {
		fatal("library", err)
	}
	s, err := structure.DecodeResolved(key, raw, e.blocks)
	if err != nil {
		fatal("decode "+key, err)
	}
	return s
}

func keyFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, structfile.CompressedExt)
	base = strings.TrimSuffix(base, ".json")
	return "file:" + strings.ToLower(base)
}

func newCaptureKey() string {
	return "capture:" + strings.ToLower(ulid.Make().String())
}

func captureCmd(args []string) {
	fs := flag.NewFlagSet("capture", flag.ExitOnError)
	cfgPath := configFlag(fs)
	boxStr := fs.String("box", "", "box minX,minY,minZ:maxX,maxY,maxZ; max is exclusive, fractions truncate (required)")
	key := fs.String("key", "", "registry key (default capture:<ulid>)")
	out := fs.String("out", "", "write the document to this path (.json or .json.zst)")
	store := fs.Bool("library", false, "store the snapshot in the library")
	_ = fs.Parse(args)

	if *boxStr == "" {
		usageErr("missing -box")
	}
	if *out == "" && !*store {
		usageErr("nothing to do: pass -out and/or -library")
	}
	lo, hi, ok := strings.Cut(*boxStr, ":")
	if !ok {
		usageErr("bad -box: expected min:max")
	}
	from, err := parseVec3f(lo)
	if err != nil {
		usageErr("bad -box min: " + err.Error())
	}
	to, err := parseVec3f(hi)
	if err != nil {
		usageErr("bad -box max: " + err.Error())
	}
	box := geom.Box{MinX: from[0], MinY: from[1], MinZ: from[2], MaxX: to[0], MaxY: to[1], MaxZ: to[2]}

	e := loadEnv(*cfgPath)
	if ext, err := box.Extents(); err == nil {
		if err := e.cfg.CheckVolume(ext.Volume()); err != nil {
			fatal("capture", err)
		}
	}
	g := e.loadWorld()
	snap, err := structure.Capture(g, box)
	if err != nil {
		fatal("capture", err)
	}
	if *key == "" {
		*key = newCaptureKey()
	}
	snap = snap.WithKey(*key)

	if *out != "" {
		if err := structfile.WriteFile(*out, snap); err != nil {
			fatal("write", err)
		}
	}
	if *store {
		lib := e.openLibrary()
		defer lib.Close()
		if _, err := lib.Put(context.Background(), *key, snap); err != nil {
			fatal("library", err)
		}
	}
	fmt.Printf("capture ok: key=%s size=%v cells=%s containers=%d out=%s library=%v\n",
		*key, snap.Size(), humanize.Comma(int64(snap.Volume())), snap.ContainerCells(), *out, *store)
}

func generateCmd(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	cfgPath := configFlag(fs)
	key := fs.String("key", "", "library key")
	in := fs.String("in", "", "structure file (instead of -key)")
	at := fs.String("at", "", "destination origin x,y,z (required)")
	quiet := fs.Bool("quiet", false, "no progress bar")
	_ = fs.Parse(args)

	if *at == "" {
		usageErr("missing -at")
	}
	base, err := parseVec3(*at)
	if err != nil {
		usageErr("bad -at: " + err.Error())
	}
	e := loadEnv(*cfgPath)
	snap := e.loadStructure(context.Background(), *key, *in)
	if err := e.cfg.CheckVolume(snap.Volume()); err != nil {
		fatal("generate", err)
	}
	g := e.loadWorld()

	gen := &structure.Generator{Blocks: e.blocks, Items: e.items, Loot: e.loot, Logger: e.logger}
	var bar *progressbar.ProgressBar
	if !*quiet && snap.Volume() > 0 {
		bar = progressbar.NewOptions(snap.Volume(),
			progressbar.OptionSetDescription("generate "+snap.Key()),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		gen.Progress = func(done, _ int) { _ = bar.Set(done) }
	}

	runID := persistlog.NewRunID()
	rep, runErr := gen.Generate(g, snap, geom.FromArray(base))
	if bar != nil {
		_ = bar.Finish()
	}
	if e.cfg.Log.GenerateLog {
		gl := persistlog.NewGenerateLogger(e.cfg.DataDir)
		if err := gl.WriteRun(persistlog.NewGenerateLogEntry(runID, rep, runErr)); err != nil {
			e.logger.Printf("generate log: %v", err)
		}
		_ = gl.Close()
	}
	if rep != nil && rep.Placed+rep.Air > 0 {
		// Keep whatever was placed, even when the run aborted part way.
		e.saveWorld(g)
	}
	if runErr != nil {
		fatal("generate", runErr)
	}
	for _, c := range rep.Skipped {
		fmt.Printf("skipped %v: %v\n", c.Pos, c.Err)
	}
	for _, c := range rep.EntryErrors {
		fmt.Printf("entry failed %v: %v\n", c.Pos, c.Err)
	}
	fmt.Printf("generate ok: run=%s %s\n", runID, rep)
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	cfgPath := configFlag(fs)
	key := fs.String("key", "", "library key")
	in := fs.String("in", "", "structure file (instead of -key)")
	top := fs.Int("top", 10, "block types to list")
	_ = fs.Parse(args)

	e := loadEnv(*cfgPath)
	ctx := context.Background()
	snap := e.loadStructure(ctx, *key, *in)

	fmt.Printf("key:        %s\n", snap.Key())
	fmt.Printf("size:       %d x %d x %d\n", snap.Size().X, snap.Size().Y, snap.Size().Z)
	fmt.Printf("cells:      %s\n", humanize.Comma(int64(snap.Volume())))
	fmt.Printf("containers: %d\n", snap.ContainerCells())
	if *in == "" {
		lib := e.openLibrary()
		defer lib.Close()
		if st, err := lib.Stat(ctx, *key); err == nil {
			fmt.Printf("stored:     %s, %s (sha256 %s)\n", humanize.Bytes(uint64(st.Bytes)), humanize.Time(st.UpdatedAt), st.Digest[:12])
			if st.CatalogDigest != "" && st.CatalogDigest != e.cats.Blocks.Digest {
				fmt.Println("warning:    captured against a different blocks.json")
			}
		}
	}

	hist := snap.BlockHistogram()
	for i, bc := range hist {
		if i == *top {
			fmt.Printf("  ... %d more\n", len(hist)-i)
			break
		}
		fmt.Printf("  %-24s %s\n", bc.BlockID, humanize.Comma(int64(bc.Count)))
	}
}

func validateCmd(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := configFlag(fs)
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		usageErr("usage: structctl validate file...")
	}
	e := loadEnv(*cfgPath)

	bad := 0
	for _, path := range fs.Args() {
		if err := validateFile(e, path); err != nil {
			fmt.Printf("FAIL %s: %v\n", path, err)
			bad++
			continue
		}
		fmt.Printf("ok   %s\n", path)
	}
	if bad > 0 {
		fatal("validate", fmt.Errorf("%d of %d files invalid", bad, fs.NArg()))
	}
}

func validateFile(e *env, path string) error {
	raw, err := structfile.ReadRaw(path)
	if err != nil {
		return err
	}
	if err := structure.ValidateSchema(raw); err != nil {
		return err
	}
	snap, err := structure.DecodeResolved(keyFromPath(path), raw, e.blocks)
	if err != nil {
		return err
	}
	// Report stale references the same way Generate would skip them.
	var missing []string
	seen := map[string]bool{}
	for _, bc := range snap.BlockHistogram() {
		if e.blocks.IsEmpty(bc.BlockID) {
			continue
		}
		if _, ok := e.blocks.Lookup(bc.BlockID); !ok && !seen[bc.BlockID] {
			seen[bc.BlockID] = true
			missing = append(missing, bc.BlockID)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", structure.ErrUnknownBlock, strings.Join(missing, ", "))
	}
	return e.cfg.CheckVolume(snap.Volume())
}

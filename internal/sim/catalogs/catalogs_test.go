package catalogs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voxelforge.ai/internal/sim/blockstate"
	"voxelforge.ai/internal/sim/ids"
)

func configDir() string { return filepath.Join("..", "..", "..", "configs") }

func TestLoad_BuildsRegistries(t *testing.T) {
	cats, err := Load(configDir(), "core:air")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cats.Blocks.Digest == "" || cats.Items.Digest == "" || cats.Loot.Digest == "" {
		t.Fatalf("missing digests: %+v", cats)
	}

	blocks, err := cats.BlockRegistry()
	if err != nil {
		t.Fatalf("BlockRegistry: %v", err)
	}
	if blocks.AirID() != "core:air" {
		t.Fatalf("AirID=%q", blocks.AirID())
	}
	chest, ok := blocks.Lookup("core:chest")
	if !ok {
		t.Fatalf("core:chest not registered")
	}
	if spec := chest.Container(); spec.Shape != blockstate.ContainerSlots || spec.Size != 27 {
		t.Fatalf("chest container=%+v", spec)
	}
	if _, err := blockstate.Decode(chest, "facing", "west"); err != nil {
		t.Fatalf("Decode facing: %v", err)
	}
	wheat, _ := blocks.Lookup("core:wheat")
	if _, err := blockstate.Decode(wheat, "age", "8"); !errors.Is(err, blockstate.ErrUnknownPropertyValue) {
		t.Fatalf("expected age=8 to be rejected, got %v", err)
	}

	items, err := cats.ItemRegistry()
	if err != nil {
		t.Fatalf("ItemRegistry: %v", err)
	}
	dye, _ := ids.ParseItemRef("core:dye:15")
	if !items.Has(dye) {
		t.Fatalf("core:dye:15 should resolve")
	}

	tables, err := cats.LootTables(items)
	if err != nil {
		t.Fatalf("LootTables: %v", err)
	}
	if _, err := tables.Resolve("core:chests/dungeon"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
}

func TestLoad_RequiresAir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blocks.json"), []byte(`[{"id":"core:stone"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "items.json"), []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir, "core:air"); err == nil {
		t.Fatalf("expected missing air to fail")
	}
}

func TestLoad_RejectsDuplicateItems(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blocks.json"), []byte(`[{"id":"core:air"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	items := `[{"id":"core:coal","variants":2},{"id":"core:coal"}]`
	if err := os.WriteFile(filepath.Join(dir, "items.json"), []byte(items), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(dir, "core:air")
	if err == nil || !strings.Contains(err.Error(), "duplicate id core:coal") {
		t.Fatalf("expected duplicate item to fail, got %v", err)
	}
}

func TestLootTables_RejectsUnknownItems(t *testing.T) {
	c := &Catalogs{
		Items: ItemCatalog{Defs: map[string]ItemDef{"core:coal": {ID: "core:coal"}}},
		Loot: LootCatalog{ByID: map[string]LootTableDef{
			"core:t": {ID: "core:t", Pools: []LootPoolDef{{Rolls: [2]int{1, 1}, Entries: []LootEntryDef{{Item: "core:diamond", Weight: 1, Count: [2]int{1, 1}}}}}},
		}},
	}
	items, err := c.ItemRegistry()
	if err != nil {
		t.Fatalf("ItemRegistry: %v", err)
	}
	if _, err := c.LootTables(items); err == nil {
		t.Fatalf("expected unknown loot item to fail")
	}
}

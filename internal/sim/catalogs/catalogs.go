package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"voxelforge.ai/internal/sim/blockstate"
	"voxelforge.ai/internal/sim/ids"
	"voxelforge.ai/internal/sim/inventory"
	"voxelforge.ai/internal/sim/loot"
)

type Catalogs struct {
	Blocks BlockCatalog
	Items  ItemCatalog
	Loot   LootCatalog
}

type BlockCatalog struct {
	AirID  string
	Defs   map[string]BlockDef
	Digest string
}

type BlockDef struct {
	ID         string        `json:"id"`
	Properties []PropertyDef `json:"properties,omitempty"`
	Container  *ContainerDef `json:"container,omitempty"`
}

type PropertyDef struct {
	Name   string   `json:"name"`
	Type   string   `json:"type"` // "bool","int","enum"
	Min    int      `json:"min,omitempty"`
	Max    int      `json:"max,omitempty"`
	Values []string `json:"values,omitempty"`
}

type ContainerDef struct {
	Shape string `json:"shape"` // "slots","handler"
	Size  int    `json:"size"`
}

type ItemCatalog struct {
	Defs   map[string]ItemDef
	Digest string
}

type ItemDef struct {
	ID       string `json:"id"`
	Variants int    `json:"variants,omitempty"`
}

type LootCatalog struct {
	ByID   map[string]LootTableDef
	Digest string
}

type LootTableDef struct {
	ID    string        `json:"id"`
	Pools []LootPoolDef `json:"pools"`
}

type LootPoolDef struct {
	Rolls      [2]int         `json:"rolls"`
	BonusRolls float64        `json:"bonus_rolls,omitempty"`
	Entries    []LootEntryDef `json:"entries"`
}

type LootEntryDef struct {
	Item   string `json:"item"`
	Weight int    `json:"weight"`
	Count  [2]int `json:"count"`
}

// Load reads blocks.json, items.json and loot_tables/ from configDir. airID
// names the empty block and must be declared in blocks.json.
func Load(configDir, airID string) (*Catalogs, error) {
	var c Catalogs

	if err := loadBlocks(filepath.Join(configDir, "blocks.json"), airID, &c.Blocks); err != nil {
		return nil, err
	}
	if err := loadItems(filepath.Join(configDir, "items.json"), &c.Items); err != nil {
		return nil, err
	}
	if err := loadLoot(filepath.Join(configDir, "loot_tables"), &c.Loot); err != nil {
		return nil, err
	}
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func loadBlocks(path, airID string, out *BlockCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	out.AirID = airID

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("blocks.json: %w", err)
	}
	out.Defs = map[string]BlockDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("blocks.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("blocks.json: duplicate id %s", d.ID)
		}
		out.Defs[d.ID] = d
	}
	if _, ok := out.Defs[airID]; !ok {
		return fmt.Errorf("blocks.json: missing air block %s", airID)
	}
	return nil
}

func loadItems(path string, out *ItemCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []ItemDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("items.json: %w", err)
	}
	out.Defs = map[string]ItemDef{}
	for _, d := range defs {
		if d.ID == "" {
			return fmt.Errorf("items.json: empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return fmt.Errorf("items.json: duplicate id %s", d.ID)
		}
		out.Defs[d.ID] = d
	}
	return nil
}

func loadLoot(dir string, out *LootCatalog) error {
	out.ByID = map[string]LootTableDef{}

	if _, err := os.Stat(dir); err != nil {
		// A catalog without loot tables is valid.
		if os.IsNotExist(err) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(files)

	var concat bytes.Buffer
	for _, p := range files {
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		concat.Write(b)
		concat.WriteByte('\n')

		var t LootTableDef
		if err := json.Unmarshal(b, &t); err != nil {
			return fmt.Errorf("loot table %s: %w", filepath.Base(p), err)
		}
		if t.ID == "" {
			return fmt.Errorf("loot table %s: missing id", filepath.Base(p))
		}
		if _, dup := out.ByID[t.ID]; dup {
			return fmt.Errorf("loot table %s: duplicate id %s", filepath.Base(p), t.ID)
		}
		out.ByID[t.ID] = t
	}
	out.Digest = sha256Hex(concat.Bytes())
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildProperty(blockID string, d PropertyDef) (*blockstate.Property, error) {
	var (
		p   *blockstate.Property
		err error
	)
	switch d.Type {
	case "bool":
		p, err = blockstate.NewBool(d.Name)
	case "int":
		p, err = blockstate.NewInt(d.Name, d.Min, d.Max)
	case "enum":
		p, err = blockstate.NewEnum(d.Name, d.Values...)
	default:
		err = fmt.Errorf("unknown property type %q", d.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("blocks.json: %s.%s: %w", blockID, d.Name, err)
	}
	return p, nil
}

// BlockRegistry builds the block registry with every declared property's
// value-domain table.
func (c *Catalogs) BlockRegistry() (*blockstate.Registry, error) {
	build := func(d BlockDef) (*blockstate.BlockType, error) {
		props := make([]*blockstate.Property, 0, len(d.Properties))
		for _, pd := range d.Properties {
			p, err := buildProperty(d.ID, pd)
			if err != nil {
				return nil, err
			}
			props = append(props, p)
		}
		var spec blockstate.ContainerSpec
		if d.Container != nil {
			spec = blockstate.ContainerSpec{Shape: blockstate.ContainerShape(d.Container.Shape), Size: d.Container.Size}
		}
		bt, err := blockstate.NewBlockType(d.ID, spec, props...)
		if err != nil {
			return nil, fmt.Errorf("blocks.json: %w", err)
		}
		return bt, nil
	}

	air, err := build(c.Blocks.Defs[c.Blocks.AirID])
	if err != nil {
		return nil, err
	}
	reg, err := blockstate.NewRegistry(air)
	if err != nil {
		return nil, err
	}
	for _, id := range sortedKeys(c.Blocks.Defs) {
		if id == c.Blocks.AirID {
			continue
		}
		bt, err := build(c.Blocks.Defs[id])
		if err != nil {
			return nil, err
		}
		if err := reg.Register(bt); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (c *Catalogs) ItemRegistry() (*inventory.Items, error) {
	defs := make([]inventory.ItemDef, 0, len(c.Items.Defs))
	for _, id := range sortedKeys(c.Items.Defs) {
		d := c.Items.Defs[id]
		defs = append(defs, inventory.ItemDef{ID: d.ID, Variants: d.Variants})
	}
	items, err := inventory.NewItems(defs...)
	if err != nil {
		return nil, fmt.Errorf("items.json: %w", err)
	}
	return items, nil
}

// LootTables builds the loot resolver. Every entry item must be registered
// in items.
func (c *Catalogs) LootTables(items *inventory.Items) (*loot.Tables, error) {
	tables := make([]*loot.Table, 0, len(c.Loot.ByID))
	for _, id := range sortedKeys(c.Loot.ByID) {
		d := c.Loot.ByID[id]
		t := &loot.Table{ID: d.ID}
		for _, pd := range d.Pools {
			pool := loot.Pool{MinRolls: pd.Rolls[0], MaxRolls: pd.Rolls[1], BonusRolls: pd.BonusRolls}
			for _, ed := range pd.Entries {
				ref, err := ids.ParseItemRef(ed.Item)
				if err != nil {
					return nil, fmt.Errorf("loot table %s: %w", d.ID, err)
				}
				if items != nil && !items.Has(ref) {
					return nil, fmt.Errorf("loot table %s: unknown item %s", d.ID, ed.Item)
				}
				pool.Entries = append(pool.Entries, loot.Entry{Item: ref, Weight: ed.Weight, MinCount: ed.Count[0], MaxCount: ed.Count[1]})
			}
			t.Pools = append(t.Pools, pool)
		}
		tables = append(tables, t)
	}
	return loot.NewTables(tables...)
}

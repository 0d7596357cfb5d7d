// Package config loads the shop configuration.
//
// The file is YAML. Before it is decoded it is unified with an embedded CUE
// schema, so unknown keys, negative stock and malformed durations are
// rejected with the schema's error. Anything the file leaves out keeps its
// default.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/Chrich02/pizzashop/internal/inventory"
	"github.com/Chrich02/pizzashop/internal/lifecycle"
	"github.com/Chrich02/pizzashop/internal/order"
	"github.com/Chrich02/pizzashop/internal/scheduler"
	"github.com/Chrich02/pizzashop/internal/session"
)

//go:embed schema.cue
var schemaCUE string

// DefaultLogDSN is the SQLite file holding the order log.
const DefaultLogDSN = "pizzashop-log.db"

// DefaultLogMirror is the JSON copy of the order log rewritten on every
// append. An explicit empty log_mirror turns it off.
const DefaultLogMirror = "pizzashop-order-log.json"

// Simulation defaults.
const (
	DefaultSimulationOrders      = 30
	DefaultSimulationMaxQuantity = 3
)

// Config is the resolved shop configuration.
type Config struct {
	SessionPath           string
	LogDSN                string
	LogMirror             string
	Menu                  order.Menu
	MaxStock              int
	InitialStock          map[inventory.Ingredient]int
	Recipes               inventory.RecipeBook
	Dwell                 lifecycle.Dwell
	Workers               int
	MaxProcessed          int
	MonitorInterval       time.Duration
	ReservationRetry      time.Duration
	SimulationOrders      int
	SimulationMaxQuantity int
}

// Default returns the stock shop configuration.
func Default() Config {
	stock := make(map[inventory.Ingredient]int)
	for _, ing := range inventory.Ingredients() {
		stock[ing] = inventory.DefaultMaxStock
	}
	recipes := make(inventory.RecipeBook, len(inventory.DefaultRecipes))
	for size, req := range inventory.DefaultRecipes {
		recipes[size] = req.Scale(1)
	}
	dwell := make(lifecycle.Dwell, len(lifecycle.DefaultDwell))
	for st, d := range lifecycle.DefaultDwell {
		dwell[st] = d
	}

	return Config{
		SessionPath:           session.DefaultPath,
		LogDSN:                DefaultLogDSN,
		LogMirror:             DefaultLogMirror,
		Menu:                  append(order.Menu(nil), order.DefaultMenu...),
		MaxStock:              inventory.DefaultMaxStock,
		InitialStock:          stock,
		Recipes:               recipes,
		Dwell:                 dwell,
		Workers:               scheduler.DefaultWorkers,
		MaxProcessed:          scheduler.DefaultMaxProcessed,
		MonitorInterval:       inventory.DefaultMonitorInterval,
		ReservationRetry:      lifecycle.DefaultReservationRetry,
		SimulationOrders:      DefaultSimulationOrders,
		SimulationMaxQuantity: DefaultSimulationMaxQuantity,
	}
}

type recipeFile struct {
	Base    int `yaml:"base"`
	Sauce   int `yaml:"sauce"`
	Topping int `yaml:"topping"`
}

func (r recipeFile) requirements() inventory.Requirements {
	return inventory.Requirements{
		inventory.Base:    r.Base,
		inventory.Sauce:   r.Sauce,
		inventory.Topping: r.Topping,
	}
}

type fileConfig struct {
	SessionPath  string   `yaml:"session_path"`
	LogDSN       string   `yaml:"log_dsn"`
	LogMirror    *string  `yaml:"log_mirror"`
	Menu         []string `yaml:"menu"`
	MaxStock     *int     `yaml:"max_stock"`
	InitialStock struct {
		Base    *int `yaml:"base"`
		Sauce   *int `yaml:"sauce"`
		Topping *int `yaml:"topping"`
	} `yaml:"initial_stock"`
	Recipes map[string]recipeFile `yaml:"recipes"`
	Dwell   struct {
		Registered         string `yaml:"registered"`
		Cooking            string `yaml:"cooking"`
		ReadyForCollection string `yaml:"ready_for_collection"`
	} `yaml:"dwell"`
	Workers          *int   `yaml:"workers"`
	MaxProcessed     *int   `yaml:"max_processed"`
	MonitorInterval  string `yaml:"monitor_interval"`
	ReservationRetry string `yaml:"reservation_retry"`
	Simulation       struct {
		Orders      *int `yaml:"orders"`
		MaxQuantity *int `yaml:"max_quantity"`
	} `yaml:"simulation"`
}

// Load reads path and merges it over Default. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates YAML data against the schema and merges it over Default.
func Parse(data []byte) (Config, error) {
	if err := validate(data); err != nil {
		return Config{}, err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("decoding: %w", err)
	}
	return merge(Default(), fc)
}

func validate(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	value := def.Unify(ctx.Encode(raw))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func merge(cfg Config, fc fileConfig) (Config, error) {
	if fc.SessionPath != "" {
		cfg.SessionPath = fc.SessionPath
	}
	if fc.LogDSN != "" {
		cfg.LogDSN = fc.LogDSN
	}
	if fc.LogMirror != nil {
		cfg.LogMirror = *fc.LogMirror
	}
	if len(fc.Menu) > 0 {
		cfg.Menu = order.Menu(fc.Menu)
	}
	if fc.MaxStock != nil {
		cfg.MaxStock = *fc.MaxStock
		for ing := range cfg.InitialStock {
			cfg.InitialStock[ing] = cfg.MaxStock
		}
	}

	for ing, n := range map[inventory.Ingredient]*int{
		inventory.Base:    fc.InitialStock.Base,
		inventory.Sauce:   fc.InitialStock.Sauce,
		inventory.Topping: fc.InitialStock.Topping,
	} {
		if n == nil {
			continue
		}
		if *n < 0 {
			return Config{}, fmt.Errorf("initial_stock.%s %d is negative", ing, *n)
		}
		if *n > cfg.MaxStock {
			return Config{}, fmt.Errorf("initial_stock.%s %d exceeds max_stock %d", ing, *n, cfg.MaxStock)
		}
		cfg.InitialStock[ing] = *n
	}

	for size, r := range fc.Recipes {
		cfg.Recipes[size] = r.requirements()
	}

	durations := []struct {
		name string
		text string
		set  func(time.Duration)
	}{
		{"dwell.registered", fc.Dwell.Registered, func(d time.Duration) { cfg.Dwell[order.StatusRegistered] = d }},
		{"dwell.cooking", fc.Dwell.Cooking, func(d time.Duration) { cfg.Dwell[order.StatusCooking] = d }},
		{"dwell.ready_for_collection", fc.Dwell.ReadyForCollection, func(d time.Duration) { cfg.Dwell[order.StatusReadyForCollection] = d }},
		{"monitor_interval", fc.MonitorInterval, func(d time.Duration) { cfg.MonitorInterval = d }},
		{"reservation_retry", fc.ReservationRetry, func(d time.Duration) { cfg.ReservationRetry = d }},
	}
	for _, field := range durations {
		if field.text == "" {
			continue
		}
		d, err := time.ParseDuration(field.text)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", field.name, err)
		}
		field.set(d)
	}

	if fc.Workers != nil {
		cfg.Workers = *fc.Workers
	}
	if fc.MaxProcessed != nil {
		cfg.MaxProcessed = *fc.MaxProcessed
	}
	if fc.Simulation.Orders != nil {
		cfg.SimulationOrders = *fc.Simulation.Orders
	}
	if fc.Simulation.MaxQuantity != nil {
		cfg.SimulationMaxQuantity = *fc.Simulation.MaxQuantity
	}
	return cfg, nil
}

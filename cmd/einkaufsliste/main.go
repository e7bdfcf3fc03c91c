/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Einkaufsliste server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command and flags (cobra)
  2. Load YAML configuration
  3. Initialize SQLite store
  4. Wire reconciler, plan service, SSE hub and janitor
  5. Start server with graceful shutdown

COMMANDS:
  serve    Run the HTTP server (default)
  seed     Load a small demo catalog into the database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the cleanup janitor
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with the default config file
  ./einkaufsliste serve

  # Run with an explicit config and database
  ./einkaufsliste serve --config ./config.yaml --db ./data/liste.db

  # Seed demo data
  ./einkaufsliste seed --db ./data/liste.db

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lka/einkaufsliste/api"
	"github.com/lka/einkaufsliste/config"
	"github.com/lka/einkaufsliste/list"
	"github.com/lka/einkaufsliste/plan"
	"github.com/lka/einkaufsliste/store/sqlite"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	ConfigPath string
	Database   string
	Port       int
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "einkaufsliste",
		Short: "Household shopping list and meal planning server",
		Long: `Einkaufsliste keeps one shopping list per shop and trip date, fed by
a week plan of meals. Planned meals contribute their ingredients to the
list; editing or removing a meal takes exactly its share back out.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "config.yaml", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "SQLite database path (overrides config)")
	cmd.PersistentFlags().IntVar(&opts.Port, "port", 0, "HTTP server port (overrides config)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))

	return cmd
}

func (o *options) load() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	if o.Port != 0 {
		cfg.Port = o.Port
	}
	return cfg, nil
}

// =============================================================================
// SERVE
// =============================================================================

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(opts)
		},
	}
}

func serve(opts *options) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	// Wire the engine: one store implements items, contributions,
	// catalog, plan entries, templates and recipes.
	hub := api.NewHub()
	reconciler := list.NewReconciler(store, store, store, hub, cfg.Cadence())
	planSvc := plan.NewService(store, store, store, store, reconciler)
	planSvc.Units = cfg.Units
	handler := api.NewHandler(store, planSvc, reconciler, hub, cfg)

	janitor := api.NewJanitor(store, hub)
	janitor.Start()
	defer janitor.Stop()

	router := api.NewRouter(handler, hub)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE connections stay open
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🛒 Server starting on http://localhost:%d", cfg.Port)
		log.Printf("📋 API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// =============================================================================
// SEED
// =============================================================================

func newSeedCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load a small demo catalog into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return seed(opts)
		},
	}
}

func seed(opts *options) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	ctx := context.Background()

	shop := sqlite.Shop{ID: "shop-demo", Name: "Supermarkt", IsDefault: true}
	if err := store.SaveShop(ctx, shop); err != nil {
		return err
	}

	departments := []sqlite.Department{
		{ID: "dep-obst", ShopID: shop.ID, Name: "Obst & Gemüse", SortOrder: 1},
		{ID: "dep-kuehl", ShopID: shop.ID, Name: "Kühlregal", SortOrder: 2},
		{ID: "dep-trocken", ShopID: shop.ID, Name: "Trockensortiment", SortOrder: 3},
	}
	for _, d := range departments {
		if err := store.SaveDepartment(ctx, d); err != nil {
			return err
		}
	}

	products := []sqlite.Product{
		{ID: "prod-milch", ShopID: shop.ID, DepartmentID: "dep-kuehl", Name: "Milch", Fresh: false, Manufacturer: "Weihenstephan"},
		{ID: "prod-fisch", ShopID: shop.ID, DepartmentID: "dep-kuehl", Name: "Lachsfilet", Fresh: true},
		{ID: "prod-mehl", ShopID: shop.ID, DepartmentID: "dep-trocken", Name: "Mehl", Fresh: false},
		{ID: "prod-moehren", ShopID: shop.ID, DepartmentID: "dep-obst", Name: "Möhren", Fresh: false},
	}
	for _, p := range products {
		if err := store.SaveProduct(ctx, p); err != nil {
			return err
		}
	}

	tpl := plan.Template{
		ID:          "tpl-fruehstueck",
		Name:        "Frühstück",
		PersonCount: 2,
		Items: []list.Contribution{
			{Name: "Milch", Quantity: "1 l"},
			{Name: "Brötchen", Quantity: "4"},
			{Name: "Butter", Quantity: "1"},
		},
	}
	if err := store.SaveTemplate(ctx, tpl); err != nil {
		return err
	}

	recipe := plan.Recipe{
		ID:       "rec-pfannkuchen",
		Name:     "Pfannkuchen",
		Category: "Süßes",
		Ingredients: `250 g Mehl
0,5 l Milch
3 Eier
1 Prise Salz`,
	}
	if err := store.SaveRecipe(ctx, recipe); err != nil {
		return err
	}

	log.Printf("Seeded demo data into %s", cfg.Database)
	return nil
}

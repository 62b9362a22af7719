package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lotas/tabsammlung/internal/analyzer"
	"github.com/lotas/tabsammlung/internal/applog"
	"github.com/lotas/tabsammlung/internal/board"
	"github.com/lotas/tabsammlung/internal/browser"
	"github.com/lotas/tabsammlung/internal/channel"
	"github.com/lotas/tabsammlung/internal/config"
	"github.com/lotas/tabsammlung/internal/export"
	"github.com/lotas/tabsammlung/internal/firefox"
	"github.com/lotas/tabsammlung/internal/pagetitle"
	"github.com/lotas/tabsammlung/internal/storage"
	"github.com/lotas/tabsammlung/internal/tui"
)

func main() {
	if len(os.Args) > 1 {
		args := os.Args[2:]
		switch os.Args[1] {
		case "serve":
			runServe(args)
			return
		case "save":
			runSave(args)
			return
		case "items":
			runItems(args)
			return
		case "remove":
			runRemove(args)
			return
		case "clear":
			runClear(args)
			return
		case "add":
			runAdd(args)
			return
		case "collections":
			runCollections(args)
			return
		case "open":
			runOpen(args)
			return
		case "duplicates":
			runDuplicates(args)
			return
		case "check":
			runCheck(args)
			return
		case "export":
			runExport(args)
			return
		case "import":
			runImport(args)
			return
		case "profiles":
			runProfiles()
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	fs := flag.NewFlagSet("tabsammlung", flag.ExitOnError)
	cfg := loadConfig(fs, os.Args[1:], false)
	defer applog.Close()

	db := openDB(cfg)
	defer db.Close()
	b, err := board.Load(storage.NewKV(db))
	if err != nil {
		fatal("loading collections", err)
	}

	// The dashboard still edits collections without the background process;
	// only the open-tabs pane and quick save need it.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	client, err := channel.Dial(ctx, cfg.UIURL())
	cancel()
	if err != nil {
		applog.Error("tui.dial", err)
		client = nil
	} else {
		defer client.Close()
	}

	p := tea.NewProgram(tui.NewModel(b, client), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Print(`tabsammlung — save and organize browser tabs

Usage:
  tabsammlung                                   Start the dashboard (default)
    --port <n>             Port of the background process (default: 19292)
    --db <path>            SQLite database path

  tabsammlung serve                             Run the background process
    --source <name>        Tab source: extension, session or cdp (default: extension)
    --profile <name>       Firefox profile for --source session
    --cdp <url>            DevTools endpoint for --source cdp (default: http://127.0.0.1:9222)

  tabsammlung save                              Save the active tab to the quick-save list
  tabsammlung items                             List the quick-save list
  tabsammlung remove <id>                       Remove one quick-save entry
  tabsammlung clear                             Empty the quick-save list

  tabsammlung add <url>                         Save a URL into a collection
    --title <text>         Title (default: fetched from the page)
    --collection <name>    Target collection (default: INBOX)
  tabsammlung collections                       List collections
  tabsammlung open <collection>                 Print a collection's URLs in order
  tabsammlung duplicates                        List saved items sharing a URL
  tabsammlung check                             Find saved items whose links are dead
    --delete               Delete the dead items

  tabsammlung export                            Export the quick-save list
    --out <file>           Output file (default: toby-export.json, "-" for stdout)
    --lz4                  Write mozlz4-compressed JSON
    --md                   Export collections as markdown instead
  tabsammlung import <file>                     Replace the quick-save list from a file

  tabsammlung profiles                          List Firefox profiles

Environment:
  TABSAMMLUNG_CONFIG     Config file (default: ~/.config/tabsammlung/config.yaml)
  TABSAMMLUNG_PORT, TABSAMMLUNG_DB, TABSAMMLUNG_LOG_DIR,
  TABSAMMLUNG_SOURCE, TABSAMMLUNG_PROFILE, TABSAMMLUNG_CDP
                         Override the matching config keys (flags override these)
`)
}

// loadConfig resolves settings for a subcommand and initialises logging.
// fs is parsed with args after the shared flags are bound.
func loadConfig(fs *flag.FlagSet, args []string, withSource bool) config.Config {
	cfg, err := config.Load(config.Path(os.Getenv), os.Getenv)
	if err != nil {
		fatal("loading config", err)
	}
	cfg.BindFlags(fs)
	if withSource {
		cfg.BindSourceFlags(fs)
	}
	fs.Parse(reorderArgs(args))
	if err := cfg.Validate(); err != nil {
		fatal("invalid config", err)
	}
	if err := applog.Init(cfg.LogDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	return cfg
}

func openDB(cfg config.Config) *sql.DB {
	db, err := storage.OpenDB(cfg.DB)
	if err != nil {
		fatal("opening database", err)
	}
	return db
}

func fatal(what string, err error) {
	fmt.Fprintf(os.Stderr, "Error %s: %v\n", what, err)
	os.Exit(1)
}

// --- Background process ---

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg := loadConfig(fs, args, true)
	defer applog.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := openDB(cfg)
	defer db.Close()

	mux := http.NewServeMux()
	var tabs browser.Tabs
	switch cfg.Source {
	case config.SourceSession:
		profiles, err := firefox.DiscoverProfiles()
		if err != nil {
			fatal("discovering Firefox profiles", err)
		}
		profile, err := firefox.PickProfile(profiles, cfg.Profile)
		if err != nil {
			fatal("picking profile", err)
		}
		s := browser.NewSession(profile.Path, 0)
		go s.Run(ctx)
		tabs = s
		fmt.Fprintf(os.Stderr, "Reading tabs from profile %s (read-only)\n", profile.Name)
	case config.SourceCDP:
		c, err := browser.DialCDP(ctx, cfg.CDPURL)
		if err != nil {
			fatal("connecting to DevTools", err)
		}
		defer c.Close()
		tabs = c
		fmt.Fprintf(os.Stderr, "Connected to DevTools at %s\n", cfg.CDPURL)
	default:
		bridge := browser.NewBridge()
		mux.Handle("/extension", bridge.Handler())
		tabs = bridge
		fmt.Fprintf(os.Stderr, "Waiting for the browser extension on ws://%s/extension\n", cfg.Addr())
	}

	svc := channel.NewService(tabs, storage.NewSavedItems(storage.NewKV(db)))
	srv := channel.NewServer(svc)
	mux.Handle("/ui", srv.Handler())
	go srv.Watch(ctx, tabs.Events())

	if err := listenAndServe(ctx, cfg.Addr(), mux); err != nil {
		fatal("serving", err)
	}
}

func listenAndServe(ctx context.Context, addr string, h http.Handler) error {
	applog.Info("server.start", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: h}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// --- Quick-save list (popup commands) ---

// call sends one request to the background process and exits on failure.
func call(cfg config.Config, msg channel.Message) channel.Response {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := channel.Dial(ctx, cfg.UIURL())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Background process not reachable (start it with `tabsammlung serve`): %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	resp, err := client.Call(ctx, msg)
	if err != nil {
		fatal("calling background process", err)
	}
	if !resp.OK {
		fmt.Fprintf(os.Stderr, "Error: %s\n", resp.Error)
		os.Exit(1)
	}
	return resp
}

func runSave(args []string) {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	cfg := loadConfig(fs, args, false)
	defer applog.Close()

	resp := call(cfg, channel.Request(channel.SaveCurrentTab))
	if resp.Item != nil {
		fmt.Printf("Saved %s\n  %s\n", resp.Item.Title, resp.Item.URL)
	}
}

func runItems(args []string) {
	fs := flag.NewFlagSet("items", flag.ExitOnError)
	cfg := loadConfig(fs, args, false)
	defer applog.Close()

	resp := call(cfg, channel.Request(channel.GetItems))
	if len(resp.Items) == 0 {
		fmt.Println("No saved items.")
		return
	}
	for _, it := range resp.Items {
		fmt.Printf("%s  %s  %s\n    %s\n", it.ID, it.CreatedAt.Format("2006-01-02 15:04"), it.Title, it.URL)
	}
}

func runRemove(args []string) {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	cfg := loadConfig(fs, args, false)
	defer applog.Close()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tabsammlung remove <id>")
		os.Exit(1)
	}
	call(cfg, channel.RemoveItemRequest(fs.Arg(0)))
}

func runClear(args []string) {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	cfg := loadConfig(fs, args, false)
	defer applog.Close()

	call(cfg, channel.Request(channel.ClearItems))
	fmt.Println("Cleared.")
}

// --- Collections ---

func loadBoard(cfg config.Config) (*board.Board, *sql.DB) {
	db := openDB(cfg)
	b, err := board.Load(storage.NewKV(db))
	if err != nil {
		db.Close()
		fatal("loading collections", err)
	}
	return b, db
}

func runAdd(args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	title := fs.String("title", "", "Title (default: fetched from the page)")
	collection := fs.String("collection", "", "Target collection name")
	cfg := loadConfig(fs, args, false)
	defer applog.Close()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tabsammlung add <url> [--title text] [--collection name]")
		os.Exit(1)
	}
	url := fs.Arg(0)

	b, db := loadBoard(cfg)
	defer db.Close()

	colID := ""
	if *collection != "" {
		c, ok := b.CollectionByName(*collection)
		if !ok {
			fmt.Fprintf(os.Stderr, "Collection %q not found.\n", *collection)
			os.Exit(1)
		}
		colID = c.ID
	}

	if *title == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		*title = pagetitle.TitleOrURL(ctx, url)
		cancel()
	}
	it, ok := b.AddTab(*title, url, colID)
	if !ok {
		fmt.Fprintln(os.Stderr, "Could not add item.")
		os.Exit(1)
	}
	c, _ := b.Collection(it.CollectionID)
	fmt.Printf("Added %q to %s\n", it.Title, c.Name)
}

func runCollections(args []string) {
	fs := flag.NewFlagSet("collections", flag.ExitOnError)
	cfg := loadConfig(fs, args, false)
	defer applog.Close()

	b, db := loadBoard(cfg)
	defer db.Close()

	for _, c := range b.Collections() {
		star := ""
		if c.Starred {
			star = " ★"
		}
		fmt.Printf("%s%s (%d)\n", c.Name, star, len(b.RawCollectionTabs(c.ID)))
	}
}

func runOpen(args []string) {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	cfg := loadConfig(fs, args, false)
	defer applog.Close()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tabsammlung open <collection>")
		os.Exit(1)
	}
	b, db := loadBoard(cfg)
	defer db.Close()

	name := strings.Join(fs.Args(), " ")
	c, ok := b.CollectionByName(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "Collection %q not found.\n", name)
		os.Exit(1)
	}
	for _, u := range b.OpenAll(c.ID) {
		fmt.Println(u)
	}
}

func runDuplicates(args []string) {
	fs := flag.NewFlagSet("duplicates", flag.ExitOnError)
	cfg := loadConfig(fs, args, false)
	defer applog.Close()

	b, db := loadBoard(cfg)
	defer db.Close()

	groups := b.Duplicates()
	if len(groups) == 0 {
		fmt.Println("No duplicates.")
		return
	}
	for _, g := range groups {
		fmt.Println(g[0].URL)
		for _, it := range g {
			c, _ := b.Collection(it.CollectionID)
			fmt.Printf("  %s  [%s]\n", it.Title, c.Name)
		}
	}
}

func runCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	del := fs.Bool("delete", false, "Delete the dead items")
	cfg := loadConfig(fs, args, false)
	defer applog.Close()

	b, db := loadBoard(cfg)
	defer db.Close()

	items := b.Items()
	fmt.Fprintf(os.Stderr, "Checking %d links...\n", len(items))
	dead := analyzer.CheckDeadLinks(context.Background(), items)
	if len(dead) == 0 {
		fmt.Println("No dead links.")
		return
	}
	for _, d := range dead {
		c, _ := b.Collection(d.Item.CollectionID)
		fmt.Printf("%-12s %s  [%s]\n    %s\n", d.Reason, d.Item.Title, c.Name, d.Item.URL)
		if *del {
			b.Select(d.Item.ID)
		}
	}
	if *del {
		b.BulkDelete()
		fmt.Printf("Deleted %d items.\n", len(dead))
	}
}

// --- Import / export (options page) ---

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	outFile := fs.String("out", "", "Output file (default: toby-export.json, - for stdout)")
	lz4 := fs.Bool("lz4", false, "Write mozlz4-compressed JSON")
	md := fs.Bool("md", false, "Export collections as markdown")
	cfg := loadConfig(fs, args, false)
	defer applog.Close()

	db := openDB(cfg)
	defer db.Close()

	var data []byte
	if *md {
		b, err := board.Load(storage.NewKV(db))
		if err != nil {
			fatal("loading collections", err)
		}
		data = []byte(export.Markdown(b, time.Now()))
		if *outFile == "" {
			*outFile = "-"
		}
	} else {
		items, err := storage.NewSavedItems(storage.NewKV(db)).Load()
		if err != nil {
			fatal("reading saved items", err)
		}
		data, err = export.Encode(items, *lz4)
		if err != nil {
			fatal("encoding export", err)
		}
		if *outFile == "" {
			*outFile = export.DefaultFileName
			if *lz4 {
				*outFile = strings.TrimSuffix(*outFile, ".json") + ".jsonlz4"
			}
		}
	}

	if *outFile == "-" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*outFile, data, 0644); err != nil {
		fatal("writing file", err)
	}
	fmt.Fprintf(os.Stderr, "Exported to %s\n", *outFile)
}

func runImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfg := loadConfig(fs, args, false)
	defer applog.Close()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: tabsammlung import <file>")
		os.Exit(1)
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fatal("reading file", err)
	}
	// A file that does not parse leaves the stored list untouched.
	items, err := export.ParseSavedItems(data)
	if err != nil {
		fatal("parsing import", err)
	}

	db := openDB(cfg)
	defer db.Close()
	if err := storage.NewSavedItems(storage.NewKV(db)).Save(items); err != nil {
		fatal("saving items", err)
	}
	fmt.Printf("Imported %d items.\n", len(items))
}

func runProfiles() {
	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error discovering Firefox profiles: %v\n", err)
		os.Exit(1)
	}
	if len(profiles) == 0 {
		fmt.Fprintln(os.Stderr, "No Firefox profiles found.")
		os.Exit(1)
	}

	for _, p := range profiles {
		suffix := ""
		if p.IsDefault {
			suffix = " [default]"
		}
		fmt.Printf("%s (%s)%s\n", p.Name, p.Path, suffix)
	}
}

// reorderArgs moves flag arguments before positional arguments so that
// flag.Parse handles them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") && args[i] != "-" {
			flags = append(flags, args[i])
			if takesValue(args[i]) && i+1 < len(args) && (args[i+1] == "-" || !strings.HasPrefix(args[i+1], "-")) {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}

// takesValue reports whether a flag argument consumes the next argument.
func takesValue(arg string) bool {
	if strings.Contains(arg, "=") {
		return false
	}
	switch strings.TrimLeft(arg, "-") {
	case "lz4", "md", "delete":
		return false
	}
	return true
}

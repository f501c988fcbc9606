package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"golang.org/x/term"

	"github.com/himanishpuri/audioprints/internal/config"
	"github.com/himanishpuri/audioprints/pkg/audioprints"
	"github.com/himanishpuri/audioprints/pkg/audioprints/fingerprint"
	"github.com/himanishpuri/audioprints/pkg/logger"
)

// Global flags
var (
	configPath string
	envFile    string
	dbPath     string
	backend    string
	hashAlgo   string
	workers    int
	logLevel   string
)

func init() {
	flag.StringVar(&configPath, "config", config.DefaultConfigFile, "INI configuration file (skipped if missing)")
	flag.StringVar(&envFile, "env", ".env", "dotenv file with AUDIOPRINTS_* variables (skipped if missing)")
	flag.StringVar(&dbPath, "db", "", "Database path: SQLite file or Badger directory (env: "+config.EnvDBPath+")")
	flag.StringVar(&backend, "backend", "", "Storage backend: sqlite, badger or memory (env: "+config.EnvBackend+")")
	flag.StringVar(&hashAlgo, "hash", "", "Pair digest: sha1, sha256 or blake2b (env: "+config.EnvHash+")")
	flag.IntVar(&workers, "workers", 0, "Parallel files for index and watch (default: number of CPUs)")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (env: LOG_LEVEL)")
}

// loadConfig layers the global flags on top of file and environment settings.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return cfg, err
	}

	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if backend != "" {
		if cfg.Backend, err = audioprints.ParseBackend(backend); err != nil {
			return cfg, err
		}
	}
	if hashAlgo != "" {
		if cfg.Extraction.HashAlgorithm, err = fingerprint.ParseHashAlgorithm(hashAlgo); err != nil {
			return cfg, err
		}
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	return cfg, nil
}

// createService creates a new audioprints service with configured options
func createService(cfg config.Config, extra ...audioprints.Option) audioprints.Service {
	log := logger.GetLogger()

	opts := append(cfg.ServiceOptions(), audioprints.WithLogger(log))
	svc, err := audioprints.NewService(append(opts, extra...)...)
	if err != nil {
		fail("Failed to create service", err)
	}
	log.Debugf("Using %s store at %s", cfg.Backend, cfg.DBPath)
	return svc
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	log := logger.GetLogger()
	if logLevel != "" {
		log.SetLevel(logger.ParseLevel(logLevel))
	}

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	if isTerminal() {
		printBanner()
	}

	cfg, err := loadConfig()
	if err != nil {
		fail("Invalid configuration", err)
	}

	command, rest := args[0], args[1:]
	log.Debugf("Executing command: %s", command)

	ctx := context.Background()
	switch command {
	case "add":
		handleAdd(ctx, cfg, rest)
	case "index":
		handleIndex(ctx, cfg, rest)
	case "watch":
		handleWatch(ctx, cfg, rest)
	case "lookup":
		handleLookup(ctx, cfg, rest)
	case "hash":
		handleHash(cfg, rest)
	case "search":
		handleSearch(cfg, rest)
	case "list":
		handleList(cfg)
	case "delete":
		handleDelete(cfg, rest)
	case "view":
		handleView(cfg, rest)
	case "peaks":
		handlePeaks(cfg, rest)
	case "fingerprint":
		handleFingerprint(cfg, rest)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// fail reports err on stderr and exits.
func fail(msg string, err error) {
	fmt.Fprintf(os.Stderr, "❌ %s: %v\n", msg, err)
	logger.GetLogger().Errorf("%s: %v", msg, err)
	os.Exit(1)
}

// splitArgs separates leading positional arguments from the flags that follow
// them, so both "add song.wav -name x" and "add -name x song.wav" work.
func splitArgs(fs *flag.FlagSet, args []string) []string {
	i := 0
	for i < len(args) && !strings.HasPrefix(args[i], "-") {
		i++
	}
	positional := slices.Clone(args[:i])
	_ = fs.Parse(args[i:])
	return append(positional, fs.Args()...)
}

func printBanner() {
	banner := `
                 _ _                  _       _
  __ _ _   _  __| (_) ___  _ __  _ __(_)_ __ | |_ ___
 / _' | | | |/ _' | |/ _ \| '_ \| '__| | '_ \| __/ __|
| (_| | |_| | (_| | | (_) | |_) | |  | | | | | |_\__ \
 \__,_|\__,_|\__,_|_|\___/| .__/|_|  |_|_| |_|\__|___/
                          |_|
           Audio Fingerprinting CLI Tool
`
	fmt.Println(banner)
}

func printUsage() {
	fmt.Println("audioprints - Audio Fingerprinting CLI")
	fmt.Println("\nGlobal Options:")
	flag.PrintDefaults()
	fmt.Println("\nUsage:")
	fmt.Println("  audioprints [global-options] add <file.wav> [-name <name>]")
	fmt.Println("  audioprints [global-options] index <file-or-dir>...")
	fmt.Println("  audioprints [global-options] watch <dir> [-settle <duration>]")
	fmt.Println("  audioprints [global-options] lookup <file.wav>")
	fmt.Println("  audioprints [global-options] hash <hash>")
	fmt.Println("  audioprints [global-options] search <query>")
	fmt.Println("  audioprints [global-options] list")
	fmt.Println("  audioprints [global-options] delete <track_id>")
	fmt.Println("  audioprints [global-options] view <file.wav> [-o <out.png>] [-bins <n>] [-peaks=false]")
	fmt.Println("  audioprints [global-options] peaks <file.wav>")
	fmt.Println("  audioprints [global-options] fingerprint <file.wav> [-track <id>]")
	fmt.Println("\nExamples:")
	fmt.Println("  # Index a folder into a Badger store")
	fmt.Println("  audioprints -backend badger -db ./prints index ./music")
	fmt.Println()
	fmt.Println("  # Count shared hashes for a clip")
	fmt.Println("  audioprints lookup clip.wav")
	fmt.Println()
	fmt.Println("  # Render a spectrogram with its landmarks")
	fmt.Println("  audioprints view song.wav -o song.png")
}

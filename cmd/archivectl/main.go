// Command archivectl is the thin CLI wrapper around the repository
// façade: init a repository, archive files into it, extract an archive
// back out, list what's stored, and check manifest integrity.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/sambhavthakkar/archivevault/internal/archive"
	"github.com/sambhavthakkar/archivevault/internal/config"
	"github.com/sambhavthakkar/archivevault/internal/pipeline"
	"github.com/sambhavthakkar/archivevault/internal/validation"
	"github.com/sambhavthakkar/archivevault/repository"
)

// passphraseEnvVar names the environment variable archivectl consults
// before prompting on the terminal, per the repository's passphrase
// supply contract.
const passphraseEnvVar = "ASURAN_PASSWORD"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "init":
		err = initCmd(args)
	case "archive":
		err = archiveCmd(args)
	case "extract":
		err = extractCmd(args)
	case "list":
		err = listCmd(args)
	case "check":
		err = checkCmd(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("archivectl - deduplicated, encrypted, tamper-evident archive storage")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  archivectl init <repo-dir>")
	fmt.Println("  archivectl archive <repo-dir> <archive-name> <file>...")
	fmt.Println("  archivectl extract <repo-dir> <archive-name> <out-dir>")
	fmt.Println("  archivectl list <repo-dir>")
	fmt.Println("  archivectl check <repo-dir>")
	fmt.Println()
	fmt.Println("Run 'archivectl <command> -h' for command-specific help")
}

// readPassphrase consults ASURAN_PASSWORD before falling back to an
// interactive terminal prompt, per spec section 6's passphrase supply
// contract.
func readPassphrase(prompt string) (string, error) {
	if fromEnv, ok := os.LookupEnv(passphraseEnvVar); ok {
		return fromEnv, nil
	}
	fmt.Print(prompt)
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(data), nil
}

// loadConfig loads and validates the CLI's configuration, giving every
// subcommand a single source of truth for chunker/pipeline/segment
// tuning instead of hardcoding those values at each call site.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig("")
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openRepository opens dir as a MultiFile repository using cfg's chunker,
// segment, and pipeline settings, after validating dir as a usable
// directory path.
func openRepository(dir string, passphrase string, cfg *config.Config) (*repository.Repository, error) {
	if err := validation.ValidateFilePath(dir, false); err != nil {
		return nil, fmt.Errorf("repository directory: %w", err)
	}
	pipelineCfg := pipeline.Config{
		Workers:    cfg.PipelineWorkerCount,
		QueueDepth: cfg.PipelineQueueDepth,
	}
	return repository.OpenMultiFile(dir, passphrase, cfg.DefaultChunkSettings, cfg.ChunkerSettings, cfg.SegmentMaxSize, pipelineCfg, nil)
}

func initCmd(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: archivectl init <repo-dir>")
	}
	dir := fs.Arg(0)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	passphrase, err := readPassphrase("Enter passphrase for new repository: ")
	if err != nil {
		return err
	}
	confirm, err := readPassphrase("Confirm passphrase: ")
	if err != nil {
		return err
	}
	if passphrase != confirm {
		return fmt.Errorf("passphrases do not match")
	}

	repo, err := openRepository(dir, passphrase, cfg)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer repo.Close()

	fmt.Printf("Initialized repository at %s\n", dir)
	return nil
}

func archiveCmd(args []string) error {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 3 {
		return fmt.Errorf("usage: archivectl archive <repo-dir> <archive-name> <file>...")
	}
	dir, name, files := fs.Arg(0), fs.Arg(1), fs.Args()[2:]

	if err := validation.ValidateStringNonEmpty(name); err != nil {
		return fmt.Errorf("archive name: %w", err)
	}
	for _, path := range files {
		if err := validation.ValidateFilePath(path, true); err != nil {
			return fmt.Errorf("input file %s: %w", path, err)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	passphrase, err := readPassphrase("Enter repository passphrase: ")
	if err != nil {
		return err
	}

	repo, err := openRepository(dir, passphrase, cfg)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer repo.Close()

	ctx := context.Background()
	arch := archive.New(name, time.Now())

	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		err = repo.StoreObject(ctx, arch, filepath.Base(path), f)
		f.Close()
		if err != nil {
			return fmt.Errorf("store %s: %w", path, err)
		}
		fmt.Printf("stored %s\n", path)
	}

	if _, err := repo.CommitArchive(ctx, arch); err != nil {
		return fmt.Errorf("commit archive: %w", err)
	}
	fmt.Printf("committed archive %q with %d file(s)\n", name, len(files))
	return nil
}

func extractCmd(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 3 {
		return fmt.Errorf("usage: archivectl extract <repo-dir> <archive-name> <out-dir>")
	}
	dir, name, outDir := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	if err := validation.ValidateStringNonEmpty(name); err != nil {
		return fmt.Errorf("archive name: %w", err)
	}
	if err := validation.ValidateFilePath(outDir, false); err != nil {
		return fmt.Errorf("output directory: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	passphrase, err := readPassphrase("Enter repository passphrase: ")
	if err != nil {
		return err
	}

	repo, err := openRepository(dir, passphrase, cfg)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer repo.Close()

	ctx := context.Background()
	arch, err := repo.OpenArchive(ctx, name)
	if err != nil {
		return fmt.Errorf("open archive %q: %w", name, err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	for path := range arch.Files {
		data, err := repo.FetchObject(ctx, arch, path)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", path, err)
		}
		dest := filepath.Join(outDir, filepath.Base(path))
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
		fmt.Printf("extracted %s\n", dest)
	}
	return nil
}

func listCmd(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: archivectl list <repo-dir>")
	}
	dir := fs.Arg(0)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	passphrase, err := readPassphrase("Enter repository passphrase: ")
	if err != nil {
		return err
	}

	repo, err := openRepository(dir, passphrase, cfg)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer repo.Close()

	for _, a := range repo.ListArchives() {
		fmt.Printf("%s\t%s\t%x\n", a.Timestamp.Format(time.RFC3339), a.Name, a.RootID[:8])
	}
	return nil
}

func checkCmd(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: archivectl check <repo-dir>")
	}
	dir := fs.Arg(0)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	passphrase, err := readPassphrase("Enter repository passphrase: ")
	if err != nil {
		return err
	}

	// manifest.Open verifies the entire reachable transaction DAG during
	// OpenMultiFile; a clean return here already means the repository's
	// manifest chain is intact.
	repo, err := openRepository(dir, passphrase, cfg)
	if err != nil {
		return fmt.Errorf("repository check failed: %w", err)
	}
	defer repo.Close()

	fmt.Println("repository OK")
	return nil
}

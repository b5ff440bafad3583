// Command todo-ops backs up and restores the server's data directory
// (the SQLite task database plus the auth state file).
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/krishnaAiGen/voice-first-to-do/internal/ops"
)

const (
	archivePrefix = "todo-"
	timeLayout    = "20060102T150405Z"
)

type command struct {
	name string
	run  func(args []string) error
}

var commands = []command{
	{"backup", cmdBackup},
	{"restore", cmdRestore},
	{"drill", cmdDrill},
	{"prune", cmdPrune},
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}
	for _, c := range commands {
		if c.name == os.Args[1] {
			if err := c.run(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "%s failed: %v\n", c.name, err)
				os.Exit(1)
			}
			return
		}
	}
	printUsage()
	os.Exit(2)
}

func cmdBackup(args []string) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	dataDir := fs.String("data-dir", "data", "path to data directory")
	out := fs.String("out", "", "output archive path (.tar.gz)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *out == "" {
		*out = filepath.Join("backups", archiveName(time.Now()))
	}
	if err := ops.BackupDataDir(*dataDir, *out); err != nil {
		return err
	}
	fmt.Println(*out)
	return nil
}

func cmdRestore(args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	archive := fs.String("archive", "", "input backup archive (.tar.gz)")
	target := fs.String("target-dir", "data-restored", "restore target directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *archive == "" {
		return fmt.Errorf("archive is required")
	}
	return ops.RestoreDataDir(*archive, *target)
}

// cmdDrill proves a backup can actually be restored: it round-trips
// the data directory through an archive and compares content digests.
func cmdDrill(args []string) error {
	fs := flag.NewFlagSet("drill", flag.ContinueOnError)
	dataDir := fs.String("data-dir", "data", "path to data directory")
	workDir := fs.String("work-dir", os.TempDir(), "temporary workspace for drill artifacts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := os.MkdirAll(*workDir, 0o755); err != nil {
		return err
	}

	ts := time.Now().UTC().Format(timeLayout)
	archive := filepath.Join(*workDir, archivePrefix+"drill-"+ts+".tar.gz")
	restoreDir := filepath.Join(*workDir, archivePrefix+"drill-restore-"+ts)

	if err := ops.BackupDataDir(*dataDir, archive); err != nil {
		return err
	}
	if err := ops.RestoreDataDir(archive, restoreDir); err != nil {
		return err
	}

	srcDigest, err := dirDigest(*dataDir)
	if err != nil {
		return err
	}
	restoreDigest, err := dirDigest(restoreDir)
	if err != nil {
		return err
	}
	if srcDigest != restoreDigest {
		return fmt.Errorf("digest mismatch after restore: src=%s restored=%s", srcDigest, restoreDigest)
	}

	fmt.Println("backup:", archive)
	fmt.Println("restored:", restoreDir)
	fmt.Println("digest:", srcDigest)
	return nil
}

// cmdPrune removes old archives from a backup directory, keeping the
// newest N. Only files matching this tool's naming scheme are touched.
func cmdPrune(args []string) error {
	fs := flag.NewFlagSet("prune", flag.ContinueOnError)
	backupDir := fs.String("backup-dir", "backups", "directory holding backup archives")
	keep := fs.Int("keep", 7, "number of newest archives to keep")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *keep < 1 {
		return fmt.Errorf("keep must be at least 1")
	}

	entries, err := os.ReadDir(*backupDir)
	if err != nil {
		return err
	}
	var archives []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, ".tar.gz") {
			continue
		}
		archives = append(archives, name)
	}
	// the timestamped names sort chronologically
	sort.Strings(archives)
	if len(archives) <= *keep {
		fmt.Printf("kept %d archives, nothing to prune\n", len(archives))
		return nil
	}

	doomed := archives[:len(archives)-*keep]
	for _, name := range doomed {
		if err := os.Remove(filepath.Join(*backupDir, name)); err != nil {
			return err
		}
		fmt.Println("removed:", name)
	}
	fmt.Printf("kept %d archives\n", *keep)
	return nil
}

func archiveName(now time.Time) string {
	return archivePrefix + now.UTC().Format(timeLayout) + ".tar.gz"
}

// dirDigest hashes the directory content, skipping the same transient
// entries the backup skips so drill digests line up.
func dirDigest(root string) (string, error) {
	root = filepath.Clean(root)
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if ops.SkippedEntry(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(files)

	h := sha256.New()
	for _, rel := range files {
		_, _ = io.WriteString(h, rel+"\n")
		b, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			return "", err
		}
		if _, err := h.Write(b); err != nil {
			return "", err
		}
		_, _ = io.WriteString(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func printUsage() {
	fmt.Println("usage:")
	fmt.Println("  todo-ops backup  --data-dir data --out backups/backup.tar.gz")
	fmt.Println("  todo-ops restore --archive backups/backup.tar.gz --target-dir data-restored")
	fmt.Println("  todo-ops drill   --data-dir data --work-dir /tmp")
	fmt.Println("  todo-ops prune   --backup-dir backups --keep 7")
}
